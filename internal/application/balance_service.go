package application

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/ledgerpay/user-service/internal/domain/repository"
)

// BalanceService applies balance deltas and answers sufficiency checks. The
// gateway owns the atomicity of each mutation; this layer owns cache
// invalidation.
type BalanceService struct {
	Repo   repository.UserRepository
	Cache  repository.UserCache
	Lookup *LookupService
	Logger *logrus.Logger
}

func NewBalanceService(repo repository.UserRepository, cache repository.UserCache, lookup *LookupService, logger *logrus.Logger) *BalanceService {
	return &BalanceService{Repo: repo, Cache: cache, Lookup: lookup, Logger: logger}
}

// ApplyDelta mutates a single user's balance and invalidates that user's
// cache entry. The entry is invalidated even when the gateway call failed:
// the store may have partially applied the write before erroring, and a stale
// snapshot is worse than a cold one.
func (s *BalanceService) ApplyDelta(ctx context.Context, id string, amount float64, dir repository.BalanceDirection) error {
	err := s.Repo.UpdateBalance(ctx, id, amount, dir)
	s.invalidate(ctx, id)
	return err
}

// Transfer moves amount from sender to receiver as one store-level
// transaction, then invalidates both cache entries.
func (s *BalanceService) Transfer(ctx context.Context, senderID, receiverID string, amount float64) error {
	err := s.Repo.TransferBalance(ctx, senderID, receiverID, amount)
	s.invalidate(ctx, senderID)
	s.invalidate(ctx, receiverID)
	return err
}

func (s *BalanceService) invalidate(ctx context.Context, id string) {
	if err := s.Cache.Invalidate(ctx, id); err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithField("user_id", id).Error("cache invalidation failed")
	}
}

// BalanceCheck is the outcome of a sufficiency check. Absence of the user is
// reported structurally, not as an error.
type BalanceCheck struct {
	HasSufficientBalance bool
	CurrentBalance       float64
	RequiredAmount       float64
	UserID               string
	UserExists           bool
	ErrorMessage         string
}

// CheckBalance reports whether the user can cover amount. Equal balance is
// sufficient. Backend errors propagate unchanged; only domain-known absence
// becomes a structured result.
func (s *BalanceService) CheckBalance(ctx context.Context, userID string, amount float64) (BalanceCheck, error) {
	u, err := s.Lookup.FindUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return BalanceCheck{
				RequiredAmount: amount,
				UserID:         userID,
				ErrorMessage:   "not found",
			}, nil
		}
		return BalanceCheck{}, err
	}

	balance := u.Balance()
	return BalanceCheck{
		HasSufficientBalance: balance >= amount,
		CurrentBalance:       balance,
		RequiredAmount:       amount,
		UserID:               userID,
		UserExists:           true,
	}, nil
}
