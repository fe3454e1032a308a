package application

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/ledgerpay/user-service/internal/domain/entity"
	"github.com/ledgerpay/user-service/internal/domain/repository"
)

// LookupService resolves users through the cache-aside path: cache first,
// store on miss, populating the cache with the canonical snapshot so repeated
// calls are idempotent regardless of hit/miss.
type LookupService struct {
	Repo   repository.UserRepository
	Cache  repository.UserCache
	Logger *logrus.Logger
}

func NewLookupService(repo repository.UserRepository, cache repository.UserCache, logger *logrus.Logger) *LookupService {
	return &LookupService{Repo: repo, Cache: cache, Logger: logger}
}

// FindUser returns the user for id or repository.ErrNotFound. Cache backend
// errors propagate (fail closed): serving around a broken cache would bypass
// the invalidation contract the mutation paths rely on.
func (s *LookupService) FindUser(ctx context.Context, id string) (*entity.User, error) {
	u, found, err := s.Cache.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if found {
		return u, nil
	}

	u, err = s.Repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// Populating the cache is a side effect; a failed write must not turn a
	// successful read into an error.
	if perr := s.Cache.Put(ctx, id, u); perr != nil && s.Logger != nil {
		s.Logger.WithError(perr).WithField("user_id", id).Warn("cache populate failed")
	}
	return u, nil
}
