package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/ledgerpay/user-service/internal/domain/entity"
	"github.com/ledgerpay/user-service/internal/domain/repository"
)

const (
	keyPrefix  = "user:"
	DefaultTTL = 5 * time.Minute
)

// userSnapshot is the canonical wire shape for cached users. Every Put writes
// this shape; Get reads it back, tolerating the legacy shape below.
type userSnapshot struct {
	ID                string           `json:"id"`
	Name              string           `json:"name"`
	Email             string           `json:"email"`
	Address           string           `json:"address,omitempty"`
	ProfilePictureURL string           `json:"profilePictureUrl,omitempty"`
	BankingDetails    *bankingSnapshot `json:"bankingDetails,omitempty"`
}

type bankingSnapshot struct {
	Agency        string  `json:"agency"`
	AccountNumber string  `json:"accountNumber"`
	Balance       float64 `json:"balance"`
}

// legacySnapshot is the shape an earlier serializer wrote: private field names
// leaked with an underscore prefix. Entries in this shape are migrated to the
// canonical one lazily when read.
type legacySnapshot struct {
	ID                string           `json:"_id"`
	Name              string           `json:"_name"`
	Email             string           `json:"_email"`
	Address           string           `json:"_address"`
	ProfilePictureURL string           `json:"_profilePicture"`
	BankingDetails    *bankingSnapshot `json:"_bankingDetails"`
}

type UserCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *logrus.Logger
}

func NewUserCache(rdb *redis.Client, ttl time.Duration, logger *logrus.Logger) *UserCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &UserCache{rdb: rdb, ttl: ttl, logger: logger}
}

func cacheKey(id string) string { return keyPrefix + id }

// Get returns the cached user for id. found=false means a clean miss; any
// other failure is a backend error and is returned as such so the caller can
// fail closed.
func (c *UserCache) Get(ctx context.Context, id string) (*entity.User, bool, error) {
	raw, err := c.rdb.Get(ctx, cacheKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get %s: %w", id, err)
	}
	u, migrated, err := decodeSnapshot(raw)
	if err != nil {
		return nil, false, fmt.Errorf("cache decode %s: %w", id, err)
	}
	if migrated {
		// Rewrite the entry in canonical shape so the legacy path is taken
		// at most once per entry.
		if perr := c.Put(ctx, id, u); perr != nil && c.logger != nil {
			c.logger.WithError(perr).WithField("user_id", id).Warn("cache snapshot migration failed")
		}
	}
	return u, true, nil
}

// Put unconditionally overwrites the entry with the canonical snapshot.
func (c *UserCache) Put(ctx context.Context, id string, u *entity.User) error {
	b, err := json.Marshal(toSnapshot(u))
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, cacheKey(id), b, c.ttl).Err()
}

// Invalidate deletes the entry. Deleting an absent key is not an error.
func (c *UserCache) Invalidate(ctx context.Context, id string) error {
	return c.rdb.Del(ctx, cacheKey(id)).Err()
}

func toSnapshot(u *entity.User) userSnapshot {
	s := userSnapshot{
		ID:                u.ID,
		Name:              u.Name,
		Email:             u.Email,
		Address:           u.Address,
		ProfilePictureURL: u.ProfilePictureURL,
	}
	if u.BankingDetails != nil {
		s.BankingDetails = &bankingSnapshot{
			Agency:        u.BankingDetails.Agency,
			AccountNumber: u.BankingDetails.AccountNumber,
			Balance:       u.BankingDetails.Balance,
		}
	}
	return s
}

func (s userSnapshot) toUser() *entity.User {
	u := &entity.User{
		ID:                s.ID,
		Name:              s.Name,
		Email:             s.Email,
		Address:           s.Address,
		ProfilePictureURL: s.ProfilePictureURL,
	}
	if s.BankingDetails != nil {
		u.BankingDetails = &entity.BankingDetails{
			Agency:        s.BankingDetails.Agency,
			AccountNumber: s.BankingDetails.AccountNumber,
			Balance:       s.BankingDetails.Balance,
		}
	}
	return u
}

// decodeSnapshot normalizes either historical cache shape into a User.
// migrated reports that the entry was in the legacy shape and should be
// rewritten canonically.
func decodeSnapshot(raw []byte) (u *entity.User, migrated bool, err error) {
	var snap userSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, false, err
	}
	if snap.ID != "" {
		return snap.toUser(), false, nil
	}
	var legacy legacySnapshot
	if err := json.Unmarshal(raw, &legacy); err != nil {
		return nil, false, err
	}
	if legacy.ID == "" {
		return nil, false, errors.New("unrecognized snapshot shape")
	}
	return userSnapshot(legacy).toUser(), true, nil
}

var _ repository.UserCache = (*UserCache)(nil)
