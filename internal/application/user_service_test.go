package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ledgerpay/user-service/internal/domain/repository"
)

func newUserService(repo *stubRepo, cache *stubCache) *UserService {
	logger := testLogger()
	lookup := NewLookupService(repo, cache, logger)
	return NewUserService(repo, cache, lookup, nil, "", logger, nil, "")
}

func strptr(s string) *string   { return &s }
func f64ptr(f float64) *float64 { return &f }

func TestUpdateUserRejectsBalance(t *testing.T) {
	repo := newStubRepo(demoUser("u1", 100))
	svc := newUserService(repo, newStubCache())

	_, err := svc.UpdateUser(context.Background(), "u1", UpdateUserInput{
		Name:    strptr("New Name"),
		Balance: f64ptr(9999),
	})

	assert.ErrorIs(t, err, repository.ErrBalanceNotUpdatable)
	assert.Equal(t, "Demo u1", repo.users["u1"].Name, "nothing may be written when balance is present")
}

func TestUpdateUserRejectsInvalidEmail(t *testing.T) {
	svc := newUserService(newStubRepo(demoUser("u1", 100)), newStubCache())

	_, err := svc.UpdateUser(context.Background(), "u1", UpdateUserInput{Email: strptr("not-an-email")})
	assert.ErrorIs(t, err, ErrInvalidEmail)
}

func TestUpdateUserInvalidatesCache(t *testing.T) {
	repo := newStubRepo(demoUser("u1", 100))
	cache := newStubCache()
	cache.entries["u1"] = demoUser("u1", 100)

	svc := newUserService(repo, cache)
	u, err := svc.UpdateUser(context.Background(), "u1", UpdateUserInput{Name: strptr("Renamed")})

	assert.NoError(t, err)
	assert.Equal(t, "Renamed", u.Name)
	assert.Contains(t, cache.invalidated, "u1")
}

func TestUpdateUserUnknownID(t *testing.T) {
	svc := newUserService(newStubRepo(), newStubCache())

	_, err := svc.UpdateUser(context.Background(), "ghost", UpdateUserInput{Name: strptr("x")})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
