package application

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ledgerpay/user-service/internal/domain/entity"
	"github.com/ledgerpay/user-service/internal/domain/repository"
)

func demoUser(id string, balance float64) *entity.User {
	return &entity.User{
		ID:    id,
		Name:  "Demo " + id,
		Email: id + "@example.com",
		BankingDetails: &entity.BankingDetails{
			Agency:        "0001",
			AccountNumber: "12345-6",
			Balance:       balance,
		},
	}
}

func TestFindUserCacheHit(t *testing.T) {
	repo := newStubRepo()
	cache := newStubCache()
	cache.entries["u1"] = demoUser("u1", 100)

	svc := NewLookupService(repo, cache, testLogger())
	u, err := svc.FindUser(context.Background(), "u1")

	assert.NoError(t, err)
	assert.Equal(t, "u1", u.ID)
	assert.Empty(t, repo.findCalls, "a cache hit must not reach the store")
}

func TestFindUserMissPopulatesCache(t *testing.T) {
	repo := newStubRepo(demoUser("u1", 100))
	cache := newStubCache()

	svc := NewLookupService(repo, cache, testLogger())
	u, err := svc.FindUser(context.Background(), "u1")

	assert.NoError(t, err)
	assert.Equal(t, "u1", u.ID)
	assert.Equal(t, []string{"u1"}, repo.findCalls)
	assert.Equal(t, []string{"u1"}, cache.puts)

	// second read is served from cache
	_, err = svc.FindUser(context.Background(), "u1")
	assert.NoError(t, err)
	assert.Equal(t, []string{"u1"}, repo.findCalls)
}

func TestFindUserNotFound(t *testing.T) {
	svc := NewLookupService(newStubRepo(), newStubCache(), testLogger())

	_, err := svc.FindUser(context.Background(), "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestFindUserCacheBackendErrorFailsClosed(t *testing.T) {
	repo := newStubRepo(demoUser("u1", 100))
	cache := newStubCache()
	cache.getErr = errors.New("redis: connection refused")

	svc := NewLookupService(repo, cache, testLogger())
	_, err := svc.FindUser(context.Background(), "u1")

	assert.Error(t, err)
	assert.Empty(t, repo.findCalls, "a cache backend error must not fall through to the store")
}

func TestFindUserCachePutFailureStillReturnsUser(t *testing.T) {
	repo := newStubRepo(demoUser("u1", 100))
	cache := newStubCache()
	cache.putErr = errors.New("redis: write timeout")

	svc := NewLookupService(repo, cache, testLogger())
	u, err := svc.FindUser(context.Background(), "u1")

	assert.NoError(t, err)
	assert.Equal(t, "u1", u.ID)
}
