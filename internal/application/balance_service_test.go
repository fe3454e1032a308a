package application

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ledgerpay/user-service/internal/domain/repository"
)

func newBalanceService(repo *stubRepo, cache *stubCache) *BalanceService {
	logger := testLogger()
	lookup := NewLookupService(repo, cache, logger)
	return NewBalanceService(repo, cache, lookup, logger)
}

func TestApplyDeltaInvalidatesCache(t *testing.T) {
	repo := newStubRepo(demoUser("u1", 100))
	cache := newStubCache()
	cache.entries["u1"] = demoUser("u1", 100)

	svc := newBalanceService(repo, cache)
	err := svc.ApplyDelta(context.Background(), "u1", 40, repository.Debit)

	assert.NoError(t, err)
	assert.Equal(t, []string{"u1"}, cache.invalidated)
	assert.Equal(t, 60.0, repo.users["u1"].Balance())
}

func TestApplyDeltaInvalidatesEvenWhenStoreFails(t *testing.T) {
	repo := newStubRepo(demoUser("u1", 100))
	repo.balanceErr = errors.New("pg: connection reset")
	cache := newStubCache()
	cache.entries["u1"] = demoUser("u1", 100)

	svc := newBalanceService(repo, cache)
	err := svc.ApplyDelta(context.Background(), "u1", 40, repository.Debit)

	assert.Error(t, err)
	assert.Equal(t, []string{"u1"}, cache.invalidated,
		"the entry must be invalidated even when the store errored")
}

func TestApplyDeltaNoBankingDetails(t *testing.T) {
	u := demoUser("u1", 0)
	u.BankingDetails = nil
	repo := newStubRepo(u)
	cache := newStubCache()

	svc := newBalanceService(repo, cache)
	err := svc.ApplyDelta(context.Background(), "u1", 10, repository.Credit)

	assert.ErrorIs(t, err, repository.ErrNoBankingDetails)
	assert.Equal(t, []string{"u1"}, cache.invalidated)
}

func TestTransferInvalidatesBothParties(t *testing.T) {
	repo := newStubRepo(demoUser("u1", 100), demoUser("u2", 10))
	cache := newStubCache()
	cache.entries["u1"] = demoUser("u1", 100)
	cache.entries["u2"] = demoUser("u2", 10)

	svc := newBalanceService(repo, cache)
	err := svc.Transfer(context.Background(), "u1", "u2", 25)

	assert.NoError(t, err)
	assert.Equal(t, []string{"u1", "u2"}, cache.invalidated)
	assert.Equal(t, 75.0, repo.users["u1"].Balance())
	assert.Equal(t, 35.0, repo.users["u2"].Balance())
}

func TestCheckBalance(t *testing.T) {
	tests := []struct {
		name       string
		balance    float64
		amount     float64
		sufficient bool
	}{
		{name: "sufficient", balance: 1000, amount: 500, sufficient: true},
		{name: "equal is sufficient", balance: 400, amount: 400, sufficient: true},
		{name: "insufficient", balance: 400, amount: 500, sufficient: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			repo := newStubRepo(demoUser("u1", tc.balance))
			svc := newBalanceService(repo, newStubCache())

			check, err := svc.CheckBalance(context.Background(), "u1", tc.amount)

			assert.NoError(t, err)
			assert.True(t, check.UserExists)
			assert.Equal(t, tc.sufficient, check.HasSufficientBalance)
			assert.Equal(t, tc.balance, check.CurrentBalance)
			assert.Equal(t, tc.amount, check.RequiredAmount)
			assert.Empty(t, check.ErrorMessage)
		})
	}
}

func TestCheckBalanceUserMissing(t *testing.T) {
	svc := newBalanceService(newStubRepo(), newStubCache())

	check, err := svc.CheckBalance(context.Background(), "ghost", 500)

	assert.NoError(t, err, "absence is a structured outcome, not an error")
	assert.False(t, check.UserExists)
	assert.False(t, check.HasSufficientBalance)
	assert.Equal(t, 500.0, check.RequiredAmount)
	assert.Equal(t, "ghost", check.UserID)
	assert.Equal(t, "not found", check.ErrorMessage)
}

func TestCheckBalanceBackendErrorPropagates(t *testing.T) {
	cache := newStubCache()
	cache.getErr = errors.New("redis: connection refused")
	svc := newBalanceService(newStubRepo(demoUser("u1", 1000)), cache)

	_, err := svc.CheckBalance(context.Background(), "u1", 500)
	assert.Error(t, err)
}

func TestCheckBalanceNoBankingDetailsMeansZero(t *testing.T) {
	u := demoUser("u1", 0)
	u.BankingDetails = nil
	svc := newBalanceService(newStubRepo(u), newStubCache())

	check, err := svc.CheckBalance(context.Background(), "u1", 50)

	assert.NoError(t, err)
	assert.True(t, check.UserExists)
	assert.False(t, check.HasSufficientBalance)
	assert.Equal(t, 0.0, check.CurrentBalance)
}
