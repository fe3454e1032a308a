package rpc

import (
	"context"
	"encoding/json"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/ledgerpay/user-service/internal/application"
	"github.com/ledgerpay/user-service/internal/domain/entity"
	"github.com/ledgerpay/user-service/internal/domain/repository"
	"github.com/ledgerpay/user-service/internal/infrastructure/rabbitmq"
)

// fakeStore backs the handlers with an in-memory user map. Only the methods
// the queue handlers exercise have real behavior.
type fakeStore struct {
	users     map[string]*entity.User
	transfers []string
}

func newFakeStore(users ...*entity.User) *fakeStore {
	s := &fakeStore{users: map[string]*entity.User{}}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *fakeStore) FindByID(_ context.Context, id string) (*entity.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return u, nil
}

func (s *fakeStore) TransferBalance(_ context.Context, senderID, receiverID string, amount float64) error {
	sender, ok := s.users[senderID]
	if !ok {
		return repository.ErrNotFound
	}
	receiver, ok := s.users[receiverID]
	if !ok {
		return repository.ErrNotFound
	}
	sender.BankingDetails.Balance -= amount
	receiver.BankingDetails.Balance += amount
	s.transfers = append(s.transfers, senderID+"->"+receiverID)
	return nil
}

func (s *fakeStore) Create(context.Context, *entity.User) error { return nil }
func (s *fakeStore) FindByEmail(context.Context, string) (*entity.User, error) {
	return nil, repository.ErrNotFound
}
func (s *fakeStore) List(context.Context, int) ([]*entity.User, error) { return nil, nil }
func (s *fakeStore) UpdatePartial(context.Context, string, repository.UserUpdates) (*entity.User, error) {
	return nil, repository.ErrNotFound
}
func (s *fakeStore) UpdateProfilePicture(context.Context, string, string) (*entity.User, error) {
	return nil, repository.ErrNotFound
}
func (s *fakeStore) UpdateBalance(context.Context, string, float64, repository.BalanceDirection) error {
	return nil
}

var _ repository.UserRepository = (*fakeStore)(nil)

// noopCache always misses so the handlers hit the fake store directly.
type noopCache struct{}

func (noopCache) Get(context.Context, string) (*entity.User, bool, error) { return nil, false, nil }
func (noopCache) Put(context.Context, string, *entity.User) error         { return nil }
func (noopCache) Invalidate(context.Context, string) error                { return nil }

var _ repository.UserCache = noopCache{}

func accountHolder(id string, balance float64) *entity.User {
	return &entity.User{
		ID:    id,
		Name:  "User " + id,
		Email: id + "@example.com",
		BankingDetails: &entity.BankingDetails{
			Agency:        "0001",
			AccountNumber: "12345-6",
			Balance:       balance,
		},
	}
}

func testServices(store *fakeStore) (*application.LookupService, *application.BalanceService) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	lookup := application.NewLookupService(store, noopCache{}, logger)
	balance := application.NewBalanceService(store, noopCache{}, lookup, logger)
	return lookup, balance
}

func testLog() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestValidateUsersMixedBatch(t *testing.T) {
	store := newFakeStore(accountHolder("u1", 100))
	lookup, _ := testServices(store)
	h := NewValidateUsersHandler(lookup, testLog())

	reply, err := h.Handle(context.Background(), []byte(`{"userIds": ["u1", "u2"]}`))
	assert.NoError(t, err)

	resp, ok := reply.(validateUsersResponse)
	if !assert.True(t, ok) {
		return
	}
	assert.False(t, resp.AllValid)
	assert.Equal(t, 2, resp.TotalUsers)
	assert.Equal(t, 1, resp.ValidUsers)
	assert.Equal(t, []userValidationResult{
		{UserID: "u1", Valid: true},
		{UserID: "u2", Valid: false},
	}, resp.Results)
}

func TestValidateUsersAllValid(t *testing.T) {
	store := newFakeStore(accountHolder("u1", 100), accountHolder("u2", 50))
	lookup, _ := testServices(store)
	h := NewValidateUsersHandler(lookup, testLog())

	reply, err := h.Handle(context.Background(), []byte(`{"userIds": ["u1", "u2"]}`))
	assert.NoError(t, err)

	resp := reply.(validateUsersResponse)
	assert.True(t, resp.AllValid)
	assert.Equal(t, 2, resp.ValidUsers)
}

func TestValidateUsersRejectsMalformedPayload(t *testing.T) {
	lookup, _ := testServices(newFakeStore())
	h := NewValidateUsersHandler(lookup, testLog())

	_, err := h.Handle(context.Background(), []byte(`not json`))
	assert.ErrorIs(t, err, rabbitmq.ErrReject)

	_, err = h.Handle(context.Background(), []byte(`{"userIds": []}`))
	assert.ErrorIs(t, err, rabbitmq.ErrReject)
}

func TestCheckBalanceReplyShape(t *testing.T) {
	store := newFakeStore(accountHolder("u1", 1000))
	_, balance := testServices(store)
	h := NewCheckBalanceHandler(balance, testLog())

	reply, err := h.Handle(context.Background(), []byte(`{"senderUserId": "u1", "amount": 500}`))
	assert.NoError(t, err)

	body, err := json.Marshal(reply)
	assert.NoError(t, err)
	assert.JSONEq(t, `{
		"hasSufficientBalance": true,
		"currentBalance": 1000,
		"requiredAmount": 500,
		"senderUserId": "u1",
		"userExists": true,
		"errorMessage": null
	}`, string(body))
}

func TestCheckBalanceUnknownSender(t *testing.T) {
	_, balance := testServices(newFakeStore())
	h := NewCheckBalanceHandler(balance, testLog())

	reply, err := h.Handle(context.Background(), []byte(`{"senderUserId": "ghost", "amount": 500}`))
	assert.NoError(t, err, "an unknown sender is a structured reply, not a handler failure")

	resp := reply.(checkBalanceResponse)
	assert.False(t, resp.UserExists)
	assert.False(t, resp.HasSufficientBalance)
	if assert.NotNil(t, resp.ErrorMessage) {
		assert.Equal(t, "not found", *resp.ErrorMessage)
	}
}

func TestCheckBalanceRejectsInvalidRequest(t *testing.T) {
	_, balance := testServices(newFakeStore())
	h := NewCheckBalanceHandler(balance, testLog())

	for _, payload := range []string{
		`not json`,
		`{"amount": 500}`,
		`{"senderUserId": "u1"}`,
		`{"senderUserId": "u1", "amount": -5}`,
	} {
		_, err := h.Handle(context.Background(), []byte(payload))
		assert.ErrorIs(t, err, rabbitmq.ErrReject, "payload: %s", payload)
	}
}

func TestNewTransactionsAppliesTransfer(t *testing.T) {
	store := newFakeStore(accountHolder("u1", 100), accountHolder("u2", 10))
	_, balance := testServices(store)
	h := NewNewTransactionsHandler(balance, testLog())

	reply, err := h.Handle(context.Background(), []byte(`{"senderid": "u1", "receiverid": "u2", "amount": 25}`))
	assert.NoError(t, err)
	assert.Nil(t, reply, "transaction messages are fire and forget")

	assert.Equal(t, []string{"u1->u2"}, store.transfers)
	assert.Equal(t, 75.0, store.users["u1"].Balance())
	assert.Equal(t, 35.0, store.users["u2"].Balance())
}

func TestNewTransactionsRejectsInvalidRequest(t *testing.T) {
	_, balance := testServices(newFakeStore())
	h := NewNewTransactionsHandler(balance, testLog())

	for _, payload := range []string{
		`not json`,
		`{"receiverid": "u2", "amount": 25}`,
		`{"senderid": "u1", "amount": 25}`,
		`{"senderid": "u1", "receiverid": "u2"}`,
		`{"senderid": "u1", "receiverid": "u2", "amount": 0}`,
	} {
		_, err := h.Handle(context.Background(), []byte(payload))
		assert.ErrorIs(t, err, rabbitmq.ErrReject, "payload: %s", payload)
	}
}

func TestNewTransactionsUnknownPartyFailsHandler(t *testing.T) {
	store := newFakeStore(accountHolder("u1", 100))
	_, balance := testServices(store)
	h := NewNewTransactionsHandler(balance, testLog())

	_, err := h.Handle(context.Background(), []byte(`{"senderid": "u1", "receiverid": "ghost", "amount": 25}`))
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
