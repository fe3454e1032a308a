package application

import (
	"context"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/ledgerpay/user-service/internal/domain/entity"
	"github.com/ledgerpay/user-service/internal/domain/repository"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// stubRepo serves users from an in-memory map and records balance calls.
type stubRepo struct {
	users map[string]*entity.User

	findCalls    []string
	balanceCalls []balanceCall
	balanceErr   error
	transferErr  error
	transfers    []transferCall
}

type balanceCall struct {
	id     string
	amount float64
	dir    repository.BalanceDirection
}

type transferCall struct {
	senderID   string
	receiverID string
	amount     float64
}

func newStubRepo(users ...*entity.User) *stubRepo {
	r := &stubRepo{users: map[string]*entity.User{}}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *stubRepo) Create(_ context.Context, u *entity.User) error {
	r.users[u.ID] = u
	return nil
}

func (r *stubRepo) FindByID(_ context.Context, id string) (*entity.User, error) {
	r.findCalls = append(r.findCalls, id)
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return u, nil
}

func (r *stubRepo) FindByEmail(_ context.Context, email string) (*entity.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *stubRepo) List(_ context.Context, limit int) ([]*entity.User, error) {
	out := make([]*entity.User, 0, len(r.users))
	for _, u := range r.users {
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, u)
	}
	return out, nil
}

func (r *stubRepo) UpdatePartial(_ context.Context, id string, updates repository.UserUpdates) (*entity.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if updates.Name != nil {
		u.Name = *updates.Name
	}
	if updates.Email != nil {
		u.Email = *updates.Email
	}
	if updates.Address != nil {
		u.Address = *updates.Address
	}
	if updates.ProfilePictureURL != nil {
		u.ProfilePictureURL = *updates.ProfilePictureURL
	}
	return u, nil
}

func (r *stubRepo) UpdateProfilePicture(_ context.Context, id, url string) (*entity.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	u.ProfilePictureURL = url
	return u, nil
}

func (r *stubRepo) UpdateBalance(_ context.Context, id string, amount float64, dir repository.BalanceDirection) error {
	r.balanceCalls = append(r.balanceCalls, balanceCall{id: id, amount: amount, dir: dir})
	if r.balanceErr != nil {
		return r.balanceErr
	}
	u, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	if u.BankingDetails == nil {
		return repository.ErrNoBankingDetails
	}
	if dir == repository.Debit {
		u.BankingDetails.Balance -= amount
	} else {
		u.BankingDetails.Balance += amount
	}
	return nil
}

func (r *stubRepo) TransferBalance(_ context.Context, senderID, receiverID string, amount float64) error {
	r.transfers = append(r.transfers, transferCall{senderID: senderID, receiverID: receiverID, amount: amount})
	if r.transferErr != nil {
		return r.transferErr
	}
	if err := r.UpdateBalance(context.Background(), senderID, amount, repository.Debit); err != nil {
		return err
	}
	return r.UpdateBalance(context.Background(), receiverID, amount, repository.Credit)
}

var _ repository.UserRepository = (*stubRepo)(nil)

// stubCache is an in-memory UserCache with injectable failures.
type stubCache struct {
	entries map[string]*entity.User

	getErr        error
	putErr        error
	invalidateErr error

	puts        []string
	invalidated []string
}

func newStubCache() *stubCache {
	return &stubCache{entries: map[string]*entity.User{}}
}

func (c *stubCache) Get(_ context.Context, id string) (*entity.User, bool, error) {
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	u, ok := c.entries[id]
	return u, ok, nil
}

func (c *stubCache) Put(_ context.Context, id string, u *entity.User) error {
	c.puts = append(c.puts, id)
	if c.putErr != nil {
		return c.putErr
	}
	c.entries[id] = u
	return nil
}

func (c *stubCache) Invalidate(_ context.Context, id string) error {
	c.invalidated = append(c.invalidated, id)
	if c.invalidateErr != nil {
		return c.invalidateErr
	}
	delete(c.entries, id)
	return nil
}

var _ repository.UserCache = (*stubCache)(nil)
