package repository

import (
	"context"
	"errors"

	"github.com/ledgerpay/user-service/internal/domain/entity"
)

var (
	// ErrNotFound is returned when the requested user does not exist in the
	// durable store.
	ErrNotFound = errors.New("user not found")
	// ErrNoBankingDetails is returned by balance mutations when the user has
	// no banking-details association. Must not be retried blindly.
	ErrNoBankingDetails = errors.New("user has no banking details")
	// ErrBalanceNotUpdatable rejects any generic partial update that tries to
	// set the balance directly.
	ErrBalanceNotUpdatable = errors.New("balance cannot be set through a partial update")
)

// BalanceDirection selects the sign of a balance delta.
type BalanceDirection string

const (
	Credit BalanceDirection = "credit"
	Debit  BalanceDirection = "debit"
)

// UserUpdates carries the fields a partial update may touch. Nil means leave
// unchanged. Balance is deliberately absent.
type UserUpdates struct {
	Name              *string
	Email             *string
	Address           *string
	ProfilePictureURL *string
	Agency            *string
	AccountNumber     *string
}

// UserRepository is the narrow gateway over the durable user store.
// Balance mutations are atomic at the storage layer: implementations must
// apply the delta in a single statement, never read-modify-write.
type UserRepository interface {
	Create(ctx context.Context, u *entity.User) error
	FindByID(ctx context.Context, id string) (*entity.User, error)
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	List(ctx context.Context, limit int) ([]*entity.User, error)
	UpdatePartial(ctx context.Context, id string, updates UserUpdates) (*entity.User, error)
	UpdateProfilePicture(ctx context.Context, id, url string) (*entity.User, error)
	UpdateBalance(ctx context.Context, id string, amount float64, dir BalanceDirection) error
	// TransferBalance debits sender and credits receiver inside a single
	// store-level transaction.
	TransferBalance(ctx context.Context, senderID, receiverID string, amount float64) error
}

// UserCache is the cache-aside layer in front of the gateway. Get reports a
// miss as found=false; backend errors are surfaced distinctly so callers can
// decide policy (this service fails closed). Invalidate is idempotent.
type UserCache interface {
	Get(ctx context.Context, id string) (u *entity.User, found bool, err error)
	Put(ctx context.Context, id string, u *entity.User) error
	Invalidate(ctx context.Context, id string) error
}
