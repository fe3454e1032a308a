package entity

import (
	"time"
)

// User is the aggregate root for the user domain. The durable store owns it;
// cache entries are transient, revocable snapshots.
type User struct {
	ID                string
	Name              string
	Email             string
	Address           string
	ProfilePictureURL string
	BankingDetails    *BankingDetails
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// BankingDetails is a value object embedded in User. Balance is mutated only
// through the balance-mutation path, never via generic partial updates.
type BankingDetails struct {
	Agency        string
	AccountNumber string
	Balance       float64
}

// Balance returns the current balance, zero when the user has no banking
// details association.
func (u *User) Balance() float64 {
	if u.BankingDetails == nil {
		return 0
	}
	return u.BankingDetails.Balance
}
