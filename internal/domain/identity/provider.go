package identity

import (
	"context"
	"errors"
	"time"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotConfirmed       = errors.New("account not confirmed")
	ErrCodeMismatch       = errors.New("confirmation code mismatch or expired")
)

// Tokens is the pair issued on a successful sign-in.
type Tokens struct {
	AccessToken        string
	AccessTokenExpiry  time.Time
	RefreshToken       string
	RefreshTokenExpiry time.Time
}

// Provider abstracts the identity backend (sign-up, sign-in and account
// confirmation). The user record itself lives in the user store; the provider
// only owns credentials and confirmation state.
type Provider interface {
	SignUp(ctx context.Context, userID, email, password string) error
	SignIn(ctx context.Context, email, password string) (Tokens, error)
	ConfirmSignUp(ctx context.Context, email, code string) error
	ResendCode(ctx context.Context, email string) error
}
