package identity

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/ledgerpay/user-service/internal/domain/identity"
	"github.com/ledgerpay/user-service/pkg/helpers"
	"github.com/ledgerpay/user-service/pkg/mailer"
)

const codeTTL = 15 * time.Minute

func codeKey(email string) string { return "signup:code:" + email }

// LocalProvider implements the identity boundary with bcrypt credentials in
// Postgres, confirmation codes in Redis and confirmation emails enqueued to
// RabbitMQ.
type LocalProvider struct {
	DB     *pgxpool.Pool
	RDB    *redis.Client
	JWT    *helpers.JWTManager
	Pub    *helpers.RabbitPublisher
	Logger *logrus.Logger
}

func NewLocalProvider(db *pgxpool.Pool, rdb *redis.Client, jwt *helpers.JWTManager, pub *helpers.RabbitPublisher, logger *logrus.Logger) *LocalProvider {
	return &LocalProvider{DB: db, RDB: rdb, JWT: jwt, Pub: pub, Logger: logger}
}

func (p *LocalProvider) SignUp(ctx context.Context, userID, email, password string) error {
	hash, err := helpers.HashPassword(password)
	if err != nil {
		return err
	}
	if _, err := p.DB.Exec(ctx, `
		INSERT INTO credentials (user_id, email, password_hash) VALUES ($1, $2, $3)
	`, userID, email, hash); err != nil {
		return err
	}
	return p.sendCode(ctx, email)
}

func (p *LocalProvider) SignIn(ctx context.Context, email, password string) (identity.Tokens, error) {
	var userID, hash string
	var confirmed bool
	err := p.DB.QueryRow(ctx, `
		SELECT user_id, password_hash, confirmed FROM credentials WHERE email = $1
	`, email).Scan(&userID, &hash, &confirmed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return identity.Tokens{}, identity.ErrInvalidCredentials
		}
		return identity.Tokens{}, err
	}
	if !helpers.CompareHashAndPassword(hash, password) {
		return identity.Tokens{}, identity.ErrInvalidCredentials
	}
	if !confirmed {
		return identity.Tokens{}, identity.ErrNotConfirmed
	}

	access, aexp, err := p.JWT.GenerateAccessToken(userID)
	if err != nil {
		return identity.Tokens{}, err
	}
	refresh, rexp, err := p.JWT.GenerateRefreshToken(userID)
	if err != nil {
		return identity.Tokens{}, err
	}
	return identity.Tokens{
		AccessToken:        access,
		AccessTokenExpiry:  aexp,
		RefreshToken:       refresh,
		RefreshTokenExpiry: rexp,
	}, nil
}

func (p *LocalProvider) ConfirmSignUp(ctx context.Context, email, code string) error {
	stored, err := p.RDB.Get(ctx, codeKey(email)).Result()
	if errors.Is(err, redis.Nil) {
		return identity.ErrCodeMismatch
	}
	if err != nil {
		return err
	}
	if stored != code {
		return identity.ErrCodeMismatch
	}
	if _, err := p.DB.Exec(ctx, `
		UPDATE credentials SET confirmed = TRUE, updated_at = now() WHERE email = $1
	`, email); err != nil {
		return err
	}
	return p.RDB.Del(ctx, codeKey(email)).Err()
}

func (p *LocalProvider) ResendCode(ctx context.Context, email string) error {
	var confirmed bool
	err := p.DB.QueryRow(ctx, `SELECT confirmed FROM credentials WHERE email = $1`, email).Scan(&confirmed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return identity.ErrInvalidCredentials
		}
		return err
	}
	if confirmed {
		return nil
	}
	return p.sendCode(ctx, email)
}

func (p *LocalProvider) sendCode(ctx context.Context, email string) error {
	code, err := helpers.GenOTPCode()
	if err != nil {
		return err
	}
	if err := p.RDB.Set(ctx, codeKey(email), code, codeTTL).Err(); err != nil {
		return err
	}
	if p.Pub != nil {
		job := mailer.EmailJob{
			To:       email,
			Template: mailer.TemplateConfirmationCode,
			Data:     map[string]any{"Code": code, "ExpiresInMinutes": int(codeTTL.Minutes())},
		}
		if err := p.Pub.PublishJSON(ctx, job); err != nil && p.Logger != nil {
			p.Logger.WithError(err).WithField("email", email).Warn("confirmation email enqueue failed")
		}
	}
	return nil
}

var _ identity.Provider = (*LocalProvider)(nil)
