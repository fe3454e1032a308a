package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ledgerpay/user-service/internal/domain/entity"
	"github.com/ledgerpay/user-service/internal/domain/repository"
)

const userSelect = `
	SELECT u.id, u.name, u.email, COALESCE(u.address, ''), COALESCE(u.profile_picture_url, ''),
	       bd.agency, bd.account_number, bd.balance,
	       u.created_at, u.updated_at
	FROM users u
	LEFT JOIN banking_details bd ON bd.id = u.banking_details_id
`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func scanUser(row pgx.Row) (*entity.User, error) {
	u := &entity.User{}
	var agency, account *string
	var balance *float64
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Address, &u.ProfilePictureURL,
		&agency, &account, &balance, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	if agency != nil && account != nil {
		u.BankingDetails = &entity.BankingDetails{Agency: *agency, AccountNumber: *account}
		if balance != nil {
			u.BankingDetails.Balance = *balance
		}
	}
	return u, nil
}

func (r *UserRepository) Create(ctx context.Context, u *entity.User) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var bdID *string
		if u.BankingDetails != nil {
			var id string
			err := tx.QueryRow(ctx, `
				INSERT INTO banking_details (agency, account_number, balance)
				VALUES ($1, $2, $3)
				RETURNING id
			`, u.BankingDetails.Agency, u.BankingDetails.AccountNumber, u.BankingDetails.Balance).Scan(&id)
			if err != nil {
				return err
			}
			bdID = &id
		}
		row := tx.QueryRow(ctx, `
			INSERT INTO users (name, email, address, profile_picture_url, banking_details_id)
			VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5)
			RETURNING id, created_at, updated_at
		`, u.Name, u.Email, u.Address, u.ProfilePictureURL, bdID)
		return row.Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	})
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*entity.User, error) {
	return scanUser(r.pool.QueryRow(ctx, userSelect+` WHERE u.id = $1`, id))
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	return scanUser(r.pool.QueryRow(ctx, userSelect+` WHERE u.email = $1`, email))
}

func (r *UserRepository) List(ctx context.Context, limit int) ([]*entity.User, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := r.pool.Query(ctx, userSelect+` ORDER BY u.created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]*entity.User, 0, limit)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// UpdatePartial applies only the provided fields. Banking agency/account go to
// the banking_details row when one exists; balance is not reachable from here.
func (r *UserRepository) UpdatePartial(ctx context.Context, id string, updates repository.UserUpdates) (*entity.User, error) {
	sets := make([]string, 0, 4)
	args := []any{id}
	add := func(col string, v *string) {
		if v == nil {
			return
		}
		args = append(args, *v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	add("name", updates.Name)
	add("email", updates.Email)
	add("address", updates.Address)
	add("profile_picture_url", updates.ProfilePictureURL)

	if len(sets) > 0 {
		sets = append(sets, "updated_at = now()")
		res, err := r.pool.Exec(ctx,
			`UPDATE users SET `+strings.Join(sets, ", ")+` WHERE id = $1`, args...)
		if err != nil {
			return nil, err
		}
		if res.RowsAffected() == 0 {
			return nil, repository.ErrNotFound
		}
	}

	if updates.Agency != nil || updates.AccountNumber != nil {
		if err := r.updateBankingInfo(ctx, id, updates.Agency, updates.AccountNumber); err != nil {
			return nil, err
		}
	}
	return r.FindByID(ctx, id)
}

func (r *UserRepository) updateBankingInfo(ctx context.Context, id string, agency, account *string) error {
	bdID, err := r.bankingDetailsID(ctx, id)
	if err != nil {
		return err
	}
	res, err := r.pool.Exec(ctx, `
		UPDATE banking_details
		SET agency = COALESCE($2, agency), account_number = COALESCE($3, account_number), updated_at = now()
		WHERE id = $1
	`, bdID, agency, account)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNoBankingDetails
	}
	return nil
}

func (r *UserRepository) UpdateProfilePicture(ctx context.Context, id, url string) (*entity.User, error) {
	res, err := r.pool.Exec(ctx, `
		UPDATE users SET profile_picture_url = $2, updated_at = $3 WHERE id = $1
	`, id, url, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if res.RowsAffected() == 0 {
		return nil, repository.ErrNotFound
	}
	return r.FindByID(ctx, id)
}

// UpdateBalance applies the signed delta in a single UPDATE so concurrent
// mutations for the same account never lose updates.
func (r *UserRepository) UpdateBalance(ctx context.Context, id string, amount float64, dir repository.BalanceDirection) error {
	bdID, err := r.bankingDetailsID(ctx, id)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		UPDATE banking_details SET balance = balance + $2, updated_at = now() WHERE id = $1
	`, bdID, signedAmount(amount, dir))
	return err
}

// TransferBalance debits sender and credits receiver in one transaction, so a
// failed credit rolls the debit back.
func (r *UserRepository) TransferBalance(ctx context.Context, senderID, receiverID string, amount float64) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := applyBalanceTx(ctx, tx, senderID, amount, repository.Debit); err != nil {
			return fmt.Errorf("debit sender %s: %w", senderID, err)
		}
		if err := applyBalanceTx(ctx, tx, receiverID, amount, repository.Credit); err != nil {
			return fmt.Errorf("credit receiver %s: %w", receiverID, err)
		}
		return nil
	})
}

func applyBalanceTx(ctx context.Context, tx pgx.Tx, id string, amount float64, dir repository.BalanceDirection) error {
	var bdID *string
	if err := tx.QueryRow(ctx, `SELECT banking_details_id FROM users WHERE id = $1`, id).Scan(&bdID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repository.ErrNotFound
		}
		return err
	}
	if bdID == nil {
		return repository.ErrNoBankingDetails
	}
	_, err := tx.Exec(ctx, `
		UPDATE banking_details SET balance = balance + $2, updated_at = now() WHERE id = $1
	`, *bdID, signedAmount(amount, dir))
	return err
}

func (r *UserRepository) bankingDetailsID(ctx context.Context, id string) (string, error) {
	var bdID *string
	if err := r.pool.QueryRow(ctx, `SELECT banking_details_id FROM users WHERE id = $1`, id).Scan(&bdID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", repository.ErrNotFound
		}
		return "", err
	}
	if bdID == nil {
		return "", repository.ErrNoBankingDetails
	}
	return *bdID, nil
}

func signedAmount(amount float64, dir repository.BalanceDirection) float64 {
	if dir == repository.Debit {
		return -amount
	}
	return amount
}

var _ repository.UserRepository = (*UserRepository)(nil)
