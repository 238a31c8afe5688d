package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"elearn-entitlements/internal/domain"
	"elearn-entitlements/internal/domain/model"
	"elearn-entitlements/internal/domain/ports/repository"
)

// Ensure implementation satisfies the interface.
var _ repository.AccountRepository = (*accountRepo)(nil)

type accountRepo struct {
	pool *pgxpool.Pool
}

func NewAccountRepo(pool *pgxpool.Pool) repository.AccountRepository {
	return &accountRepo{pool: pool}
}

func (r *accountRepo) Save(ctx context.Context, tx repository.Tx, a *model.Account) error {
	const q = `
INSERT INTO accounts (id, email, display_name, is_suspended, suspended_at, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO UPDATE SET
  display_name = EXCLUDED.display_name,
  is_suspended = EXCLUDED.is_suspended,
  suspended_at = EXCLUDED.suspended_at;
`
	_, err := execSQL(ctx, r.pool, tx, q,
		a.ID, a.Email, a.DisplayName, a.IsSuspended, a.SuspendedAt, a.CreatedAt,
	)
	if err != nil {
		if isPgErrorCode(err, pgUniqueViolation) {
			return domain.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *accountRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Account, error) {
	const q = `
SELECT id, email, display_name, is_suspended, suspended_at, created_at
  FROM accounts
 WHERE id = $1;`
	return r.queryOne(ctx, tx, q, id)
}

func (r *accountRepo) FindByEmail(ctx context.Context, tx repository.Tx, email string) (*model.Account, error) {
	const q = `
SELECT id, email, display_name, is_suspended, suspended_at, created_at
  FROM accounts
 WHERE email = $1;`
	return r.queryOne(ctx, tx, q, email)
}

// DeleteCascade removes the account together with its account-scoped
// dependents. Redemption rows reference the account without a cascading
// key: they stay behind as audit history.
func (r *accountRepo) DeleteCascade(ctx context.Context, tx repository.Tx, id string) error {
	statements := []string{
		`DELETE FROM notes WHERE account_id = $1;`,
		`DELETE FROM notification_reads WHERE account_id = $1;`,
		`DELETE FROM quiz_attempts WHERE account_id = $1;`,
		`DELETE FROM purchases WHERE account_id = $1;`,
		`DELETE FROM entitlements WHERE account_id = $1;`,
		`DELETE FROM accounts WHERE id = $1;`,
	}
	for i, q := range statements {
		tag, err := execSQL(ctx, r.pool, tx, q, id)
		if err != nil {
			return err
		}
		// Only the final statement decides existence.
		if i == len(statements)-1 && tag.RowsAffected() == 0 {
			return domain.ErrNotFound
		}
	}
	return nil
}

func (r *accountRepo) queryOne(ctx context.Context, tx repository.Tx, q string, args ...interface{}) (*model.Account, error) {
	row, err := pickRow(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, err
	}
	var a model.Account
	err = row.Scan(&a.ID, &a.Email, &a.DisplayName, &a.IsSuspended, &a.SuspendedAt, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return &a, nil
}
