// File: internal/infra/db/postgres/postgres_code_repo.go
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
var _ repository.CodeRepository = (*codeRepo)(nil)

type codeRepo struct {
	pool *pgxpool.Pool
}

func NewCodeRepo(pool *pgxpool.Pool) repository.CodeRepository {
	return &codeRepo{pool: pool}
}

const codeColumns = `id, value, kind, plan_id, is_active, expires_at, assigned_to, issued_by, created_at`

// Save creates or updates a code. The value carries a unique index; a new
// row colliding on it maps to domain.ErrAlreadyExists so the issuer can
// retry with a fresh value.
func (r *codeRepo) Save(ctx context.Context, tx repository.Tx, code *model.Code) error {
	const q = `
INSERT INTO codes (id, value, kind, plan_id, is_active, expires_at, assigned_to, issued_by, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (id) DO UPDATE SET
  is_active = EXCLUDED.is_active,
  expires_at = EXCLUDED.expires_at,
  assigned_to = EXCLUDED.assigned_to;
`
	_, err := execSQL(ctx, r.pool, tx, q,
		code.ID, code.Value, string(code.Kind), code.PlanID, code.IsActive, code.ExpiresAt, code.AssignedTo, code.IssuedBy, code.CreatedAt,
	)
	if err != nil {
		if isPgErrorCode(err, pgUniqueViolation) {
			return domain.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *codeRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Code, error) {
	const q = `SELECT ` + codeColumns + ` FROM codes WHERE id = $1;`
	return r.queryOne(ctx, tx, q, id)
}

// FindByValue looks the code up by its normalized value, redeemed or not:
// the caller decides what an existing redemption means.
func (r *codeRepo) FindByValue(ctx context.Context, tx repository.Tx, value string) (*model.Code, error) {
	const q = `SELECT ` + codeColumns + ` FROM codes WHERE value = $1;`
	return r.queryOne(ctx, tx, q, value)
}

// Delete hard-deletes a code. The redemptions table holds a RESTRICT
// foreign key, so a referenced code surfaces domain.ErrIntegrityViolation
// instead of silently orphaning its history.
func (r *codeRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	const q = `DELETE FROM codes WHERE id = $1;`
	tag, err := execSQL(ctx, r.pool, tx, q, id)
	if err != nil {
		if isPgErrorCode(err, pgForeignKeyViolation) {
			return domain.ErrIntegrityViolation
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *codeRepo) List(ctx context.Context, tx repository.Tx, limit, offset int) ([]*model.Code, error) {
	const q = `
SELECT ` + codeColumns + `
  FROM codes
 ORDER BY created_at DESC
 LIMIT $1 OFFSET $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Code
	for rows.Next() {
		c, err := scanCode(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func (r *codeRepo) queryOne(ctx context.Context, tx repository.Tx, q string, args ...interface{}) (*model.Code, error) {
	row, err := pickRow(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, err
	}
	c, err := scanCode(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return c, nil
}

func scanCode(row pgx.Row) (*model.Code, error) {
	var c model.Code
	var kind string
	err := row.Scan(&c.ID, &c.Value, &kind, &c.PlanID, &c.IsActive, &c.ExpiresAt, &c.AssignedTo, &c.IssuedBy, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	c.Kind = model.CodeKind(kind)
	return &c, nil
}
