package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"elearn-entitlements/internal/domain"
	"elearn-entitlements/internal/domain/model"
	"elearn-entitlements/internal/domain/ports/repository"
)

// Ensure implementation satisfies the interface.
var _ repository.EntitlementRepository = (*entitlementRepo)(nil)

type entitlementRepo struct {
	pool *pgxpool.Pool
}

func NewEntitlementRepo(pool *pgxpool.Pool) repository.EntitlementRepository {
	return &entitlementRepo{pool: pool}
}

func (r *entitlementRepo) Save(ctx context.Context, tx repository.Tx, e *model.Entitlement) error {
	const q = `
INSERT INTO entitlements (
  account_id, has_instructor_access, sub_active, sub_plan_id, sub_expires_at, code_deactivated, synced_at
) VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (account_id) DO UPDATE SET
  has_instructor_access = EXCLUDED.has_instructor_access,
  sub_active = EXCLUDED.sub_active,
  sub_plan_id = EXCLUDED.sub_plan_id,
  sub_expires_at = EXCLUDED.sub_expires_at,
  code_deactivated = EXCLUDED.code_deactivated,
  synced_at = EXCLUDED.synced_at;
`
	_, err := execSQL(ctx, r.pool, tx, q,
		e.AccountID, e.HasInstructorAccess, e.Subscription.Active, e.Subscription.PlanID, e.Subscription.ExpiresAt, e.CodeDeactivated, e.SyncedAt,
	)
	return err
}

func (r *entitlementRepo) FindByAccount(ctx context.Context, tx repository.Tx, accountID string) (*model.Entitlement, error) {
	const q = `
SELECT account_id, has_instructor_access, sub_active, sub_plan_id, sub_expires_at, code_deactivated, synced_at
  FROM entitlements
 WHERE account_id = $1;`
	row, err := pickRow(ctx, r.pool, tx, q, accountID)
	if err != nil {
		return nil, err
	}

	var e model.Entitlement
	err = row.Scan(
		&e.AccountID, &e.HasInstructorAccess, &e.Subscription.Active, &e.Subscription.PlanID, &e.Subscription.ExpiresAt, &e.CodeDeactivated, &e.SyncedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return &e, nil
}

func (r *entitlementRepo) ListExpiredActive(ctx context.Context, tx repository.Tx, now time.Time, limit int) ([]string, error) {
	const q = `
SELECT account_id
  FROM entitlements
 WHERE sub_active = TRUE
   AND sub_expires_at IS NOT NULL
   AND sub_expires_at <= $1
 ORDER BY sub_expires_at ASC
 LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var accountID string
		if err := rows.Scan(&accountID); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, accountID)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func (r *entitlementRepo) Delete(ctx context.Context, tx repository.Tx, accountID string) error {
	const q = `DELETE FROM entitlements WHERE account_id = $1;`
	_, err := execSQL(ctx, r.pool, tx, q, accountID)
	return err
}
