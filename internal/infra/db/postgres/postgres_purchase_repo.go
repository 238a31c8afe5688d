package postgres

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"elearn-entitlements/internal/domain"
	"elearn-entitlements/internal/domain/model"
	"elearn-entitlements/internal/domain/ports/repository"
)

// Ensure implementation satisfies the interface.
var _ repository.PurchaseRepository = (*purchaseRepo)(nil)

type purchaseRepo struct {
	pool *pgxpool.Pool
}

func NewPurchaseRepo(pool *pgxpool.Pool) repository.PurchaseRepository {
	return &purchaseRepo{pool: pool}
}

// Upsert keys on (account_id, plan_id): the provider's latest word on a
// plan replaces its previous one.
func (r *purchaseRepo) Upsert(ctx context.Context, tx repository.Tx, p *model.Purchase) error {
	const q = `
INSERT INTO purchases (id, account_id, plan_id, status, expires_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (account_id, plan_id) DO UPDATE SET
  status = EXCLUDED.status,
  expires_at = EXCLUDED.expires_at,
  updated_at = EXCLUDED.updated_at;
`
	_, err := execSQL(ctx, r.pool, tx, q, p.ID, p.AccountID, p.PlanID, string(p.Status), p.ExpiresAt, p.UpdatedAt)
	return err
}

func (r *purchaseRepo) ListByAccount(ctx context.Context, tx repository.Tx, accountID string) ([]*model.Purchase, error) {
	const q = `
SELECT id, account_id, plan_id, status, expires_at, updated_at
  FROM purchases
 WHERE account_id = $1
 ORDER BY updated_at DESC;`
	rows, err := queryRows(ctx, r.pool, tx, q, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Purchase
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func scanPurchase(row pgx.Row) (*model.Purchase, error) {
	var p model.Purchase
	var status string
	err := row.Scan(&p.ID, &p.AccountID, &p.PlanID, &status, &p.ExpiresAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Status = model.PurchaseStatus(status)
	return &p, nil
}
