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
var _ repository.RedemptionRepository = (*redemptionRepo)(nil)

type redemptionRepo struct {
	pool *pgxpool.Pool
}

func NewRedemptionRepo(pool *pgxpool.Pool) repository.RedemptionRepository {
	return &redemptionRepo{pool: pool}
}

// Insert appends a redemption row. Two unique indexes back the
// exactly-once guarantee: a partial index on (code_id) WHERE single_use
// admits at most one row per single-use code, and a plain index on
// (code_id, account_id) deduplicates master redemptions. ON CONFLICT DO
// NOTHING keeps a losing transaction usable, so the caller can re-read and
// answer with the precise rejection instead of a serialization failure.
func (r *redemptionRepo) Insert(ctx context.Context, tx repository.Tx, red *model.Redemption) error {
	const q = `
INSERT INTO redemptions (id, code_id, account_id, context, single_use, redeemed_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT DO NOTHING;
`
	tag, err := execSQL(ctx, r.pool, tx, q,
		red.ID, red.CodeID, red.AccountID, string(red.Context), red.SingleUse, red.RedeemedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrConcurrentConflict
	}
	return nil
}

func (r *redemptionRepo) CountByCode(ctx context.Context, tx repository.Tx, codeID string) (int, error) {
	const q = `SELECT COUNT(*) FROM redemptions WHERE code_id = $1;`
	row, err := pickRow(ctx, r.pool, tx, q, codeID)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return n, nil
}

func (r *redemptionRepo) FindByCodeAndAccount(ctx context.Context, tx repository.Tx, codeID, accountID string) (*model.Redemption, error) {
	const q = `
SELECT id, code_id, account_id, context, single_use, redeemed_at
  FROM redemptions
 WHERE code_id = $1 AND account_id = $2;`
	row, err := pickRow(ctx, r.pool, tx, q, codeID, accountID)
	if err != nil {
		return nil, err
	}
	red, err := scanRedemption(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return red, nil
}

func (r *redemptionRepo) ListByAccount(ctx context.Context, tx repository.Tx, accountID string) ([]*model.Redemption, error) {
	const q = `
SELECT id, code_id, account_id, context, single_use, redeemed_at
  FROM redemptions
 WHERE account_id = $1
 ORDER BY redeemed_at ASC;`
	rows, err := queryRows(ctx, r.pool, tx, q, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Redemption
	for rows.Next() {
		red, err := scanRedemption(rows)
		if err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, red)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func (r *redemptionRepo) ListAccountsByCode(ctx context.Context, tx repository.Tx, codeID string) ([]string, error) {
	const q = `SELECT DISTINCT account_id FROM redemptions WHERE code_id = $1;`
	rows, err := queryRows(ctx, r.pool, tx, q, codeID)
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

func scanRedemption(row pgx.Row) (*model.Redemption, error) {
	var red model.Redemption
	var rctx string
	err := row.Scan(&red.ID, &red.CodeID, &red.AccountID, &rctx, &red.SingleUse, &red.RedeemedAt)
	if err != nil {
		return nil, err
	}
	red.Context = model.RedemptionContext(rctx)
	return &red, nil
}
