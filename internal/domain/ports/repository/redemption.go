package repository

import (
	"context"

	"elearn-entitlements/internal/domain/model"
)

// RedemptionRepository is the port for the append-only redemption history.
type RedemptionRepository interface {
	// Insert appends a redemption. The store enforces exactly-once: a
	// second single-use redemption of the same code, or a duplicate
	// (code, account) pair, fails with domain.ErrConcurrentConflict.
	Insert(ctx context.Context, tx Tx, r *model.Redemption) error
	// CountByCode reports how many redemptions reference the code.
	CountByCode(ctx context.Context, tx Tx, codeID string) (int, error)
	// FindByCodeAndAccount returns domain.ErrNotFound when the account has
	// not redeemed the code.
	FindByCodeAndAccount(ctx context.Context, tx Tx, codeID, accountID string) (*model.Redemption, error)
	// ListByAccount returns the account's redemptions, oldest first.
	ListByAccount(ctx context.Context, tx Tx, accountID string) ([]*model.Redemption, error)
	// ListAccountsByCode returns the distinct accounts holding a
	// redemption of the code; the deactivation cascade walks this set.
	ListAccountsByCode(ctx context.Context, tx Tx, codeID string) ([]string, error)
}
