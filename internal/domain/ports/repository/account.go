package repository

import (
	"context"

	"elearn-entitlements/internal/domain/model"
)

// AccountRepository is the port for platform accounts.
type AccountRepository interface {
	Save(ctx context.Context, tx Tx, a *model.Account) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Account, error)
	FindByEmail(ctx context.Context, tx Tx, email string) (*model.Account, error)
	// DeleteCascade permanently removes the account together with its
	// account-scoped dependents (notes, notification read-state, quiz
	// attempts, entitlement snapshot, purchases). Redemption rows survive
	// as audit history.
	DeleteCascade(ctx context.Context, tx Tx, id string) error
}
