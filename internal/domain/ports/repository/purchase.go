package repository

import (
	"context"

	"elearn-entitlements/internal/domain/model"
)

// PurchaseRepository is the port for provider-reported subscriptions.
type PurchaseRepository interface {
	// Upsert stores the provider's latest word on (account, plan).
	Upsert(ctx context.Context, tx Tx, p *model.Purchase) error
	ListByAccount(ctx context.Context, tx Tx, accountID string) ([]*model.Purchase, error)
}
