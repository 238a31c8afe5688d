package repository

import (
	"context"
	"time"

	"elearn-entitlements/internal/domain/model"
)

// EntitlementRepository is the port for the persisted entitlement snapshot.
// The snapshot is a read optimization; the synchronizer is the only writer.
type EntitlementRepository interface {
	Save(ctx context.Context, tx Tx, e *model.Entitlement) error
	// FindByAccount returns domain.ErrNotFound when no snapshot exists yet.
	FindByAccount(ctx context.Context, tx Tx, accountID string) (*model.Entitlement, error)
	// ListExpiredActive returns accounts whose snapshot still claims an
	// active subscription past its expiry; the sweep worker downgrades
	// them.
	ListExpiredActive(ctx context.Context, tx Tx, now time.Time, limit int) ([]string, error)
	Delete(ctx context.Context, tx Tx, accountID string) error
}

// EntitlementCache is the client-facing key-value read surface. Every
// entitlement-affecting operation stores a fresh snapshot and signals the
// change so downstream caches can refresh; the cache is never the arbiter
// of an access decision.
type EntitlementCache interface {
	Store(ctx context.Context, e *model.Entitlement) error
	Get(ctx context.Context, accountID string) (*model.Entitlement, error)
	Invalidate(ctx context.Context, accountID string) error
}
