package worker

import (
	"context"

	"elearn-entitlements/internal/domain/model"
	"elearn-entitlements/internal/domain/ports/repository"

	"github.com/rs/zerolog"
)

var _ repository.EntitlementCache = (*AsyncCache)(nil)

// AsyncCache decorates an EntitlementCache so writes run on the pool
// instead of the request goroutine. Reads stay synchronous: a read that
// cannot be answered now has no value later. Fine for the snapshot cache
// because the store already committed the truth before any write lands
// here; a dropped task only delays the refresh until the next read.
type AsyncCache struct {
	inner repository.EntitlementCache
	pool  *Pool
	log   *zerolog.Logger
}

func NewAsyncCache(inner repository.EntitlementCache, pool *Pool, logger *zerolog.Logger) *AsyncCache {
	l := logger.With().Str("component", "AsyncCache").Logger()
	return &AsyncCache{inner: inner, pool: pool, log: &l}
}

func (c *AsyncCache) Store(ctx context.Context, e *model.Entitlement) error {
	snapshot := *e
	err := c.pool.Submit(func(ctx context.Context) error {
		return c.inner.Store(ctx, &snapshot)
	})
	if err != nil {
		c.log.Warn().Err(err).Str("account_id", e.AccountID).Msg("cache store not queued")
	}
	return nil
}

func (c *AsyncCache) Get(ctx context.Context, accountID string) (*model.Entitlement, error) {
	return c.inner.Get(ctx, accountID)
}

func (c *AsyncCache) Invalidate(ctx context.Context, accountID string) error {
	err := c.pool.Submit(func(ctx context.Context) error {
		return c.inner.Invalidate(ctx, accountID)
	})
	if err != nil {
		c.log.Warn().Err(err).Str("account_id", accountID).Msg("cache invalidate not queued")
	}
	return nil
}
