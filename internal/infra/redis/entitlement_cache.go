package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"elearn-entitlements/internal/domain"
	"elearn-entitlements/internal/domain/model"
	"elearn-entitlements/internal/domain/ports/repository"
	"elearn-entitlements/internal/infra/metrics"

	"github.com/go-redis/redis/v8"
)

// ChangedChannel carries a pub/sub message with the account ID whenever a
// snapshot changes, so connected clients can refetch instead of polling.
const ChangedChannel = "entitlements.changed"

var _ repository.EntitlementCache = (*EntitlementCache)(nil)

// EntitlementCache keeps the latest entitlement snapshot per account as a
// JSON value. It is a read optimization only: the snapshot carries its
// synced_at marker and the Postgres row stays authoritative.
type EntitlementCache struct {
	client RedisClient
	ttl    time.Duration
}

func NewEntitlementCache(client RedisClient, ttl time.Duration) *EntitlementCache {
	return &EntitlementCache{client: client, ttl: ttl}
}

func entitlementKey(accountID string) string {
	return "entitlement:" + accountID
}

// Store writes the snapshot and publishes the change signal.
func (c *EntitlementCache) Store(ctx context.Context, e *model.Entitlement) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, entitlementKey(e.AccountID), data, c.ttl); err != nil {
		return err
	}
	return c.client.Publish(ctx, ChangedChannel, e.AccountID)
}

func (c *EntitlementCache) Get(ctx context.Context, accountID string) (*model.Entitlement, error) {
	data, err := c.client.Get(ctx, entitlementKey(accountID))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			metrics.IncCacheRequest("entitlement", "miss")
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	var e model.Entitlement
	if err := json.Unmarshal([]byte(data), &e); err != nil {
		return nil, err
	}
	metrics.IncCacheRequest("entitlement", "hit")
	return &e, nil
}

// Invalidate drops the snapshot and still signals the change: a missing
// key downstream means refetch.
func (c *EntitlementCache) Invalidate(ctx context.Context, accountID string) error {
	if err := c.client.Del(ctx, entitlementKey(accountID)); err != nil {
		return err
	}
	return c.client.Publish(ctx, ChangedChannel, accountID)
}
