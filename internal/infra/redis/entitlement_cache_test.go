//go:build !integration

package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"elearn-entitlements/internal/domain"
	"elearn-entitlements/internal/domain/model"

	goredis "github.com/go-redis/redis/v8"
)

type fakeRedis struct {
	values    map[string]string
	published map[string][]string
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{values: map[string]string{}, published: map[string][]string{}}
}

func (f *fakeRedis) Ping(ctx context.Context) error { return nil }

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	f.values[key] = string(value.([]byte))
	return nil
}

func (f *fakeRedis) Get(ctx context.Context, key string) (string, error) {
	v, ok := f.values[key]
	if !ok {
		return "", goredis.Nil
	}
	return v, nil
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		delete(f.values, k)
	}
	return nil
}

func (f *fakeRedis) Publish(ctx context.Context, channel string, payload interface{}) error {
	f.published[channel] = append(f.published[channel], payload.(string))
	return nil
}

func (f *fakeRedis) FlushDB(ctx context.Context) error { return nil }
func (f *fakeRedis) Close() error                      { return nil }

func TestEntitlementCache(t *testing.T) {
	ctx := context.Background()
	fr := newFakeRedis()
	cache := NewEntitlementCache(fr, time.Hour)

	expires := time.Now().Add(24 * time.Hour).UTC()
	ent := model.NewEntitlement("acct-1", time.Now().UTC())
	ent.HasInstructorAccess = true
	ent.Subscription = model.SubscriptionGrant{Active: true, ExpiresAt: &expires}

	t.Run("store, get, invalidate round trip", func(t *testing.T) {
		if err := cache.Store(ctx, ent); err != nil {
			t.Fatalf("Store failed: %v", err)
		}
		got, err := cache.Get(ctx, "acct-1")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if !got.HasInstructorAccess || !got.Subscription.Active {
			t.Errorf("snapshot mangled: %+v", got)
		}
		if !got.Subscription.ExpiresAt.Equal(expires) {
			t.Errorf("expiry mangled: %v", got.Subscription.ExpiresAt)
		}

		if err := cache.Invalidate(ctx, "acct-1"); err != nil {
			t.Fatalf("Invalidate failed: %v", err)
		}
		if _, err := cache.Get(ctx, "acct-1"); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("every change publishes the signal", func(t *testing.T) {
		if got := len(fr.published[ChangedChannel]); got != 2 {
			t.Errorf("expected 2 change signals, got %d", got)
		}
		for _, accountID := range fr.published[ChangedChannel] {
			if accountID != "acct-1" {
				t.Errorf("unexpected payload %q", accountID)
			}
		}
	})

	t.Run("missing account is ErrNotFound", func(t *testing.T) {
		if _, err := cache.Get(ctx, "nobody"); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}
