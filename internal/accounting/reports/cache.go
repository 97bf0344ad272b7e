package reports

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const cacheVersionPrefix = "ledger:reports:version:"

const (
	invalidateAttempts = 3
	invalidateBackoff  = 50 * time.Millisecond
)

// Cache wraps Redis based report caching with a version counter per tenant. Bumping the version
// orphans every key built with the previous one; the TTL reclaims them.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	// stale holds tenants whose version bump failed; their reads skip the cache until a bump succeeds.
	stale sync.Map
}

// NewCache instantiates the cache helper. A nil client disables caching.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func versionKey(tenantID uuid.UUID) string {
	return cacheVersionPrefix + tenantID.String()
}

// Version returns the current cache version of the tenant, initialising when missing.
func (c *Cache) Version(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}
	key := versionKey(tenantID)
	ver, err := c.client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		if err := c.client.SetNX(ctx, key, 1, 0).Err(); err != nil {
			return 0, err
		}
		return c.client.Get(ctx, key).Int64()
	}
	if err != nil {
		return 0, err
	}
	return ver, nil
}

// BuildKey composes the cache key with the current tenant version.
func (c *Cache) BuildKey(ctx context.Context, tenantID uuid.UUID, parts ...string) (string, error) {
	joined := strings.Join(append([]string{"ledger", "reports", tenantID.String()}, parts...), ":")
	if c == nil || c.client == nil {
		return joined, nil
	}
	ver, err := c.Version(ctx, tenantID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:%d", joined, ver), nil
}

// FetchJSON loads a cached value or populates it using the loader.
func (c *Cache) FetchJSON(ctx context.Context, key string, dest any, loader func(context.Context) (any, error)) error {
	if loader == nil {
		return errors.New("reports: cache loader required")
	}
	if c == nil || c.client == nil {
		value, err := loader(ctx)
		if err != nil {
			return err
		}
		return roundTrip(value, dest)
	}
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		return json.Unmarshal(payload, dest)
	}
	if !errors.Is(err, redis.Nil) {
		return err
	}
	value, err := loader(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}

// Invalidate bumps the tenant version so later reads recompute. When every attempt fails the
// tenant is marked stale and reads bypass the cache until a later bump goes through.
func (c *Cache) Invalidate(ctx context.Context, tenantID uuid.UUID) error {
	if c == nil || c.client == nil {
		return nil
	}
	var err error
retry:
	for attempt := 1; attempt <= invalidateAttempts; attempt++ {
		if err = c.bump(ctx, tenantID); err == nil {
			return nil
		}
		if attempt == invalidateAttempts {
			break
		}
		select {
		case <-ctx.Done():
			break retry
		case <-time.After(invalidateBackoff * time.Duration(attempt)):
		}
	}
	c.stale.Store(tenantID, struct{}{})
	return fmt.Errorf("reports: invalidate cache of tenant %s: %w", tenantID, err)
}

func (c *Cache) bump(ctx context.Context, tenantID uuid.UUID) error {
	if err := c.client.Incr(ctx, versionKey(tenantID)).Err(); err != nil {
		return err
	}
	c.stale.Delete(tenantID)
	return nil
}

// Usable reports whether cached reports of the tenant can be served. A tenant marked stale
// gets one more bump attempt first.
func (c *Cache) Usable(ctx context.Context, tenantID uuid.UUID) bool {
	if c == nil || c.client == nil {
		return false
	}
	if _, stale := c.stale.Load(tenantID); !stale {
		return true
	}
	return c.bump(ctx, tenantID) == nil
}

func roundTrip(value, dest any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}
