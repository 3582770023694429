package identity

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"safestep/pkg/domain"
)

const cacheKeyPrefix = "ec:id:"

// Lookup is what the processor needs from a resolver.
type Lookup interface {
	Attribute() string
	Resolve(ctx context.Context, value string) (domain.ECID, error)
}

// CachedResolver puts a Redis read-through cache in front of a Lookup.
// Contacts are immutable and never deleted, so a cached hit can't go stale;
// misses are never cached because the contact may be created by this batch.
type CachedResolver struct {
	next   Lookup
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedResolver wraps next. Cache failures are logged and fall through to
// next, so Redis is never on the critical path.
func NewCachedResolver(next Lookup, client *redis.Client, ttl time.Duration, logger *zap.Logger) *CachedResolver {
	return &CachedResolver{next: next, client: client, ttl: ttl, logger: logger}
}

func (c *CachedResolver) Attribute() string {
	return c.next.Attribute()
}

func (c *CachedResolver) Resolve(ctx context.Context, value string) (domain.ECID, error) {
	key := c.key(value)

	cached, err := c.client.Get(ctx, key).Result()
	switch {
	case err == nil && cached != "":
		return domain.ECID(cached), nil
	case err != nil && !errors.Is(err, redis.Nil):
		c.logger.Warn("identity cache read failed", zap.String("key", key), zap.Error(err))
	}

	ecid, err := c.next.Resolve(ctx, value)
	if err != nil {
		return "", err
	}
	c.Remember(ctx, value, ecid)
	return ecid, nil
}

// Remember caches an identity. The processor calls it after a commit so the
// next batch resolves newly created contacts without a store round trip.
func (c *CachedResolver) Remember(ctx context.Context, value string, ecid domain.ECID) {
	key := c.key(value)
	if err := c.client.Set(ctx, key, ecid.String(), c.ttl).Err(); err != nil {
		c.logger.Warn("identity cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (c *CachedResolver) key(value string) string {
	attr := c.next.Attribute()
	return cacheKeyPrefix + attr + ":" + Normalize(attr, value)
}
