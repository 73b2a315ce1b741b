// Package rolecache keeps registered roles in Redis so role checks on hot
// paths skip the database. A role never changes after registration, so
// entries are never invalidated; the TTL only bounds memory.
package rolecache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"recordshare/internal/registry/models"
	id "recordshare/pkg/domain"
)

const (
	// Redis key prefix for cached roles
	roleKeyPrefix = "recordshare:role:"

	defaultTTL = 24 * time.Hour
)

// RedisCache is a Redis-backed service.RoleCache.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// Option configures a RedisCache instance.
type Option func(*RedisCache)

// WithTTL sets the entry lifetime. Non-positive values keep the default.
func WithTTL(ttl time.Duration) Option {
	return func(c *RedisCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// New constructs a Redis-backed role cache.
func New(client *redis.Client, opts ...Option) *RedisCache {
	c := &RedisCache{
		client: client,
		ttl:    defaultTTL,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Get returns the cached role. A miss is (RoleUnregistered, false, nil).
func (c *RedisCache) Get(ctx context.Context, address id.Address) (models.Role, bool, error) {
	val, err := c.client.Get(ctx, roleKeyPrefix+address.String()).Result()
	if errors.Is(err, redis.Nil) {
		return models.RoleUnregistered, false, nil
	}
	if err != nil {
		return models.RoleUnregistered, false, err
	}
	code, err := strconv.Atoi(val)
	if err != nil {
		return models.RoleUnregistered, false, fmt.Errorf("cached role %q: %w", val, err)
	}
	role, ok := models.RoleFromCode(code)
	if !ok || role == models.RoleUnregistered {
		return models.RoleUnregistered, false, fmt.Errorf("cached role %d is not a registered role", code)
	}
	return role, true, nil
}

// Set stores a registered role. Unregistered is refused: caching it would
// hide a later registration.
func (c *RedisCache) Set(ctx context.Context, address id.Address, role models.Role) error {
	if !role.Registrable() {
		return fmt.Errorf("refusing to cache role %s", role)
	}
	return c.client.Set(ctx, roleKeyPrefix+address.String(), strconv.Itoa(int(role)), c.ttl).Err()
}
