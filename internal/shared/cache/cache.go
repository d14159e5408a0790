package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	DropdownOptionsKey = "dropdown_options"
	InventoryListKey   = "inventory_list"
)

func RelatedOptionsKey(productID string) string { return "related_options:" + productID }
func RevisionHistoryKey(batchID string) string  { return "revision_history:" + batchID }
func BatchEmailSentKey(batchID string) string   { return "batch_email_sent:" + batchID }

// TTLs per key family
type TTLs struct {
	Dropdown   time.Duration
	Related    time.Duration
	Revision   time.Duration
	Inventory  time.Duration
	EmailDedup time.Duration
}

func DefaultTTLs() TTLs {
	return TTLs{
		Dropdown:   15 * time.Minute,
		Related:    30 * time.Minute,
		Revision:   5 * time.Minute,
		Inventory:  5 * time.Minute,
		EmailDedup: time.Second,
	}
}

// Merge keeps defaults for zero overrides.
func (t TTLs) Merge(o TTLs) TTLs {
	if o.Dropdown > 0 {
		t.Dropdown = o.Dropdown
	}
	if o.Related > 0 {
		t.Related = o.Related
	}
	if o.Revision > 0 {
		t.Revision = o.Revision
	}
	if o.Inventory > 0 {
		t.Inventory = o.Inventory
	}
	if o.EmailDedup > 0 {
		t.EmailDedup = o.EmailDedup
	}
	return t
}

// Cache is a read-through JSON cache over redis. A nil client turns every
// read into a miss and every write into a no-op, the database stays the
// source of truth either way.
type Cache struct {
	rdb    *redis.Client
	logger *zap.Logger
	TTL    TTLs
}

func New(rdb *redis.Client, logger *zap.Logger, ttl TTLs) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{rdb: rdb, logger: logger, TTL: ttl}
}

func (c *Cache) enabled() bool { return c != nil && c.rdb != nil }

// Get decodes key into dst and reports a hit.
func (c *Cache) Get(ctx context.Context, key string, dst interface{}) bool {
	if !c.enabled() {
		return false
	}
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		c.logger.Warn("cache decode failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (c *Cache) Set(ctx context.Context, key string, v interface{}, ttl time.Duration) {
	if !c.enabled() {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		c.logger.Warn("cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.rdb.Set(ctx, key, data, ttl).Err(); err != nil {
		c.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
}

// Invalidate drops keys; failures are logged only.
func (c *Cache) Invalidate(ctx context.Context, keys ...string) {
	if !c.enabled() || len(keys) == 0 {
		return
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn("cache invalidate failed", zap.Strings("keys", keys), zap.Error(err))
	}
}

// Once reports true for the first caller of key within ttl.
// Without redis every call is first.
func (c *Cache) Once(ctx context.Context, key string, ttl time.Duration) bool {
	if !c.enabled() {
		return true
	}
	ok, err := c.rdb.SetNX(ctx, key, 1, ttl).Result()
	if err != nil {
		c.logger.Warn("cache setnx failed", zap.String("key", key), zap.Error(err))
		return true
	}
	return ok
}

// Remember returns the cached value for key or loads and stores it.
func Remember[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, load func() (T, error)) (T, error) {
	var v T
	if c.Get(ctx, key, &v) {
		return v, nil
	}
	v, err := load()
	if err != nil {
		return v, err
	}
	c.Set(ctx, key, v, ttl)
	return v, nil
}
