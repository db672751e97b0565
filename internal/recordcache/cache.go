// Package recordcache keeps the record store of a run in Redis so a run
// interrupted before the ledger was written can be resumed without
// fetching every fund page again.
package recordcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"

	"fiidy/internal/config"
	"fiidy/internal/reconcile"
)

const dayLayout = "2006-01-02"

// RedisCache stores one snapshot per run day.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *slog.Logger
}

// New wraps an existing client.
func New(client *redis.Client, prefix string, ttl time.Duration, logger *slog.Logger) *RedisCache {
	if logger == nil {
		logger = slog.Default()
	}
	if prefix == "" {
		prefix = config.AppName
	}
	return &RedisCache{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		logger: logger.With(slog.String("component", "record_cache")),
	}
}

// Open connects to the configured Redis. It returns nil, nil when no
// address is configured.
func Open(ctx context.Context, cfg config.CacheConfig, logger *slog.Logger) (*RedisCache, error) {
	if cfg.RedisAddr == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis %s: %w", cfg.RedisAddr, err)
	}
	return New(client, cfg.Prefix, cfg.TTL, logger), nil
}

// Key returns the snapshot key of day.
func (c *RedisCache) Key(day time.Time) string {
	return fmt.Sprintf("%s:records:%s", c.prefix, day.Format(dayLayout))
}

// Save stores the records of store, in order, under day.
func (c *RedisCache) Save(ctx context.Context, day time.Time, store *reconcile.RecordStore) error {
	data, err := json.Marshal(store.Records())
	if err != nil {
		return fmt.Errorf("encode records: %w", err)
	}
	if err := c.client.Set(ctx, c.Key(day), string(data), c.ttl).Err(); err != nil {
		return fmt.Errorf("save records: %w", err)
	}
	c.logger.DebugContext(ctx, "records cached", slog.String("key", c.Key(day)), slog.Int("records", store.Len()))
	return nil
}

// Load returns the snapshot of day. ok is false when there is none.
func (c *RedisCache) Load(ctx context.Context, day time.Time) (store *reconcile.RecordStore, ok bool, err error) {
	data, err := c.client.Get(ctx, c.Key(day)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load records: %w", err)
	}

	var records []reconcile.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, false, fmt.Errorf("decode records under %s: %w", c.Key(day), err)
	}
	return reconcile.NewRecordStore(records...), true, nil
}

// Delete drops the snapshot of day.
func (c *RedisCache) Delete(ctx context.Context, day time.Time) error {
	if err := c.client.Del(ctx, c.Key(day)).Err(); err != nil {
		return fmt.Errorf("delete records: %w", err)
	}
	return nil
}

// Close closes the client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
