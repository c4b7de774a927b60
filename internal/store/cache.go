package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/algopy/algopy/internal/metrics"
)

// redisCmd is the slice of the Redis client the cache uses.
type redisCmd interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Ping(ctx context.Context) *redis.StatusCmd
	Close() error
}

// Cache is a Redis read-through layer for candle range queries.
type Cache struct {
	client  redisCmd
	ttl     time.Duration
	metrics *metrics.Registry
}

// NewCache connects to Redis. TTL <= 0 falls back to five minutes.
func NewCache(addr string, db int, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cache{
		client:  redis.NewClient(&redis.Options{Addr: addr, DB: db}),
		ttl:     ttl,
		metrics: metrics.Default(),
	}
}

// Ping verifies connectivity.
func (c *Cache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (c *Cache) Close() error {
	return c.client.Close()
}

func seriesKey(symbol string, tf Timeframe, from, to time.Time) string {
	return fmt.Sprintf("candles:%s:%s:%d:%d", symbol, tf, from.Unix(), to.Unix())
}

// SetSeries caches the candles returned for one range query.
func (c *Cache) SetSeries(ctx context.Context, symbol string, tf Timeframe, from, to time.Time, candles []Candle) error {
	payload, err := json.Marshal(candles)
	if err != nil {
		return fmt.Errorf("failed to marshal candle series: %w", err)
	}
	if err := c.client.Set(ctx, seriesKey(symbol, tf, from, to), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache candle series: %w", err)
	}
	return nil
}

// GetSeries returns a cached range, or (nil, false) on a miss. Redis
// errors degrade to a miss.
func (c *Cache) GetSeries(ctx context.Context, symbol string, tf Timeframe, from, to time.Time) ([]Candle, bool) {
	key := seriesKey(symbol, tf, from, to)
	payload, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Str("symbol", symbol).Msg("redis read failed")
		}
		c.metrics.CacheMisses.WithLabelValues("candles").Inc()
		return nil, false
	}

	var candles []Candle
	if err := json.Unmarshal(payload, &candles); err != nil {
		log.Warn().Err(err).Str("symbol", symbol).Msg("corrupt cached series, dropping")
		c.client.Del(ctx, key)
		c.metrics.CacheMisses.WithLabelValues("candles").Inc()
		return nil, false
	}

	c.metrics.CacheHits.WithLabelValues("candles").Inc()
	return candles, true
}

// Invalidate removes a cached range.
func (c *Cache) Invalidate(ctx context.Context, symbol string, tf Timeframe, from, to time.Time) {
	if err := c.client.Del(ctx, seriesKey(symbol, tf, from, to)).Err(); err != nil {
		log.Warn().Err(err).Str("symbol", symbol).Msg("redis invalidate failed")
	}
}
