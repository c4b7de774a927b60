package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/algopy/algopy/internal/metrics"
)

// fakeRedis is an in-memory stand-in for the Redis client.
type fakeRedis struct {
	data    map[string]string
	failing bool
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: make(map[string]string)}
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	if f.failing {
		return redis.NewStringResult("", errors.New("redis down"))
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value any, _ time.Duration) *redis.StatusCmd {
	if f.failing {
		return redis.NewStatusResult("", errors.New("redis down"))
	}
	switch v := value.(type) {
	case []byte:
		f.data[key] = string(v)
	case string:
		f.data[key] = v
	}
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func (f *fakeRedis) Ping(_ context.Context) *redis.StatusCmd {
	if f.failing {
		return redis.NewStatusResult("", errors.New("redis down"))
	}
	return redis.NewStatusResult("PONG", nil)
}

func (f *fakeRedis) Close() error { return nil }

func testCache(fr *fakeRedis) *Cache {
	return &Cache{client: fr, ttl: time.Minute, metrics: metrics.Default()}
}

func rangeBounds() (time.Time, time.Time) {
	from := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	return from, from.Add(24 * time.Hour)
}

func TestCache_RoundTripKeyedByRange(t *testing.T) {
	fr := newFakeRedis()
	cache := testCache(fr)
	ctx := context.Background()
	from, to := rangeBounds()

	candles := []Candle{candleAt("BTCUSDT", from, 100), candleAt("BTCUSDT", from.Add(time.Minute), 101)}
	require.NoError(t, cache.SetSeries(ctx, "BTCUSDT", Min1, from, to, candles))

	got, ok := cache.GetSeries(ctx, "BTCUSDT", Min1, from, to)
	require.True(t, ok)
	require.Len(t, got, 2)
	assert.Equal(t, 101.0, got[1].Close)

	// A different range is a distinct entry.
	_, ok = cache.GetSeries(ctx, "BTCUSDT", Min1, from, to.Add(time.Hour))
	assert.False(t, ok)
	_, ok = cache.GetSeries(ctx, "ETHUSDT", Min1, from, to)
	assert.False(t, ok)
}

func TestCache_CorruptEntryDropped(t *testing.T) {
	fr := newFakeRedis()
	cache := testCache(fr)
	ctx := context.Background()
	from, to := rangeBounds()

	key := seriesKey("BTCUSDT", Min1, from, to)
	fr.data[key] = "not json"

	_, ok := cache.GetSeries(ctx, "BTCUSDT", Min1, from, to)
	assert.False(t, ok)
	_, exists := fr.data[key]
	assert.False(t, exists, "corrupt entry should be deleted")
}

func TestCache_RedisErrorDegradesToMiss(t *testing.T) {
	fr := newFakeRedis()
	fr.failing = true
	cache := testCache(fr)
	from, to := rangeBounds()

	_, ok := cache.GetSeries(context.Background(), "BTCUSDT", Min1, from, to)
	assert.False(t, ok)
	assert.Error(t, cache.Ping(context.Background()))
}

func TestCache_Invalidate(t *testing.T) {
	fr := newFakeRedis()
	cache := testCache(fr)
	ctx := context.Background()
	from, to := rangeBounds()

	require.NoError(t, cache.SetSeries(ctx, "BTCUSDT", Min1, from, to, []Candle{candleAt("BTCUSDT", from, 100)}))
	cache.Invalidate(ctx, "BTCUSDT", Min1, from, to)

	_, ok := cache.GetSeries(ctx, "BTCUSDT", Min1, from, to)
	assert.False(t, ok)
}
