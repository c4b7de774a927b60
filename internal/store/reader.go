package store

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// CandleSource serves candle range queries, typically a CandleRepo.
type CandleSource interface {
	Range(ctx context.Context, symbol string, tf Timeframe, from, to time.Time, limit int) ([]Candle, error)
}

// SeriesReader serves range queries through an optional cache. A nil
// Cache reads straight from the repository.
type SeriesReader struct {
	Repo  CandleSource
	Cache *Cache
}

// NewSeriesReader wraps a source with a cache layer.
func NewSeriesReader(repo CandleSource, cache *Cache) *SeriesReader {
	return &SeriesReader{Repo: repo, Cache: cache}
}

// Range returns candles for [from, to), consulting the cache first and
// populating it after a repository read. Cache write failures are
// logged and do not fail the query.
func (r *SeriesReader) Range(ctx context.Context, symbol string, tf Timeframe, from, to time.Time) ([]Candle, error) {
	if r.Cache != nil {
		if candles, ok := r.Cache.GetSeries(ctx, symbol, tf, from, to); ok {
			return candles, nil
		}
	}

	candles, err := r.Repo.Range(ctx, symbol, tf, from, to, 0)
	if err != nil {
		return nil, err
	}

	if r.Cache != nil && len(candles) > 0 {
		if err := r.Cache.SetSeries(ctx, symbol, tf, from, to, candles); err != nil {
			log.Warn().Err(err).Str("symbol", symbol).Msg("failed to cache candle series")
		}
	}
	return candles, nil
}
