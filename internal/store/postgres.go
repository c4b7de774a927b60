package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

// Connect opens a Postgres pool and verifies connectivity.
func Connect(dsn string, maxOpen, maxIdle int, maxLifetime time.Duration) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(maxLifetime)
	log.Info().Int("max_open", maxOpen).Int("max_idle", maxIdle).Msg("postgres pool ready")
	return db, nil
}

// CandleRepo persists candles in Postgres.
type CandleRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewCandleRepo creates a repository with a per-query timeout.
func NewCandleRepo(db *sqlx.DB, timeout time.Duration) *CandleRepo {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &CandleRepo{db: db, timeout: timeout}
}

// Ping verifies database connectivity.
func (r *CandleRepo) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("postgres ping failed: %w", err)
	}
	return nil
}

const candleSchema = `
CREATE TABLE IF NOT EXISTS candles (
	symbol     TEXT             NOT NULL,
	timeframe  TEXT             NOT NULL,
	open_time  TIMESTAMPTZ      NOT NULL,
	open       DOUBLE PRECISION NOT NULL,
	high       DOUBLE PRECISION NOT NULL,
	low        DOUBLE PRECISION NOT NULL,
	close      DOUBLE PRECISION NOT NULL,
	volume     DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (symbol, timeframe, open_time)
);
CREATE INDEX IF NOT EXISTS idx_candles_open_time ON candles (open_time);
`

// EnsureSchema creates the candles table when absent.
func (r *CandleRepo) EnsureSchema(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	if _, err := r.db.ExecContext(ctx, candleSchema); err != nil {
		return fmt.Errorf("failed to ensure candle schema: %w", err)
	}
	return nil
}

// Upsert writes candles, replacing rows with the same key. Invalid
// candles abort the batch.
func (r *CandleRepo) Upsert(ctx context.Context, candles []Candle) error {
	if len(candles) == 0 {
		return nil
	}
	for i := range candles {
		if err := candles[i].Validate(); err != nil {
			return fmt.Errorf("invalid candle at index %d: %w", i, err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin candle upsert: %w", err)
	}
	defer tx.Rollback()

	const query = `
		INSERT INTO candles (symbol, timeframe, open_time, open, high, low, close, volume)
		VALUES (:symbol, :timeframe, :open_time, :open, :high, :low, :close, :volume)
		ON CONFLICT (symbol, timeframe, open_time) DO UPDATE SET
			open = EXCLUDED.open,
			high = EXCLUDED.high,
			low = EXCLUDED.low,
			close = EXCLUDED.close,
			volume = EXCLUDED.volume`

	for i := range candles {
		if _, err := tx.NamedExecContext(ctx, query, candles[i]); err != nil {
			return fmt.Errorf("failed to upsert candle %s %s: %w",
				candles[i].Symbol, candles[i].OpenTime.Format(time.RFC3339), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit candle upsert: %w", err)
	}
	log.Debug().Int("count", len(candles)).Msg("candles upserted")
	return nil
}

// Range returns candles for a symbol and timeframe within [from, to),
// oldest first, capped at limit when limit > 0.
func (r *CandleRepo) Range(ctx context.Context, symbol string, tf Timeframe, from, to time.Time, limit int) ([]Candle, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT symbol, timeframe, open_time, open, high, low, close, volume
		FROM candles
		WHERE symbol = $1 AND timeframe = $2 AND open_time >= $3 AND open_time < $4
		ORDER BY open_time ASC`
	args := []any{symbol, string(tf), from, to}
	if limit > 0 {
		query += " LIMIT $5"
		args = append(args, limit)
	}

	var candles []Candle
	if err := r.db.SelectContext(ctx, &candles, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query candles for %s %s: %w", symbol, tf, err)
	}
	return candles, nil
}

// Latest returns the most recent candle, or nil when none exists.
func (r *CandleRepo) Latest(ctx context.Context, symbol string, tf Timeframe) (*Candle, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var c Candle
	err := r.db.GetContext(ctx, &c, `
		SELECT symbol, timeframe, open_time, open, high, low, close, volume
		FROM candles
		WHERE symbol = $1 AND timeframe = $2
		ORDER BY open_time DESC
		LIMIT 1`, symbol, string(tf))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest candle for %s %s: %w", symbol, tf, err)
	}
	return &c, nil
}

// SymbolCoverage reports the stored time range and row count per symbol
// for a timeframe.
type SymbolCoverage struct {
	Symbol string    `db:"symbol"`
	First  time.Time `db:"first"`
	Last   time.Time `db:"last"`
	Count  int       `db:"count"`
}

// Coverage summarizes stored data for a timeframe.
func (r *CandleRepo) Coverage(ctx context.Context, tf Timeframe) ([]SymbolCoverage, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var out []SymbolCoverage
	err := r.db.SelectContext(ctx, &out, `
		SELECT symbol, MIN(open_time) AS first, MAX(open_time) AS last, COUNT(*) AS count
		FROM candles
		WHERE timeframe = $1
		GROUP BY symbol
		ORDER BY symbol`, string(tf))
	if err != nil {
		return nil, fmt.Errorf("failed to query coverage for %s: %w", tf, err)
	}
	return out, nil
}
