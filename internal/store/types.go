// Package store persists and serves OHLCV market data. Candles live in
// Postgres, hot reads go through Redis, and CSV files can be imported
// for offline work.
package store

import (
	"fmt"
	"time"
)

// Timeframe is a candle interval.
type Timeframe string

const (
	Min1  Timeframe = "1m"
	Min5  Timeframe = "5m"
	Min15 Timeframe = "15m"
	Hour1 Timeframe = "1h"
	Hour4 Timeframe = "4h"
	Day1  Timeframe = "1d"
)

var timeframeDurations = map[Timeframe]time.Duration{
	Min1:  time.Minute,
	Min5:  5 * time.Minute,
	Min15: 15 * time.Minute,
	Hour1: time.Hour,
	Hour4: 4 * time.Hour,
	Day1:  24 * time.Hour,
}

// Retention window per timeframe for the in-memory buffers.
var windowDurations = map[Timeframe]time.Duration{
	Min1:  10 * time.Minute,
	Min5:  30 * time.Minute,
	Min15: 90 * time.Minute,
	Hour1: 12 * time.Hour,
	Day1:  5 * 24 * time.Hour,
}

const defaultWindow = 5 * 24 * time.Hour

// ParseTimeframe validates a timeframe string.
func ParseTimeframe(s string) (Timeframe, error) {
	tf := Timeframe(s)
	if _, ok := timeframeDurations[tf]; !ok {
		return "", fmt.Errorf("unknown timeframe %q", s)
	}
	return tf, nil
}

// Duration returns the candle interval length.
func (tf Timeframe) Duration() time.Duration {
	return timeframeDurations[tf]
}

// Window returns how much history the live buffer retains for this
// timeframe.
func (tf Timeframe) Window() time.Duration {
	if w, ok := windowDurations[tf]; ok {
		return w
	}
	return defaultWindow
}

// Candle is one OHLCV bar.
type Candle struct {
	Symbol    string    `db:"symbol" json:"symbol"`
	Timeframe Timeframe `db:"timeframe" json:"timeframe"`
	OpenTime  time.Time `db:"open_time" json:"open_time"`
	Open      float64   `db:"open" json:"open"`
	High      float64   `db:"high" json:"high"`
	Low       float64   `db:"low" json:"low"`
	Close     float64   `db:"close" json:"close"`
	Volume    float64   `db:"volume" json:"volume"`
}

// Validate rejects structurally impossible bars.
func (c *Candle) Validate() error {
	if c.Symbol == "" {
		return fmt.Errorf("candle missing symbol")
	}
	if c.OpenTime.IsZero() {
		return fmt.Errorf("candle missing open time")
	}
	if c.High < c.Low {
		return fmt.Errorf("candle %s %s: high %.8f below low %.8f", c.Symbol, c.OpenTime.Format(time.RFC3339), c.High, c.Low)
	}
	if c.Open < 0 || c.Close < 0 || c.Volume < 0 {
		return fmt.Errorf("candle %s %s: negative field", c.Symbol, c.OpenTime.Format(time.RFC3339))
	}
	return nil
}
