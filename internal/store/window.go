package store

import (
	"sync"
	"time"
)

// WindowBuffer keeps a rolling in-memory window of recent candles per
// symbol, trimmed to the timeframe's retention window. Appends must
// arrive in open-time order per symbol.
type WindowBuffer struct {
	timeframe Timeframe
	window    time.Duration

	mu      sync.RWMutex
	candles map[string][]Candle
}

// NewWindowBuffer creates a buffer for one timeframe.
func NewWindowBuffer(tf Timeframe) *WindowBuffer {
	return &WindowBuffer{
		timeframe: tf,
		window:    tf.Window(),
		candles:   make(map[string][]Candle),
	}
}

// Append adds a candle and trims entries older than the window relative
// to the newest open time. A candle with the same open time as the last
// entry replaces it (in-progress bar update).
func (b *WindowBuffer) Append(c Candle) {
	b.mu.Lock()
	defer b.mu.Unlock()

	series := b.candles[c.Symbol]
	if n := len(series); n > 0 && series[n-1].OpenTime.Equal(c.OpenTime) {
		series[n-1] = c
	} else {
		series = append(series, c)
	}

	cutoff := c.OpenTime.Add(-b.window)
	start := 0
	for start < len(series) && series[start].OpenTime.Before(cutoff) {
		start++
	}
	b.candles[c.Symbol] = series[start:]
}

// Series returns a copy of the buffered candles for a symbol, oldest
// first.
func (b *WindowBuffer) Series(symbol string) []Candle {
	b.mu.RLock()
	defer b.mu.RUnlock()
	series := b.candles[symbol]
	out := make([]Candle, len(series))
	copy(out, series)
	return out
}

// Len returns the number of buffered candles for a symbol.
func (b *WindowBuffer) Len(symbol string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.candles[symbol])
}

// Symbols lists symbols with buffered data.
func (b *WindowBuffer) Symbols() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]string, 0, len(b.candles))
	for s := range b.candles {
		out = append(out, s)
	}
	return out
}
