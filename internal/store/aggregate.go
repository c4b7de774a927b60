package store

import (
	"sync"
	"time"
)

// TickAggregator rolls individual price ticks into fixed-interval
// candles and publishes them to a WindowBuffer. Volume counts ticks,
// not traded size.
type TickAggregator struct {
	timeframe Timeframe
	interval  time.Duration
	buf       *WindowBuffer

	mu   sync.Mutex
	open map[string]Candle
}

// NewTickAggregator creates an aggregator bucketing ticks into tf bars.
func NewTickAggregator(tf Timeframe) *TickAggregator {
	return &TickAggregator{
		timeframe: tf,
		interval:  tf.Duration(),
		buf:       NewWindowBuffer(tf),
		open:      make(map[string]Candle),
	}
}

// Window returns the buffer the aggregator publishes into.
func (a *TickAggregator) Window() *WindowBuffer {
	return a.buf
}

// Tick folds one price observation into the symbol's current bar and
// publishes the updated bar. Ticks for an already-closed bar are
// dropped.
func (a *TickAggregator) Tick(symbol string, price float64, at time.Time) {
	if price <= 0 {
		return
	}
	bucket := at.UTC().Truncate(a.interval)

	a.mu.Lock()
	c, ok := a.open[symbol]
	switch {
	case !ok || bucket.After(c.OpenTime):
		c = Candle{
			Symbol: symbol, Timeframe: a.timeframe, OpenTime: bucket,
			Open: price, High: price, Low: price, Close: price, Volume: 1,
		}
	case bucket.Before(c.OpenTime):
		a.mu.Unlock()
		return
	default:
		if price > c.High {
			c.High = price
		}
		if price < c.Low {
			c.Low = price
		}
		c.Close = price
		c.Volume++
	}
	a.open[symbol] = c
	a.mu.Unlock()

	a.buf.Append(c)
}
