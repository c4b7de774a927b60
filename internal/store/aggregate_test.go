package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTickAggregator_BuildsBarFromTicks(t *testing.T) {
	agg := NewTickAggregator(Min1)
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	agg.Tick("BTCUSDT", 100, base.Add(5*time.Second))
	agg.Tick("BTCUSDT", 103, base.Add(20*time.Second))
	agg.Tick("BTCUSDT", 99, base.Add(40*time.Second))
	agg.Tick("BTCUSDT", 101, base.Add(59*time.Second))

	series := agg.Window().Series("BTCUSDT")
	require.Len(t, series, 1)
	bar := series[0]
	assert.Equal(t, base, bar.OpenTime)
	assert.Equal(t, Min1, bar.Timeframe)
	assert.Equal(t, 100.0, bar.Open)
	assert.Equal(t, 103.0, bar.High)
	assert.Equal(t, 99.0, bar.Low)
	assert.Equal(t, 101.0, bar.Close)
	assert.Equal(t, 4.0, bar.Volume)
}

func TestTickAggregator_NewBucketStartsNewBar(t *testing.T) {
	agg := NewTickAggregator(Min1)
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	agg.Tick("BTCUSDT", 100, base.Add(30*time.Second))
	agg.Tick("BTCUSDT", 105, base.Add(70*time.Second))

	series := agg.Window().Series("BTCUSDT")
	require.Len(t, series, 2)
	assert.Equal(t, 100.0, series[0].Close)
	assert.Equal(t, base.Add(time.Minute), series[1].OpenTime)
	assert.Equal(t, 105.0, series[1].Open)
	assert.Equal(t, 1.0, series[1].Volume)
}

func TestTickAggregator_DropsLateAndInvalidTicks(t *testing.T) {
	agg := NewTickAggregator(Min1)
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	agg.Tick("BTCUSDT", 100, base.Add(70*time.Second))
	// A tick for the already-closed first minute is dropped.
	agg.Tick("BTCUSDT", 999, base.Add(10*time.Second))
	agg.Tick("BTCUSDT", 0, base.Add(80*time.Second))

	series := agg.Window().Series("BTCUSDT")
	require.Len(t, series, 1)
	assert.Equal(t, 100.0, series[0].High)
	assert.Equal(t, 1.0, series[0].Volume)
}

func TestTickAggregator_SymbolsIndependent(t *testing.T) {
	agg := NewTickAggregator(Min1)
	at := time.Date(2024, 6, 1, 12, 0, 30, 0, time.UTC)

	agg.Tick("BTCUSDT", 50000, at)
	agg.Tick("ETHUSDT", 3000, at)

	assert.Equal(t, 1, agg.Window().Len("BTCUSDT"))
	assert.Equal(t, 1, agg.Window().Len("ETHUSDT"))
}
