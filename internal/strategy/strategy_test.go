package strategy

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/algopy/algopy/internal/store"
)

func series(closes ...float64) []store.Candle {
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	out := make([]store.Candle, len(closes))
	for i, c := range closes {
		out[i] = store.Candle{
			Symbol: "BTCUSDT", Timeframe: store.Hour1,
			OpenTime: base.Add(time.Duration(i) * time.Hour),
			Open:     c, High: c * 1.01, Low: c * 0.99, Close: c, Volume: 100,
		}
	}
	return out
}

func vShape(n int) []store.Candle {
	closes := make([]float64, n)
	for i := range closes {
		half := n / 2
		if i < half {
			closes[i] = 100 - float64(i)
		} else {
			closes[i] = 100 - float64(half) + float64(i-half)*1.5
		}
	}
	return series(closes...)
}

func TestRegistry(t *testing.T) {
	names := List()
	assert.Contains(t, names, "ema_crossover")
	assert.Contains(t, names, "rsi")
	assert.Contains(t, names, "macd")

	s, err := Get("ema_crossover")
	require.NoError(t, err)
	assert.Equal(t, "ema_crossover", s.Name())

	_, err = Get("nope")
	assert.Error(t, err)
}

func TestEMACrossover_SignalsOnTrendReversal(t *testing.T) {
	candles := vShape(60)
	s := &EMACrossover{}

	sig, err := s.Signals(candles, Params{"fast": 3, "slow": 8})
	require.NoError(t, err)
	require.Len(t, sig.Entries, 60)

	entries := 0
	for _, e := range sig.Entries {
		if e {
			entries++
		}
	}
	assert.Greater(t, entries, 0, "downtrend into uptrend must produce an entry")

	// Entries and exits never coincide on the same bar for a crossover.
	for i := range sig.Entries {
		assert.False(t, sig.Entries[i] && sig.Exits[i], "bar %d", i)
	}
}

func TestEMACrossover_DefaultsApplied(t *testing.T) {
	candles := vShape(120)
	s := &EMACrossover{}

	sig, err := s.Signals(candles, Params{})
	require.NoError(t, err)
	assert.Len(t, sig.Entries, 120)
}

func TestEMACrossover_Validation(t *testing.T) {
	s := &EMACrossover{}

	_, err := s.Signals(vShape(60), Params{"fast": 1000})
	assert.Error(t, err, "out of range param")

	_, err = s.Signals(vShape(60), Params{"bogus": 1})
	assert.Error(t, err, "unknown param")
}

func TestShortSeriesYieldsNoSignals(t *testing.T) {
	short := series(100, 101, 102, 101, 100)

	for _, name := range []string{"ema_crossover", "rsi", "macd"} {
		t.Run(name, func(t *testing.T) {
			s, err := Get(name)
			require.NoError(t, err)

			sig, err := s.Signals(short, Params{})
			require.NoError(t, err, "warmup-short series must not error")
			require.Len(t, sig.Entries, len(short))
			require.Len(t, sig.Exits, len(short))
			for i := range sig.Entries {
				assert.False(t, sig.Entries[i], "bar %d", i)
				assert.False(t, sig.Exits[i], "bar %d", i)
			}
		})
	}

	// Bad params still error even on short series.
	s, err := Get("ema_crossover")
	require.NoError(t, err)
	_, err = s.Signals(short, Params{"fast": 1000})
	assert.Error(t, err)
}

func TestRSIReversion_EntersOversoldExitsOverbought(t *testing.T) {
	candles := vShape(40)
	s := &RSIReversion{}

	sig, err := s.Signals(candles, Params{"period": 4})
	require.NoError(t, err)

	entryFound, exitFound := -1, -1
	for i := range sig.Entries {
		if sig.Entries[i] && entryFound < 0 {
			entryFound = i
		}
		if sig.Exits[i] {
			exitFound = i
		}
	}
	require.GreaterOrEqual(t, entryFound, 0, "steady decline must push RSI oversold")
	require.GreaterOrEqual(t, exitFound, 0, "steady rally must push RSI overbought")
	assert.Less(t, entryFound, exitFound)
}

func TestMACDCross_ProducesAlignedSignals(t *testing.T) {
	n := 120
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = 100 + 15*math.Sin(float64(i)/8)
	}
	s := &MACDCross{}

	sig, err := s.Signals(series(closes...), Params{})
	require.NoError(t, err)
	require.Len(t, sig.Entries, n)

	entries, exits := 0, 0
	for i := range sig.Entries {
		if sig.Entries[i] {
			entries++
		}
		if sig.Exits[i] {
			exits++
		}
	}
	assert.Greater(t, entries, 0)
	assert.Greater(t, exits, 0)
}

func TestParamsGet(t *testing.T) {
	spec := ParamSpec{Name: "period", Default: 14}
	assert.Equal(t, 14.0, Params{}.Get(spec))
	assert.Equal(t, 7.0, Params{"period": 7}.Get(spec))
}
