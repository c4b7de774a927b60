package indicators

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSMA(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}
	got := SMA(values, 3)

	assert.True(t, math.IsNaN(got[0]))
	assert.True(t, math.IsNaN(got[1]))
	assert.InDelta(t, 2.0, got[2], 1e-9)
	assert.InDelta(t, 3.0, got[3], 1e-9)
	assert.InDelta(t, 4.0, got[4], 1e-9)
}

func TestEMA_SeededWithSMA(t *testing.T) {
	values := []float64{10, 11, 12, 13, 14, 15}
	got := EMA(values, 3)

	assert.True(t, math.IsNaN(got[1]))
	assert.InDelta(t, 11.0, got[2], 1e-9) // SMA seed
	// alpha = 0.5: 13*0.5 + 11*0.5 = 12
	assert.InDelta(t, 12.0, got[3], 1e-9)
	assert.InDelta(t, 13.0, got[4], 1e-9)
	assert.InDelta(t, 14.0, got[5], 1e-9)
}

func TestRSI_ExtremesAndRange(t *testing.T) {
	rising := []float64{1, 2, 3, 4, 5, 6, 7, 8}
	got := RSI(rising, 3)
	assert.True(t, math.IsNaN(got[2]))
	assert.InDelta(t, 100.0, got[3], 1e-9)
	assert.InDelta(t, 100.0, got[len(got)-1], 1e-9)

	falling := []float64{8, 7, 6, 5, 4, 3, 2, 1}
	got = RSI(falling, 3)
	assert.InDelta(t, 0.0, got[len(got)-1], 1e-9)

	mixed := []float64{10, 11, 10.5, 11.5, 11, 12, 11.5, 12.5, 12, 13}
	got = RSI(mixed, 4)
	for i := 5; i < len(got); i++ {
		require.False(t, math.IsNaN(got[i]))
		assert.Greater(t, got[i], 0.0)
		assert.Less(t, got[i], 100.0)
	}
}

func TestMACD_HistogramIsDifference(t *testing.T) {
	values := make([]float64, 60)
	for i := range values {
		values[i] = 100 + 10*math.Sin(float64(i)/5)
	}

	macd, signal, hist := MACD(values, 12, 26, 9)
	require.Len(t, macd, 60)

	defined := 0
	for i := range values {
		if math.IsNaN(hist[i]) {
			continue
		}
		defined++
		assert.InDelta(t, macd[i]-signal[i], hist[i], 1e-9)
	}
	assert.Greater(t, defined, 10)
}

func TestCrossAboveBelow(t *testing.T) {
	a := []float64{1, 2, 3, 2, 1}
	b := []float64{2, 2, 2, 2, 2}

	above := CrossAbove(a, b)
	assert.Equal(t, []bool{false, false, true, false, false}, above)

	below := CrossBelow(a, b)
	assert.Equal(t, []bool{false, false, false, false, true}, below)
}

func TestShortSeriesAllNaN(t *testing.T) {
	got := EMA([]float64{1, 2}, 5)
	for _, v := range got {
		assert.True(t, math.IsNaN(v))
	}
	got = RSI([]float64{1, 2, 3}, 3)
	for _, v := range got {
		assert.True(t, math.IsNaN(v))
	}
}
