// Package indicators implements the technical indicators used by the
// built-in strategies. Warmup positions are NaN so callers can align
// indicator series with their price series.
package indicators

import "math"

// SMA computes a simple moving average.
func SMA(values []float64, period int) []float64 {
	out := nanSlice(len(values))
	if period <= 0 || len(values) < period {
		return out
	}

	var sum float64
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		}
	}
	return out
}

// EMA computes an exponential moving average seeded with the SMA of the
// first period values.
func EMA(values []float64, period int) []float64 {
	out := nanSlice(len(values))
	if period <= 0 || len(values) < period {
		return out
	}

	var seed float64
	for i := 0; i < period; i++ {
		seed += values[i]
	}
	seed /= float64(period)
	out[period-1] = seed

	alpha := 2.0 / (float64(period) + 1.0)
	prev := seed
	for i := period; i < len(values); i++ {
		prev = alpha*values[i] + (1-alpha)*prev
		out[i] = prev
	}
	return out
}

// RSI computes the relative strength index with Wilder smoothing.
// Values range 0..100; a flat series yields 100 by convention.
func RSI(values []float64, period int) []float64 {
	out := nanSlice(len(values))
	if period <= 0 || len(values) <= period {
		return out
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		delta := values[i] - values[i-1]
		if delta > 0 {
			avgGain += delta
		} else {
			avgLoss -= delta
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	out[period] = rsiValue(avgGain, avgLoss)

	for i := period + 1; i < len(values); i++ {
		delta := values[i] - values[i-1]
		gain, loss := 0.0, 0.0
		if delta > 0 {
			gain = delta
		} else {
			loss = -delta
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// MACD computes the MACD line, its signal line and the histogram.
func MACD(values []float64, fast, slow, signalPeriod int) (macd, signal, hist []float64) {
	n := len(values)
	macd = nanSlice(n)
	signal = nanSlice(n)
	hist = nanSlice(n)

	fastEMA := EMA(values, fast)
	slowEMA := EMA(values, slow)
	for i := 0; i < n; i++ {
		if !math.IsNaN(fastEMA[i]) && !math.IsNaN(slowEMA[i]) {
			macd[i] = fastEMA[i] - slowEMA[i]
		}
	}

	// Signal line is an EMA over the defined MACD region.
	start := -1
	for i := 0; i < n; i++ {
		if !math.IsNaN(macd[i]) {
			start = i
			break
		}
	}
	if start < 0 {
		return macd, signal, hist
	}

	sub := EMA(macd[start:], signalPeriod)
	for i, v := range sub {
		signal[start+i] = v
		if !math.IsNaN(v) {
			hist[start+i] = macd[start+i] - v
		}
	}
	return macd, signal, hist
}

// CrossAbove marks positions where a crosses from at-or-below b to
// above b.
func CrossAbove(a, b []float64) []bool {
	out := make([]bool, len(a))
	for i := 1; i < len(a) && i < len(b); i++ {
		if anyNaN(a[i-1], b[i-1], a[i], b[i]) {
			continue
		}
		out[i] = a[i-1] <= b[i-1] && a[i] > b[i]
	}
	return out
}

// CrossBelow marks positions where a crosses from at-or-above b to
// below b.
func CrossBelow(a, b []float64) []bool {
	out := make([]bool, len(a))
	for i := 1; i < len(a) && i < len(b); i++ {
		if anyNaN(a[i-1], b[i-1], a[i], b[i]) {
			continue
		}
		out[i] = a[i-1] >= b[i-1] && a[i] < b[i]
	}
	return out
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

func anyNaN(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}
