package backtest

import "math"

// computeStats derives performance statistics from the equity curve and
// trade list.
func computeStats(res *Result, initCash, annualBars float64) Stats {
	s := Stats{NumTrades: len(res.Trades)}

	if len(res.Equity) == 0 || initCash <= 0 {
		return s
	}

	final := res.Equity[len(res.Equity)-1].Equity
	s.FinalEquity = final
	s.TotalReturnPct = (final/initCash - 1) * 100
	s.MaxDrawdownPct = maxDrawdown(res.Equity) * 100

	returns := barReturns(res.Equity, initCash)
	s.Sharpe = annualizedRatio(returns, annualBars, false)
	s.Sortino = annualizedRatio(returns, annualBars, true)

	var wins int
	var grossProfit, grossLoss float64
	for _, t := range res.Trades {
		s.TotalFees += t.Fees
		if t.PnL > 0 {
			wins++
			grossProfit += t.PnL
		} else {
			grossLoss -= t.PnL
		}
	}
	if len(res.Trades) > 0 {
		s.WinRatePct = float64(wins) / float64(len(res.Trades)) * 100
	}
	if grossLoss > 0 {
		s.ProfitFactor = grossProfit / grossLoss
	} else if grossProfit > 0 {
		s.ProfitFactor = math.Inf(1)
	}
	return s
}

func barReturns(equity []EquityPoint, initCash float64) []float64 {
	out := make([]float64, 0, len(equity))
	prev := initCash
	for _, p := range equity {
		if prev > 0 {
			out = append(out, p.Equity/prev-1)
		}
		prev = p.Equity
	}
	return out
}

func maxDrawdown(equity []EquityPoint) float64 {
	var peak, maxDD float64
	for _, p := range equity {
		if p.Equity > peak {
			peak = p.Equity
		}
		if peak > 0 {
			dd := (peak - p.Equity) / peak
			if dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

// annualizedRatio computes the Sharpe ratio, or Sortino when downside
// is true, from per-bar returns with a zero risk-free rate.
func annualizedRatio(returns []float64, annualBars float64, downside bool) float64 {
	if len(returns) < 2 {
		return 0
	}

	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	var variance float64
	n := 0
	for _, r := range returns {
		if downside {
			if r >= 0 {
				continue
			}
			variance += r * r
			n++
		} else {
			d := r - mean
			variance += d * d
			n++
		}
	}
	if n < 2 {
		return 0
	}
	std := math.Sqrt(variance / float64(n-1))
	if std == 0 {
		return 0
	}
	return mean / std * math.Sqrt(annualBars)
}
