package backtest

import (
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/algopy/algopy/internal/metrics"
	"github.com/algopy/algopy/internal/store"
	"github.com/algopy/algopy/internal/strategy"
)

// Engine runs long-only simulations over one or more symbols drawing
// from a single shared cash pool.
type Engine struct {
	cfg Config
}

// NewEngine creates an engine; zero-value fields fall back to defaults.
func NewEngine(cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.InitCash <= 0 {
		cfg.InitCash = def.InitCash
	}
	if cfg.SizePercent <= 0 || cfg.SizePercent > 1 {
		cfg.SizePercent = def.SizePercent
	}
	return &Engine{cfg: cfg}
}

// leg is the per-symbol simulation state within a portfolio run.
type leg struct {
	symbol  string
	candles []store.Candle
	sig     *strategy.Signals
	next    int

	qty        float64
	entryPrice float64
	entryFees  float64
	entryTime  time.Time
	maxHigh    float64
	minLow     float64
	lastClose  float64
}

// Run simulates a single candle series. See RunPortfolio for the
// multi-symbol variant.
func (e *Engine) Run(strat strategy.Strategy, candles []store.Candle, params strategy.Params) (*Result, error) {
	if len(candles) == 0 {
		return nil, fmt.Errorf("backtest requires candles")
	}
	return e.RunPortfolio(strat, map[string][]store.Candle{candles[0].Symbol: candles}, params)
}

// RunPortfolio evaluates the strategy independently per symbol and
// simulates fills at bar close against one shared cash pool. Entries
// buy SizePercent of available cash; an entry while that symbol's
// position is open is ignored, as is an exit while flat. Symbols are
// processed in name order within a bar, and all series must share one
// timeframe.
func (e *Engine) RunPortfolio(strat strategy.Strategy, series map[string][]store.Candle, params strategy.Params) (*Result, error) {
	legs, tf, err := e.buildLegs(strat, series, params)
	if err != nil {
		return nil, err
	}
	timeline := mergeTimes(legs)

	res := &Result{
		Strategy:  strat.Name(),
		Symbol:    portfolioName(legs),
		Timeframe: string(tf),
		Params:    params,
		Config:    e.cfg,
		Start:     timeline[0],
		End:       timeline[len(timeline)-1],
		Equity:    make([]EquityPoint, 0, len(timeline)),
	}

	cash := e.cfg.InitCash
	for _, ts := range timeline {
		for _, l := range legs {
			c, i, ok := l.advance(ts)
			if !ok {
				continue
			}
			cash = e.step(res, l, c, i, cash)
		}

		equity := cash
		for _, l := range legs {
			equity += l.qty * l.lastClose
		}
		res.Equity = append(res.Equity, EquityPoint{Time: ts, Equity: equity})
	}

	for _, l := range legs {
		if l.qty > 0 {
			res.Open = append(res.Open, OpenPosition{
				Symbol:     l.symbol,
				EntryTime:  l.entryTime,
				EntryPrice: l.entryPrice,
				Qty:        l.qty,
				LastPrice:  l.lastClose,
				Unrealized: l.qty * (l.lastClose - l.entryPrice),
			})
		}
	}

	res.Stats = computeStats(res, e.cfg.InitCash, barsPerYear(tf))
	metrics.Default().BacktestRuns.Inc()

	log.Info().
		Str("strategy", res.Strategy).
		Str("symbol", res.Symbol).
		Int("trades", len(res.Trades)).
		Float64("total_return_pct", res.Stats.TotalReturnPct).
		Msg("backtest complete")
	return res, nil
}

// buildLegs validates every series and computes its signals.
func (e *Engine) buildLegs(strat strategy.Strategy, series map[string][]store.Candle, params strategy.Params) ([]*leg, store.Timeframe, error) {
	if len(series) == 0 {
		return nil, "", fmt.Errorf("backtest requires candles")
	}

	symbols := make([]string, 0, len(series))
	for s := range series {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	var tf store.Timeframe
	legs := make([]*leg, 0, len(symbols))
	for _, sym := range symbols {
		candles := series[sym]
		if len(candles) == 0 {
			return nil, "", fmt.Errorf("backtest requires candles for %s", sym)
		}
		if tf == "" {
			tf = candles[0].Timeframe
		} else if candles[0].Timeframe != tf {
			return nil, "", fmt.Errorf("mixed timeframes: %s is %s, want %s", sym, candles[0].Timeframe, tf)
		}

		sig, err := strat.Signals(candles, params)
		if err != nil {
			return nil, "", fmt.Errorf("strategy %s failed on %s: %w", strat.Name(), sym, err)
		}
		if len(sig.Entries) != len(candles) || len(sig.Exits) != len(candles) {
			return nil, "", fmt.Errorf("strategy %s returned misaligned signals for %s", strat.Name(), sym)
		}
		legs = append(legs, &leg{symbol: sym, candles: candles, sig: sig})
	}
	return legs, tf, nil
}

// advance returns this leg's candle at ts when one exists, updating the
// running excursion extremes while a position is open.
func (l *leg) advance(ts time.Time) (store.Candle, int, bool) {
	if l.next >= len(l.candles) || !l.candles[l.next].OpenTime.Equal(ts) {
		return store.Candle{}, 0, false
	}
	i := l.next
	l.next++

	c := l.candles[i]
	l.lastClose = c.Close
	if l.qty > 0 {
		if c.High > l.maxHigh {
			l.maxHigh = c.High
		}
		if c.Low < l.minLow {
			l.minLow = c.Low
		}
	}
	return c, i, true
}

// step applies the leg's signal at bar i and returns the updated cash.
func (e *Engine) step(res *Result, l *leg, c store.Candle, i int, cash float64) float64 {
	switch {
	case l.sig.Exits[i] && l.qty > 0:
		fill := c.Close * (1 - e.cfg.Slippage)
		proceeds := l.qty * fill
		fee := proceeds * e.cfg.Fees
		cash += proceeds - fee

		cost := l.qty * l.entryPrice
		trade := Trade{
			Symbol:     l.symbol,
			EntryTime:  l.entryTime,
			ExitTime:   c.OpenTime,
			EntryPrice: l.entryPrice,
			ExitPrice:  fill,
			Qty:        l.qty,
			Fees:       l.entryFees + fee,
			PnL:        proceeds - fee - cost - l.entryFees,
		}
		if cost > 0 {
			trade.ReturnPct = trade.PnL / cost * 100
			trade.MFE = (l.maxHigh - l.entryPrice) / l.entryPrice
			trade.MAE = (l.minLow - l.entryPrice) / l.entryPrice
		}
		res.Trades = append(res.Trades, trade)
		l.qty = 0

	case l.sig.Entries[i] && l.qty == 0:
		fill := c.Close * (1 + e.cfg.Slippage)
		notional := cash * e.cfg.SizePercent
		required := notional * (1 + e.cfg.Fees)
		if required > cash {
			if !e.cfg.AllowPartial {
				return cash
			}
			// Scale down so the fee fits in available cash.
			notional = cash / (1 + e.cfg.Fees)
		}
		if notional <= 0 {
			return cash
		}
		l.qty = notional / fill
		fee := notional * e.cfg.Fees
		cash -= notional + fee

		l.entryPrice = fill
		l.entryFees = fee
		l.entryTime = c.OpenTime
		l.maxHigh = c.High
		l.minLow = c.Low
	}
	return cash
}

// mergeTimes builds the union of all bar open times, oldest first.
func mergeTimes(legs []*leg) []time.Time {
	seen := make(map[int64]time.Time)
	for _, l := range legs {
		for _, c := range l.candles {
			seen[c.OpenTime.UnixNano()] = c.OpenTime
		}
	}
	out := make([]time.Time, 0, len(seen))
	for _, t := range seen {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

func portfolioName(legs []*leg) string {
	if len(legs) == 1 {
		return legs[0].symbol
	}
	name := legs[0].symbol
	for _, l := range legs[1:] {
		name += "+" + l.symbol
	}
	return name
}

// barsPerYear converts a timeframe into the annualization factor used
// by risk-adjusted ratios.
func barsPerYear(tf store.Timeframe) float64 {
	d := tf.Duration()
	if d <= 0 {
		return 365
	}
	return 365 * 24 * 60 * 60 / d.Seconds()
}
