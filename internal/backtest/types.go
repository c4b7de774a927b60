// Package backtest simulates long-only strategy execution over candle
// history and reports performance statistics and artifacts.
package backtest

import (
	"time"

	"github.com/algopy/algopy/internal/strategy"
)

// Config controls the simulation.
type Config struct {
	InitCash     float64 `json:"init_cash"`
	Fees         float64 `json:"fees"`     // proportional fee per fill
	Slippage     float64 `json:"slippage"` // adverse price impact per fill
	SizePercent  float64 `json:"size_percent"` // fraction of portfolio value per entry, 0..1
	AllowPartial bool    `json:"allow_partial"`
}

// DefaultConfig mirrors the standard simulation settings: each entry
// commits 1% of available cash.
func DefaultConfig() Config {
	return Config{
		InitCash:     100000,
		Fees:         0.0005,
		Slippage:     0.001,
		SizePercent:  0.01,
		AllowPartial: true,
	}
}

// Trade is one completed round trip.
type Trade struct {
	Symbol     string    `json:"symbol"`
	EntryTime  time.Time `json:"entry_time"`
	ExitTime   time.Time `json:"exit_time"`
	EntryPrice float64   `json:"entry_price"`
	ExitPrice  float64   `json:"exit_price"`
	Qty        float64   `json:"qty"`
	Fees       float64   `json:"fees"`
	PnL        float64   `json:"pnl"`
	ReturnPct  float64   `json:"return_pct"`
	MFE        float64   `json:"mfe"` // best excursion while open, fraction of entry
	MAE        float64   `json:"mae"` // worst excursion while open, fraction of entry
}

// EquityPoint is the portfolio value at one bar.
type EquityPoint struct {
	Time   time.Time `json:"time"`
	Equity float64   `json:"equity"`
}

// OpenPosition is a position still held at the end of the simulation.
type OpenPosition struct {
	Symbol     string    `json:"symbol"`
	EntryTime  time.Time `json:"entry_time"`
	EntryPrice float64   `json:"entry_price"`
	Qty        float64   `json:"qty"`
	LastPrice  float64   `json:"last_price"`
	Unrealized float64   `json:"unrealized"`
}

// Result is the full simulation outcome.
type Result struct {
	Strategy  string          `json:"strategy"`
	Symbol    string          `json:"symbol"`
	Timeframe string          `json:"timeframe"`
	Params    strategy.Params `json:"params"`
	Config    Config          `json:"config"`
	Start     time.Time       `json:"start"`
	End       time.Time       `json:"end"`
	Trades    []Trade         `json:"trades"`
	Equity    []EquityPoint   `json:"equity"`
	Open      []OpenPosition  `json:"open,omitempty"`
	Stats     Stats           `json:"stats"`
}

// Stats summarizes performance.
type Stats struct {
	TotalReturnPct float64 `json:"total_return_pct"`
	MaxDrawdownPct float64 `json:"max_drawdown_pct"`
	Sharpe         float64 `json:"sharpe"`
	Sortino        float64 `json:"sortino"`
	WinRatePct     float64 `json:"win_rate_pct"`
	ProfitFactor   float64 `json:"profit_factor"`
	NumTrades      int     `json:"num_trades"`
	TotalFees      float64 `json:"total_fees"`
	FinalEquity    float64 `json:"final_equity"`
}
