package backtest

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/algopy/algopy/internal/strategy"
)

func sampleResult() *Result {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return &Result{
		Strategy:  "ema_crossover",
		Symbol:    "BTCUSDT",
		Timeframe: "1h",
		Params:    strategy.Params{"fast": 5, "slow": 20},
		Config:    DefaultConfig(),
		Start:     start,
		End:       start.Add(48 * time.Hour),
		Trades: []Trade{
			{Symbol: "BTCUSDT", EntryTime: start, ExitTime: start.Add(10 * time.Hour),
				EntryPrice: 100, ExitPrice: 110, Qty: 1, PnL: 10, ReturnPct: 10},
		},
		Equity: equityCurve(100000, 100010),
		Stats:  Stats{TotalReturnPct: 0.01, NumTrades: 1, FinalEquity: 100010},
	}
}

func TestWriter_WriteListLoad(t *testing.T) {
	dir := t.TempDir()
	writer := NewWriter(dir)

	runDir, err := writer.Write(sampleResult())
	require.NoError(t, err)

	for _, name := range []string{"result.json", "trades.jsonl", "equity.jsonl", "report.md"} {
		_, err := os.Stat(filepath.Join(runDir, name))
		assert.NoError(t, err, name)
	}

	runs, err := writer.List()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "ema_crossover", runs[0].Strategy)
	assert.Equal(t, "BTCUSDT", runs[0].Symbol)

	// Listings carry the saved summary stats.
	assert.Equal(t, 1, runs[0].Stats.NumTrades)
	assert.Equal(t, 0.01, runs[0].Stats.TotalReturnPct)
	assert.Equal(t, 100010.0, runs[0].Stats.FinalEquity)

	loaded, err := writer.Load(runs[0].Dir)
	require.NoError(t, err)
	assert.Equal(t, "ema_crossover", loaded.Strategy)
	assert.Equal(t, 1, loaded.Stats.NumTrades)
	require.Len(t, loaded.Trades, 1)
	assert.Equal(t, 10.0, loaded.Trades[0].PnL)
	assert.Equal(t, 5.0, loaded.Params["fast"])
}

func TestWriter_ListEmptyDir(t *testing.T) {
	writer := NewWriter(filepath.Join(t.TempDir(), "missing"))
	runs, err := writer.List()
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestRenderReport_ContainsSummaryAndTrades(t *testing.T) {
	report := renderReport(sampleResult())
	assert.Contains(t, report, "# Backtest Report: ema_crossover on BTCUSDT (1h)")
	assert.Contains(t, report, "Total Return")
	assert.Contains(t, report, "## Trades")
	assert.Contains(t, report, "10.00%")
}
