package backtest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const resultFile = "result.json"

// Writer persists backtest artifacts under a date-stamped directory per
// run: result.json, trades.jsonl, equity.jsonl and report.md.
type Writer struct {
	outputDir string
}

// NewWriter creates a writer rooted at outputDir.
func NewWriter(outputDir string) *Writer {
	return &Writer{outputDir: outputDir}
}

// Write saves all artifacts for a result and returns the run directory.
func (w *Writer) Write(res *Result) (string, error) {
	stamp := time.Now().UTC().Format("2006-01-02_150405")
	dir := filepath.Join(w.outputDir, fmt.Sprintf("%s_%s_%s", stamp, res.Strategy, res.Symbol))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create run directory: %w", err)
	}

	if err := w.writeJSON(filepath.Join(dir, resultFile), res); err != nil {
		return "", err
	}
	if err := w.writeJSONL(filepath.Join(dir, "trades.jsonl"), len(res.Trades), func(i int) any { return res.Trades[i] }); err != nil {
		return "", err
	}
	if err := w.writeJSONL(filepath.Join(dir, "equity.jsonl"), len(res.Equity), func(i int) any { return res.Equity[i] }); err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(dir, "report.md"), []byte(renderReport(res)), 0o644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}

	log.Info().Str("dir", dir).Msg("backtest artifacts written")
	return dir, nil
}

func (w *Writer) writeJSON(path string, v any) error {
	payload, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return nil
}

func (w *Writer) writeJSONL(path string, n int, item func(int) any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	for i := 0; i < n; i++ {
		if err := enc.Encode(item(i)); err != nil {
			return fmt.Errorf("failed to encode %s line %d: %w", filepath.Base(path), i, err)
		}
	}
	return nil
}

func renderReport(res *Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Backtest Report: %s on %s (%s)\n\n", res.Strategy, res.Symbol, res.Timeframe)
	fmt.Fprintf(&b, "Period: %s to %s\n\n", res.Start.Format("2006-01-02 15:04"), res.End.Format("2006-01-02 15:04"))

	b.WriteString("## Summary\n\n")
	fmt.Fprintf(&b, "| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Total Return | %.2f%% |\n", res.Stats.TotalReturnPct)
	fmt.Fprintf(&b, "| Max Drawdown | %.2f%% |\n", res.Stats.MaxDrawdownPct)
	fmt.Fprintf(&b, "| Sharpe | %.2f |\n", res.Stats.Sharpe)
	fmt.Fprintf(&b, "| Sortino | %.2f |\n", res.Stats.Sortino)
	fmt.Fprintf(&b, "| Win Rate | %.1f%% |\n", res.Stats.WinRatePct)
	fmt.Fprintf(&b, "| Profit Factor | %.2f |\n", res.Stats.ProfitFactor)
	fmt.Fprintf(&b, "| Trades | %d |\n", res.Stats.NumTrades)
	fmt.Fprintf(&b, "| Fees Paid | %.2f |\n", res.Stats.TotalFees)
	fmt.Fprintf(&b, "| Final Equity | %.2f |\n", res.Stats.FinalEquity)

	if len(res.Open) > 0 {
		b.WriteString("\n## Open Positions\n\n")
		for _, p := range res.Open {
			fmt.Fprintf(&b, "%s qty %.6f from %s at %.4f, unrealized %.2f\n",
				p.Symbol, p.Qty, p.EntryTime.Format("2006-01-02 15:04"),
				p.EntryPrice, p.Unrealized)
		}
	}

	if len(res.Trades) > 0 {
		b.WriteString("\n## Trades\n\n")
		b.WriteString("| Entry | Exit | Qty | Entry Px | Exit Px | PnL | Return | MFE | MAE |\n")
		b.WriteString("|---|---|---|---|---|---|---|---|---|\n")
		for _, t := range res.Trades {
			fmt.Fprintf(&b, "| %s | %s | %.6f | %.4f | %.4f | %.2f | %.2f%% | %.2f%% | %.2f%% |\n",
				t.EntryTime.Format("01-02 15:04"), t.ExitTime.Format("01-02 15:04"),
				t.Qty, t.EntryPrice, t.ExitPrice, t.PnL, t.ReturnPct, t.MFE*100, t.MAE*100)
		}
	}
	return b.String()
}

// SavedRun is a listing entry for one persisted backtest, with summary
// stats so callers need not load the full result.
type SavedRun struct {
	Dir      string `json:"dir"`
	Name     string `json:"name"`
	Strategy string `json:"strategy"`
	Symbol   string `json:"symbol"`
	Stats    Stats  `json:"stats"`
}

// List returns saved runs under the output directory, newest first.
func (w *Writer) List() ([]SavedRun, error) {
	entries, err := os.ReadDir(w.outputDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list backtests: %w", err)
	}

	var runs []SavedRun
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(w.outputDir, e.Name())
		if _, err := os.Stat(filepath.Join(dir, resultFile)); err != nil {
			continue
		}
		run := SavedRun{Dir: dir, Name: e.Name()}
		if res, err := w.Load(dir); err == nil {
			run.Strategy = res.Strategy
			run.Symbol = res.Symbol
			run.Stats = res.Stats
		} else {
			log.Warn().Err(err).Str("dir", dir).Msg("unreadable saved backtest")
			// Directory names are <stamp>_<strategy>_<symbol>.
			if parts := strings.Split(e.Name(), "_"); len(parts) >= 4 {
				run.Symbol = parts[len(parts)-1]
				run.Strategy = strings.Join(parts[2:len(parts)-1], "_")
			}
		}
		runs = append(runs, run)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].Name > runs[j].Name })
	return runs, nil
}

// Load reads a saved result from a run directory.
func (w *Writer) Load(dir string) (*Result, error) {
	payload, err := os.ReadFile(filepath.Join(dir, resultFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read saved backtest: %w", err)
	}
	var res Result
	if err := json.Unmarshal(payload, &res); err != nil {
		return nil, fmt.Errorf("failed to parse saved backtest: %w", err)
	}
	return &res, nil
}
