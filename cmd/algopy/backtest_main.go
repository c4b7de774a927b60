package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/algopy/algopy/internal/backtest"
	"github.com/algopy/algopy/internal/store"
	"github.com/algopy/algopy/internal/strategy"
)

func newBacktestCmd() *cobra.Command {
	backtestCmd := &cobra.Command{
		Use:   "backtest",
		Short: "Run and inspect strategy backtests",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run a strategy over candle history from a CSV file or the store",
		RunE:  runBacktestRun,
	}
	runCmd.Flags().String("strategy", "", "Strategy name (required; see 'backtest strategies')")
	runCmd.Flags().String("symbol", "", "Market symbol (required with --csv)")
	runCmd.Flags().String("timeframe", "1h", "Candle timeframe (1m|5m|15m|1h|4h|1d)")
	runCmd.Flags().String("csv", "", "Path to OHLCV CSV file")
	runCmd.Flags().StringSlice("symbols", nil, "Symbols to read from the candle store, comma separated")
	runCmd.Flags().String("from", "", "Store range start, YYYY-MM-DD (required with --symbols)")
	runCmd.Flags().String("to", "", "Store range end, YYYY-MM-DD (default now)")
	runCmd.Flags().StringArray("param", nil, "Strategy parameter as name=value, repeatable")
	runCmd.Flags().Float64("init-cash", 0, "Initial cash (default from config)")
	runCmd.Flags().Float64("fees", -1, "Proportional fee per fill (default from config)")
	runCmd.Flags().Float64("slippage", -1, "Adverse slippage per fill (default from config)")
	runCmd.Flags().Float64("size-percent", 0, "Fraction of portfolio value per entry")
	runCmd.Flags().Bool("no-partial", false, "Skip entries the cash cannot fully fund")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List saved backtests",
		RunE:  runBacktestList,
	}

	showCmd := &cobra.Command{
		Use:   "show <name>",
		Short: "Show a saved backtest summary",
		Args:  cobra.ExactArgs(1),
		RunE:  runBacktestShow,
	}

	strategiesCmd := &cobra.Command{
		Use:   "strategies",
		Short: "List available strategies and their parameters",
		RunE:  runBacktestStrategies,
	}

	backtestCmd.AddCommand(runCmd, listCmd, showCmd, strategiesCmd)
	return backtestCmd
}

// parseParams converts repeated name=value flags into strategy params.
func parseParams(flags *pflag.FlagSet) (strategy.Params, error) {
	raw, _ := flags.GetStringArray("param")
	params := strategy.Params{}
	for _, kv := range raw {
		name, value, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --param %q, expected name=value", kv)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid --param %q: %w", kv, err)
		}
		params[strings.TrimSpace(name)] = v
	}
	return params, nil
}

func runBacktestRun(cmd *cobra.Command, args []string) error {
	env, err := loadRuntime(cmd)
	if err != nil {
		return err
	}

	name, _ := cmd.Flags().GetString("strategy")
	symbol, _ := cmd.Flags().GetString("symbol")
	tfFlag, _ := cmd.Flags().GetString("timeframe")
	csvPath, _ := cmd.Flags().GetString("csv")
	symbols, _ := cmd.Flags().GetStringSlice("symbols")

	if name == "" {
		return fmt.Errorf("--strategy is required")
	}
	if csvPath != "" && len(symbols) > 0 {
		return fmt.Errorf("--csv and --symbols are mutually exclusive")
	}

	strat, err := strategy.Get(name)
	if err != nil {
		return err
	}
	tf, err := store.ParseTimeframe(tfFlag)
	if err != nil {
		return err
	}
	params, err := parseParams(cmd.Flags())
	if err != nil {
		return err
	}

	var series map[string][]store.Candle
	switch {
	case csvPath != "":
		if symbol == "" {
			return fmt.Errorf("--symbol is required with --csv")
		}
		symbol = strings.ToUpper(symbol)
		candles, err := store.ImportCSV(csvPath, symbol, tf)
		if err != nil {
			return err
		}
		series = map[string][]store.Candle{symbol: candles}
	case len(symbols) > 0:
		if series, err = loadStoredSeries(cmd, env, symbols, tf); err != nil {
			return err
		}
	default:
		return fmt.Errorf("either --csv or --symbols is required")
	}

	cfg := backtest.Config{
		InitCash:     env.cfg.Backtest.InitCash,
		Fees:         env.cfg.Backtest.Fees,
		Slippage:     env.cfg.Backtest.Slippage,
		SizePercent:  env.cfg.Backtest.SizePercent,
		AllowPartial: env.cfg.Backtest.AllowPartial,
	}
	if v, _ := cmd.Flags().GetFloat64("init-cash"); v > 0 {
		cfg.InitCash = v
	}
	if v, _ := cmd.Flags().GetFloat64("fees"); v >= 0 {
		cfg.Fees = v
	}
	if v, _ := cmd.Flags().GetFloat64("slippage"); v >= 0 {
		cfg.Slippage = v
	}
	if v, _ := cmd.Flags().GetFloat64("size-percent"); v > 0 {
		cfg.SizePercent = v
	}
	if noPartial, _ := cmd.Flags().GetBool("no-partial"); noPartial {
		cfg.AllowPartial = false
	}

	res, err := backtest.NewEngine(cfg).RunPortfolio(strat, series, params)
	if err != nil {
		return err
	}

	dir, err := backtest.NewWriter(env.cfg.Backtest.OutputDir).Write(res)
	if err != nil {
		return err
	}

	printSummary(res)
	printf("artifacts: %s", dir)
	return nil
}

// loadStoredSeries reads the requested symbols from Postgres through
// the Redis cache when one is configured.
func loadStoredSeries(cmd *cobra.Command, env *runtimeEnv, symbols []string, tf store.Timeframe) (map[string][]store.Candle, error) {
	fromFlag, _ := cmd.Flags().GetString("from")
	toFlag, _ := cmd.Flags().GetString("to")
	if fromFlag == "" {
		return nil, fmt.Errorf("--from is required with --symbols")
	}
	from, err := time.Parse("2006-01-02", fromFlag)
	if err != nil {
		return nil, fmt.Errorf("invalid --from: %w", err)
	}
	to := time.Now().UTC()
	if toFlag != "" {
		if to, err = time.Parse("2006-01-02", toFlag); err != nil {
			return nil, fmt.Errorf("invalid --to: %w", err)
		}
	}

	repo, err := openRepo(env.cfg)
	if err != nil {
		return nil, err
	}
	reader := store.NewSeriesReader(repo, openCache(env.cfg))

	series := make(map[string][]store.Candle, len(symbols))
	for _, sym := range symbols {
		sym = strings.ToUpper(strings.TrimSpace(sym))
		candles, err := reader.Range(cmd.Context(), sym, tf, from, to)
		if err != nil {
			return nil, err
		}
		if len(candles) == 0 {
			return nil, fmt.Errorf("no candles stored for %s %s between %s and %s",
				sym, tf, from.Format("2006-01-02"), to.Format("2006-01-02"))
		}
		series[sym] = candles
	}
	return series, nil
}

func runBacktestList(cmd *cobra.Command, args []string) error {
	env, err := loadRuntime(cmd)
	if err != nil {
		return err
	}

	runs, err := backtest.NewWriter(env.cfg.Backtest.OutputDir).List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		printf("no saved backtests under %s", env.cfg.Backtest.OutputDir)
		return nil
	}
	for _, run := range runs {
		printf("%s  strategy=%s symbol=%s return=%.2f%% trades=%d",
			run.Name, run.Strategy, run.Symbol, run.Stats.TotalReturnPct, run.Stats.NumTrades)
	}
	return nil
}

func runBacktestShow(cmd *cobra.Command, args []string) error {
	env, err := loadRuntime(cmd)
	if err != nil {
		return err
	}

	writer := backtest.NewWriter(env.cfg.Backtest.OutputDir)
	runs, err := writer.List()
	if err != nil {
		return err
	}
	for _, run := range runs {
		if run.Name == args[0] {
			res, err := writer.Load(run.Dir)
			if err != nil {
				return err
			}
			printSummary(res)
			return nil
		}
	}
	return fmt.Errorf("no saved backtest named %q", args[0])
}

func runBacktestStrategies(cmd *cobra.Command, args []string) error {
	for _, name := range strategy.List() {
		strat, err := strategy.Get(name)
		if err != nil {
			continue
		}
		printf("%s", name)
		for _, spec := range strat.Specs() {
			printf("  %-12s default=%v range=[%v, %v]", spec.Name, spec.Default, spec.Min, spec.Max)
		}
	}
	return nil
}

func printSummary(res *backtest.Result) {
	printf("%s on %s (%s), %s to %s",
		res.Strategy, res.Symbol, res.Timeframe,
		res.Start.Format("2006-01-02"), res.End.Format("2006-01-02"))
	printf("  total return  %8.2f%%", res.Stats.TotalReturnPct)
	printf("  max drawdown  %8.2f%%", res.Stats.MaxDrawdownPct)
	printf("  sharpe        %8.2f", res.Stats.Sharpe)
	printf("  sortino       %8.2f", res.Stats.Sortino)
	printf("  win rate      %8.1f%%", res.Stats.WinRatePct)
	printf("  trades        %8d", res.Stats.NumTrades)
	printf("  final equity  %8.2f", res.Stats.FinalEquity)
	for _, p := range res.Open {
		printf("  open position %s qty=%v unrealized=%.2f", p.Symbol, p.Qty, p.Unrealized)
	}
}
