package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/algopy/algopy/internal/application"
	"github.com/algopy/algopy/internal/store"
)

func newStoreCmd() *cobra.Command {
	storeCmd := &cobra.Command{
		Use:   "store",
		Short: "Manage the candle store",
	}

	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Import OHLCV candles from a CSV file into Postgres",
		RunE:  runStoreImport,
	}
	importCmd.Flags().String("csv", "", "Path to OHLCV CSV file (required)")
	importCmd.Flags().String("symbol", "", "Market symbol (required)")
	importCmd.Flags().String("timeframe", "1h", "Candle timeframe")

	coverageCmd := &cobra.Command{
		Use:   "coverage",
		Short: "Show stored candle coverage per symbol",
		RunE:  runStoreCoverage,
	}
	coverageCmd.Flags().String("timeframe", "1h", "Candle timeframe")

	latestCmd := &cobra.Command{
		Use:   "latest",
		Short: "Show the most recent stored candle for a symbol",
		RunE:  runStoreLatest,
	}
	latestCmd.Flags().String("symbol", "", "Market symbol (required)")
	latestCmd.Flags().String("timeframe", "1h", "Candle timeframe")

	storeCmd.AddCommand(importCmd, coverageCmd, latestCmd)
	return storeCmd
}

func openRepo(cfg *application.Config) (*store.CandleRepo, error) {
	pg := cfg.Store.Postgres
	if !pg.Enabled {
		return nil, fmt.Errorf("postgres is disabled in config (store.postgres.enabled)")
	}
	db, err := store.Connect(pg.DSN, pg.MaxOpenConns, pg.MaxIdleConns,
		time.Duration(pg.ConnMaxLifetimeMinutes)*time.Minute)
	if err != nil {
		return nil, err
	}
	return store.NewCandleRepo(db, cfg.Store.QueryTimeout()), nil
}

// openCache returns the Redis cache layer, or nil when disabled.
func openCache(cfg *application.Config) *store.Cache {
	rd := cfg.Store.Redis
	if !rd.Enabled {
		return nil
	}
	return store.NewCache(rd.Addr, rd.DB, cfg.Store.DefaultTTL())
}

func runStoreImport(cmd *cobra.Command, args []string) error {
	env, err := loadRuntime(cmd)
	if err != nil {
		return err
	}

	csvPath, _ := cmd.Flags().GetString("csv")
	symbol, _ := cmd.Flags().GetString("symbol")
	tfFlag, _ := cmd.Flags().GetString("timeframe")

	if csvPath == "" || symbol == "" {
		return fmt.Errorf("--csv and --symbol are required")
	}
	tf, err := store.ParseTimeframe(tfFlag)
	if err != nil {
		return err
	}

	candles, err := store.ImportCSV(csvPath, strings.ToUpper(symbol), tf)
	if err != nil {
		return err
	}
	if len(candles) == 0 {
		return fmt.Errorf("no candles in %s", csvPath)
	}

	repo, err := openRepo(env.cfg)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if err := repo.EnsureSchema(ctx); err != nil {
		return err
	}
	if err := repo.Upsert(ctx, candles); err != nil {
		return err
	}

	printf("imported %d candles for %s %s (%s to %s)",
		len(candles), strings.ToUpper(symbol), tf,
		candles[0].OpenTime.Format("2006-01-02 15:04"),
		candles[len(candles)-1].OpenTime.Format("2006-01-02 15:04"))
	return nil
}

func runStoreLatest(cmd *cobra.Command, args []string) error {
	env, err := loadRuntime(cmd)
	if err != nil {
		return err
	}

	symbol, _ := cmd.Flags().GetString("symbol")
	tfFlag, _ := cmd.Flags().GetString("timeframe")
	if symbol == "" {
		return fmt.Errorf("--symbol is required")
	}
	tf, err := store.ParseTimeframe(tfFlag)
	if err != nil {
		return err
	}

	repo, err := openRepo(env.cfg)
	if err != nil {
		return err
	}
	c, err := repo.Latest(cmd.Context(), strings.ToUpper(symbol), tf)
	if err != nil {
		return err
	}
	if c == nil {
		printf("no candles stored for %s %s", strings.ToUpper(symbol), tf)
		return nil
	}

	printf("%s %s %s O=%.4f H=%.4f L=%.4f C=%.4f V=%.4f",
		c.Symbol, c.Timeframe, c.OpenTime.Format("2006-01-02 15:04"),
		c.Open, c.High, c.Low, c.Close, c.Volume)
	return nil
}

func runStoreCoverage(cmd *cobra.Command, args []string) error {
	env, err := loadRuntime(cmd)
	if err != nil {
		return err
	}

	tfFlag, _ := cmd.Flags().GetString("timeframe")
	tf, err := store.ParseTimeframe(tfFlag)
	if err != nil {
		return err
	}

	repo, err := openRepo(env.cfg)
	if err != nil {
		return err
	}

	coverage, err := repo.Coverage(cmd.Context(), tf)
	if err != nil {
		return err
	}
	if len(coverage) == 0 {
		printf("no candles stored for timeframe %s", tf)
		return nil
	}

	printf("%-12s %-17s %-17s %8s", "SYMBOL", "FIRST", "LAST", "ROWS")
	for _, c := range coverage {
		printf("%-12s %-17s %-17s %8d",
			c.Symbol, c.First.Format("2006-01-02 15:04"), c.Last.Format("2006-01-02 15:04"), c.Count)
	}
	return nil
}
