package main

import (
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/algopy/algopy/internal/backtest"
	httpapi "github.com/algopy/algopy/internal/interfaces/http"
	"github.com/algopy/algopy/internal/store"
	"github.com/algopy/algopy/internal/universe"
)

func newMonitorCmd() *cobra.Command {
	monitorCmd := &cobra.Command{
		Use:   "monitor",
		Short: "Serve the monitoring HTTP API",
		Long: `Starts the HTTP server with /health, /metrics and the read-only
/api/v1 endpoints for backtests, positions, balances, the order journal
and the tradable universe.`,
		RunE: runMonitor,
	}
	monitorCmd.Flags().Bool("stream", false, "Keep a mark price stream running while serving")
	monitorCmd.Flags().StringSlice("symbols", nil, "Universe symbols to expose, comma-separated")
	return monitorCmd
}

func runMonitor(cmd *cobra.Command, args []string) error {
	env, err := loadRuntime(cmd)
	if err != nil {
		return err
	}

	deps := httpapi.Deps{
		Writer: backtest.NewWriter(env.cfg.Backtest.OutputDir),
		Checks: map[string]httpapi.HealthCheck{},
	}

	if symbols, _ := cmd.Flags().GetStringSlice("symbols"); len(symbols) > 0 {
		deps.Universe = universe.FromSymbols(symbols)
	}

	if env.cfg.Store.Postgres.Enabled {
		repo, err := openRepo(env.cfg)
		if err != nil {
			return err
		}
		deps.Checks["postgres"] = repo.Ping
	}
	if cache := openCache(env.cfg); cache != nil {
		defer cache.Close()
		deps.Checks["redis"] = cache.Ping
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Trading credentials are optional for monitoring; without them the
	// position and balance routes report unavailable.
	if err := env.secrets.RequireTrading(); err == nil {
		client, err := env.newOMS()
		if err != nil {
			return err
		}
		deps.OMS = client
		deps.BreakerState = client.BreakerState

		if stream, _ := cmd.Flags().GetBool("stream"); stream {
			// Roll streamed mark prices into one-minute bars for the
			// live candles route.
			agg := store.NewTickAggregator(store.Min1)
			client.OnMark(agg.Tick)
			deps.Candles = agg.Window()

			go func() {
				if err := client.StreamMarkPrices(ctx); err != nil && ctx.Err() == nil {
					log.Error().Err(err).Msg("mark price stream stopped")
				}
			}()
		}
	} else {
		log.Info().Msg("no trading credentials, serving without exchange routes")
	}

	return httpapi.NewServer(env.cfg.Server, deps).Start(ctx)
}
