package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/algopy/algopy/internal/application"
	"github.com/algopy/algopy/internal/net/circuit"
	"github.com/algopy/algopy/internal/notify"
	"github.com/algopy/algopy/internal/oms/binance"
)

const (
	appName = "algopy"
	version = "v0.3.0"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	if term.IsTerminal(int(os.Stderr.Fd())) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Trading toolkit: order management, backtesting and market data",
		Version: version,
		Long: `algopy is a trading toolkit for Binance USDT-margined futures.

It places and closes orders with exchange-precision sizing, runs
long-only strategy backtests over candle history, manages candle
storage, and serves a monitoring API.`,
	}

	rootCmd.PersistentFlags().String("config", "config/config.yaml", "Path to YAML config")
	rootCmd.PersistentFlags().String("params", "config.json", "Path to JSON parameter bag")
	rootCmd.PersistentFlags().String("env", "config/.env", "Path to dotenv credentials file")
	rootCmd.PersistentFlags().Bool("verbose", false, "Enable debug logging")

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		verbose, _ := cmd.Flags().GetBool("verbose")
		if verbose {
			zerolog.SetGlobalLevel(zerolog.DebugLevel)
		} else {
			zerolog.SetGlobalLevel(zerolog.InfoLevel)
		}
	}

	rootCmd.AddCommand(newOrderCmd())
	rootCmd.AddCommand(newBacktestCmd())
	rootCmd.AddCommand(newStoreCmd())
	rootCmd.AddCommand(newMonitorCmd())
	rootCmd.AddCommand(newDocsCmd())

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

// runtimeEnv bundles everything a command needs from disk and the
// environment.
type runtimeEnv struct {
	cfg     *application.Config
	params  application.Params
	secrets *application.Secrets
}

func loadRuntime(cmd *cobra.Command) (*runtimeEnv, error) {
	configPath, _ := cmd.Flags().GetString("config")
	paramsPath, _ := cmd.Flags().GetString("params")
	envPath, _ := cmd.Flags().GetString("env")

	cfg, err := application.LoadConfig(configPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Warn().Err(err).Str("path", configPath).Msg("config unreadable, using defaults")
		}
		cfg = application.DefaultConfig()
	}

	params, err := application.LoadParams(paramsPath)
	if err != nil {
		return nil, err
	}

	secrets, err := application.LoadSecrets(envPath)
	if err != nil {
		return nil, err
	}

	return &runtimeEnv{cfg: cfg, params: params, secrets: secrets}, nil
}

// newNotifier builds the Telegram notifier when enabled and configured,
// otherwise the log notifier.
func (e *runtimeEnv) newNotifier() notify.Notifier {
	tg := e.cfg.Notify.Telegram
	if !tg.Enabled || e.secrets.TelegramToken == "" || len(e.secrets.TelegramChannels) == 0 {
		return notify.NewLog()
	}
	return notify.NewTelegram(e.secrets.TelegramToken, e.secrets.TelegramChannels, tg.DefaultChannel)
}

// newOMS builds the Binance adapter for trading commands.
func (e *runtimeEnv) newOMS() (*binance.Client, error) {
	if err := e.secrets.RequireTrading(); err != nil {
		return nil, err
	}
	ex := e.cfg.Exchange
	return binance.New(binance.Config{
		BaseURL:      ex.BaseURL,
		SpotBaseURL:  ex.SpotBaseURL,
		WSURL:        ex.WSURL,
		APIKey:       e.secrets.BinanceAPIKey,
		APISecret:    e.secrets.BinanceAPISecret,
		RecvWindowMS: ex.RecvWindowMS,
		Timeout:      ex.RequestTimeout(),
		RateRPS:      ex.RateLimit.RequestsPerSecond,
		RateBurst:    ex.RateLimit.Burst,
		Breaker:      e.breakerConfig(),
	}, e.newNotifier()), nil
}

func (e *runtimeEnv) breakerConfig() circuit.Config {
	cb := e.cfg.Exchange.CircuitBreaker
	return circuit.Config{
		ConsecutiveFailures: cb.ConsecutiveFailures,
		FailureRatio:        cb.FailureRatio,
		MinRequests:         cb.MinRequests,
		OpenTimeout:         time.Duration(cb.OpenSeconds) * time.Second,
	}
}

func printf(format string, args ...any) {
	fmt.Fprintf(os.Stdout, format+"\n", args...)
}
