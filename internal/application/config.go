package application

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the root operational configuration loaded from config/config.yaml.
type Config struct {
	Exchange ExchangeConfig `yaml:"exchange"`
	Store    StoreConfig    `yaml:"store"`
	Backtest BacktestConfig `yaml:"backtest"`
	Notify   NotifyConfig   `yaml:"notify"`
	Server   ServerConfig   `yaml:"server"`
}

type ExchangeConfig struct {
	Venue        string `yaml:"venue"`
	BaseURL      string `yaml:"base_url"`
	SpotBaseURL  string `yaml:"spot_base_url"`
	WSURL        string `yaml:"ws_url"`
	Testnet      bool   `yaml:"testnet"`
	RecvWindowMS int64  `yaml:"recv_window_ms"`
	RateLimit    struct {
		RequestsPerSecond float64 `yaml:"requests_per_second"`
		Burst             int     `yaml:"burst"`
		TimeoutSeconds    int     `yaml:"timeout_seconds"`
	} `yaml:"rate_limit"`
	CircuitBreaker struct {
		ConsecutiveFailures uint32  `yaml:"consecutive_failures"`
		FailureRatio        float64 `yaml:"failure_ratio"`
		MinRequests         uint32  `yaml:"min_requests"`
		OpenSeconds         int     `yaml:"open_seconds"`
	} `yaml:"circuit_breaker"`
}

func (c *ExchangeConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RateLimit.TimeoutSeconds) * time.Second
}

type StoreConfig struct {
	Postgres struct {
		DSN                    string `yaml:"dsn"`
		MaxOpenConns           int    `yaml:"max_open_conns"`
		MaxIdleConns           int    `yaml:"max_idle_conns"`
		ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
		QueryTimeoutSeconds    int    `yaml:"query_timeout_seconds"`
		Enabled                bool   `yaml:"enabled"`
	} `yaml:"postgres"`
	Redis struct {
		Addr              string `yaml:"addr"`
		DB                int    `yaml:"db"`
		DefaultTTLSeconds int    `yaml:"default_ttl_seconds"`
		Enabled           bool   `yaml:"enabled"`
	} `yaml:"redis"`
}

func (c *StoreConfig) QueryTimeout() time.Duration {
	return time.Duration(c.Postgres.QueryTimeoutSeconds) * time.Second
}

func (c *StoreConfig) DefaultTTL() time.Duration {
	return time.Duration(c.Redis.DefaultTTLSeconds) * time.Second
}

type BacktestConfig struct {
	InitCash     float64 `yaml:"init_cash"`
	Fees         float64 `yaml:"fees"`
	Slippage     float64 `yaml:"slippage"`
	SizePercent  float64 `yaml:"size_percent"`
	AllowPartial bool    `yaml:"allow_partial"`
	OutputDir    string  `yaml:"output_dir"`
}

type NotifyConfig struct {
	Telegram struct {
		Enabled        bool   `yaml:"enabled"`
		DefaultChannel string `yaml:"default_channel"`
	} `yaml:"telegram"`
}

type ServerConfig struct {
	Host                string `yaml:"host"`
	Port                int    `yaml:"port"`
	ReadTimeoutSeconds  int    `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `yaml:"write_timeout_seconds"`
	IdleTimeoutSeconds  int    `yaml:"idle_timeout_seconds"`
}

// LoadConfig reads the YAML config from path and applies defaults for
// anything left unset.
func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	c := DefaultConfig()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return c, nil
}

// DefaultConfig returns the configuration used when config.yaml is absent.
func DefaultConfig() *Config {
	c := &Config{}
	c.Exchange.Venue = "binance"
	c.Exchange.BaseURL = "https://fapi.binance.com"
	c.Exchange.SpotBaseURL = "https://api.binance.com"
	c.Exchange.WSURL = "wss://fstream.binance.com/ws"
	c.Exchange.RecvWindowMS = 5000
	c.Exchange.RateLimit.RequestsPerSecond = 8
	c.Exchange.RateLimit.Burst = 16
	c.Exchange.RateLimit.TimeoutSeconds = 10
	c.Exchange.CircuitBreaker.ConsecutiveFailures = 3
	c.Exchange.CircuitBreaker.FailureRatio = 0.05
	c.Exchange.CircuitBreaker.MinRequests = 20
	c.Exchange.CircuitBreaker.OpenSeconds = 60
	c.Store.Postgres.MaxOpenConns = 10
	c.Store.Postgres.MaxIdleConns = 5
	c.Store.Postgres.ConnMaxLifetimeMinutes = 30
	c.Store.Postgres.QueryTimeoutSeconds = 30
	c.Store.Redis.Addr = "localhost:6379"
	c.Store.Redis.DefaultTTLSeconds = 300
	c.Backtest.InitCash = 100000
	c.Backtest.Fees = 0.0005
	c.Backtest.Slippage = 0.001
	c.Backtest.SizePercent = 0.01
	c.Backtest.AllowPartial = true
	c.Backtest.OutputDir = "out/backtests"
	c.Notify.Telegram.DefaultChannel = "debug_logs"
	c.Server.Host = "127.0.0.1"
	c.Server.Port = 8080
	c.Server.ReadTimeoutSeconds = 10
	c.Server.WriteTimeoutSeconds = 10
	c.Server.IdleTimeoutSeconds = 60
	return c
}

// Params is the opaque string-parameter bag from config.json. Keys carry
// no schema; callers supply their own defaults.
type Params map[string]string

// LoadParams reads config.json. A missing file yields an empty bag.
func LoadParams(path string) (Params, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Params{}, nil
		}
		return nil, fmt.Errorf("failed to read params: %w", err)
	}
	var p Params
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal params: %w", err)
	}
	return p, nil
}

// Get returns the parameter value, or def when the key is absent.
func (p Params) Get(key, def string) string {
	if v, ok := p[key]; ok {
		return v
	}
	return def
}

// Secrets holds credentials loaded from the environment.
type Secrets struct {
	BinanceAPIKey    string
	BinanceAPISecret string
	TelegramToken    string
	TelegramChannels map[string]string
}

// LoadSecrets loads config/.env (when present) and reads credentials
// from the environment. A missing .env file is not an error.
func LoadSecrets(envPath string) (*Secrets, error) {
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", envPath, err)
		}
	}

	s := &Secrets{
		BinanceAPIKey:    os.Getenv("BINANCE_API_KEY"),
		BinanceAPISecret: os.Getenv("BINANCE_API_SECRET"),
		TelegramToken:    os.Getenv("TELEGRAM_TOKEN"),
		TelegramChannels: make(map[string]string),
	}

	if raw := os.Getenv("TELEGRAM_BOT_CHANNELS"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &s.TelegramChannels); err != nil {
			return nil, fmt.Errorf("failed to parse TELEGRAM_BOT_CHANNELS: %w", err)
		}
	}

	return s, nil
}

// RequireTrading validates that signed-endpoint credentials are present.
func (s *Secrets) RequireTrading() error {
	if s.BinanceAPIKey == "" || s.BinanceAPISecret == "" {
		return fmt.Errorf("binance API key and secret must be set in the environment or config/.env")
	}
	return nil
}
