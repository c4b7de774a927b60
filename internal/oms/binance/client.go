// Package binance implements the order management interface against the
// Binance USDT-margined futures and spot REST APIs. Every call runs
// through the shared rate limiter and a circuit breaker, and every order
// outcome is journaled and mirrored to the notifier.
package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/algopy/algopy/internal/metrics"
	"github.com/algopy/algopy/internal/net/circuit"
	"github.com/algopy/algopy/internal/net/ratelimit"
	"github.com/algopy/algopy/internal/notify"
	"github.com/algopy/algopy/internal/oms"
)

const venueName = "binance"

// Config carries the adapter's connection settings.
type Config struct {
	BaseURL      string // futures REST base
	SpotBaseURL  string
	WSURL        string
	APIKey       string
	APISecret    string
	RecvWindowMS int64
	Timeout      time.Duration
	RateRPS      float64
	RateBurst    int
	Breaker      circuit.Config
}

// Client is the Binance venue adapter.
type Client struct {
	cfg        Config
	httpClient *http.Client
	limiter    *ratelimit.Limiter
	breaker    *circuit.Breaker
	ledger     *oms.Ledger
	notifier   notify.Notifier
	metrics    *metrics.Registry
	filters    *filterCache
	marks      *markCache
	onMark     func(symbol string, price float64, at time.Time)
	nowFn      func() time.Time
}

// New creates a Binance adapter. A nil notifier falls back to the log
// notifier.
func New(cfg Config, notifier notify.Notifier) *Client {
	if cfg.RecvWindowMS <= 0 {
		cfg.RecvWindowMS = 5000
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RateRPS <= 0 {
		cfg.RateRPS = 8
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 16
	}
	if cfg.Breaker == (circuit.Config{}) {
		cfg.Breaker = circuit.DefaultConfig()
	}
	if notifier == nil {
		notifier = notify.NewLog()
	}

	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    ratelimit.NewLimiter(cfg.RateRPS, cfg.RateBurst),
		breaker:    circuit.New(venueName, cfg.Breaker),
		ledger:     oms.NewLedger(),
		notifier:   notifier,
		metrics:    metrics.Default(),
		nowFn:      time.Now,
	}
	c.filters = newFilterCache(c)
	c.marks = newMarkCache()
	return c
}

// Venue returns the adapter's venue name.
func (c *Client) Venue() string { return venueName }

// OnMark registers a callback for every streamed mark price update.
// Set it before StreamMarkPrices starts; the callback runs on the
// stream goroutine.
func (c *Client) OnMark(fn func(symbol string, price float64, at time.Time)) {
	c.onMark = fn
}

// BreakerState reports the circuit breaker state (closed, half-open or
// open).
func (c *Client) BreakerState() string { return c.breaker.State() }

// Ledger returns the order journals.
func (c *Client) Ledger() *oms.Ledger { return c.ledger }

type apiError struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// call performs one REST request: rate limit, breaker, optional HMAC
// signing, then decode into out. Exchange rejections come back as
// *oms.Error.
func (c *Client) call(ctx context.Context, method, base, path string, params url.Values, signed bool, out any) error {
	if err := c.limiter.Wait(ctx, venueName); err != nil {
		return &oms.Error{Venue: venueName, Code: oms.ErrCodeRateLimit, Message: "rate limit wait aborted", Temporary: true, Cause: err}
	}

	start := c.nowFn()
	err := c.breaker.Execute(func() error {
		return c.doRequest(ctx, method, base, path, params, signed, out)
	})
	c.metrics.APILatency.WithLabelValues(venueName, path).Observe(time.Since(start).Seconds())
	c.metrics.BreakerState.WithLabelValues(venueName).Set(metrics.BreakerStateValue(c.breaker.State()))

	if err == circuit.ErrOpen {
		return &oms.Error{Venue: venueName, Code: oms.ErrCodeCircuitOpen, Message: "circuit breaker open", Temporary: true, Cause: err}
	}
	return err
}

func (c *Client) doRequest(ctx context.Context, method, base, path string, params url.Values, signed bool, out any) error {
	if params == nil {
		params = url.Values{}
	}
	if signed {
		params.Set("timestamp", strconv.FormatInt(c.nowFn().UnixMilli(), 10))
		params.Set("recvWindow", strconv.FormatInt(c.cfg.RecvWindowMS, 10))
		params.Set("signature", sign(params.Encode(), c.cfg.APISecret))
	}

	reqURL := base + path
	if encoded := params.Encode(); encoded != "" {
		reqURL += "?" + encoded
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, nil)
	if err != nil {
		return &oms.Error{Venue: venueName, Code: oms.ErrCodeInvalidData, Message: "failed to build request", Cause: err}
	}
	if c.cfg.APIKey != "" {
		req.Header.Set("X-MBX-APIKEY", c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &oms.Error{Venue: venueName, Code: oms.ErrCodeNetwork, Message: "request failed", Temporary: true, Cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return &oms.Error{Venue: venueName, Code: oms.ErrCodeNetwork, Message: "failed to read response", Temporary: true, Cause: err}
	}

	if resp.StatusCode != http.StatusOK {
		var ae apiError
		_ = json.Unmarshal(body, &ae)
		return c.mapError(resp.StatusCode, ae)
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return &oms.Error{Venue: venueName, Code: oms.ErrCodeInvalidData, Message: "failed to decode response", Cause: err}
		}
	}
	return nil
}

// mapError converts a Binance error payload into a venue error. Codes
// follow the exchange's documented numbering.
func (c *Client) mapError(status int, ae apiError) *oms.Error {
	msg := ae.Msg
	if msg == "" {
		msg = fmt.Sprintf("http status %d", status)
	}

	switch {
	case status == http.StatusTooManyRequests || status == http.StatusTeapot || ae.Code == -1003:
		return &oms.Error{Venue: venueName, Code: oms.ErrCodeRateLimit, Message: msg, Temporary: true}
	case ae.Code == -1121:
		return &oms.Error{Venue: venueName, Code: oms.ErrCodeInvalidSymbol, Message: msg}
	case ae.Code == -2014 || ae.Code == -2015 || ae.Code == -1022 || status == http.StatusUnauthorized:
		return &oms.Error{Venue: venueName, Code: oms.ErrCodeAuth, Message: msg}
	case ae.Code == -4164:
		return &oms.Error{Venue: venueName, Code: oms.ErrCodeMinNotional, Message: msg}
	case status >= 500:
		return &oms.Error{Venue: venueName, Code: oms.ErrCodeNetwork, Message: msg, Temporary: true}
	default:
		return &oms.Error{Venue: venueName, Code: oms.ErrCodeRejected, Message: msg}
	}
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		log.Debug().Str("value", s).Msg("unparseable numeric field")
		return 0
	}
	return v
}
