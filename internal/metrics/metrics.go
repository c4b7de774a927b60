// Package metrics exposes the Prometheus collectors shared across the
// toolkit. Collectors are registered once on the default registry and
// served by the monitor HTTP server.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

// Registry holds all algopy Prometheus collectors.
type Registry struct {
	OrdersPlaced   *prometheus.CounterVec
	OrdersFailed   *prometheus.CounterVec
	OrdersCanceled *prometheus.CounterVec
	APILatency     *prometheus.HistogramVec
	CacheHits      *prometheus.CounterVec
	CacheMisses    *prometheus.CounterVec
	BacktestRuns   prometheus.Counter
	WSReconnects   *prometheus.CounterVec
	BreakerState   *prometheus.GaugeVec
}

var (
	defaultRegistry *Registry
	once            sync.Once
)

// NewRegistry creates the collector set without registering it.
func NewRegistry() *Registry {
	return &Registry{
		OrdersPlaced: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "algopy_orders_placed_total",
				Help: "Total orders accepted by the exchange",
			},
			[]string{"venue", "type"},
		),
		OrdersFailed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "algopy_orders_failed_total",
				Help: "Total orders rejected or errored",
			},
			[]string{"venue", "code"},
		),
		OrdersCanceled: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "algopy_orders_canceled_total",
				Help: "Total orders canceled",
			},
			[]string{"venue"},
		),
		APILatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "algopy_exchange_api_latency_seconds",
				Help:    "Exchange REST call latency in seconds",
				Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
			},
			[]string{"venue", "endpoint"},
		),
		CacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "algopy_cache_hits_total",
				Help: "Cache hits by cache type",
			},
			[]string{"cache_type"},
		),
		CacheMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "algopy_cache_misses_total",
				Help: "Cache misses by cache type",
			},
			[]string{"cache_type"},
		),
		BacktestRuns: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "algopy_backtest_runs_total",
				Help: "Total backtest executions",
			},
		),
		WSReconnects: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "algopy_ws_reconnects_total",
				Help: "WebSocket reconnect attempts by venue",
			},
			[]string{"venue"},
		),
		BreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "algopy_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
			},
			[]string{"venue"},
		),
	}
}

// register adds all collectors to the given registerer.
func (r *Registry) register(reg prometheus.Registerer) {
	collectors := []prometheus.Collector{
		r.OrdersPlaced, r.OrdersFailed, r.OrdersCanceled, r.APILatency,
		r.CacheHits, r.CacheMisses, r.BacktestRuns, r.WSReconnects,
		r.BreakerState,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			log.Warn().Err(err).Msg("metrics collector registration failed")
		}
	}
}

// Default returns the process-wide registry, registering it on first use.
func Default() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
		defaultRegistry.register(prometheus.DefaultRegisterer)
	})
	return defaultRegistry
}

// BreakerStateValue maps a breaker state string to the gauge encoding.
func BreakerStateValue(state string) float64 {
	switch state {
	case "closed":
		return 0
	case "half-open":
		return 1
	case "open":
		return 2
	default:
		return -1
	}
}
