// Package http serves the monitoring and read-only API surface:
// health, Prometheus metrics, saved backtests, open positions and the
// tradable universe.
package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/algopy/algopy/internal/application"
	"github.com/algopy/algopy/internal/backtest"
	"github.com/algopy/algopy/internal/oms"
	"github.com/algopy/algopy/internal/store"
	"github.com/algopy/algopy/internal/strategy"
	"github.com/algopy/algopy/internal/universe"
)

// HealthCheck reports whether one backing component is reachable.
type HealthCheck func(ctx context.Context) error

// Deps are the services the API reads from. Nil fields disable their
// routes with 503 responses.
type Deps struct {
	OMS      oms.OMS
	Writer   *backtest.Writer
	Universe *universe.Universe
	Candles  *store.WindowBuffer

	// BreakerState reports the venue circuit breaker; Checks are polled
	// by /health per component.
	BreakerState func() string
	Checks       map[string]HealthCheck
}

// Server is the HTTP API server.
type Server struct {
	cfg    application.ServerConfig
	deps   Deps
	router *mux.Router
	srv    *http.Server
}

// NewServer creates a server bound to the configured host and port.
func NewServer(cfg application.ServerConfig, deps Deps) *Server {
	s := &Server{cfg: cfg, deps: deps, router: mux.NewRouter()}
	s.routes()

	s.srv = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.router,
		ReadTimeout:  time.Duration(cfg.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeoutSeconds) * time.Second,
		IdleTimeout:  time.Duration(cfg.IdleTimeoutSeconds) * time.Second,
	}
	return s
}

func (s *Server) routes() {
	s.router.Use(loggingMiddleware)

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/strategies", s.handleStrategies).Methods(http.MethodGet)
	api.HandleFunc("/backtests", s.handleBacktests).Methods(http.MethodGet)
	api.HandleFunc("/backtests/{name}", s.handleBacktest).Methods(http.MethodGet)
	api.HandleFunc("/positions", s.handlePositions).Methods(http.MethodGet)
	api.HandleFunc("/balances", s.handleBalances).Methods(http.MethodGet)
	api.HandleFunc("/orders", s.handleOrders).Methods(http.MethodGet)
	api.HandleFunc("/universe", s.handleUniverse).Methods(http.MethodGet)
	api.HandleFunc("/candles/{symbol}", s.handleCandles).Methods(http.MethodGet)
}

// Router exposes the handler for tests.
func (s *Server) Router() http.Handler { return s.router }

// Start serves until the context is canceled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.srv.Addr).Msg("http server listening")
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	log.Info().Msg("http server shutting down")
	return s.srv.Shutdown(shutdownCtx)
}

const healthCheckTimeout = 2 * time.Second

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	components := map[string]string{}

	for name, check := range s.deps.Checks {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		err := check(ctx)
		cancel()
		if err != nil {
			components[name] = err.Error()
			status = "degraded"
			continue
		}
		components[name] = "ok"
	}

	if s.deps.BreakerState != nil {
		state := s.deps.BreakerState()
		components["exchange_breaker"] = state
		if state == "open" {
			status = "degraded"
		}
	}

	body := map[string]any{
		"status": status,
		"time":   time.Now().UTC().Format(time.RFC3339),
	}
	if len(components) > 0 {
		body["components"] = components
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleCandles(w http.ResponseWriter, r *http.Request) {
	if s.deps.Candles == nil {
		writeError(w, http.StatusServiceUnavailable, "live candles not configured")
		return
	}
	symbol := strings.ToUpper(mux.Vars(r)["symbol"])
	candles := s.deps.Candles.Series(symbol)
	if candles == nil {
		candles = []store.Candle{}
	}
	writeJSON(w, http.StatusOK, candles)
}

func (s *Server) handleStrategies(w http.ResponseWriter, r *http.Request) {
	type entry struct {
		Name  string               `json:"name"`
		Specs []strategy.ParamSpec `json:"specs"`
	}
	var out []entry
	for _, name := range strategy.List() {
		strat, err := strategy.Get(name)
		if err != nil {
			continue
		}
		out = append(out, entry{Name: name, Specs: strat.Specs()})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleBacktests(w http.ResponseWriter, r *http.Request) {
	if s.deps.Writer == nil {
		writeError(w, http.StatusServiceUnavailable, "backtest storage not configured")
		return
	}
	runs, err := s.deps.Writer.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if runs == nil {
		runs = []backtest.SavedRun{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleBacktest(w http.ResponseWriter, r *http.Request) {
	if s.deps.Writer == nil {
		writeError(w, http.StatusServiceUnavailable, "backtest storage not configured")
		return
	}
	name := mux.Vars(r)["name"]

	runs, err := s.deps.Writer.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	for _, run := range runs {
		if run.Name == name {
			res, err := s.deps.Writer.Load(run.Dir)
			if err != nil {
				writeError(w, http.StatusInternalServerError, err.Error())
				return
			}
			writeJSON(w, http.StatusOK, res)
			return
		}
	}
	writeError(w, http.StatusNotFound, "backtest not found: "+name)
}

func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	if s.deps.OMS == nil {
		writeError(w, http.StatusServiceUnavailable, "order management not configured")
		return
	}
	positions, err := s.deps.OMS.OpenPositions(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	if positions == nil {
		positions = []oms.Position{}
	}
	writeJSON(w, http.StatusOK, positions)
}

func (s *Server) handleBalances(w http.ResponseWriter, r *http.Request) {
	if s.deps.OMS == nil {
		writeError(w, http.StatusServiceUnavailable, "order management not configured")
		return
	}
	balances, err := s.deps.OMS.AccountBalances(r.Context(), r.URL.Query().Get("asset"))
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	if balances == nil {
		balances = []oms.Balance{}
	}
	writeJSON(w, http.StatusOK, balances)
}

func (s *Server) handleOrders(w http.ResponseWriter, r *http.Request) {
	if s.deps.OMS == nil {
		writeError(w, http.StatusServiceUnavailable, "order management not configured")
		return
	}
	ledger := s.deps.OMS.Ledger()
	writeJSON(w, http.StatusOK, map[string]any{
		"successful": ledger.Successful(),
		"failed":     ledger.Failed(),
	})
}

func (s *Server) handleUniverse(w http.ResponseWriter, r *http.Request) {
	if s.deps.Universe == nil {
		writeError(w, http.StatusServiceUnavailable, "universe not configured")
		return
	}
	if q := r.URL.Query().Get("q"); q != "" {
		writeJSON(w, http.StatusOK, s.deps.Universe.Search(q))
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Universe.Groups())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
