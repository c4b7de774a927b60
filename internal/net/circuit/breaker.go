package circuit

import (
	"errors"
	"time"

	cb "github.com/sony/gobreaker"
)

// ErrOpen is returned when the breaker rejects a call.
var ErrOpen = errors.New("circuit breaker is open")

// Config controls when the breaker trips and how long it stays open.
type Config struct {
	ConsecutiveFailures uint32
	FailureRatio        float64
	MinRequests         uint32
	OpenTimeout         time.Duration
}

// DefaultConfig matches the venue defaults: trip on 3 consecutive
// failures or a 5% failure ratio over at least 20 requests.
func DefaultConfig() Config {
	return Config{
		ConsecutiveFailures: 3,
		FailureRatio:        0.05,
		MinRequests:         20,
		OpenTimeout:         60 * time.Second,
	}
}

// Breaker wraps sony/gobreaker with venue-oriented settings.
type Breaker struct {
	cb *cb.CircuitBreaker
}

// New creates a named breaker with the given config.
func New(name string, config Config) *Breaker {
	st := cb.Settings{Name: name}
	st.Interval = 60 * time.Second
	st.Timeout = config.OpenTimeout
	st.ReadyToTrip = func(counts cb.Counts) bool {
		if counts.ConsecutiveFailures >= config.ConsecutiveFailures {
			return true
		}
		if counts.Requests < config.MinRequests {
			return false
		}
		return float64(counts.TotalFailures)/float64(counts.Requests) > config.FailureRatio
	}
	return &Breaker{cb: cb.NewCircuitBreaker(st)}
}

// Execute runs fn under breaker protection. When the breaker is open the
// call is rejected with ErrOpen without invoking fn.
func (b *Breaker) Execute(fn func() error) error {
	_, err := b.cb.Execute(func() (any, error) {
		return nil, fn()
	})
	if errors.Is(err, cb.ErrOpenState) || errors.Is(err, cb.ErrTooManyRequests) {
		return ErrOpen
	}
	return err
}

// State returns the breaker state as a string: closed, half-open or open.
func (b *Breaker) State() string {
	return b.cb.State().String()
}
