package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter provides per-venue request throttling using a token bucket.
type Limiter struct {
	mu     sync.RWMutex
	venues map[string]*rate.Limiter
	rps    float64
	burst  int
}

// NewLimiter creates a limiter with the given requests-per-second and
// burst capacity applied to every venue.
func NewLimiter(rps float64, burst int) *Limiter {
	return &Limiter{
		venues: make(map[string]*rate.Limiter),
		rps:    rps,
		burst:  burst,
	}
}

func (l *Limiter) getLimiter(venue string) *rate.Limiter {
	l.mu.RLock()
	limiter, exists := l.venues[venue]
	l.mu.RUnlock()

	if exists {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// Double-check after acquiring write lock
	if limiter, exists := l.venues[venue]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(rate.Limit(l.rps), l.burst)
	l.venues[venue] = limiter
	return limiter
}

// Allow reports whether a request for the venue may proceed immediately.
func (l *Limiter) Allow(venue string) bool {
	return l.getLimiter(venue).Allow()
}

// Wait blocks until a request for the venue is allowed or ctx is done.
func (l *Limiter) Wait(ctx context.Context, venue string) error {
	return l.getLimiter(venue).Wait(ctx)
}

// SetRPS updates the requests per second for all venue limiters.
func (l *Limiter) SetRPS(rps float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.rps = rps
	for _, limiter := range l.venues {
		limiter.SetLimit(rate.Limit(rps))
	}
}

// Stats returns per-venue limiter statistics.
func (l *Limiter) Stats() map[string]Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()

	stats := make(map[string]Stats)
	now := time.Now()

	for venue, limiter := range l.venues {
		reservation := limiter.Reserve()
		delay := reservation.Delay()
		reservation.Cancel()

		stats[venue] = Stats{
			Venue:           venue,
			RPS:             float64(limiter.Limit()),
			Burst:           limiter.Burst(),
			TokensAvailable: limiter.Tokens(),
			NextAllowedAt:   now.Add(delay),
			Delay:           delay,
		}
	}

	return stats
}

// Stats represents statistics for a single venue limiter.
type Stats struct {
	Venue           string        `json:"venue"`
	RPS             float64       `json:"rps"`
	Burst           int           `json:"burst"`
	TokensAvailable float64       `json:"tokens_available"`
	NextAllowedAt   time.Time     `json:"next_allowed_at"`
	Delay           time.Duration `json:"delay"`
}

// IsThrottled reports whether the limiter is currently delaying requests.
func (s *Stats) IsThrottled() bool {
	return s.Delay > 0
}
