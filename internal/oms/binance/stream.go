package binance

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// markCache holds the latest websocket mark price per symbol. Entries
// older than markStaleAfter are ignored so a dead stream falls back to
// REST lookups.
const markStaleAfter = 10 * time.Second

type markCache struct {
	mu    sync.RWMutex
	marks map[string]markEntry
}

type markEntry struct {
	price float64
	at    time.Time
}

func newMarkCache() *markCache {
	return &markCache{marks: make(map[string]markEntry)}
}

func (m *markCache) Set(symbol string, price float64) {
	m.mu.Lock()
	m.marks[symbol] = markEntry{price: price, at: time.Now()}
	m.mu.Unlock()
}

func (m *markCache) Get(symbol string) (float64, bool) {
	m.mu.RLock()
	e, ok := m.marks[symbol]
	m.mu.RUnlock()
	if !ok || e.price <= 0 || time.Since(e.at) > markStaleAfter {
		return 0, false
	}
	return e.price, true
}

type markPriceEvent struct {
	EventType string `json:"e"`
	Symbol    string `json:"s"`
	MarkPrice string `json:"p"`
}

// StreamMarkPrices subscribes to the all-symbol mark price stream and
// feeds the adapter's mark cache until ctx is canceled. Disconnects
// reconnect with backoff.
func (c *Client) StreamMarkPrices(ctx context.Context) error {
	backoff := time.Second
	for {
		if err := c.streamOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.metrics.WSReconnects.WithLabelValues(venueName).Inc()
			log.Warn().Err(err).Dur("backoff", backoff).Msg("mark price stream disconnected, reconnecting")
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

func (c *Client) streamOnce(ctx context.Context) error {
	streamURL := c.cfg.WSURL + "/!markPrice@arr"
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, streamURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	log.Info().Str("url", streamURL).Msg("mark price stream connected")

	// Close the socket when ctx ends so ReadMessage unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		c.handleMarkFrame(payload)
	}
}

// handleMarkFrame folds one stream frame into the mark cache and the
// registered tick callback.
func (c *Client) handleMarkFrame(payload []byte) {
	var events []markPriceEvent
	if err := json.Unmarshal(payload, &events); err != nil {
		log.Debug().Err(err).Msg("unparseable mark price frame")
		return
	}
	now := c.nowFn()
	for _, ev := range events {
		if ev.EventType != "markPriceUpdate" {
			continue
		}
		px := parseFloat(ev.MarkPrice)
		if px <= 0 {
			continue
		}
		c.marks.Set(ev.Symbol, px)
		if c.onMark != nil {
			c.onMark(ev.Symbol, px, now)
		}
	}
}
