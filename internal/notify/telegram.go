package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// Notifier delivers operational messages to a channel. Delivery failures
// are logged, never returned: trading paths must not fail on messaging.
type Notifier interface {
	Send(ctx context.Context, text string)
	SendTo(ctx context.Context, channel, text string)
}

// TelegramNotifier sends messages through the Telegram Bot API.
type TelegramNotifier struct {
	token          string
	channels       map[string]string // channel name -> chat ID
	defaultChannel string
	client         *http.Client
	baseURL        string
}

// TelegramOption customizes the notifier.
type TelegramOption func(*TelegramNotifier)

// WithBaseURL overrides the Bot API endpoint (used in tests).
func WithBaseURL(url string) TelegramOption {
	return func(n *TelegramNotifier) { n.baseURL = url }
}

// NewTelegram creates a Telegram notifier routing named channels to chat
// IDs. defaultChannel is used by Send.
func NewTelegram(token string, channels map[string]string, defaultChannel string, opts ...TelegramOption) *TelegramNotifier {
	n := &TelegramNotifier{
		token:          token,
		channels:       channels,
		defaultChannel: defaultChannel,
		client:         &http.Client{Timeout: 10 * time.Second},
		baseURL:        "https://api.telegram.org",
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Send delivers text to the default channel.
func (n *TelegramNotifier) Send(ctx context.Context, text string) {
	n.SendTo(ctx, n.defaultChannel, text)
}

// SendTo delivers text to a named channel.
func (n *TelegramNotifier) SendTo(ctx context.Context, channel, text string) {
	chatID, ok := n.channels[channel]
	if !ok {
		log.Warn().Str("channel", channel).Msg("telegram channel not configured, dropping message")
		return
	}

	payload, err := json.Marshal(map[string]string{
		"chat_id": chatID,
		"text":    text,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal telegram payload")
		return
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		log.Error().Err(err).Msg("failed to build telegram request")
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		log.Error().Err(err).Str("channel", channel).Msg("telegram send failed")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Error().Int("status", resp.StatusCode).Str("channel", channel).Msg("telegram send rejected")
	}
}

// LogNotifier writes messages to the structured log instead of a
// messaging backend. Used when Telegram is disabled.
type LogNotifier struct{}

// NewLog creates a log-only notifier.
func NewLog() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Send(ctx context.Context, text string) {
	log.Info().Str("channel", "log").Msg(text)
}

func (n *LogNotifier) SendTo(ctx context.Context, channel, text string) {
	log.Info().Str("channel", channel).Msg(text)
}
