package binance

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/algopy/algopy/internal/notify"
)

const exchangeInfoBody = `{
  "symbols": [
    {
      "symbol": "BTCUSDT",
      "status": "TRADING",
      "filters": [
        {"filterType": "PRICE_FILTER", "tickSize": "0.10"},
        {"filterType": "LOT_SIZE", "stepSize": "0.001"},
        {"filterType": "MIN_NOTIONAL", "notional": "5"}
      ]
    },
    {
      "symbol": "DOGEUSDT",
      "status": "TRADING",
      "filters": [
        {"filterType": "PRICE_FILTER", "tickSize": "0.000010"},
        {"filterType": "LOT_SIZE", "stepSize": "1"},
        {"filterType": "MIN_NOTIONAL", "notional": "5"}
      ]
    }
  ]
}`

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	return New(Config{
		BaseURL:     baseURL,
		SpotBaseURL: baseURL,
		APIKey:      "test-key",
		APISecret:   "test-secret",
		Timeout:     2 * time.Second,
		RateRPS:     1000,
		RateBurst:   1000,
	}, notify.NewLog())
}

func TestDecimalsOf(t *testing.T) {
	tests := []struct {
		increment string
		want      int
	}{
		{"1", 0},
		{"0.1", 1},
		{"0.001", 3},
		{"0.10000000", 1},
		{"0.000010", 5},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, decimalsOf(tt.increment), "increment %s", tt.increment)
	}
}

func TestFloorToIncrement(t *testing.T) {
	tests := []struct {
		name     string
		v        float64
		inc      float64
		decimals int
		want     float64
	}{
		{"rounds down to step", 0.0456, 0.001, 3, 0.045},
		{"exact multiple unchanged", 0.045, 0.001, 3, 0.045},
		{"whole step", 30.9, 1, 0, 30},
		{"zero increment passthrough", 1.2345, 0, 0, 1.2345},
		{"float residue cleaned", 0.1 + 0.2, 0.1, 1, 0.3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, floorToIncrement(tt.v, tt.inc, tt.decimals), 1e-12)
		})
	}
}

func TestFilterCache_LoadsAndCaches(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/fapi/v1/exchangeInfo", r.URL.Path)
		calls.Add(1)
		w.Write([]byte(exchangeInfoBody))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	ctx := context.Background()

	f, err := client.filters.Get(ctx, "BTCUSDT")
	require.NoError(t, err)
	assert.Equal(t, 0.001, f.StepSize)
	assert.Equal(t, 0.10, f.TickSize)
	assert.Equal(t, 5.0, f.MinNotional)
	assert.Equal(t, 3, f.QtyDecimals)
	assert.Equal(t, 1, f.PxDecimals)

	// Second lookup, same refresh window: served from cache.
	_, err = client.filters.Get(ctx, "DOGEUSDT")
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())

	assert.Equal(t, "0.045", f.FormatQty(f.FloorQty(0.0456)))
	assert.Equal(t, "50000.1", f.FormatPrice(f.FloorPrice(50000.19)))
}

func TestFilterCache_UnknownSymbol(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(exchangeInfoBody))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	_, err := client.filters.Get(context.Background(), "NOPEUSDT")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INVALID_SYMBOL")
}
