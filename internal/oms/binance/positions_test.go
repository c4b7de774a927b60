package binance

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/algopy/algopy/internal/oms"
)

const positionRiskBody = `[
  {"symbol":"BTCUSDT","positionAmt":"0.500","entryPrice":"48000.0","markPrice":"50000.0","unRealizedProfit":"1000.0","leverage":"10","liquidationPrice":"30000.0"},
  {"symbol":"DOGEUSDT","positionAmt":"30","entryPrice":"0.12","markPrice":"0.10","unRealizedProfit":"-0.6","leverage":"5","liquidationPrice":"0"},
  {"symbol":"ETHUSDT","positionAmt":"0.000","entryPrice":"0.0","markPrice":"3000.0","unRealizedProfit":"0","leverage":"20","liquidationPrice":"0"}
]`

func newPositionsHarness(t *testing.T) (*httptest.Server, *[]url.Values) {
	t.Helper()
	orders := &[]url.Values{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/fapi/v2/positionRisk":
			w.Write([]byte(positionRiskBody))
		case "/fapi/v1/exchangeInfo":
			w.Write([]byte(exchangeInfoBody))
		case "/fapi/v1/premiumIndex":
			fmt.Fprintf(w, `{"symbol":"%s","markPrice":"50000.0"}`, r.URL.Query().Get("symbol"))
		case "/fapi/v1/order":
			q := r.URL.Query()
			*orders = append(*orders, q)
			fmt.Fprintf(w, `{"orderId":7,"clientOrderId":"%s","symbol":"%s","side":"%s","type":"%s","origQty":"%s","status":"FILLED"}`,
				q.Get("newClientOrderId"), q.Get("symbol"), q.Get("side"), q.Get("type"), q.Get("quantity"))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, orders
}

func TestOpenPositions_SkipsFlat(t *testing.T) {
	srv, _ := newPositionsHarness(t)
	client := newTestClient(t, srv.URL)

	positions, err := client.OpenPositions(context.Background())
	require.NoError(t, err)
	require.Len(t, positions, 2)

	btc := positions[0]
	assert.Equal(t, "BTCUSDT", btc.Symbol)
	assert.Equal(t, 0.5, btc.SizeContracts)
	assert.Equal(t, 25000.0, btc.SizeUSD)
	assert.Equal(t, 10, btc.Leverage)
	assert.Equal(t, 1000.0, btc.UnrealizedPnL)
}

func TestOpenPositions_ShortReportsAbsoluteNotional(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/fapi/v2/positionRisk", r.URL.Path)
		w.Write([]byte(`[
			{"symbol":"ETHUSDT","positionAmt":"-2.0","entryPrice":"3200.0","markPrice":"3000.0","unRealizedProfit":"400.0","leverage":"10","liquidationPrice":"0"}
		]`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	positions, err := client.OpenPositions(context.Background())
	require.NoError(t, err)
	require.Len(t, positions, 1)

	short := positions[0]
	assert.Equal(t, -2.0, short.SizeContracts)
	assert.Equal(t, 6000.0, short.SizeUSD)
}

func TestCloseFuturesPositions_FullClose(t *testing.T) {
	srv, orders := newPositionsHarness(t)
	client := newTestClient(t, srv.URL)

	report, err := client.CloseFuturesPositions(context.Background(), oms.CloseRequest{})
	require.NoError(t, err)

	// BTCUSDT closes; DOGEUSDT notional 3.00 is under the 5 USD minimum.
	require.Len(t, *orders, 1)
	placed := (*orders)[0]
	assert.Equal(t, "BTCUSDT", placed.Get("symbol"))
	assert.Equal(t, "SELL", placed.Get("side"))
	assert.Equal(t, "MARKET", placed.Get("type"))
	assert.Equal(t, "0.500", placed.Get("quantity"))
	assert.Equal(t, "true", placed.Get("reduceOnly"))

	assert.Len(t, report.Closed, 1)
	assert.Empty(t, report.Failed)
	require.Len(t, report.Unclosable, 1)
	assert.Equal(t, "DOGEUSDT", report.Unclosable[0].Symbol)
	assert.InDelta(t, 3.0, report.Unclosable[0].Notional, 1e-9)
}

func TestCloseFuturesPositions_PercentageAndClamp(t *testing.T) {
	srv, orders := newPositionsHarness(t)
	client := newTestClient(t, srv.URL)

	report, err := client.CloseFuturesPositions(context.Background(), oms.CloseRequest{
		Symbol:     "BTCUSDT",
		Percentage: 50,
	})
	require.NoError(t, err)
	require.Len(t, report.Closed, 1)
	assert.Equal(t, "0.250", (*orders)[0].Get("quantity"))

	// A contract size above the open position clamps to the open size.
	*orders = nil
	report, err = client.CloseFuturesPositions(context.Background(), oms.CloseRequest{
		Symbol: "BTCUSDT",
		Qty:    2.0,
		Unit:   oms.Contracts,
	})
	require.NoError(t, err)
	require.Len(t, report.Closed, 1)
	assert.Equal(t, "0.500", (*orders)[0].Get("quantity"))
}

func TestCloseFuturesPositions_USDSizing(t *testing.T) {
	srv, orders := newPositionsHarness(t)
	client := newTestClient(t, srv.URL)

	// 12500 USD of a 0.5 BTC position at mark 50000 is 0.25 contracts.
	_, err := client.CloseFuturesPositions(context.Background(), oms.CloseRequest{
		Symbol: "BTCUSDT",
		Qty:    12500,
		Unit:   oms.USD,
	})
	require.NoError(t, err)
	require.Len(t, *orders, 1)
	assert.Equal(t, "0.250", (*orders)[0].Get("quantity"))
}

func TestCloseFuturesPositions_NoPositionForSymbol(t *testing.T) {
	srv, _ := newPositionsHarness(t)
	client := newTestClient(t, srv.URL)

	_, err := client.CloseFuturesPositions(context.Background(), oms.CloseRequest{Symbol: "XRPUSDT"})
	require.Error(t, err)

	var ve *oms.Error
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, oms.ErrCodeInvalidSymbol, ve.Code)
}

func TestAccountBalances_FiltersZeroAndAsset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/fapi/v2/balance", r.URL.Path)
		w.Write([]byte(`[
			{"asset":"USDT","balance":"1000.5","availableBalance":"900.5"},
			{"asset":"BNB","balance":"0.0","availableBalance":"0.0"},
			{"asset":"BTC","balance":"0.2","availableBalance":"0.2"}
		]`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	all, err := client.AccountBalances(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "USDT", all[0].Asset)
	assert.InDelta(t, 900.5, all[0].Free, 1e-9)
	assert.InDelta(t, 100.0, all[0].Locked, 1e-9)

	only, err := client.AccountBalances(context.Background(), "BTC")
	require.NoError(t, err)
	require.Len(t, only, 1)
	assert.Equal(t, "BTC", only[0].Asset)
}

func TestMarkPrice_PrefersStreamCache(t *testing.T) {
	var restCalls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		restCalls++
		w.Write([]byte(`{"symbol":"BTCUSDT","markPrice":"49000.0"}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	client.marks.Set("BTCUSDT", 51000)

	px, err := client.markPrice(context.Background(), "BTCUSDT")
	require.NoError(t, err)
	assert.Equal(t, 51000.0, px)
	assert.Equal(t, 0, restCalls)

	px, err = client.markPrice(context.Background(), "ETHUSDT")
	require.NoError(t, err)
	assert.Equal(t, 49000.0, px)
	assert.Equal(t, 1, restCalls)
}
