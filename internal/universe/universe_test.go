package universe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testUniverse() *Universe {
	return FromSymbols([]string{
		"BTCUSDT", "ETHUSDT", "SOLUSDT", "ETHBTC", "BNBBTC", "DOGEUSDC",
	})
}

func TestSplitSymbol(t *testing.T) {
	tests := []struct {
		symbol string
		base   string
		quote  string
	}{
		{"BTCUSDT", "BTC", "USDT"},
		{"ETHBTC", "ETH", "BTC"},
		{"DOGEUSDC", "DOGE", "USDC"},
		{"WEIRD", "WEIRD", ""},
	}
	for _, tt := range tests {
		p := splitSymbol(tt.symbol)
		assert.Equal(t, tt.base, p.Base, tt.symbol)
		assert.Equal(t, tt.quote, p.Quote, tt.symbol)
	}
}

func TestGroups(t *testing.T) {
	groups := testUniverse().Groups()

	require.Len(t, groups["USDT"], 3)
	assert.Equal(t, "BTCUSDT", groups["USDT"][0].Symbol)
	assert.Equal(t, "SOLUSDT", groups["USDT"][2].Symbol)
	assert.Len(t, groups["BTC"], 2)
	assert.Len(t, groups["USDC"], 1)
}

func TestSearch(t *testing.T) {
	u := testUniverse()

	hits := u.Search("eth")
	require.Len(t, hits, 2)
	assert.Equal(t, "ETHBTC", hits[0].Symbol)
	assert.Equal(t, "ETHUSDT", hits[1].Symbol)

	assert.Len(t, u.Search(""), u.Len())
	assert.Empty(t, u.Search("xyz"))
}

func TestResolve(t *testing.T) {
	u := testUniverse()

	all, err := u.Resolve(AllMarker, "USDT")
	require.NoError(t, err)
	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT", "SOLUSDT"}, all)

	one, err := u.Resolve("btcusdt", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"BTCUSDT"}, one)

	_, err = u.Resolve("XRPUSDT", "")
	assert.Error(t, err)

	_, err = u.Resolve(AllMarker, "JPY")
	assert.Error(t, err)
}

func TestSetSymbolsReplaces(t *testing.T) {
	u := testUniverse()
	u.SetSymbols([]string{"ADAUSDT"})

	assert.Equal(t, 1, u.Len())
	assert.True(t, u.Contains("ADAUSDT"))
	assert.False(t, u.Contains("BTCUSDT"))
}
