package binance

import (
	"context"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/algopy/algopy/internal/oms"
)

// filterTTL bounds how long exchange precision filters are reused before
// a refresh.
const filterTTL = time.Hour

// symbolFilter holds the trading constraints for one futures symbol.
type symbolFilter struct {
	Symbol      string
	StepSize    float64 // LOT_SIZE quantity increment
	TickSize    float64 // PRICE_FILTER price increment
	MinNotional float64 // MIN_NOTIONAL order value floor
	QtyDecimals int
	PxDecimals  int
}

// FloorQty rounds a quantity down to the symbol's step size.
func (f *symbolFilter) FloorQty(qty float64) float64 {
	return floorToIncrement(qty, f.StepSize, f.QtyDecimals)
}

// FloorPrice rounds a price down to the symbol's tick size.
func (f *symbolFilter) FloorPrice(px float64) float64 {
	return floorToIncrement(px, f.TickSize, f.PxDecimals)
}

// FormatQty renders a quantity with the symbol's quantity precision.
func (f *symbolFilter) FormatQty(qty float64) string {
	return strconv.FormatFloat(qty, 'f', f.QtyDecimals, 64)
}

// FormatPrice renders a price with the symbol's price precision.
func (f *symbolFilter) FormatPrice(px float64) string {
	return strconv.FormatFloat(px, 'f', f.PxDecimals, 64)
}

func floorToIncrement(v, inc float64, decimals int) float64 {
	if inc <= 0 {
		return v
	}
	floored := math.Floor(v/inc+1e-9) * inc
	// Re-round to the increment's precision to shed float residue.
	scale := math.Pow10(decimals)
	return math.Floor(floored*scale+0.5) / scale
}

// decimalsOf counts significant decimal places in an increment string
// like "0.001" or "0.10000000".
func decimalsOf(s string) int {
	i := strings.IndexByte(s, '.')
	if i < 0 {
		return 0
	}
	frac := strings.TrimRight(s[i+1:], "0")
	return len(frac)
}

// filterCache lazily loads and caches futures exchange info filters.
type filterCache struct {
	client *Client

	mu      sync.RWMutex
	filters map[string]*symbolFilter
	loaded  time.Time
}

func newFilterCache(c *Client) *filterCache {
	return &filterCache{client: c, filters: make(map[string]*symbolFilter)}
}

type exchangeInfoResponse struct {
	Symbols []struct {
		Symbol  string `json:"symbol"`
		Status  string `json:"status"`
		Filters []struct {
			FilterType string `json:"filterType"`
			StepSize   string `json:"stepSize"`
			TickSize   string `json:"tickSize"`
			Notional   string `json:"notional"`
		} `json:"filters"`
	} `json:"symbols"`
}

// Get returns the filter for a symbol, refreshing the cache when stale.
func (fc *filterCache) Get(ctx context.Context, symbol string) (*symbolFilter, error) {
	fc.mu.RLock()
	f, ok := fc.filters[symbol]
	fresh := time.Since(fc.loaded) < filterTTL
	fc.mu.RUnlock()

	if ok && fresh {
		fc.client.metrics.CacheHits.WithLabelValues("exchange_info").Inc()
		return f, nil
	}
	fc.client.metrics.CacheMisses.WithLabelValues("exchange_info").Inc()

	if err := fc.refresh(ctx); err != nil {
		// A stale filter beats a failed order path.
		if ok {
			return f, nil
		}
		return nil, err
	}

	fc.mu.RLock()
	defer fc.mu.RUnlock()
	f, ok = fc.filters[symbol]
	if !ok {
		return nil, &oms.Error{Venue: venueName, Code: oms.ErrCodeInvalidSymbol, Message: "symbol not in exchange info: " + symbol}
	}
	return f, nil
}

func (fc *filterCache) refresh(ctx context.Context) error {
	var resp exchangeInfoResponse
	if err := fc.client.call(ctx, "GET", fc.client.cfg.BaseURL, "/fapi/v1/exchangeInfo", nil, false, &resp); err != nil {
		return err
	}

	filters := make(map[string]*symbolFilter, len(resp.Symbols))
	for _, s := range resp.Symbols {
		f := &symbolFilter{Symbol: s.Symbol, MinNotional: 5}
		for _, raw := range s.Filters {
			switch raw.FilterType {
			case "LOT_SIZE":
				f.StepSize = parseFloat(raw.StepSize)
				f.QtyDecimals = decimalsOf(raw.StepSize)
			case "PRICE_FILTER":
				f.TickSize = parseFloat(raw.TickSize)
				f.PxDecimals = decimalsOf(raw.TickSize)
			case "MIN_NOTIONAL":
				if v := parseFloat(raw.Notional); v > 0 {
					f.MinNotional = v
				}
			}
		}
		filters[s.Symbol] = f
	}

	fc.mu.Lock()
	fc.filters = filters
	fc.loaded = time.Now()
	fc.mu.Unlock()
	return nil
}
