// Package universe tracks the tradable symbol set, grouped by quote
// asset, with search and wildcard resolution for interactive selection.
package universe

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// AllMarker expands to every symbol in a quote group when resolved.
const AllMarker = "(All)"

// Known quote assets, longest suffixes first so USDT wins over USD.
var quoteAssets = []string{"USDT", "USDC", "FDUSD", "BUSD", "TUSD", "USD", "BTC", "ETH", "BNB", "EUR", "TRY"}

// Pair is one tradable market.
type Pair struct {
	Symbol string `json:"symbol"`
	Base   string `json:"base"`
	Quote  string `json:"quote"`
}

// Universe is a thread-safe symbol registry.
type Universe struct {
	mu    sync.RWMutex
	pairs map[string]Pair
}

// New creates an empty universe.
func New() *Universe {
	return &Universe{pairs: make(map[string]Pair)}
}

// FromSymbols builds a universe from raw symbol names, deriving base
// and quote from known quote suffixes. Symbols with an unknown quote
// are kept with an empty quote group.
func FromSymbols(symbols []string) *Universe {
	u := New()
	u.SetSymbols(symbols)
	return u
}

// SetSymbols replaces the registry contents.
func (u *Universe) SetSymbols(symbols []string) {
	pairs := make(map[string]Pair, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		pairs[s] = splitSymbol(s)
	}

	u.mu.Lock()
	u.pairs = pairs
	u.mu.Unlock()
}

func splitSymbol(symbol string) Pair {
	for _, q := range quoteAssets {
		if strings.HasSuffix(symbol, q) && len(symbol) > len(q) {
			return Pair{Symbol: symbol, Base: strings.TrimSuffix(symbol, q), Quote: q}
		}
	}
	return Pair{Symbol: symbol, Base: symbol}
}

// Len returns the number of tracked pairs.
func (u *Universe) Len() int {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return len(u.pairs)
}

// Contains reports whether a symbol is tracked.
func (u *Universe) Contains(symbol string) bool {
	u.mu.RLock()
	defer u.mu.RUnlock()
	_, ok := u.pairs[strings.ToUpper(symbol)]
	return ok
}

// Groups returns pairs grouped by quote asset, each group sorted by
// symbol.
func (u *Universe) Groups() map[string][]Pair {
	u.mu.RLock()
	defer u.mu.RUnlock()

	groups := make(map[string][]Pair)
	for _, p := range u.pairs {
		groups[p.Quote] = append(groups[p.Quote], p)
	}
	for q := range groups {
		sort.Slice(groups[q], func(i, j int) bool { return groups[q][i].Symbol < groups[q][j].Symbol })
	}
	return groups
}

// Search returns pairs whose symbol contains the query, sorted.
func (u *Universe) Search(query string) []Pair {
	query = strings.ToUpper(strings.TrimSpace(query))

	u.mu.RLock()
	defer u.mu.RUnlock()

	var out []Pair
	for _, p := range u.pairs {
		if query == "" || strings.Contains(p.Symbol, query) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// Resolve expands a selection into concrete symbols. The all marker
// expands to every symbol in the quote group; otherwise the selection
// must be a tracked symbol.
func (u *Universe) Resolve(selection, quote string) ([]string, error) {
	if selection == AllMarker {
		group := u.Groups()[strings.ToUpper(quote)]
		if len(group) == 0 {
			return nil, fmt.Errorf("no symbols in quote group %q", quote)
		}
		out := make([]string, len(group))
		for i, p := range group {
			out[i] = p.Symbol
		}
		return out, nil
	}

	symbol := strings.ToUpper(strings.TrimSpace(selection))
	if !u.Contains(symbol) {
		return nil, fmt.Errorf("symbol %q not in universe", selection)
	}
	return []string{symbol}, nil
}
