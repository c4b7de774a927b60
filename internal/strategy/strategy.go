// Package strategy defines the trading strategy contract and the
// built-in momentum strategies.
package strategy

import (
	"fmt"
	"sort"
	"sync"

	"github.com/algopy/algopy/internal/store"
)

// ParamSpec describes one tunable strategy parameter.
type ParamSpec struct {
	Name    string  `json:"name"`
	Default float64 `json:"default"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Step    float64 `json:"step"`
}

// Params maps parameter names to values.
type Params map[string]float64

// Get returns the value for name, or the spec default when unset.
func (p Params) Get(spec ParamSpec) float64 {
	if v, ok := p[spec.Name]; ok {
		return v
	}
	return spec.Default
}

// Signals are entry and exit marks aligned index-for-index with the
// candle series that produced them.
type Signals struct {
	Entries []bool
	Exits   []bool
}

// Strategy turns a candle series into entry and exit signals.
type Strategy interface {
	Name() string
	Specs() []ParamSpec
	Signals(candles []store.Candle, params Params) (*Signals, error)
}

// validate checks params against their specs.
func validate(name string, specs []ParamSpec, params Params) error {
	known := make(map[string]ParamSpec, len(specs))
	for _, s := range specs {
		known[s.Name] = s
	}
	for k, v := range params {
		spec, ok := known[k]
		if !ok {
			return fmt.Errorf("%s: unknown parameter %q", name, k)
		}
		if v < spec.Min || v > spec.Max {
			return fmt.Errorf("%s: parameter %s=%v outside [%v, %v]", name, k, v, spec.Min, spec.Max)
		}
	}
	return nil
}

// noSignals is the result for series shorter than a strategy's warmup:
// all-false marks aligned to the candles, never an error.
func noSignals(n int) *Signals {
	return &Signals{Entries: make([]bool, n), Exits: make([]bool, n)}
}

func closes(candles []store.Candle) []float64 {
	out := make([]float64, len(candles))
	for i := range candles {
		out[i] = candles[i].Close
	}
	return out
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Strategy)
)

// Register adds a strategy to the registry. Duplicate names panic at
// init time.
func Register(s Strategy) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := registry[s.Name()]; exists {
		panic("strategy already registered: " + s.Name())
	}
	registry[s.Name()] = s
}

// Get returns a registered strategy by name.
func Get(name string) (Strategy, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	s, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q", name)
	}
	return s, nil
}

// List returns registered strategy names, sorted.
func List() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
