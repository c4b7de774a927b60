package strategy

import (
	"github.com/algopy/algopy/internal/store"
	"github.com/algopy/algopy/internal/strategy/indicators"
)

// EMACrossover enters when the fast EMA crosses above the slow EMA and
// exits on the cross back below.
type EMACrossover struct{}

func init() { Register(&EMACrossover{}) }

func (s *EMACrossover) Name() string { return "ema_crossover" }

func (s *EMACrossover) Specs() []ParamSpec {
	return []ParamSpec{
		{Name: "fast", Default: 12, Min: 2, Max: 200, Step: 1},
		{Name: "slow", Default: 26, Min: 3, Max: 400, Step: 1},
	}
}

func (s *EMACrossover) Signals(candles []store.Candle, params Params) (*Signals, error) {
	specs := s.Specs()
	fast := int(params.Get(specs[0]))
	slow := int(params.Get(specs[1]))
	if err := validate(s.Name(), specs, params); err != nil {
		return nil, err
	}
	if len(candles) < slow+1 {
		return noSignals(len(candles)), nil
	}

	px := closes(candles)
	fastEMA := indicators.EMA(px, fast)
	slowEMA := indicators.EMA(px, slow)

	return &Signals{
		Entries: indicators.CrossAbove(fastEMA, slowEMA),
		Exits:   indicators.CrossBelow(fastEMA, slowEMA),
	}, nil
}
