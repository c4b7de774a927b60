package strategy

import (
	"math"

	"github.com/algopy/algopy/internal/store"
	"github.com/algopy/algopy/internal/strategy/indicators"
)

// RSIReversion enters when RSI drops below the oversold threshold and
// exits when it rises above the overbought threshold.
type RSIReversion struct{}

func init() { Register(&RSIReversion{}) }

func (s *RSIReversion) Name() string { return "rsi" }

func (s *RSIReversion) Specs() []ParamSpec {
	return []ParamSpec{
		{Name: "period", Default: 14, Min: 2, Max: 100, Step: 1},
		{Name: "oversold", Default: 30, Min: 1, Max: 50, Step: 1},
		{Name: "overbought", Default: 70, Min: 50, Max: 99, Step: 1},
	}
}

func (s *RSIReversion) Signals(candles []store.Candle, params Params) (*Signals, error) {
	specs := s.Specs()
	period := int(params.Get(specs[0]))
	oversold := params.Get(specs[1])
	overbought := params.Get(specs[2])
	if err := validate(s.Name(), specs, params); err != nil {
		return nil, err
	}
	if len(candles) < period+2 {
		return noSignals(len(candles)), nil
	}

	rsi := indicators.RSI(closes(candles), period)

	sig := &Signals{
		Entries: make([]bool, len(candles)),
		Exits:   make([]bool, len(candles)),
	}
	for i, v := range rsi {
		if math.IsNaN(v) {
			continue
		}
		sig.Entries[i] = v < oversold
		sig.Exits[i] = v > overbought
	}
	return sig, nil
}
