package strategy

import (
	"github.com/algopy/algopy/internal/store"
	"github.com/algopy/algopy/internal/strategy/indicators"
)

// MACDCross enters when the MACD line crosses above its signal line and
// exits on the cross below.
type MACDCross struct{}

func init() { Register(&MACDCross{}) }

func (s *MACDCross) Name() string { return "macd" }

func (s *MACDCross) Specs() []ParamSpec {
	return []ParamSpec{
		{Name: "fast", Default: 12, Min: 2, Max: 100, Step: 1},
		{Name: "slow", Default: 26, Min: 3, Max: 200, Step: 1},
		{Name: "signal", Default: 9, Min: 2, Max: 50, Step: 1},
	}
}

func (s *MACDCross) Signals(candles []store.Candle, params Params) (*Signals, error) {
	specs := s.Specs()
	fast := int(params.Get(specs[0]))
	slow := int(params.Get(specs[1]))
	signalPeriod := int(params.Get(specs[2]))
	if err := validate(s.Name(), specs, params); err != nil {
		return nil, err
	}
	if len(candles) < slow+signalPeriod {
		return noSignals(len(candles)), nil
	}

	macd, signalLine, _ := indicators.MACD(closes(candles), fast, slow, signalPeriod)

	return &Signals{
		Entries: indicators.CrossAbove(macd, signalLine),
		Exits:   indicators.CrossBelow(macd, signalLine),
	}, nil
}
