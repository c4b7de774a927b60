package binance

import (
	"context"
	"fmt"
	"math"
	"net/url"

	"github.com/rs/zerolog/log"

	"github.com/algopy/algopy/internal/oms"
)

type positionRisk struct {
	Symbol           string `json:"symbol"`
	PositionAmt      string `json:"positionAmt"`
	EntryPrice       string `json:"entryPrice"`
	MarkPrice        string `json:"markPrice"`
	UnRealizedProfit string `json:"unRealizedProfit"`
	Leverage         string `json:"leverage"`
	LiquidationPrice string `json:"liquidationPrice"`
}

// OpenPositions returns every futures position with nonzero size.
func (c *Client) OpenPositions(ctx context.Context) ([]oms.Position, error) {
	var risks []positionRisk
	if err := c.call(ctx, "GET", c.cfg.BaseURL, "/fapi/v2/positionRisk", url.Values{}, true, &risks); err != nil {
		return nil, err
	}

	positions := make([]oms.Position, 0, len(risks))
	for _, r := range risks {
		amt := parseFloat(r.PositionAmt)
		if amt == 0 {
			continue
		}
		mark := parseFloat(r.MarkPrice)
		positions = append(positions, oms.Position{
			Symbol:        r.Symbol,
			SizeContracts: amt,
			// Notional is reported unsigned; the contract size carries
			// the direction.
			SizeUSD:          math.Abs(amt * mark),
			EntryPrice:       parseFloat(r.EntryPrice),
			MarkPrice:        mark,
			UnrealizedPnL:    parseFloat(r.UnRealizedProfit),
			Leverage:         int(parseFloat(r.Leverage)),
			LiquidationPrice: parseFloat(r.LiquidationPrice),
		})
	}
	return positions, nil
}

type futuresBalance struct {
	Asset            string `json:"asset"`
	Balance          string `json:"balance"`
	AvailableBalance string `json:"availableBalance"`
}

// AccountBalances returns nonzero futures wallet balances. A non-empty
// asset filters the result to that asset.
func (c *Client) AccountBalances(ctx context.Context, asset string) ([]oms.Balance, error) {
	var raw []futuresBalance
	if err := c.call(ctx, "GET", c.cfg.BaseURL, "/fapi/v2/balance", url.Values{}, true, &raw); err != nil {
		return nil, err
	}

	balances := make([]oms.Balance, 0, len(raw))
	for _, b := range raw {
		total := parseFloat(b.Balance)
		free := parseFloat(b.AvailableBalance)
		if total == 0 && free == 0 {
			continue
		}
		if asset != "" && b.Asset != asset {
			continue
		}
		balances = append(balances, oms.Balance{Asset: b.Asset, Free: free, Locked: total - free})
	}
	return balances, nil
}

// markPrice returns the current mark price, preferring the websocket
// cache over a REST round trip.
func (c *Client) markPrice(ctx context.Context, symbol string) (float64, error) {
	if px, ok := c.marks.Get(symbol); ok {
		c.metrics.CacheHits.WithLabelValues("mark_price").Inc()
		return px, nil
	}
	c.metrics.CacheMisses.WithLabelValues("mark_price").Inc()

	params := url.Values{}
	params.Set("symbol", symbol)
	var resp struct {
		MarkPrice string `json:"markPrice"`
	}
	if err := c.call(ctx, "GET", c.cfg.BaseURL, "/fapi/v1/premiumIndex", params, false, &resp); err != nil {
		return 0, err
	}
	px := parseFloat(resp.MarkPrice)
	if px <= 0 {
		return 0, &oms.Error{Venue: venueName, Code: oms.ErrCodeInvalidData, Message: "mark price unavailable for " + symbol}
	}
	return px, nil
}

// spotPrice returns the last traded spot price for a symbol.
func (c *Client) spotPrice(ctx context.Context, symbol string) (float64, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	var resp struct {
		Price string `json:"price"`
	}
	if err := c.call(ctx, "GET", c.cfg.SpotBaseURL, "/api/v3/ticker/price", params, false, &resp); err != nil {
		return 0, err
	}
	px := parseFloat(resp.Price)
	if px <= 0 {
		return 0, &oms.Error{Venue: venueName, Code: oms.ErrCodeInvalidData, Message: "spot price unavailable for " + symbol}
	}
	return px, nil
}

// CloseFuturesPositions closes open positions with reduce-only market
// orders. Sizing follows the request: full close by default, or a
// percentage, a contract amount, or a USD amount of the open size.
// Positions whose notional is under the exchange minimum are reported
// as unclosable.
func (c *Client) CloseFuturesPositions(ctx context.Context, req oms.CloseRequest) (*oms.CloseReport, error) {
	positions, err := c.OpenPositions(ctx)
	if err != nil {
		return nil, err
	}

	report := &oms.CloseReport{}
	matched := false

	for _, pos := range positions {
		if req.Symbol != "" && pos.Symbol != req.Symbol {
			continue
		}
		matched = true

		filter, err := c.filters.Get(ctx, pos.Symbol)
		if err != nil {
			report.Failed = append(report.Failed, oms.FailedOrder{
				Request: oms.OrderRequest{Symbol: pos.Symbol},
				Error:   err.Error(),
				Time:    c.nowFn(),
			})
			continue
		}

		open := math.Abs(pos.SizeContracts)
		qty := c.closeQty(req, pos, open)

		if qty > open {
			log.Warn().
				Str("symbol", pos.Symbol).
				Float64("requested", qty).
				Float64("open", open).
				Msg("close size exceeds open position, clamping")
			qty = open
		}
		qty = filter.FloorQty(qty)

		notional := qty * pos.MarkPrice
		if qty <= 0 || notional < filter.MinNotional {
			report.Unclosable = append(report.Unclosable, oms.UnclosablePosition{
				Symbol:   pos.Symbol,
				Notional: notional,
				Reason:   fmt.Sprintf("notional %.2f below exchange minimum %.2f", notional, filter.MinNotional),
			})
			continue
		}

		side := oms.Sell
		if pos.SizeContracts < 0 {
			side = oms.Buy
		}

		order, err := c.PlaceFuturesOrder(ctx, oms.OrderRequest{
			Symbol:     pos.Symbol,
			Side:       side,
			Qty:        qty,
			Type:       oms.Market,
			Unit:       oms.Contracts,
			ReduceOnly: true,
		})
		if err != nil {
			report.Failed = append(report.Failed, oms.FailedOrder{
				Request: oms.OrderRequest{Symbol: pos.Symbol, Side: side, Qty: qty, Type: oms.Market, ReduceOnly: true},
				Error:   err.Error(),
				Time:    c.nowFn(),
			})
			continue
		}
		report.Closed = append(report.Closed, *order)
	}

	if req.Symbol != "" && !matched {
		return nil, &oms.Error{Venue: venueName, Code: oms.ErrCodeInvalidSymbol,
			Message: "no open position for " + req.Symbol}
	}

	c.notifier.Send(ctx, fmt.Sprintf("Close run: %d closed, %d failed, %d unclosable",
		len(report.Closed), len(report.Failed), len(report.Unclosable)))
	return report, nil
}

// closeQty resolves the requested close size into contracts.
func (c *Client) closeQty(req oms.CloseRequest, pos oms.Position, open float64) float64 {
	switch {
	case req.Percentage > 0:
		return open * req.Percentage / 100
	case req.Qty > 0 && req.Unit == oms.USD:
		if pos.MarkPrice <= 0 {
			return open
		}
		return req.Qty / pos.MarkPrice
	case req.Qty > 0:
		return req.Qty
	default:
		return open
	}
}
