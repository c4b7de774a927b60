package binance

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/algopy/algopy/internal/oms"
)

type orderResponse struct {
	OrderID       int64  `json:"orderId"`
	ClientOrderID string `json:"clientOrderId"`
	Symbol        string `json:"symbol"`
	Side          string `json:"side"`
	Type          string `json:"type"`
	OrigQty       string `json:"origQty"`
	Price         string `json:"price"`
	AvgPrice      string `json:"avgPrice"`
	Status        string `json:"status"`
}

func (r *orderResponse) toOrder(c *Client) oms.Order {
	price := parseFloat(r.Price)
	if avg := parseFloat(r.AvgPrice); avg > 0 {
		price = avg
	}
	return oms.Order{
		OrderID:    strconv.FormatInt(r.OrderID, 10),
		ClientID:   r.ClientOrderID,
		Symbol:     r.Symbol,
		Side:       oms.Side(r.Side),
		Type:       oms.OrderType(r.Type),
		Qty:        parseFloat(r.OrigQty),
		Price:      price,
		Status:     r.Status,
		Venue:      venueName,
		SubmitTime: c.nowFn(),
	}
}

// PlaceOrder submits a spot order. USD-sized requests convert to base
// quantity at the current spot price.
func (c *Client) PlaceOrder(ctx context.Context, req oms.OrderRequest) (*oms.Order, error) {
	qty := req.Qty
	if req.Unit == oms.USD {
		px, err := c.spotPrice(ctx, req.Symbol)
		if err != nil {
			return nil, c.fail(ctx, req, err)
		}
		qty = math.Floor(req.Qty/px*1e8+1e-9) / 1e8
		if qty <= 0 {
			return nil, c.fail(ctx, req, &oms.Error{Venue: venueName, Code: oms.ErrCodeInvalidData,
				Message: fmt.Sprintf("%.2f USD rounds to zero base quantity at price %.8f", req.Qty, px)})
		}
	}

	params, err := c.orderParams(req, strconv.FormatFloat(qty, 'f', -1, 64), req.Price)
	if err != nil {
		return nil, c.fail(ctx, req, err)
	}

	var resp orderResponse
	if err := c.call(ctx, "POST", c.cfg.SpotBaseURL, "/api/v3/order", params, true, &resp); err != nil {
		return nil, c.fail(ctx, req, err)
	}
	return c.accept(ctx, req, resp), nil
}

// PlaceFuturesOrder submits a futures order. USD-sized requests convert
// to contracts at the current mark price; quantity and price are rounded
// down to the symbol's exchange precision before submission.
func (c *Client) PlaceFuturesOrder(ctx context.Context, req oms.OrderRequest) (*oms.Order, error) {
	filter, err := c.filters.Get(ctx, req.Symbol)
	if err != nil {
		return nil, c.fail(ctx, req, err)
	}

	qty := req.Qty
	if req.Unit == oms.USD {
		mark, err := c.markPrice(ctx, req.Symbol)
		if err != nil {
			return nil, c.fail(ctx, req, err)
		}
		qty = req.Qty / mark
	}
	qty = filter.FloorQty(qty)
	if qty <= 0 {
		return nil, c.fail(ctx, req, &oms.Error{
			Venue: venueName, Code: oms.ErrCodeInvalidData,
			Message: fmt.Sprintf("quantity %.8f rounds to zero at step %.8f", req.Qty, filter.StepSize),
		})
	}

	price := req.Price
	if req.Type == oms.Limit {
		price = filter.FloorPrice(price)
		if price <= 0 {
			return nil, c.fail(ctx, req, &oms.Error{Venue: venueName, Code: oms.ErrCodeInvalidData, Message: "limit order requires a positive price"})
		}
	}

	params, err := c.orderParams(req, filter.FormatQty(qty), price)
	if err != nil {
		return nil, c.fail(ctx, req, err)
	}
	if req.Type == oms.Limit {
		params.Set("price", filter.FormatPrice(price))
	}
	if req.ReduceOnly {
		params.Set("reduceOnly", "true")
	}

	var resp orderResponse
	if err := c.call(ctx, "POST", c.cfg.BaseURL, "/fapi/v1/order", params, true, &resp); err != nil {
		return nil, c.fail(ctx, req, err)
	}
	return c.accept(ctx, req, resp), nil
}

func (c *Client) orderParams(req oms.OrderRequest, qty string, price float64) (url.Values, error) {
	if req.Symbol == "" {
		return nil, &oms.Error{Venue: venueName, Code: oms.ErrCodeInvalidData, Message: "order symbol is required"}
	}
	if req.Type == oms.Limit && price <= 0 {
		return nil, &oms.Error{Venue: venueName, Code: oms.ErrCodeInvalidData, Message: "limit order requires a positive price"}
	}

	clientID := req.ClientID
	if clientID == "" {
		clientID = "algopy-" + uuid.NewString()[:13]
	}

	params := url.Values{}
	params.Set("symbol", req.Symbol)
	params.Set("side", string(req.Side))
	params.Set("type", string(req.Type))
	params.Set("quantity", qty)
	params.Set("newClientOrderId", clientID)
	if req.Type == oms.Limit {
		params.Set("timeInForce", "GTC")
		params.Set("price", strconv.FormatFloat(price, 'f', -1, 64))
	}
	return params, nil
}

// accept journals a filled submission and mirrors it to the notifier.
func (c *Client) accept(ctx context.Context, req oms.OrderRequest, resp orderResponse) *oms.Order {
	order := resp.toOrder(c)
	c.ledger.RecordSuccess(order)
	c.metrics.OrdersPlaced.WithLabelValues(venueName, string(order.Type)).Inc()

	log.Info().
		Str("symbol", order.Symbol).
		Str("side", string(order.Side)).
		Str("type", string(order.Type)).
		Float64("qty", order.Qty).
		Str("order_id", order.OrderID).
		Msg("order accepted")
	c.notifier.Send(ctx, fmt.Sprintf("Order accepted: %s %s %s qty=%v id=%s",
		order.Side, order.Type, order.Symbol, order.Qty, order.OrderID))
	return &order
}

// fail journals a rejected submission and mirrors it to the notifier.
func (c *Client) fail(ctx context.Context, req oms.OrderRequest, err error) error {
	c.ledger.RecordFailure(req, err)

	code := "UNKNOWN"
	if ve, ok := err.(*oms.Error); ok {
		code = ve.Code
	}
	c.metrics.OrdersFailed.WithLabelValues(venueName, code).Inc()

	log.Warn().Err(err).
		Str("symbol", req.Symbol).
		Str("side", string(req.Side)).
		Msg("order failed")
	c.notifier.Send(ctx, fmt.Sprintf("Order FAILED: %s %s %s qty=%v: %v",
		req.Side, req.Type, req.Symbol, req.Qty, err))
	return err
}

// CancelOrder cancels a single open futures order.
func (c *Client) CancelOrder(ctx context.Context, symbol, orderID string) error {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("orderId", orderID)
	if err := c.call(ctx, "DELETE", c.cfg.BaseURL, "/fapi/v1/order", params, true, nil); err != nil {
		return err
	}
	c.metrics.OrdersCanceled.WithLabelValues(venueName).Inc()
	log.Info().Str("symbol", symbol).Str("order_id", orderID).Msg("order canceled")
	return nil
}

// CancelAllOrders cancels every open futures order for a symbol.
func (c *Client) CancelAllOrders(ctx context.Context, symbol string) error {
	params := url.Values{}
	params.Set("symbol", symbol)
	if err := c.call(ctx, "DELETE", c.cfg.BaseURL, "/fapi/v1/allOpenOrders", params, true, nil); err != nil {
		return err
	}
	c.metrics.OrdersCanceled.WithLabelValues(venueName).Inc()
	log.Info().Str("symbol", symbol).Msg("all open orders canceled")
	return nil
}

// ChangeLeverage sets the leverage multiplier for a futures symbol.
func (c *Client) ChangeLeverage(ctx context.Context, symbol string, leverage int) error {
	if leverage < 1 || leverage > 125 {
		return &oms.Error{Venue: venueName, Code: oms.ErrCodeInvalidData,
			Message: fmt.Sprintf("leverage %d outside 1..125", leverage)}
	}
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("leverage", strconv.Itoa(leverage))
	if err := c.call(ctx, "POST", c.cfg.BaseURL, "/fapi/v1/leverage", params, true, nil); err != nil {
		return err
	}
	log.Info().Str("symbol", symbol).Int("leverage", leverage).Msg("leverage changed")
	c.notifier.Send(ctx, fmt.Sprintf("Leverage for %s set to %dx", symbol, leverage))
	return nil
}
