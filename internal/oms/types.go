package oms

import (
	"fmt"
	"time"
)

// Side is the order side.
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// OrderType is the execution type.
type OrderType string

const (
	Market OrderType = "MARKET"
	Limit  OrderType = "LIMIT"
)

// QuantityUnit selects how OrderRequest.Qty is interpreted.
type QuantityUnit string

const (
	// Contracts sizes the order directly in base-asset contracts.
	Contracts QuantityUnit = "CONTRACTS"
	// USD sizes the order in quote value, converted to contracts at the
	// current mark price before submission.
	USD QuantityUnit = "USD"
)

// OrderRequest describes an order to submit.
type OrderRequest struct {
	Symbol     string       `json:"symbol"`
	Side       Side         `json:"side"`
	Qty        float64      `json:"qty"`
	Price      float64      `json:"price,omitempty"` // required for LIMIT
	Type       OrderType    `json:"type"`
	Unit       QuantityUnit `json:"unit,omitempty"` // defaults to CONTRACTS
	ReduceOnly bool         `json:"reduce_only,omitempty"`
	ClientID   string       `json:"client_id,omitempty"`
}

// Order is the exchange acknowledgement of an accepted order.
type Order struct {
	OrderID    string    `json:"order_id"`
	ClientID   string    `json:"client_id,omitempty"`
	Symbol     string    `json:"symbol"`
	Side       Side      `json:"side"`
	Type       OrderType `json:"type"`
	Qty        float64   `json:"qty"`
	Price      float64   `json:"price,omitempty"`
	Status     string    `json:"status"`
	Venue      string    `json:"venue"`
	SubmitTime time.Time `json:"submit_time"`
}

// FailedOrder pairs a rejected request with its error.
type FailedOrder struct {
	Request OrderRequest `json:"request"`
	Error   string       `json:"error"`
	Time    time.Time    `json:"time"`
}

// Position is an open futures position.
type Position struct {
	Symbol           string  `json:"symbol"`
	SizeContracts    float64 `json:"size_contracts"`
	SizeUSD          float64 `json:"size_usd"`
	EntryPrice       float64 `json:"entry_price"`
	MarkPrice        float64 `json:"mark_price"`
	UnrealizedPnL    float64 `json:"unrealized_pnl"`
	Leverage         int     `json:"leverage"`
	LiquidationPrice float64 `json:"liquidation_price,omitempty"` // 0 when exchange reports none
}

// Balance is a nonzero asset balance.
type Balance struct {
	Asset  string  `json:"asset"`
	Free   float64 `json:"free"`
	Locked float64 `json:"locked"`
}

// CloseRequest selects which positions to close and how much of them.
type CloseRequest struct {
	Symbol     string       // empty closes every open position
	Qty        float64      // 0 closes the full position
	Unit       QuantityUnit // CONTRACTS or USD
	Percentage float64      // when >0, closes this percent of the open size
}

// CloseReport summarizes a close-positions run.
type CloseReport struct {
	Closed     []Order              `json:"closed"`
	Failed     []FailedOrder        `json:"failed"`
	Unclosable []UnclosablePosition `json:"unclosable"`
}

// UnclosablePosition is a position whose notional is below the exchange
// minimum and cannot be closed by a market order.
type UnclosablePosition struct {
	Symbol   string  `json:"symbol"`
	Notional float64 `json:"notional"`
	Reason   string  `json:"reason"`
}

// Error codes shared across venue adapters.
const (
	ErrCodeRateLimit     = "RATE_LIMIT"
	ErrCodeCircuitOpen   = "CIRCUIT_OPEN"
	ErrCodeInvalidSymbol = "INVALID_SYMBOL"
	ErrCodeRejected      = "REJECTED"
	ErrCodeAuth          = "AUTH_ERROR"
	ErrCodeMinNotional   = "MIN_NOTIONAL"
	ErrCodeNetwork       = "NETWORK_ERROR"
	ErrCodeInvalidData   = "INVALID_DATA"
)

// Error is a venue-attributed order management error.
type Error struct {
	Venue     string `json:"venue"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	Temporary bool   `json:"temporary"`
	Cause     error  `json:"-"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("oms %s: %s (%s)", e.Venue, e.Message, e.Code)
}

func (e *Error) Unwrap() error {
	return e.Cause
}
