// Package oms provides order management: placement, cancellation,
// position handling and the journals that track every outcome.
package oms

import (
	"context"
)

// OMS is the order management interface implemented by venue adapters.
type OMS interface {
	// Venue returns the adapter's venue name.
	Venue() string

	// PlaceOrder submits a spot order.
	PlaceOrder(ctx context.Context, req OrderRequest) (*Order, error)

	// PlaceFuturesOrder submits a futures order. USD-sized requests are
	// converted to contracts at the current mark price; quantity and
	// price are rounded down to the symbol's exchange precision.
	PlaceFuturesOrder(ctx context.Context, req OrderRequest) (*Order, error)

	// CancelOrder cancels a single open order.
	CancelOrder(ctx context.Context, symbol, orderID string) error

	// CancelAllOrders cancels every open order for a symbol.
	CancelAllOrders(ctx context.Context, symbol string) error

	// ChangeLeverage sets the leverage for a futures symbol.
	ChangeLeverage(ctx context.Context, symbol string, leverage int) error

	// CloseFuturesPositions closes open positions with reduce-only
	// market orders per the close request.
	CloseFuturesPositions(ctx context.Context, req CloseRequest) (*CloseReport, error)

	// OpenPositions returns all open futures positions.
	OpenPositions(ctx context.Context) ([]Position, error)

	// AccountBalances returns nonzero balances; asset filters to one.
	AccountBalances(ctx context.Context, asset string) ([]Balance, error)

	// Ledger returns the adapter's order journals.
	Ledger() *Ledger
}
