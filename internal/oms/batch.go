package oms

import (
	"context"

	"github.com/alitto/pond"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog/log"
)

// BatchSubmitter fans a slice of order requests out to a venue through a
// bounded worker pool. Outcomes land in the venue's ledger; errors are
// aggregated and returned alongside the per-order results.
type BatchSubmitter struct {
	oms     OMS
	workers int
	futures bool
}

// NewBatchSubmitter creates a submitter with the given concurrency.
// When futures is true, orders are routed to PlaceFuturesOrder.
func NewBatchSubmitter(o OMS, workers int, futures bool) *BatchSubmitter {
	if workers <= 0 {
		workers = 4
	}
	return &BatchSubmitter{oms: o, workers: workers, futures: futures}
}

// Submit places every request concurrently and waits for completion.
// The returned error aggregates all per-order failures; successful
// orders are returned regardless.
func (b *BatchSubmitter) Submit(ctx context.Context, requests []OrderRequest) ([]Order, error) {
	if len(requests) == 0 {
		return nil, nil
	}

	pool := pond.New(b.workers, len(requests), pond.Context(ctx))

	results := make([]*Order, len(requests))
	errs := make([]error, len(requests))

	for i, req := range requests {
		i, req := i, req
		pool.Submit(func() {
			var order *Order
			var err error
			if b.futures {
				order, err = b.oms.PlaceFuturesOrder(ctx, req)
			} else {
				order, err = b.oms.PlaceOrder(ctx, req)
			}
			if err != nil {
				log.Warn().Err(err).Str("symbol", req.Symbol).Str("side", string(req.Side)).Msg("batch order failed")
				errs[i] = err
				return
			}
			results[i] = order
		})
	}

	pool.StopAndWait()

	var merged *multierror.Error
	orders := make([]Order, 0, len(requests))
	for i := range requests {
		if errs[i] != nil {
			merged = multierror.Append(merged, errs[i])
			continue
		}
		if results[i] != nil {
			orders = append(orders, *results[i])
		}
	}

	return orders, merged.ErrorOrNil()
}
