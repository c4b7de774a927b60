package oms

import (
	"sync"
	"time"
)

// Ledger journals every order outcome. A request lands in exactly one of
// the two journals, in completion order.
type Ledger struct {
	mu         sync.RWMutex
	successful []Order
	failed     []FailedOrder
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{}
}

// RecordSuccess appends an accepted order.
func (l *Ledger) RecordSuccess(order Order) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.successful = append(l.successful, order)
}

// RecordFailure appends a rejected request with its error.
func (l *Ledger) RecordFailure(req OrderRequest, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failed = append(l.failed, FailedOrder{
		Request: req,
		Error:   err.Error(),
		Time:    time.Now(),
	})
}

// Successful returns a copy of the accepted-order journal.
func (l *Ledger) Successful() []Order {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Order, len(l.successful))
	copy(out, l.successful)
	return out
}

// Failed returns a copy of the rejected-order journal.
func (l *Ledger) Failed() []FailedOrder {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]FailedOrder, len(l.failed))
	copy(out, l.failed)
	return out
}

// Counts returns the journal sizes.
func (l *Ledger) Counts() (successful, failed int) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.successful), len(l.failed)
}
