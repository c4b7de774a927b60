package oms

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLedger_JournalsAreDisjoint(t *testing.T) {
	ledger := NewLedger()

	ledger.RecordSuccess(Order{OrderID: "1", Symbol: "BTCUSDT", Side: Buy})
	ledger.RecordFailure(OrderRequest{Symbol: "ETHUSDT", Side: Sell}, errors.New("insufficient margin"))

	successful, failed := ledger.Counts()
	assert.Equal(t, 1, successful)
	assert.Equal(t, 1, failed)

	assert.Equal(t, "BTCUSDT", ledger.Successful()[0].Symbol)
	assert.Equal(t, "ETHUSDT", ledger.Failed()[0].Request.Symbol)
	assert.Contains(t, ledger.Failed()[0].Error, "insufficient margin")
}

func TestLedger_CopiesAreIndependent(t *testing.T) {
	ledger := NewLedger()
	ledger.RecordSuccess(Order{OrderID: "1"})

	got := ledger.Successful()
	got[0].OrderID = "mutated"

	assert.Equal(t, "1", ledger.Successful()[0].OrderID)
}

func TestLedger_ConcurrentRecording(t *testing.T) {
	ledger := NewLedger()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ledger.RecordSuccess(Order{OrderID: "x"})
			ledger.RecordFailure(OrderRequest{}, errors.New("boom"))
		}()
	}
	wg.Wait()

	successful, failed := ledger.Counts()
	assert.Equal(t, 100, successful)
	assert.Equal(t, 100, failed)
}
