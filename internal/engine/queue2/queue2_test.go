package queue2

import (
	"testing"

	"kyd/pkg/money"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFIFOBlockedHeadHaltsQueue(t *testing.T) {
	q := New(ModeFIFO)
	q.Push(Entry{TransactionID: "blocked", Amount: money.FromDollars(100)})
	q.Push(Entry{TransactionID: "would-settle", Amount: money.FromDollars(1)})

	settled := q.Drain(func(e Entry) bool {
		return e.TransactionID == "would-settle"
	}, func(e Entry) {})

	assert.Empty(t, settled)
	assert.Equal(t, 2, q.Len())
}

func TestFIFOSettlesInOrderUntilBlocked(t *testing.T) {
	q := New(ModeFIFO)
	q.Push(Entry{TransactionID: "t1"})
	q.Push(Entry{TransactionID: "t2"})
	q.Push(Entry{TransactionID: "t3"})

	var order []string
	settled := q.Drain(func(e Entry) bool {
		return e.TransactionID != "t3"
	}, func(e Entry) {
		order = append(order, e.TransactionID)
	})

	require.Len(t, settled, 2)
	assert.Equal(t, []string{"t1", "t2"}, order)
	assert.Equal(t, 1, q.Len())
}

func TestPriorityBandedFallsBackPastBlockedHighBand(t *testing.T) {
	q := New(ModePriorityBanded)
	q.Push(Entry{TransactionID: "high-blocked", Priority: 9})
	q.Push(Entry{TransactionID: "low-settles", Priority: 1})

	settled := q.Drain(func(e Entry) bool {
		return e.TransactionID == "low-settles"
	}, func(e Entry) {})

	require.Len(t, settled, 1)
	assert.Equal(t, "low-settles", settled[0].TransactionID)
	assert.Equal(t, 1, q.Len())
}

func TestPriorityBandedReScansFromTopAfterEachSettlement(t *testing.T) {
	q := New(ModePriorityBanded)
	q.Push(Entry{TransactionID: "high1", Priority: 9})
	q.Push(Entry{TransactionID: "high2", Priority: 9})
	q.Push(Entry{TransactionID: "low", Priority: 1})

	var order []string
	settled := q.Drain(func(e Entry) bool { return true }, func(e Entry) {
		order = append(order, e.TransactionID)
	})

	require.Len(t, settled, 3)
	assert.Equal(t, []string{"high1", "high2", "low"}, order)
}

func TestBandedHeadOfLineBlocksRestOfSameBand(t *testing.T) {
	q := New(ModePriorityBanded)
	q.Push(Entry{TransactionID: "head", Priority: 5})
	q.Push(Entry{TransactionID: "behind", Priority: 5})

	settled := q.Drain(func(e Entry) bool {
		return e.TransactionID == "behind"
	}, func(e Entry) {})

	assert.Empty(t, settled)
}

func TestRemoveDropsEntryForLSMExtraction(t *testing.T) {
	q := New(ModeFIFO)
	q.Push(Entry{TransactionID: "a"})
	q.Push(Entry{TransactionID: "b"})

	ok := q.Remove("a")
	require.True(t, ok)
	assert.Equal(t, 1, q.Len())
}
