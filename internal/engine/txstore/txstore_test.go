package txstore

import (
	"testing"

	"kyd/pkg/money"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateRejectsNonPositiveAmount(t *testing.T) {
	s := New()
	_, err := s.Create("A", "B", 0, 0, 10, 5, false)
	require.Error(t, err)
}

func TestCreateRejectsDeadlineBeforeArrival(t *testing.T) {
	s := New()
	_, err := s.Create("A", "B", money.FromDollars(10), 10, 5, 5, false)
	require.Error(t, err)
}

func TestValidTransitionSequence(t *testing.T) {
	s := New()
	tx, err := s.Create("A", "B", money.FromDollars(10), 0, 10, 5, false)
	require.NoError(t, err)

	require.NoError(t, s.Transition(tx.ID, StatusQueued1))
	require.NoError(t, s.Transition(tx.ID, StatusQueued2))
	require.NoError(t, s.MarkSettled(tx.ID))

	v, ok := s.GetByID(tx.ID)
	require.True(t, ok)
	assert.Equal(t, StatusSettled, v.Status)
	assert.Equal(t, money.Zero, v.RemainingAmount)
}

func TestInvalidTransitionIsRejected(t *testing.T) {
	s := New()
	tx, err := s.Create("A", "B", money.FromDollars(10), 0, 10, 5, false)
	require.NoError(t, err)

	err = s.Transition(tx.ID, StatusSettled) // Pending -> Settled is not allowed
	require.Error(t, err)
}

func TestSplitSumMustEqualRemaining(t *testing.T) {
	s := New()
	tx, err := s.Create("A", "B", money.FromDollars(100), 0, 10, 5, true)
	require.NoError(t, err)

	_, err = s.Split(tx.ID, []money.Money{money.FromDollars(40), money.FromDollars(40)})
	require.Error(t, err)

	children, err := s.Split(tx.ID, []money.Money{money.FromDollars(60), money.FromDollars(40)})
	require.NoError(t, err)
	require.Len(t, children, 2)

	parent, ok := s.GetByID(tx.ID)
	require.True(t, ok)
	assert.Equal(t, StatusSplit, parent.Status)

	for _, c := range children {
		assert.Equal(t, tx.DeadlineTick, c.DeadlineTick)
		assert.Equal(t, tx.OriginalPriority, c.OriginalPriority)
	}
}

func TestOverdueThenSettled(t *testing.T) {
	s := New()
	tx, err := s.Create("A", "B", money.FromDollars(10), 0, 3, 5, false)
	require.NoError(t, err)
	require.NoError(t, s.Transition(tx.ID, StatusQueued1))
	require.NoError(t, s.Transition(tx.ID, StatusQueued2))
	require.NoError(t, s.Transition(tx.ID, StatusOverdue))
	require.NoError(t, s.MarkSettled(tx.ID))

	v, _ := s.GetByID(tx.ID)
	assert.Equal(t, StatusSettled, v.Status)
}
