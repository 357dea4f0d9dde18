package collateral

import (
	"testing"

	"kyd/pkg/money"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostRejectsOverCapacity(t *testing.T) {
	l := New("BANK_A", money.FromDollars(100))
	_, err := l.Post(money.FromDollars(150), "test", 0, false, 0)
	require.Error(t, err)
	assert.Equal(t, money.Zero, l.Posted)
}

func TestWithdrawCapsAtPosted(t *testing.T) {
	l := New("BANK_A", money.FromDollars(1000))
	_, err := l.Post(money.FromDollars(500), "test", 0, false, 0)
	require.NoError(t, err)

	actual := l.Withdraw(money.FromDollars(800))
	assert.Equal(t, money.FromDollars(500), actual)
	assert.Equal(t, money.Zero, l.Posted)
}

// TestTimerCappedByPriorManualWithdrawal exercises S5: post 50000 with an
// auto-withdraw-after-5 timer, manually withdraw 30000 at tick 2, expect
// the timer to withdraw only what remains at tick 5.
func TestTimerCappedByPriorManualWithdrawal(t *testing.T) {
	l := New("BANK_A", money.Money(1_000_000))
	_, err := l.Post(money.Money(50_000), "test", 0, true, 5)
	require.NoError(t, err)

	manual := l.Withdraw(money.Money(30_000))
	assert.Equal(t, money.Money(30_000), manual)
	assert.Equal(t, money.Money(20_000), l.Posted)

	for tick := uint64(1); tick < 5; tick++ {
		fired := l.Tick(tick)
		assert.Empty(t, fired)
	}

	fired := l.Tick(5)
	require.Len(t, fired, 1)
	assert.Equal(t, money.Money(20_000), fired[0].Amount)
	assert.Equal(t, "test", fired[0].OriginalReason)
	assert.Equal(t, uint64(0), fired[0].PostedAtTick)
	assert.Equal(t, money.Zero, l.Posted)
}

func TestMultipleTimersAtSameTickFireInPostingOrder(t *testing.T) {
	l := New("BANK_A", money.Money(1_000_000))
	_, err := l.Post(money.Money(10_000), "first", 0, true, 2)
	require.NoError(t, err)
	_, err = l.Post(money.Money(20_000), "second", 1, true, 1)
	require.NoError(t, err)

	fired := l.Tick(2)
	require.Len(t, fired, 2)
	assert.Equal(t, "first", fired[0].OriginalReason)
	assert.Equal(t, "second", fired[1].OriginalReason)
}

func TestTimerNeverDrivesPostedNegative(t *testing.T) {
	l := New("BANK_A", money.Money(100))
	_, err := l.Post(money.Money(100), "t", 0, true, 1)
	require.NoError(t, err)

	l.Withdraw(money.Money(100)) // drains it all manually before the timer fires

	fired := l.Tick(1)
	require.Len(t, fired, 1)
	assert.Equal(t, money.Zero, fired[0].Amount)
	assert.True(t, l.Posted >= 0)
}
