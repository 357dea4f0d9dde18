package cost

import (
	"testing"

	"kyd/pkg/money"

	"github.com/stretchr/testify/assert"
)

func testRates() Rates {
	return Rates{
		OverdraftBpsPerDay:     3650, // 36.5% per day, nice round per-tick numbers
		CollateralBpsPerDay:    1825,
		Queue1DelayPerTick:     money.Money(5),
		OverdueDelayMultiplier: 3,
		SplitFee:               money.Money(100),
		DeadlineBasePenalty:    money.Money(1000),
		DeadlinePenaltyPerTick: money.Money(50),
		TicksPerDay:            100,
	}
}

func TestAccrueLiquidityOnlyWhenOverdrawn(t *testing.T) {
	l := New(testRates())
	charge := l.AccrueLiquidity("A", money.Money(500))
	assert.Equal(t, money.Zero, charge)

	charge = l.AccrueLiquidity("A", money.Money(-100_000))
	assert.True(t, charge > 0)
	assert.Equal(t, charge, l.Totals("A").Liquidity)
}

func TestAccrueDelayMultipliesWhenOverdue(t *testing.T) {
	l := New(testRates())
	normal := l.AccrueDelay("A", false)
	l2 := New(testRates())
	overdue := l2.AccrueDelay("A", true)
	assert.Equal(t, normal.Int64()*3, overdue.Int64())
}

func TestAccrueSplitFrictionScalesWithPartsMinusOne(t *testing.T) {
	l := New(testRates())
	charge := l.AccrueSplitFriction("A", 3)
	assert.Equal(t, money.Money(200), charge)

	l2 := New(testRates())
	noCharge := l2.AccrueSplitFriction("A", 1)
	assert.Equal(t, money.Zero, noCharge)
}

func TestDeadlinePenaltyBaseThenPerTick(t *testing.T) {
	l := New(testRates())
	l.AccrueDeadlineCrossing("A")
	l.AccrueDeadlineOngoing("A")
	l.AccrueDeadlineOngoing("A")

	totals := l.Totals("A")
	assert.Equal(t, money.Money(1000+50+50), totals.DeadlinePenalty)
}

func TestTotalsAreMonotonicAndSumCorrectly(t *testing.T) {
	l := New(testRates())
	l.AccrueLiquidity("A", money.Money(-200_000))
	l.AccrueCollateralOpportunity("A", money.Money(300_000))
	l.AccrueDelay("A", false)
	l.AccrueSplitFriction("A", 2)
	l.AccrueDeadlineCrossing("A")

	totals := l.Totals("A")
	assert.Equal(t, totals.Liquidity+totals.CollateralOpportunity+totals.Delay+totals.SplitFriction+totals.DeadlinePenalty, totals.Total())

	before := totals.Total()
	l.AccrueDeadlineOngoing("A")
	after := l.Totals("A").Total()
	assert.True(t, after >= before)
}

func TestPerTickRateRoundsHalfEven(t *testing.T) {
	// 100 cents at 1 bps over 1 tick-per-day: 100 * 1 / 10000 = 0.01 -> rounds to 0.
	assert.Equal(t, money.Money(0), perTickRate(money.Money(100), 1, 1))
	// 50000 cents at 100 bps over 1 tick: 50000*100/10000 = 500.
	assert.Equal(t, money.Money(500), perTickRate(money.Money(50_000), 100, 1))
}

func TestDifferentAgentsTrackedIndependently(t *testing.T) {
	l := New(testRates())
	l.AccrueDelay("A", false)
	l.AccrueDelay("B", true)

	assert.NotEqual(t, l.Totals("A").Delay, l.Totals("B").Delay)
}
