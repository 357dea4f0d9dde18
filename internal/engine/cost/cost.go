// Package cost accrues the five per-agent cost categories each tick
// (spec §4.3): liquidity, collateral opportunity, delay, split friction,
// and deadline penalty.
package cost

import (
	"kyd/pkg/money"
)

// Rates holds the basis-point and flat-fee parameters shared across every
// agent for a run. All rates are per-day; accrual divides by ticks_per_day.
type Rates struct {
	OverdraftBpsPerDay     int64
	CollateralBpsPerDay    int64
	Queue1DelayPerTick     money.Money
	OverdueDelayMultiplier int64 // integer multiplier, e.g. 2 means double
	SplitFee               money.Money
	DeadlineBasePenalty    money.Money
	DeadlinePenaltyPerTick money.Money
	TicksPerDay            int64
}

// Totals accumulates one agent's running cost, broken down by category. All
// fields are monotonically non-decreasing for the lifetime of a run.
type Totals struct {
	Liquidity             money.Money
	CollateralOpportunity money.Money
	Delay                 money.Money
	SplitFriction         money.Money
	DeadlinePenalty       money.Money
}

// Total sums the five categories.
func (t Totals) Total() money.Money {
	sum, _ := t.Liquidity.Add(t.CollateralOpportunity)
	sum, _ = sum.Add(t.Delay)
	sum, _ = sum.Add(t.SplitFriction)
	sum, _ = sum.Add(t.DeadlinePenalty)
	return sum
}

// Ledger tracks running Totals per agent.
type Ledger struct {
	rates   Rates
	byAgent map[string]*Totals
}

// New constructs a cost ledger with the given shared rates.
func New(rates Rates) *Ledger {
	return &Ledger{rates: rates, byAgent: make(map[string]*Totals)}
}

// Rates returns the ledger's configured accrual rates, for snapshotting.
func (l *Ledger) Rates() Rates { return l.rates }

func (l *Ledger) totals(agentID string) *Totals {
	t, ok := l.byAgent[agentID]
	if !ok {
		t = &Totals{}
		l.byAgent[agentID] = t
	}
	return t
}

// Totals returns the (copied) running totals for an agent.
func (l *Ledger) Totals(agentID string) Totals {
	return *l.totals(agentID)
}

// Restore rebuilds a Ledger from previously captured per-agent totals.
func Restore(rates Rates, totals map[string]Totals) *Ledger {
	l := New(rates)
	for id, t := range totals {
		cp := t
		l.byAgent[id] = &cp
	}
	return l
}

// perTickRate divides a per-day bps rate by (10000 * ticks_per_day) against
// a principal, rounding half-even (spec §4.3). The whole computation is
// integer arithmetic; no floating point touches the charge.
func perTickRate(principal money.Money, bpsPerDay int64, ticksPerDay int64) money.Money {
	if principal == 0 || bpsPerDay == 0 || ticksPerDay <= 0 {
		return money.Zero
	}
	num := principal.Int64() * bpsPerDay
	den := 10000 * ticksPerDay
	q, r := num/den, num%den
	if 2*r > den || (2*r == den && q%2 != 0) {
		q++
	}
	return money.Money(q)
}

// AccrueLiquidity charges overdraft cost when balance < 0 (spec §4.3 cat 1).
func (l *Ledger) AccrueLiquidity(agentID string, balance money.Money) money.Money {
	if balance >= 0 {
		return money.Zero
	}
	charge := perTickRate(balance.Abs(), l.rates.OverdraftBpsPerDay, l.rates.TicksPerDay)
	t := l.totals(agentID)
	t.Liquidity, _ = t.Liquidity.Add(charge)
	return charge
}

// AccrueCollateralOpportunity charges the opportunity cost of posted
// collateral (spec §4.3 cat 2).
func (l *Ledger) AccrueCollateralOpportunity(agentID string, posted money.Money) money.Money {
	charge := perTickRate(posted, l.rates.CollateralBpsPerDay, l.rates.TicksPerDay)
	t := l.totals(agentID)
	t.CollateralOpportunity, _ = t.CollateralOpportunity.Add(charge)
	return charge
}

// AccrueDelay charges one tick of Q1 waiting cost, multiplied when the
// transaction is overdue (spec §4.3 cat 3).
func (l *Ledger) AccrueDelay(agentID string, overdue bool) money.Money {
	charge := l.rates.Queue1DelayPerTick
	if overdue {
		charge, _ = charge.Mul(l.rates.OverdueDelayMultiplier)
	}
	t := l.totals(agentID)
	t.Delay, _ = t.Delay.Add(charge)
	return charge
}

// AccrueSplitFriction charges a one-time fee when a transaction is split
// into k parts (spec §4.3 cat 4).
func (l *Ledger) AccrueSplitFriction(agentID string, parts int) money.Money {
	if parts <= 1 {
		return money.Zero
	}
	charge, _ := l.rates.SplitFee.Mul(int64(parts - 1))
	t := l.totals(agentID)
	t.SplitFriction, _ = t.SplitFriction.Add(charge)
	return charge
}

// AccrueDeadlineCrossing charges the base penalty the tick a transaction
// first becomes overdue (spec §4.3 cat 5).
func (l *Ledger) AccrueDeadlineCrossing(agentID string) money.Money {
	charge := l.rates.DeadlineBasePenalty
	t := l.totals(agentID)
	t.DeadlinePenalty, _ = t.DeadlinePenalty.Add(charge)
	return charge
}

// AccrueDeadlineOngoing charges the per-tick penalty for every subsequent
// tick a transaction remains overdue (spec §4.3 cat 5).
func (l *Ledger) AccrueDeadlineOngoing(agentID string) money.Money {
	charge := l.rates.DeadlinePenaltyPerTick
	t := l.totals(agentID)
	t.DeadlinePenalty, _ = t.DeadlinePenalty.Add(charge)
	return charge
}
