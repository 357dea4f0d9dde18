// Package collateral implements the per-agent posted-collateral ledger
// and auto-withdraw timers (spec §4.4).
package collateral

import (
	kyderrors "kyd/pkg/errors"
	"kyd/pkg/money"
)

// Timer is a scheduled automatic withdrawal.
type Timer struct {
	Amount           money.Money
	PostedAtTick     uint64
	AutoWithdrawTick uint64
	OriginalReason   string
	fired            bool
}

// Ledger owns one agent's posted collateral and its timers.
type Ledger struct {
	AgentID    string
	Capacity   money.Money
	Posted     money.Money
	timers     []*Timer
}

// New constructs a ledger with the agent's configured capacity.
func New(agentID string, capacity money.Money) *Ledger {
	return &Ledger{AgentID: agentID, Capacity: capacity}
}

// Post increases posted collateral, failing if it would exceed capacity
// (spec §4.4). If hasAutoWithdraw is set, a Timer firing autoWithdrawAfter
// ticks from currentTick is recorded, carrying reason as its OriginalReason
// for later CollateralTimerWithdrawn events.
func (l *Ledger) Post(amount money.Money, reason string, currentTick uint64, hasAutoWithdraw bool, autoWithdrawAfter uint64) (*Timer, error) {
	if amount < 0 {
		return nil, kyderrors.ErrInvalidAmount
	}
	newTotal, ok := l.Posted.Add(amount)
	if !ok {
		return nil, kyderrors.NewConsistencyBug("collateral.Post", kyderrors.ErrInvalidAmount)
	}
	if newTotal > l.Capacity {
		return nil, kyderrors.ErrCollateralCapacity
	}
	l.Posted = newTotal

	var timer *Timer
	if hasAutoWithdraw {
		timer = &Timer{
			Amount:           amount,
			PostedAtTick:     currentTick,
			AutoWithdrawTick: currentTick + autoWithdrawAfter,
			OriginalReason:   reason,
		}
		l.timers = append(l.timers, timer)
	}
	return timer, nil
}

// Withdraw decreases posted collateral, capped at what is posted (spec
// §4.4); it returns the actual amount withdrawn.
func (l *Ledger) Withdraw(amount money.Money) money.Money {
	if amount < 0 {
		amount = 0
	}
	actual := amount
	if actual > l.Posted {
		actual = l.Posted
	}
	l.Posted -= actual
	return actual
}

// FiredTimer describes one auto-withdraw timer that fired this tick.
type FiredTimer struct {
	Amount         money.Money
	OriginalReason string
	PostedAtTick   uint64
}

// Tick fires every timer whose AutoWithdrawTick matches currentTick, in
// posting order (spec §4.4). Each timer withdraws up to its own Amount,
// capped by what remains posted at the moment it fires — never driving
// Posted negative, and a manual withdrawal between Post and the timer
// firing reduces what the timer can pull, but the timer still fires and
// is reported even if the resulting amount is zero.
func (l *Ledger) Tick(currentTick uint64) []FiredTimer {
	var fired []FiredTimer
	for _, t := range l.timers {
		if t.fired || t.AutoWithdrawTick != currentTick {
			continue
		}
		t.fired = true
		amt := l.Withdraw(t.Amount)
		fired = append(fired, FiredTimer{
			Amount:         amt,
			OriginalReason: t.OriginalReason,
			PostedAtTick:   t.PostedAtTick,
		})
	}
	return fired
}

// AvailableCapacity returns how much more may be posted before hitting
// Capacity.
func (l *Ledger) AvailableCapacity() money.Money {
	return l.Capacity - l.Posted
}

// TimerSnapshot is a serializable view of one scheduled auto-withdrawal,
// including whether it has already fired.
type TimerSnapshot struct {
	Amount           money.Money
	PostedAtTick     uint64
	AutoWithdrawTick uint64
	OriginalReason   string
	Fired            bool
}

// ExportTimers returns every timer's state, fired or not, for snapshotting.
func (l *Ledger) ExportTimers() []TimerSnapshot {
	out := make([]TimerSnapshot, len(l.timers))
	for i, t := range l.timers {
		out[i] = TimerSnapshot{
			Amount: t.Amount, PostedAtTick: t.PostedAtTick,
			AutoWithdrawTick: t.AutoWithdrawTick, OriginalReason: t.OriginalReason, Fired: t.fired,
		}
	}
	return out
}

// Restore rebuilds a Ledger from previously captured state.
func Restore(agentID string, capacity, posted money.Money, timers []TimerSnapshot) *Ledger {
	l := &Ledger{AgentID: agentID, Capacity: capacity, Posted: posted}
	for _, t := range timers {
		l.timers = append(l.timers, &Timer{
			Amount: t.Amount, PostedAtTick: t.PostedAtTick,
			AutoWithdrawTick: t.AutoWithdrawTick, OriginalReason: t.OriginalReason, fired: t.Fired,
		})
	}
	return l
}
