package orchestrator

import (
	"kyd/internal/engine/cost"
	"kyd/internal/engine/events"
	"kyd/internal/engine/txstore"
	"kyd/pkg/money"
)

// stepCostAccrual charges this tick's liquidity, collateral-opportunity,
// Q1 delay, and deadline-penalty costs (tick step 8, spec §4.3), first
// promoting every transaction that just crossed its deadline into
// overdue tracking. tickStart is each agent's running totals captured
// before step 1 ran, so the emitted per-category deltas cover the whole
// tick — including split friction charged back in step 3.
func (o *Orchestrator) stepCostAccrual(tick uint64, tickStart map[string]cost.Totals) money.Money {
	o.detectOverdue(tick)

	for _, id := range o.agentOrder {
		a := o.agents[id]
		o.costs.AccrueLiquidity(id, a.Balance)
		o.costs.AccrueCollateralOpportunity(id, a.Collateral.Posted)
		for _, e := range a.Q1.All() {
			tx, ok := o.store.Get(e.TransactionID)
			o.costs.AccrueDelay(id, ok && tx.IsOverdue)
		}
	}

	var totalDelta money.Money
	for _, id := range o.agentOrder {
		prev := tickStart[id]
		now := o.costs.Totals(id)
		o.stream.Emit(events.CostAccrual{
			Base:                 events.NewBase(tick),
			AgentID:              id,
			LiquidityDelta:       now.Liquidity - prev.Liquidity,
			CollateralDelta:      now.CollateralOpportunity - prev.CollateralOpportunity,
			DelayDelta:           now.Delay - prev.Delay,
			SplitFrictionDelta:   now.SplitFriction - prev.SplitFriction,
			DeadlinePenaltyDelta: now.DeadlinePenalty - prev.DeadlinePenalty,
		})
		totalDelta, _ = totalDelta.Add(now.Total() - prev.Total())
	}
	return totalDelta
}

func (o *Orchestrator) detectOverdue(tick uint64) {
	for _, id := range o.store.OpenIDs() {
		tx, ok := o.store.Get(id)
		if !ok || tick <= tx.DeadlineTick {
			continue
		}
		if !tx.IsOverdue {
			tx.IsOverdue = true
			tx.OverdueSince = tick
			if tx.Status == txstore.StatusQueued1 || tx.Status == txstore.StatusQueued2 {
				o.store.Transition(tx.ID, txstore.StatusOverdue)
			}
			if agent, ok := o.agents[tx.Sender]; ok {
				agent.dayOverdue++
			}
			penalty := o.costs.AccrueDeadlineCrossing(tx.Sender)
			tx.AccruedPenalty, _ = tx.AccruedPenalty.Add(penalty)
			o.stream.Emit(events.TransactionWentOverdue{
				Base: events.NewBase(tick), TransactionID: tx.ID, Sender: tx.Sender, Receiver: tx.Receiver,
				DeadlineTick: tx.DeadlineTick, RemainingAmount: tx.RemainingAmount, EstimatedPenalty: penalty,
			})
		} else {
			penalty := o.costs.AccrueDeadlineOngoing(tx.Sender)
			tx.AccruedPenalty, _ = tx.AccruedPenalty.Add(penalty)
		}
	}
}
