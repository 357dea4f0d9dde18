package orchestrator

import (
	"kyd/internal/engine/events"
	"kyd/internal/engine/policy"
	"kyd/pkg/money"
)

// baseEnvironment builds the field set every tree evaluation shares;
// payment_tree evaluation layers TicksToDeadline/RemainingAmount on top
// (spec §4.2 — those two fields are meaningless outside a transaction's
// context, so the collateral trees never see them set).
func (a *Agent) baseEnvironment(tick uint64, o *Orchestrator) policy.Environment {
	var systemTickInDay int64
	if o.ticksPerDay > 0 {
		systemTickInDay = int64(tick % o.ticksPerDay)
	}
	return policy.Environment{
		Tick:                        int64(tick),
		SystemTickInDay:             systemTickInDay,
		EffectiveLiquidity:          int64(a.Balance) + int64(a.UnsecuredCap) + int64(a.Collateral.Posted),
		Balance:                     int64(a.Balance),
		PostedCollateral:            int64(a.Collateral.Posted),
		RemainingCollateralCapacity: int64(a.Collateral.AvailableCapacity()),
		MaxCollateralCapacity:       int64(a.Collateral.Capacity),
		Queue1Size:                  int64(a.Q1.Len()),
		Queue2Size:                  int64(o.q2.Len()),
	}
}

// stepCollateralTree evaluates every agent's strategic_collateral_tree
// (tick step 1) or end_of_tick_collateral_tree (tick step 7, optional —
// spec §4.2), applying whatever collateral op each reaches.
func (o *Orchestrator) stepCollateralTree(tick uint64, strategic bool) error {
	for _, id := range o.agentOrder {
		a := o.agents[id]
		tree := a.Policy.StrategicCollateral
		if !strategic {
			tree = a.Policy.EndOfTickCollateral
			if tree == nil {
				continue
			}
		}
		env := a.baseEnvironment(tick, o)
		decision, err := policy.Evaluate(a.ID, tree, &env)
		if err != nil {
			return err
		}
		o.applyCollateralDecision(a, tick, decision)
	}
	return nil
}

func (o *Orchestrator) applyCollateralDecision(a *Agent, tick uint64, d policy.Decision) {
	switch d.Action {
	case policy.ActionPostCollateral:
		timer, err := a.Collateral.Post(money.Money(d.Amount), d.Reason, tick, d.HasAutoWithdraw, uint64(d.AutoWithdrawAfter))
		if err != nil {
			o.logger.Warn("collateral post rejected", map[string]interface{}{
				"agent_id": a.ID, "amount": d.Amount, "reason": d.Reason, "err": err.Error(),
			})
			return
		}
		ev := events.CollateralPost{
			Base:            events.NewBase(tick),
			AgentID:         a.ID,
			Amount:          money.Money(d.Amount),
			Reason:          d.Reason,
			NewTotal:        a.Collateral.Posted,
			HasAutoWithdraw: d.HasAutoWithdraw,
		}
		if timer != nil {
			ev.AutoWithdrawAtTick = timer.AutoWithdrawTick
		}
		o.stream.Emit(ev)

	case policy.ActionWithdrawCollateral:
		actual := a.Collateral.Withdraw(money.Money(d.Amount))
		o.stream.Emit(events.CollateralWithdraw{
			Base:     events.NewBase(tick),
			AgentID:  a.ID,
			Amount:   actual,
			Reason:   "policy",
			NewTotal: a.Collateral.Posted,
		})

	case policy.ActionHoldCollateral:
	}
}

// stepCollateralTimers fires every due auto-withdraw timer (tick step 9,
// spec §4.4).
func (o *Orchestrator) stepCollateralTimers(tick uint64) {
	for _, id := range o.agentOrder {
		a := o.agents[id]
		for _, fired := range a.Collateral.Tick(tick) {
			o.stream.Emit(events.CollateralTimerWithdrawn{
				Base:           events.NewBase(tick),
				AgentID:        a.ID,
				Amount:         fired.Amount,
				OriginalReason: fired.OriginalReason,
				PostedAtTick:   fired.PostedAtTick,
				NewTotal:       a.Collateral.Posted,
			})
		}
	}
}
