package orchestrator

import "kyd/internal/engine/events"

// maybeEmitEndOfDay closes out a simulated day once the just-executed tick
// was that day's last (tick step 10 boundary, spec §4.11): it snapshots
// every agent's daily metrics, emits EndOfDay, and resets tracking for the
// next day.
func (o *Orchestrator) maybeEmitEndOfDay(tick uint64) {
	if o.ticksPerDay == 0 || (tick+1)%o.ticksPerDay != 0 {
		return
	}
	day := uint32(tick / o.ticksPerDay)
	isFinal := o.numDays == 0 || day+1 >= o.numDays

	metrics := make([]events.AgentDailyMetrics, 0, len(o.agentOrder))
	for _, id := range o.agentOrder {
		a := o.agents[id]
		metrics = append(metrics, events.AgentDailyMetrics{
			AgentID:              id,
			OpeningBalance:       a.dayOpening,
			ClosingBalance:       a.Balance,
			MinBalance:           a.dayMin,
			MaxBalance:           a.dayMax,
			PeakOverdraft:        a.dayPeakOverdraft,
			PeakPostedCollateral: a.dayPeakCollateral,
			TxSettledCount:       a.daySettled,
			TxDroppedCount:       a.dayDropped,
			TxOverdueCount:       a.dayOverdue,
			Queue1Size:           a.Q1.Len(),
			TotalCost:            o.costs.Totals(id).Total(),
		})
	}

	o.stream.Emit(events.EndOfDay{
		Base:         events.NewBase(tick),
		Day:          day,
		AgentMetrics: metrics,
		IsFinalDay:   isFinal,
	})

	for _, id := range o.agentOrder {
		o.agents[id].resetDayTracking()
	}
}
