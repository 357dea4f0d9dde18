package orchestrator

import (
	"kyd/internal/engine/escalate"
	"kyd/internal/engine/events"
	"kyd/internal/engine/txstore"
)

// stepEscalation boosts priorities for transactions nearing their
// deadline (tick step 4, spec §4.9), across every agent's Q1 and the
// shared Q2, reordering both queues and emitting PriorityEscalated for
// anything that actually changed.
func (o *Orchestrator) stepEscalation(tick uint64) {
	if o.escalation.StartEscalatingAt == 0 {
		return
	}
	for _, id := range o.agentOrder {
		for _, e := range o.agents[id].Q1.All() {
			o.escalateOne(tick, e.TransactionID)
		}
	}
	for _, e := range o.q2.All() {
		o.escalateOne(tick, e.TransactionID)
	}
}

func (o *Orchestrator) escalateOne(tick uint64, txID string) {
	tx, ok := o.store.Get(txID)
	if !ok {
		return
	}
	switch tx.Status {
	case txstore.StatusQueued1, txstore.StatusQueued2, txstore.StatusOverdue:
	default:
		return
	}

	remaining := ticksToDeadline(tick, tx.DeadlineTick)
	var ticksRemaining uint64
	if remaining > 0 {
		ticksRemaining = uint64(remaining)
	}
	newPriority := escalate.CurrentPriority(tx.OriginalPriority, escalate.Boost(o.escalation, ticksRemaining))
	if newPriority == tx.Priority {
		return
	}
	old := tx.Priority
	tx.Priority = newPriority

	if agent, ok := o.agents[tx.Sender]; ok {
		agent.Q1.UpdatePriority(txID, newPriority)
	}
	o.q2.UpdatePriority(txID, newPriority)

	o.stream.Emit(events.PriorityEscalated{
		Base:             events.NewBase(tick),
		TransactionID:    txID,
		OriginalPriority: tx.OriginalPriority,
		OldPriority:      old,
		NewPriority:      newPriority,
		TicksToDeadline:  remaining,
	})
}
