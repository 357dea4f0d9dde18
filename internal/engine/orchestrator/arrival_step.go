package orchestrator

import (
	"kyd/internal/engine/events"
	"kyd/internal/engine/queue1"
	"kyd/internal/engine/txstore"
)

// stepArrivals draws new transactions from each agent's configured
// generator (tick step 2, spec §4.8) in stable agent-registration order,
// enqueueing each into its sender's Q1 and emitting Arrival.
func (o *Orchestrator) stepArrivals(tick uint64) int {
	horizon := o.simulationHorizon()
	count := 0
	for _, id := range o.agentOrder {
		a := o.agents[id]
		if a.Arrival == nil {
			continue
		}
		for _, draw := range a.Arrival.Tick(tick) {
			deadline := draw.DeadlineTick
			if horizon > 0 && deadline > horizon {
				deadline = horizon
			}
			tx, err := o.store.Create(draw.Sender, draw.Receiver, draw.Amount, tick, deadline, draw.Priority, draw.Divisible)
			if err != nil {
				o.logger.Warn("arrival draw rejected", map[string]interface{}{"agent_id": a.ID, "err": err.Error()})
				continue
			}
			if err := o.store.Transition(tx.ID, txstore.StatusQueued1); err != nil {
				o.logger.Error("arrival enqueue failed", map[string]interface{}{"agent_id": a.ID, "err": err.Error()})
				continue
			}
			a.Q1.Push(queue1.Entry{
				TransactionID: tx.ID,
				Priority:      tx.Priority,
				DeadlineTick:  tx.DeadlineTick,
				ArrivalTick:   tick,
			})
			o.stream.Emit(events.Arrival{
				Base:          events.NewBase(tick),
				TransactionID: tx.ID,
				Sender:        tx.Sender,
				Receiver:      tx.Receiver,
				Amount:        tx.Amount,
				Priority:      tx.Priority,
				Deadline:      tx.DeadlineTick,
				Divisible:     tx.Divisible,
			})
			count++
		}
	}
	return count
}

// simulationHorizon is the last valid tick index, used to clamp sampled
// deadlines that would otherwise fall outside the configured run length.
// Zero means "no configured horizon" (num_days*ticks_per_day underflowed).
func (o *Orchestrator) simulationHorizon() uint64 {
	total := o.ticksPerDay * uint64(o.numDays)
	if total == 0 {
		return 0
	}
	return total - 1
}

// SubmitTransaction accepts an externally-originated transaction (spec
// §6: submit_transaction), bypassing C9 sampling — it enters the sender's
// Q1 exactly as an arrival would, to be picked up by the next tick's
// payment_tree drain.
func (o *Orchestrator) SubmitTransaction(sender, receiver string, amount int64, deadlineTick uint64, priority int, divisible bool) (string, error) {
	a, ok := o.agents[sender]
	if !ok {
		return "", unknownAgentError(sender)
	}
	tx, err := o.store.Create(sender, receiver, moneyFromCents(amount), o.tick, deadlineTick, priority, divisible)
	if err != nil {
		return "", err
	}
	if err := o.store.Transition(tx.ID, txstore.StatusQueued1); err != nil {
		return "", err
	}
	a.Q1.Push(queue1.Entry{
		TransactionID: tx.ID,
		Priority:      tx.Priority,
		DeadlineTick:  tx.DeadlineTick,
		ArrivalTick:   o.tick,
	})
	o.stream.Emit(events.Arrival{
		Base:          events.NewBase(o.tick),
		TransactionID: tx.ID,
		Sender:        tx.Sender,
		Receiver:      tx.Receiver,
		Amount:        tx.Amount,
		Priority:      tx.Priority,
		Deadline:      tx.DeadlineTick,
		Divisible:     tx.Divisible,
	})
	return tx.ID, nil
}
