package orchestrator

import (
	"kyd/internal/engine/events"
	"kyd/internal/engine/queue2"
)

// stepSettlement drains Q2 (tick step 5, spec §4.7): repeatedly settles
// whatever is currently at the front of the queue (or of its band, under
// priority-banded mode) until nothing more can move, then reports one
// QueuedRtgs per head still blocked.
func (o *Orchestrator) stepSettlement(tick uint64) int {
	check := func(e queue2.Entry) bool {
		sender, ok := o.agents[e.Sender]
		if !ok {
			return false
		}
		return sender.Balance-e.Amount >= -sender.creditCapacity()
	}
	settle := func(e queue2.Entry) {
		sender := o.agents[e.Sender]
		receiver := o.agents[e.Receiver]
		before := sender.Balance
		sender.Balance -= e.Amount
		receiver.Balance += e.Amount

		if e.EnteredTick == tick {
			o.stream.Emit(events.RtgsImmediateSettlement{
				Base: events.NewBase(tick), TransactionID: e.TransactionID, Sender: e.Sender, Receiver: e.Receiver,
				Amount: e.Amount, SenderBalanceBefore: before, SenderBalanceAfter: sender.Balance,
			})
		} else {
			o.stream.Emit(events.Queue2LiquidityRelease{
				Base: events.NewBase(tick), TransactionID: e.TransactionID, Sender: e.Sender, Amount: e.Amount,
			})
		}
		o.finalizeSettlement(tick, e.TransactionID, e.Sender)
	}

	settled := o.q2.Drain(check, settle)

	for _, e := range o.q2.BlockedHeads(check) {
		o.stream.Emit(events.QueuedRtgs{Base: events.NewBase(tick), TransactionID: e.TransactionID, Sender: e.Sender})
	}

	return len(settled)
}
