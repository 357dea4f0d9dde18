package orchestrator

import (
	"fmt"

	"kyd/internal/engine/events"
	"kyd/internal/engine/policy"
	"kyd/internal/engine/queue1"
	"kyd/internal/engine/queue2"
	"kyd/internal/engine/txstore"
	kyderrors "kyd/pkg/errors"
	"kyd/pkg/money"
)

// maxQ1DrainIterations guards against a misconfigured policy that always
// re-splits its head into the same shape, which would otherwise loop
// forever within a single tick.
const maxQ1DrainIterations = 10000

// stepPaymentTrees drains each agent's Q1 head against its payment_tree
// (tick step 3, spec §4.6): Release moves the head into Q2, Hold stops
// that agent's drain for this tick, Drop terminates it, Split replaces it
// with children reinserted at the head.
func (o *Orchestrator) stepPaymentTrees(tick uint64) error {
agentLoop:
	for _, id := range o.agentOrder {
		a := o.agents[id]
		for iterations := 0; ; iterations++ {
			head, ok := a.Q1.Head()
			if !ok {
				break
			}
			if iterations >= maxQ1DrainIterations {
				return kyderrors.NewConsistencyBug("orchestrator.stepPaymentTrees",
					fmt.Errorf("agent %s exceeded the Q1 drain budget in one tick", a.ID))
			}
			tx, ok := o.store.Get(head.TransactionID)
			if !ok {
				return kyderrors.NewConsistencyBug("orchestrator.stepPaymentTrees",
					fmt.Errorf("queued transaction %s missing from store", head.TransactionID))
			}

			env := a.baseEnvironment(tick, o)
			env.TicksToDeadline = ticksToDeadline(tick, tx.DeadlineTick)
			env.RemainingAmount = int64(tx.RemainingAmount)
			decision, err := policy.Evaluate(a.ID, a.Policy.PaymentTree, &env)
			if err != nil {
				return err
			}

			switch decision.Action {
			case policy.ActionRelease:
				if err := o.releaseToQ2(tick, a, tx, decision); err != nil {
					return err
				}
			case policy.ActionHold:
				o.stream.Emit(events.PolicyHold{Base: events.NewBase(tick), TransactionID: tx.ID, AgentID: a.ID, NodeID: decision.NodeID})
				continue agentLoop
			case policy.ActionDrop:
				a.Q1.PopHead()
				if err := o.store.Transition(tx.ID, txstore.StatusDropped); err != nil {
					return err
				}
				a.dayDropped++
				o.stream.Emit(events.PolicyDrop{Base: events.NewBase(tick), TransactionID: tx.ID, AgentID: a.ID, NodeID: decision.NodeID})
			case policy.ActionSplit:
				if err := o.splitHead(tick, a, tx, decision); err != nil {
					return err
				}
			default:
				return kyderrors.NewConsistencyBug("orchestrator.stepPaymentTrees",
					fmt.Errorf("payment_tree node %s resolved to non-payment action %d", decision.NodeID, decision.Action))
			}
		}
	}
	return nil
}

func (o *Orchestrator) releaseToQ2(tick uint64, a *Agent, tx *txstore.Transaction, decision policy.Decision) error {
	a.Q1.PopHead()
	if err := o.store.Transition(tx.ID, txstore.StatusQueued2); err != nil {
		return err
	}
	o.q2.Push(queue2.Entry{
		TransactionID: tx.ID,
		Sender:        tx.Sender,
		Receiver:      tx.Receiver,
		Amount:        tx.RemainingAmount,
		Priority:      tx.Priority,
		EnteredTick:   tick,
	})
	o.stream.Emit(events.PolicySubmit{Base: events.NewBase(tick), TransactionID: tx.ID, AgentID: a.ID, NodeID: decision.NodeID})
	o.stream.Emit(events.RtgsSubmission{Base: events.NewBase(tick), TransactionID: tx.ID, Sender: tx.Sender, Receiver: tx.Receiver, Amount: tx.RemainingAmount})
	return nil
}

func (o *Orchestrator) splitHead(tick uint64, a *Agent, tx *txstore.Transaction, decision policy.Decision) error {
	parts := decision.SplitParts
	if parts < 2 {
		return kyderrors.NewConsistencyBug("orchestrator.splitHead",
			fmt.Errorf("split node %s requested %d parts, need >=2", decision.NodeID, parts))
	}
	amounts := splitEvenly(tx.RemainingAmount, parts)
	children, err := o.store.Split(tx.ID, amounts)
	if err != nil {
		return err
	}
	a.Q1.PopHead()

	childEntries := make([]queue1.Entry, 0, len(children))
	childIDs := make([]string, 0, len(children))
	for i, c := range children {
		if err := o.store.Transition(c.ID, txstore.StatusQueued1); err != nil {
			return err
		}
		childEntries = append(childEntries, queue1.Entry{
			TransactionID: c.ID,
			Priority:      c.Priority,
			DeadlineTick:  c.DeadlineTick,
			ArrivalTick:   tick,
		})
		childIDs = append(childIDs, c.ID)
	}
	a.Q1.PushFront(childEntries)

	friction := o.costs.AccrueSplitFriction(a.ID, parts)
	o.stream.Emit(events.PolicySplit{
		Base:         events.NewBase(tick),
		ParentID:     tx.ID,
		AgentID:      a.ID,
		NodeID:       decision.NodeID,
		Children:     childIDs,
		PartsAmounts: amounts,
		FrictionCost: friction,
	})
	return nil
}

// splitEvenly divides total into parts whole cents, distributing the
// remainder to the first entries so the sum is always exact — txstore's
// Split rejects any other sum.
func splitEvenly(total money.Money, parts int) []money.Money {
	base := int64(total) / int64(parts)
	remainder := int64(total) % int64(parts)
	amounts := make([]money.Money, parts)
	for i := 0; i < parts; i++ {
		amt := base
		if int64(i) < remainder {
			amt++
		}
		amounts[i] = money.Money(amt)
	}
	return amounts
}
