package orchestrator

import (
	"kyd/internal/engine/events"
	"kyd/internal/engine/lsm"
	"kyd/pkg/money"
)

// stepLSM runs one liquidity-saving pass over whatever remains in Q2
// after the direct drain (tick step 6, spec §4.10), pulling out anything
// the bilateral-offset or cycle-detection rounds can settle.
func (o *Orchestrator) stepLSM(tick uint64) int {
	entries := o.q2.All()
	if len(entries) == 0 {
		return 0
	}

	obligations := make([]lsm.Obligation, 0, len(entries))
	senderOf := make(map[string]string, len(entries))
	for _, e := range entries {
		obligations = append(obligations, lsm.Obligation{
			TransactionID: e.TransactionID, Sender: e.Sender, Receiver: e.Receiver, Amount: e.Amount,
		})
		senderOf[e.TransactionID] = e.Sender
	}

	agentStates := make(map[string]*lsm.AgentState, len(o.agents))
	for id, a := range o.agents {
		agentStates[id] = &lsm.AgentState{Balance: a.Balance, CreditCapacity: a.creditCapacity()}
	}

	result := lsm.RunPass(o.lsmConfig, obligations, agentStates)

	for id, st := range agentStates {
		o.agents[id].Balance = st.Balance
	}
	for _, txID := range result.SettledTxIDs {
		o.q2.Remove(txID)
		o.finalizeSettlement(tick, txID, senderOf[txID])
	}

	for _, b := range result.Bilateral {
		o.stream.Emit(events.LsmBilateralOffset{
			Base: events.NewBase(tick), AgentA: b.AgentA, AgentB: b.AgentB,
			AmountA: b.AmountA, AmountB: b.AmountB, TxIDs: b.TxIDs,
		})
	}
	for _, c := range result.Cycles {
		txAmounts := make([]money.Money, len(c.TxIDs))
		for i, id := range c.TxIDs {
			txAmounts[i] = c.TxAmounts[id]
		}
		netPositions := make([]money.Money, len(c.Agents))
		for i, agentID := range c.Agents {
			netPositions[i] = c.NetPositions[agentID]
		}
		o.stream.Emit(events.LsmCycleSettlement{
			Base: events.NewBase(tick), Agents: c.Agents, TxAmounts: txAmounts,
			TotalValue: c.TotalValue, NetPositions: netPositions, TxIDs: c.TxIDs,
		})
	}

	return len(result.SettledTxIDs)
}
