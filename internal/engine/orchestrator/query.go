package orchestrator

import (
	"kyd/internal/engine/cost"
	"kyd/internal/engine/events"
	"kyd/internal/engine/policy"
	"kyd/internal/engine/txstore"
	"kyd/pkg/money"
)

// SystemMetrics is a point-in-time read across every agent (spec §6
// get_system_metrics), computed on demand rather than tracked incrementally.
type SystemMetrics struct {
	Tick               uint64
	Day                uint32
	TotalBalance       money.Money
	TotalPostedCollateral money.Money
	TotalQueue1Depth   int
	TotalQueue2Depth   int
	TotalEventsEmitted int
}

// GetTickEvents returns every event emitted during the given tick (spec §6).
func (o *Orchestrator) GetTickEvents(tick uint64) []events.Event {
	return o.stream.GetTick(tick)
}

// GetAllEvents returns the full event stream emitted so far (spec §6).
func (o *Orchestrator) GetAllEvents() []events.Event {
	return o.stream.GetAll()
}

// GetAgentAccumulatedCosts returns an agent's running cost totals (spec §6).
func (o *Orchestrator) GetAgentAccumulatedCosts(agentID string) cost.Totals {
	return o.costs.Totals(agentID)
}

// GetSystemMetrics returns an aggregate snapshot across every agent
// (spec §6).
func (o *Orchestrator) GetSystemMetrics() SystemMetrics {
	m := SystemMetrics{Tick: o.tick, Day: o.CurrentDay()}
	for _, id := range o.agentOrder {
		a := o.agents[id]
		m.TotalBalance, _ = m.TotalBalance.Add(a.Balance)
		m.TotalPostedCollateral, _ = m.TotalPostedCollateral.Add(a.Collateral.Posted)
		m.TotalQueue1Depth += a.Q1.Len()
	}
	m.TotalQueue2Depth = o.q2.Len()
	m.TotalEventsEmitted = o.stream.Len()
	return m
}

// GetDailyAgentMetrics recovers a past day's per-agent metrics by scanning
// the already-emitted EndOfDay events, since per-day tracking on the live
// Agent resets the moment that day's event is emitted (spec §6).
func (o *Orchestrator) GetDailyAgentMetrics(day uint32) []events.AgentDailyMetrics {
	for _, e := range o.stream.GetAll() {
		if eod, ok := e.(events.EndOfDay); ok && eod.Day == day {
			return eod.AgentMetrics
		}
	}
	return nil
}

// GetAgentQueue1Contents returns the transaction IDs currently waiting in
// one agent's Q1, head first (spec §6).
func (o *Orchestrator) GetAgentQueue1Contents(agentID string) []string {
	a, ok := o.agents[agentID]
	if !ok {
		return nil
	}
	entries := a.Q1.All()
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.TransactionID
	}
	return ids
}

// GetRTGSQueueContents returns the transaction IDs currently waiting in
// the shared Q2, in queue order (spec §6).
func (o *Orchestrator) GetRTGSQueueContents() []string {
	entries := o.q2.All()
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.TransactionID
	}
	return ids
}

// GetTransactionDetails returns a read-only view of a transaction record
// (spec §6).
func (o *Orchestrator) GetTransactionDetails(id string) (txstore.View, bool) {
	return o.store.GetByID(id)
}

// GetTransactionsNearDeadline returns every open transaction whose
// ticks-to-deadline falls within the given window, ordered by deadline
// then arrival (spec §6 get_transactions_near_deadline).
func (o *Orchestrator) GetTransactionsNearDeadline(within uint64) []txstore.View {
	return o.store.NearDeadline(o.tick, within)
}

// GetOverdueTransactions returns every transaction currently in Overdue
// status (spec §6 get_overdue_transactions).
func (o *Orchestrator) GetOverdueTransactions() []txstore.View {
	return o.store.Overdue()
}

// GetLSMCyclesForDay returns every multilateral cycle settlement emitted
// during the given simulated day, scanning the event stream the same way
// GetDailyAgentMetrics recovers a past day's EndOfDay record (spec §6
// get_lsm_cycles_for_day).
func (o *Orchestrator) GetLSMCyclesForDay(day uint32) []events.LsmCycleSettlement {
	if o.ticksPerDay == 0 {
		return nil
	}
	dayStart := uint64(day) * o.ticksPerDay
	dayEnd := dayStart + o.ticksPerDay
	var out []events.LsmCycleSettlement
	for _, e := range o.stream.GetAll() {
		c, ok := e.(events.LsmCycleSettlement)
		if !ok {
			continue
		}
		if c.EventTick() >= dayStart && c.EventTick() < dayEnd {
			out = append(out, c)
		}
	}
	return out
}

// GetAgentPolicies returns the raw, uncompiled policy configuration every
// agent was constructed with (spec §6 get_agent_policies).
func (o *Orchestrator) GetAgentPolicies() map[string]*policy.RawPolicy {
	out := make(map[string]*policy.RawPolicy, len(o.agentOrder))
	for _, ac := range o.cfg.Agents {
		out[ac.ID] = ac.Policy
	}
	return out
}
