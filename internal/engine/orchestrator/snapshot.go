package orchestrator

import (
	"fmt"

	"kyd/internal/engine/arrival"
	"kyd/internal/engine/collateral"
	"kyd/internal/engine/cost"
	"kyd/internal/engine/events"
	"kyd/internal/engine/queue1"
	"kyd/internal/engine/queue2"
	"kyd/internal/engine/txstore"
	"kyd/pkg/config"
	kyderrors "kyd/pkg/errors"
	"kyd/pkg/logger"
	"kyd/pkg/money"

	"github.com/vmihailenco/msgpack/v5"
)

// agentRuntime is the mutable slice of Agent state that isn't already
// implied by config: everything static (policy trees, credit terms,
// collateral capacity) is rebuilt from the retained config on Restore.
type agentRuntime struct {
	Balance          money.Money
	CollateralPosted money.Money
	CollateralTimers []collateral.TimerSnapshot
	Q1               []queue1.Entry
	HasArrival       bool
	ArrivalS0        uint64
	ArrivalS1        uint64

	DayOpening        money.Money
	DayMin            money.Money
	DayMax            money.Money
	DayPeakOverdraft  money.Money
	DayPeakCollateral money.Money
	DaySettled        int
	DayDropped        int
	DayOverdue        int
}

// eventEnvelope carries one event's type tag alongside its msgpack-encoded
// concrete payload, since msgpack needs a concrete type to decode into and
// events.Event is a closed but polymorphic interface.
type eventEnvelope struct {
	Type    events.Type
	Payload []byte
}

// stateSnapshot is the full serializable form of an Orchestrator (spec §6
// snapshot/restore, spec §8 scenario 9: restoring must yield bit-identical
// future behavior).
type stateSnapshot struct {
	Config       *config.SimulationConfig
	Tick         uint64
	AgentOrder   []string
	AgentRuntime map[string]agentRuntime
	Q2           []queue2.Entry
	Transactions []*txstore.Transaction
	CostTotals   map[string]cost.Totals
	Events       []eventEnvelope
}

// Snapshot serializes the orchestrator's full state to msgpack bytes
// (spec §6: snapshot() -> Bytes).
func (o *Orchestrator) Snapshot() ([]byte, error) {
	snap := stateSnapshot{
		Config:       o.cfg,
		Tick:         o.tick,
		AgentOrder:   append([]string(nil), o.agentOrder...),
		AgentRuntime: make(map[string]agentRuntime, len(o.agents)),
		Q2:           o.q2.All(),
		Transactions: o.store.Export(),
		CostTotals:   make(map[string]cost.Totals, len(o.agents)),
		Events:       make([]eventEnvelope, 0, o.stream.Len()),
	}

	for id, a := range o.agents {
		rt := agentRuntime{
			Balance:           a.Balance,
			CollateralPosted:  a.Collateral.Posted,
			CollateralTimers:  a.Collateral.ExportTimers(),
			Q1:                a.Q1.All(),
			DayOpening:        a.dayOpening,
			DayMin:            a.dayMin,
			DayMax:            a.dayMax,
			DayPeakOverdraft:  a.dayPeakOverdraft,
			DayPeakCollateral: a.dayPeakCollateral,
			DaySettled:        a.daySettled,
			DayDropped:        a.dayDropped,
			DayOverdue:        a.dayOverdue,
		}
		if a.Arrival != nil {
			rt.HasArrival = true
			rt.ArrivalS0, rt.ArrivalS1 = a.Arrival.StreamState()
		}
		snap.AgentRuntime[id] = rt
		snap.CostTotals[id] = o.costs.Totals(id)
	}

	for _, e := range o.stream.GetAll() {
		payload, err := msgpack.Marshal(e)
		if err != nil {
			return nil, kyderrors.Wrap(err, "orchestrator.Snapshot: encode event")
		}
		snap.Events = append(snap.Events, eventEnvelope{Type: e.EventType(), Payload: payload})
	}

	return msgpack.Marshal(snap)
}

// Restore rebuilds an Orchestrator from bytes produced by Snapshot (spec
// §6: restore(Bytes) -> Orchestrator). Policy trees are recompiled from
// the retained config rather than serialized directly, since Compile is a
// pure function of the same RawPolicy and recompiling is cheaper and
// simpler than round-tripping the compiled tree's unexported fields.
func Restore(data []byte, log logger.Logger) (*Orchestrator, error) {
	var snap stateSnapshot
	if err := msgpack.Unmarshal(data, &snap); err != nil {
		return nil, kyderrors.Wrap(err, "orchestrator.Restore: decode snapshot")
	}

	o, err := New(snap.Config, log)
	if err != nil {
		return nil, kyderrors.Wrap(err, "orchestrator.Restore: rebuild from config")
	}
	o.tick = snap.Tick
	o.agentOrder = append([]string(nil), snap.AgentOrder...)
	o.store = txstore.Restore(snap.Transactions)
	o.costs = cost.Restore(o.costs.Rates(), snap.CostTotals)

	// o.q2 is already the right empty, correctly-moded queue from New.
	for _, e := range snap.Q2 {
		o.q2.Push(e)
	}

	for id, a := range o.agents {
		rt, ok := snap.AgentRuntime[id]
		if !ok {
			return nil, kyderrors.NewConsistencyBug("orchestrator.Restore",
				fmt.Errorf("snapshot missing runtime state for agent %s", id))
		}
		a.Balance = rt.Balance
		a.Collateral = collateral.Restore(id, a.Collateral.Capacity, rt.CollateralPosted, rt.CollateralTimers)
		a.Q1 = queue1.New(a.Q1.Ordering())
		for _, entry := range rt.Q1 {
			a.Q1.Push(entry)
		}
		a.dayOpening, a.dayMin, a.dayMax = rt.DayOpening, rt.DayMin, rt.DayMax
		a.dayPeakOverdraft, a.dayPeakCollateral = rt.DayPeakOverdraft, rt.DayPeakCollateral
		a.daySettled, a.dayDropped, a.dayOverdue = rt.DaySettled, rt.DayDropped, rt.DayOverdue
		if rt.HasArrival && a.Arrival != nil {
			a.Arrival = arrival.RestoreGenerator(id, a.Arrival.Config(), rt.ArrivalS0, rt.ArrivalS1)
		}
	}

	o.stream = events.NewStream()
	for _, env := range snap.Events {
		e, err := decodeEvent(env.Type, env.Payload)
		if err != nil {
			return nil, err
		}
		o.stream.Emit(e)
	}

	return o, nil
}

func decodeEvent(t events.Type, payload []byte) (events.Event, error) {
	var target events.Event
	switch t {
	case events.TypeArrival:
		var v events.Arrival
		if err := msgpack.Unmarshal(payload, &v); err != nil {
			return nil, err
		}
		target = v
	case events.TypePolicySubmit:
		var v events.PolicySubmit
		if err := msgpack.Unmarshal(payload, &v); err != nil {
			return nil, err
		}
		target = v
	case events.TypePolicyHold:
		var v events.PolicyHold
		if err := msgpack.Unmarshal(payload, &v); err != nil {
			return nil, err
		}
		target = v
	case events.TypePolicyDrop:
		var v events.PolicyDrop
		if err := msgpack.Unmarshal(payload, &v); err != nil {
			return nil, err
		}
		target = v
	case events.TypePolicySplit:
		var v events.PolicySplit
		if err := msgpack.Unmarshal(payload, &v); err != nil {
			return nil, err
		}
		target = v
	case events.TypeRtgsSubmission:
		var v events.RtgsSubmission
		if err := msgpack.Unmarshal(payload, &v); err != nil {
			return nil, err
		}
		target = v
	case events.TypeRtgsImmediateSettlement:
		var v events.RtgsImmediateSettlement
		if err := msgpack.Unmarshal(payload, &v); err != nil {
			return nil, err
		}
		target = v
	case events.TypeQueuedRtgs:
		var v events.QueuedRtgs
		if err := msgpack.Unmarshal(payload, &v); err != nil {
			return nil, err
		}
		target = v
	case events.TypeQueue2LiquidityRelease:
		var v events.Queue2LiquidityRelease
		if err := msgpack.Unmarshal(payload, &v); err != nil {
			return nil, err
		}
		target = v
	case events.TypeLsmBilateralOffset:
		var v events.LsmBilateralOffset
		if err := msgpack.Unmarshal(payload, &v); err != nil {
			return nil, err
		}
		target = v
	case events.TypeLsmCycleSettlement:
		var v events.LsmCycleSettlement
		if err := msgpack.Unmarshal(payload, &v); err != nil {
			return nil, err
		}
		target = v
	case events.TypeCollateralPost:
		var v events.CollateralPost
		if err := msgpack.Unmarshal(payload, &v); err != nil {
			return nil, err
		}
		target = v
	case events.TypeCollateralWithdraw:
		var v events.CollateralWithdraw
		if err := msgpack.Unmarshal(payload, &v); err != nil {
			return nil, err
		}
		target = v
	case events.TypeCollateralTimerWithdrawn:
		var v events.CollateralTimerWithdrawn
		if err := msgpack.Unmarshal(payload, &v); err != nil {
			return nil, err
		}
		target = v
	case events.TypeCostAccrual:
		var v events.CostAccrual
		if err := msgpack.Unmarshal(payload, &v); err != nil {
			return nil, err
		}
		target = v
	case events.TypePriorityEscalated:
		var v events.PriorityEscalated
		if err := msgpack.Unmarshal(payload, &v); err != nil {
			return nil, err
		}
		target = v
	case events.TypeTransactionWentOverdue:
		var v events.TransactionWentOverdue
		if err := msgpack.Unmarshal(payload, &v); err != nil {
			return nil, err
		}
		target = v
	case events.TypeOverdueTransactionSettled:
		var v events.OverdueTransactionSettled
		if err := msgpack.Unmarshal(payload, &v); err != nil {
			return nil, err
		}
		target = v
	case events.TypeEndOfDay:
		var v events.EndOfDay
		if err := msgpack.Unmarshal(payload, &v); err != nil {
			return nil, err
		}
		target = v
	default:
		return nil, kyderrors.NewConsistencyBug("orchestrator.decodeEvent", fmt.Errorf("unknown event type %q", t))
	}
	return target, nil
}
