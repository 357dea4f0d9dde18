// Package orchestrator drives the simulation core's fixed per-tick order
// (spec §4.11): it is the sole owner of Q2 and the transaction store, and
// the sole writer of the event stream. Every other engine package is a
// pure, side-effect-scoped collaborator the orchestrator calls in order.
package orchestrator

import (
	"kyd/internal/engine/arrival"
	"kyd/internal/engine/collateral"
	"kyd/internal/engine/cost"
	"kyd/internal/engine/escalate"
	"kyd/internal/engine/events"
	"kyd/internal/engine/lsm"
	"kyd/internal/engine/policy"
	"kyd/internal/engine/queue1"
	"kyd/internal/engine/queue2"
	"kyd/internal/engine/txstore"
	"kyd/pkg/config"
	"kyd/pkg/logger"
	"kyd/pkg/money"
)

// Agent is one participant's owned, mutable state: balance, credit terms,
// posted collateral, its private Q1, and its compiled policy. No other
// agent and no other package ever holds a mutable reference into this
// state across a tick boundary (spec §5).
type Agent struct {
	ID           string
	Balance      money.Money
	UnsecuredCap money.Money
	Collateral   *collateral.Ledger
	Policy       *policy.Policy
	Q1           *queue1.Queue
	Arrival      *arrival.Generator // nil when the agent has no configured arrival process

	dayOpening        money.Money
	dayMin            money.Money
	dayMax            money.Money
	dayPeakOverdraft  money.Money
	dayPeakCollateral money.Money
	daySettled        int
	dayDropped        int
	dayOverdue        int
}

// creditCapacity is how far Balance may go negative: unsecured credit plus
// whatever collateral is currently posted.
func (a *Agent) creditCapacity() money.Money {
	return a.UnsecuredCap + a.Collateral.Posted
}

func (a *Agent) resetDayTracking() {
	a.dayOpening = a.Balance
	a.dayMin = a.Balance
	a.dayMax = a.Balance
	a.dayPeakOverdraft = overdraftOf(a.Balance)
	a.dayPeakCollateral = a.Collateral.Posted
	a.daySettled, a.dayDropped, a.dayOverdue = 0, 0, 0
}

func overdraftOf(balance money.Money) money.Money {
	if balance >= 0 {
		return money.Zero
	}
	return -balance
}

// Orchestrator is the tick driver (spec §4.11, C12): it owns every
// Agent, the single global Q2, the transaction store, and the event
// stream, and drives them through the fixed ten-step order each tick.
type Orchestrator struct {
	agents     map[string]*Agent
	agentOrder []string // registration order — spec §5: arrivals ordered by stable agent registration order

	q2     *queue2.Queue
	store  *txstore.Store
	stream *events.Stream
	costs  *cost.Ledger

	escalation  escalate.Config
	lsmConfig   lsm.Config
	ticksPerDay uint64
	numDays     uint32
	rngSeed     uint64

	cfg *config.SimulationConfig // retained for Snapshot(); policy trees are rebuilt from it on Restore

	tick   uint64
	logger logger.Logger
}

// TickSummary is tick()'s return value (spec §6).
type TickSummary struct {
	Tick           uint64
	NumArrivals    int
	NumSettlements int
	NumLSMReleases int
	TotalCostDelta money.Money
}

// New constructs an Orchestrator from a validated configuration (spec §6:
// new(config) -> Orchestrator). The config is re-validated here so a
// caller that mutates a config after an earlier Validate() call cannot
// slip an invalid tree past construction.
func New(cfg *config.SimulationConfig, log logger.Logger) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.NewNop()
	}

	o := &Orchestrator{
		agents:      make(map[string]*Agent),
		store:       txstore.New(),
		stream:      events.NewStream(),
		ticksPerDay: uint64(cfg.TicksPerDay),
		numDays:     cfg.NumDays,
		rngSeed:     cfg.RNGSeed,
		cfg:         cfg,
		logger:      log,
	}

	o.costs = cost.New(cost.Rates{
		OverdraftBpsPerDay:     cfg.CostParams.OverdraftBpsPerDay,
		CollateralBpsPerDay:    cfg.CostParams.CollateralOpportunityBpsPerDay,
		Queue1DelayPerTick:     money.Money(cfg.CostParams.Queue1DelayPerTick),
		OverdueDelayMultiplier: cfg.CostParams.OverdueDelayMultiplier,
		SplitFee:               money.Money(cfg.CostParams.SplitFee),
		DeadlineBasePenalty:    money.Money(cfg.CostParams.DeadlineBasePenalty),
		DeadlinePenaltyPerTick: money.Money(cfg.CostParams.DeadlinePenaltyPerTick),
		TicksPerDay:            int64(cfg.TicksPerDay),
	})

	q1Ordering := queue1.OrderingFIFO
	if cfg.Queue1Ordering == config.QueueOrderingPriorityDeadline {
		q1Ordering = queue1.OrderingPriorityDeadline
	}

	q2Mode := queue2.ModeFIFO
	if cfg.PriorityMode {
		q2Mode = queue2.ModePriorityBanded
	}
	o.q2 = queue2.New(q2Mode)

	if cfg.PriorityEscalation.Enabled {
		o.escalation = escalate.Config{
			Curve:             escalate.CurveLinear,
			StartEscalatingAt: cfg.PriorityEscalation.StartEscalatingAtTicks,
			MaxBoost:          cfg.PriorityEscalation.MaxBoost,
		}
	}

	o.lsmConfig = lsm.Config{
		MaxCycleLength:   cfg.LSM.MaxCycleLength,
		MaxIterations:    cfg.LSM.MaxIterations,
		DisableBilateral: !cfg.LSM.BilateralOffset,
		DisableCycles:    !cfg.LSM.CycleDetection,
	}

	for _, ac := range cfg.Agents {
		compiled, err := policy.Compile(ac.Policy)
		if err != nil {
			return nil, err
		}
		agent := &Agent{
			ID:           ac.ID,
			Balance:      money.Money(ac.OpeningBalance),
			UnsecuredCap: money.Money(ac.UnsecuredCap),
			Collateral:   collateral.New(ac.ID, money.Money(ac.CollateralCapacity)),
			Policy:       compiled,
			Q1:           queue1.New(q1Ordering),
		}
		if ac.CollateralPledged > 0 {
			if _, err := agent.Collateral.Post(money.Money(ac.CollateralPledged), "opening pledge", 0, false, 0); err != nil {
				return nil, err
			}
		}
		if ac.Arrival != nil {
			agent.Arrival = arrival.New(cfg.RNGSeed, ac.ID, *ac.Arrival)
		}
		agent.resetDayTracking()
		o.agents[ac.ID] = agent
		o.agentOrder = append(o.agentOrder, ac.ID)
	}

	return o, nil
}

// CurrentTick returns the next tick number to be executed (spec §6).
func (o *Orchestrator) CurrentTick() uint64 { return o.tick }

// CurrentDay returns the simulated day the current tick falls in.
func (o *Orchestrator) CurrentDay() uint32 {
	if o.ticksPerDay == 0 {
		return 0
	}
	return uint32(o.tick / o.ticksPerDay)
}

// Tick advances the simulation by exactly one tick, following the fixed
// order from spec §4.11. A PolicyError or ConsistencyBug aborts the tick
// and is returned to the caller without committing further steps;
// everything already emitted for this tick stays in the stream, matching
// spec §7's "policy errors are fatal to the run."
func (o *Orchestrator) Tick() (TickSummary, error) {
	tick := o.tick
	summary := TickSummary{Tick: tick}

	tickStart := make(map[string]cost.Totals, len(o.agents))
	for id := range o.agents {
		tickStart[id] = o.costs.Totals(id)
	}

	if err := o.stepCollateralTree(tick, true); err != nil {
		return summary, err
	}

	summary.NumArrivals = o.stepArrivals(tick)

	if err := o.stepPaymentTrees(tick); err != nil {
		return summary, err
	}

	o.stepEscalation(tick)

	summary.NumSettlements = o.stepSettlement(tick)

	summary.NumLSMReleases = o.stepLSM(tick)

	if err := o.stepCollateralTree(tick, false); err != nil {
		return summary, err
	}

	summary.TotalCostDelta = o.stepCostAccrual(tick, tickStart)

	o.stepCollateralTimers(tick)

	o.updateDayTracking()

	o.tick++
	o.maybeEmitEndOfDay(tick)

	return summary, nil
}

func (o *Orchestrator) updateDayTracking() {
	for _, id := range o.agentOrder {
		a := o.agents[id]
		if a.Balance < a.dayMin {
			a.dayMin = a.Balance
		}
		if a.Balance > a.dayMax {
			a.dayMax = a.Balance
		}
		if od := overdraftOf(a.Balance); od > a.dayPeakOverdraft {
			a.dayPeakOverdraft = od
		}
		if a.Collateral.Posted > a.dayPeakCollateral {
			a.dayPeakCollateral = a.Collateral.Posted
		}
	}
}

func ticksToDeadline(tick, deadlineTick uint64) int64 {
	if deadlineTick < tick {
		return -int64(tick - deadlineTick)
	}
	return int64(deadlineTick - tick)
}

// finalizeSettlement transitions a settling transaction to Settled,
// counts it against its sender's daily tally, and emits
// OverdueTransactionSettled if it was overdue — shared by the direct Q2
// drain (step 5) and the LSM pass (step 6), the two places a transaction
// can finish.
func (o *Orchestrator) finalizeSettlement(tick uint64, txID, senderID string) {
	tx, ok := o.store.Get(txID)
	if !ok {
		return
	}
	wasOverdue := tx.IsOverdue
	overdueSince := tx.OverdueSince
	penalty := tx.AccruedPenalty

	o.store.MarkSettled(txID)
	if agent := o.agents[senderID]; agent != nil {
		agent.daySettled++
	}
	if wasOverdue {
		o.stream.Emit(events.OverdueTransactionSettled{
			Base:          events.NewBase(tick),
			TransactionID: txID,
			TicksOverdue:  tick - overdueSince,
			TotalPenalty:  penalty,
		})
	}
}
