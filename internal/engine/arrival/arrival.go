// Package arrival generates new transactions each tick from each agent's
// configured distribution (spec §4.8): a Poisson count, then independently
// sampled amount, counterparty, priority, and deadline per draw.
package arrival

import (
	"sort"

	kyderrors "kyd/pkg/errors"
	"kyd/pkg/money"

	"kyd/internal/engine/rng"
)

// AmountDistribution selects which distuv sampler backs an agent's amount
// draws (spec §4.8).
type AmountDistribution int

const (
	DistributionNormal AmountDistribution = iota
	DistributionUniform
	DistributionLogNormal
)

// Weight pairs a candidate (counterparty agent ID, or a priority level
// encoded by the caller) with its relative draw weight.
type Weight struct {
	Key    string
	Weight float64
}

// Config is one agent's arrival generator configuration.
type Config struct {
	RatePerTick         float64
	Distribution        AmountDistribution
	AmountParam1        float64 // mean (Normal), min (Uniform), mu (LogNormal)
	AmountParam2        float64 // stddev (Normal), max (Uniform), sigma (LogNormal)
	CounterpartyWeights []Weight
	PriorityWeights     []Weight // Key is a decimal priority, e.g. "3"
	MinDeadlineOffset   uint64
	MaxDeadlineOffset   uint64
	Divisible           bool
}

// Draw is one freshly generated transaction's sampled fields.
type Draw struct {
	Sender       string
	Receiver     string
	Amount       money.Money
	Priority     int
	DeadlineTick uint64
	Divisible    bool
}

// Generator owns one agent's dedicated sub-stream and configuration.
type Generator struct {
	agentID string
	cfg     Config
	stream  *rng.Stream
}

// New derives the agent's arrival sub-stream from the root seed (spec §9:
// per-agent sub-streams via DeriveSeed so agent set changes don't perturb
// other agents' draws) and builds a Generator.
func New(rootSeed uint64, agentID string, cfg Config) *Generator {
	seed := rng.DeriveSeed(rootSeed, "arrival", agentID)
	return &Generator{agentID: agentID, cfg: cfg, stream: rng.New(seed)}
}

// Config returns the generator's configuration, for snapshotting.
func (g *Generator) Config() Config { return g.cfg }

// StreamState exposes the generator's RNG state, for snapshotting.
func (g *Generator) StreamState() (uint64, uint64) { return g.stream.State() }

// RestoreGenerator rebuilds a Generator from a previously captured RNG
// state instead of re-deriving it from the root seed, for restore().
func RestoreGenerator(agentID string, cfg Config, s0, s1 uint64) *Generator {
	return &Generator{agentID: agentID, cfg: cfg, stream: rng.RestoreState(s0, s1)}
}

// Tick draws k ~ Poisson(rate) and returns k independently sampled Draws
// (spec §4.8). Amounts are clipped to a minimum of 1 cent and rounded
// half-even from the float sample; deadlines are relative to currentTick
// and clamped by the caller to the simulation horizon.
func (g *Generator) Tick(currentTick uint64) []Draw {
	k := g.stream.Poisson(g.cfg.RatePerTick)
	draws := make([]Draw, 0, k)
	for i := 0; i < k; i++ {
		draws = append(draws, g.draw(currentTick))
	}
	return draws
}

func (g *Generator) draw(currentTick uint64) Draw {
	amount := g.sampleAmount()
	receiver := g.sampleWeighted(g.cfg.CounterpartyWeights)
	priority := g.samplePriority()
	offset := g.cfg.MinDeadlineOffset
	if g.cfg.MaxDeadlineOffset > g.cfg.MinDeadlineOffset {
		span := g.cfg.MaxDeadlineOffset - g.cfg.MinDeadlineOffset
		offset += uint64(g.stream.Intn(int(span) + 1))
	}
	return Draw{
		Sender:       g.agentID,
		Receiver:     receiver,
		Amount:       amount,
		Priority:     priority,
		DeadlineTick: currentTick + offset,
		Divisible:    g.cfg.Divisible,
	}
}

func (g *Generator) sampleAmount() money.Money {
	var cents float64
	switch g.cfg.Distribution {
	case DistributionUniform:
		cents = g.stream.Uniform(g.cfg.AmountParam1, g.cfg.AmountParam2)
	case DistributionLogNormal:
		cents = g.stream.LogNormal(g.cfg.AmountParam1, g.cfg.AmountParam2)
	default:
		cents = g.stream.Normal(g.cfg.AmountParam1, g.cfg.AmountParam2)
	}
	amount := money.RoundHalfEven(cents)
	if amount < money.Money(1) {
		amount = money.Money(1)
	}
	return amount
}

func (g *Generator) samplePriority() int {
	key := g.sampleWeighted(g.cfg.PriorityWeights)
	if key == "" {
		return 0
	}
	p := 0
	for _, c := range key {
		if c < '0' || c > '9' {
			return 0
		}
		p = p*10 + int(c-'0')
	}
	return p
}

// sampleWeighted draws one key proportionally to its weight, in
// deterministic iteration order (sorted by key) so the same stream state
// always maps to the same outcome regardless of slice construction order.
func (g *Generator) sampleWeighted(weights []Weight) string {
	if len(weights) == 0 {
		return ""
	}
	sorted := append([]Weight(nil), weights...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Key < sorted[j].Key })

	var total float64
	for _, w := range sorted {
		total += w.Weight
	}
	if total <= 0 {
		return sorted[0].Key
	}
	r := g.stream.Float64() * total
	var cumulative float64
	for _, w := range sorted {
		cumulative += w.Weight
		if r < cumulative {
			return w.Key
		}
	}
	return sorted[len(sorted)-1].Key
}

// ValidateConfig rejects configurations Compile-time validation would
// catch: a negative rate, an inverted deadline window, or empty
// counterparty weights (an agent with nobody to pay is a config bug, not
// a runtime condition).
func ValidateConfig(cfg Config) error {
	if cfg.RatePerTick < 0 {
		return kyderrors.NewConfigError("arrival rate_per_tick must be >= 0")
	}
	if cfg.MaxDeadlineOffset < cfg.MinDeadlineOffset {
		return kyderrors.NewConfigError("arrival max_deadline_offset must be >= min_deadline_offset")
	}
	if len(cfg.CounterpartyWeights) == 0 {
		return kyderrors.NewConfigError("arrival counterparty_weights must not be empty")
	}
	return nil
}
