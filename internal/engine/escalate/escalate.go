// Package escalate implements the priority escalation curve (spec §4.9):
// as a transaction's deadline nears, its effective priority climbs toward
// a configured ceiling, without ever mutating the transaction's recorded
// original priority.
package escalate

// Curve selects the escalation shape applied to progress ∈ [0,1].
type Curve int

const (
	CurveLinear Curve = iota
)

// Config is the escalator's fixed-at-init tuning.
type Config struct {
	Curve             Curve
	StartEscalatingAt uint64 // T: ticks-to-deadline threshold
	MaxBoost          int    // B
}

const maxPriority = 10

// Boost computes the priority boost for a transaction whose remaining
// ticks-to-deadline is ticksRemaining, given the escalator's T and B
// (spec §4.9). Returns 0 once ticksRemaining exceeds T.
func Boost(cfg Config, ticksRemaining uint64) int {
	if cfg.StartEscalatingAt == 0 || ticksRemaining > cfg.StartEscalatingAt {
		return 0
	}
	progress := 1.0 - float64(ticksRemaining)/float64(cfg.StartEscalatingAt)
	f := applyCurve(cfg.Curve, progress)
	boost := int(roundNearest(float64(cfg.MaxBoost) * f))
	return boost
}

// CurrentPriority applies a transaction's boost to its unchanging
// original_priority, capped at maxPriority (spec §4.9).
func CurrentPriority(originalPriority int, boost int) int {
	p := originalPriority + boost
	if p > maxPriority {
		return maxPriority
	}
	return p
}

func applyCurve(c Curve, progress float64) float64 {
	switch c {
	case CurveLinear:
		return progress
	default:
		return progress
	}
}

func roundNearest(v float64) float64 {
	if v < 0 {
		return -roundNearest(-v)
	}
	i := float64(int64(v))
	if v-i >= 0.5 {
		return i + 1
	}
	return i
}
