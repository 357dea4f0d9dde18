// Package config holds the simulation's typed, validated configuration.
// Decoding an actual YAML/JSON document into this struct is an external
// collaborator's job; this package only owns the typed shape and the
// validation that must pass before an Orchestrator is constructed.
package config

import (
	"fmt"
	"strings"

	"kyd/internal/engine/arrival"
	"kyd/internal/engine/policy"
	kyderrors "kyd/pkg/errors"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// QueueOrdering selects C7's per-agent ordering discipline.
type QueueOrdering string

const (
	QueueOrderingFIFO             QueueOrdering = "fifo"
	QueueOrderingPriorityDeadline QueueOrdering = "priority_deadline"
)

// EscalationConfig tunes C10's deadline-proximity priority boost.
type EscalationConfig struct {
	Enabled                bool
	Curve                  string `validate:"omitempty,oneof=linear"`
	StartEscalatingAtTicks uint64 `validate:"omitempty,min=1"`
	MaxBoost               int    `validate:"omitempty,min=0,max=10"`
}

// CostParams feeds C4's per-category accrual rates (spec §6).
type CostParams struct {
	OverdraftBpsPerDay             int64 `validate:"min=0"`
	CollateralOpportunityBpsPerDay int64 `validate:"min=0"`
	Queue1DelayPerTick             int64 `validate:"min=0"`
	SplitFee                       int64 `validate:"min=0"`
	DeadlineBasePenalty            int64 `validate:"min=0"`
	DeadlinePenaltyPerTick         int64 `validate:"min=0"`
	OverdueDelayMultiplier         int64 `validate:"min=1"`
}

// BpsString renders a basis-point rate as a human-readable percentage for
// log fields, using decimal.Decimal for the division so the formatting is
// exact — the only place this config touches arbitrary-precision
// arithmetic, never money itself.
func BpsString(bps int64) string {
	d := decimal.NewFromInt(bps).Div(decimal.NewFromInt(100))
	return d.StringFixed(2) + "%"
}

// LSMConfig tunes C11's bilateral-offset and cycle-detection passes.
type LSMConfig struct {
	BilateralOffset bool
	CycleDetection  bool
	MaxIterations   int `validate:"min=1"`
	MaxCycleLength  int `validate:"min=3"`
}

// AgentConfig is one agent's static configuration (spec §6).
type AgentConfig struct {
	ID                 string `validate:"required"`
	OpeningBalance     int64
	UnsecuredCap       int64 `validate:"min=0"`
	CollateralPledged  int64 `validate:"min=0"`
	CollateralCapacity int64 `validate:"min=0"`
	Policy             *policy.RawPolicy `validate:"required"`
	Arrival            *arrival.Config
}

// SimulationConfig is the whole typed, validated configuration an
// Orchestrator is built from.
type SimulationConfig struct {
	RNGSeed            uint64
	TicksPerDay        uint32        `validate:"required,min=1"`
	NumDays            uint32        `validate:"required,min=1"`
	Queue1Ordering     QueueOrdering `validate:"required,oneof=fifo priority_deadline"`
	PriorityMode       bool
	PriorityEscalation EscalationConfig
	CostParams         CostParams
	LSM                LSMConfig
	Agents             []AgentConfig `validate:"required,min=1,dive"`
}

var validate = validator.New()

// Validate runs struct-tag validation plus the cross-field checks a tag
// cannot express, aggregating every violation into one ConfigError
// (spec.md §9: config is parsed and validated once at the boundary).
func (c *SimulationConfig) Validate() error {
	var reasons []string

	if err := validate.Struct(c); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				reasons = append(reasons, fmt.Sprintf("%s: %s", fe.Namespace(), fe.Tag()))
			}
		} else {
			reasons = append(reasons, err.Error())
		}
	}

	seenIDs := make(map[string]bool)
	for _, a := range c.Agents {
		if a.ID == "" {
			continue
		}
		if seenIDs[a.ID] {
			reasons = append(reasons, fmt.Sprintf("duplicate agent id %q", a.ID))
		}
		seenIDs[a.ID] = true
		if a.CollateralPledged > a.CollateralCapacity {
			reasons = append(reasons, fmt.Sprintf("agent %s: collateral_pledged exceeds collateral_capacity", a.ID))
		}
		if a.Policy != nil {
			if _, err := policy.Compile(a.Policy); err != nil {
				reasons = append(reasons, fmt.Sprintf("agent %s: %v", a.ID, err))
			}
		}
		if a.Arrival != nil {
			if err := arrival.ValidateConfig(*a.Arrival); err != nil {
				reasons = append(reasons, fmt.Sprintf("agent %s: %v", a.ID, err))
			}
		}
	}

	if len(reasons) == 0 {
		return nil
	}
	return &kyderrors.ConfigError{Reasons: reasons}
}

// String renders the config's top-level shape for log fields, never its
// per-agent policy trees (too large to be useful in a log line).
func (c *SimulationConfig) String() string {
	var ids []string
	for _, a := range c.Agents {
		ids = append(ids, a.ID)
	}
	return fmt.Sprintf("SimulationConfig{seed=%d ticks_per_day=%d num_days=%d agents=[%s]}",
		c.RNGSeed, c.TicksPerDay, c.NumDays, strings.Join(ids, ","))
}
