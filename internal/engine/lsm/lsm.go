// Package lsm implements the liquidity-saving mechanism (spec §4.10):
// bilateral offset netting, then multilateral cycle detection over the
// pending Q2 obligations, re-run until a pass makes no further progress.
package lsm

import "kyd/pkg/money"

// Obligation is one transaction waiting in Q2, as seen by the LSM pass.
type Obligation struct {
	TransactionID string
	Sender        string
	Receiver      string
	Amount        money.Money
}

// AgentState is the subset of an agent's state the LSM pass needs to
// judge feasibility and apply settlement.
type AgentState struct {
	Balance        money.Money
	CreditCapacity money.Money // unsecured_cap + posted_collateral: how far Balance may go negative
}

// Config tunes one run's LSM behavior. The zero value runs both passes —
// DisableBilateral/DisableCycles opt out of one independently, mirroring
// config's bilateral_offset/cycle_detection toggles without inverting
// every existing caller's defaults.
type Config struct {
	MaxCycleLength   int
	MaxIterations    int
	DisableBilateral bool
	DisableCycles    bool
}

// BilateralResult is one settled bilateral offset between a pair of agents.
type BilateralResult struct {
	AgentA, AgentB   string
	AmountA, AmountB money.Money // gross amount that flowed A->B and B->A respectively
	TxIDs            []string
}

// CycleResult is one settled multilateral cycle.
type CycleResult struct {
	Agents       []string
	TxIDs        []string
	TxAmounts    map[string]money.Money
	NetPositions map[string]money.Money
	TotalValue   money.Money
}

// PassResult is the outcome of one full LSM pass (spec §4.10's inner loop
// of repeated bilateral+multilateral rounds within one tick).
type PassResult struct {
	Bilateral    []BilateralResult
	Cycles       []CycleResult
	SettledTxIDs []string
}

// RunPass attempts to settle as many pending obligations as possible by
// repeated bilateral-offset and multilateral-cycle rounds, mutating
// agents' balances in place, until a round settles nothing or
// cfg.MaxIterations is reached. Returns every settlement made, in the
// deterministic order it was found.
func RunPass(cfg Config, obligations []Obligation, agents map[string]*AgentState) PassResult {
	settled := make(map[string]bool)
	result := PassResult{}

	iterations := cfg.MaxIterations
	if iterations <= 0 {
		iterations = 1
	}
	for iter := 0; iter < iterations; iter++ {
		var bilaterals []BilateralResult
		if !cfg.DisableBilateral {
			pending := unsettled(obligations, settled)
			bilaterals = bilateralPass(pending, agents, settled)
		}
		var cycles []CycleResult
		if !cfg.DisableCycles {
			pending := unsettled(obligations, settled)
			cycles = cyclePass(cfg, pending, agents, settled)
		}

		result.Bilateral = append(result.Bilateral, bilaterals...)
		result.Cycles = append(result.Cycles, cycles...)

		if len(bilaterals) == 0 && len(cycles) == 0 {
			break
		}
	}

	for _, b := range result.Bilateral {
		result.SettledTxIDs = append(result.SettledTxIDs, b.TxIDs...)
	}
	for _, c := range result.Cycles {
		result.SettledTxIDs = append(result.SettledTxIDs, c.TxIDs...)
	}
	return result
}

func unsettled(obligations []Obligation, settled map[string]bool) []Obligation {
	out := make([]Obligation, 0, len(obligations))
	for _, o := range obligations {
		if !settled[o.TransactionID] {
			out = append(out, o)
		}
	}
	return out
}

func withinCapacity(state *AgentState, balanceAfter money.Money) bool {
	return balanceAfter >= -state.CreditCapacity
}
