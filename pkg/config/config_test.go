package config

import (
	"testing"

	"kyd/internal/engine/arrival"
	"kyd/internal/engine/policy"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func releaseLeaf(nodeID string) *policy.RawNode {
	return &policy.RawNode{NodeID: nodeID, Kind: policy.NodeAction, Action: "release"}
}

func holdCollateralLeaf(nodeID string) *policy.RawNode {
	return &policy.RawNode{NodeID: nodeID, Kind: policy.NodeAction, Action: "hold_collateral"}
}

func validPolicy(agentID string) *policy.RawPolicy {
	return &policy.RawPolicy{
		AgentID:                 agentID,
		PaymentTree:             &policy.RawTree{Root: releaseLeaf("pay1")},
		StrategicCollateralTree: &policy.RawTree{Root: holdCollateralLeaf("col1")},
	}
}

func validArrival() *arrival.Config {
	return &arrival.Config{
		RatePerTick:         1.0,
		Distribution:        arrival.DistributionNormal,
		AmountParam1:        1000,
		AmountParam2:        100,
		CounterpartyWeights: []arrival.Weight{{Key: "BANK_B", Weight: 1}},
		MinDeadlineOffset:   5,
		MaxDeadlineOffset:   10,
	}
}

func baseConfig() *SimulationConfig {
	return &SimulationConfig{
		RNGSeed:        1,
		TicksPerDay:    100,
		NumDays:        5,
		Queue1Ordering: QueueOrderingFIFO,
		CostParams:     CostParams{OverdueDelayMultiplier: 1},
		LSM:            LSMConfig{MaxIterations: 3, MaxCycleLength: 5},
		Agents: []AgentConfig{
			{ID: "BANK_A", UnsecuredCap: 1000, CollateralCapacity: 500, Policy: validPolicy("BANK_A"), Arrival: validArrival()},
			{ID: "BANK_B", UnsecuredCap: 1000, CollateralCapacity: 500, Policy: validPolicy("BANK_B")},
		},
	}
}

func TestValidConfigPasses(t *testing.T) {
	err := baseConfig().Validate()
	assert.NoError(t, err)
}

func TestRejectsMissingTicksPerDay(t *testing.T) {
	cfg := baseConfig()
	cfg.TicksPerDay = 0
	err := cfg.Validate()
	require.Error(t, err)
}

func TestRejectsDuplicateAgentIDs(t *testing.T) {
	cfg := baseConfig()
	cfg.Agents[1].ID = "BANK_A"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate agent id")
}

func TestRejectsCollateralPledgedAboveCapacity(t *testing.T) {
	cfg := baseConfig()
	cfg.Agents[0].CollateralPledged = 1000
	cfg.Agents[0].CollateralCapacity = 500
	err := cfg.Validate()
	require.Error(t, err)
}

func TestRejectsEmptyAgentList(t *testing.T) {
	cfg := baseConfig()
	cfg.Agents = nil
	err := cfg.Validate()
	require.Error(t, err)
}

func TestRejectsUnresolvablePolicy(t *testing.T) {
	cfg := baseConfig()
	cfg.Agents[0].Policy.PaymentTree.Root.Action = "not_a_real_action"
	err := cfg.Validate()
	require.Error(t, err)
}

func TestBpsStringFormatsPercentage(t *testing.T) {
	assert.Equal(t, "36.50%", BpsString(3650))
}
