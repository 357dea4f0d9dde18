package arrival

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseConfig() Config {
	return Config{
		RatePerTick:  2.0,
		Distribution: DistributionNormal,
		AmountParam1: 10_000,
		AmountParam2: 1_000,
		CounterpartyWeights: []Weight{
			{Key: "BANK_B", Weight: 1},
			{Key: "BANK_C", Weight: 1},
		},
		PriorityWeights: []Weight{
			{Key: "5", Weight: 1},
		},
		MinDeadlineOffset: 5,
		MaxDeadlineOffset: 10,
		Divisible:         true,
	}
}

func TestSameSeedProducesIdenticalDraws(t *testing.T) {
	g1 := New(42, "BANK_A", baseConfig())
	g2 := New(42, "BANK_A", baseConfig())

	for tick := uint64(0); tick < 20; tick++ {
		d1 := g1.Tick(tick)
		d2 := g2.Tick(tick)
		assert.Equal(t, d1, d2)
	}
}

func TestDifferentAgentIDsDivergeFromSameRootSeed(t *testing.T) {
	gA := New(42, "BANK_A", baseConfig())
	gB := New(42, "BANK_B", baseConfig())

	var drawsA, drawsB []Draw
	for tick := uint64(0); tick < 10; tick++ {
		drawsA = append(drawsA, gA.Tick(tick)...)
		drawsB = append(drawsB, gB.Tick(tick)...)
	}
	assert.NotEqual(t, drawsA, drawsB)
}

func TestAmountNeverBelowOneCent(t *testing.T) {
	cfg := baseConfig()
	cfg.AmountParam1 = 0
	cfg.AmountParam2 = 0.01
	g := New(1, "BANK_A", cfg)
	for tick := uint64(0); tick < 50; tick++ {
		for _, d := range g.Tick(tick) {
			assert.True(t, d.Amount >= 1)
		}
	}
}

func TestDeadlineWithinConfiguredWindow(t *testing.T) {
	g := New(7, "BANK_A", baseConfig())
	for tick := uint64(0); tick < 30; tick++ {
		for _, d := range g.Tick(tick) {
			assert.True(t, d.DeadlineTick >= tick+5)
			assert.True(t, d.DeadlineTick <= tick+10)
		}
	}
}

func TestReceiverDrawnFromCounterpartyWeights(t *testing.T) {
	g := New(3, "BANK_A", baseConfig())
	for tick := uint64(0); tick < 30; tick++ {
		for _, d := range g.Tick(tick) {
			assert.Contains(t, []string{"BANK_B", "BANK_C"}, d.Receiver)
		}
	}
}

func TestValidateConfigRejectsEmptyCounterparties(t *testing.T) {
	cfg := baseConfig()
	cfg.CounterpartyWeights = nil
	err := ValidateConfig(cfg)
	require.Error(t, err)
}

func TestValidateConfigRejectsInvertedDeadlineWindow(t *testing.T) {
	cfg := baseConfig()
	cfg.MinDeadlineOffset = 10
	cfg.MaxDeadlineOffset = 5
	err := ValidateConfig(cfg)
	require.Error(t, err)
}

func TestValidateConfigAcceptsWellFormedConfig(t *testing.T) {
	err := ValidateConfig(baseConfig())
	assert.NoError(t, err)
}
