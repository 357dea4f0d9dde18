package escalate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNoBoostBeforeEscalationWindow(t *testing.T) {
	cfg := Config{Curve: CurveLinear, StartEscalatingAt: 10, MaxBoost: 5}
	assert.Equal(t, 0, Boost(cfg, 20))
}

func TestFullBoostAtDeadline(t *testing.T) {
	cfg := Config{Curve: CurveLinear, StartEscalatingAt: 10, MaxBoost: 5}
	assert.Equal(t, 5, Boost(cfg, 0))
}

func TestPartialBoostMidway(t *testing.T) {
	cfg := Config{Curve: CurveLinear, StartEscalatingAt: 10, MaxBoost: 10}
	// ticksRemaining=5 -> progress=0.5 -> boost=5
	assert.Equal(t, 5, Boost(cfg, 5))
}

func TestCurrentPriorityCapsAtMax(t *testing.T) {
	assert.Equal(t, 10, CurrentPriority(8, 5))
}

func TestCurrentPriorityNeverMutatesOriginal(t *testing.T) {
	original := 3
	boosted := CurrentPriority(original, 4)
	assert.Equal(t, 7, boosted)
	assert.Equal(t, 3, original)
}

func TestZeroThresholdDisablesEscalation(t *testing.T) {
	cfg := Config{Curve: CurveLinear, StartEscalatingAt: 0, MaxBoost: 5}
	assert.Equal(t, 0, Boost(cfg, 0))
}
