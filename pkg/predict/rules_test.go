package predict

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/faiberforce/dispatch-optimizer/pkg/models"
)

func TestBusinessRules_IdealConditions(t *testing.T) {
	rules := DefaultBusinessRules()

	// distance 30: factor 1.08; skill match: 1.15; workload 0.6: 1.0
	p := rules.Probability(30, 0.6, true, models.PriorityNormal)
	assert.InDelta(t, 0.70*1.08*1.15, p, 1e-9)
}

func TestBusinessRules_DistanceFactor(t *testing.T) {
	rules := DefaultBusinessRules()

	// Zero distance earns the full short-trip bonus.
	assert.InDelta(t, 1.2, rules.distanceFactor(0), 1e-9)
	// Ideal boundary is neutral.
	assert.InDelta(t, 1.0, rules.distanceFactor(50), 1e-9)
	// Maximum distance takes the full 0.4 penalty.
	assert.InDelta(t, 0.6, rules.distanceFactor(250), 1e-9)
	// Beyond maximum is a flat heavy penalty.
	assert.InDelta(t, 0.5, rules.distanceFactor(400), 1e-9)
}

func TestBusinessRules_WorkloadFactor(t *testing.T) {
	rules := DefaultBusinessRules()

	assert.Equal(t, 1.0, rules.workloadFactor(0.5))
	assert.Equal(t, 1.0, rules.workloadFactor(0.8))
	assert.InDelta(t, 0.85, rules.workloadFactor(1.2), 1e-9)
	assert.InDelta(t, 0.7, rules.workloadFactor(1.5), 1e-9)
}

func TestBusinessRules_PriorityOrdering(t *testing.T) {
	rules := DefaultBusinessRules()

	critical := rules.Probability(60, 0.5, true, models.PriorityCritical)
	high := rules.Probability(60, 0.5, true, models.PriorityHigh)
	normal := rules.Probability(60, 0.5, true, models.PriorityNormal)
	low := rules.Probability(60, 0.5, true, models.PriorityLow)

	assert.Greater(t, critical, high)
	assert.Greater(t, high, normal)
	assert.Greater(t, normal, low)
}

func TestBusinessRules_ProbabilityBounds(t *testing.T) {
	rules := DefaultBusinessRules()

	// Best case could exceed 1 before clamping: 0.7*1.2*1.15*1.1 ≈ 1.06
	p := rules.Probability(0, 0.1, true, models.PriorityCritical)
	assert.LessOrEqual(t, p, 1.0)
	assert.GreaterOrEqual(t, p, 0.0)

	worst := rules.Probability(500, 2.0, false, models.PriorityLow)
	assert.GreaterOrEqual(t, worst, 0.0)
	assert.LessOrEqual(t, worst, 1.0)
}

func TestBlendProbabilities(t *testing.T) {
	assert.InDelta(t, 0.745, BlendProbabilities(0.85, 0.70, 0.7), 1e-9)
	// Degenerate weights clamp.
	assert.Equal(t, 0.85, BlendProbabilities(0.85, 0.70, -1))
	assert.Equal(t, 0.70, BlendProbabilities(0.85, 0.70, 2))
}
