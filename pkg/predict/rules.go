package predict

import (
	"github.com/faiberforce/dispatch-optimizer/pkg/models"
)

// BusinessRules holds the thresholds of the rule-based success
// probability formula. It doubles as the final fallback when no
// classifier could be trained, and as the rule half of hybrid
// blending.
type BusinessRules struct {
	MaxDistanceKm        float64 `json:"max_distance_km"`
	IdealDistanceKm      float64 `json:"ideal_distance_km"`
	MaxWorkloadRatio     float64 `json:"max_workload_ratio"`
	IdealWorkloadRatio   float64 `json:"ideal_workload_ratio"`
	SkillMatchBonus      float64 `json:"skill_match_bonus"`
	SkillMismatchPenalty float64 `json:"skill_mismatch_penalty"`
}

// DefaultBusinessRules returns the reference thresholds
func DefaultBusinessRules() BusinessRules {
	return BusinessRules{
		MaxDistanceKm:        250,
		IdealDistanceKm:      50,
		MaxWorkloadRatio:     1.2,
		IdealWorkloadRatio:   0.8,
		SkillMatchBonus:      0.15,
		SkillMismatchPenalty: 0.25,
	}
}

// Probability computes the rule-based success probability for one
// candidate pair: a 0.70 base scaled by distance, skill, workload and
// priority factors, clamped to [0, 1].
func (r BusinessRules) Probability(distanceKm, workloadRatio float64, skillMatch bool, priority models.Priority) float64 {
	p := 0.70 *
		r.distanceFactor(distanceKm) *
		r.skillFactor(skillMatch) *
		r.workloadFactor(workloadRatio) *
		priorityFactor(priority)
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// distanceFactor rewards short trips (up to 1.2x) and penalizes long
// ones down to 0.6x at the maximum, 0.5x beyond it.
func (r BusinessRules) distanceFactor(distanceKm float64) float64 {
	switch {
	case distanceKm <= r.IdealDistanceKm:
		return 1.0 + 0.2*(1-distanceKm/r.IdealDistanceKm)
	case distanceKm <= r.MaxDistanceKm:
		excess := distanceKm - r.IdealDistanceKm
		maxExcess := r.MaxDistanceKm - r.IdealDistanceKm
		return 1.0 - 0.4*(excess/maxExcess)
	default:
		return 0.5
	}
}

func (r BusinessRules) skillFactor(skillMatch bool) float64 {
	if skillMatch {
		return 1.0 + r.SkillMatchBonus
	}
	return 1.0 - r.SkillMismatchPenalty
}

// workloadFactor is neutral up to the ideal ratio, decays to 0.85 at
// the maximum, and drops to 0.7 for overloaded technicians.
func (r BusinessRules) workloadFactor(workloadRatio float64) float64 {
	switch {
	case workloadRatio <= r.IdealWorkloadRatio:
		return 1.0
	case workloadRatio <= r.MaxWorkloadRatio:
		excess := workloadRatio - r.IdealWorkloadRatio
		maxExcess := r.MaxWorkloadRatio - r.IdealWorkloadRatio
		return 1.0 - 0.15*(excess/maxExcess)
	default:
		return 0.7
	}
}

func priorityFactor(priority models.Priority) float64 {
	switch priority {
	case models.PriorityCritical:
		return 1.1
	case models.PriorityHigh:
		return 1.05
	case models.PriorityLow:
		return 0.95
	default:
		return 1.0
	}
}

// BlendProbabilities mixes a model probability with the rule-based
// one. ruleWeight is the rule share; the model gets the remainder.
func BlendProbabilities(mlProb, ruleProb, ruleWeight float64) float64 {
	if ruleWeight < 0 {
		ruleWeight = 0
	}
	if ruleWeight > 1 {
		ruleWeight = 1
	}
	blended := ruleProb*ruleWeight + mlProb*(1-ruleWeight)
	if blended < 0 {
		return 0
	}
	if blended > 1 {
		return 1
	}
	return blended
}
