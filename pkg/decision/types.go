// Package decision builds and scores candidate technicians for one
// dispatch. Filtering and scoring are pure functions of the dispatch,
// the technician pool, the run context and a snapshot of assignment
// counts; all mutation lives in the optimizer.
package decision

import (
	"math/rand"

	"github.com/faiberforce/dispatch-optimizer/pkg/models"
	"github.com/faiberforce/dispatch-optimizer/pkg/policy"
	"github.com/faiberforce/dispatch-optimizer/pkg/predict"
	"github.com/faiberforce/dispatch-optimizer/pkg/skills"
)

// ScoringStrategy selects how the per-candidate score is computed.
type ScoringStrategy string

const (
	// ScoringPureSuccess scores candidates by predicted success alone;
	// the other factors already enter success through its features.
	ScoringPureSuccess ScoringStrategy = "pure_success"
	// ScoringWeighted combines success, workload, distance and overrun
	// with fixed weights.
	ScoringWeighted ScoringStrategy = "weighted"
)

// IsValid checks if a ScoringStrategy is recognized
func (s ScoringStrategy) IsValid() bool {
	return s == ScoringPureSuccess || s == ScoringWeighted
}

// Weights of the composite scoring strategy.
const (
	weightSuccess  = 0.50
	weightWorkload = 0.35
	weightDistance = 0.10
	weightOverrun  = 0.05

	// overloadPenalty is the workload component above a 1.00 ratio, a
	// strong reject signal rather than a gradient.
	overloadPenalty = -50.0

	// maxOverrunMin normalizes the overrun component.
	maxOverrunMin = 120.0
)

// Cascade confidence multipliers per match level.
const (
	cascadeExactMultiplier    = 1.0
	cascadeCategoryMultiplier = 0.85
	cascadeRelatedMultiplier  = 0.70
	cascadeAnyMultiplier      = 0.50
)

// Config is the engine configuration shared by filtering, scoring and
// the optimizer ladder.
type Config struct {
	MaxDistanceKm    float64         `json:"max_distance_km"`
	OverlapBufferMin float64         `json:"overlap_buffer_min"`
	ScoringStrategy  ScoringStrategy `json:"scoring_strategy"`

	// UseSkillCascade switches candidate gating from the default ML
	// mode to the legacy cascading-skill mode.
	UseSkillCascade bool `json:"use_skill_cascade"`

	// SkillCategories and RelatedCategories drive the cascade walk;
	// both may be empty, which degrades the cascade to exact-or-any.
	SkillCategories   map[string][]string `json:"skill_categories,omitempty"`
	RelatedCategories map[string][]string `json:"related_categories,omitempty"`

	// AllowCrossCity relaxes the city filter to state level. Strict
	// by default; flipped when the learned viability flag says
	// cross-city assignments work in this operation.
	AllowCrossCity bool `json:"allow_cross_city"`

	PostOptPasses int   `json:"post_opt_passes"`
	Seed          int64 `json:"seed"`
}

// DefaultConfig returns the reference engine configuration
func DefaultConfig() Config {
	return Config{
		MaxDistanceKm:    200,
		OverlapBufferMin: 30,
		ScoringStrategy:  ScoringPureSuccess,
		PostOptPasses:    3,
		Seed:             42,
	}
}

// SuccessScorer is the capability the engine needs from a success
// model.
type SuccessScorer interface {
	PredictSuccess(f predict.SuccessFeatures, technicianID string, priority models.Priority) float64
}

// DurationEstimator is the capability the engine needs from a
// duration model.
type DurationEstimator interface {
	PredictDuration(f predict.DurationFeatures, technicianID string, fallbackMin float64) float64
	CityFrequency(city string) float64
}

// RunContext is the immutable per-run bundle: chosen thresholds,
// trained models, the compatibility table and the seeded PRNG that
// post-optimization sampling draws from.
type RunContext struct {
	RunID    string
	Policy   policy.Decision
	Config   Config
	Skills   *skills.Table
	Success  SuccessScorer
	Duration DurationEstimator
	Calendar *models.Calendar

	// Rand is owned by the serial optimizer loop; scoring workers
	// never touch it, which keeps runs reproducible.
	Rand *rand.Rand
}

// Candidate is one scored (dispatch, technician) option.
type Candidate struct {
	Technician models.Technician

	DistanceKm         float64
	DistanceKnown      bool
	WorkloadRatio      float64
	WorkloadRatioAfter float64
	SkillScore         float64
	Success            float64
	DurationMin        float64
	OverrunMin         float64
	Score              float64
	Grade              float64

	// ConfidenceMultiplier is 1.0 except in cascading-skill mode,
	// where weaker match levels discount the score.
	ConfidenceMultiplier float64

	Warnings []string
}

// IsClean reports whether the candidate carries no warnings
func (c *Candidate) IsClean() bool {
	return len(c.Warnings) == 0
}

// AddWarning appends a warning to the candidate
func (c *Candidate) AddWarning(w string) {
	c.Warnings = append(c.Warnings, w)
}
