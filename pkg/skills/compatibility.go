// Package skills learns a compatibility table between required skills
// and technician primary skills from historical dispatch outcomes.
package skills

import (
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/faiberforce/dispatch-optimizer/pkg/models"
)

const (
	// scores for pairs the table has never seen or has too little data for
	defaultPairScore  = 0.3
	minLearnedScore   = 0.1
	maxLearnedScore   = 0.95
	minFallbackScore  = 0.2
	maxFallbackScore  = 0.6
	minSampleCount    = 3
	defaultBaseline   = 0.5
)

// PairStats holds the learned statistics for one
// (required_skill, tech_skill) pair.
type PairStats struct {
	Score       float64 `json:"score"`
	SuccessRate float64 `json:"success_rate"`
	SampleCount int     `json:"sample_count"`
}

type pairKey struct {
	required string
	tech     string
}

// Table is a learned skill-compatibility table. It is safe for
// concurrent lookup after Train has returned.
type Table struct {
	mu sync.RWMutex

	pairs    map[pairKey]PairStats
	baseline float64
	// fallbackScore is the mean of learned non-exact scores, clipped,
	// used for pairs never seen in history.
	fallbackScore float64
	trained       bool

	logger zerolog.Logger
}

// NewTable creates an empty compatibility table
func NewTable(logger zerolog.Logger) *Table {
	return &Table{
		pairs:         make(map[pairKey]PairStats),
		baseline:      defaultBaseline,
		fallbackScore: defaultPairScore,
		logger:        logger.With().Str("component", "skill_table").Logger(),
	}
}

// Train rebuilds the table from historical outcomes. Exact-match pairs
// always score 1.0. Non-exact pairs with fewer than 3 samples get a
// conservative 0.3. Non-exact pairs with enough samples score
// clip(0.3 + 0.7*rate/baseline, 0.1, 0.95) where baseline is the mean
// success rate of exact-match pairs (0.5 when history has none).
func (t *Table) Train(history []models.HistoricalDispatch) {
	type tally struct {
		total      int
		productive int
	}
	tallies := make(map[pairKey]*tally)

	for i := range history {
		h := &history[i]
		if h.RequiredSkill == "" || h.TechPrimarySkill == "" {
			continue
		}
		key := pairKey{h.RequiredSkill, h.TechPrimarySkill}
		tl, ok := tallies[key]
		if !ok {
			tl = &tally{}
			tallies[key] = tl
		}
		tl.total++
		if h.Productive {
			tl.productive++
		}
	}

	// Baseline: mean success rate over exact-match pairs.
	baseline := defaultBaseline
	var exactRates []float64
	for key, tl := range tallies {
		if key.required == key.tech && tl.total > 0 {
			exactRates = append(exactRates, float64(tl.productive)/float64(tl.total))
		}
	}
	if len(exactRates) > 0 {
		sum := 0.0
		for _, r := range exactRates {
			sum += r
		}
		baseline = sum / float64(len(exactRates))
	}
	if baseline <= 0 {
		baseline = defaultBaseline
	}

	pairs := make(map[pairKey]PairStats, len(tallies))
	var nonExactScores []float64
	for key, tl := range tallies {
		rate := float64(tl.productive) / float64(tl.total)
		stats := PairStats{SuccessRate: rate, SampleCount: tl.total}
		switch {
		case key.required == key.tech:
			stats.Score = 1.0
		case tl.total < minSampleCount:
			stats.Score = defaultPairScore
		default:
			stats.Score = clip(0.3+0.7*rate/baseline, minLearnedScore, maxLearnedScore)
		}
		pairs[key] = stats
		if key.required != key.tech {
			nonExactScores = append(nonExactScores, stats.Score)
		}
	}

	fallback := defaultPairScore
	if len(nonExactScores) > 0 {
		sum := 0.0
		for _, s := range nonExactScores {
			sum += s
		}
		fallback = clip(sum/float64(len(nonExactScores)), minFallbackScore, maxFallbackScore)
	}

	t.mu.Lock()
	t.pairs = pairs
	t.baseline = baseline
	t.fallbackScore = fallback
	t.trained = true
	t.mu.Unlock()

	t.logger.Info().
		Int("pairs", len(pairs)).
		Float64("baseline", baseline).
		Float64("fallback_score", fallback).
		Msg("skill compatibility table trained")
}

// Score returns the compatibility score for a (required, tech) pair.
// Lookup tries (required, tech), then the reversed order to tolerate
// recording differences, and finally the table-wide fallback score.
// Missing inputs score the conservative default.
func (t *Table) Score(requiredSkill, techSkill string) float64 {
	if requiredSkill == "" || techSkill == "" {
		return defaultPairScore
	}
	if requiredSkill == techSkill {
		return 1.0
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	if stats, ok := t.pairs[pairKey{requiredSkill, techSkill}]; ok {
		return stats.Score
	}
	if stats, ok := t.pairs[pairKey{techSkill, requiredSkill}]; ok {
		return stats.Score
	}
	return t.fallbackScore
}

// Lookup returns the learned stats for a pair, if present
func (t *Table) Lookup(requiredSkill, techSkill string) (PairStats, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	stats, ok := t.pairs[pairKey{requiredSkill, techSkill}]
	return stats, ok
}

// Baseline returns the exact-match baseline success rate
func (t *Table) Baseline() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.baseline
}

// Trained reports whether Train has run at least once
func (t *Table) Trained() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.trained
}

// PairCount returns the number of learned pairs
func (t *Table) PairCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.pairs)
}

// Skills returns the sorted set of skills appearing in the table,
// either as a requirement or as a technician skill.
func (t *Table) Skills() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	seen := make(map[string]struct{})
	for key := range t.pairs {
		seen[key.required] = struct{}{}
		seen[key.tech] = struct{}{}
	}
	skills := make([]string, 0, len(seen))
	for s := range seen {
		skills = append(skills, s)
	}
	sort.Strings(skills)
	return skills
}

func clip(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
