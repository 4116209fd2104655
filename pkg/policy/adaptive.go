// Package policy chooses the run's scoring thresholds from current
// load and staffing signals before any assignment happens.
package policy

import (
	"time"

	"github.com/rs/zerolog"
)

// Strategy selects how thresholds are chosen at run start.
type Strategy string

const (
	StrategyIntelligentAuto   Strategy = "intelligent_auto"
	StrategyManual            Strategy = "manual"
	StrategyTimeBased         Strategy = "time_based"
	StrategyDemandBased       Strategy = "demand_based"
	StrategyAvailabilityBased Strategy = "availability_based"
)

// IsValid checks if a Strategy is recognized
func (s Strategy) IsValid() bool {
	switch s {
	case StrategyIntelligentAuto, StrategyManual, StrategyTimeBased,
		StrategyDemandBased, StrategyAvailabilityBased:
		return true
	}
	return false
}

// Thresholds is one preset: the minimum acceptable success
// probability and the soft capacity cap applied during filtering.
type Thresholds struct {
	MinSuccess  float64 `json:"min_success"`
	MaxCapacity float64 `json:"max_capacity"`
}

// Presets carries every named threshold preset. The values are
// business parameters, not universal constants; the defaults mirror
// the reference operation.
type Presets struct {
	HighDemand   Thresholds `json:"high_demand"`
	NormalDemand Thresholds `json:"normal_demand"`
	LowDemand    Thresholds `json:"low_demand"`

	HighAvailability Thresholds `json:"high_availability"`
	LowAvailability  Thresholds `json:"low_availability"`

	Peak      Thresholds `json:"peak"`
	Low       Thresholds `json:"low"`
	Morning   Thresholds `json:"morning"`
	Afternoon Thresholds `json:"afternoon"`
	Evening   Thresholds `json:"evening"`
}

// DefaultPresets returns the reference preset table
func DefaultPresets() Presets {
	return Presets{
		HighDemand:   Thresholds{MinSuccess: 0.25, MaxCapacity: 1.20},
		NormalDemand: Thresholds{MinSuccess: 0.27, MaxCapacity: 1.12},
		LowDemand:    Thresholds{MinSuccess: 0.30, MaxCapacity: 1.10},

		HighAvailability: Thresholds{MinSuccess: 0.35, MaxCapacity: 1.00},
		LowAvailability:  Thresholds{MinSuccess: 0.20, MaxCapacity: 1.20},

		Peak:      Thresholds{MinSuccess: 0.25, MaxCapacity: 1.15},
		Low:       Thresholds{MinSuccess: 0.30, MaxCapacity: 1.10},
		Morning:   Thresholds{MinSuccess: 0.30, MaxCapacity: 1.10},
		Afternoon: Thresholds{MinSuccess: 0.27, MaxCapacity: 1.12},
		Evening:   Thresholds{MinSuccess: 0.25, MaxCapacity: 1.15},
	}
}

// Signals are the run-start load measurements the policy reads.
type Signals struct {
	DispatchCount  int       `json:"dispatch_count"`
	AvailableTechs int       `json:"available_techs"`
	Now            time.Time `json:"now"`
}

// Options configures the policy evaluation.
type Options struct {
	Strategy Strategy `json:"strategy"`
	Presets  Presets  `json:"presets"`

	// BaselineDemand is the dispatch volume considered "normal".
	BaselineDemand int `json:"baseline_demand"`

	// Availability band edges.
	HighAvailabilityAt int `json:"high_availability_at"`
	LowAvailabilityAt  int `json:"low_availability_at"`

	// Manual thresholds used when Strategy is manual.
	Manual Thresholds `json:"manual"`
}

// DefaultOptions returns the reference policy configuration
func DefaultOptions() Options {
	return Options{
		Strategy:           StrategyIntelligentAuto,
		Presets:            DefaultPresets(),
		BaselineDemand:     500,
		HighAvailabilityAt: 50,
		LowAvailabilityAt:  20,
		Manual:             Thresholds{MinSuccess: 0.27, MaxCapacity: 1.12},
	}
}

// Decision is the chosen mode and thresholds, recorded in the run
// context and the diagnostic report.
type Decision struct {
	Strategy   Strategy   `json:"strategy"`
	Mode       string     `json:"mode"`
	Thresholds Thresholds `json:"thresholds"`

	DemandScore       int `json:"demand_score"`
	AvailabilityScore int `json:"availability_score"`
	TimeScore         int `json:"time_score"`

	// Emergency is set when the availability factor fired its
	// permissive override (staff too thin to be selective).
	Emergency bool `json:"emergency"`
}

// factor is one scored signal with its preset.
type factor struct {
	name       string
	score      int
	thresholds Thresholds
	emergency  bool
}

// Choose evaluates the configured strategy against the signals. It is
// a pure function; the result is stored in the run context and passed
// by value to scoring.
func Choose(signals Signals, opts Options, logger zerolog.Logger) Decision {
	if !opts.Strategy.IsValid() {
		opts.Strategy = StrategyIntelligentAuto
	}

	demand := scoreDemand(signals, opts)
	availability := scoreAvailability(signals, opts)
	timeOfDay := scoreTime(signals, opts)

	decision := Decision{
		Strategy:          opts.Strategy,
		DemandScore:       demand.score,
		AvailabilityScore: availability.score,
		TimeScore:         timeOfDay.score,
	}

	var chosen factor
	switch opts.Strategy {
	case StrategyManual:
		chosen = factor{name: "manual", thresholds: opts.Manual}
	case StrategyDemandBased:
		chosen = demand
	case StrategyAvailabilityBased:
		chosen = availability
	case StrategyTimeBased:
		chosen = timeOfDay
	default:
		// intelligent_auto: highest score above 5 wins; ties break in
		// the priority order demand > availability > time.
		chosen = factor{name: "normal_demand", thresholds: opts.Presets.NormalDemand}
		best := 5
		for _, f := range []factor{demand, availability, timeOfDay} {
			if f.score > best {
				best = f.score
				chosen = f
			}
		}
	}

	decision.Mode = chosen.name
	decision.Thresholds = chosen.thresholds
	decision.Emergency = chosen.emergency

	logger.Info().
		Str("strategy", string(opts.Strategy)).
		Str("mode", decision.Mode).
		Float64("min_success", decision.Thresholds.MinSuccess).
		Float64("max_capacity", decision.Thresholds.MaxCapacity).
		Bool("emergency", decision.Emergency).
		Int("dispatches", signals.DispatchCount).
		Int("available_techs", signals.AvailableTechs).
		Msg("adaptive policy selected thresholds")

	return decision
}

// scoreDemand rates dispatch volume against the baseline: high demand
// is the strongest signal (10), unusually low demand also matters (8).
func scoreDemand(signals Signals, opts Options) factor {
	baseline := opts.BaselineDemand
	if baseline <= 0 {
		baseline = 500
	}
	ratio := float64(signals.DispatchCount) / float64(baseline)

	switch {
	case ratio > 1.5:
		return factor{name: "high_demand", score: 10, thresholds: opts.Presets.HighDemand}
	case ratio < 0.8:
		return factor{name: "low_demand", score: 8, thresholds: opts.Presets.LowDemand}
	default:
		return factor{name: "normal_demand", score: 2, thresholds: opts.Presets.NormalDemand}
	}
}

// scoreAvailability rates staffing: plenty of technicians means the
// run can afford to be selective (9); a thin bench triggers the
// permissive emergency override (10).
func scoreAvailability(signals Signals, opts Options) factor {
	high := opts.HighAvailabilityAt
	if high <= 0 {
		high = 50
	}
	low := opts.LowAvailabilityAt
	if low <= 0 {
		low = 20
	}

	switch {
	case signals.AvailableTechs > high:
		return factor{name: "high_availability", score: 9, thresholds: opts.Presets.HighAvailability}
	case signals.AvailableTechs < low:
		return factor{name: "low_availability", score: 10, thresholds: opts.Presets.LowAvailability, emergency: true}
	default:
		return factor{name: "normal_availability", score: 2, thresholds: opts.Presets.NormalDemand}
	}
}

// scoreTime rates the clock and the calendar: seasonal peak months
// and the daily shape both carry mild signal (4-5).
func scoreTime(signals Signals, opts Options) factor {
	now := signals.Now
	if now.IsZero() {
		now = time.Now()
	}

	month := now.Month()
	if month == time.November || month == time.December {
		return factor{name: "peak_season", score: 5, thresholds: opts.Presets.Peak}
	}
	if month == time.January || month == time.February {
		return factor{name: "low_season", score: 5, thresholds: opts.Presets.Low}
	}

	hour := now.Hour()
	switch {
	case hour >= 6 && hour < 12:
		return factor{name: "morning", score: 4, thresholds: opts.Presets.Morning}
	case hour >= 12 && hour < 17:
		return factor{name: "afternoon", score: 4, thresholds: opts.Presets.Afternoon}
	case hour >= 17 && hour < 22:
		return factor{name: "evening", score: 4, thresholds: opts.Presets.Evening}
	default:
		return factor{name: "normal_time", score: 2, thresholds: opts.Presets.NormalDemand}
	}
}
