package policy

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

// a weekday afternoon outside the seasonal peak
var quietTime = time.Date(2025, 5, 14, 14, 0, 0, 0, time.UTC)

func TestChoose_EmergencyLowAvailability(t *testing.T) {
	decision := Choose(Signals{
		DispatchCount:  400,
		AvailableTechs: 10,
		Now:            quietTime,
	}, DefaultOptions(), zerolog.Nop())

	assert.Equal(t, "low_availability", decision.Mode)
	assert.True(t, decision.Emergency)
	assert.Equal(t, 0.20, decision.Thresholds.MinSuccess)
	assert.Equal(t, 1.20, decision.Thresholds.MaxCapacity)
}

func TestChoose_HighDemandBeatsAvailabilityOnTie(t *testing.T) {
	// Demand 10 and availability 10 tie; demand has priority.
	decision := Choose(Signals{
		DispatchCount:  900,
		AvailableTechs: 10,
		Now:            quietTime,
	}, DefaultOptions(), zerolog.Nop())

	assert.Equal(t, "high_demand", decision.Mode)
	assert.Equal(t, 0.25, decision.Thresholds.MinSuccess)
	assert.Equal(t, 1.20, decision.Thresholds.MaxCapacity)
}

func TestChoose_HighAvailabilityIsSelective(t *testing.T) {
	decision := Choose(Signals{
		DispatchCount:  450, // normal demand, score 2
		AvailableTechs: 80,  // high availability, score 9
		Now:            quietTime,
	}, DefaultOptions(), zerolog.Nop())

	assert.Equal(t, "high_availability", decision.Mode)
	assert.Equal(t, 0.35, decision.Thresholds.MinSuccess)
	assert.Equal(t, 1.00, decision.Thresholds.MaxCapacity)
	assert.False(t, decision.Emergency)
}

func TestChoose_NoFactorAboveFiveDefaultsToNormal(t *testing.T) {
	decision := Choose(Signals{
		DispatchCount:  450, // normal, 2
		AvailableTechs: 30,  // normal, 2
		Now:            quietTime, // afternoon, 4
	}, DefaultOptions(), zerolog.Nop())

	assert.Equal(t, "normal_demand", decision.Mode)
	assert.Equal(t, 0.27, decision.Thresholds.MinSuccess)
	assert.Equal(t, 1.12, decision.Thresholds.MaxCapacity)
}

func TestChoose_ManualStrategy(t *testing.T) {
	opts := DefaultOptions()
	opts.Strategy = StrategyManual
	opts.Manual = Thresholds{MinSuccess: 0.42, MaxCapacity: 1.05}

	decision := Choose(Signals{DispatchCount: 900, AvailableTechs: 5, Now: quietTime}, opts, zerolog.Nop())
	assert.Equal(t, "manual", decision.Mode)
	assert.Equal(t, 0.42, decision.Thresholds.MinSuccess)
}

func TestChoose_TimeBasedSeasons(t *testing.T) {
	opts := DefaultOptions()
	opts.Strategy = StrategyTimeBased

	peak := Choose(Signals{Now: time.Date(2025, 11, 12, 10, 0, 0, 0, time.UTC)}, opts, zerolog.Nop())
	assert.Equal(t, "peak_season", peak.Mode)
	assert.Equal(t, 0.25, peak.Thresholds.MinSuccess)

	low := Choose(Signals{Now: time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)}, opts, zerolog.Nop())
	assert.Equal(t, "low_season", low.Mode)

	morning := Choose(Signals{Now: time.Date(2025, 5, 14, 8, 0, 0, 0, time.UTC)}, opts, zerolog.Nop())
	assert.Equal(t, "morning", morning.Mode)
	assert.Equal(t, 0.30, morning.Thresholds.MinSuccess)

	evening := Choose(Signals{Now: time.Date(2025, 5, 14, 19, 0, 0, 0, time.UTC)}, opts, zerolog.Nop())
	assert.Equal(t, "evening", evening.Mode)
	assert.Equal(t, 1.15, evening.Thresholds.MaxCapacity)
}

func TestChoose_DemandBasedStrategy(t *testing.T) {
	opts := DefaultOptions()
	opts.Strategy = StrategyDemandBased

	low := Choose(Signals{DispatchCount: 100, AvailableTechs: 10, Now: quietTime}, opts, zerolog.Nop())
	assert.Equal(t, "low_demand", low.Mode)
	assert.Equal(t, 0.30, low.Thresholds.MinSuccess)
	assert.Equal(t, 1.10, low.Thresholds.MaxCapacity)
}

func TestChoose_InvalidStrategyFallsBackToAuto(t *testing.T) {
	opts := DefaultOptions()
	opts.Strategy = Strategy("bogus")

	decision := Choose(Signals{DispatchCount: 900, AvailableTechs: 60, Now: quietTime}, opts, zerolog.Nop())
	assert.Equal(t, StrategyIntelligentAuto, decision.Strategy)
	assert.Equal(t, "high_demand", decision.Mode)
}
