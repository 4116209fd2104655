package predict

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faiberforce/dispatch-optimizer/pkg/models"
)

func histAt(tech string, start time.Time, productive bool, duration float64) models.HistoricalDispatch {
	return models.HistoricalDispatch{
		DispatchID:        "H-" + tech + start.Format("150405"),
		TechnicianID:      tech,
		RequiredSkill:     "fiber",
		TechPrimarySkill:  "fiber",
		AppointmentStart:  start,
		AppointmentEnd:    start.Add(time.Hour),
		Productive:        productive,
		ActualDurationMin: duration,
	}
}

func TestBuildTechProfiles(t *testing.T) {
	base := time.Date(2025, 11, 3, 9, 0, 0, 0, time.UTC)
	history := []models.HistoricalDispatch{
		histAt("T1", base, true, 60),
		histAt("T1", base.Add(2*time.Hour), true, 80),
		histAt("T1", base.Add(4*time.Hour), false, 100),
		histAt("T2", base, true, 40),
	}

	profiles := BuildTechProfiles(history)
	require.Len(t, profiles, 2)

	p1 := profiles["T1"]
	assert.Equal(t, 3, p1.TotalJobs)
	assert.InDelta(t, 2.0/3.0, p1.SuccessRate, 1e-9)
	assert.InDelta(t, 80, p1.MeanDurationMin, 1e-9)
	// 0.6*success + 0.2*(3/50) + 0.2*(1-0.5)
	assert.InDelta(t, 0.6*(2.0/3.0)+0.2*(3.0/50.0)+0.2*0.5, p1.PerformanceScore, 1e-9)

	p2 := profiles["T2"]
	assert.Equal(t, 1, p2.TotalJobs)
	assert.Equal(t, 1.0, p2.SuccessRate)
}

func TestExpandingMeanDurations_NoLeakage(t *testing.T) {
	base := time.Date(2025, 11, 3, 8, 0, 0, 0, time.UTC)
	history := []models.HistoricalDispatch{
		histAt("T1", base, true, 60),
		histAt("T1", base.Add(time.Hour), true, 120),
		histAt("T1", base.Add(2*time.Hour), true, 30),
	}

	perRow, perTech, global := expandingMeanDurations(history)

	// Row 1 sees only the 60-minute job; row 2 sees 60 and 120.
	assert.InDelta(t, 60, perRow[1], 1e-9)
	assert.InDelta(t, 90, perRow[2], 1e-9)
	// First row has no prior data and gets the global mean.
	assert.InDelta(t, global, perRow[0], 1e-9)
	assert.InDelta(t, 70, perTech["T1"], 1e-9)
	assert.InDelta(t, 70, global, 1e-9)
}

func TestEstimateWorkloadRatios_Monotone(t *testing.T) {
	base := time.Date(2025, 11, 3, 8, 0, 0, 0, time.UTC)
	history := []models.HistoricalDispatch{
		histAt("T1", base, true, 60),
		histAt("T1", base.Add(time.Hour), true, 60),
		histAt("T1", base.Add(2*time.Hour), true, 60),
	}

	ratios, monotone := estimateWorkloadRatios(history)
	assert.True(t, monotone)
	// Cumulative count over the default capacity of 8.
	assert.InDelta(t, 0.0, ratios[0], 1e-9)
	assert.InDelta(t, 1.0/8.0, ratios[1], 1e-9)
	assert.InDelta(t, 2.0/8.0, ratios[2], 1e-9)
}

func TestEstimateWorkloadRatios_NonMonotoneFlagged(t *testing.T) {
	base := time.Date(2025, 11, 3, 8, 0, 0, 0, time.UTC)
	history := []models.HistoricalDispatch{
		histAt("T1", base.Add(2*time.Hour), true, 60),
		histAt("T1", base, true, 60),
	}

	_, monotone := estimateWorkloadRatios(history)
	assert.False(t, monotone)
}

func TestTimeFeatures(t *testing.T) {
	// A Saturday morning.
	hour, day, weekend := TimeFeatures(time.Date(2025, 11, 8, 9, 30, 0, 0, time.UTC))
	assert.Equal(t, 9.0, hour)
	assert.Equal(t, float64(time.Saturday), day)
	assert.Equal(t, 1.0, weekend)

	_, _, weekday := TimeFeatures(time.Date(2025, 11, 12, 9, 30, 0, 0, time.UTC))
	assert.Equal(t, 0.0, weekday)
}
