package optimizer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faiberforce/dispatch-optimizer/pkg/models"
)

func testInputs() Inputs {
	return Inputs{
		Dispatches: []models.Dispatch{
			makeDispatch("D1", models.PriorityNormal, at(9, 0), at(10, 0)),
			makeDispatch("D2", models.PriorityCritical, at(10, 30), at(11, 30)),
			makeDispatch("D3", models.PriorityNormal, at(13, 0), at(14, 0)),
		},
		Technicians: []models.Technician{
			makeTech("T1", 40.01, -74.01),
			makeTech("T2", 40.05, -74.05),
		},
		Calendar: []models.CalendarEntry{
			makeCalendarEntry("T1"),
			makeCalendarEntry("T2"),
		},
	}
}

func TestRunEndToEnd(t *testing.T) {
	opts := DefaultOptions()
	opts.Now = runDate.Add(14 * time.Hour)

	res, err := Run(context.Background(), testInputs(), opts)
	require.NoError(t, err)

	assert.False(t, res.Partial)
	assert.Len(t, res.Assignments, 3)
	assert.Empty(t, res.Unassigned)
	assert.Equal(t, 1.0, res.After.AssignmentRate)
	assert.NotEmpty(t, res.RunID)

	// Every dispatch arrived unassigned, so every placement counts as
	// a change.
	assert.Equal(t, 3, res.Changed)
	assert.Len(t, res.Deltas, 3)

	// Only two technicians on calendar: emergency staffing mode.
	assert.True(t, res.Policy.Emergency)

	for _, a := range res.Assignments {
		assert.LessOrEqual(t, a.DistanceKm, opts.Config.MaxDistanceKm)
		assert.GreaterOrEqual(t, a.PredictedSuccess, res.Policy.Thresholds.MinSuccess)
	}
}

func TestRunDeterministicForFixedSeed(t *testing.T) {
	opts := DefaultOptions()
	opts.Now = runDate.Add(14 * time.Hour)

	first, err := Run(context.Background(), testInputs(), opts)
	require.NoError(t, err)
	second, err := Run(context.Background(), testInputs(), opts)
	require.NoError(t, err)

	require.Len(t, second.Assignments, len(first.Assignments))
	for i := range first.Assignments {
		a, b := first.Assignments[i], second.Assignments[i]
		assert.Equal(t, a.DispatchID, b.DispatchID)
		assert.Equal(t, a.TechnicianID, b.TechnicianID)
		assert.Equal(t, a.FallbackLevel, b.FallbackLevel)
		assert.Equal(t, a.Score, b.Score)
	}
}

func TestRunCancelledIsPartial(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	opts := DefaultOptions()
	opts.Now = runDate.Add(14 * time.Hour)
	res, err := Run(ctx, testInputs(), opts)
	require.NoError(t, err)
	assert.True(t, res.Partial)
}

func TestRunBaselineComparison(t *testing.T) {
	in := testInputs()
	// D1 arrives pre-assigned to the distant technician; the optimizer
	// should do no worse than the ingested plan.
	in.Dispatches[0].AssignedTechnicianID = "T2"

	opts := DefaultOptions()
	opts.Now = runDate.Add(14 * time.Hour)
	res, err := Run(context.Background(), in, opts)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Before.Assigned)
	assert.Equal(t, 3, res.After.Assigned)
	assert.GreaterOrEqual(t, res.After.MeanSuccess, 0.0)

	report := BuildReport(res)
	assert.Contains(t, report, "DISPATCH OPTIMIZATION REPORT")
	assert.Contains(t, report, "assignment rate")
	assert.Contains(t, report, "Fallback levels:")
}
