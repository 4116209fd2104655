package seed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateProducesValidModels(t *testing.T) {
	date := time.Date(2025, 11, 12, 0, 0, 0, 0, time.UTC)
	in := NewGenerator(7).Generate(50, 10, 200, date)

	require.Len(t, in.Dispatches, 50)
	require.Len(t, in.Technicians, 10)
	require.Len(t, in.Calendar, 10*7)
	require.Len(t, in.History, 200)

	for _, d := range in.Dispatches {
		assert.NoError(t, d.Validate(), "dispatch %s", d.DispatchID)
		assert.True(t, d.AppointmentEnd.After(d.AppointmentStart))
		assert.Equal(t, date.Day(), d.AppointmentStart.Day())
	}
	for _, tech := range in.Technicians {
		assert.NoError(t, tech.Validate(), "technician %s", tech.TechnicianID)
		assert.GreaterOrEqual(t, tech.WorkloadCapacity, 6)
	}
	for _, e := range in.Calendar {
		assert.NoError(t, e.Validate())
		if e.Available {
			assert.True(t, e.ShiftEnd.After(e.ShiftStart))
		}
	}
	for _, h := range in.History {
		assert.NoError(t, h.Validate(), "history %s", h.DispatchID)
		assert.True(t, h.AppointmentStart.Before(date))
	}
}

func TestGenerateDeterministicForFixedSeed(t *testing.T) {
	date := time.Date(2025, 11, 12, 0, 0, 0, 0, time.UTC)
	a := NewGenerator(42).Generate(30, 8, 100, date)
	b := NewGenerator(42).Generate(30, 8, 100, date)

	require.Equal(t, a.Technicians, b.Technicians)
	require.Equal(t, a.Dispatches, b.Dispatches)
	require.Equal(t, a.Calendar, b.Calendar)
	require.Equal(t, a.History, b.History)
}

func TestGenerateHistoryHasBothOutcomes(t *testing.T) {
	date := time.Date(2025, 11, 12, 0, 0, 0, 0, time.UTC)
	in := NewGenerator(3).Generate(0, 10, 500, date)

	productive, failed := 0, 0
	for _, h := range in.History {
		if h.Productive {
			productive++
		} else {
			failed++
		}
	}
	assert.Greater(t, productive, 0)
	assert.Greater(t, failed, 0)
	// Success skews positive; a degenerate label split would starve
	// classifier training.
	assert.Greater(t, productive, failed)
}
