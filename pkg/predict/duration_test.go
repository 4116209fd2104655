package predict

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faiberforce/dispatch-optimizer/pkg/learning"
	"github.com/faiberforce/dispatch-optimizer/pkg/models"
	"github.com/faiberforce/dispatch-optimizer/pkg/skills"
)

// fastDurationConfig shrinks the grid so tests stay quick.
func fastDurationConfig() DurationConfig {
	cfg := DefaultDurationConfig()
	cfg.Grid = learning.GBDTGrid{
		NEstimators:   []int{20},
		MaxDepths:     []int{3},
		LearningRates: []float64{0.1},
		Subsamples:    []float64{1.0},
	}
	return cfg
}

func durationHistory(n int) []models.HistoricalDispatch {
	base := time.Date(2025, 11, 3, 8, 0, 0, 0, time.UTC)
	history := make([]models.HistoricalDispatch, 0, n)
	for i := 0; i < n; i++ {
		dist := float64(i%10) * 10
		h := models.HistoricalDispatch{
			DispatchID:        "H",
			TechnicianID:      "T1",
			RequiredSkill:     "fiber",
			TechPrimarySkill:  "fiber",
			City:              "Austin",
			AppointmentStart:  base.Add(time.Duration(i) * time.Hour),
			AppointmentEnd:    base.Add(time.Duration(i)*time.Hour + time.Hour),
			Productive:        true,
			ActualDurationMin: 40 + dist, // duration grows with distance
		}
		h.DistanceKm = &dist
		history = append(history, h)
	}
	return history
}

func TestDurationModel_UntrainedFallsBack(t *testing.T) {
	model := NewDurationModel(fastDurationConfig(), zerolog.Nop())
	assert.False(t, model.Trained())
	assert.Equal(t, 75.0, model.PredictDuration(DurationFeatures{}, "T1", 75))
	// Without an expectation, the built-in default answers.
	assert.Equal(t, 60.0, model.PredictDuration(DurationFeatures{}, "T1", 0))
}

func TestDurationModel_TrainAndPredict(t *testing.T) {
	table := skills.NewTable(zerolog.Nop())
	history := durationHistory(100)
	table.Train(history)

	model := NewDurationModel(fastDurationConfig(), zerolog.Nop())
	require.NoError(t, model.Train(history, table))
	require.True(t, model.Trained())

	stats := model.Stats()
	assert.Equal(t, 100, stats.Rows)
	assert.Greater(t, stats.ClipHighMin, stats.ClipLowMin)

	// Predictions stay inside the training clip band.
	for _, dist := range []float64{0, 50, 500} {
		got := model.PredictDuration(DurationFeatures{DistanceKm: dist}, "T1", 60)
		assert.GreaterOrEqual(t, got, stats.ClipLowMin)
		assert.LessOrEqual(t, got, stats.ClipHighMin)
	}
}

func TestDurationModel_OutlierCut(t *testing.T) {
	history := durationHistory(50)
	// One absurd 40-hour job.
	outlier := history[0]
	outlier.ActualDurationMin = 2400
	history = append(history, outlier)

	table := skills.NewTable(zerolog.Nop())
	table.Train(history)

	model := NewDurationModel(fastDurationConfig(), zerolog.Nop())
	require.NoError(t, model.Train(history, table))
	assert.GreaterOrEqual(t, model.Stats().OutliersCut, 1)
}

func TestDurationModel_Deterministic(t *testing.T) {
	history := durationHistory(80)
	table := skills.NewTable(zerolog.Nop())
	table.Train(history)

	m1 := NewDurationModel(fastDurationConfig(), zerolog.Nop())
	m2 := NewDurationModel(fastDurationConfig(), zerolog.Nop())
	require.NoError(t, m1.Train(history, table))
	require.NoError(t, m2.Train(history, table))

	f := DurationFeatures{DistanceKm: 42, SkillMatchScore: 1.0, HourOfDay: 10}
	assert.Equal(t, m1.PredictDuration(f, "T1", 60), m2.PredictDuration(f, "T1", 60))
}

func TestDurationModel_EmptyHistory(t *testing.T) {
	table := skills.NewTable(zerolog.Nop())
	model := NewDurationModel(fastDurationConfig(), zerolog.Nop())
	assert.Error(t, model.Train(nil, table))
	assert.False(t, model.Trained())
}
