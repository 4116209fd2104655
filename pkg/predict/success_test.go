package predict

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/suite"

	"github.com/faiberforce/dispatch-optimizer/pkg/models"
	"github.com/faiberforce/dispatch-optimizer/pkg/skills"
)

type SuccessModelTestSuite struct {
	suite.Suite
	table *skills.Table
}

func (s *SuccessModelTestSuite) SetupTest() {
	s.table = skills.NewTable(zerolog.Nop())
}

// syntheticHistory builds rows where short distances succeed and long
// ones fail, so any trained classifier has signal to find.
func (s *SuccessModelTestSuite) syntheticHistory(n int) []models.HistoricalDispatch {
	base := time.Date(2025, 11, 3, 8, 0, 0, 0, time.UTC)
	history := make([]models.HistoricalDispatch, 0, n)
	for i := 0; i < n; i++ {
		dist := float64(i%20) * 10 // 0..190 km
		productive := dist < 100
		h := models.HistoricalDispatch{
			DispatchID:        "H",
			TechnicianID:      "T1",
			RequiredSkill:     "fiber",
			TechPrimarySkill:  "fiber",
			ServiceTier:       "gold",
			AppointmentStart:  base.Add(time.Duration(i) * time.Hour),
			AppointmentEnd:    base.Add(time.Duration(i)*time.Hour + time.Hour),
			Productive:        productive,
			ActualDurationMin: 60,
		}
		h.DistanceKm = &dist
		history = append(history, h)
	}
	return history
}

func (s *SuccessModelTestSuite) TestUntrainedUsesRules() {
	model := NewSuccessModel(DefaultSuccessConfig(), zerolog.Nop())
	s.Equal(SuccessModeRules, model.Mode())

	p := model.PredictSuccess(SuccessFeatures{DistanceKm: 30, SkillMatchScore: 1.0, WorkloadRatio: 0.5}, "T-unknown", models.PriorityNormal)
	s.Greater(p, 0.0)
	s.LessOrEqual(p, 1.0)
}

func (s *SuccessModelTestSuite) TestSmallHistoryTrainsLogistic() {
	history := s.syntheticHistory(60)
	s.table.Train(history)

	model := NewSuccessModel(DefaultSuccessConfig(), zerolog.Nop())
	s.Require().NoError(model.Train(history, s.table))
	s.Equal(SuccessModeLogistic, model.Mode())
	s.Equal(60, model.Stats().Rows)
}

func (s *SuccessModelTestSuite) TestLargeHistoryTrainsEnhanced() {
	history := s.syntheticHistory(600)
	s.table.Train(history)

	cfg := DefaultSuccessConfig()
	cfg.GBDT.NEstimators = 20 // keep the test fast
	model := NewSuccessModel(cfg, zerolog.Nop())
	s.Require().NoError(model.Train(history, s.table))
	s.Equal(SuccessModeEnhanced, model.Mode())
	s.Greater(model.Stats().TrainAccuracy, 0.6)
}

func (s *SuccessModelTestSuite) TestPredictionInRange() {
	history := s.syntheticHistory(100)
	s.table.Train(history)

	model := NewSuccessModel(DefaultSuccessConfig(), zerolog.Nop())
	s.Require().NoError(model.Train(history, s.table))

	for _, dist := range []float64{0, 50, 150, 400} {
		p := model.PredictSuccess(SuccessFeatures{
			DistanceKm:      dist,
			SkillMatchScore: 1.0,
			WorkloadRatio:   0.5,
			HourOfDay:       10,
		}, "T1", models.PriorityNormal)
		s.GreaterOrEqual(p, 0.0)
		s.LessOrEqual(p, 1.0)
	}
}

func (s *SuccessModelTestSuite) TestCalibrationRewardsTrackRecord() {
	base := time.Date(2025, 11, 3, 8, 0, 0, 0, time.UTC)
	var history []models.HistoricalDispatch
	// T-good: 10/10 productive. T-bad: 1/10.
	for i := 0; i < 10; i++ {
		good := histAt("T-good", base.Add(time.Duration(i)*time.Hour), true, 60)
		bad := histAt("T-bad", base.Add(time.Duration(i)*time.Hour), i == 0, 60)
		history = append(history, good, bad)
	}
	s.table.Train(history)

	model := NewSuccessModel(DefaultSuccessConfig(), zerolog.Nop())
	s.Require().NoError(model.Train(history, s.table))

	f := SuccessFeatures{DistanceKm: 30, SkillMatchScore: 1.0, WorkloadRatio: 0.5, HourOfDay: 10}
	pGood := model.PredictSuccess(f, "T-good", models.PriorityNormal)
	pBad := model.PredictSuccess(f, "T-bad", models.PriorityNormal)
	s.Greater(pGood, pBad)
}

func (s *SuccessModelTestSuite) TestDeterministicTraining() {
	history := s.syntheticHistory(120)
	s.table.Train(history)

	m1 := NewSuccessModel(DefaultSuccessConfig(), zerolog.Nop())
	m2 := NewSuccessModel(DefaultSuccessConfig(), zerolog.Nop())
	s.Require().NoError(m1.Train(history, s.table))
	s.Require().NoError(m2.Train(history, s.table))

	f := SuccessFeatures{DistanceKm: 42, SkillMatchScore: 0.8, WorkloadRatio: 0.4, HourOfDay: 14}
	s.Equal(m1.PredictSuccess(f, "T1", models.PriorityHigh), m2.PredictSuccess(f, "T1", models.PriorityHigh))
}

func TestSuccessModelTestSuite(t *testing.T) {
	suite.Run(t, new(SuccessModelTestSuite))
}
