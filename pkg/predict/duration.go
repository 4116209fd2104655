package predict

import (
	"fmt"
	"math/rand"

	"github.com/rs/zerolog"

	"github.com/faiberforce/dispatch-optimizer/pkg/learning"
	"github.com/faiberforce/dispatch-optimizer/pkg/models"
	"github.com/faiberforce/dispatch-optimizer/pkg/skills"
)

// DurationConfig configures duration-model training.
type DurationConfig struct {
	Grid      learning.GBDTGrid
	CVFolds   int
	TestShare float64
	// OutlierZ drops training rows whose target z-score exceeds it.
	OutlierZ float64
	Seed     int64
}

// DefaultDurationConfig returns the reference configuration: the full
// grid, 3-fold CV, an 80/20 split and a z>3 outlier cut.
func DefaultDurationConfig() DurationConfig {
	return DurationConfig{
		Grid:      learning.DefaultGBDTGrid(),
		CVFolds:   3,
		TestShare: 0.2,
		OutlierZ:  3.0,
		Seed:      42,
	}
}

// DurationTrainingStats captures the grid-search outcome and the
// held-out evaluation, retained for the diagnostic report.
type DurationTrainingStats struct {
	Rows         int                        `json:"rows"`
	OutliersCut  int                        `json:"outliers_cut"`
	BestParams   learning.GBDTParams        `json:"best_params"`
	CVMAE        float64                    `json:"cv_mae"`
	CVMAEStd     float64                    `json:"cv_mae_std"`
	Train        learning.RegressionMetrics `json:"train"`
	Test         learning.RegressionMetrics `json:"test"`
	ClipLowMin   float64                    `json:"clip_low_min"`
	ClipHighMin  float64                    `json:"clip_high_min"`
	Warnings     []string                   `json:"warnings,omitempty"`
}

// DurationModel estimates job duration in minutes. Read-only after
// Train.
type DurationModel struct {
	cfg DurationConfig

	scaler  *learning.MinMaxScaler
	encoder *learning.OneHotEncoder
	model   *learning.GBDTRegressor

	techMean   map[string]float64
	globalMean float64
	cityFreq   map[string]float64

	clipLow  float64
	clipHigh float64
	trained  bool

	stats  DurationTrainingStats
	logger zerolog.Logger
}

// NewDurationModel creates an untrained duration model. Until Train
// succeeds, Predict falls back to the caller-provided expectation.
func NewDurationModel(cfg DurationConfig, logger zerolog.Logger) *DurationModel {
	if cfg.CVFolds < 2 {
		cfg.CVFolds = 3
	}
	if cfg.TestShare <= 0 || cfg.TestShare >= 1 {
		cfg.TestShare = 0.2
	}
	if cfg.OutlierZ <= 0 {
		cfg.OutlierZ = 3.0
	}
	return &DurationModel{
		cfg:        cfg,
		techMean:   make(map[string]float64),
		cityFreq:   make(map[string]float64),
		globalMean: 60,
		logger:     logger.With().Str("component", "duration_model").Logger(),
	}
}

// Train grid-searches and fits the regressor on history. An error
// leaves the model untrained; callers treat that as a degradation,
// not a fatal failure.
func (m *DurationModel) Train(history []models.HistoricalDispatch, table *skills.Table) error {
	if len(history) == 0 {
		return fmt.Errorf("no history to train duration model")
	}

	perRow, perTech, global := expandingMeanDurations(history)
	m.techMean = perTech
	m.globalMean = global
	m.cityFreq = cityJobFrequencies(history)

	m.stats = DurationTrainingStats{Rows: len(history)}

	numeric, cats, targets := m.buildTrainingRows(history, table, perRow)

	// Outlier cut on the target.
	zs := learning.ZScores(targets)
	var keptNumeric [][]float64
	var keptCats [][]string
	var keptTargets []float64
	for i := range targets {
		if zs[i] > m.cfg.OutlierZ || zs[i] < -m.cfg.OutlierZ {
			m.stats.OutliersCut++
			continue
		}
		keptNumeric = append(keptNumeric, numeric[i])
		keptCats = append(keptCats, cats[i])
		keptTargets = append(keptTargets, targets[i])
	}
	if len(keptTargets) < m.cfg.CVFolds {
		return fmt.Errorf("only %d usable rows after outlier cut", len(keptTargets))
	}

	// Fixed-seed 80/20 split.
	rng := rand.New(rand.NewSource(m.cfg.Seed))
	perm := rng.Perm(len(keptTargets))
	testN := int(float64(len(keptTargets)) * m.cfg.TestShare)
	if testN < 1 {
		testN = 1
	}

	var trainX [][]float64
	var trainCats [][]string
	var trainY []float64
	var testX [][]float64
	var testCats [][]string
	var testY []float64
	for pos, i := range perm {
		if pos < testN {
			testX = append(testX, keptNumeric[i])
			testCats = append(testCats, keptCats[i])
			testY = append(testY, keptTargets[i])
		} else {
			trainX = append(trainX, keptNumeric[i])
			trainCats = append(trainCats, keptCats[i])
			trainY = append(trainY, keptTargets[i])
		}
	}

	scaler := learning.NewMinMaxScaler()
	if err := scaler.Fit(trainX); err != nil {
		return fmt.Errorf("fitting numeric scaler: %w", err)
	}
	encoder := learning.NewOneHotEncoder()
	if err := encoder.Fit(trainCats); err != nil {
		return fmt.Errorf("fitting categorical encoder: %w", err)
	}

	encode := func(nums [][]float64, cs [][]string) ([][]float64, error) {
		out := make([][]float64, len(nums))
		for i := range nums {
			scaled, err := scaler.Transform(nums[i])
			if err != nil {
				return nil, err
			}
			oh, err := encoder.Transform(cs[i])
			if err != nil {
				return nil, err
			}
			out[i] = append(scaled, oh...)
		}
		return out, nil
	}

	encodedTrain, err := encode(trainX, trainCats)
	if err != nil {
		return fmt.Errorf("encoding training rows: %w", err)
	}
	encodedTest, err := encode(testX, testCats)
	if err != nil {
		return fmt.Errorf("encoding test rows: %w", err)
	}

	search, err := learning.GridSearchGBDT(encodedTrain, trainY, m.cfg.Grid, m.cfg.CVFolds, m.cfg.Seed)
	if err != nil {
		return fmt.Errorf("hyperparameter search: %w", err)
	}
	m.stats.BestParams = search.BestParams
	m.stats.CVMAE = search.BestCVMAE
	m.stats.CVMAEStd = search.CVMAEStd

	final := learning.NewGBDTRegressor(search.BestParams)
	if err := final.Fit(encodedTrain, trainY, rand.New(rand.NewSource(m.cfg.Seed))); err != nil {
		return fmt.Errorf("fitting final regressor: %w", err)
	}

	evaluate := func(X [][]float64, y []float64) learning.RegressionMetrics {
		predicted := make([]float64, len(X))
		for i := range X {
			predicted[i] = final.Predict(X[i])
		}
		return learning.EvaluateRegression(y, predicted)
	}
	m.stats.Train = evaluate(encodedTrain, trainY)
	m.stats.Test = evaluate(encodedTest, testY)

	m.clipLow = learning.Percentile(trainY, 1)
	m.clipHigh = learning.Percentile(trainY, 99)
	m.stats.ClipLowMin = m.clipLow
	m.stats.ClipHighMin = m.clipHigh

	m.scaler = scaler
	m.encoder = encoder
	m.model = final
	m.trained = true

	m.logger.Info().
		Interface("best_params", search.BestParams).
		Float64("cv_mae", search.BestCVMAE).
		Float64("test_mae", m.stats.Test.MAE).
		Float64("test_r2", m.stats.Test.R2).
		Msg("duration model trained")
	return nil
}

func (m *DurationModel) buildTrainingRows(history []models.HistoricalDispatch, table *skills.Table, expanding []float64) ([][]float64, [][]string, []float64) {
	var distSum float64
	var distN int
	for i := range history {
		if history[i].DistanceKm != nil {
			distSum += *history[i].DistanceKm
			distN++
		}
	}
	meanDist := 0.0
	if distN > 0 {
		meanDist = distSum / float64(distN)
	}

	var numeric [][]float64
	var cats [][]string
	var targets []float64
	for i := range history {
		h := &history[i]
		dist := meanDist
		if h.DistanceKm != nil {
			dist = *h.DistanceKm
		}
		hour, day, weekend := TimeFeatures(h.AppointmentStart)
		equip := 0.0
		if h.EquipmentInstalled != "" {
			equip = 1
		}
		f := DurationFeatures{
			DistanceKm:         dist,
			SkillMatchScore:    table.Score(h.RequiredSkill, h.TechPrimarySkill),
			HourOfDay:          hour,
			DayOfWeek:          day,
			IsWeekend:          weekend,
			FirstTimeFix:       h.FirstTimeFix,
			EquipmentPresent:   equip,
			TechMeanDuration:   expanding[i],
			CityJobFrequency:   m.cityFreq[normalizeCity(h.City)],
			ServiceTier:        h.ServiceTier,
			EquipmentInstalled: h.EquipmentInstalled,
		}
		numeric = append(numeric, f.numeric())
		cats = append(cats, f.categorical())
		targets = append(targets, h.ActualDurationMin)
	}
	return numeric, cats, targets
}

// PredictDuration estimates the job duration in minutes for a
// candidate pair, clipped to the [p01, p99] band of the training
// targets. fallbackMin answers when the model is untrained.
func (m *DurationModel) PredictDuration(f DurationFeatures, technicianID string, fallbackMin float64) float64 {
	if !m.trained {
		if fallbackMin > 0 {
			return fallbackMin
		}
		return m.globalMean
	}

	if f.TechMeanDuration == 0 {
		if mean, ok := m.techMean[technicianID]; ok {
			f.TechMeanDuration = mean
		} else {
			f.TechMeanDuration = m.globalMean
		}
	}

	scaled, err := m.scaler.Transform(f.numeric())
	if err != nil {
		return m.fallback(fallbackMin)
	}
	encoded, err := m.encoder.Transform(f.categorical())
	if err != nil {
		return m.fallback(fallbackMin)
	}

	predicted := m.model.Predict(append(scaled, encoded...))
	return learning.Clip(predicted, m.clipLow, m.clipHigh)
}

// CityFrequency returns the learned job frequency for a city
func (m *DurationModel) CityFrequency(city string) float64 {
	return m.cityFreq[normalizeCity(city)]
}

// Trained reports whether Train has completed successfully
func (m *DurationModel) Trained() bool {
	return m.trained
}

// Stats returns the last training summary
func (m *DurationModel) Stats() DurationTrainingStats {
	return m.stats
}

func (m *DurationModel) fallback(fallbackMin float64) float64 {
	if fallbackMin > 0 {
		return fallbackMin
	}
	return m.globalMean
}
