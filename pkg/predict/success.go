package predict

import (
	"fmt"
	"math/rand"

	"github.com/rs/zerolog"

	"github.com/faiberforce/dispatch-optimizer/pkg/learning"
	"github.com/faiberforce/dispatch-optimizer/pkg/models"
	"github.com/faiberforce/dispatch-optimizer/pkg/skills"
)

// SuccessMode identifies which predictor backs success probabilities.
type SuccessMode string

const (
	// SuccessModeEnhanced is the gradient-boosted classifier over the
	// full numeric + categorical feature set.
	SuccessModeEnhanced SuccessMode = "enhanced"
	// SuccessModeLogistic is the low-data fallback over the numeric
	// block only.
	SuccessModeLogistic SuccessMode = "logistic"
	// SuccessModeRules means no classifier could be trained and the
	// rule-based formula answers alone.
	SuccessModeRules SuccessMode = "rules"
)

// calibrationBaseline is the reference success rate against which a
// technician's own historical rate is compared during calibration.
const calibrationBaseline = 0.75

// SuccessConfig configures success-model training.
type SuccessConfig struct {
	// EnhancedMinRows is the minimum usable history size for the
	// gradient-boosted mode; below it the model trains logistic
	// regression instead.
	EnhancedMinRows int
	GBDT            learning.GBDTParams
	Logistic        learning.LogisticParams
	UseHybrid       bool
	RuleWeight      float64
	Rules           BusinessRules
	Seed            int64
}

// DefaultSuccessConfig returns the reference configuration
func DefaultSuccessConfig() SuccessConfig {
	return SuccessConfig{
		EnhancedMinRows: 500,
		GBDT:            learning.DefaultGBDTParams(),
		Logistic:        learning.DefaultLogisticParams(),
		UseHybrid:       true,
		RuleWeight:      0.7,
		Rules:           DefaultBusinessRules(),
		Seed:            42,
	}
}

// SuccessTrainingStats summarizes one training run for diagnostics.
type SuccessTrainingStats struct {
	Mode          SuccessMode `json:"mode"`
	Rows          int         `json:"rows"`
	TrainAccuracy float64     `json:"train_accuracy"`
	Warnings      []string    `json:"warnings,omitempty"`
}

// SuccessModel estimates P(productive) for a candidate pair. It is
// read-only after Train and safe to share across scoring workers.
type SuccessModel struct {
	cfg SuccessConfig

	scaler   *learning.MinMaxScaler
	encoder  *learning.OneHotEncoder
	gbdt     *learning.GBDTClassifier
	logistic *learning.LogisticRegression
	mode     SuccessMode

	profiles map[string]TechProfile
	stats    SuccessTrainingStats

	logger zerolog.Logger
}

// NewSuccessModel creates an untrained success model. Until Train
// runs it answers with the rule-based formula.
func NewSuccessModel(cfg SuccessConfig, logger zerolog.Logger) *SuccessModel {
	if cfg.EnhancedMinRows <= 0 {
		cfg.EnhancedMinRows = 500
	}
	return &SuccessModel{
		cfg:      cfg,
		mode:     SuccessModeRules,
		profiles: make(map[string]TechProfile),
		logger:   logger.With().Str("component", "success_model").Logger(),
	}
}

// Train fits the classifier on history. Training failures degrade the
// model (enhanced -> logistic -> rules) rather than erroring; the
// returned error is reserved for invalid inputs.
func (m *SuccessModel) Train(history []models.HistoricalDispatch, table *skills.Table) error {
	m.profiles = BuildTechProfiles(history)
	m.stats = SuccessTrainingStats{Mode: SuccessModeRules, Rows: len(history)}

	numeric, cats, labels, warnings := m.buildTrainingRows(history, table)
	m.stats.Warnings = warnings
	for _, w := range warnings {
		m.logger.Warn().Msg(w)
	}

	if len(numeric) == 0 {
		m.mode = SuccessModeRules
		m.logger.Warn().Msg("no usable history; success predictions fall back to business rules")
		return nil
	}

	scaler := learning.NewMinMaxScaler()
	if err := scaler.Fit(numeric); err != nil {
		return fmt.Errorf("fitting numeric scaler: %w", err)
	}
	scaled, err := scaler.TransformAll(numeric)
	if err != nil {
		return fmt.Errorf("scaling training rows: %w", err)
	}
	m.scaler = scaler

	if len(numeric) >= m.cfg.EnhancedMinRows {
		if err := m.trainEnhanced(scaled, cats, labels); err == nil {
			m.finishTraining(scaled, cats, labels)
			return nil
		} else {
			m.degrade("enhanced model training failed, downgrading to logistic", err)
		}
	} else {
		m.logger.Info().
			Int("rows", len(numeric)).
			Int("required", m.cfg.EnhancedMinRows).
			Msg("history below enhanced-model threshold, training logistic fallback")
	}

	if err := m.trainLogistic(scaled, labels); err != nil {
		m.degrade("logistic training failed, falling back to business rules", err)
		m.mode = SuccessModeRules
		m.stats.Mode = SuccessModeRules
		return nil
	}
	m.finishTraining(scaled, cats, labels)
	return nil
}

func (m *SuccessModel) trainEnhanced(scaled [][]float64, cats [][]string, labels []float64) error {
	encoder := learning.NewOneHotEncoder()
	if err := encoder.Fit(cats); err != nil {
		return fmt.Errorf("fitting categorical encoder: %w", err)
	}

	X := make([][]float64, len(scaled))
	for i := range scaled {
		encoded, err := encoder.Transform(cats[i])
		if err != nil {
			return fmt.Errorf("encoding row %d: %w", i, err)
		}
		X[i] = append(append([]float64{}, scaled[i]...), encoded...)
	}

	gbdt := learning.NewGBDTClassifier(m.cfg.GBDT)
	rng := rand.New(rand.NewSource(m.cfg.Seed))
	if err := gbdt.Fit(X, labels, rng); err != nil {
		return fmt.Errorf("fitting gradient-boosted classifier: %w", err)
	}

	m.encoder = encoder
	m.gbdt = gbdt
	m.mode = SuccessModeEnhanced
	return nil
}

func (m *SuccessModel) trainLogistic(scaled [][]float64, labels []float64) error {
	logistic := learning.NewLogisticRegression(m.cfg.Logistic)
	if err := logistic.Fit(scaled, labels); err != nil {
		return fmt.Errorf("fitting logistic regression: %w", err)
	}
	m.logistic = logistic
	m.mode = SuccessModeLogistic
	return nil
}

func (m *SuccessModel) finishTraining(scaled [][]float64, cats [][]string, labels []float64) {
	m.stats.Mode = m.mode

	probs := make([]float64, len(scaled))
	for i := range scaled {
		probs[i] = m.rawProbability(scaled[i], cats[i])
	}
	m.stats.TrainAccuracy = learning.Accuracy(labels, probs)

	m.validateMonotonicity()

	m.logger.Info().
		Str("mode", string(m.mode)).
		Int("rows", m.stats.Rows).
		Float64("train_accuracy", m.stats.TrainAccuracy).
		Msg("success model trained")
}

// buildTrainingRows converts history into model rows. Rows without a
// required skill or outcome context are skipped; missing distances
// use the mean of the present ones.
func (m *SuccessModel) buildTrainingRows(history []models.HistoricalDispatch, table *skills.Table) ([][]float64, [][]string, []float64, []string) {
	var warnings []string

	workloads, monotone := estimateWorkloadRatios(history)
	if !monotone {
		warnings = append(warnings, "history timestamps are not chronologically ordered per technician; workload feature may be biased")
	}

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
	var labels []float64
	for i := range history {
		h := &history[i]
		dist := meanDist
		if h.DistanceKm != nil {
			dist = *h.DistanceKm
		}
		hour, day, weekend := TimeFeatures(h.AppointmentStart)
		f := SuccessFeatures{
			DistanceKm:         dist,
			SkillMatchScore:    table.Score(h.RequiredSkill, h.TechPrimarySkill),
			WorkloadRatio:      workloads[i],
			HourOfDay:          hour,
			DayOfWeek:          day,
			IsWeekend:          weekend,
			FirstTimeFix:       h.FirstTimeFix,
			ServiceTier:        h.ServiceTier,
			EquipmentInstalled: h.EquipmentInstalled,
		}
		numeric = append(numeric, f.numeric())
		cats = append(cats, f.categorical())
		if h.Productive {
			labels = append(labels, 1)
		} else {
			labels = append(labels, 0)
		}
	}
	return numeric, cats, labels, warnings
}

// rawProbability runs the trained classifier on an already-scaled
// numeric row.
func (m *SuccessModel) rawProbability(scaled []float64, cats []string) float64 {
	switch m.mode {
	case SuccessModeEnhanced:
		encoded, err := m.encoder.Transform(cats)
		if err != nil {
			return 0.5
		}
		return m.gbdt.PredictProba(append(append([]float64{}, scaled...), encoded...))
	case SuccessModeLogistic:
		return m.logistic.PredictProba(scaled)
	default:
		return 0.5
	}
}

// PredictSuccess returns P(productive) for a candidate pair. The
// model probability is optionally blended with the business-rule
// formula, then calibrated against the technician's own track record.
func (m *SuccessModel) PredictSuccess(f SuccessFeatures, technicianID string, priority models.Priority) float64 {
	prob := m.modelProbability(f)

	if m.cfg.UseHybrid || m.mode == SuccessModeRules {
		ruleProb := m.cfg.Rules.Probability(f.DistanceKm, f.WorkloadRatio, f.SkillMatchScore >= 0.999, priority)
		if m.mode == SuccessModeRules {
			prob = ruleProb
		} else {
			prob = BlendProbabilities(prob, ruleProb, m.cfg.RuleWeight)
		}
	}

	// Per-technician calibration: blend toward the technician's own
	// historical rate when at least one outcome exists.
	if profile, ok := m.profiles[technicianID]; ok && profile.TotalJobs >= 1 {
		prob = learning.Clip(prob*(0.7+0.3*profile.SuccessRate/calibrationBaseline), 0, 1)
	}
	return prob
}

func (m *SuccessModel) modelProbability(f SuccessFeatures) float64 {
	if m.mode == SuccessModeRules || m.scaler == nil {
		return 0.5
	}
	scaled, err := m.scaler.Transform(f.numeric())
	if err != nil {
		return 0.5
	}
	return m.rawProbability(scaled, f.categorical())
}

// validateMonotonicity probes the trained model at a canonical
// midpoint and checks that probability moves the expected way with
// distance, workload and skill match. Violations log warnings only;
// they never abort a run.
func (m *SuccessModel) validateMonotonicity() {
	base := SuccessFeatures{
		DistanceKm:      50,
		SkillMatchScore: 0.5,
		WorkloadRatio:   0.5,
		HourOfDay:       12,
		DayOfWeek:       3,
		FirstTimeFix:    0.5,
	}

	probe := func(mutate func(*SuccessFeatures)) float64 {
		f := base
		mutate(&f)
		return m.modelProbability(f)
	}

	near := probe(func(f *SuccessFeatures) { f.DistanceKm = 5 })
	far := probe(func(f *SuccessFeatures) { f.DistanceKm = 180 })
	if near < far {
		m.warn("monotonicity check failed: success does not decrease with distance")
	}

	light := probe(func(f *SuccessFeatures) { f.WorkloadRatio = 0.2 })
	heavy := probe(func(f *SuccessFeatures) { f.WorkloadRatio = 1.0 })
	if light < heavy {
		m.warn("monotonicity check failed: success does not decrease with workload")
	}

	matched := probe(func(f *SuccessFeatures) { f.SkillMatchScore = 0.95 })
	mismatched := probe(func(f *SuccessFeatures) { f.SkillMatchScore = 0.2 })
	if matched < mismatched {
		m.warn("monotonicity check failed: success does not increase with skill match")
	}
}

func (m *SuccessModel) warn(msg string) {
	m.stats.Warnings = append(m.stats.Warnings, msg)
	m.logger.Warn().Msg(msg)
}

func (m *SuccessModel) degrade(msg string, err error) {
	m.stats.Warnings = append(m.stats.Warnings, msg)
	m.logger.Warn().Err(err).Msg(msg)
}

// Mode returns the active predictor mode
func (m *SuccessModel) Mode() SuccessMode {
	return m.mode
}

// Stats returns the last training summary
func (m *SuccessModel) Stats() SuccessTrainingStats {
	return m.stats
}

// Profile returns the historical profile for a technician, if any
func (m *SuccessModel) Profile(technicianID string) (TechProfile, bool) {
	p, ok := m.profiles[technicianID]
	return p, ok
}
