package optimizer

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/faiberforce/dispatch-optimizer/pkg/decision"
	"github.com/faiberforce/dispatch-optimizer/pkg/models"
	"github.com/faiberforce/dispatch-optimizer/pkg/policy"
	"github.com/faiberforce/dispatch-optimizer/pkg/predict"
	"github.com/faiberforce/dispatch-optimizer/pkg/skills"
)

// Inputs are the four ingested tables, fixed at run start.
type Inputs struct {
	Dispatches  []models.Dispatch
	Technicians []models.Technician
	Calendar    []models.CalendarEntry
	History     []models.HistoricalDispatch
}

// Options bundle the run configuration.
type Options struct {
	Config   decision.Config
	Policy   policy.Options
	Success  predict.SuccessConfig
	Duration predict.DurationConfig

	// Now anchors the adaptive policy's time factor; zero means the
	// wall clock.
	Now time.Time

	Logger zerolog.Logger
}

// DefaultOptions returns the reference run configuration.
func DefaultOptions() Options {
	return Options{
		Config:   decision.DefaultConfig(),
		Policy:   policy.DefaultOptions(),
		Success:  predict.DefaultSuccessConfig(),
		Duration: predict.DefaultDurationConfig(),
		Logger:   zerolog.Nop(),
	}
}

// Delta compares one dispatch's initial and optimized assignment.
type Delta struct {
	DispatchID    string  `json:"dispatch_id"`
	InitialTechID string  `json:"initial_tech_id,omitempty"`
	OptimizedID   string  `json:"optimized_tech_id,omitempty"`
	ScoreBefore   float64 `json:"score_before"`
	ScoreAfter    float64 `json:"score_after"`
	Changed       bool    `json:"changed"`
}

// Result is everything one optimization run produced.
type Result struct {
	RunID       string          `json:"run_id"`
	GeneratedAt time.Time       `json:"generated_at"`
	Policy      policy.Decision `json:"policy"`

	Assignments []models.Assignment `json:"assignments"`
	Unassigned  []models.Unassigned `json:"unassigned"`

	Before Metrics `json:"before"`
	After  Metrics `json:"after"`
	Deltas []Delta `json:"deltas"`

	// Changed counts dispatches whose optimized technician differs
	// from the ingested one (including newly assigned).
	Changed int `json:"changed"`

	PostOptPasses int `json:"post_opt_passes"`
	PostOptMoves  int `json:"post_opt_moves"`

	// Partial marks a run aborted by cancellation; the assignment
	// table holds whatever was committed before the abort.
	Partial bool `json:"partial"`

	SuccessStats  predict.SuccessTrainingStats  `json:"success_stats"`
	DurationStats predict.DurationTrainingStats `json:"duration_stats"`
	SuccessMode   predict.SuccessMode           `json:"success_mode"`
}

// Run executes a full optimization: train the predictors on history,
// choose thresholds, score the initial assignments, run greedy and
// post-optimization, and materialize the comparison. Training failures
// degrade the predictors and never abort; a consistency failure after
// commit is a fatal bug and returns an error.
func Run(ctx context.Context, in Inputs, opts Options) (*Result, error) {
	logger := opts.Logger
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	calendar := models.NewCalendar(in.Calendar)

	table := skills.NewTable(logger)
	table.Train(in.History)

	success := predict.NewSuccessModel(opts.Success, logger)
	if err := success.Train(in.History, table); err != nil {
		return nil, err
	}
	duration := predict.NewDurationModel(opts.Duration, logger)
	if err := duration.Train(in.History, table); err != nil {
		// The duration model degrades to expected-duration fallbacks.
		logger.Warn().Err(err).Msg("duration model unavailable, using expected durations")
	}

	signals := policy.Signals{
		DispatchCount:  len(in.Dispatches),
		AvailableTechs: calendar.AvailableCount(primaryDate(in.Dispatches, now)),
		Now:            now,
	}
	chosen := policy.Choose(signals, opts.Policy, logger)

	rc := &decision.RunContext{
		RunID:    uuid.NewString(),
		Policy:   chosen,
		Config:   opts.Config,
		Skills:   table,
		Success:  success,
		Duration: duration,
		Calendar: calendar,
		Rand:     rand.New(rand.NewSource(opts.Config.Seed)),
	}
	engine := NewEngine(rc, in.Technicians, logger)

	logger.Info().
		Str("run_id", rc.RunID).
		Int("dispatches", len(in.Dispatches)).
		Int("technicians", len(in.Technicians)).
		Str("policy_mode", chosen.Mode).
		Str("success_mode", string(success.Mode())).
		Msg("optimization run starting")

	result := &Result{
		RunID:         rc.RunID,
		GeneratedAt:   now,
		Policy:        chosen,
		SuccessStats:  success.Stats(),
		DurationStats: duration.Stats(),
		SuccessMode:   success.Mode(),
	}

	baseline, err := engine.BaselineAssignments(ctx, in.Dispatches)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			result.Partial = true
			return result, nil
		}
		return nil, err
	}
	initial := func(id string) int { return engine.store.initial[id] }
	result.Before = computeMetrics(baseline, len(in.Dispatches), in.Technicians, initial)

	unassigned, err := engine.Assign(ctx, in.Dispatches)
	result.Unassigned = unassigned
	if err != nil {
		if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		result.Partial = true
	}

	if !result.Partial {
		passes, moves, err := engine.PostOptimize(ctx, in.Dispatches)
		result.PostOptPasses = passes
		result.PostOptMoves = moves
		if err != nil {
			if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			result.Partial = true
		}
	}

	if err := engine.store.CheckConsistency(); err != nil {
		// Invariant breach after commit: a bug, not a data problem.
		return nil, err
	}

	for _, a := range engine.store.Assignments() {
		result.Assignments = append(result.Assignments, *a)
	}
	result.After = engine.FinalMetrics(len(in.Dispatches))
	result.Deltas, result.Changed = buildDeltas(in.Dispatches, baseline, engine.store)

	logger.Info().
		Str("run_id", rc.RunID).
		Int("assigned", len(result.Assignments)).
		Int("unassigned", len(result.Unassigned)).
		Int("changed", result.Changed).
		Bool("partial", result.Partial).
		Msg("optimization run complete")
	return result, nil
}

// buildDeltas compares the optimized table against the ingested
// assignments, dispatch by dispatch.
func buildDeltas(dispatches []models.Dispatch, baseline []*models.Assignment, store *AssignmentStore) ([]Delta, int) {
	baseByID := make(map[string]*models.Assignment, len(baseline))
	for _, a := range baseline {
		baseByID[a.DispatchID] = a
	}

	deltas := make([]Delta, 0, len(dispatches))
	changed := 0
	for i := range dispatches {
		d := &dispatches[i]
		delta := Delta{DispatchID: d.DispatchID, InitialTechID: d.AssignedTechnicianID}
		if base, ok := baseByID[d.DispatchID]; ok {
			delta.ScoreBefore = base.Score
		}
		if a, ok := store.Get(d.DispatchID); ok {
			delta.OptimizedID = a.TechnicianID
			delta.ScoreAfter = a.Score
		}
		delta.Changed = delta.OptimizedID != delta.InitialTechID
		if delta.Changed {
			changed++
		}
		deltas = append(deltas, delta)
	}
	return deltas, changed
}

// primaryDate is the most common dispatch date, used to size the
// available-technician signal. Falls back to today when there are no
// dispatches.
func primaryDate(dispatches []models.Dispatch, now time.Time) time.Time {
	if len(dispatches) == 0 {
		return now
	}
	counts := make(map[time.Time]int)
	best := dispatches[0].Date()
	for i := range dispatches {
		date := dispatches[i].Date()
		counts[date]++
		if counts[date] > counts[best] || (counts[date] == counts[best] && date.Before(best)) {
			best = date
		}
	}
	return best
}
