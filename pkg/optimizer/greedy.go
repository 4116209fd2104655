package optimizer

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/faiberforce/dispatch-optimizer/pkg/decision"
	"github.com/faiberforce/dispatch-optimizer/pkg/models"
)

// Engine runs greedy assignment and post-optimization over a single
// run's state. The outer loop is serial: every commit changes the
// counters the next dispatch's filtering reads.
type Engine struct {
	rc       *decision.RunContext
	store    *AssignmentStore
	techs    []models.Technician
	techByID map[string]models.Technician
	logger   zerolog.Logger
}

// NewEngine builds an engine over the run context and technician pool.
func NewEngine(rc *decision.RunContext, techs []models.Technician, logger zerolog.Logger) *Engine {
	byID := make(map[string]models.Technician, len(techs))
	for _, t := range techs {
		byID[t.TechnicianID] = t
	}
	return &Engine{
		rc:       rc,
		store:    NewAssignmentStore(techs),
		techs:    techs,
		techByID: byID,
		logger:   logger.With().Str("component", "optimizer").Str("run_id", rc.RunID).Logger(),
	}
}

// Store exposes the assignment state for metrics and export.
func (e *Engine) Store() *AssignmentStore {
	return e.store
}

// SortDispatches orders dispatches for the greedy loop: priority rank
// first, then appointment start, then dispatch id for a total order.
func SortDispatches(dispatches []models.Dispatch) {
	sort.SliceStable(dispatches, func(i, j int) bool {
		a, b := &dispatches[i], &dispatches[j]
		if a.Priority.Rank() != b.Priority.Rank() {
			return a.Priority.Rank() < b.Priority.Rank()
		}
		if !a.AppointmentStart.Equal(b.AppointmentStart) {
			return a.AppointmentStart.Before(b.AppointmentStart)
		}
		return a.DispatchID < b.DispatchID
	})
}

// Assign runs the greedy loop over the given dispatches, in place,
// committing one assignment (or one unassigned row) per dispatch. The
// context is checked between dispatches; cancellation returns the
// error with whatever was committed so far intact.
func (e *Engine) Assign(ctx context.Context, dispatches []models.Dispatch) ([]models.Unassigned, error) {
	ordered := make([]models.Dispatch, len(dispatches))
	copy(ordered, dispatches)
	SortDispatches(ordered)

	var unassigned []models.Unassigned
	for i := range ordered {
		select {
		case <-ctx.Done():
			return unassigned, ctx.Err()
		default:
		}

		d := &ordered[i]
		assignment, miss, err := e.tryAssign(ctx, d, models.MaxFallbackLevel)
		if err != nil {
			return unassigned, err
		}
		if assignment != nil {
			e.logger.Debug().
				Str("dispatch_id", d.DispatchID).
				Str("technician_id", assignment.TechnicianID).
				Stringer("fallback_level", assignment.FallbackLevel).
				Float64("score", assignment.Score).
				Msg("dispatch assigned")
			continue
		}
		unassigned = append(unassigned, *miss)
		e.logger.Debug().
			Str("dispatch_id", d.DispatchID).
			Str("reason", string(miss.Reason)).
			Msg("dispatch unassigned")
	}
	return unassigned, nil
}

// tryAssign walks the fallback ladder up to maxLevel for one dispatch
// and commits the winning candidate. It returns an Unassigned row when
// no rung produces a placement.
func (e *Engine) tryAssign(ctx context.Context, d *models.Dispatch, maxLevel models.FallbackLevel) (*models.Assignment, *models.Unassigned, error) {
	var lastDiags decision.FilterDiagnostics
	sawBelowThreshold := false
	sawSlotConflict := false

	for level := models.FallbackStrict; level <= maxLevel; level++ {
		settings := e.rc.LevelSettings(level)
		snapshot := e.store.Snapshot()

		pool, diags := e.rc.EligibleTechnicians(d, e.techs, snapshot, settings)
		lastDiags = diags
		if len(pool) == 0 {
			continue
		}

		candidates, err := e.rc.ScoreCandidates(ctx, d, pool, snapshot)
		if err != nil {
			return nil, nil, err
		}
		if e.rc.Config.UseSkillCascade && diags.CascadeMultiplier != 1.0 {
			for i := range candidates {
				candidates[i].ConfidenceMultiplier = diags.CascadeMultiplier
				candidates[i].Score *= diags.CascadeMultiplier
			}
		}

		if settings.ApplyMinSuccess {
			kept := candidates[:0]
			for _, c := range candidates {
				if c.Success >= e.rc.Policy.Thresholds.MinSuccess {
					kept = append(kept, c)
				}
			}
			if len(kept) == 0 {
				sawBelowThreshold = true
				continue
			}
			candidates = kept
		}

		viable, overlapping, checks := e.checkCandidates(d, candidates, settings)
		if len(viable) == 0 && len(overlapping) == 0 {
			sawSlotConflict = true
			continue
		}

		decision.SortCandidates(viable)
		var best *decision.Candidate
		if len(viable) > 0 {
			best = &viable[0]
		}

		// A Critical/High dispatch may take an overlapping slot at the
		// buffered rungs when it clearly beats every conflict-free
		// option.
		if delta := priorityExceptionDelta(d.Priority); delta > 0 &&
			level <= models.FallbackZeroBuffer && len(overlapping) > 0 {
			decision.SortCandidates(overlapping)
			bestConflictFree := 0.0
			if best != nil {
				bestConflictFree = best.Success
			}
			if overlapping[0].Success-bestConflictFree >= delta {
				best = &overlapping[0]
				best.AddWarning(fmt.Sprintf("%s priority overlap exception", d.Priority))
			}
		}
		if best == nil {
			sawSlotConflict = true
			continue
		}

		assignment, err := e.commit(d, best, settings, checks[best.Technician.TechnicianID])
		if err != nil {
			return nil, nil, err
		}
		return assignment, nil, nil
	}

	miss := &models.Unassigned{DispatchID: d.DispatchID}
	switch {
	case sawSlotConflict:
		miss.Reason = models.ReasonAllOvercap
		miss.Detail = "no conflict-free slot at any fallback level"
	case sawBelowThreshold:
		miss.Reason = models.ReasonBelowThreshold
		miss.Detail = fmt.Sprintf("all candidates below success threshold %.2f", e.rc.Policy.Thresholds.MinSuccess)
	default:
		miss.Reason = lastDiags.Reason()
	}
	return nil, miss, nil
}

// checkCandidates applies the schedule checks to every scored
// candidate and splits the survivors into conflict-free and
// exception-eligible sets.
func (e *Engine) checkCandidates(d *models.Dispatch, candidates []decision.Candidate, settings decision.LevelSettings) (viable, overlapping []decision.Candidate, checks map[string]slotCheck) {
	checks = make(map[string]slotCheck, len(candidates))
	for _, c := range candidates {
		techID := c.Technician.TechnicianID
		entry, ok := e.rc.Calendar.Lookup(techID, d.Date())
		if !ok {
			continue
		}
		chk := checkSlot(d, entry, e.store.TechAssignments(techID), c.DurationMin, settings)
		if !chk.Viable {
			continue
		}
		checks[techID] = chk

		c.Warnings = append(c.Warnings, decision.CapacityWarnings(c.WorkloadRatioAfter, settings.Level)...)
		c.Warnings = append(c.Warnings, chk.Warnings...)
		if chk.NeedsException {
			overlapping = append(overlapping, c)
		} else {
			viable = append(viable, c)
		}
	}
	return viable, overlapping, checks
}

// commit materializes the winning candidate as an Assignment and
// updates store state, including the concurrent-placement warnings on
// the colliding rows.
func (e *Engine) commit(d *models.Dispatch, c *decision.Candidate, settings decision.LevelSettings, chk slotCheck) (*models.Assignment, error) {
	a := &models.Assignment{
		DispatchID:           d.DispatchID,
		TechnicianID:         c.Technician.TechnicianID,
		Start:                d.AppointmentStart,
		End:                  d.AppointmentEnd,
		PredictedSuccess:     c.Success,
		PredictedDurationMin: c.DurationMin,
		DistanceKm:           c.DistanceKm,
		SkillMatchScore:      c.SkillScore,
		WorkloadRatioAfter:   c.WorkloadRatioAfter,
		Score:                c.Score,
		FallbackLevel:        settings.Level,
		Warnings:             c.Warnings,
	}

	if settings.Level >= models.FallbackConcurrent {
		for _, conflict := range chk.Conflicts {
			if !conflict.HasWarning(forcedConcurrentWarning) {
				conflict.Warnings = append(conflict.Warnings, forcedConcurrentWarning)
			}
		}
	}

	if err := e.store.Commit(a); err != nil {
		// Only reachable through a bookkeeping bug; surface loudly.
		e.logger.Error().Err(err).Str("dispatch_id", d.DispatchID).Msg("commit rejected")
		return nil, err
	}
	return a, nil
}
