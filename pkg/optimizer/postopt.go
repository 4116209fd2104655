package optimizer

import (
	"context"
	"math/rand"

	"github.com/faiberforce/dispatch-optimizer/pkg/decision"
	"github.com/faiberforce/dispatch-optimizer/pkg/models"
)

const (
	// reassignGradeFloor marks assignments worth revisiting even when
	// they carry no warning.
	reassignGradeFloor = 70.0

	// reassignMargin is the grade improvement a replacement must show
	// before the old assignment is discarded.
	reassignMargin = 5.0

	// cleanSampleSize is how many clean assignments each pass samples
	// for speculative reassignment.
	cleanSampleSize = 100

	// swapSampleSize is how many candidate pairs each pass draws.
	swapSampleSize = 100

	// swapEpsilon guards against churn on floating-point ties.
	swapEpsilon = 1e-6
)

// assignmentGrade recomputes the 0-100 diagnostic grade from the
// numbers frozen on the assignment row.
func assignmentGrade(a *models.Assignment) float64 {
	overrun := a.PredictedDurationMin - a.End.Sub(a.Start).Minutes()
	return decision.DispatchGrade(a.DistanceKm, overrun, a.PredictedSuccess)
}

// PostOptimize runs up to Config.PostOptPasses local-search passes of
// reassignment and pairwise-swap moves. A pass with zero kept moves
// ends the loop. Returns the number of passes executed and moves kept.
func (e *Engine) PostOptimize(ctx context.Context, dispatches []models.Dispatch) (passes, moves int, err error) {
	byID := make(map[string]*models.Dispatch, len(dispatches))
	for i := range dispatches {
		byID[dispatches[i].DispatchID] = &dispatches[i]
	}

	for pass := 0; pass < e.rc.Config.PostOptPasses; pass++ {
		select {
		case <-ctx.Done():
			return passes, moves, ctx.Err()
		default:
		}

		improved, err := e.reassignmentPass(ctx, byID)
		if err != nil {
			return passes, moves, err
		}
		swapped, err := e.swapPass(ctx, byID)
		if err != nil {
			return passes, moves, err
		}

		passes++
		moves += improved + swapped
		e.logger.Debug().
			Int("pass", pass).
			Int("reassignments", improved).
			Int("swaps", swapped).
			Msg("post-optimization pass complete")
		if improved+swapped == 0 {
			break
		}
	}
	return passes, moves, nil
}

// reassignmentPass revisits warned and low-grade assignments plus a
// random sample of clean ones: each target is unassigned, rerun
// through the strict rung, and the replacement kept only on a
// meaningful improvement.
func (e *Engine) reassignmentPass(ctx context.Context, byID map[string]*models.Dispatch) (int, error) {
	var targets, clean []string
	for _, a := range e.store.Assignments() {
		if !a.IsClean() || assignmentGrade(a) < reassignGradeFloor {
			targets = append(targets, a.DispatchID)
		} else {
			clean = append(clean, a.DispatchID)
		}
	}
	targets = append(targets, sampleIDs(clean, cleanSampleSize, e.rc.Rand)...)

	improved := 0
	for _, id := range targets {
		d, ok := byID[id]
		if !ok {
			continue
		}
		old, ok := e.store.Unassign(id)
		if !ok {
			continue
		}

		replacement, _, err := e.tryAssign(ctx, d, models.FallbackStrict)
		if err != nil {
			e.restore(id, old, replacement)
			return improved, err
		}
		if replacement != nil && assignmentGrade(replacement) >= assignmentGrade(old)+reassignMargin {
			improved++
			continue
		}
		e.restore(id, old, replacement)
	}
	return improved, nil
}

// restore undoes a speculative reassignment.
func (e *Engine) restore(dispatchID string, old *models.Assignment, replacement *models.Assignment) {
	if replacement != nil {
		e.store.Unassign(dispatchID)
	}
	// Commit cannot fail here: the dispatch slot was just vacated.
	_ = e.store.Commit(old)
}

// swapPass draws random assignment pairs and swaps their technicians
// when the combined score improves and both placements remain valid
// under strict constraints.
func (e *Engine) swapPass(ctx context.Context, byID map[string]*models.Dispatch) (int, error) {
	swapped := 0
	for k := 0; k < swapSampleSize; k++ {
		select {
		case <-ctx.Done():
			return swapped, ctx.Err()
		default:
		}

		all := e.store.Assignments()
		if len(all) < 2 {
			return swapped, nil
		}
		a1 := all[e.rc.Rand.Intn(len(all))]
		a2 := all[e.rc.Rand.Intn(len(all))]
		if a1.DispatchID == a2.DispatchID || a1.TechnicianID == a2.TechnicianID {
			continue
		}
		d1, ok1 := byID[a1.DispatchID]
		d2, ok2 := byID[a2.DispatchID]
		if !ok1 || !ok2 {
			continue
		}
		if e.trySwap(d1, a1, d2, a2) {
			swapped++
		}
	}
	return swapped, nil
}

// trySwap evaluates exchanging the two technicians and applies the
// swap when it strictly improves the combined score.
func (e *Engine) trySwap(d1 *models.Dispatch, a1 *models.Assignment, d2 *models.Dispatch, a2 *models.Assignment) bool {
	t1, ok1 := e.techByID[a1.TechnicianID]
	t2, ok2 := e.techByID[a2.TechnicianID]
	if !ok1 || !ok2 {
		return false
	}

	// Counts after the partner leaves: a swap is count-neutral per
	// technician.
	c12 := e.rc.BuildCandidate(d1, t2, e.store.Count(t2.TechnicianID)-1)
	c21 := e.rc.BuildCandidate(d2, t1, e.store.Count(t1.TechnicianID)-1)

	if c12.Score+c21.Score <= a1.Score+a2.Score+swapEpsilon {
		return false
	}

	chk12, ok := e.validateSwapSlot(d1, &t2, &c12, a2.DispatchID)
	if !ok {
		return false
	}
	chk21, ok := e.validateSwapSlot(d2, &t1, &c21, a1.DispatchID)
	if !ok {
		return false
	}

	old1, _ := e.store.Unassign(d1.DispatchID)
	old2, _ := e.store.Unassign(d2.DispatchID)

	settings := e.rc.LevelSettings(models.FallbackStrict)
	c12.Warnings = append(c12.Warnings, decision.CapacityWarnings(c12.WorkloadRatioAfter, settings.Level)...)
	c12.Warnings = append(c12.Warnings, chk12.Warnings...)
	c21.Warnings = append(c21.Warnings, decision.CapacityWarnings(c21.WorkloadRatioAfter, settings.Level)...)
	c21.Warnings = append(c21.Warnings, chk21.Warnings...)

	n1, err1 := e.commit(d1, &c12, settings, chk12)
	n2, err2 := e.commit(d2, &c21, settings, chk21)
	if err1 != nil || err2 != nil || n1 == nil || n2 == nil {
		// Roll back to the pre-swap state.
		if n1 != nil {
			e.store.Unassign(d1.DispatchID)
		}
		if n2 != nil {
			e.store.Unassign(d2.DispatchID)
		}
		_ = e.store.Commit(old1)
		_ = e.store.Commit(old2)
		return false
	}
	return true
}

// validateSwapSlot re-validates hard constraints for one side of a
// proposed swap: distance cap, calendar availability and a
// conflict-free strict-buffer schedule, ignoring the partner slot that
// the swap vacates.
func (e *Engine) validateSwapSlot(d *models.Dispatch, tech *models.Technician, c *decision.Candidate, vacatedDispatchID string) (slotCheck, bool) {
	if !c.DistanceKnown || c.DistanceKm > e.rc.Config.MaxDistanceKm {
		return slotCheck{}, false
	}
	entry, ok := e.rc.Calendar.Lookup(tech.TechnicianID, d.Date())
	if !ok || !entry.Available {
		return slotCheck{}, false
	}
	if c.WorkloadRatioAfter > e.rc.Policy.Thresholds.MaxCapacity {
		return slotCheck{}, false
	}

	existing := e.store.TechAssignments(tech.TechnicianID)
	remaining := make([]*models.Assignment, 0, len(existing))
	for _, a := range existing {
		if a.DispatchID != vacatedDispatchID {
			remaining = append(remaining, a)
		}
	}

	chk := checkSlot(d, entry, remaining, c.DurationMin, e.rc.LevelSettings(models.FallbackStrict))
	if !chk.Viable || chk.NeedsException {
		return slotCheck{}, false
	}
	return chk, true
}

// sampleIDs draws up to n elements without replacement, preserving
// determinism for a fixed seed. The input order is the store's sorted
// dispatch-id order.
func sampleIDs(ids []string, n int, rng *rand.Rand) []string {
	if len(ids) <= n {
		return ids
	}
	picked := make([]string, len(ids))
	copy(picked, ids)
	for i := 0; i < n; i++ {
		j := i + rng.Intn(len(picked)-i)
		picked[i], picked[j] = picked[j], picked[i]
	}
	return picked[:n]
}
