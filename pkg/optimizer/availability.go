package optimizer

import (
	"fmt"
	"time"

	"github.com/faiberforce/dispatch-optimizer/pkg/decision"
	"github.com/faiberforce/dispatch-optimizer/pkg/models"
)

// slotCheck is the outcome of testing one candidate technician's
// schedule against a dispatch's appointment window at one ladder rung.
type slotCheck struct {
	// Viable is false when the schedule rules out the placement at
	// this rung outright.
	Viable bool

	// NeedsException marks a buffer-induced conflict at a rung where
	// overlaps are not generally allowed; the greedy loop may still
	// place it under the priority exception.
	NeedsException bool

	// Conflicts are the existing assignments that collide within the
	// rung's overlap buffer.
	Conflicts []*models.Assignment

	Warnings []string
	Reason   string
}

// checkSlot tests the dispatch window and predicted duration against a
// technician's shift and committed assignments. Calendar availability
// itself was already verified by the filter; this handles shift edges,
// overlaps and the concurrency cap.
func checkSlot(d *models.Dispatch, entry models.CalendarEntry, existing []*models.Assignment, predictedDurationMin float64, settings decision.LevelSettings) slotCheck {
	chk := slotCheck{Viable: true}

	start := d.AppointmentStart
	end := d.AppointmentEnd
	predictedEnd := start.Add(time.Duration(predictedDurationMin * float64(time.Minute)))
	if predictedEnd.Before(end) {
		predictedEnd = end
	}

	if start.Before(entry.ShiftStart) {
		chk.Warnings = append(chk.Warnings,
			fmt.Sprintf("starts %.0f min before shift start", entry.ShiftStart.Sub(start).Minutes()))
	}

	if predictedEnd.After(entry.ShiftEnd) {
		overtime := predictedEnd.Sub(entry.ShiftEnd).Minutes()
		if !settings.AllowOvertime && !settings.Forced {
			chk.Viable = false
			chk.Reason = "ends after shift end"
			return chk
		}
		chk.Warnings = append(chk.Warnings,
			fmt.Sprintf("overtime: ends %.0f min after shift end", overtime))
	}

	// Day-level saturation checks are advisory; capacity enforcement
	// happens in the filter.
	if entry.MaxAssignments > 0 && len(existing) >= entry.MaxAssignments {
		chk.Warnings = append(chk.Warnings,
			fmt.Sprintf("exceeds daily max of %d appointments", entry.MaxAssignments))
	}
	scheduled := predictedDurationMin
	for _, a := range existing {
		scheduled += a.End.Sub(a.Start).Minutes()
	}
	if shift := entry.ShiftMinutes(); shift > 0 && scheduled > shift {
		chk.Warnings = append(chk.Warnings,
			fmt.Sprintf("total scheduled time %.0f min exceeds %.0f min shift", scheduled, shift))
	}

	probe := models.Assignment{Start: start, End: end}
	for _, a := range existing {
		if probe.OverlapsWith(a, settings.OverlapBufferMin) {
			chk.Conflicts = append(chk.Conflicts, a)
		}
	}
	if len(chk.Conflicts) == 0 {
		return chk
	}

	// The concurrency cap counts the proposal itself.
	if len(chk.Conflicts)+1 > settings.MaxConcurrent {
		chk.Viable = false
		chk.Reason = fmt.Sprintf("would exceed %d concurrent appointments", settings.MaxConcurrent)
		return chk
	}

	if settings.Level >= models.FallbackConcurrent {
		chk.Warnings = append(chk.Warnings, forcedConcurrentWarning)
		return chk
	}

	// Below the concurrent rung an overlap is only placeable through
	// the priority exception, and only when the collision is purely
	// buffer-induced: a genuine zero-buffer overlap is a concurrent
	// appointment and belongs to the concurrent rung.
	for _, a := range chk.Conflicts {
		if probe.OverlapsWith(a, 0) {
			chk.Viable = false
			chk.Reason = "overlaps an existing appointment"
			return chk
		}
	}
	chk.NeedsException = true
	return chk
}

const forcedConcurrentWarning = "forced concurrent appointment"

// priorityExceptionDelta returns the success advantage a Critical or
// High dispatch must show over the best conflict-free option before it
// may be placed against an overlapping slot. Zero means no exception.
func priorityExceptionDelta(p models.Priority) float64 {
	switch p {
	case models.PriorityCritical:
		return 0.20
	case models.PriorityHigh:
		return 0.25
	default:
		return 0
	}
}
