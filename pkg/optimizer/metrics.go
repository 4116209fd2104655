package optimizer

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/faiberforce/dispatch-optimizer/pkg/models"
)

// metricsWorkers bounds the baseline scoring fan-out.
const metricsWorkers = 8

// Metrics are the aggregate quality numbers for one assignment table,
// computed before and after optimization for the comparison report.
type Metrics struct {
	Dispatches     int     `json:"dispatches"`
	Assigned       int     `json:"assigned"`
	AssignmentRate float64 `json:"assignment_rate"`

	MeanSuccess       float64 `json:"mean_success"`
	MeanDistanceKm    float64 `json:"mean_distance_km"`
	MeanSkillMatch    float64 `json:"mean_skill_match"`
	MeanWorkloadRatio float64 `json:"mean_workload_ratio"`
	MeanOverrunMin    float64 `json:"mean_overrun_min"`
	MeanGrade         float64 `json:"mean_grade"`

	// Workload distribution over the technician pool.
	PctBelow40  float64 `json:"pct_below_40"`
	PctAbove100 float64 `json:"pct_above_100"`

	FallbackHistogram map[models.FallbackLevel]int `json:"fallback_histogram,omitempty"`
}

// computeMetrics aggregates one assignment table against the
// technician pool's final counters.
func computeMetrics(assignments []*models.Assignment, dispatchCount int, techs []models.Technician, counts func(string) int) Metrics {
	m := Metrics{
		Dispatches:        dispatchCount,
		Assigned:          len(assignments),
		FallbackHistogram: make(map[models.FallbackLevel]int),
	}
	if dispatchCount > 0 {
		m.AssignmentRate = float64(len(assignments)) / float64(dispatchCount)
	}

	for _, a := range assignments {
		m.MeanSuccess += a.PredictedSuccess
		m.MeanDistanceKm += a.DistanceKm
		m.MeanSkillMatch += a.SkillMatchScore
		m.MeanWorkloadRatio += a.WorkloadRatioAfter
		m.MeanOverrunMin += a.PredictedDurationMin - a.End.Sub(a.Start).Minutes()
		m.MeanGrade += assignmentGrade(a)
		m.FallbackHistogram[a.FallbackLevel]++
	}
	if n := float64(len(assignments)); n > 0 {
		m.MeanSuccess /= n
		m.MeanDistanceKm /= n
		m.MeanSkillMatch /= n
		m.MeanWorkloadRatio /= n
		m.MeanOverrunMin /= n
		m.MeanGrade /= n
	}

	withCapacity := 0
	for _, t := range techs {
		if t.WorkloadCapacity <= 0 {
			continue
		}
		withCapacity++
		ratio := t.WorkloadRatio(counts(t.TechnicianID))
		if ratio < 0.40 {
			m.PctBelow40++
		}
		if ratio > 1.00 {
			m.PctAbove100++
		}
	}
	if withCapacity > 0 {
		m.PctBelow40 /= float64(withCapacity)
		m.PctAbove100 /= float64(withCapacity)
	}
	return m
}

// BaselineAssignments scores the dispatches' pre-existing technician
// assignments with the same prediction stack the optimizer uses. The
// computation is read-only and fans out over a bounded pool.
func (e *Engine) BaselineAssignments(ctx context.Context, dispatches []models.Dispatch) ([]*models.Assignment, error) {
	counts := e.store.Snapshot()
	baseline := make([]*models.Assignment, len(dispatches))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(metricsWorkers)
	for i := range dispatches {
		i := i
		d := &dispatches[i]
		if !d.HasInitialAssignment() {
			continue
		}
		tech, ok := e.techByID[d.AssignedTechnicianID]
		if !ok {
			continue
		}
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			c := e.rc.BuildCandidate(d, tech, counts(tech.TechnicianID))
			baseline[i] = &models.Assignment{
				DispatchID:           d.DispatchID,
				TechnicianID:         tech.TechnicianID,
				Start:                d.AppointmentStart,
				End:                  d.AppointmentEnd,
				PredictedSuccess:     c.Success,
				PredictedDurationMin: c.DurationMin,
				DistanceKm:           c.DistanceKm,
				SkillMatchScore:      c.SkillScore,
				WorkloadRatioAfter:   c.WorkloadRatioAfter,
				Score:                c.Score,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]*models.Assignment, 0, len(baseline))
	for _, a := range baseline {
		if a != nil {
			out = append(out, a)
		}
	}
	return out, nil
}

// BaselineMetrics aggregates the pre-existing assignments using the
// ingested current_assignments as the workload baseline.
func (e *Engine) BaselineMetrics(ctx context.Context, dispatches []models.Dispatch) (Metrics, error) {
	baseline, err := e.BaselineAssignments(ctx, dispatches)
	if err != nil {
		return Metrics{}, err
	}
	initial := func(id string) int { return e.store.initial[id] }
	return computeMetrics(baseline, len(dispatches), e.techs, initial), nil
}

// FinalMetrics aggregates the committed assignment table.
func (e *Engine) FinalMetrics(dispatchCount int) Metrics {
	return computeMetrics(e.store.Assignments(), dispatchCount, e.techs, e.store.Count)
}
