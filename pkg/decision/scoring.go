package decision

import (
	"context"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/faiberforce/dispatch-optimizer/pkg/geo"
	"github.com/faiberforce/dispatch-optimizer/pkg/models"
	"github.com/faiberforce/dispatch-optimizer/pkg/predict"
)

// scoringWorkers bounds the candidate fan-out per dispatch.
const scoringWorkers = 8

// BuildCandidate computes every per-pair number for one technician:
// distance, skill score, predicted success and duration, overrun, the
// configured score and the diagnostic grade. Pure function of its
// inputs plus the read-only models in the run context.
func (rc *RunContext) BuildCandidate(d *models.Dispatch, tech models.Technician, assignedCount int) Candidate {
	c := Candidate{
		Technician:           tech,
		WorkloadRatio:        tech.WorkloadRatio(assignedCount),
		WorkloadRatioAfter:   tech.WorkloadRatioAfter(assignedCount),
		ConfidenceMultiplier: 1.0,
	}

	c.DistanceKm, c.DistanceKnown = geo.Distance(d.CustomerLat, d.CustomerLon, tech.TechLat, tech.TechLon)
	c.SkillScore = rc.Skills.Score(d.RequiredSkill, tech.PrimarySkill)

	hour, day, weekend := predict.TimeFeatures(d.AppointmentStart)
	c.Success = rc.Success.PredictSuccess(predict.SuccessFeatures{
		DistanceKm:         c.DistanceKm,
		SkillMatchScore:    c.SkillScore,
		WorkloadRatio:      c.WorkloadRatioAfter,
		HourOfDay:          hour,
		DayOfWeek:          day,
		IsWeekend:          weekend,
		FirstTimeFix:       d.FirstTimeFix,
		ServiceTier:        d.ServiceTier,
		EquipmentInstalled: d.EquipmentInstalled,
	}, tech.TechnicianID, d.Priority)

	equip := 0.0
	if d.EquipmentInstalled != "" {
		equip = 1
	}
	c.DurationMin = rc.Duration.PredictDuration(predict.DurationFeatures{
		DistanceKm:         c.DistanceKm,
		SkillMatchScore:    c.SkillScore,
		HourOfDay:          hour,
		DayOfWeek:          day,
		IsWeekend:          weekend,
		FirstTimeFix:       d.FirstTimeFix,
		EquipmentPresent:   equip,
		CityJobFrequency:   rc.Duration.CityFrequency(d.City),
		ServiceTier:        d.ServiceTier,
		EquipmentInstalled: d.EquipmentInstalled,
	}, tech.TechnicianID, d.ExpectedDurationMin)

	c.OverrunMin = c.DurationMin - d.WindowMinutes()
	c.Score = rc.score(&c)
	c.Grade = DispatchGrade(c.DistanceKm, c.OverrunMin, c.Success)
	return c
}

// ScoreCandidates fans the candidate computation out over a bounded
// worker pool. Results keep the input order, so downstream selection
// is deterministic. counts must read from an immutable snapshot of
// the pre-commit assignment state.
func (rc *RunContext) ScoreCandidates(ctx context.Context, d *models.Dispatch, techs []models.Technician, counts func(string) int) ([]Candidate, error) {
	candidates := make([]Candidate, len(techs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(scoringWorkers)
	for i, tech := range techs {
		i, tech := i, tech
		assigned := counts(tech.TechnicianID)
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			candidates[i] = rc.BuildCandidate(d, tech, assigned)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return candidates, nil
}

// score applies the configured scoring strategy.
func (rc *RunContext) score(c *Candidate) float64 {
	base := c.Success
	if rc.Config.ScoringStrategy == ScoringWeighted {
		base = weightSuccess*c.Success +
			weightWorkload*workloadComponent(c.WorkloadRatioAfter) +
			weightDistance*distanceComponent(c.DistanceKm, rc.Config.MaxDistanceKm) +
			weightOverrun*overrunComponent(c.OverrunMin)
	}
	return base * c.ConfidenceMultiplier
}

// workloadComponent is 1 up to an 0.80 ratio, decays linearly to 0 at
// 1.00, and is a strong negative reject signal above that.
func workloadComponent(ratio float64) float64 {
	switch {
	case ratio <= 0.80:
		return 1
	case ratio <= 1.00:
		return (1.00 - ratio) / 0.20
	default:
		return overloadPenalty
	}
}

func distanceComponent(distanceKm, maxDistanceKm float64) float64 {
	if maxDistanceKm <= 0 {
		return 0
	}
	c := 1 - distanceKm/maxDistanceKm
	if c < 0 {
		return 0
	}
	return c
}

func overrunComponent(overrunMin float64) float64 {
	if overrunMin <= 0 {
		return 1
	}
	c := 1 - overrunMin/maxOverrunMin
	if c < 0 {
		return 0
	}
	return c
}

// DispatchGrade is the 0-100 diagnostic grade: distance (30),
// duration fit (30 with an early bonus up to 6 and a late penalty of
// a third of a point per minute), productive likelihood (25) and
// first-time-fix likelihood (15). Emitted for reporting; never used
// in selection.
func DispatchGrade(distanceKm, overrunMin, success float64) float64 {
	distanceScore := 30 * math.Exp(-0.02*distanceKm)

	durationScore := 30.0
	if overrunMin <= 0 {
		bonus := -overrunMin / 30 * 6
		if bonus > 6 {
			bonus = 6
		}
		durationScore += bonus
	} else {
		penalty := overrunMin * (30.0 / 90.0)
		if penalty > 30 {
			penalty = 30
		}
		durationScore -= penalty
	}

	grade := distanceScore + durationScore + 25*success + 15*success
	if grade < 0 {
		return 0
	}
	if grade > 100 {
		return 100
	}
	return grade
}

// SortCandidates orders candidates for selection: clean ones first,
// then by score descending, then by distance ascending; the
// technician id breaks remaining ties so the order is total.
func SortCandidates(candidates []Candidate) {
	sort.SliceStable(candidates, func(a, b int) bool {
		ca, cb := &candidates[a], &candidates[b]
		if ca.IsClean() != cb.IsClean() {
			return ca.IsClean()
		}
		if ca.Score != cb.Score {
			return ca.Score > cb.Score
		}
		if ca.DistanceKm != cb.DistanceKm {
			return ca.DistanceKm < cb.DistanceKm
		}
		return ca.Technician.TechnicianID < cb.Technician.TechnicianID
	})
}
