package decision

import (
	"fmt"
	"math"

	"github.com/faiberforce/dispatch-optimizer/pkg/geo"
	"github.com/faiberforce/dispatch-optimizer/pkg/models"
)

// absoluteCapacityCeiling is never exceeded at any fallback level: a
// technician's final workload ratio stays at or below 1.20.
const absoluteCapacityCeiling = 1.20

// overCapacityLevelRatio is the workload allowance opened at the
// over-capacity fallback rung.
const overCapacityLevelRatio = 1.10

// LevelSettings is the concrete filter configuration for one rung of
// the fallback ladder. Calendar availability and the distance cap are
// hard and identical at every rung.
type LevelSettings struct {
	Level            models.FallbackLevel
	OverlapBufferMin float64
	MaxConcurrent    int
	AllowOvertime    bool
	ApplyMinSuccess  bool
	Forced           bool
}

// LevelSettings derives the rung configuration from the run config.
func (rc *RunContext) LevelSettings(level models.FallbackLevel) LevelSettings {
	s := LevelSettings{
		Level:            level,
		OverlapBufferMin: rc.Config.OverlapBufferMin,
		MaxConcurrent:    2,
		ApplyMinSuccess:  level < models.FallbackForced,
	}
	if level >= models.FallbackShortBuffer {
		s.OverlapBufferMin = 15
	}
	if level >= models.FallbackZeroBuffer {
		s.OverlapBufferMin = 0
	}
	if level >= models.FallbackConcurrent {
		s.MaxConcurrent = 3
	}
	if level >= models.FallbackOvertime {
		s.AllowOvertime = true
	}
	if level >= models.FallbackForced {
		s.Forced = true
	}
	return s
}

// FilterDiagnostics counts why technicians fell out of the candidate
// pool; the dominant count classifies an unassignable dispatch.
type FilterDiagnostics struct {
	Total        int
	NoCalendar   int
	DistanceCut  int
	CityMismatch int
	OverCapacity int
	SkillGate    int

	CascadeLevel      string
	CascadeMultiplier float64
}

// Reason classifies the unassigned cause from the rejection counts.
// Calendar exhaustion dominates; otherwise the largest cut wins.
func (d FilterDiagnostics) Reason() models.UnassignedReason {
	if d.Total == 0 || d.NoCalendar == d.Total {
		return models.ReasonNoCalendar
	}
	reason := models.ReasonNoCityTech
	best := d.CityMismatch
	if d.DistanceCut > best {
		best = d.DistanceCut
		reason = models.ReasonDistanceFilter
	}
	if d.OverCapacity > best {
		best = d.OverCapacity
		reason = models.ReasonAllOvercap
	}
	if d.SkillGate > best {
		reason = models.ReasonNoCityTech
	}
	return reason
}

// EligibleTechnicians applies the hard and configurable filters for a
// dispatch at one ladder rung. counts returns the technician's
// current assignment total from the caller's snapshot.
func (rc *RunContext) EligibleTechnicians(d *models.Dispatch, techs []models.Technician, counts func(string) int, settings LevelSettings) ([]models.Technician, FilterDiagnostics) {
	diags := FilterDiagnostics{Total: len(techs), CascadeMultiplier: 1.0}

	pool := make([]models.Technician, 0, len(techs))
	for _, tech := range techs {
		// Hard: an available calendar entry on the dispatch date.
		if !rc.Calendar.IsAvailable(tech.TechnicianID, d.Date()) {
			diags.NoCalendar++
			continue
		}

		// Hard: reachable within the distance cap. An unknown
		// distance cannot prove reachability, so it fails too.
		dist, known := geo.Distance(d.CustomerLat, d.CustomerLon, tech.TechLat, tech.TechLon)
		if !known || dist > rc.Config.MaxDistanceKm {
			diags.DistanceCut++
			continue
		}

		if !rc.cityAllowed(d, &tech, settings.Forced) {
			diags.CityMismatch++
			continue
		}

		after := tech.WorkloadRatioAfter(counts(tech.TechnicianID))
		if !capacityAllowed(d.Priority, after, settings.Level, rc.Policy.Thresholds.MaxCapacity) {
			diags.OverCapacity++
			continue
		}

		pool = append(pool, tech)
	}

	if rc.Config.UseSkillCascade && len(pool) > 0 {
		var levelName string
		var multiplier float64
		pool, levelName, multiplier = rc.skillCascade(d.RequiredSkill, pool)
		diags.SkillGate = diags.Total - diags.NoCalendar - diags.DistanceCut -
			diags.CityMismatch - diags.OverCapacity - len(pool)
		diags.CascadeLevel = levelName
		diags.CascadeMultiplier = multiplier
	}

	return pool, diags
}

// cityAllowed applies the configurable geography gate. Strict city
// equality by default; state-level when the learned cross-city flag
// is set or at the forced rung. A dispatch without a city falls back
// to state matching.
func (rc *RunContext) cityAllowed(d *models.Dispatch, tech *models.Technician, forced bool) bool {
	if d.City == "" || rc.Config.AllowCrossCity || forced {
		if d.State == "" {
			return true
		}
		return tech.StateMatches(d.State)
	}
	return tech.CityMatches(d.City)
}

// capacityAllowed applies the workload gate for one ladder rung.
// Below the over-capacity rung the policy cap holds and only
// Critical/High work may push a technician past 100%; the 1.20
// ceiling is absolute everywhere.
func capacityAllowed(priority models.Priority, after float64, level models.FallbackLevel, policyCap float64) bool {
	const eps = 1e-9
	if after > absoluteCapacityCeiling+eps {
		return false
	}
	if after <= 1.0+eps {
		if level < models.FallbackOverCapacity && after > policyCap+eps {
			return false
		}
		return true
	}

	switch {
	case level >= models.FallbackForced:
		return true
	case level >= models.FallbackOverCapacity:
		return after <= math.Max(policyCap, overCapacityLevelRatio)+eps
	case priority == models.PriorityCritical || priority == models.PriorityHigh:
		return after <= policyCap+eps
	default:
		return false
	}
}

// CapacityWarnings returns the warnings an accepted over-100%
// assignment must carry.
func CapacityWarnings(after float64, level models.FallbackLevel) []string {
	if after <= 1.0 {
		return nil
	}
	w := fmt.Sprintf("workload at %.0f%% of capacity", after*100)
	if level >= models.FallbackOverCapacity && after <= overCapacityLevelRatio+1e-9 {
		w = fmt.Sprintf("allowing %.0f%% workload at fallback level %d", after*100, int(level))
	}
	return []string{w}
}

// skillCascade walks exact -> same-category -> related-category ->
// any, returning the first non-empty level with its confidence
// multiplier.
func (rc *RunContext) skillCascade(required string, pool []models.Technician) ([]models.Technician, string, float64) {
	var exact []models.Technician
	for _, t := range pool {
		if t.PrimarySkill == required {
			exact = append(exact, t)
		}
	}
	if len(exact) > 0 {
		return exact, "exact", cascadeExactMultiplier
	}

	categoryOf := make(map[string]string)
	for category, skillList := range rc.Config.SkillCategories {
		for _, s := range skillList {
			categoryOf[s] = category
		}
	}
	requiredCategory := categoryOf[required]

	if requiredCategory != "" {
		var sameCategory []models.Technician
		for _, t := range pool {
			if categoryOf[t.PrimarySkill] == requiredCategory {
				sameCategory = append(sameCategory, t)
			}
		}
		if len(sameCategory) > 0 {
			return sameCategory, "category", cascadeCategoryMultiplier
		}

		related := make(map[string]bool)
		for _, c := range rc.Config.RelatedCategories[requiredCategory] {
			related[c] = true
		}
		var relatedPool []models.Technician
		for _, t := range pool {
			if related[categoryOf[t.PrimarySkill]] {
				relatedPool = append(relatedPool, t)
			}
		}
		if len(relatedPool) > 0 {
			return relatedPool, "related", cascadeRelatedMultiplier
		}
	}

	return pool, "any", cascadeAnyMultiplier
}
