// Package predict holds the trainable predictive layer: a success
// classifier, a duration regressor, and the rule-based probability
// formula used for blending and as the last-resort fallback.
package predict

import (
	"sort"
	"strings"
	"time"

	"github.com/faiberforce/dispatch-optimizer/pkg/models"
)

// defaultCapacity is assumed when estimating historical workload
// ratios; history rows do not carry the technician's capacity.
const defaultCapacity = 8.0

// SuccessFeatures is the feature bundle for one candidate
// (dispatch, technician) pair fed to the success classifier.
type SuccessFeatures struct {
	DistanceKm      float64
	SkillMatchScore float64
	WorkloadRatio   float64
	HourOfDay       float64
	DayOfWeek       float64
	IsWeekend       float64
	FirstTimeFix    float64

	ServiceTier        string
	EquipmentInstalled string
}

func (f SuccessFeatures) numeric() []float64 {
	return []float64{
		f.DistanceKm,
		f.SkillMatchScore,
		f.WorkloadRatio,
		f.HourOfDay,
		f.DayOfWeek,
		f.IsWeekend,
		f.FirstTimeFix,
	}
}

func (f SuccessFeatures) categorical() []string {
	return []string{f.ServiceTier, f.EquipmentInstalled}
}

// DurationFeatures is the feature bundle for the duration regressor.
// Interaction terms and history-derived aggregates are filled in by
// the model, not by callers.
type DurationFeatures struct {
	DistanceKm         float64
	SkillMatchScore    float64
	HourOfDay          float64
	DayOfWeek          float64
	IsWeekend          float64
	FirstTimeFix       float64
	EquipmentPresent   float64 // 1 when equipment_installed is non-empty
	TechMeanDuration   float64
	CityJobFrequency   float64

	ServiceTier        string
	EquipmentInstalled string
}

func (f DurationFeatures) numeric() []float64 {
	return []float64{
		f.DistanceKm,
		f.SkillMatchScore,
		f.HourOfDay,
		f.DayOfWeek,
		f.IsWeekend,
		f.FirstTimeFix,
		f.DistanceKm * f.EquipmentPresent,
		f.DistanceKm * f.FirstTimeFix,
		f.TechMeanDuration,
		f.CityJobFrequency,
	}
}

func (f DurationFeatures) categorical() []string {
	return []string{f.ServiceTier, f.EquipmentInstalled}
}

// TimeFeatures extracts hour/day/weekend flags from an appointment
// start time.
func TimeFeatures(t time.Time) (hour, day, weekend float64) {
	hour = float64(t.Hour())
	day = float64(int(t.Weekday()))
	if t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		weekend = 1
	}
	return hour, day, weekend
}

// TechProfile is a technician's aggregated historical performance.
type TechProfile struct {
	TechnicianID     string  `json:"technician_id"`
	SuccessRate      float64 `json:"success_rate"`
	TotalJobs        int     `json:"total_jobs"`
	MeanDurationMin  float64 `json:"mean_duration_min"`
	MeanWorkload     float64 `json:"mean_workload"`
	PerformanceScore float64 `json:"performance_score"`
}

// BuildTechProfiles aggregates history per technician. The
// performance score weighs success rate (0.6), experience capped at
// 50 jobs (0.2) and headroom against mean workload (0.2).
func BuildTechProfiles(history []models.HistoricalDispatch) map[string]TechProfile {
	type agg struct {
		jobs        int
		productive  int
		durationSum float64
		workloadSum float64
		workloadN   int
	}
	byTech := make(map[string]*agg)
	for i := range history {
		h := &history[i]
		if h.TechnicianID == "" {
			continue
		}
		a, ok := byTech[h.TechnicianID]
		if !ok {
			a = &agg{}
			byTech[h.TechnicianID] = a
		}
		a.jobs++
		if h.Productive {
			a.productive++
		}
		a.durationSum += h.ActualDurationMin
		if h.WorkloadRatio != nil {
			a.workloadSum += *h.WorkloadRatio
			a.workloadN++
		}
	}

	profiles := make(map[string]TechProfile, len(byTech))
	for id, a := range byTech {
		successRate := float64(a.productive) / float64(a.jobs)
		meanWorkload := 0.5
		if a.workloadN > 0 {
			meanWorkload = a.workloadSum / float64(a.workloadN)
		}
		experience := float64(a.jobs) / 50.0
		if experience > 1 {
			experience = 1
		}
		headroom := 1 - meanWorkload
		if headroom < 0 {
			headroom = 0
		}
		profiles[id] = TechProfile{
			TechnicianID:     id,
			SuccessRate:      successRate,
			TotalJobs:        a.jobs,
			MeanDurationMin:  a.durationSum / float64(a.jobs),
			MeanWorkload:     meanWorkload,
			PerformanceScore: 0.6*successRate + 0.2*experience + 0.2*headroom,
		}
	}
	return profiles
}

// estimateWorkloadRatios fills a workload-ratio feature for every
// history row that lacks one, using a chronological cumulative count
// per technician divided by the default capacity. The second return
// value is false when history timestamps are not monotone per
// technician, which biases the estimate; callers log a warning.
func estimateWorkloadRatios(history []models.HistoricalDispatch) ([]float64, bool) {
	order := make([]int, len(history))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ha, hb := &history[order[a]], &history[order[b]]
		if ha.TechnicianID != hb.TechnicianID {
			return ha.TechnicianID < hb.TechnicianID
		}
		return ha.AppointmentStart.Before(hb.AppointmentStart)
	})

	ratios := make([]float64, len(history))
	counts := make(map[string]int)
	for _, i := range order {
		h := &history[i]
		if h.WorkloadRatio != nil {
			ratios[i] = clipRange(*h.WorkloadRatio, 0, 1)
		} else {
			raw := float64(counts[h.TechnicianID]) / defaultCapacity
			if raw > 2 {
				raw = 2
			}
			ratios[i] = clipRange(raw, 0, 1)
		}
		counts[h.TechnicianID]++
	}

	monotone := true
	lastPerTech := make(map[string]time.Time)
	for i := range history {
		h := &history[i]
		if last, ok := lastPerTech[h.TechnicianID]; ok && h.AppointmentStart.Before(last) {
			monotone = false
		}
		lastPerTech[h.TechnicianID] = h.AppointmentStart
	}
	return ratios, monotone
}

// expandingMeanDurations computes, for each history row, the mean of
// the technician's strictly earlier durations. Rows with no earlier
// data get the global mean of everything seen before them; the first
// rows fall back to the overall mean. The per-technician final means
// are also returned for inference-time lookup.
func expandingMeanDurations(history []models.HistoricalDispatch) (perRow []float64, perTech map[string]float64, global float64) {
	perRow = make([]float64, len(history))
	perTech = make(map[string]float64)
	if len(history) == 0 {
		return perRow, perTech, 0
	}

	total := 0.0
	for i := range history {
		total += history[i].ActualDurationMin
	}
	global = total / float64(len(history))

	order := make([]int, len(history))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return history[order[a]].AppointmentStart.Before(history[order[b]].AppointmentStart)
	})

	type runSum struct {
		sum float64
		n   int
	}
	byTech := make(map[string]*runSum)
	var allSum float64
	var allN int

	for _, i := range order {
		h := &history[i]
		rs, ok := byTech[h.TechnicianID]
		if ok && rs.n > 0 {
			perRow[i] = rs.sum / float64(rs.n)
		} else if allN > 0 {
			perRow[i] = allSum / float64(allN)
		} else {
			perRow[i] = global
		}

		if !ok {
			rs = &runSum{}
			byTech[h.TechnicianID] = rs
		}
		rs.sum += h.ActualDurationMin
		rs.n++
		allSum += h.ActualDurationMin
		allN++
	}

	for id, rs := range byTech {
		perTech[id] = rs.sum / float64(rs.n)
	}
	return perRow, perTech, global
}

// cityJobFrequencies counts history rows per (lowercased) city.
func cityJobFrequencies(history []models.HistoricalDispatch) map[string]float64 {
	freq := make(map[string]float64)
	for i := range history {
		city := normalizeCity(history[i].City)
		if city != "" {
			freq[city]++
		}
	}
	return freq
}

func normalizeCity(city string) string {
	return strings.ToLower(strings.TrimSpace(city))
}

func clipRange(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
