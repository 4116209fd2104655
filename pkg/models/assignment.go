package models

import (
	"strings"
	"time"
)

// Assignment binds one dispatch to one technician, together with every
// number the engine computed while deciding. Rows are created during
// greedy assignment, may be replaced during post-optimization, and are
// frozen for export afterwards.
type Assignment struct {
	DispatchID   string `json:"dispatch_id"`
	TechnicianID string `json:"technician_id"`

	Start time.Time `json:"start"`
	End   time.Time `json:"end"`

	PredictedSuccess     float64 `json:"predicted_success"`
	PredictedDurationMin float64 `json:"predicted_duration_min"`
	DistanceKm           float64 `json:"distance_km"`
	SkillMatchScore      float64 `json:"skill_match_score"`
	WorkloadRatioAfter   float64 `json:"workload_ratio_after"`
	Score                float64 `json:"score"`

	FallbackLevel FallbackLevel `json:"fallback_level"`
	Warnings      []string      `json:"warnings,omitempty"`
}

// OverlapsWith reports whether two assignments collide in time, given
// an overlap buffer in minutes. Two slots overlap when
// a.start < b.end+buffer and a.end+buffer > b.start.
func (a *Assignment) OverlapsWith(other *Assignment, bufferMin float64) bool {
	buffer := time.Duration(bufferMin * float64(time.Minute))
	return a.Start.Before(other.End.Add(buffer)) && a.End.Add(buffer).After(other.Start)
}

// IsClean reports whether the assignment carries no warnings
func (a *Assignment) IsClean() bool {
	return len(a.Warnings) == 0
}

// HasWarning reports whether any warning contains the given substring
func (a *Assignment) HasWarning(substr string) bool {
	for _, w := range a.Warnings {
		if strings.Contains(strings.ToLower(w), strings.ToLower(substr)) {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the assignment
func (a *Assignment) Clone() *Assignment {
	clone := *a
	clone.Warnings = append([]string(nil), a.Warnings...)
	return &clone
}

// Unassigned records a dispatch the ladder could not place, with the
// classified reason.
type Unassigned struct {
	DispatchID string           `json:"dispatch_id"`
	Reason     UnassignedReason `json:"reason"`
	Detail     string           `json:"detail,omitempty"`
}
