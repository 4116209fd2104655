package models

import "strings"

// Technician is a field worker with a primary skill, home location and
// a daily workload capacity. CurrentAssignments is the only field the
// engine mutates during a run, and only through the assignment store.
type Technician struct {
	TechnicianID string `json:"technician_id"`
	PrimarySkill string `json:"primary_skill"`

	TechLat *float64 `json:"tech_lat"`
	TechLon *float64 `json:"tech_lon"`
	City    string   `json:"city"`
	State   string   `json:"state"`

	WorkloadCapacity   int `json:"workload_capacity"`
	CurrentAssignments int `json:"current_assignments"`
}

// Validate checks a technician for structural problems
func (t *Technician) Validate() error {
	var errors ValidationErrors

	errors.AddIf(t.TechnicianID == "", "technician_id", t.TechnicianID, "technician_id cannot be empty")
	errors.AddIf(t.WorkloadCapacity < 1, "workload_capacity", t.WorkloadCapacity, "workload_capacity must be at least 1")
	errors.AddIf(t.CurrentAssignments < 0, "current_assignments", t.CurrentAssignments, "current_assignments cannot be negative")

	if errors.HasErrors() {
		return errors
	}
	return nil
}

// HasCoordinates reports whether both technician coordinates are present
func (t *Technician) HasCoordinates() bool {
	return t.TechLat != nil && t.TechLon != nil
}

// WorkloadRatio returns assignments/capacity given an assignment count
func (t *Technician) WorkloadRatio(assignments int) float64 {
	if t.WorkloadCapacity <= 0 {
		return 0
	}
	return float64(assignments) / float64(t.WorkloadCapacity)
}

// WorkloadRatioAfter returns the ratio if one more job is assigned
func (t *Technician) WorkloadRatioAfter(assignments int) float64 {
	return t.WorkloadRatio(assignments + 1)
}

// CityMatches compares cities case-insensitively
func (t *Technician) CityMatches(city string) bool {
	return strings.EqualFold(strings.TrimSpace(t.City), strings.TrimSpace(city))
}

// StateMatches compares states case-insensitively
func (t *Technician) StateMatches(state string) bool {
	return strings.EqualFold(strings.TrimSpace(t.State), strings.TrimSpace(state))
}
