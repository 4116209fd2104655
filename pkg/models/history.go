package models

import "time"

// HistoricalDispatch is a past dispatch with its realized outcome.
// History rows are used only during training and are immutable within
// a run.
type HistoricalDispatch struct {
	DispatchID         string    `json:"dispatch_id"`
	TechnicianID       string    `json:"technician_id"`
	Priority           Priority  `json:"priority"`
	RequiredSkill      string    `json:"required_skill"`
	TechPrimarySkill   string    `json:"tech_primary_skill"`
	ServiceTier        string    `json:"service_tier"`
	EquipmentInstalled string    `json:"equipment_installed"`
	FirstTimeFix       float64   `json:"first_time_fix"`
	AppointmentStart   time.Time `json:"appointment_start"`
	AppointmentEnd     time.Time `json:"appointment_end"`
	City               string    `json:"city"`
	State              string    `json:"state"`
	DistanceKm         *float64  `json:"distance_km"`
	WorkloadRatio      *float64  `json:"workload_ratio"`

	// Productive is the realized outcome: true when the appointment
	// completed successfully.
	Productive        bool    `json:"productive"`
	ActualDurationMin float64 `json:"actual_duration_min"`
}

// Validate checks a history row for structural problems
func (h *HistoricalDispatch) Validate() error {
	var errors ValidationErrors

	errors.AddIf(h.DispatchID == "", "dispatch_id", h.DispatchID, "dispatch_id cannot be empty")
	errors.AddIf(h.ActualDurationMin < 0, "actual_duration_min", h.ActualDurationMin, "actual duration cannot be negative")

	if errors.HasErrors() {
		return errors
	}
	return nil
}

// IsSkillMatch reports whether the dispatch was served by a technician
// whose primary skill matched the requirement.
func (h *HistoricalDispatch) IsSkillMatch() bool {
	return h.RequiredSkill != "" && h.RequiredSkill == h.TechPrimarySkill
}
