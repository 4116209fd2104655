package models

import (
	"strings"
	"time"
)

// Dispatch is one pending customer appointment. Rows are immutable
// inputs; the engine never mutates a Dispatch during a run.
type Dispatch struct {
	DispatchID        string   `json:"dispatch_id"`
	Priority          Priority `json:"priority"`
	RequiredSkill     string   `json:"required_skill"`
	ServiceTier       string   `json:"service_tier"`
	EquipmentInstalled string  `json:"equipment_installed"`

	// FirstTimeFix is the proportion (or indicator) that this kind of
	// job resolves on the first visit.
	FirstTimeFix float64 `json:"first_time_fix"`

	AppointmentStart time.Time `json:"appointment_start"`
	AppointmentEnd   time.Time `json:"appointment_end"`

	CustomerLat *float64 `json:"customer_lat"`
	CustomerLon *float64 `json:"customer_lon"`
	City        string   `json:"city"`
	State       string   `json:"state"`

	ExpectedDurationMin float64 `json:"expected_duration_min"`

	// AssignedTechnicianID is the pre-existing ("initial") assignment,
	// empty when the dispatch arrives unassigned.
	AssignedTechnicianID string `json:"assigned_technician_id,omitempty"`
}

// Validate checks a dispatch for structural problems
func (d *Dispatch) Validate() error {
	var errors ValidationErrors

	errors.AddIf(d.DispatchID == "", "dispatch_id", d.DispatchID, "dispatch_id cannot be empty")
	errors.AddIf(!d.Priority.IsValid(), "priority", d.Priority, "priority must be one of Critical, High, Normal, Low")
	errors.AddIf(d.AppointmentStart.IsZero(), "appointment_start", d.AppointmentStart, "appointment_start is required")
	errors.AddIf(d.AppointmentEnd.IsZero(), "appointment_end", d.AppointmentEnd, "appointment_end is required")
	errors.AddIf(!d.AppointmentStart.IsZero() && !d.AppointmentEnd.IsZero() && d.AppointmentEnd.Before(d.AppointmentStart),
		"appointment_end", d.AppointmentEnd, "appointment_end must not be before appointment_start")
	errors.AddIf(d.ExpectedDurationMin < 0, "expected_duration_min", d.ExpectedDurationMin, "expected duration cannot be negative")

	if errors.HasErrors() {
		return errors
	}
	return nil
}

// Date returns the scheduling date of the dispatch (the date of
// appointment_start, truncated to midnight in its location).
func (d *Dispatch) Date() time.Time {
	y, m, day := d.AppointmentStart.Date()
	return time.Date(y, m, day, 0, 0, 0, 0, d.AppointmentStart.Location())
}

// WindowMinutes returns the length of the appointment window in minutes
func (d *Dispatch) WindowMinutes() float64 {
	return d.AppointmentEnd.Sub(d.AppointmentStart).Minutes()
}

// HasCoordinates reports whether both customer coordinates are present
func (d *Dispatch) HasCoordinates() bool {
	return d.CustomerLat != nil && d.CustomerLon != nil
}

// HasInitialAssignment reports whether the dispatch arrived already
// assigned to a technician.
func (d *Dispatch) HasInitialAssignment() bool {
	return d.AssignedTechnicianID != ""
}

// CityMatches compares cities case-insensitively
func (d *Dispatch) CityMatches(city string) bool {
	return strings.EqualFold(strings.TrimSpace(d.City), strings.TrimSpace(city))
}
