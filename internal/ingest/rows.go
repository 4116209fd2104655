// Package ingest loads the four input tables from SQLite, with a CSV
// fallback when the database is unreachable. Any structural problem in
// the data is an ingest error; the run never starts on bad input.
package ingest

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/faiberforce/dispatch-optimizer/pkg/models"
)

// timeLayouts are tried in order when parsing timestamps.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "t", "yes", "y":
		return true
	default:
		return false
	}
}

func parseFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

func parseOptFloat(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "null") || strings.EqualFold(s, "nan") {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// dispatchRow is the raw shape of one dispatches record; timestamps
// stay strings until conversion so SQLite TEXT and CSV share one path.
type dispatchRow struct {
	DispatchID           string   `gorm:"column:dispatch_id"`
	Priority             string   `gorm:"column:priority"`
	RequiredSkill        string   `gorm:"column:required_skill"`
	ServiceTier          string   `gorm:"column:service_tier"`
	EquipmentInstalled   string   `gorm:"column:equipment_installed"`
	FirstTimeFix         float64  `gorm:"column:first_time_fix"`
	AppointmentStart     string   `gorm:"column:appointment_start"`
	AppointmentEnd       string   `gorm:"column:appointment_end"`
	CustomerLat          *float64 `gorm:"column:customer_lat"`
	CustomerLon          *float64 `gorm:"column:customer_lon"`
	City                 string   `gorm:"column:city"`
	State                string   `gorm:"column:state"`
	ExpectedDuration     float64  `gorm:"column:expected_duration"`
	AssignedTechnicianID string   `gorm:"column:assigned_technician_id"`
}

func (r *dispatchRow) toModel() (models.Dispatch, error) {
	start, err := parseTime(r.AppointmentStart)
	if err != nil {
		return models.Dispatch{}, fmt.Errorf("dispatch %s: appointment_start: %w", r.DispatchID, err)
	}
	end, err := parseTime(r.AppointmentEnd)
	if err != nil {
		return models.Dispatch{}, fmt.Errorf("dispatch %s: appointment_end: %w", r.DispatchID, err)
	}

	d := models.Dispatch{
		DispatchID:           r.DispatchID,
		Priority:             models.Priority(strings.TrimSpace(r.Priority)),
		RequiredSkill:        strings.TrimSpace(r.RequiredSkill),
		ServiceTier:          strings.TrimSpace(r.ServiceTier),
		EquipmentInstalled:   strings.TrimSpace(r.EquipmentInstalled),
		FirstTimeFix:         r.FirstTimeFix,
		AppointmentStart:     start,
		AppointmentEnd:       end,
		CustomerLat:          r.CustomerLat,
		CustomerLon:          r.CustomerLon,
		City:                 strings.TrimSpace(r.City),
		State:                strings.TrimSpace(r.State),
		ExpectedDurationMin:  r.ExpectedDuration,
		AssignedTechnicianID: strings.TrimSpace(r.AssignedTechnicianID),
	}
	if err := d.Validate(); err != nil {
		return models.Dispatch{}, fmt.Errorf("dispatch %s: %w", r.DispatchID, err)
	}
	return d, nil
}

type technicianRow struct {
	TechnicianID       string   `gorm:"column:technician_id"`
	PrimarySkill       string   `gorm:"column:primary_skill"`
	TechLat            *float64 `gorm:"column:tech_lat"`
	TechLon            *float64 `gorm:"column:tech_lon"`
	City               string   `gorm:"column:city"`
	State              string   `gorm:"column:state"`
	WorkloadCapacity   int      `gorm:"column:workload_capacity"`
	CurrentAssignments int      `gorm:"column:current_assignments"`
}

func (r *technicianRow) toModel() (models.Technician, error) {
	t := models.Technician{
		TechnicianID:       r.TechnicianID,
		PrimarySkill:       strings.TrimSpace(r.PrimarySkill),
		TechLat:            r.TechLat,
		TechLon:            r.TechLon,
		City:               strings.TrimSpace(r.City),
		State:              strings.TrimSpace(r.State),
		WorkloadCapacity:   r.WorkloadCapacity,
		CurrentAssignments: r.CurrentAssignments,
	}
	if err := t.Validate(); err != nil {
		return models.Technician{}, fmt.Errorf("technician %s: %w", r.TechnicianID, err)
	}
	return t, nil
}

type calendarRow struct {
	TechnicianID   string `gorm:"column:technician_id"`
	Date           string `gorm:"column:date"`
	Available      string `gorm:"column:available"`
	ShiftStart     string `gorm:"column:shift_start"`
	ShiftEnd       string `gorm:"column:shift_end"`
	MaxAssignments int    `gorm:"column:max_assignments"`
}

func (r *calendarRow) toModel() (models.CalendarEntry, error) {
	date, err := parseTime(r.Date)
	if err != nil {
		return models.CalendarEntry{}, fmt.Errorf("calendar %s: date: %w", r.TechnicianID, err)
	}
	e := models.CalendarEntry{
		TechnicianID:   r.TechnicianID,
		Date:           date,
		Available:      parseBool(r.Available),
		MaxAssignments: r.MaxAssignments,
	}
	if e.Available {
		if e.ShiftStart, err = parseTime(r.ShiftStart); err != nil {
			return models.CalendarEntry{}, fmt.Errorf("calendar %s: shift_start: %w", r.TechnicianID, err)
		}
		if e.ShiftEnd, err = parseTime(r.ShiftEnd); err != nil {
			return models.CalendarEntry{}, fmt.Errorf("calendar %s: shift_end: %w", r.TechnicianID, err)
		}
	}
	if err := e.Validate(); err != nil {
		return models.CalendarEntry{}, fmt.Errorf("calendar %s: %w", r.TechnicianID, err)
	}
	return e, nil
}

type historyRow struct {
	DispatchID         string   `gorm:"column:dispatch_id"`
	TechnicianID       string   `gorm:"column:technician_id"`
	Priority           string   `gorm:"column:priority"`
	RequiredSkill      string   `gorm:"column:required_skill"`
	TechPrimarySkill   string   `gorm:"column:tech_primary_skill"`
	ServiceTier        string   `gorm:"column:service_tier"`
	EquipmentInstalled string   `gorm:"column:equipment_installed"`
	FirstTimeFix       float64  `gorm:"column:first_time_fix"`
	AppointmentStart   string   `gorm:"column:appointment_start"`
	AppointmentEnd     string   `gorm:"column:appointment_end"`
	City               string   `gorm:"column:city"`
	State              string   `gorm:"column:state"`
	DistanceKm         *float64 `gorm:"column:distance_km"`
	WorkloadRatio      *float64 `gorm:"column:workload_ratio"`
	Productive         string   `gorm:"column:productive"`
	ActualDurationMin  float64  `gorm:"column:actual_duration_min"`
}

func (r *historyRow) toModel() (models.HistoricalDispatch, error) {
	start, err := parseTime(r.AppointmentStart)
	if err != nil {
		return models.HistoricalDispatch{}, fmt.Errorf("history %s: appointment_start: %w", r.DispatchID, err)
	}
	end := start
	if strings.TrimSpace(r.AppointmentEnd) != "" {
		if end, err = parseTime(r.AppointmentEnd); err != nil {
			return models.HistoricalDispatch{}, fmt.Errorf("history %s: appointment_end: %w", r.DispatchID, err)
		}
	}

	h := models.HistoricalDispatch{
		DispatchID:         r.DispatchID,
		TechnicianID:       r.TechnicianID,
		Priority:           models.Priority(strings.TrimSpace(r.Priority)),
		RequiredSkill:      strings.TrimSpace(r.RequiredSkill),
		TechPrimarySkill:   strings.TrimSpace(r.TechPrimarySkill),
		ServiceTier:        strings.TrimSpace(r.ServiceTier),
		EquipmentInstalled: strings.TrimSpace(r.EquipmentInstalled),
		FirstTimeFix:       r.FirstTimeFix,
		AppointmentStart:   start,
		AppointmentEnd:     end,
		City:               strings.TrimSpace(r.City),
		State:              strings.TrimSpace(r.State),
		DistanceKm:         r.DistanceKm,
		WorkloadRatio:      r.WorkloadRatio,
		Productive:         parseBool(r.Productive),
		ActualDurationMin:  r.ActualDurationMin,
	}
	if err := h.Validate(); err != nil {
		return models.HistoricalDispatch{}, fmt.Errorf("history %s: %w", r.DispatchID, err)
	}
	return h, nil
}
