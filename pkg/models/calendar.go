package models

import (
	"time"
)

// CalendarEntry is one technician-day availability window. Only rows
// with Available=true make a technician assignable on that date; a
// technician without such an entry is unassignable on the date, at any
// fallback level.
type CalendarEntry struct {
	TechnicianID   string    `json:"technician_id"`
	Date           time.Time `json:"date"`
	Available      bool      `json:"available"`
	ShiftStart     time.Time `json:"shift_start"`
	ShiftEnd       time.Time `json:"shift_end"`
	MaxAssignments int       `json:"max_assignments"`
}

// Validate checks a calendar entry for structural problems
func (c *CalendarEntry) Validate() error {
	var errors ValidationErrors

	errors.AddIf(c.TechnicianID == "", "technician_id", c.TechnicianID, "technician_id cannot be empty")
	errors.AddIf(c.Date.IsZero(), "date", c.Date, "date is required")
	errors.AddIf(c.Available && !c.ShiftStart.Before(c.ShiftEnd),
		"shift_start", c.ShiftStart, "shift_start must be before shift_end")

	if errors.HasErrors() {
		return errors
	}
	return nil
}

// ShiftMinutes returns the shift length in minutes
func (c *CalendarEntry) ShiftMinutes() float64 {
	return c.ShiftEnd.Sub(c.ShiftStart).Minutes()
}

// calendarKey identifies one technician-day
type calendarKey struct {
	technicianID string
	date         string
}

// Calendar indexes availability entries by technician and date.
// It is read-only after construction.
type Calendar struct {
	entries map[calendarKey]CalendarEntry
}

// NewCalendar builds an index over the given entries. When a
// technician-day appears more than once, an available entry wins over
// an unavailable one and later rows win over earlier ones.
func NewCalendar(entries []CalendarEntry) *Calendar {
	cal := &Calendar{entries: make(map[calendarKey]CalendarEntry, len(entries))}
	for _, e := range entries {
		key := calendarKey{e.TechnicianID, dateKey(e.Date)}
		if existing, ok := cal.entries[key]; ok && existing.Available && !e.Available {
			continue
		}
		cal.entries[key] = e
	}
	return cal
}

// Lookup returns the entry for a technician on a date, if any
func (c *Calendar) Lookup(technicianID string, date time.Time) (CalendarEntry, bool) {
	e, ok := c.entries[calendarKey{technicianID, dateKey(date)}]
	return e, ok
}

// IsAvailable reports whether the technician has an available entry on
// the dispatch date. This is a hard constraint and is never relaxed.
func (c *Calendar) IsAvailable(technicianID string, date time.Time) bool {
	e, ok := c.Lookup(technicianID, date)
	return ok && e.Available
}

// AvailableCount returns the number of technicians with an available
// entry on the given date.
func (c *Calendar) AvailableCount(date time.Time) int {
	key := dateKey(date)
	count := 0
	for k, e := range c.entries {
		if k.date == key && e.Available {
			count++
		}
	}
	return count
}

// Len returns the number of indexed entries
func (c *Calendar) Len() int {
	return len(c.entries)
}

func dateKey(t time.Time) string {
	return t.Format("2006-01-02")
}
