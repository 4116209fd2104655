package models

import (
	"fmt"
)

// Priority represents the urgency class of a dispatch
type Priority string

const (
	PriorityCritical Priority = "Critical"
	PriorityHigh     Priority = "High"
	PriorityNormal   Priority = "Normal"
	PriorityLow      Priority = "Low"
)

// ValidPriorities returns all valid priorities in rank order
func ValidPriorities() []Priority {
	return []Priority{PriorityCritical, PriorityHigh, PriorityNormal, PriorityLow}
}

// IsValid checks if a Priority is valid
func (p Priority) IsValid() bool {
	for _, valid := range ValidPriorities() {
		if p == valid {
			return true
		}
	}
	return false
}

// Rank returns the sort rank of a priority (Critical=0 ... Low=3).
// Unknown priorities sort after Low.
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 0
	case PriorityHigh:
		return 1
	case PriorityNormal:
		return 2
	case PriorityLow:
		return 3
	}
	return 4
}

// String returns the string representation of Priority
func (p Priority) String() string {
	return string(p)
}

// UnassignedReason classifies why a dispatch could not be assigned
// even at the highest fallback level.
type UnassignedReason string

const (
	ReasonNoCalendar     UnassignedReason = "no_calendar"
	ReasonNoCityTech     UnassignedReason = "no_city_tech"
	ReasonBelowThreshold UnassignedReason = "below_threshold"
	ReasonAllOvercap     UnassignedReason = "all_overcap"
	ReasonDistanceFilter UnassignedReason = "distance_filter"
)

// String returns the string representation of UnassignedReason
func (r UnassignedReason) String() string {
	return string(r)
}

// FallbackLevel is the index in the progressive relaxation ladder at
// which an assignment was made (0 = strict, 6 = forced).
type FallbackLevel int

const (
	FallbackStrict       FallbackLevel = 0 // 30-min overlap buffer, all soft constraints on
	FallbackShortBuffer  FallbackLevel = 1 // 15-min overlap buffer
	FallbackZeroBuffer   FallbackLevel = 2 // no overlap buffer
	FallbackConcurrent   FallbackLevel = 3 // up to 3 concurrent appointments
	FallbackOvertime     FallbackLevel = 4 // allow end-of-shift overtime
	FallbackOverCapacity FallbackLevel = 5 // allow workload ratio up to 1.10
	FallbackForced       FallbackLevel = 6 // all soft constraints relaxed
)

// MaxFallbackLevel is the last rung of the ladder.
const MaxFallbackLevel = FallbackForced

// IsValid checks if a FallbackLevel is valid
func (fl FallbackLevel) IsValid() bool {
	return fl >= FallbackStrict && fl <= FallbackForced
}

// String returns a short label for the fallback level
func (fl FallbackLevel) String() string {
	switch fl {
	case FallbackStrict:
		return "L0-strict"
	case FallbackShortBuffer:
		return "L1-short-buffer"
	case FallbackZeroBuffer:
		return "L2-zero-buffer"
	case FallbackConcurrent:
		return "L3-concurrent"
	case FallbackOvertime:
		return "L4-overtime"
	case FallbackOverCapacity:
		return "L5-overcapacity"
	case FallbackForced:
		return "L6-forced"
	}
	return fmt.Sprintf("L%d", int(fl))
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (ve ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s' (value: %v): %s",
		ve.Field, ve.Value, ve.Message)
}

// ValidationErrors represents multiple validation errors
type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}
	if len(ve) == 1 {
		return ve[0].Error()
	}
	return fmt.Sprintf("%s (and %d more errors)", ve[0].Error(), len(ve)-1)
}

// HasErrors returns true if there are validation errors
func (ve ValidationErrors) HasErrors() bool {
	return len(ve) > 0
}

// Add adds a validation error
func (ve *ValidationErrors) Add(field string, value interface{}, message string) {
	*ve = append(*ve, ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	})
}

// AddIf adds a validation error if the condition is true
func (ve *ValidationErrors) AddIf(condition bool, field string, value interface{}, message string) {
	if condition {
		ve.Add(field, value, message)
	}
}
