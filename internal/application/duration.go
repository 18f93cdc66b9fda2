package application

import (
	"fmt"
	"time"
)

// DurationClass is the closed set of allowed reservation lengths. Each class
// carries its own initial length and its own one-shot extension rule.
type DurationClass string

const (
	// OneHour is a same-day reading slot.
	OneHour DurationClass = "1_hour"
	// OneWeek lends a copy for seven days.
	OneWeek DurationClass = "1_week"
	// OneMonth lends a copy for thirty days.
	OneMonth DurationClass = "1_month"
	// ThreeMonths lends a copy for ninety days.
	ThreeMonths DurationClass = "3_months"
	// SixMonths lends a copy for one hundred eighty days.
	SixMonths DurationClass = "6_months"
)

// ParseDurationClass validates a caller-supplied duration code.
func ParseDurationClass(value string) (DurationClass, error) {
	class := DurationClass(value)
	if !class.Valid() {
		return "", fmt.Errorf("unknown duration class %q", value)
	}
	return class, nil
}

// Valid reports whether the class is one of the closed variants.
func (d DurationClass) Valid() bool {
	switch d {
	case OneHour, OneWeek, OneMonth, ThreeMonths, SixMonths:
		return true
	}
	return false
}

// Length returns the initial reservation length for the class.
func (d DurationClass) Length() time.Duration {
	switch d {
	case OneHour:
		return time.Hour
	case OneWeek:
		return 7 * 24 * time.Hour
	case OneMonth:
		return 30 * 24 * time.Hour
	case ThreeMonths:
		return 90 * 24 * time.Hour
	case SixMonths:
		return 180 * 24 * time.Hour
	}
	return 0
}

// Extension returns the one-shot extension length. It is a function of the
// original class, not of the time remaining.
func (d DurationClass) Extension() time.Duration {
	switch d {
	case OneHour:
		return 15 * time.Minute
	case OneWeek:
		return 7 * 24 * time.Hour
	case OneMonth:
		return 14 * 24 * time.Hour
	case ThreeMonths:
		return 30 * 24 * time.Hour
	case SixMonths:
		return 60 * 24 * time.Hour
	}
	return 0
}

// ExtensionLabel returns the human wording for the extension length, rendered
// by the front-end.
func (d DurationClass) ExtensionLabel() string {
	switch d {
	case OneHour:
		return "15 minutes"
	case OneWeek:
		return "1 week"
	case OneMonth:
		return "2 weeks"
	case ThreeMonths:
		return "1 month"
	case SixMonths:
		return "2 months"
	}
	return ""
}
