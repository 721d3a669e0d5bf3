// Package timezone provides timezone utilities for the scheduling agent.
//
// This package handles timezone parsing and user-facing time formatting to
// ensure consistent time handling across the application.
package timezone

import (
	"fmt"
	"strings"
	"time"
)

// Default location constants
var (
	// UTC is the coordinated universal time timezone
	UTC = time.UTC

	// Local is the local timezone
	Local = time.Local
)

// ParseTimezone parses an IANA timezone identifier (e.g., "America/New_York").
// If the timezone is invalid, returns UTC and an error.
func ParseTimezone(tz string) (*time.Location, error) {
	if tz == "" || tz == "UTC" {
		return UTC, nil
	}

	loc, err := time.LoadLocation(tz)
	if err != nil {
		return UTC, fmt.Errorf("invalid timezone %q: %w", tz, err)
	}

	return loc, nil
}

// MustParseTimezone parses a timezone or panics if invalid.
// Use this for constants that are known to be valid at compile time.
func MustParseTimezone(tz string) *time.Location {
	loc, err := ParseTimezone(tz)
	if err != nil {
		panic(err)
	}
	return loc
}

// IsValidTimezone checks if a timezone identifier is valid.
func IsValidTimezone(tz string) bool {
	if tz == "" || tz == "UTC" {
		return true
	}

	_, err := time.LoadLocation(tz)
	return err == nil
}

// FormatClock formats the clock portion of a time for display, without a
// leading zero: "2:00 PM", "9:30 AM".
func FormatClock(t time.Time) string {
	return strings.TrimPrefix(t.Format("3:04 PM"), "0")
}

// FormatDay formats the day portion of a time for display: "Tuesday, December 16".
func FormatDay(t time.Time) string {
	return t.Format("Monday, January 2")
}

// FormatSlotRange formats a slot's time range for spoken-friendly display.
// Rules:
//   - Same day: "Tuesday, December 16 at 2:00 PM - 3:00 PM"
//   - Otherwise: both endpoints carry their day.
func FormatSlotRange(start, end time.Time) string {
	if start.Year() == end.Year() && start.YearDay() == end.YearDay() {
		return fmt.Sprintf("%s at %s - %s", FormatDay(start), FormatClock(start), FormatClock(end))
	}
	return fmt.Sprintf("%s at %s - %s at %s",
		FormatDay(start), FormatClock(start), FormatDay(end), FormatClock(end))
}
