// Package calendar defines the calendar backend contract consumed by the
// scheduling core, plus an ICS-file backed implementation for local use and a
// mock for tests. Authentication and network transport belong to the concrete
// backend, not to this contract; a failing backend must surface as "no data",
// never as fabricated intervals.
package calendar

import (
	"context"
	"time"
)

// Interval is a half-open busy time range [Start, End) on the calendar.
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Overlaps reports whether the interval intersects [start, end).
func (i Interval) Overlaps(start, end time.Time) bool {
	return i.Start.Before(end) && i.End.After(start)
}

// Event is an existing calendar event.
type Event struct {
	UID         string    `json:"uid"`
	Summary     string    `json:"summary"`
	Description string    `json:"description"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Attendees   []string  `json:"attendees"`
}

// EventInput describes a new event to create.
type EventInput struct {
	Title       string
	Description string
	Start       time.Time
	End         time.Time
	Attendees   []string
}

// Directory is the read-only event lookup contract used by the temporal
// expression parser to resolve event-anchored expressions ("before my
// flight").
type Directory interface {
	// FindEventByName returns the first event within [start, end) whose name
	// loosely matches query, or nil when nothing matches.
	FindEventByName(ctx context.Context, query string, start, end time.Time) (*Event, error)
}

// Service is the full calendar backend contract.
type Service interface {
	Directory

	// BusyIntervals returns busy ranges intersecting [start, end), sorted by
	// start. Implementations return an empty slice, never synthetic data, on
	// backend failure.
	BusyIntervals(ctx context.Context, start, end time.Time) ([]Interval, error)

	// CreateEvent creates an event and returns its UID, or an error when the
	// backend rejected it.
	CreateEvent(ctx context.Context, input EventInput) (string, error)
}
