package calendar

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/lithammer/shortuuid/v4"
	"github.com/teambition/rrule-go"
)

const maxOccurrencesPerEvent = 1000

// parsedEvent is the normalized representation of a VEVENT.
type parsedEvent struct {
	uid         string
	summary     string
	description string
	start       time.Time
	end         time.Time
	allDay      bool
	rawRRule    string
	exDates     []time.Time
}

// ICSBackend is a calendar Service backed by an ICS feed. The feed provides
// the existing commitments; events created through the backend are held in
// memory alongside them. Recurring events are expanded on demand.
type ICSBackend struct {
	loc    *time.Location
	events []parsedEvent

	mu      sync.RWMutex
	created []Event
}

// NewICSBackend reads and parses an ICS file.
func NewICSBackend(path string, loc *time.Location) (*ICSBackend, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read ics feed %s: %w", path, err)
	}
	return NewICSBackendFromBytes(body, loc)
}

// NewICSBackendFromBytes parses an ICS payload.
func NewICSBackendFromBytes(body []byte, loc *time.Location) (*ICSBackend, error) {
	if loc == nil {
		loc = time.UTC
	}
	if len(body) == 0 {
		return &ICSBackend{loc: loc}, nil
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ics feed: %w", err)
	}

	backend := &ICSBackend{loc: loc}
	for _, ve := range cal.Events() {
		ev, perr := parseVEvent(ve)
		if perr != nil {
			// Skip this event but keep parsing the rest of the feed.
			slog.Warn("skipping unparsable vevent", "error", perr)
			continue
		}
		backend.events = append(backend.events, ev)
	}
	return backend, nil
}

func parseVEvent(ve *ical.VEvent) (parsedEvent, error) {
	var out parsedEvent

	uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || uidProp.Value == "" {
		return out, fmt.Errorf("missing UID")
	}
	out.uid = uidProp.Value

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.summary = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		out.description = p.Value
	}

	start, err := ve.GetStartAt()
	if err != nil {
		return out, fmt.Errorf("missing DTSTART: %w", err)
	}
	end, err := ve.GetEndAt()
	if err != nil {
		end = start.Add(time.Hour)
	}
	out.start = start
	out.end = end

	if dtStartProp := ve.GetProperty(ical.ComponentPropertyDtStart); dtStartProp != nil {
		if params := dtStartProp.ICalParameters; params != nil {
			if vs, ok := params["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
				out.allDay = true
			}
		}
		if !strings.Contains(dtStartProp.Value, "T") {
			out.allDay = true
		}
	}

	if rruleProp := ve.GetProperty(ical.ComponentPropertyRrule); rruleProp != nil {
		out.rawRRule = rruleProp.Value
	}

	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if t, err := parseICSTime(part); err == nil {
				out.exDates = append(out.exDates, t)
			}
		}
	}

	return out, nil
}

// parseICSTime parses a basic ICS date/date-time string.
func parseICSTime(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	switch {
	case v == "":
		return time.Time{}, fmt.Errorf("empty time value")
	case strings.HasSuffix(v, "Z"):
		return time.Parse("20060102T150405Z", v)
	case strings.Contains(v, "T"):
		return time.Parse("20060102T150405", v)
	default:
		return time.Parse("20060102", v)
	}
}

// BusyIntervals returns busy ranges intersecting [start, end), sorted by start.
func (b *ICSBackend) BusyIntervals(_ context.Context, start, end time.Time) ([]Interval, error) {
	intervals := make([]Interval, 0)

	for _, ev := range b.events {
		for _, occ := range b.expand(ev, start, end) {
			intervals = append(intervals, occ)
		}
	}

	b.mu.RLock()
	for _, ev := range b.created {
		if ev.Start.Before(end) && ev.End.After(start) {
			intervals = append(intervals, Interval{Start: ev.Start, End: ev.End})
		}
	}
	b.mu.RUnlock()

	sort.Slice(intervals, func(i, j int) bool {
		return intervals[i].Start.Before(intervals[j].Start)
	})
	return intervals, nil
}

// expand resolves one parsed event into its occurrences within [start, end).
func (b *ICSBackend) expand(ev parsedEvent, start, end time.Time) []Interval {
	duration := ev.end.Sub(ev.start)
	if ev.allDay {
		duration = 24 * time.Hour
	}

	if ev.rawRRule == "" {
		if ev.start.Before(end) && ev.end.After(start) {
			return []Interval{{Start: ev.start.In(b.loc), End: ev.end.In(b.loc)}}
		}
		return nil
	}

	r, err := rrule.StrToRRule(ev.rawRRule)
	if err != nil {
		slog.Warn("failed to parse RRULE", "uid", ev.uid, "rrule", ev.rawRRule, "error", err)
		return nil
	}
	r.DTStart(ev.start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.exDates {
		set.ExDate(ex.In(ev.start.Location()))
	}

	occTimes := set.Between(start.In(ev.start.Location()), end.In(ev.start.Location()), true)
	if len(occTimes) > maxOccurrencesPerEvent {
		occTimes = occTimes[:maxOccurrencesPerEvent]
	}

	out := make([]Interval, 0, len(occTimes))
	for _, occStart := range occTimes {
		out = append(out, Interval{
			Start: occStart.In(b.loc),
			End:   occStart.Add(duration).In(b.loc),
		})
	}
	return out
}

// CreateEvent records a new event in memory and returns its UID.
func (b *ICSBackend) CreateEvent(_ context.Context, input EventInput) (string, error) {
	if input.Title == "" {
		return "", fmt.Errorf("event title is required")
	}
	if !input.End.After(input.Start) {
		return "", fmt.Errorf("event end must be after start")
	}

	uid := shortuuid.New()
	b.mu.Lock()
	b.created = append(b.created, Event{
		UID:         uid,
		Summary:     input.Title,
		Description: input.Description,
		Start:       input.Start,
		End:         input.End,
		Attendees:   input.Attendees,
	})
	b.mu.Unlock()

	slog.Info("created calendar event", "uid", uid, "title", input.Title, "start", input.Start)
	return uid, nil
}

// FindEventByName returns the earliest event in [start, end) whose summary
// loosely matches query: case-insensitive substring first, then token overlap.
func (b *ICSBackend) FindEventByName(_ context.Context, query string, start, end time.Time) (*Event, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil, nil
	}

	var best *Event
	consider := func(ev Event) {
		if ev.Start.Before(start) || !ev.Start.Before(end) {
			return
		}
		if !nameMatches(strings.ToLower(ev.Summary), query) {
			return
		}
		if best == nil || ev.Start.Before(best.Start) {
			copied := ev
			best = &copied
		}
	}

	for _, ev := range b.events {
		for _, occ := range b.expand(ev, start, end) {
			consider(Event{
				UID:         ev.uid,
				Summary:     ev.summary,
				Description: ev.description,
				Start:       occ.Start,
				End:         occ.End,
			})
		}
	}

	b.mu.RLock()
	for _, ev := range b.created {
		consider(ev)
	}
	b.mu.RUnlock()

	return best, nil
}

// nameMatches reports whether a lowercased summary matches a lowercased query.
func nameMatches(summary, query string) bool {
	if strings.Contains(summary, query) || strings.Contains(query, summary) {
		return true
	}
	// Token overlap: any meaningful query word appearing in the summary.
	for _, token := range strings.Fields(query) {
		if len(token) <= 2 {
			continue
		}
		if strings.Contains(summary, token) {
			return true
		}
	}
	return false
}

// Ensure ICSBackend implements Service
var _ Service = (*ICSBackend)(nil)
