// Package availability resolves open meeting slots against a calendar
// backend. The engine walks the search window day by day, finds the gaps
// between busy intervals, and offers one slot per gap; the constraint filter
// then narrows the candidates without ever adding to them.
package availability

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/schedwise/schedwise/plugin/timeparse"
	"github.com/schedwise/schedwise/server/calendar"
)

// DefaultMaxSlots caps how many options a single search returns.
const DefaultMaxSlots = 10

// Engine finds open slots on a calendar.
type Engine struct {
	cal calendar.Service

	workStart     int
	workEnd       int
	bufferMinutes int
	maxSlots      int
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithWorkHours sets the daily search hours.
func WithWorkHours(start, end int) EngineOption {
	return func(e *Engine) { e.workStart, e.workEnd = start, end }
}

// WithBuffer sets the idle minutes required around existing commitments.
func WithBuffer(minutes int) EngineOption {
	return func(e *Engine) { e.bufferMinutes = minutes }
}

// WithMaxSlots caps the number of returned slots.
func WithMaxSlots(n int) EngineOption {
	return func(e *Engine) { e.maxSlots = n }
}

// NewEngine builds an engine over a calendar backend.
func NewEngine(cal calendar.Service, opts ...EngineOption) *Engine {
	e := &Engine{
		cal:           cal,
		workStart:     9,
		workEnd:       17,
		bufferMinutes: 15,
		maxSlots:      DefaultMaxSlots,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// FindSlots returns open slots of the given duration inside [start, end),
// honoring the constraint set. Slots are sorted by start time and capped.
func (e *Engine) FindSlots(ctx context.Context, start, end time.Time, durationMinutes int, constraints timeparse.ConstraintSet) ([]TimeSlot, error) {
	if durationMinutes <= 0 {
		return nil, fmt.Errorf("invalid duration %d minutes", durationMinutes)
	}
	if !end.After(start) {
		return nil, fmt.Errorf("search window end %s is not after start %s", end, start)
	}

	busy, err := e.cal.BusyIntervals(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to load busy intervals: %w", err)
	}
	sort.Slice(busy, func(i, j int) bool { return busy[i].Start.Before(busy[j].Start) })

	weekendsOnly := constraints.Has(timeparse.KindWeekendsOnly)

	var slots []TimeSlot
	for day := startOfDay(start); day.Before(end); day = day.AddDate(0, 0, 1) {
		if weekend(day.Weekday()) != weekendsOnly {
			continue
		}
		for _, seg := range e.daySegments(day, start, end, constraints) {
			slots = append(slots, e.walkGaps(seg.start, seg.end, durationMinutes, busy)...)
		}
	}

	slots = ApplyConstraints(slots, constraints)
	if len(slots) > e.maxSlots {
		slots = slots[:e.maxSlots]
	}

	slog.Debug("availability search finished",
		"start", start, "end", end, "durationMinutes", durationMinutes,
		"busy", len(busy), "slots", len(slots))
	return slots, nil
}

type segment struct {
	start time.Time
	end   time.Time
}

// daySegments returns the searchable clock windows of one day, clipped to the
// overall window. Work hours apply unless a time-range constraint overrides
// them; a range wrapping midnight contributes two segments.
func (e *Engine) daySegments(day, windowStart, windowEnd time.Time, constraints timeparse.ConstraintSet) []segment {
	hours := [][2]int{{e.workStart, e.workEnd}}
	if tr, ok := constraints.Get(timeparse.KindTimeRange); ok {
		if tr.StartHour <= tr.EndHour {
			hours = [][2]int{{tr.StartHour, tr.EndHour}}
		} else {
			hours = [][2]int{{tr.StartHour, 24}, {0, tr.EndHour}}
		}
	}

	var out []segment
	for _, h := range hours {
		segStart := day.Add(time.Duration(h[0]) * time.Hour)
		segEnd := day.Add(time.Duration(h[1]) * time.Hour)
		if segStart.Before(windowStart) {
			segStart = windowStart
		}
		if segEnd.After(windowEnd) {
			segEnd = windowEnd
		}
		if segEnd.After(segStart) {
			out = append(out, segment{start: segStart, end: segEnd})
		}
	}
	return out
}

// walkGaps emits one slot per gap between busy intervals inside [segStart,
// segEnd). A gap before a commitment must fit the duration plus the buffer;
// the trailing gap only needs the duration. The cursor never moves backwards,
// so overlapping busy intervals collapse naturally.
func (e *Engine) walkGaps(segStart, segEnd time.Time, durationMinutes int, busy []calendar.Interval) []TimeSlot {
	duration := time.Duration(durationMinutes) * time.Minute
	buffer := time.Duration(e.bufferMinutes) * time.Minute

	var slots []TimeSlot
	cursor := segStart
	for _, iv := range busy {
		if !iv.Overlaps(segStart, segEnd) {
			continue
		}
		if iv.Start.Sub(cursor) >= duration+buffer {
			slots = append(slots, TimeSlot{
				Start:           cursor,
				End:             cursor.Add(duration),
				DurationMinutes: durationMinutes,
			})
		}
		if after := iv.End.Add(buffer); after.After(cursor) {
			cursor = after
		}
	}
	if segEnd.Sub(cursor) >= duration {
		slots = append(slots, TimeSlot{
			Start:           cursor,
			End:             cursor.Add(duration),
			DurationMinutes: durationMinutes,
		})
	}
	return slots
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func weekend(d time.Weekday) bool {
	return d == time.Saturday || d == time.Sunday
}
