package timeparse

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/schedwise/schedwise/server/calendar"
)

// Wednesday, December 10 2025, 10:00 UTC.
var testNow = time.Date(2025, 12, 10, 10, 0, 0, 0, time.UTC)

func newTestParser(t *testing.T, directory calendar.Directory) *Parser {
	t.Helper()
	return NewParser(directory, time.UTC, WithNow(func() time.Time { return testNow }))
}

func TestParseRelativeDay(t *testing.T) {
	p := newTestParser(t, nil)
	ctx := context.Background()

	tests := []struct {
		name      string
		text      string
		wantStart time.Time
		wantEnd   time.Time
	}{
		{
			"tomorrow defaults to work hours",
			"sometime tomorrow",
			time.Date(2025, 12, 11, 9, 0, 0, 0, time.UTC),
			time.Date(2025, 12, 11, 17, 0, 0, 0, time.UTC),
		},
		{
			"tomorrow afternoon",
			"tomorrow afternoon",
			time.Date(2025, 12, 11, 12, 0, 0, 0, time.UTC),
			time.Date(2025, 12, 11, 17, 0, 0, 0, time.UTC),
		},
		{
			"tomorrow at 2pm",
			"tomorrow at 2pm",
			time.Date(2025, 12, 11, 14, 0, 0, 0, time.UTC),
			time.Date(2025, 12, 11, 16, 0, 0, 0, time.UTC),
		},
		{
			"next tuesday skips the nearer tuesday",
			"how about next Tuesday",
			time.Date(2025, 12, 16, 9, 0, 0, 0, time.UTC),
			time.Date(2025, 12, 16, 17, 0, 0, 0, time.UTC),
		},
		{
			"bare friday is the upcoming one",
			"Friday works for me",
			time.Date(2025, 12, 12, 9, 0, 0, 0, time.UTC),
			time.Date(2025, 12, 12, 17, 0, 0, 0, time.UTC),
		},
		{
			"next week spans the work week",
			"sometime next week",
			time.Date(2025, 12, 15, 0, 0, 0, 0, time.UTC),
			time.Date(2025, 12, 20, 0, 0, 0, 0, time.UTC),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := p.Parse(ctx, tt.text)
			require.False(t, r.NeedsClarification, "clarification: %s", r.Clarification)
			start, end, ok := r.Window()
			require.True(t, ok)
			require.Equal(t, tt.wantStart, start)
			require.Equal(t, tt.wantEnd, end)
			require.GreaterOrEqual(t, r.Confidence, 0.7)
		})
	}
}

func TestParseNextVsThisWeekday(t *testing.T) {
	// Monday, December 8 2025.
	monday := time.Date(2025, 12, 8, 9, 0, 0, 0, time.UTC)
	p := NewParser(nil, time.UTC, WithNow(func() time.Time { return monday }))
	ctx := context.Background()

	r := p.Parse(ctx, "this Tuesday")
	start, _, ok := r.Window()
	require.True(t, ok)
	require.Equal(t, time.Date(2025, 12, 9, 9, 0, 0, 0, time.UTC), start)

	r = p.Parse(ctx, "next Tuesday")
	start, _, ok = r.Window()
	require.True(t, ok)
	require.Equal(t, time.Date(2025, 12, 16, 9, 0, 0, 0, time.UTC), start)
}

func TestParseDeadline(t *testing.T) {
	p := newTestParser(t, nil)

	r := p.Parse(context.Background(), "it has to wrap up before Friday 6pm")
	require.Equal(t, "deadline", r.Strategy)
	require.InDelta(t, 0.9, r.Confidence, 0.001)

	start, end, ok := r.Window()
	require.True(t, ok)
	require.Equal(t, time.Date(2025, 12, 12, 9, 30, 0, 0, time.UTC), start)
	require.Equal(t, time.Date(2025, 12, 12, 17, 30, 0, 0, time.UTC), end)

	deadline, ok := r.Constraints.Get(KindDeadline)
	require.True(t, ok)
	require.Equal(t, time.Date(2025, 12, 12, 18, 0, 0, 0, time.UTC), deadline.Time)

	mustEnd, ok := r.Constraints.Get(KindMustEndBefore)
	require.True(t, ok)
	require.Equal(t, time.Date(2025, 12, 12, 17, 30, 0, 0, time.UTC), mustEnd.Time)
}

func TestParseContextual(t *testing.T) {
	flight := calendar.Event{
		UID:     "flight-1",
		Summary: "Flight to Denver",
		Start:   time.Date(2025, 12, 12, 14, 0, 0, 0, time.UTC),
		End:     time.Date(2025, 12, 12, 17, 0, 0, 0, time.UTC),
	}
	directory := calendar.NewMockService().WithEvents(flight)
	p := newTestParser(t, directory)
	ctx := context.Background()

	t.Run("before an event", func(t *testing.T) {
		r := p.Parse(ctx, "sometime before my flight")
		require.Equal(t, "contextual", r.Strategy)
		require.False(t, r.NeedsClarification)

		start, end, ok := r.Window()
		require.True(t, ok)
		require.Equal(t, time.Date(2025, 12, 12, 13, 45, 0, 0, time.UTC), end)
		require.Equal(t, time.Date(2025, 12, 12, 5, 45, 0, 0, time.UTC), start)

		mustEnd, ok := r.Constraints.Get(KindMustEndBefore)
		require.True(t, ok)
		require.Equal(t, end, mustEnd.Time)

		ref, ok := r.Constraints.Get(KindReferenceEvent)
		require.True(t, ok)
		require.Equal(t, "Flight to Denver", ref.Event)
	})

	t.Run("after an event", func(t *testing.T) {
		r := p.Parse(ctx, "after the flight to Denver")
		require.False(t, r.NeedsClarification)

		start, end, ok := r.Window()
		require.True(t, ok)
		require.Equal(t, time.Date(2025, 12, 12, 17, 15, 0, 0, time.UTC), start)
		require.Equal(t, start.Add(8*time.Hour), end)
	})

	t.Run("unknown event asks for clarification", func(t *testing.T) {
		r := p.Parse(ctx, "before my dentist appointment")
		require.True(t, r.NeedsClarification)
		require.Contains(t, r.Clarification, "dentist appointment")
		require.Less(t, r.Confidence, 0.7)
	})

	t.Run("no directory asks for clarification", func(t *testing.T) {
		r := newTestParser(t, nil).Parse(ctx, "before my flight")
		require.True(t, r.NeedsClarification)
	})
}

func TestParseConstraints(t *testing.T) {
	p := newTestParser(t, nil)

	r := p.Parse(context.Background(), "mornings on weekdays, but no mondays please")
	require.Equal(t, "constraint", r.Strategy)

	tr, ok := r.Constraints.Get(KindTimeRange)
	require.True(t, ok)
	require.Equal(t, 6, tr.StartHour)
	require.Equal(t, 12, tr.EndHour)

	require.True(t, r.Constraints.Has(KindWeekdaysOnly))

	excluded, ok := r.Constraints.Get(KindExcludedDays)
	require.True(t, ok)
	require.Equal(t, []time.Weekday{time.Monday}, excluded.Days)

	// Default horizon applies when no date is given.
	start, end, ok := r.Window()
	require.True(t, ok)
	require.Equal(t, testNow.Add(time.Hour), start)
	require.Equal(t, time.Date(2025, 12, 18, 0, 0, 0, 0, time.UTC), end)
}

func TestParseConstraintClockPreferences(t *testing.T) {
	p := newTestParser(t, nil)

	r := p.Parse(context.Background(), "anytime after 2pm works, not too late though")
	require.True(t, r.Constraints.Has(KindNotBefore))
	nb, _ := r.Constraints.Get(KindNotBefore)
	require.Equal(t, 14, nb.Hour)
	na, ok := r.Constraints.Get(KindNotAfter)
	require.True(t, ok)
	require.Equal(t, 18, na.Hour)
}

func TestParseBareDayPart(t *testing.T) {
	p := newTestParser(t, nil)

	r := p.Parse(context.Background(), "afternoon")
	require.Equal(t, "constraint", r.Strategy)
	require.GreaterOrEqual(t, r.Confidence, 0.5)
	require.LessOrEqual(t, r.Confidence, 0.6)

	tr, ok := r.Constraints.Get(KindTimeRange)
	require.True(t, ok)
	require.Equal(t, 12, tr.StartHour)
	require.Equal(t, 18, tr.EndHour)

	// No explicit date: the default horizon applies.
	start, end, ok := r.Window()
	require.True(t, ok)
	require.Equal(t, testNow.Add(time.Hour), start)
	require.Equal(t, time.Date(2025, 12, 18, 0, 0, 0, 0, time.UTC), end)
}

func TestParseRequestDeadlineWithDuration(t *testing.T) {
	p := newTestParser(t, nil)

	r := p.ParseRequest(context.Background(), "45 minutes before my flight that leaves Friday at 6 PM")
	require.NotNil(t, r.DurationMinutes)
	require.Equal(t, 45, *r.DurationMinutes)
	require.Equal(t, "deadline", r.Strategy)

	start, end, ok := r.Window()
	require.True(t, ok)
	require.Equal(t, time.Date(2025, 12, 12, 9, 30, 0, 0, time.UTC), start)
	require.Equal(t, time.Date(2025, 12, 12, 17, 30, 0, 0, time.UTC), end)

	mustEnd, ok := r.Constraints.Get(KindMustEndBefore)
	require.True(t, ok)
	require.Equal(t, time.Date(2025, 12, 12, 17, 30, 0, 0, time.UTC), mustEnd.Time)
}

func TestParseDaysFromNow(t *testing.T) {
	p := newTestParser(t, nil)

	r := p.Parse(context.Background(), "3 days from now")
	start, _, ok := r.Window()
	require.True(t, ok)
	require.Equal(t, time.Date(2025, 12, 13, 9, 0, 0, 0, time.UTC), start)

	r = p.Parse(context.Background(), "2 weeks from today")
	start, _, ok = r.Window()
	require.True(t, ok)
	require.Equal(t, time.Date(2025, 12, 24, 9, 0, 0, 0, time.UTC), start)
}

func TestParseSpecificDate(t *testing.T) {
	p := newTestParser(t, nil)
	ctx := context.Background()

	t.Run("date only assumes business hours", func(t *testing.T) {
		r := p.Parse(ctx, "December 16th")
		start, end, ok := r.Window()
		require.True(t, ok)
		require.Equal(t, time.Date(2025, 12, 16, 9, 0, 0, 0, time.UTC), start)
		require.Equal(t, time.Date(2025, 12, 16, 17, 0, 0, 0, time.UTC), end)
	})

	t.Run("date with time", func(t *testing.T) {
		r := p.Parse(ctx, "December 16 at 3:30 pm")
		start, _, ok := r.Window()
		require.True(t, ok)
		require.Equal(t, time.Date(2025, 12, 16, 15, 30, 0, 0, time.UTC), start)
	})

	t.Run("past month-day rolls to next year", func(t *testing.T) {
		r := p.Parse(ctx, "March 5")
		start, _, ok := r.Window()
		require.True(t, ok)
		require.Equal(t, 2026, start.Year())
		require.Equal(t, time.March, start.Month())
	})
}

func TestParseNothingUnderstood(t *testing.T) {
	p := newTestParser(t, nil)

	r := p.Parse(context.Background(), "whenever really")
	require.True(t, r.NeedsClarification)
	require.Zero(t, r.Confidence)
	require.NotEmpty(t, r.Clarification)
}

func TestParseRequestOneShot(t *testing.T) {
	p := newTestParser(t, nil)

	r := p.ParseRequest(context.Background(), "schedule a 30 minute meeting tomorrow afternoon")
	require.NotNil(t, r.DurationMinutes)
	require.Equal(t, 30, *r.DurationMinutes)

	start, end, ok := r.Window()
	require.True(t, ok)
	require.Equal(t, time.Date(2025, 12, 11, 12, 0, 0, 0, time.UTC), start)
	require.Equal(t, time.Date(2025, 12, 11, 17, 0, 0, 0, time.UTC), end)
}

func TestParseDurationPhrase(t *testing.T) {
	tests := []struct {
		text string
		want int
		ok   bool
	}{
		{"30 minutes", 30, true},
		{"45 min", 45, true},
		{"90m", 90, true},
		{"1 hour", 60, true},
		{"1.5 hours", 90, true},
		{"2h", 120, true},
		{"half an hour", 30, true},
		{"a quarter hour", 15, true},
		{"half a day", 240, true},
		{"meet at 6 pm", 0, false},
		{"next Tuesday", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, ok := ParseDurationPhrase(tt.text)
			require.Equal(t, tt.ok, ok)
			if tt.ok {
				require.Equal(t, tt.want, got)
			}
		})
	}
}

func TestWeekdayResolution(t *testing.T) {
	// Wednesday.
	now := time.Date(2025, 12, 10, 10, 0, 0, 0, time.UTC)

	require.Equal(t, time.Date(2025, 12, 16, 0, 0, 0, 0, time.UTC), nextWeekday(now, time.Tuesday))
	require.Equal(t, time.Date(2025, 12, 21, 0, 0, 0, 0, time.UTC), nextWeekday(now, time.Sunday))
	require.Equal(t, time.Date(2025, 12, 12, 0, 0, 0, 0, time.UTC), upcomingWeekday(now, time.Friday))
	// Same weekday as today resolves a week out.
	require.Equal(t, time.Date(2025, 12, 17, 0, 0, 0, 0, time.UTC), upcomingWeekday(now, time.Wednesday))
}

func TestConstraintSetAdd(t *testing.T) {
	s := ConstraintSet{}.Add(NotBefore(10))
	s = s.Add(NotBefore(11))
	require.Len(t, s, 1)
	c, _ := s.Get(KindNotBefore)
	require.Equal(t, 11, c.Hour)

	s = s.Add(ExcludeDays(time.Monday))
	s = s.Add(ExcludeDays(time.Friday, time.Monday))
	excluded, _ := s.Get(KindExcludedDays)
	require.ElementsMatch(t, []time.Weekday{time.Monday, time.Friday}, excluded.Days)
}

func TestTimeRangeWrapsMidnight(t *testing.T) {
	c := TimeRange(22, 6)
	require.True(t, c.MatchesHourRange(23))
	require.True(t, c.MatchesHourRange(2))
	require.False(t, c.MatchesHourRange(12))

	day := TimeRange(9, 17)
	require.True(t, day.MatchesHourRange(9))
	require.False(t, day.MatchesHourRange(17))
}
