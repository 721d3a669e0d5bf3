// Package timeparse turns conversational temporal expressions into search
// windows and slot constraints. Parsing is a cascade of rule strategies, each
// scoring its own confidence; the first strategy confident enough wins and
// later ones never run. Strategies never fail hard: anything they cannot
// resolve lowers confidence or asks for clarification instead.
package timeparse

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/schedwise/schedwise/server/calendar"
)

const (
	// eventLookupDays bounds how far ahead event-anchored expressions search.
	eventLookupDays = 14

	// deadlineWindowHours is how far back from a hard deadline the search
	// window opens.
	deadlineWindowHours = 8

	// eventGapMinutes is the breathing room kept between a found slot and the
	// anchoring event.
	eventGapMinutes = 15

	// deadlineMarginMinutes separates the latest acceptable end from the
	// stated deadline itself.
	deadlineMarginMinutes = 30
)

// Parser resolves temporal expressions against a reference clock and, for
// event-anchored phrases, a calendar directory.
type Parser struct {
	directory calendar.Directory
	loc       *time.Location
	now       func() time.Time

	workStart  int
	workEnd    int
	searchDays int
}

// Option configures a Parser.
type Option func(*Parser)

// WithNow injects the reference clock. Tests pin this to a fixed instant.
func WithNow(now func() time.Time) Option {
	return func(p *Parser) { p.now = now }
}

// WithWorkHours sets the default daily window for date-only expressions.
func WithWorkHours(start, end int) Option {
	return func(p *Parser) { p.workStart, p.workEnd = start, end }
}

// WithSearchDays sets the default horizon when no date is given.
func WithSearchDays(days int) Option {
	return func(p *Parser) { p.searchDays = days }
}

// NewParser builds a parser. directory may be nil; event-anchored expressions
// then resolve to a clarification request.
func NewParser(directory calendar.Directory, loc *time.Location, opts ...Option) *Parser {
	if loc == nil {
		loc = time.UTC
	}
	p := &Parser{
		directory:  directory,
		loc:        loc,
		now:        time.Now,
		workStart:  9,
		workEnd:    17,
		searchDays: 7,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type strategy struct {
	name      string
	threshold float64
	parse     func(ctx context.Context, text string, now time.Time) *Result
}

func (p *Parser) strategies() []strategy {
	return []strategy{
		{"relative", 0.7, p.parseRelative},
		{"deadline", 0.7, p.parseDeadline},
		{"contextual", 0.7, p.parseContextual},
		{"constraint", 0.5, p.parseConstraints},
		{"specific", 0.5, p.parseSpecific},
		{"fallback", 0.0, p.parseFallback},
	}
}

// Parse resolves one temporal expression. It always returns a Result; a text
// nothing matched comes back with NeedsClarification set and zero confidence.
func (p *Parser) Parse(ctx context.Context, text string) *Result {
	text = strings.TrimSpace(text)
	now := p.now().In(p.loc)

	var best *Result
	for _, s := range p.strategies() {
		r := s.parse(ctx, text, now)
		if r == nil {
			continue
		}
		r.Strategy = s.name
		if r.Confidence >= s.threshold {
			slog.Debug("temporal expression resolved",
				"strategy", s.name, "confidence", r.Confidence, "text", text)
			return r
		}
		if best == nil || r.Confidence > best.Confidence {
			best = r
		}
	}
	if best != nil {
		return best
	}
	return &Result{
		Strategy:           "fallback",
		NeedsClarification: true,
		Clarification:      "When would you like to meet? You can say things like \"tomorrow afternoon\" or \"next Tuesday at 2pm\".",
	}
}

// ParseRequest is the one-shot entry point for a fully loaded request such as
// "schedule a 30 minute meeting next Tuesday afternoon": it extracts the
// duration phrase first, then parses the rest as a temporal expression.
func (p *Parser) ParseRequest(ctx context.Context, text string) *Result {
	dur, hasDur := ParseDurationPhrase(text)
	if hasDur {
		text = stripDurationPhrase(text)
	}
	r := p.Parse(ctx, text)
	if hasDur {
		r.DurationMinutes = intPtr(dur)
	}
	return r
}

// DefaultWindow is the search window used when no expression pinned one down.
func (p *Parser) DefaultWindow(now time.Time) (time.Time, time.Time) {
	start := now.Add(time.Hour)
	return start, midnight(now).AddDate(0, 0, p.searchDays+1)
}

// --- relative: today / tomorrow / this Tuesday / next Friday / next week ---

func (p *Parser) parseRelative(_ context.Context, text string, now time.Time) *Result {
	lower := strings.ToLower(text)

	// "next week" / "this week" before individual weekdays.
	if strings.Contains(lower, "next week") {
		start := nextWeekday(now, time.Monday)
		return p.windowForSpan(start, start.AddDate(0, 0, 5), 0.75)
	}
	if strings.Contains(lower, "this week") {
		end := upcomingWeekday(now, time.Saturday)
		start, _, _ := p.dayWindow(midnight(now), text)
		if start.Before(now) {
			start = now
		}
		return p.windowForSpan(start, end, 0.7)
	}

	var day time.Time
	confidence := 0.0
	// Offset phrases first: "2 weeks from today" must not resolve as "today".
	if m := relativeOffsetRe.FindStringSubmatch(lower); m != nil {
		n, _ := strconv.Atoi(m[1])
		switch {
		case strings.HasPrefix(m[2], "day"):
			day = midnight(now).AddDate(0, 0, n)
		case strings.HasPrefix(m[2], "week"):
			day = midnight(now).AddDate(0, 0, 7*n)
		default:
			day = midnight(now).AddDate(0, n, 0)
		}
		confidence = 0.8
	} else if d, ok := parseRelativeDay(lower, now); ok {
		day = d
		confidence = 0.8
	} else if wd, qualifier, ok := findWeekdayMention(lower); ok {
		// "before Friday 6pm" is a deadline, not a day to meet on.
		if deadlineGuardRe.MatchString(lower) {
			return nil
		}
		switch qualifier {
		case "next":
			day = nextWeekday(now, wd)
			confidence = 0.8
		case "this":
			day = upcomingWeekday(now, wd)
			confidence = 0.8
		default:
			day = upcomingWeekday(now, wd)
			confidence = 0.7
		}
	} else {
		return nil
	}

	start, end, precise := p.dayWindow(day, text)
	if precise {
		confidence += 0.1
		if confidence > 0.95 {
			confidence = 0.95
		}
	}
	// "today" can leave the window partly in the past.
	if start.Before(now) {
		start = now
	}
	if !end.After(start) {
		return nil
	}
	return &Result{Start: timePtr(start), End: timePtr(end), Confidence: confidence}
}

// dayWindow narrows a calendar day using any clock time or day part in text.
// precise is true when text carried an explicit time of day.
func (p *Parser) dayWindow(day time.Time, text string) (start, end time.Time, precise bool) {
	if ct, ok := parseClockTime(text); ok {
		start = day.Add(time.Duration(ct.hour)*time.Hour + time.Duration(ct.minute)*time.Minute)
		return start, start.Add(2 * time.Hour), true
	}
	if dp, ok := parseDayPart(text); ok {
		return day.Add(time.Duration(dp.startHour) * time.Hour),
			day.Add(time.Duration(dp.endHour) * time.Hour), true
	}
	return day.Add(time.Duration(p.workStart) * time.Hour),
		day.Add(time.Duration(p.workEnd) * time.Hour), false
}

func (p *Parser) windowForSpan(start, end time.Time, confidence float64) *Result {
	return &Result{Start: timePtr(start), End: timePtr(end), Confidence: confidence}
}

// --- deadline: "before Friday 6pm", "must wrap by 5:30pm Friday" ---

var (
	deadlineGuardRe  = regexp.MustCompile(`(?i)\b(before|by)\b`)
	relativeOffsetRe = regexp.MustCompile(`(?i)\b(\d+)\s+(days?|weeks?|months?)\s+from\s+(?:now|today)\b`)
)

func (p *Parser) parseDeadline(_ context.Context, text string, now time.Time) *Result {
	if !deadlineGuardRe.MatchString(text) {
		return nil
	}
	wd, qualifier, ok := findWeekdayMention(text)
	if !ok {
		return nil
	}
	ct, ok := parseClockTime(text)
	if !ok {
		// "by end of day Friday" style.
		if dp, dpOK := parseDayPart(text); dpOK && (dp.name == "end of day" || dp.name == "eod") {
			ct = clockTime{hour: dp.endHour}
		} else {
			return nil
		}
	}

	var day time.Time
	if qualifier == "next" {
		day = nextWeekday(now, wd)
	} else {
		day = upcomingWeekday(now, wd)
	}

	deadline := day.Add(time.Duration(ct.hour)*time.Hour + time.Duration(ct.minute)*time.Minute)
	mustEnd := deadline.Add(-deadlineMarginMinutes * time.Minute)
	start := mustEnd.Add(-deadlineWindowHours * time.Hour)
	if start.Before(now) {
		start = now
	}
	if !mustEnd.After(start) {
		return nil
	}

	constraints := ConstraintSet{}.
		Add(Deadline(deadline)).
		Add(MustEndBefore(mustEnd))
	return &Result{
		Start:       timePtr(start),
		End:         timePtr(mustEnd),
		Constraints: constraints,
		Confidence:  0.9,
	}
}

// --- contextual: "before my flight", "after the board meeting" ---

var contextualRe = regexp.MustCompile(`(?i)\b(before|after)\s+(?:my\s+|the\s+|our\s+)?(.+?)[\s.!?]*$`)

func (p *Parser) parseContextual(ctx context.Context, text string, now time.Time) *Result {
	m := contextualRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	direction := strings.ToLower(m[1])
	eventName := strings.TrimSpace(m[2])
	if eventName == "" {
		return nil
	}
	// "after 2pm" and "before noon" are preferences, not event anchors.
	if _, isClock := parseClockTime(eventName); isClock {
		return nil
	}
	if dp, isPart := parseDayPart(eventName); isPart && dp.name == eventName {
		return nil
	}
	if _, _, isDay := findWeekdayMention(eventName); isDay {
		return nil
	}

	if p.directory == nil {
		return p.eventNotFound(eventName)
	}
	event, err := p.directory.FindEventByName(ctx, eventName, now, now.AddDate(0, 0, eventLookupDays))
	if err != nil {
		slog.Warn("event lookup failed", "query", eventName, "error", err)
		return p.eventNotFound(eventName)
	}
	if event == nil {
		return p.eventNotFound(eventName)
	}

	gap := eventGapMinutes * time.Minute
	var start, end time.Time
	constraints := ConstraintSet{}.Add(ReferenceEvent(event.Summary))
	if direction == "before" {
		end = event.Start.Add(-gap)
		start = end.Add(-deadlineWindowHours * time.Hour)
		constraints = constraints.Add(MustEndBefore(end))
	} else {
		start = event.End.Add(gap)
		end = start.Add(deadlineWindowHours * time.Hour)
	}
	if start.Before(now) {
		start = now
	}
	if !end.After(start) {
		return p.eventNotFound(eventName)
	}

	return &Result{
		Start:       timePtr(start),
		End:         timePtr(end),
		Constraints: constraints,
		Confidence:  0.9,
	}
}

func (p *Parser) eventNotFound(name string) *Result {
	return &Result{
		Confidence:         0.3,
		NeedsClarification: true,
		Clarification:      fmt.Sprintf("I couldn't find an event matching %q on your calendar. Could you tell me when it is, or give me a date instead?", name),
	}
}

// --- constraint: standing preferences without a concrete date ---

var (
	notBeforeClockRe = regexp.MustCompile(`(?i)\bafter\s+(\d{1,2})(?::(\d{2}))?\s*(am|pm)\b`)
	notAfterClockRe  = regexp.MustCompile(`(?i)\bbefore\s+(\d{1,2})(?::(\d{2}))?\s*(am|pm)\b`)
	avoidDayRe       = regexp.MustCompile(`(?i)\b(?:avoid|not\s+on|no|except)\s+((?:mon|tues?|wednes|thurs?|fri|satur|sun)(?:day)?s?)\b`)
)

// preferenceHourRanges map vague day-part preferences to daily clock windows.
// Night wraps past midnight.
var preferenceHourRanges = []struct {
	word      string
	startHour int
	endHour   int
}{
	{"morning", 6, 12},
	{"afternoon", 12, 18},
	{"evening", 18, 22},
	{"night", 22, 6},
}

func (p *Parser) parseConstraints(_ context.Context, text string, now time.Time) *Result {
	lower := strings.ToLower(text)
	// An explicit calendar date belongs to the specific strategy.
	if _, hasDate := parseCalendarDate(lower, now); hasDate {
		return nil
	}
	var constraints ConstraintSet

	if m := notBeforeClockRe.FindStringSubmatch(lower); m != nil {
		if ct, ok := parseClockTime(m[0]); ok {
			constraints = constraints.Add(NotBefore(ct.hour))
		}
	}
	if m := notAfterClockRe.FindStringSubmatch(lower); m != nil {
		if ct, ok := parseClockTime(m[0]); ok {
			constraints = constraints.Add(NotAfter(ct.hour))
		}
	}
	if strings.Contains(lower, "too early") && !constraints.Has(KindNotBefore) {
		constraints = constraints.Add(NotBefore(9))
	}
	if strings.Contains(lower, "too late") && !constraints.Has(KindNotAfter) {
		constraints = constraints.Add(NotAfter(18))
	}
	if strings.Contains(lower, "weekday") {
		constraints = constraints.Add(WeekdaysOnly())
	}
	if strings.Contains(lower, "weekend") {
		constraints = constraints.Add(WeekendsOnly())
	}
	for _, m := range avoidDayRe.FindAllStringSubmatch(lower, -1) {
		if d, ok := parseWeekday(strings.TrimSuffix(m[1], "s")); ok {
			constraints = constraints.Add(ExcludeDays(d))
		}
	}
	for _, pr := range preferenceHourRanges {
		if strings.Contains(lower, pr.word) {
			constraints = constraints.Add(TimeRange(pr.startHour, pr.endHour))
			break
		}
	}

	if len(constraints) == 0 {
		return nil
	}

	confidence := 0.5 + 0.05*float64(len(constraints))
	if confidence > 0.6 {
		confidence = 0.6
	}
	start, end := p.DefaultWindow(now)
	return &Result{
		Start:       timePtr(start),
		End:         timePtr(end),
		Constraints: constraints,
		Confidence:  confidence,
	}
}

// --- specific: explicit calendar dates ---

func (p *Parser) parseSpecific(_ context.Context, text string, now time.Time) *Result {
	day, ok := parseCalendarDate(text, now)
	if !ok {
		return nil
	}
	start, end, _ := p.dayWindow(day, text)
	if start.Before(now) {
		start = now
	}
	if !end.After(start) {
		return nil
	}
	return &Result{Start: timePtr(start), End: timePtr(end), Confidence: 0.7}
}

// --- fallback: salvage whatever fragments appeared ---

func (p *Parser) parseFallback(_ context.Context, text string, now time.Time) *Result {
	ct, hasClock := parseClockTime(text)
	_, hasPart := parseDayPart(text)
	if !hasClock && !hasPart {
		return nil
	}

	// A time of day with no date: apply it to the default horizon.
	start, end := p.DefaultWindow(now)
	var constraints ConstraintSet
	if hasClock {
		constraints = constraints.Add(NotBefore(ct.hour))
	} else if dp, ok := parseDayPart(text); ok {
		constraints = constraints.Add(TimeRange(dp.startHour, dp.endHour))
	}
	return &Result{
		Start:       timePtr(start),
		End:         timePtr(end),
		Constraints: constraints,
		Confidence:  0.4,
	}
}
