package timeparse

import (
	"encoding/json"
	"fmt"
	"time"
)

// Kind identifies what a Constraint restricts.
type Kind int

const (
	// KindTimeRange restricts slots to a daily clock-hour window.
	KindTimeRange Kind = iota
	// KindNotBefore restricts slots to start at or after a clock hour.
	KindNotBefore
	// KindNotAfter restricts slots to start at or before a clock hour.
	KindNotAfter
	// KindWeekdaysOnly restricts slots to Monday through Friday.
	KindWeekdaysOnly
	// KindWeekendsOnly restricts slots to Saturday and Sunday.
	KindWeekendsOnly
	// KindExcludedDays removes slots falling on specific weekdays.
	KindExcludedDays
	// KindDeadline removes slots starting at or after an absolute instant.
	KindDeadline
	// KindMustEndBefore removes slots ending after an absolute instant.
	KindMustEndBefore
	// KindReferenceEvent records the event an expression was anchored to.
	// It carries context only and never filters slots.
	KindReferenceEvent
)

var kindNames = map[Kind]string{
	KindTimeRange:      "time_range",
	KindNotBefore:      "not_before",
	KindNotAfter:       "not_after",
	KindWeekdaysOnly:   "weekdays_only",
	KindWeekendsOnly:   "weekends_only",
	KindExcludedDays:   "excluded_days",
	KindDeadline:       "deadline",
	KindMustEndBefore:  "must_end_before",
	KindReferenceEvent: "reference_event",
}

var kindValues = func() map[string]Kind {
	m := make(map[string]Kind, len(kindNames))
	for k, v := range kindNames {
		m[v] = k
	}
	return m
}()

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

func (k Kind) MarshalJSON() ([]byte, error) {
	s, ok := kindNames[k]
	if !ok {
		return nil, fmt.Errorf("unknown constraint kind %d", int(k))
	}
	return json.Marshal(s)
}

func (k *Kind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, ok := kindValues[s]
	if !ok {
		return fmt.Errorf("unknown constraint kind %q", s)
	}
	*k = v
	return nil
}

// Constraint is a single restriction on candidate slots. Only the fields
// relevant to its Kind are populated.
type Constraint struct {
	Kind Kind `json:"kind"`

	// StartHour/EndHour for KindTimeRange. A range that wraps midnight
	// (StartHour > EndHour, e.g. 22-6) matches hours outside [EndHour, StartHour).
	StartHour int `json:"startHour,omitempty"`
	EndHour   int `json:"endHour,omitempty"`

	// Hour for KindNotBefore and KindNotAfter.
	Hour int `json:"hour,omitempty"`

	// Days for KindExcludedDays.
	Days []time.Weekday `json:"days,omitempty"`

	// Time for KindDeadline and KindMustEndBefore.
	Time time.Time `json:"time,omitempty"`

	// Event for KindReferenceEvent.
	Event string `json:"event,omitempty"`
}

// Constructors keep call sites from building half-populated structs.

func TimeRange(startHour, endHour int) Constraint {
	return Constraint{Kind: KindTimeRange, StartHour: startHour, EndHour: endHour}
}

func NotBefore(hour int) Constraint {
	return Constraint{Kind: KindNotBefore, Hour: hour}
}

func NotAfter(hour int) Constraint {
	return Constraint{Kind: KindNotAfter, Hour: hour}
}

func WeekdaysOnly() Constraint {
	return Constraint{Kind: KindWeekdaysOnly}
}

func WeekendsOnly() Constraint {
	return Constraint{Kind: KindWeekendsOnly}
}

func ExcludeDays(days ...time.Weekday) Constraint {
	return Constraint{Kind: KindExcludedDays, Days: days}
}

func Deadline(t time.Time) Constraint {
	return Constraint{Kind: KindDeadline, Time: t}
}

func MustEndBefore(t time.Time) Constraint {
	return Constraint{Kind: KindMustEndBefore, Time: t}
}

func ReferenceEvent(name string) Constraint {
	return Constraint{Kind: KindReferenceEvent, Event: name}
}

// ConstraintSet is an ordered collection with at most one constraint per kind.
type ConstraintSet []Constraint

// Get returns the constraint of the given kind, if present.
func (s ConstraintSet) Get(kind Kind) (Constraint, bool) {
	for _, c := range s {
		if c.Kind == kind {
			return c, true
		}
	}
	return Constraint{}, false
}

// Has reports whether the set contains a constraint of the given kind.
func (s ConstraintSet) Has(kind Kind) bool {
	_, ok := s.Get(kind)
	return ok
}

// Add returns a set with c added. An existing constraint of the same kind is
// replaced, except KindExcludedDays which merges day lists.
func (s ConstraintSet) Add(c Constraint) ConstraintSet {
	for i, existing := range s {
		if existing.Kind != c.Kind {
			continue
		}
		if c.Kind == KindExcludedDays {
			merged := existing
			for _, d := range c.Days {
				if !containsWeekday(merged.Days, d) {
					merged.Days = append(merged.Days, d)
				}
			}
			out := make(ConstraintSet, len(s))
			copy(out, s)
			out[i] = merged
			return out
		}
		out := make(ConstraintSet, len(s))
		copy(out, s)
		out[i] = c
		return out
	}
	out := make(ConstraintSet, 0, len(s)+1)
	out = append(out, s...)
	out = append(out, c)
	return out
}

func containsWeekday(days []time.Weekday, d time.Weekday) bool {
	for _, x := range days {
		if x == d {
			return true
		}
	}
	return false
}

// MatchesHourRange reports whether hour falls inside a KindTimeRange
// constraint, handling ranges that wrap past midnight.
func (c Constraint) MatchesHourRange(hour int) bool {
	if c.StartHour <= c.EndHour {
		return hour >= c.StartHour && hour < c.EndHour
	}
	// Wrapped range such as 22-6.
	return hour >= c.StartHour || hour < c.EndHour
}
