package availability

import (
	"github.com/schedwise/schedwise/plugin/timeparse"
)

// ApplyConstraints filters slots through every constraint in the set. The
// result is always a subsequence of the input: filtering preserves order and
// never invents slots. Kinds that carry context rather than restrictions keep
// every slot.
func ApplyConstraints(slots []TimeSlot, constraints timeparse.ConstraintSet) []TimeSlot {
	if len(constraints) == 0 {
		return slots
	}
	out := make([]TimeSlot, 0, len(slots))
	for _, slot := range slots {
		if satisfiesAll(slot, constraints) {
			out = append(out, slot)
		}
	}
	return out
}

func satisfiesAll(slot TimeSlot, constraints timeparse.ConstraintSet) bool {
	for _, c := range constraints {
		if !satisfies(slot, c) {
			return false
		}
	}
	return true
}

func satisfies(slot TimeSlot, c timeparse.Constraint) bool {
	switch c.Kind {
	case timeparse.KindTimeRange:
		return c.MatchesHourRange(slot.Start.Hour())
	case timeparse.KindNotBefore:
		return slot.Start.Hour() >= c.Hour
	case timeparse.KindNotAfter:
		return slot.Start.Hour() < c.Hour
	case timeparse.KindWeekdaysOnly:
		return !weekend(slot.Start.Weekday())
	case timeparse.KindWeekendsOnly:
		return weekend(slot.Start.Weekday())
	case timeparse.KindExcludedDays:
		for _, d := range c.Days {
			if slot.Start.Weekday() == d {
				return false
			}
		}
		return true
	case timeparse.KindDeadline:
		return slot.Start.Before(c.Time)
	case timeparse.KindMustEndBefore:
		return !slot.End.After(c.Time)
	case timeparse.KindReferenceEvent:
		return true
	default:
		// Unknown kinds carry no filtering semantics.
		return true
	}
}
