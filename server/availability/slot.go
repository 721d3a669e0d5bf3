package availability

import (
	"time"

	"github.com/schedwise/schedwise/server/timezone"
)

// TimeSlot is one proposed meeting time.
type TimeSlot struct {
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
	DurationMinutes int       `json:"durationMinutes"`
}

// Label renders the slot for presentation, e.g.
// "Tuesday, December 16 at 2:00 PM - 2:30 PM".
func (s TimeSlot) Label() string {
	return timezone.FormatSlotRange(s.Start, s.End)
}
