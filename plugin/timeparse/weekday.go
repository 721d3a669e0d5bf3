package timeparse

import (
	"strings"
	"time"
)

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
	"sun":       time.Sunday,
	"mon":       time.Monday,
	"tue":       time.Tuesday,
	"tues":      time.Tuesday,
	"wed":       time.Wednesday,
	"thu":       time.Thursday,
	"thur":      time.Thursday,
	"thurs":     time.Thursday,
	"fri":       time.Friday,
	"sat":       time.Saturday,
}

// parseWeekday resolves a weekday name or common abbreviation.
func parseWeekday(s string) (time.Weekday, bool) {
	d, ok := weekdayNames[strings.ToLower(strings.TrimSpace(s))]
	return d, ok
}

// isoWeekday maps Go's Sunday-first weekday to ISO numbering (Mon=1..Sun=7).
func isoWeekday(d time.Weekday) int {
	if d == time.Sunday {
		return 7
	}
	return int(d)
}

// upcomingWeekday returns the date of the next occurrence of target strictly
// after today. "this Tuesday" and a bare "Tuesday" both resolve here: if
// today is the target weekday, the occurrence one week out is returned.
func upcomingWeekday(now time.Time, target time.Weekday) time.Time {
	offset := int(target) - int(now.Weekday())
	if offset <= 0 {
		offset += 7
	}
	return midnight(now).AddDate(0, 0, offset)
}

// nextWeekday returns the occurrence of target in the calendar week after the
// current one, where weeks run Monday through Sunday. On a Wednesday, "next
// Tuesday" is six days out even though an earlier Tuesday exists in between.
func nextWeekday(now time.Time, target time.Weekday) time.Time {
	daysUntilNextMonday := 8 - isoWeekday(now.Weekday())
	return midnight(now).AddDate(0, 0, daysUntilNextMonday+isoWeekday(target)-1)
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
