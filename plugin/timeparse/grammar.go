package timeparse

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// The grammar covers the date and clock expressions people actually type at
// a scheduling assistant. It is rule based and deterministic: each helper
// either recognizes its shape or reports no match, and the caller decides
// what a miss means.

var (
	clockRe = regexp.MustCompile(`(?i)\b(\d{1,2})(?::(\d{2}))?\s*(am|pm|a\.m\.|p\.m\.)\b`)
	// Bare 24h clock like "14:30"; never matched for a bare "14".
	clock24Re = regexp.MustCompile(`\b(\d{1,2}):(\d{2})\b`)

	monthDayRe = regexp.MustCompile(`(?i)\b(january|february|march|april|may|june|july|august|september|october|november|december|jan|feb|mar|apr|jun|jul|aug|sep|sept|oct|nov|dec)\s+(\d{1,2})(?:st|nd|rd|th)?\b`)
	dayMonthRe = regexp.MustCompile(`(?i)\b(\d{1,2})(?:st|nd|rd|th)?\s+(?:of\s+)?(january|february|march|april|may|june|july|august|september|october|november|december|jan|feb|mar|apr|jun|jul|aug|sep|sept|oct|nov|dec)\b`)

	numericDateRe = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
)

var monthNames = map[string]time.Month{
	"january": time.January, "jan": time.January,
	"february": time.February, "feb": time.February,
	"march": time.March, "mar": time.March,
	"april": time.April, "apr": time.April,
	"may":  time.May,
	"june": time.June, "jun": time.June,
	"july": time.July, "jul": time.July,
	"august": time.August, "aug": time.August,
	"september": time.September, "sep": time.September, "sept": time.September,
	"october": time.October, "oct": time.October,
	"november": time.November, "nov": time.November,
	"december": time.December, "dec": time.December,
}

// clockTime is a parsed wall-clock time of day.
type clockTime struct {
	hour   int
	minute int
}

// parseClockTime extracts the first clock time from text. It understands
// "2pm", "2:30 PM", "14:30". A bare number with no meridiem or colon is not
// a clock time.
func parseClockTime(text string) (clockTime, bool) {
	if m := clockRe.FindStringSubmatch(text); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute := 0
		if m[2] != "" {
			minute, _ = strconv.Atoi(m[2])
		}
		if hour < 1 || hour > 12 || minute > 59 {
			return clockTime{}, false
		}
		meridiem := strings.ToLower(strings.ReplaceAll(m[3], ".", ""))
		if meridiem == "pm" && hour != 12 {
			hour += 12
		}
		if meridiem == "am" && hour == 12 {
			hour = 0
		}
		return clockTime{hour: hour, minute: minute}, true
	}
	if m := clock24Re.FindStringSubmatch(text); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		if hour > 23 || minute > 59 {
			return clockTime{}, false
		}
		return clockTime{hour: hour, minute: minute}, true
	}
	return clockTime{}, false
}

// dayPart maps vague day references to a default start hour.
type dayPart struct {
	name      string
	startHour int
	endHour   int
}

var dayParts = []dayPart{
	{"early morning", 7, 9},
	{"late morning", 10, 12},
	{"morning", 9, 12},
	{"early afternoon", 12, 14},
	{"late afternoon", 15, 17},
	{"afternoon", 12, 17},
	{"evening", 17, 20},
	{"night", 20, 22},
	{"noon", 12, 13},
	{"midday", 12, 13},
	{"lunch", 12, 13},
	{"end of day", 16, 17},
	{"eod", 16, 17},
}

// parseDayPart finds a vague day-part reference ("morning", "late afternoon").
// Longer names are checked first so "late afternoon" wins over "afternoon".
func parseDayPart(text string) (dayPart, bool) {
	lower := strings.ToLower(text)
	for _, dp := range dayParts {
		if strings.Contains(lower, dp.name) {
			return dp, true
		}
	}
	return dayPart{}, false
}

// parseCalendarDate extracts an explicit calendar date from text. A month-day
// already past this year rolls over to next year.
func parseCalendarDate(text string, now time.Time) (time.Time, bool) {
	loc := now.Location()

	if m := numericDateRe.FindStringSubmatch(text); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		if month >= 1 && month <= 12 && day >= 1 && day <= 31 {
			return time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc), true
		}
	}

	var monthName string
	var day int
	if m := monthDayRe.FindStringSubmatch(text); m != nil {
		monthName = m[1]
		day, _ = strconv.Atoi(m[2])
	} else if m := dayMonthRe.FindStringSubmatch(text); m != nil {
		day, _ = strconv.Atoi(m[1])
		monthName = m[2]
	} else {
		return time.Time{}, false
	}

	month, ok := monthNames[strings.ToLower(monthName)]
	if !ok || day < 1 || day > 31 {
		return time.Time{}, false
	}

	candidate := time.Date(now.Year(), month, day, 0, 0, 0, 0, loc)
	if candidate.Before(midnight(now)) {
		candidate = candidate.AddDate(1, 0, 0)
	}
	return candidate, true
}

// parseRelativeDay resolves "today" and "tomorrow".
func parseRelativeDay(text string, now time.Time) (time.Time, bool) {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "tomorrow"):
		return midnight(now).AddDate(0, 0, 1), true
	case strings.Contains(lower, "today"):
		return midnight(now), true
	}
	return time.Time{}, false
}

// findWeekdayMention returns the first weekday named in text along with
// whether it was qualified by "next" or "this".
func findWeekdayMention(text string) (day time.Weekday, qualifier string, ok bool) {
	lower := strings.ToLower(text)
	words := strings.Fields(lower)
	for i, w := range words {
		w = strings.Trim(w, ".,!?;:")
		d, isDay := parseWeekday(w)
		if !isDay {
			continue
		}
		if i > 0 {
			prev := strings.Trim(words[i-1], ".,!?;:")
			if prev == "next" || prev == "this" {
				return d, prev, true
			}
		}
		return d, "", true
	}
	return 0, "", false
}
