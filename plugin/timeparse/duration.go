package timeparse

import (
	"regexp"
	"strconv"
	"strings"
)

// Duration phrases are extracted before any date/time parsing so that
// "30 minutes" never gets misread as a clock time. The pattern requires a
// unit word, so bare clock expressions like "6 pm" never match.
var (
	durationMinutesRe = regexp.MustCompile(`(?i)\b(\d+)\s*(?:minutes?|mins?|m)\b`)
	durationHoursRe   = regexp.MustCompile(`(?i)\b(\d+(?:\.\d+)?)\s*(?:hours?|hrs?|h)\b`)
	durationHalfRe    = regexp.MustCompile(`(?i)\b(?:half\s+an?\s+hour|half[- ]hour)\b`)
	durationQuarterRe = regexp.MustCompile(`(?i)\b(?:quarter\s+(?:of\s+an?\s+)?hour|quarter[- ]hour)\b`)
	durationHalfDayRe = regexp.MustCompile(`(?i)\bhalf\s+(?:a\s+)?day\b`)
)

// ParseDurationPhrase extracts a meeting duration in minutes from free text.
// Returns (minutes, true) when a duration phrase is present.
func ParseDurationPhrase(text string) (int, bool) {
	lower := strings.ToLower(text)

	if m := durationMinutesRe.FindStringSubmatch(lower); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil && n > 0 {
			return n, true
		}
	}
	if m := durationHoursRe.FindStringSubmatch(lower); m != nil {
		f, err := strconv.ParseFloat(m[1], 64)
		if err == nil && f > 0 {
			return int(f * 60), true
		}
	}
	if durationHalfDayRe.MatchString(lower) {
		return 4 * 60, true
	}
	if durationHalfRe.MatchString(lower) {
		return 30, true
	}
	if durationQuarterRe.MatchString(lower) {
		return 15, true
	}
	return 0, false
}

// stripDurationPhrase removes the matched duration phrase so downstream
// strategies do not trip over the number.
func stripDurationPhrase(text string) string {
	for _, re := range []*regexp.Regexp{
		durationMinutesRe, durationHoursRe, durationHalfDayRe, durationHalfRe, durationQuarterRe,
	} {
		text = re.ReplaceAllString(text, " ")
	}
	return strings.Join(strings.Fields(text), " ")
}
