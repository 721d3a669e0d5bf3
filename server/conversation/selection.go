package conversation

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	selectionNumberRe = regexp.MustCompile(`\b(\d+)\b`)

	ordinalWords = map[string]int{
		"first": 1, "second": 2, "third": 3,
		"1st": 1, "2nd": 2, "3rd": 3,
	}

	selectionWeekdays = []string{
		"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday",
	}
)

// parseSelection resolves the user's pick among the presented options and
// returns its zero-based index. It accepts a 1-based number, an ordinal word,
// or a weekday name matched against the option labels; a weekday resolves
// only when it identifies exactly one option.
func parseSelection(text string, options []SlotOption) (int, bool) {
	if len(options) == 0 {
		return 0, false
	}
	lower := strings.ToLower(text)

	if m := selectionNumberRe.FindStringSubmatch(lower); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil && n >= 1 && n <= len(options) {
			return n - 1, true
		}
		return 0, false
	}

	for word, n := range ordinalWords {
		if strings.Contains(lower, word) && n <= len(options) {
			return n - 1, true
		}
	}

	for _, day := range selectionWeekdays {
		if !strings.Contains(lower, day) {
			continue
		}
		match := -1
		for i, opt := range options {
			if strings.Contains(strings.ToLower(opt.Label), day) {
				if match >= 0 {
					// Ambiguous: the day appears in more than one option.
					match = -1
					break
				}
				match = i
			}
		}
		if match >= 0 {
			return match, true
		}
	}

	return 0, false
}
