package conversation

import (
	"strings"
	"unicode"
)

// Scheduling-intent detection at Idle is deliberately a keyword scan: cheap,
// deterministic, and easy to audit.
var schedulingKeywords = []string{
	"schedule",
	"meeting",
	"book",
	"calendar",
	"find time",
	"find a time",
	"set up",
	"available",
	"availability",
	"appointment",
}

// hasSchedulingIntent reports whether the text asks to schedule something.
func hasSchedulingIntent(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range schedulingKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

var affirmativeWords = map[string]bool{
	"yes": true, "yeah": true, "yep": true, "yup": true, "sure": true,
	"ok": true, "okay": true, "confirm": true, "perfect": true,
	"great": true, "affirmative": true, "correct": true,
}

var affirmativePhrases = []string{
	"sounds good", "sound good", "book it", "go ahead", "please do", "do it",
}

var negativeWords = map[string]bool{
	"no": true, "nope": true, "nah": true, "not": true, "don't": true,
	"dont": true, "cancel": true, "negative": true, "wrong": true,
	"different": true,
}

var negativePhrases = []string{
	"do not", "something else",
}

// parseConfirmation classifies a reply to a yes/no question. recognized is
// false when the text is neither; negatives win when both appear ("no, not
// that one").
func parseConfirmation(text string) (confirmed, recognized bool) {
	lower := strings.ToLower(text)
	tokens := strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})

	for _, p := range negativePhrases {
		if strings.Contains(lower, p) {
			return false, true
		}
	}
	for _, tok := range tokens {
		if negativeWords[tok] {
			return false, true
		}
	}
	for _, p := range affirmativePhrases {
		if strings.Contains(lower, p) {
			return true, true
		}
	}
	for _, tok := range tokens {
		if affirmativeWords[tok] {
			return true, true
		}
	}
	return false, false
}
