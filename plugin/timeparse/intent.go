package timeparse

import "time"

// Result is the outcome of parsing one temporal expression. Start/End bound
// the search window when the expression pinned one down; both nil means the
// caller should fall back to its default window. Constraints further restrict
// candidate slots inside the window.
type Result struct {
	Start *time.Time    `json:"start,omitempty"`
	End   *time.Time    `json:"end,omitempty"`
	// DurationMinutes is set when the text itself carried a duration phrase
	// ("a 45 minute sync").
	DurationMinutes *int          `json:"durationMinutes,omitempty"`
	Constraints     ConstraintSet `json:"constraints,omitempty"`

	// Confidence in [0, 1]. Zero means nothing was understood.
	Confidence float64 `json:"confidence"`

	// Strategy names the rule that produced the result, for logging.
	Strategy string `json:"strategy,omitempty"`

	// NeedsClarification is set when the expression was recognized but could
	// not be resolved, with Clarification holding the question to ask.
	NeedsClarification bool   `json:"needsClarification,omitempty"`
	Clarification      string `json:"clarification,omitempty"`
}

// Window returns the search window, or ok=false when the result carries none.
func (r *Result) Window() (start, end time.Time, ok bool) {
	if r.Start == nil || r.End == nil {
		return time.Time{}, time.Time{}, false
	}
	return *r.Start, *r.End, true
}

func timePtr(t time.Time) *time.Time { return &t }

func intPtr(n int) *int { return &n }
