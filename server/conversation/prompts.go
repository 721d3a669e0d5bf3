package conversation

import (
	"fmt"
	"strings"
)

// Every user-visible prompt lives here as a fixed template. Both the
// rule-based and the LLM-assisted extraction paths answer through these same
// templates, so the externally observable conversation is identical
// regardless of which path ran.

const (
	promptIdleGreeting = "I can help you schedule meetings. Just tell me you'd like to set one up — for example, \"schedule a 30 minute meeting\"."

	promptAskDuration   = "How long should the meeting be? For example, 30 minutes or 1 hour."
	promptReAskDuration = "Sorry, I didn't catch a duration. How long should the meeting be — say, 30 minutes or an hour?"

	promptAskTime = "When would you like to meet? You can say things like \"tomorrow afternoon\" or \"next Tuesday at 2pm\"."

	promptNoAvailability = "I couldn't find any open times matching that. Would you like to try different days, a shorter meeting, or fewer restrictions?"

	promptCalendarUnavailable = "I can't reach your calendar right now, so I can't check availability. Let's try again in a moment."

	promptCreateFailed = "I couldn't create the event on your calendar just now. Shall I try booking it again?"

	promptApologyReset = "Sorry, I lost track of our conversation, so let's start over. "
)

func promptPresentOptions(options []SlotOption) string {
	var b strings.Builder
	b.WriteString("Here's what I found:\n")
	writeOptionList(&b, options)
	b.WriteString("Which option works best for you?")
	return b.String()
}

func promptSelectionRetry(options []SlotOption) string {
	var b strings.Builder
	b.WriteString("Sorry, I didn't catch that. Please pick one of these by number:\n")
	writeOptionList(&b, options)
	return strings.TrimRight(b.String(), "\n")
}

func writeOptionList(b *strings.Builder, options []SlotOption) {
	for i, opt := range options {
		fmt.Fprintf(b, "%d. %s\n", i+1, opt.Label)
	}
}

func promptConfirm(durationMinutes int, label string) string {
	return fmt.Sprintf("You'd like a %d-minute meeting on %s. Shall I book it?", durationMinutes, label)
}

func promptCompleted(label string) string {
	return fmt.Sprintf("Done! Your meeting is booked for %s.", label)
}
