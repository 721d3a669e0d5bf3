package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/schedwise/schedwise/plugin/dialogue"
	"github.com/schedwise/schedwise/plugin/timeparse"
)

// intentExtractor pulls structured answers out of free text. Two
// implementations exist: a deterministic rule extractor and an LLM-assisted
// one that falls back to the rules on any failure. The state machine treats
// them identically, so the conversation reads the same either way.
type intentExtractor interface {
	ExtractDuration(ctx context.Context, text string) (minutes int, ok bool)
	ExtractConfirmation(ctx context.Context, text string) (confirmed, ok bool)
	ExtractSelection(ctx context.Context, text string, options []SlotOption) (index int, ok bool)
}

// ruleExtractor is the deterministic fallback path. It is complete on its
// own: the machine must behave identically with no dialogue engine at all.
type ruleExtractor struct{}

func (ruleExtractor) ExtractDuration(_ context.Context, text string) (int, bool) {
	return timeparse.ParseDurationPhrase(text)
}

func (ruleExtractor) ExtractConfirmation(_ context.Context, text string) (bool, bool) {
	return parseConfirmation(text)
}

func (ruleExtractor) ExtractSelection(_ context.Context, text string, options []SlotOption) (int, bool) {
	return parseSelection(text, options)
}

// llmExtractor asks the dialogue engine with a JSON-constrained prompt and
// verifies the answer; anything unexpected falls back to the rules.
type llmExtractor struct {
	engine   dialogue.Engine
	fallback ruleExtractor
}

const durationExtractionPrompt = `Extract the meeting duration from the user's message.
Reply with JSON only, no prose: {"minutes": <integer>} or {"minutes": null} if no duration is stated.
User message: %q`

const confirmationExtractionPrompt = `The user was asked a yes/no question about booking a meeting.
Classify their reply. Reply with JSON only, no prose: {"confirmed": true}, {"confirmed": false}, or {"confirmed": null} if unclear.
User message: %q`

const selectionExtractionPrompt = `The user was offered these meeting time options:
%s
Which option did they pick? Reply with JSON only, no prose: {"option": <1-based integer>} or {"option": null} if unclear.
User message: %q`

func (e *llmExtractor) ExtractDuration(ctx context.Context, text string) (int, bool) {
	raw, err := e.engine.Generate(ctx, fmt.Sprintf(durationExtractionPrompt, text))
	if err != nil {
		slog.Debug("duration extraction fell back to rules", "error", err)
		return e.fallback.ExtractDuration(ctx, text)
	}
	var parsed struct {
		Minutes *int `json:"minutes"`
	}
	if err := json.Unmarshal([]byte(cleanJSON(raw)), &parsed); err != nil || parsed.Minutes == nil || *parsed.Minutes <= 0 {
		return e.fallback.ExtractDuration(ctx, text)
	}
	return *parsed.Minutes, true
}

func (e *llmExtractor) ExtractConfirmation(ctx context.Context, text string) (bool, bool) {
	raw, err := e.engine.Generate(ctx, fmt.Sprintf(confirmationExtractionPrompt, text))
	if err != nil {
		slog.Debug("confirmation extraction fell back to rules", "error", err)
		return e.fallback.ExtractConfirmation(ctx, text)
	}
	var parsed struct {
		Confirmed *bool `json:"confirmed"`
	}
	if err := json.Unmarshal([]byte(cleanJSON(raw)), &parsed); err != nil || parsed.Confirmed == nil {
		return e.fallback.ExtractConfirmation(ctx, text)
	}
	return *parsed.Confirmed, true
}

func (e *llmExtractor) ExtractSelection(ctx context.Context, text string, options []SlotOption) (int, bool) {
	var list strings.Builder
	writeOptionList(&list, options)

	raw, err := e.engine.Generate(ctx, fmt.Sprintf(selectionExtractionPrompt, list.String(), text))
	if err != nil {
		slog.Debug("selection extraction fell back to rules", "error", err)
		return e.fallback.ExtractSelection(ctx, text, options)
	}
	var parsed struct {
		Option *int `json:"option"`
	}
	if err := json.Unmarshal([]byte(cleanJSON(raw)), &parsed); err != nil ||
		parsed.Option == nil || *parsed.Option < 1 || *parsed.Option > len(options) {
		return e.fallback.ExtractSelection(ctx, text, options)
	}
	return *parsed.Option - 1, true
}

// cleanJSON strips markdown fences some models wrap around JSON answers.
func cleanJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	return strings.TrimSpace(raw)
}
