package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/schedwise/schedwise/plugin/timeparse"
	"github.com/schedwise/schedwise/server/availability"
)

// ConversationState is the phase a scheduling conversation is in.
type ConversationState int32

const (
	StateIdle ConversationState = iota
	StateWaitingForDuration
	StateWaitingForTime
	StatePresentingOptions
	StateWaitingForSelection
	StateConfirmingDetails
	StateCreatingEvent
	StateCompleted
	StateError
)

var stateNames = map[ConversationState]string{
	StateIdle:                "IDLE",
	StateWaitingForDuration:  "WAITING_FOR_DURATION",
	StateWaitingForTime:      "WAITING_FOR_TIME",
	StatePresentingOptions:   "PRESENTING_OPTIONS",
	StateWaitingForSelection: "WAITING_FOR_SELECTION",
	StateConfirmingDetails:   "CONFIRMING_DETAILS",
	StateCreatingEvent:       "CREATING_EVENT",
	StateCompleted:           "COMPLETED",
	StateError:               "ERROR",
}

var stateValues = func() map[string]ConversationState {
	m := make(map[string]ConversationState, len(stateNames))
	for k, v := range stateNames {
		m[v] = k
	}
	return m
}()

func (s ConversationState) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

// Terminal reports whether the conversation is over.
func (s ConversationState) Terminal() bool {
	return s == StateCompleted || s == StateError
}

func (s ConversationState) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *ConversationState) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	v, ok := stateValues[name]
	if !ok {
		return fmt.Errorf("unknown conversation state %q", name)
	}
	*s = v
	return nil
}

// ConversationStateFromString parses a persisted state name.
func ConversationStateFromString(name string) (ConversationState, error) {
	v, ok := stateValues[name]
	if !ok {
		return StateIdle, fmt.Errorf("unknown conversation state %q", name)
	}
	return v, nil
}

// MeetingRequest accumulates the meeting being negotiated. Optional fields are
// pointers so "unset" and "zero" stay distinguishable across turns.
type MeetingRequest struct {
	DurationMinutes *int                    `json:"durationMinutes,omitempty"`
	Title           string                  `json:"title,omitempty"`
	Description     string                  `json:"description,omitempty"`
	Attendees       []string                `json:"attendees,omitempty"`
	Constraints     timeparse.ConstraintSet `json:"constraints,omitempty"`

	// WindowStart/WindowEnd is the resolved search window.
	WindowStart *time.Time `json:"windowStart,omitempty"`
	WindowEnd   *time.Time `json:"windowEnd,omitempty"`

	AvailableSlots []availability.TimeSlot `json:"availableSlots,omitempty"`
	SelectedSlot   *availability.TimeSlot  `json:"selectedSlot,omitempty"`
}

// MeetingRequestPatch is a set-if-provided update: nil fields leave the
// request untouched, non-nil fields overwrite, constraints merge.
type MeetingRequestPatch struct {
	DurationMinutes *int
	Title           *string
	Description     *string
	Attendees       []string
	Constraints     timeparse.ConstraintSet
	WindowStart     *time.Time
	WindowEnd       *time.Time
	AvailableSlots  []availability.TimeSlot
	SelectedSlot    *availability.TimeSlot
}

// Apply merges the patch into the request.
func (r *MeetingRequest) Apply(patch MeetingRequestPatch) {
	if patch.DurationMinutes != nil {
		r.DurationMinutes = patch.DurationMinutes
	}
	if patch.Title != nil {
		r.Title = *patch.Title
	}
	if patch.Description != nil {
		r.Description = *patch.Description
	}
	if patch.Attendees != nil {
		r.Attendees = patch.Attendees
	}
	for _, c := range patch.Constraints {
		r.Constraints = r.Constraints.Add(c)
	}
	if patch.WindowStart != nil {
		r.WindowStart = patch.WindowStart
	}
	if patch.WindowEnd != nil {
		r.WindowEnd = patch.WindowEnd
	}
	if patch.AvailableSlots != nil {
		r.AvailableSlots = patch.AvailableSlots
	}
	if patch.SelectedSlot != nil {
		r.SelectedSlot = patch.SelectedSlot
	}
}

// ConversationTurn is one user/agent exchange.
type ConversationTurn struct {
	UserText  string    `json:"userText"`
	AgentText string    `json:"agentText"`
	Timestamp time.Time `json:"timestamp"`
}

// ConversationSession is one scheduling conversation. History is append-only;
// UpdatedAt refreshes on every mutation.
type ConversationSession struct {
	ID        string             `json:"id"`
	UserID    string             `json:"userId"`
	State     ConversationState  `json:"state"`
	Request   MeetingRequest     `json:"request"`
	History   []ConversationTurn `json:"history"`
	CreatedAt time.Time          `json:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// AppendTurn records an exchange and refreshes UpdatedAt.
func (s *ConversationSession) AppendTurn(userText, agentText string, at time.Time) {
	s.History = append(s.History, ConversationTurn{
		UserText:  userText,
		AgentText: agentText,
		Timestamp: at,
	})
	s.UpdatedAt = at
}

// Clone deep-copies the session so a turn can mutate a working copy and
// persist it atomically.
func (s *ConversationSession) Clone() *ConversationSession {
	copied := *s
	copied.History = append([]ConversationTurn(nil), s.History...)
	copied.Request.Attendees = append([]string(nil), s.Request.Attendees...)
	copied.Request.Constraints = append(timeparse.ConstraintSet(nil), s.Request.Constraints...)
	copied.Request.AvailableSlots = append([]availability.TimeSlot(nil), s.Request.AvailableSlots...)
	if s.Request.SelectedSlot != nil {
		slot := *s.Request.SelectedSlot
		copied.Request.SelectedSlot = &slot
	}
	if s.Request.DurationMinutes != nil {
		d := *s.Request.DurationMinutes
		copied.Request.DurationMinutes = &d
	}
	if s.Request.WindowStart != nil {
		t := *s.Request.WindowStart
		copied.Request.WindowStart = &t
	}
	if s.Request.WindowEnd != nil {
		t := *s.Request.WindowEnd
		copied.Request.WindowEnd = &t
	}
	return &copied
}
