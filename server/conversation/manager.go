// Package conversation drives the scheduling negotiation across turns. The
// state machine is deterministic: every (state, input) pair maps to exactly
// one next state, and a turn either commits its whole effect or leaves the
// stored session untouched.
package conversation

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"github.com/schedwise/schedwise/plugin/dialogue"
	"github.com/schedwise/schedwise/plugin/timeparse"
	"github.com/schedwise/schedwise/server/availability"
	"github.com/schedwise/schedwise/server/calendar"
	"github.com/schedwise/schedwise/store"
)

// presentLimit is how many slot options one reply offers.
const presentLimit = 3

// defaultTitle names the created event when the user never gave one.
const defaultTitle = "Meeting"

// SlotOption is one presented meeting time. It carries presentation data
// only; internal constraint structures never leave the core.
type SlotOption struct {
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
	DurationMinutes int       `json:"durationMinutes"`
	Label           string    `json:"label"`
}

// Reply is the outcome of one conversational turn.
type Reply struct {
	Text      string                  `json:"text"`
	State     store.ConversationState `json:"state"`
	SessionID string                  `json:"sessionId"`
	Options   []SlotOption            `json:"options,omitempty"`
	Done      bool                    `json:"done,omitempty"`
}

// Manager owns conversation sessions and runs the state machine.
type Manager struct {
	store     *store.Store
	parser    *timeparse.Parser
	engine    *availability.Engine
	cal       calendar.Service
	extractor intentExtractor

	now        func() time.Time
	searchDays int
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithDialogueEngine enables LLM-assisted intent extraction. The rule path
// remains the fallback for every call.
func WithDialogueEngine(engine dialogue.Engine) ManagerOption {
	return func(m *Manager) {
		if engine != nil {
			m.extractor = &llmExtractor{engine: engine}
		}
	}
}

// WithNow injects the reference clock.
func WithNow(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

// WithSearchDays sets the default search horizon when no window is resolved.
func WithSearchDays(days int) ManagerOption {
	return func(m *Manager) { m.searchDays = days }
}

// NewManager wires the state machine to its collaborators.
func NewManager(st *store.Store, parser *timeparse.Parser, engine *availability.Engine, cal calendar.Service, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:      st,
		parser:     parser,
		engine:     engine,
		cal:        cal,
		extractor:  ruleExtractor{},
		now:        time.Now,
		searchDays: 7,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// StartSession opens a fresh idle session for a user.
func (m *Manager) StartSession(ctx context.Context, userID string) (*store.ConversationSession, error) {
	return m.store.CreateSession(ctx, userID)
}

// Session exposes a read-only snapshot of a session.
func (m *Manager) Session(ctx context.Context, id string) (*store.ConversationSession, error) {
	return m.store.GetSession(ctx, id)
}

// Stats summarizes the manager's current load.
type Stats struct {
	ActiveSessions int `json:"activeSessions"`
}

// Stats reports how many sessions are still negotiating.
func (m *Manager) Stats(ctx context.Context) (Stats, error) {
	sessions, err := m.store.ListActiveSessions(ctx)
	if err != nil {
		return Stats{}, err
	}
	return Stats{ActiveSessions: len(sessions)}, nil
}

// HandleTurn processes one user message. The session is mutated on a working
// copy and persisted once at the end; a lost session resets to a fresh one
// with an apology.
func (m *Manager) HandleTurn(ctx context.Context, sessionID, text string) (*Reply, error) {
	apology := ""
	session, err := m.store.GetSession(ctx, sessionID)
	if errors.Is(err, store.ErrSessionNotFound) {
		session, err = m.store.CreateSession(ctx, "")
		if err != nil {
			return nil, errors.Wrap(err, "failed to reset lost session")
		}
		apology = promptApologyReset
	} else if err != nil {
		return nil, errors.Wrapf(err, "failed to load session %s", sessionID)
	}

	working := session.Clone()
	if working.State.Terminal() {
		// A finished conversation starts over on the next message.
		working.Request = store.MeetingRequest{}
		working.State = store.StateIdle
	}

	reply := m.dispatch(ctx, working, text)
	reply.Text = apology + reply.Text
	reply.SessionID = working.ID

	working.State = reply.State
	working.AppendTurn(text, reply.Text, m.now().UTC())
	if err := m.store.SaveSession(ctx, working); err != nil {
		return nil, errors.Wrapf(err, "failed to persist session %s", working.ID)
	}

	slog.Debug("conversation turn handled",
		"session", working.ID, "state", reply.State.String(), "done", reply.Done)
	return reply, nil
}

// dispatch is the transition function. It is total: every state maps every
// input to exactly one reply and next state.
func (m *Manager) dispatch(ctx context.Context, working *store.ConversationSession, text string) *Reply {
	switch working.State {
	case store.StateIdle:
		return m.handleIdle(ctx, working, text)
	case store.StateWaitingForDuration:
		return m.handleWaitingForDuration(ctx, working, text)
	case store.StateWaitingForTime:
		return m.handleWaitingForTime(ctx, working, text)
	case store.StatePresentingOptions, store.StateWaitingForSelection:
		return m.handleSelection(ctx, working, text)
	case store.StateConfirmingDetails, store.StateCreatingEvent:
		return m.handleConfirming(ctx, working, text)
	default:
		working.Request = store.MeetingRequest{}
		return m.handleIdle(ctx, working, text)
	}
}

func (m *Manager) handleIdle(ctx context.Context, working *store.ConversationSession, text string) *Reply {
	if !hasSchedulingIntent(text) {
		return &Reply{Text: promptIdleGreeting, State: store.StateIdle}
	}

	// A front-loaded request ("schedule a 45 minute meeting tomorrow
	// morning") skips the gathering states it already answered.
	result := m.parser.ParseRequest(ctx, text)
	working.Request.Apply(patchFromResult(result))

	if working.Request.DurationMinutes == nil {
		return &Reply{Text: promptAskDuration, State: store.StateWaitingForDuration}
	}
	if working.Request.WindowStart == nil {
		return &Reply{Text: promptAskTime, State: store.StateWaitingForTime}
	}
	return m.findAndPresent(ctx, working)
}

func (m *Manager) handleWaitingForDuration(ctx context.Context, working *store.ConversationSession, text string) *Reply {
	minutes, ok := m.extractor.ExtractDuration(ctx, text)
	if !ok {
		return &Reply{Text: promptReAskDuration, State: store.StateWaitingForDuration}
	}
	working.Request.Apply(store.MeetingRequestPatch{DurationMinutes: &minutes})

	if working.Request.WindowStart != nil {
		return m.findAndPresent(ctx, working)
	}
	return &Reply{Text: promptAskTime, State: store.StateWaitingForTime}
}

func (m *Manager) handleWaitingForTime(ctx context.Context, working *store.ConversationSession, text string) *Reply {
	result := m.parser.ParseRequest(ctx, text)
	if result.NeedsClarification {
		return &Reply{Text: result.Clarification, State: store.StateWaitingForTime}
	}
	working.Request.Apply(patchFromResult(result))

	if working.Request.DurationMinutes == nil {
		return &Reply{Text: promptAskDuration, State: store.StateWaitingForDuration}
	}
	return m.findAndPresent(ctx, working)
}

// findAndPresent runs the availability search and offers up to presentLimit
// options. A calendar failure degrades to "cannot check availability" and
// never fabricates slots.
func (m *Manager) findAndPresent(ctx context.Context, working *store.ConversationSession) *Reply {
	req := &working.Request
	start, end := m.searchWindow(req)

	slots, err := m.engine.FindSlots(ctx, start, end, *req.DurationMinutes, req.Constraints)
	if err != nil {
		slog.Warn("availability search failed", "session", working.ID, "error", err)
		return &Reply{Text: promptCalendarUnavailable, State: store.StateWaitingForTime}
	}
	if len(slots) == 0 {
		return &Reply{Text: promptNoAvailability, State: store.StateWaitingForTime}
	}

	if len(slots) > presentLimit {
		slots = slots[:presentLimit]
	}
	req.AvailableSlots = slots
	req.SelectedSlot = nil

	options := optionsFromSlots(slots)
	return &Reply{
		Text:    promptPresentOptions(options),
		State:   store.StatePresentingOptions,
		Options: options,
	}
}

func (m *Manager) handleSelection(ctx context.Context, working *store.ConversationSession, text string) *Reply {
	slots := working.Request.AvailableSlots
	if len(slots) == 0 {
		// Nothing was presented; go back to gathering a time.
		return &Reply{Text: promptAskTime, State: store.StateWaitingForTime}
	}
	options := optionsFromSlots(slots)

	idx, ok := m.extractor.ExtractSelection(ctx, text, options)
	if !ok {
		return &Reply{
			Text:    promptSelectionRetry(options),
			State:   store.StatePresentingOptions,
			Options: options,
		}
	}

	selected := slots[idx]
	working.Request.Apply(store.MeetingRequestPatch{SelectedSlot: &selected})
	return &Reply{
		Text:  promptConfirm(selected.DurationMinutes, selected.Label()),
		State: store.StateConfirmingDetails,
	}
}

func (m *Manager) handleConfirming(ctx context.Context, working *store.ConversationSession, text string) *Reply {
	selected := working.Request.SelectedSlot
	if selected == nil {
		return &Reply{Text: promptAskTime, State: store.StateWaitingForTime}
	}

	confirmed, ok := m.extractor.ExtractConfirmation(ctx, text)
	if !ok {
		return &Reply{
			Text:  promptConfirm(selected.DurationMinutes, selected.Label()),
			State: store.StateConfirmingDetails,
		}
	}
	if !confirmed {
		working.Request.SelectedSlot = nil
		working.Request.AvailableSlots = nil
		return &Reply{Text: promptAskTime, State: store.StateWaitingForTime}
	}

	working.State = store.StateCreatingEvent
	title := working.Request.Title
	if title == "" {
		title = defaultTitle
	}
	_, err := m.cal.CreateEvent(ctx, calendar.EventInput{
		Title:       title,
		Description: working.Request.Description,
		Start:       selected.Start,
		End:         selected.End,
		Attendees:   working.Request.Attendees,
	})
	if err != nil {
		slog.Warn("event creation failed", "session", working.ID, "error", err)
		return &Reply{Text: promptCreateFailed, State: store.StateConfirmingDetails}
	}

	return &Reply{
		Text:  promptCompleted(selected.Label()),
		State: store.StateCompleted,
		Done:  true,
	}
}

// searchWindow resolves the request's window, falling back to the default
// horizon starting an hour from now.
func (m *Manager) searchWindow(req *store.MeetingRequest) (time.Time, time.Time) {
	if req.WindowStart != nil && req.WindowEnd != nil {
		return *req.WindowStart, *req.WindowEnd
	}
	now := m.now()
	return now.Add(time.Hour), now.AddDate(0, 0, m.searchDays)
}

// patchFromResult converts a parse result into a request patch. Windows and
// constraints are taken only from confident results.
func patchFromResult(result *timeparse.Result) store.MeetingRequestPatch {
	patch := store.MeetingRequestPatch{
		DurationMinutes: result.DurationMinutes,
	}
	if result.NeedsClarification || result.Confidence <= 0 {
		return patch
	}
	patch.Constraints = result.Constraints
	patch.WindowStart = result.Start
	patch.WindowEnd = result.End
	return patch
}

func optionsFromSlots(slots []availability.TimeSlot) []SlotOption {
	options := make([]SlotOption, len(slots))
	for i, slot := range slots {
		options[i] = SlotOption{
			Start:           slot.Start,
			End:             slot.End,
			DurationMinutes: slot.DurationMinutes,
			Label:           slot.Label(),
		}
	}
	return options
}
