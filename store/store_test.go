package store

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/schedwise/schedwise/plugin/timeparse"
	"github.com/schedwise/schedwise/server/availability"
)

// fakeDriver keeps sessions in a map and counts concurrent writers per id.
type fakeDriver struct {
	mu       sync.Mutex
	sessions map[string]*ConversationSession

	writing     map[string]int
	maxParallel int
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{
		sessions: map[string]*ConversationSession{},
		writing:  map[string]int{},
	}
}

func (d *fakeDriver) GetDB() *sql.DB { return nil }
func (d *fakeDriver) Close() error   { return nil }

func (d *fakeDriver) enterWrite(id string) {
	d.mu.Lock()
	d.writing[id]++
	if d.writing[id] > d.maxParallel {
		d.maxParallel = d.writing[id]
	}
	d.mu.Unlock()
	// Give overlapping writers a chance to collide.
	time.Sleep(time.Millisecond)
	d.mu.Lock()
	d.writing[id]--
	d.mu.Unlock()
}

func (d *fakeDriver) CreateSession(_ context.Context, session *ConversationSession) error {
	d.enterWrite(session.ID)
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sessions[session.ID] = session.Clone()
	return nil
}

func (d *fakeDriver) GetSession(_ context.Context, id string) (*ConversationSession, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	session, ok := d.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session.Clone(), nil
}

func (d *fakeDriver) SaveSession(_ context.Context, session *ConversationSession) error {
	d.enterWrite(session.ID)
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.sessions[session.ID]; !ok {
		return ErrSessionNotFound
	}
	d.sessions[session.ID] = session.Clone()
	return nil
}

func (d *fakeDriver) DeleteSession(_ context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.sessions, id)
	return nil
}

func (d *fakeDriver) ListActiveSessions(_ context.Context) ([]*ConversationSession, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []*ConversationSession
	for _, s := range d.sessions {
		if !s.State.Terminal() {
			out = append(out, s.Clone())
		}
	}
	return out, nil
}

func (d *fakeDriver) DeleteExpiredSessions(_ context.Context, before time.Time) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var n int64
	for id, s := range d.sessions {
		if s.UpdatedAt.Before(before) {
			delete(d.sessions, id)
			n++
		}
	}
	return n, nil
}

func TestStoreSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New(newFakeDriver(), nil)

	session, err := s.CreateSession(ctx, "user-1")
	require.NoError(t, err)
	require.NotEmpty(t, session.ID)
	require.Equal(t, StateIdle, session.State)

	session.State = StateWaitingForDuration
	session.AppendTurn("schedule a meeting", "How long should it be?", time.Now().UTC())
	require.NoError(t, s.SaveSession(ctx, session))

	loaded, err := s.GetSession(ctx, session.ID)
	require.NoError(t, err)
	require.Equal(t, StateWaitingForDuration, loaded.State)
	require.Len(t, loaded.History, 1)

	require.NoError(t, s.DeleteSession(ctx, session.ID))
	_, err = s.GetSession(ctx, session.ID)
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestStoreGetSessionReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := New(newFakeDriver(), nil)

	session, err := s.CreateSession(ctx, "user-1")
	require.NoError(t, err)

	first, err := s.GetSession(ctx, session.ID)
	require.NoError(t, err)
	first.State = StateError
	first.AppendTurn("x", "y", time.Now())

	second, err := s.GetSession(ctx, session.ID)
	require.NoError(t, err)
	require.Equal(t, StateIdle, second.State)
	require.Empty(t, second.History)
}

func TestStoreSerializesWritesPerSession(t *testing.T) {
	ctx := context.Background()
	driver := newFakeDriver()
	s := New(driver, nil)

	session, err := s.CreateSession(ctx, "user-1")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			copied := session.Clone()
			copied.UpdatedAt = time.Now().UTC()
			_ = s.SaveSession(ctx, copied)
		}()
	}
	wg.Wait()

	require.Equal(t, 1, driver.maxParallel, "writes to one session must never overlap")
}

func TestStoreDeleteExpiredSessions(t *testing.T) {
	ctx := context.Background()
	driver := newFakeDriver()
	s := New(driver, nil)

	old, err := s.CreateSession(ctx, "user-1")
	require.NoError(t, err)
	old.UpdatedAt = time.Now().UTC().Add(-30 * 24 * time.Hour)
	require.NoError(t, s.SaveSession(ctx, old))

	fresh, err := s.CreateSession(ctx, "user-2")
	require.NoError(t, err)

	n, err := s.DeleteExpiredSessions(ctx, 7*24*time.Hour)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	_, err = s.GetSession(ctx, old.ID)
	require.ErrorIs(t, err, ErrSessionNotFound)
	_, err = s.GetSession(ctx, fresh.ID)
	require.NoError(t, err)
}

func TestMeetingRequestApply(t *testing.T) {
	var r MeetingRequest

	duration := 30
	title := "Design review"
	r.Apply(MeetingRequestPatch{DurationMinutes: &duration, Title: &title})
	require.Equal(t, 30, *r.DurationMinutes)
	require.Equal(t, "Design review", r.Title)

	// Unset fields never clobber.
	r.Apply(MeetingRequestPatch{Attendees: []string{"jordan"}})
	require.Equal(t, 30, *r.DurationMinutes)
	require.Equal(t, "Design review", r.Title)
	require.Equal(t, []string{"jordan"}, r.Attendees)

	// Constraints merge by kind.
	r.Apply(MeetingRequestPatch{Constraints: timeparse.ConstraintSet{timeparse.NotBefore(10)}})
	r.Apply(MeetingRequestPatch{Constraints: timeparse.ConstraintSet{timeparse.NotBefore(11), timeparse.WeekdaysOnly()}})
	require.Len(t, r.Constraints, 2)
	nb, _ := r.Constraints.Get(timeparse.KindNotBefore)
	require.Equal(t, 11, nb.Hour)

	slot := availability.TimeSlot{
		Start:           time.Date(2025, 12, 16, 14, 0, 0, 0, time.UTC),
		End:             time.Date(2025, 12, 16, 14, 30, 0, 0, time.UTC),
		DurationMinutes: 30,
	}
	r.Apply(MeetingRequestPatch{SelectedSlot: &slot})
	require.Equal(t, slot, *r.SelectedSlot)
}

func TestConversationStateJSON(t *testing.T) {
	for state, name := range map[ConversationState]string{
		StateIdle:              "IDLE",
		StatePresentingOptions: "PRESENTING_OPTIONS",
		StateCompleted:         "COMPLETED",
	} {
		parsed, err := ConversationStateFromString(name)
		require.NoError(t, err)
		require.Equal(t, state, parsed)
	}

	_, err := ConversationStateFromString("NOPE")
	require.Error(t, err)

	require.True(t, StateCompleted.Terminal())
	require.True(t, StateError.Terminal())
	require.False(t, StatePresentingOptions.Terminal())
}
