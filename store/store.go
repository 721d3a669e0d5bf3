package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/schedwise/schedwise/internal/profile"
)

// Store provides access to conversation sessions. Writes to the same session
// are serialized through a per-session lock while unrelated sessions proceed
// in parallel; a small in-process cache keeps reads of a just-written session
// consistent regardless of driver latency.
type Store struct {
	profile *profile.Profile
	driver  Driver

	mu    sync.Mutex
	locks map[string]*sync.Mutex
	cache sync.Map // session id -> *ConversationSession
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		profile: profile,
		driver:  driver,
		locks:   map[string]*sync.Mutex{},
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Close() error {
	return s.driver.Close()
}

// sessionLock returns the mutex guarding one session id. Locks are never
// removed; the id space is bounded by the retention sweep.
func (s *Store) sessionLock(id string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

// CreateSession starts a new idle session for a user.
func (s *Store) CreateSession(ctx context.Context, userID string) (*ConversationSession, error) {
	now := time.Now().UTC()
	session := &ConversationSession{
		ID:        uuid.NewString(),
		UserID:    userID,
		State:     StateIdle,
		CreatedAt: now,
		UpdatedAt: now,
	}
	l := s.sessionLock(session.ID)
	l.Lock()
	defer l.Unlock()

	if err := s.driver.CreateSession(ctx, session); err != nil {
		return nil, errors.Wrap(err, "failed to create session")
	}
	s.cache.Store(session.ID, session.Clone())
	return session.Clone(), nil
}

// GetSession loads a session, preferring the in-process copy.
func (s *Store) GetSession(ctx context.Context, id string) (*ConversationSession, error) {
	if cached, ok := s.cache.Load(id); ok {
		return cached.(*ConversationSession).Clone(), nil
	}
	session, err := s.driver.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cache.Store(id, session.Clone())
	return session, nil
}

// SaveSession persists a session snapshot.
func (s *Store) SaveSession(ctx context.Context, session *ConversationSession) error {
	l := s.sessionLock(session.ID)
	l.Lock()
	defer l.Unlock()

	if err := s.driver.SaveSession(ctx, session); err != nil {
		return errors.Wrapf(err, "failed to save session %s", session.ID)
	}
	s.cache.Store(session.ID, session.Clone())
	return nil
}

// DeleteSession removes a session.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	l := s.sessionLock(id)
	l.Lock()
	defer l.Unlock()

	s.cache.Delete(id)
	return s.driver.DeleteSession(ctx, id)
}

// ListActiveSessions returns sessions not yet in a terminal state.
func (s *Store) ListActiveSessions(ctx context.Context) ([]*ConversationSession, error) {
	return s.driver.ListActiveSessions(ctx)
}

// DeleteExpiredSessions removes sessions idle longer than the retention
// period and reports how many were removed.
func (s *Store) DeleteExpiredSessions(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-retention)
	n, err := s.driver.DeleteExpiredSessions(ctx, cutoff)
	if err != nil {
		return 0, errors.Wrap(err, "failed to delete expired sessions")
	}
	// Drop cached copies that are gone from the driver.
	s.cache.Range(func(key, value any) bool {
		if value.(*ConversationSession).UpdatedAt.Before(cutoff) {
			s.cache.Delete(key)
		}
		return true
	})
	return n, nil
}
