package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
)

// ErrSessionNotFound is returned when a session id resolves to nothing.
var ErrSessionNotFound = errors.New("session not found")

// Driver is the persistence contract for conversation sessions.
// It contains all methods a store database driver should implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	// ConversationSession model related methods.
	CreateSession(ctx context.Context, session *ConversationSession) error
	GetSession(ctx context.Context, id string) (*ConversationSession, error)
	SaveSession(ctx context.Context, session *ConversationSession) error
	DeleteSession(ctx context.Context, id string) error
	ListActiveSessions(ctx context.Context) ([]*ConversationSession, error)

	// DeleteExpiredSessions removes sessions last touched before the cutoff
	// and reports how many were deleted.
	DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error)
}
