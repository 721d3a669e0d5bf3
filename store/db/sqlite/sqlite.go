package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	// Import the SQLite driver.
	_ "modernc.org/sqlite"

	"github.com/schedwise/schedwise/internal/profile"
	"github.com/schedwise/schedwise/store"
)

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens a SQLite-backed session store and ensures the schema exists.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile == nil {
		return nil, errors.New("profile is nil")
	}

	// WAL keeps the interactive loop responsive while the cleanup job runs.
	dsn := profile.DSN + "?_pragma=foreign_keys(0)&_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database: %s", profile.DSN)
	}

	driver := &DB{db: db, profile: profile}
	if err := driver.migrate(context.Background()); err != nil {
		return nil, errors.Wrap(err, "failed to migrate database")
	}
	return driver, nil
}

func (d *DB) migrate(ctx context.Context) error {
	_, err := d.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS conversation_session (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL DEFAULT '',
			state TEXT NOT NULL,
			meeting_request TEXT NOT NULL DEFAULT '{}',
			history TEXT NOT NULL DEFAULT '[]',
			created_ts BIGINT NOT NULL,
			updated_ts BIGINT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_conversation_session_updated_ts ON conversation_session (updated_ts);
	`)
	return err
}

func (d *DB) GetDB() *sql.DB {
	return d.db
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) CreateSession(ctx context.Context, session *store.ConversationSession) error {
	request, history, err := encodeSession(session)
	if err != nil {
		return err
	}
	_, err = d.db.ExecContext(ctx, `
		INSERT INTO conversation_session (id, user_id, state, meeting_request, history, created_ts, updated_ts)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, session.ID, session.UserID, session.State.String(), request, history,
		session.CreatedAt.Unix(), session.UpdatedAt.Unix())
	return err
}

func (d *DB) GetSession(ctx context.Context, id string) (*store.ConversationSession, error) {
	row := d.db.QueryRowContext(ctx, `
		SELECT id, user_id, state, meeting_request, history, created_ts, updated_ts
		FROM conversation_session WHERE id = ?
	`, id)
	session, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrSessionNotFound
	}
	return session, err
}

func (d *DB) SaveSession(ctx context.Context, session *store.ConversationSession) error {
	request, history, err := encodeSession(session)
	if err != nil {
		return err
	}
	result, err := d.db.ExecContext(ctx, `
		UPDATE conversation_session
		SET user_id = ?, state = ?, meeting_request = ?, history = ?, updated_ts = ?
		WHERE id = ?
	`, session.UserID, session.State.String(), request, history,
		session.UpdatedAt.Unix(), session.ID)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return store.ErrSessionNotFound
	}
	return nil
}

func (d *DB) DeleteSession(ctx context.Context, id string) error {
	_, err := d.db.ExecContext(ctx, `DELETE FROM conversation_session WHERE id = ?`, id)
	return err
}

func (d *DB) ListActiveSessions(ctx context.Context) ([]*store.ConversationSession, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, user_id, state, meeting_request, history, created_ts, updated_ts
		FROM conversation_session
		WHERE state NOT IN (?, ?)
		ORDER BY updated_ts DESC
	`, store.StateCompleted.String(), store.StateError.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*store.ConversationSession
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

func (d *DB) DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error) {
	result, err := d.db.ExecContext(ctx, `
		DELETE FROM conversation_session WHERE updated_ts < ?
	`, before.Unix())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func encodeSession(session *store.ConversationSession) (request, history string, err error) {
	requestBytes, err := json.Marshal(session.Request)
	if err != nil {
		return "", "", errors.Wrap(err, "failed to encode meeting request")
	}
	historyBytes, err := json.Marshal(session.History)
	if err != nil {
		return "", "", errors.Wrap(err, "failed to encode history")
	}
	return string(requestBytes), string(historyBytes), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*store.ConversationSession, error) {
	var session store.ConversationSession
	var stateName, request, history string
	var createdTs, updatedTs int64
	if err := row.Scan(&session.ID, &session.UserID, &stateName, &request, &history, &createdTs, &updatedTs); err != nil {
		return nil, err
	}

	state, err := store.ConversationStateFromString(stateName)
	if err != nil {
		return nil, err
	}
	session.State = state
	if err := json.Unmarshal([]byte(request), &session.Request); err != nil {
		return nil, errors.Wrap(err, "failed to decode meeting request")
	}
	if err := json.Unmarshal([]byte(history), &session.History); err != nil {
		return nil, errors.Wrap(err, "failed to decode history")
	}
	session.CreatedAt = time.Unix(createdTs, 0).UTC()
	session.UpdatedAt = time.Unix(updatedTs, 0).UTC()
	return &session, nil
}
