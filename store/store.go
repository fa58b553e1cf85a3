// Package store persists tutoring sessions and their transcripts in sqlite.
// A session is titled after its first user message and floats to the top of
// the listing whenever a message is appended.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrSessionNotFound is returned for operations on a session id that does not
// exist (or no longer exists).
var ErrSessionNotFound = errors.New("session not found")

// titleRuneLimit caps session titles derived from the first user message.
const titleRuneLimit = 50

const (
	RoleUser  = "user"
	RoleModel = "model"
)

type Session struct {
	ID               string
	LearningLanguage string
	UserID           string
	Title            string
	CreatedAt        time.Time
	UpdatedAt        time.Time
	Messages         []Message
}

type Message struct {
	ID        string
	SessionID string
	Role      string
	Content   string
	CreatedAt time.Time
}

// SessionSummary is a listing row: the session plus a preview of its most
// recent message.
type SessionSummary struct {
	ID               string
	LearningLanguage string
	UserID           string
	Title            string
	UpdatedAt        time.Time
	LastMessage      string
}

// Turn is one entry of a session's conversation history, shaped for replay
// into the tutor client.
type Turn struct {
	Role string
	Text string
}

type Store struct {
	db *sql.DB

	now func() time.Time
}

// Open opens (creating if necessary) the sqlite database at path and applies
// the schema. Foreign keys are enabled through the DSN so every pooled
// connection enforces them, not just the one that ran the migration.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db, now: time.Now}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			learning_language TEXT NOT NULL,
			user_id TEXT NOT NULL DEFAULT '',
			title TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, created_at);`,
	}
	for _, q := range stmts {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

// CreateSession starts a new, untitled session. userID may be empty for
// anonymous practice.
func (s *Store) CreateSession(ctx context.Context, learningLanguage, userID string) (*Session, error) {
	if learningLanguage == "" {
		learningLanguage = "en"
	}

	session := &Session{
		ID:               uuid.NewString(),
		LearningLanguage: learningLanguage,
		UserID:           userID,
		CreatedAt:        s.now(),
		UpdatedAt:        s.now(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions(id, learning_language, user_id, created_at, updated_at) VALUES(?,?,?,?,?)`,
		session.ID, session.LearningLanguage, session.UserID,
		session.CreatedAt.UnixNano(), session.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return session, nil
}

// GetSession returns the session and all of its messages, oldest first.
func (s *Store) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	session := &Session{ID: sessionID}

	var createdAt, updatedAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT learning_language, user_id, title, created_at, updated_at FROM sessions WHERE id = ?`,
		sessionID,
	).Scan(&session.LearningLanguage, &session.UserID, &session.Title, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	session.CreatedAt = time.Unix(0, createdAt)
	session.UpdatedAt = time.Unix(0, updatedAt)

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, role, content, created_at FROM messages WHERE session_id = ? ORDER BY created_at ASC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		message := Message{SessionID: sessionID}
		var messageCreatedAt int64
		if err := rows.Scan(&message.ID, &message.Role, &message.Content, &messageCreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		message.CreatedAt = time.Unix(0, messageCreatedAt)
		session.Messages = append(session.Messages, message)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	return session, nil
}

// ListSessions returns session summaries, most recently active first. A
// non-empty userID restricts the listing to that user's sessions.
func (s *Store) ListSessions(ctx context.Context, userID string) ([]SessionSummary, error) {
	query := `SELECT s.id, s.learning_language, s.user_id, s.title, s.updated_at,
			COALESCE((SELECT m.content FROM messages m
				WHERE m.session_id = s.id ORDER BY m.created_at DESC LIMIT 1), '')
		FROM sessions s`
	args := []any{}
	if userID != "" {
		query += ` WHERE s.user_id = ?`
		args = append(args, userID)
	}
	query += ` ORDER BY s.updated_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var summaries []SessionSummary
	for rows.Next() {
		var summary SessionSummary
		var updatedAt int64
		if err := rows.Scan(&summary.ID, &summary.LearningLanguage, &summary.UserID,
			&summary.Title, &updatedAt, &summary.LastMessage); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		summary.UpdatedAt = time.Unix(0, updatedAt)
		summaries = append(summaries, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return summaries, nil
}

// AppendMessage records one conversation turn. The first user message titles
// the session, and every append bumps the session's activity timestamp.
func (s *Store) AppendMessage(ctx context.Context, sessionID, role, content string) (*Message, error) {
	ctx, span := tracer.Start(ctx, "append message")
	defer span.End()

	if role != RoleUser && role != RoleModel {
		return nil, fmt.Errorf("unknown message role: %q", role)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to append message: %w", err)
	}
	defer tx.Rollback()

	message := &Message{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		CreatedAt: s.now(),
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO messages(id, session_id, role, content, created_at) VALUES(?,?,?,?,?)`,
		message.ID, message.SessionID, message.Role, message.Content, message.CreatedAt.UnixNano(),
	); err != nil {
		return nil, fmt.Errorf("failed to append message: %w", err)
	}

	if role == RoleUser {
		if _, err := tx.ExecContext(ctx,
			`UPDATE sessions SET title = ? WHERE id = ? AND title = ''`,
			deriveTitle(content), sessionID,
		); err != nil {
			return nil, fmt.Errorf("failed to title session: %w", err)
		}
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE sessions SET updated_at = ? WHERE id = ?`,
		message.CreatedAt.UnixNano(), sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to touch session: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to append message: %w", err)
	}
	return message, nil
}

// History returns the session's turns in order, shaped for replay into the
// tutor client. A missing session yields an empty history.
func (s *Store) History(ctx context.Context, sessionID string) ([]Turn, error) {
	session, err := s.GetSession(ctx, sessionID)
	if errors.Is(err, ErrSessionNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	turns := make([]Turn, 0, len(session.Messages))
	for _, message := range session.Messages {
		turns = append(turns, Turn{Role: message.Role, Text: message.Content})
	}
	return turns, nil
}

// RenameSession replaces the session's title.
func (s *Store) RenameSession(ctx context.Context, sessionID, title string) error {
	result, err := s.db.ExecContext(ctx, `UPDATE sessions SET title = ? WHERE id = ?`, title, sessionID)
	if err != nil {
		return fmt.Errorf("failed to rename session: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return nil
}

// DeleteSession removes the session and its messages.
func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("failed to delete messages: %w", err)
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// deriveTitle trims the first user message down to a listing-friendly title.
func deriveTitle(content string) string {
	runes := []rune(content)
	if len(runes) <= titleRuneLimit {
		return content
	}
	return string(runes[:titleRuneLimit]) + "..."
}
