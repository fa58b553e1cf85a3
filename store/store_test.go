package store

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(filepath.Join(t.TempDir(), "tutor.db"))
	if err != nil {
		t.Fatalf("expected the store to open, got %v", err)
	}
	t.Cleanup(func() { s.Close() })

	clock := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return s
}

func TestCreateAndGetSession(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.CreateSession(ctx, "fr-FR", "learner-1")
	if err != nil {
		t.Fatalf("expected the session to be created, got %v", err)
	}
	if created.ID == "" {
		t.Error("expected a generated session id")
	}

	got, err := s.GetSession(ctx, created.ID)
	if err != nil {
		t.Fatalf("expected the session to load, got %v", err)
	}
	if got.LearningLanguage != "fr-FR" || got.UserID != "learner-1" {
		t.Errorf("expected the stored fields back, got %+v", got)
	}
	if got.Title != "" {
		t.Errorf("expected a fresh session to be untitled, got %q", got.Title)
	}
	if len(got.Messages) != 0 {
		t.Errorf("expected no messages yet, got %d", len(got.Messages))
	}
}

func TestGetSessionReportsMissingSessions(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetSession(context.Background(), "no-such-session")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestFirstUserMessageTitlesTheSession(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	session, err := s.CreateSession(ctx, "fr-FR", "")
	if err != nil {
		t.Fatalf("expected the session to be created, got %v", err)
	}

	// A model greeting must not claim the title.
	if _, err := s.AppendMessage(ctx, session.ID, RoleModel, "Bonjour !"); err != nil {
		t.Fatalf("expected the greeting to append, got %v", err)
	}
	if _, err := s.AppendMessage(ctx, session.ID, RoleUser, "Salut, comment ça va ?"); err != nil {
		t.Fatalf("expected the message to append, got %v", err)
	}
	if _, err := s.AppendMessage(ctx, session.ID, RoleUser, "Another message"); err != nil {
		t.Fatalf("expected the message to append, got %v", err)
	}

	got, err := s.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("expected the session to load, got %v", err)
	}
	if got.Title != "Salut, comment ça va ?" {
		t.Errorf("expected the first user message as title, got %q", got.Title)
	}
}

func TestLongTitlesAreTruncatedByRunes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	session, err := s.CreateSession(ctx, "fr-FR", "")
	if err != nil {
		t.Fatalf("expected the session to be created, got %v", err)
	}

	long := strings.Repeat("é", 60)
	if _, err := s.AppendMessage(ctx, session.ID, RoleUser, long); err != nil {
		t.Fatalf("expected the message to append, got %v", err)
	}

	got, err := s.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("expected the session to load, got %v", err)
	}
	want := strings.Repeat("é", 50) + "..."
	if got.Title != want {
		t.Errorf("expected a 50-rune title with ellipsis, got %q", got.Title)
	}
}

func TestListSessionsOrdersByActivityWithPreview(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.CreateSession(ctx, "fr-FR", "learner-1")
	if err != nil {
		t.Fatalf("expected the session to be created, got %v", err)
	}
	second, err := s.CreateSession(ctx, "es-ES", "learner-1")
	if err != nil {
		t.Fatalf("expected the session to be created, got %v", err)
	}

	if _, err := s.AppendMessage(ctx, second.ID, RoleUser, "Hola"); err != nil {
		t.Fatalf("expected the message to append, got %v", err)
	}
	// Appending to the older session floats it back to the top.
	if _, err := s.AppendMessage(ctx, first.ID, RoleUser, "Bonjour"); err != nil {
		t.Fatalf("expected the message to append, got %v", err)
	}
	if _, err := s.AppendMessage(ctx, first.ID, RoleModel, "Bonjour ! Ça va ?"); err != nil {
		t.Fatalf("expected the message to append, got %v", err)
	}

	summaries, err := s.ListSessions(ctx, "learner-1")
	if err != nil {
		t.Fatalf("expected the listing to load, got %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("expected both sessions, got %d", len(summaries))
	}
	if summaries[0].ID != first.ID || summaries[1].ID != second.ID {
		t.Errorf("expected the most recently active session first, got %q then %q",
			summaries[0].ID, summaries[1].ID)
	}
	if summaries[0].LastMessage != "Bonjour ! Ça va ?" {
		t.Errorf("expected the latest message as preview, got %q", summaries[0].LastMessage)
	}

	if others, err := s.ListSessions(ctx, "someone-else"); err != nil || len(others) != 0 {
		t.Errorf("expected no sessions for another user, got %d (%v)", len(others), err)
	}
}

func TestHistoryReplaysTurnsInOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	session, err := s.CreateSession(ctx, "es-ES", "")
	if err != nil {
		t.Fatalf("expected the session to be created, got %v", err)
	}
	for _, turn := range []Turn{
		{Role: RoleUser, Text: "Hola"},
		{Role: RoleModel, Text: "¡Hola! ¿Cómo estás?"},
		{Role: RoleUser, Text: "Muy bien"},
	} {
		if _, err := s.AppendMessage(ctx, session.ID, turn.Role, turn.Text); err != nil {
			t.Fatalf("expected the message to append, got %v", err)
		}
	}

	turns, err := s.History(ctx, session.ID)
	if err != nil {
		t.Fatalf("expected the history to load, got %v", err)
	}
	if len(turns) != 3 || turns[0].Text != "Hola" || turns[2].Text != "Muy bien" {
		t.Errorf("expected the turns in order, got %+v", turns)
	}

	if turns, err := s.History(ctx, "no-such-session"); err != nil || len(turns) != 0 {
		t.Errorf("expected an empty history for a missing session, got %+v (%v)", turns, err)
	}
}

func TestAppendMessageValidatesItsInput(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	session, err := s.CreateSession(ctx, "en-US", "")
	if err != nil {
		t.Fatalf("expected the session to be created, got %v", err)
	}

	if _, err := s.AppendMessage(ctx, session.ID, "narrator", "..."); err == nil {
		t.Error("expected an unknown role to be rejected")
	}
	if _, err := s.AppendMessage(ctx, "no-such-session", RoleUser, "Hello"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestRenameSession(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	session, err := s.CreateSession(ctx, "en-US", "")
	if err != nil {
		t.Fatalf("expected the session to be created, got %v", err)
	}

	if err := s.RenameSession(ctx, session.ID, "Ordering coffee"); err != nil {
		t.Fatalf("expected the rename to succeed, got %v", err)
	}
	got, err := s.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("expected the session to load, got %v", err)
	}
	if got.Title != "Ordering coffee" {
		t.Errorf("expected the new title, got %q", got.Title)
	}

	if err := s.RenameSession(ctx, "no-such-session", "x"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestDeleteSessionRemovesItsMessages(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	session, err := s.CreateSession(ctx, "en-US", "")
	if err != nil {
		t.Fatalf("expected the session to be created, got %v", err)
	}
	if _, err := s.AppendMessage(ctx, session.ID, RoleUser, "Hello"); err != nil {
		t.Fatalf("expected the message to append, got %v", err)
	}

	if err := s.DeleteSession(ctx, session.ID); err != nil {
		t.Fatalf("expected the delete to succeed, got %v", err)
	}
	if _, err := s.GetSession(ctx, session.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound after delete, got %v", err)
	}

	var remaining int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM messages`).Scan(&remaining); err != nil {
		t.Fatalf("expected the count to load, got %v", err)
	}
	if remaining != 0 {
		t.Errorf("expected the messages to be gone, got %d", remaining)
	}

	if err := s.DeleteSession(ctx, session.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestOrphanMessagesAreRejected(t *testing.T) {
	s := newTestStore(t)

	_, err := s.db.ExecContext(context.Background(),
		`INSERT INTO messages (id, session_id, role, content, created_at)
		 VALUES ('stray', 'no-such-session', ?, 'Hello', 0)`, RoleUser)
	if err == nil {
		t.Fatal("expected the foreign key to reject an orphan message")
	}
}
