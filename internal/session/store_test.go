package session

import (
	"testing"
	"time"

	"github.com/duetchat/duet/internal/database"
	"github.com/duetchat/duet/internal/model"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewStore(db)
}

func TestNewIDUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewID()
		if id == "" {
			t.Fatal("expected non-empty id")
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}

func TestSaveAndGetMetadata(t *testing.T) {
	s := setupStore(t)

	sess := model.Session{
		SessionID: NewID(),
		UserID:    7,
		Username:  "amy",
		CreatedAt: time.Now().UTC(),
	}
	if err := s.SaveMetadata(sess); err != nil {
		t.Fatalf("save metadata: %v", err)
	}

	got, err := s.Metadata(sess.SessionID)
	if err != nil {
		t.Fatalf("get metadata: %v", err)
	}
	if got == nil {
		t.Fatal("expected metadata, got nil")
	}
	if got.UserID != 7 || got.Username != "amy" {
		t.Errorf("metadata = %+v, want user_id 7, username amy", got)
	}

	// Reading again without intervening writes returns an equal record.
	again, err := s.Metadata(sess.SessionID)
	if err != nil {
		t.Fatalf("get metadata again: %v", err)
	}
	if *again != *got {
		t.Errorf("second read %+v != first read %+v", again, got)
	}
}

func TestMetadataAbsent(t *testing.T) {
	s := setupStore(t)

	got, err := s.Metadata("nonexistent")
	if err != nil {
		t.Fatalf("get metadata: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for unknown session, got %+v", got)
	}
}

func TestSaveMetadataUpsert(t *testing.T) {
	s := setupStore(t)

	id := NewID()
	s.SaveMetadata(model.Session{SessionID: id, UserID: 1, Username: "old", CreatedAt: time.Now()})
	if err := s.SaveMetadata(model.Session{SessionID: id, UserID: 2, Username: "new", CreatedAt: time.Now()}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, _ := s.Metadata(id)
	if got.Username != "new" || got.UserID != 2 {
		t.Errorf("after upsert got %+v, want username new, user_id 2", got)
	}
}

func TestCredentialLifecycle(t *testing.T) {
	s := setupStore(t)
	id := NewID()

	ok, err := s.IsAuthenticated(id)
	if err != nil {
		t.Fatalf("is authenticated: %v", err)
	}
	if ok {
		t.Error("expected unauthenticated before SetCredential")
	}

	if err := s.SetCredential(id, "tok-abc"); err != nil {
		t.Fatalf("set credential: %v", err)
	}

	c, err := s.Credential(id)
	if err != nil {
		t.Fatalf("get credential: %v", err)
	}
	if c == nil || c.Token != "tok-abc" {
		t.Fatalf("credential = %+v, want token tok-abc", c)
	}
	remaining := time.Until(c.ExpiresAt)
	if remaining < CredentialTTL-time.Minute || remaining > CredentialTTL {
		t.Errorf("expiry %v from now, want about %v", remaining, CredentialTTL)
	}

	ok, _ = s.IsAuthenticated(id)
	if !ok {
		t.Error("expected authenticated after SetCredential")
	}

	if err := s.RemoveCredential(id); err != nil {
		t.Fatalf("remove credential: %v", err)
	}
	ok, _ = s.IsAuthenticated(id)
	if ok {
		t.Error("expected unauthenticated after RemoveCredential")
	}
}

func TestRemoveCredentialAbsentIsSilent(t *testing.T) {
	s := setupStore(t)

	if err := s.RemoveCredential("never-stored"); err != nil {
		t.Errorf("remove of absent credential should not error, got %v", err)
	}
}

func TestMetadataSurvivesCredentialRemoval(t *testing.T) {
	s := setupStore(t)
	id := NewID()

	s.SaveMetadata(model.Session{SessionID: id, UserID: 3, Username: "bob", CreatedAt: time.Now()})
	s.SetCredential(id, "tok")
	s.RemoveCredential(id)

	got, err := s.Metadata(id)
	if err != nil {
		t.Fatalf("get metadata: %v", err)
	}
	if got == nil {
		t.Fatal("metadata should survive credential removal")
	}
	if got.Username != "bob" {
		t.Errorf("username = %q, want bob", got.Username)
	}
}

func TestExpiredCredentialIsAbsent(t *testing.T) {
	s := setupStore(t)
	id := NewID()

	past := time.Now().UTC().Add(-time.Hour)
	if _, err := s.db.Exec(
		`INSERT INTO credentials (session_id, token, expires_at, created_at) VALUES (?, ?, ?, ?)`,
		id, "stale", past, past.Add(-CredentialTTL),
	); err != nil {
		t.Fatalf("insert expired credential: %v", err)
	}

	c, err := s.Credential(id)
	if err != nil {
		t.Fatalf("get credential: %v", err)
	}
	if c != nil {
		t.Errorf("expected nil for expired credential, got %+v", c)
	}
	ok, _ := s.IsAuthenticated(id)
	if ok {
		t.Error("expired credential must not count as authenticated")
	}
}

func TestAuthenticatedIDs(t *testing.T) {
	s := setupStore(t)

	a, b := NewID(), NewID()
	s.SetCredential(a, "tok-a")
	s.SetCredential(b, "tok-b")
	s.RemoveCredential(a)

	ids, err := s.AuthenticatedIDs()
	if err != nil {
		t.Fatalf("authenticated ids: %v", err)
	}
	if len(ids) != 1 || ids[0] != b {
		t.Errorf("ids = %v, want [%s]", ids, b)
	}
}
