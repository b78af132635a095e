package session

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/duetchat/duet/internal/model"
	"github.com/google/uuid"
)

// CredentialTTL is how long a stored bearer credential stays valid locally.
const CredentialTTL = 7 * 24 * time.Hour

// NewID returns a new globally-unique opaque session identifier.
func NewID() string {
	return uuid.NewString()
}

// Store persists session metadata and bearer credentials in the local state
// database. Metadata and credentials are independent rows: removing a
// credential (logout, 401) leaves the metadata record behind. Absence is
// never an error; lookups return nil for unknown ids.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func scanSession(scanner interface{ Scan(...any) error }) (*model.Session, error) {
	var s model.Session
	err := scanner.Scan(&s.SessionID, &s.UserID, &s.Username, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

const sessionCols = `session_id, user_id, username, created_at`

// SaveMetadata upserts the session's metadata record.
func (s *Store) SaveMetadata(sess model.Session) error {
	_, err := s.db.Exec(
		`INSERT INTO sessions (session_id, user_id, username, created_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET user_id = excluded.user_id, username = excluded.username`,
		sess.SessionID, sess.UserID, sess.Username, sess.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("save session metadata: %w", err)
	}
	return nil
}

// Metadata returns the metadata record for the given id, or nil if absent.
func (s *Store) Metadata(sessionID string) (*model.Session, error) {
	row := s.db.QueryRow(`SELECT `+sessionCols+` FROM sessions WHERE session_id = ?`, sessionID)
	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session metadata: %w", err)
	}
	return sess, nil
}

// List returns all session metadata records, newest first.
func (s *Store) List() ([]model.Session, error) {
	rows, err := s.db.Query(`SELECT ` + sessionCols + ` FROM sessions ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []model.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, *sess)
	}
	return sessions, rows.Err()
}

// SetCredential stores the bearer token for a session with the standard TTL.
func (s *Store) SetCredential(sessionID, token string) error {
	now := time.Now().UTC()
	_, err := s.db.Exec(
		`INSERT INTO credentials (session_id, token, expires_at, created_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET token = excluded.token, expires_at = excluded.expires_at`,
		sessionID, token, now.Add(CredentialTTL), now,
	)
	if err != nil {
		return fmt.Errorf("set credential: %w", err)
	}
	return nil
}

// Credential returns the live credential for a session, or nil if the session
// has no stored token or the token has passed its local expiry.
func (s *Store) Credential(sessionID string) (*model.Credential, error) {
	row := s.db.QueryRow(
		`SELECT session_id, token, expires_at, created_at FROM credentials WHERE session_id = ?`,
		sessionID,
	)
	var c model.Credential
	err := row.Scan(&c.SessionID, &c.Token, &c.ExpiresAt, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get credential: %w", err)
	}
	if !c.ExpiresAt.After(time.Now()) {
		return nil, nil
	}
	return &c, nil
}

// RemoveCredential deletes a session's bearer token. Removing a credential
// that does not exist is not an error.
func (s *Store) RemoveCredential(sessionID string) error {
	_, err := s.db.Exec(`DELETE FROM credentials WHERE session_id = ?`, sessionID)
	if err != nil {
		return fmt.Errorf("remove credential: %w", err)
	}
	return nil
}

// IsAuthenticated reports whether the session has a live credential.
func (s *Store) IsAuthenticated(sessionID string) (bool, error) {
	c, err := s.Credential(sessionID)
	if err != nil {
		return false, err
	}
	return c != nil, nil
}

// AuthenticatedIDs returns the ids of all sessions holding a live credential,
// newest credential first.
func (s *Store) AuthenticatedIDs() ([]string, error) {
	rows, err := s.db.Query(`SELECT session_id, expires_at FROM credentials ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	defer rows.Close()

	now := time.Now()
	var ids []string
	for rows.Next() {
		var id string
		var expiresAt time.Time
		if err := rows.Scan(&id, &expiresAt); err != nil {
			return nil, fmt.Errorf("scan credential: %w", err)
		}
		if expiresAt.After(now) {
			ids = append(ids, id)
		}
	}
	return ids, rows.Err()
}
