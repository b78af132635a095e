package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/duetchat/duet/internal/api"
	"github.com/duetchat/duet/internal/model"
	"github.com/duetchat/duet/internal/session"
)

var (
	// ErrNoSession means no session id could be resolved for the operation.
	ErrNoSession = errors.New("no session id")
	// ErrNoCredential means the session exists but holds no live credential.
	ErrNoCredential = errors.New("no credential stored for session")
)

// Result is what register and login hand back: the raw token payload from
// the server plus the freshly minted session id that now holds it.
type Result struct {
	Token     model.TokenResponse
	SessionID string
}

// Service implements account and session operations. Register and login
// always mint a new session id rather than reusing one, so multiple
// accounts can stay signed in side by side.
type Service struct {
	client   *api.Client
	sessions *session.Store
	logger   *slog.Logger
}

func NewService(client *api.Client, sessions *session.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{client: client, sessions: sessions, logger: logger}
}

// Register creates an account, then mints and persists a new session for it.
func (s *Service) Register(ctx context.Context, input model.RegisterInput) (*Result, error) {
	var token model.TokenResponse
	if err := s.client.Post(ctx, "/auth/register", input, &token); err != nil {
		return nil, err
	}
	return s.mintSession(token)
}

// Login authenticates and mints a new session for the account.
func (s *Service) Login(ctx context.Context, input model.LoginInput) (*Result, error) {
	var token model.TokenResponse
	if err := s.client.Post(ctx, "/auth/login", input, &token); err != nil {
		return nil, err
	}
	return s.mintSession(token)
}

func (s *Service) mintSession(token model.TokenResponse) (*Result, error) {
	sessionID := session.NewID()

	if err := s.sessions.SetCredential(sessionID, token.AccessToken); err != nil {
		return nil, fmt.Errorf("store credential: %w", err)
	}
	if err := s.sessions.SaveMetadata(model.Session{
		SessionID: sessionID,
		UserID:    token.User.UserID,
		Username:  token.User.Username,
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		return nil, fmt.Errorf("store session metadata: %w", err)
	}

	s.logger.Debug("session created", "session", sessionID, "username", token.User.Username)
	return &Result{Token: token, SessionID: sessionID}, nil
}

// Logout removes the session's credential. Metadata is left behind on
// purpose: it records which account the session belonged to and lets the
// user re-authenticate into it.
func (s *Service) Logout(sessionID string) error {
	if sessionID == "" {
		return ErrNoSession
	}
	return s.sessions.RemoveCredential(sessionID)
}

// CurrentUser fetches the profile of the session's account. It requires a
// stored credential and passes it explicitly rather than leaning on the
// client's automatic attachment, so the result is always for the named
// session even if the client is scoped elsewhere.
func (s *Service) CurrentUser(ctx context.Context, sessionID string) (*model.User, error) {
	if sessionID == "" {
		return nil, ErrNoSession
	}
	cred, err := s.sessions.Credential(sessionID)
	if err != nil {
		return nil, fmt.Errorf("resolve credential: %w", err)
	}
	if cred == nil {
		return nil, ErrNoCredential
	}

	var user model.User
	if err := s.client.GetWithToken(ctx, "/users/me", cred.Token, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// IsAuthenticated reports whether the session holds a live credential.
func (s *Service) IsAuthenticated(sessionID string) bool {
	if sessionID == "" {
		return false
	}
	ok, err := s.sessions.IsAuthenticated(sessionID)
	if err != nil {
		s.logger.Warn("check authentication", "session", sessionID, "error", err)
		return false
	}
	return ok
}
