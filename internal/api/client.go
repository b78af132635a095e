package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/duetchat/duet/internal/model"
	"github.com/sethvargo/go-retry"
)

// DefaultBaseURL is used when no API address is configured.
const DefaultBaseURL = "http://localhost:8000"

// CredentialSource resolves and evicts bearer credentials per session id.
// *session.Store satisfies it.
type CredentialSource interface {
	Credential(sessionID string) (*model.Credential, error)
	RemoveCredential(sessionID string) error
}

// Client talks to the remote chat API on behalf of exactly one session.
// Every outgoing request gets that session's bearer credential attached
// unless the caller supplies an explicit one; requests with no resolvable
// credential go out unauthenticated and the server decides.
//
// A 401 from any endpoint evicts the scoped session's credential and
// surfaces ErrUnauthorized, regardless of which request triggered it.
type Client struct {
	baseURL        string
	sessionID      string
	creds          CredentialSource
	httpClient     *http.Client
	logger         *slog.Logger
	onUnauthorized func(sessionID string)
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithOnUnauthorized registers a hook invoked after a 401 eviction, with the
// id of the session whose credential was removed.
func WithOnUnauthorized(fn func(sessionID string)) Option {
	return func(c *Client) {
		c.onUnauthorized = fn
	}
}

// NewClient creates a client scoped to sessionID. An empty sessionID yields
// an unauthenticated client (register/login still work through it).
func NewClient(baseURL, sessionID string, creds CredentialSource, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		sessionID:  sessionID,
		creds:      creds,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SessionID returns the session this client is scoped to.
func (c *Client) SessionID() string {
	return c.sessionID
}

// BaseURL returns the configured API address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Get issues an authenticated GET and decodes the JSON response into out.
// Transient failures (network errors, 5xx) are retried a couple of times
// since GETs are safe to repeat.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	backoff := retry.WithMaxRetries(2, retry.NewExponential(200*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := c.do(ctx, http.MethodGet, path, nil, out, "")
		if isTransient(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

// GetWithToken issues a GET using an explicit bearer token instead of the
// session's stored credential.
func (c *Client) GetWithToken(ctx context.Context, path, token string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out, token)
}

// Post issues an authenticated POST with a JSON body (nil body allowed).
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, body, out, "")
}

// Put issues an authenticated PUT with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPut, path, body, out, "")
}

// Delete issues an authenticated DELETE.
func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodDelete, path, nil, out, "")
}

func (c *Client) do(ctx context.Context, method, path string, body, out any, explicitToken string) error {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	token := explicitToken
	if token == "" && c.sessionID != "" && c.creds != nil {
		cred, err := c.creds.Credential(c.sessionID)
		if err != nil {
			return fmt.Errorf("resolve credential: %w", err)
		}
		if cred != nil {
			token = cred.Token
		}
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		c.evictCredential()
		return fmt.Errorf("%s %s: %w", method, path, ErrUnauthorized)
	}

	if resp.StatusCode >= 400 {
		return errorFromResponse(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func (c *Client) evictCredential() {
	if c.sessionID == "" || c.creds == nil {
		return
	}
	if err := c.creds.RemoveCredential(c.sessionID); err != nil {
		c.logger.Warn("evict credential after 401", "session", c.sessionID, "error", err)
	}
	if c.onUnauthorized != nil {
		c.onUnauthorized(c.sessionID)
	}
}

// isTransient reports whether err is worth retrying: a transport failure or
// a server-side 5xx. Auth failures and other 4xx are final.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	// Unauthorized already evicted the credential; retrying cannot help.
	if errors.Is(err, ErrUnauthorized) {
		return false
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status >= 500
	}
	var netErr *url.Error
	return errors.As(err, &netErr)
}
