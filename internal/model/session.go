package model

import "time"

// Session is a client-local authentication context. Several can coexist in
// the same state database (multi-account support); each is identified by an
// opaque client-generated id. The metadata record outlives the credential:
// logout and 401 eviction remove only the credentials row.
type Session struct {
	SessionID string    `json:"session_id"`
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// Credential is the bearer token proving a session to the remote API.
type Credential struct {
	SessionID string    `json:"session_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}
