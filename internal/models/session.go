package models

import "time"

// Session is an authenticated browser or API session. ID doubles as the
// token's jti so a session can be revoked before it expires.
type Session struct {
	ID        string    `json:"id"`
	UserID    int       `json:"user_id"`
	Username  string    `json:"username"`
	IsAdmin   bool      `json:"is_admin"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session is past its expiry at now
func (s *Session) Expired(now time.Time) bool {
	return s == nil || !now.Before(s.ExpiresAt)
}

// AuthEventType names an auth-state transition
type AuthEventType string

const (
	AuthEventSignedIn  AuthEventType = "SIGNED_IN"
	AuthEventSignedOut AuthEventType = "SIGNED_OUT"
)

// AuthEvent is published on every sign-in and sign-out. Session is nil on sign-out.
type AuthEvent struct {
	Type      AuthEventType `json:"type"`
	SessionID string        `json:"session_id"`
	UserID    int           `json:"user_id"`
	Session   *Session      `json:"session,omitempty"`
	At        time.Time     `json:"at"`
}
