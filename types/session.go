package types

import "time"

// Session links an opaque token to an authenticated user for a fixed
// window. Tokens are random, resolved server-side, and not renewed on
// activity.
type Session struct {
	// Token is the opaque value transported in the session cookie.
	Token string `json:"-" db:"token"`

	// UserID references the authenticated user.
	UserID int `json:"userId" db:"user_id"`

	// CreatedAt is the time the session was established.
	CreatedAt time.Time `json:"createdAt" db:"created_at"`

	// ExpiresAt is the fixed end of the session's validity window.
	ExpiresAt time.Time `json:"expiresAt" db:"expires_at"`
}

// Expired reports whether the session is past its validity window at now.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
