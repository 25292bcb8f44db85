package domain

import "time"

// Session is a server-side login record. The bearer token itself is never
// stored; TokenHash is its SHA-256 fingerprint.
type Session struct {
	ID        string
	TokenHash string
	UserID    string
	IPAddress string
	UserAgent string
	ExpiresAt time.Time
	CreatedAt time.Time
}

func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// IssuedSession is what login and registration hand back to the caller.
type IssuedSession struct {
	Token     string
	ExpiresAt time.Time
	Session   Session
}

// ClientMeta describes where a request came from, for sessions and audit.
type ClientMeta struct {
	IPAddress string
	UserAgent string
}
