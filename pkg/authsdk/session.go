package authsdk

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// Session is an authenticated handle holding a bearer session token.
// Session tokens are not refreshable: once expired or revoked, log in again.
type Session struct {
	client *SDKClient

	mu        sync.RWMutex
	token     string
	expiresAt time.Time
}

// Token returns the bearer token.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Session) ExpiresAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expiresAt
}

// Expired reports whether the token is past its expiry by the local clock.
// The server remains the authority.
func (s *Session) Expired() bool {
	exp := s.ExpiresAt()
	return !exp.IsZero() && !time.Now().Before(exp)
}

// Validate checks the session with the server.
func (s *Session) Validate(ctx context.Context) (*ValidateResponse, error) {
	return s.client.ValidateToken(ctx, s.Token())
}

// Logout revokes the session. Calling it again is harmless.
func (s *Session) Logout(ctx context.Context) error {
	if err := s.do(ctx, http.MethodPost, "/logout", nil, nil, http.StatusOK); err != nil {
		return err
	}
	s.mu.Lock()
	s.expiresAt = time.Now()
	s.mu.Unlock()
	return nil
}

// do performs an authenticated JSON request.
func (s *Session) do(ctx context.Context, method, path string, in, out any, expectedStatus int) error {
	return s.client.doJSON(ctx, method, path, s.Token(), in, out, expectedStatus)
}
