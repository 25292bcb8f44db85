package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/wealthstudio/studio-auth/internal/auth/domain"
	"github.com/wealthstudio/studio-auth/internal/auth/store"
	"github.com/wealthstudio/studio-auth/pkg/cryptox"
	"github.com/wealthstudio/studio-auth/pkg/idx"
	"github.com/wealthstudio/studio-auth/pkg/jwtx"
	"github.com/wealthstudio/studio-auth/pkg/slogx"
)

// SessionService issues and checks bearer tokens. A token is a signed JWT
// naming its session row; the row is what grants access, so deleting it
// revokes the token even though the signature stays valid.
type SessionService struct {
	Store store.Store
	Codec *jwtx.HS256Codec
	TTL   time.Duration
	Clock Clock
}

func (s *SessionService) ttl() time.Duration {
	if s.TTL <= 0 {
		return jwtx.DefaultSessionTTL
	}
	return s.TTL
}

// Create starts a new session for userID.
func (s *SessionService) Create(ctx context.Context, userID string, meta domain.ClientMeta) (domain.IssuedSession, error) {
	now := s.Clock.now()
	sess := domain.Session{
		ID:        idx.NewAt(now).String(),
		UserID:    userID,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl()),
	}

	token, err := s.Codec.Sign(jwtx.NewSessionClaims(userID, sess.ID, "", s.ttl(), now))
	if err != nil {
		return domain.IssuedSession{}, fmt.Errorf("sign session token: %w", err)
	}
	sess.TokenHash = cryptox.FingerprintToken(token)

	if err := s.Store.Sessions().CreateSession(ctx, sess); err != nil {
		return domain.IssuedSession{}, fmt.Errorf("create session: %w", err)
	}

	slogx.FromContext(ctx).Debug("session created",
		slog.String("user_id", userID),
		slog.String("session_id", sess.ID),
	)
	return domain.IssuedSession{Token: token, ExpiresAt: sess.ExpiresAt, Session: sess}, nil
}

// Validate resolves a bearer token to its live session and active owner.
// Every failure is ErrSessionInvalid except storage errors.
func (s *SessionService) Validate(ctx context.Context, token string) (domain.Session, domain.User, error) {
	if token == "" {
		return domain.Session{}, domain.User{}, ErrSessionInvalid
	}
	now := s.Clock.now()

	// 1. Signature and expiry
	claims, err := s.Codec.Verify(token, now)
	if err != nil {
		slogx.FromContext(ctx).Debug("session token rejected", slog.Any("error", err))
		return domain.Session{}, domain.User{}, ErrSessionInvalid
	}

	// 2. Session row
	sess, err := s.Store.Sessions().GetActiveSessionByTokenHash(ctx, cryptox.FingerprintToken(token), now)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Session{}, domain.User{}, ErrSessionInvalid
		}
		return domain.Session{}, domain.User{}, err
	}
	if sess.ID != claims.SID || sess.UserID != claims.Subject || sess.Expired(now) {
		return domain.Session{}, domain.User{}, ErrSessionInvalid
	}

	// 3. Owner
	u, err := s.Store.Users().GetUserByID(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Session{}, domain.User{}, ErrSessionInvalid
		}
		return domain.Session{}, domain.User{}, err
	}
	if !u.IsActive {
		return domain.Session{}, domain.User{}, ErrSessionInvalid
	}

	return sess, u, nil
}

// Revoke deletes the session behind token. Unknown or malformed tokens are
// not an error.
func (s *SessionService) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.Store.Sessions().DeleteSessionByTokenHash(ctx, cryptox.FingerprintToken(token))
}

func (s *SessionService) RevokeAllForUser(ctx context.Context, userID, exceptSessionID string) (int64, error) {
	return s.Store.Sessions().DeleteUserSessions(ctx, userID, exceptSessionID)
}

func (s *SessionService) ListForUser(ctx context.Context, userID string) ([]domain.Session, error) {
	return s.Store.Sessions().ListUserSessions(ctx, userID, s.Clock.now())
}

// SweepExpired removes sessions that can no longer validate.
func (s *SessionService) SweepExpired(ctx context.Context) (int64, error) {
	return s.Store.Sessions().DeleteExpiredSessions(ctx, s.Clock.now())
}
