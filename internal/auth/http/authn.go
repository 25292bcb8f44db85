package http

import (
	"context"

	"github.com/wealthstudio/studio-auth/internal/auth/service"
	"github.com/wealthstudio/studio-auth/pkg/httpx"
)

// SessionAuthenticator lets httpx.RequireSession validate session tokens.
type SessionAuthenticator struct {
	AuthService *service.AuthService
}

func (a SessionAuthenticator) Authenticate(ctx context.Context, token string) (httpx.Principal, error) {
	sess, u, err := a.AuthService.Validate(ctx, token)
	if err != nil {
		return httpx.Principal{}, err
	}
	return httpx.Principal{
		UserID:    u.ID,
		SessionID: sess.ID,
		Email:     u.Email,
		Role:      string(u.Role),
	}, nil
}
