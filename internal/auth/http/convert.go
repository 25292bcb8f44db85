package http

import (
	"net/http"

	"github.com/wealthstudio/studio-auth/internal/auth/domain"
	"github.com/wealthstudio/studio-auth/internal/auth/service"
	"github.com/wealthstudio/studio-auth/pkg/authsdk"
	"github.com/wealthstudio/studio-auth/pkg/httpx"
)

const maxUserAgentLength = 512

func clientMeta(r *http.Request) domain.ClientMeta {
	ua := r.UserAgent()
	if len(ua) > maxUserAgentLength {
		ua = ua[:maxUserAgentLength]
	}
	return domain.ClientMeta{IPAddress: httpx.ClientIP(r), UserAgent: ua}
}

// actor builds the service caller from the principal RequireSession attached.
func actor(r *http.Request) service.Actor {
	p, _ := httpx.PrincipalFromContext(r.Context())
	return service.Actor{
		UserID:    p.UserID,
		SessionID: p.SessionID,
		Role:      domain.Role(p.Role),
		Meta:      clientMeta(r),
	}
}

func toUserResponse(u domain.User) authsdk.UserResponse {
	return authsdk.UserResponse{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		Organization: u.Organization,
		Role:         string(u.Role),
		CreatedAt:    u.CreatedAt,
		LastLogin:    u.LastLogin,
		IsActive:     u.IsActive,
	}
}

func toAuthResponse(res service.AuthResult) authsdk.AuthResponse {
	return authsdk.AuthResponse{
		Success:      true,
		SessionToken: res.Session.Token,
		ExpiresAt:    res.Session.ExpiresAt,
		User:         toUserResponse(res.User),
	}
}

func toInviteResponse(inv domain.InviteCode) authsdk.InviteResponse {
	return authsdk.InviteResponse{
		ID:           inv.ID,
		Code:         inv.Code,
		Email:        inv.Email,
		MaxUses:      inv.MaxUses,
		UsedCount:    inv.UsedCount,
		ExpiresAt:    inv.ExpiresAt,
		CreatedBy:    inv.CreatedBy,
		Organization: inv.Organization,
		CreatedAt:    inv.CreatedAt,
		IsActive:     inv.IsActive,
	}
}

func toSessionResponse(s domain.Session, currentID string) authsdk.SessionResponse {
	return authsdk.SessionResponse{
		ID:        s.ID,
		IPAddress: s.IPAddress,
		UserAgent: s.UserAgent,
		CreatedAt: s.CreatedAt,
		ExpiresAt: s.ExpiresAt,
		Current:   s.ID == currentID,
	}
}

func toAccessLogResponse(e domain.AccessLogEntry) authsdk.AccessLogResponse {
	return authsdk.AccessLogResponse{
		ID:        e.ID,
		UserID:    e.UserID,
		Action:    string(e.Action),
		Resource:  e.Resource,
		IPAddress: e.IPAddress,
		UserAgent: e.UserAgent,
		CreatedAt: e.CreatedAt,
	}
}

// mapSlice converts each element of in with f.
func mapSlice[T, U any](in []T, f func(T) U) []U {
	out := make([]U, 0, len(in))
	for _, v := range in {
		out = append(out, f(v))
	}
	return out
}
