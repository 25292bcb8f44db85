package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/wealthstudio/studio-auth/pkg/slogx"
)

// Authenticator resolves a bearer token into the caller it belongs to.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (Principal, error)
}

// BearerToken extracts the token from "Authorization: Bearer <token>".
func BearerToken(r *http.Request) (string, bool) {
	authz := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(authz, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// RequireSession rejects requests without a live session and attaches the
// Principal to the request context otherwise.
func RequireSession(a Authenticator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token, ok := BearerToken(r)
			if !ok {
				writeBearerError(w, "missing bearer token")
				return
			}

			p, err := a.Authenticate(ctx, token)
			if err != nil {
				slogx.FromContext(ctx).Debug("session rejected", "err", err)
				writeBearerError(w, "invalid or expired session")
				return
			}
			p.Token = token

			ctx = WithPrincipal(ctx, p)
			ctx = slogx.WithUserID(ctx, p.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RFC 6750-compliant error response for bearer auth.
func writeBearerError(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	WriteError(w, http.StatusUnauthorized, "Authentication required")
}
