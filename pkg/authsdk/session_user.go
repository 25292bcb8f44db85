package authsdk

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// ============================================================================
// Own account
// ============================================================================

// ChangePassword replaces the caller's password. Every other session of the
// caller is revoked; this one stays valid.
func (s *Session) ChangePassword(ctx context.Context, current, next string) error {
	req := ChangePasswordRequest{CurrentPassword: current, NewPassword: next}
	return s.do(ctx, http.MethodPost, "/change-password", req, nil, http.StatusOK)
}

// ListSessions returns the caller's live sessions.
func (s *Session) ListSessions(ctx context.Context) ([]SessionResponse, error) {
	var out []SessionResponse
	if err := s.do(ctx, http.MethodGet, "/sessions", nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return out, nil
}

// ============================================================================
// Administration
// ============================================================================

// SetUserActive activates or deactivates an account. Requires an admin session.
func (s *Session) SetUserActive(ctx context.Context, userID string, active bool) error {
	path := "/users/" + url.PathEscape(userID) + "/active"
	return s.do(ctx, http.MethodPost, path, SetUserActiveRequest{Active: active}, nil, http.StatusOK)
}

// ListAccessLogs pages through the audit trail, newest first. Requires an
// admin session. A zero limit takes the server default.
func (s *Session) ListAccessLogs(ctx context.Context, limit, offset int) ([]AccessLogResponse, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}
	path := "/access-logs"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out []AccessLogResponse
	if err := s.do(ctx, http.MethodGet, path, nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return out, nil
}
