package authsdk

import (
	"context"
	"net/http"
	"net/url"
)

// Invite administration. All of these require an admin session.

// CreateInvite issues a new invite code.
func (s *Session) CreateInvite(ctx context.Context, req CreateInviteRequest) (*CreateInviteResponse, error) {
	var out CreateInviteResponse
	if err := s.do(ctx, http.MethodPost, "/create-invite", req, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListInvites returns every invite code, newest first.
func (s *Session) ListInvites(ctx context.Context) ([]InviteResponse, error) {
	var out []InviteResponse
	if err := s.do(ctx, http.MethodGet, "/invites", nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Session) DeactivateInvite(ctx context.Context, code string) error {
	return s.do(ctx, http.MethodPost, "/invites/"+url.PathEscape(code)+"/deactivate", nil, nil, http.StatusOK)
}
