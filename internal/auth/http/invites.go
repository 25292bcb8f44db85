package http

import (
	"net/http"

	"github.com/wealthstudio/studio-auth/internal/auth/domain"
	"github.com/wealthstudio/studio-auth/internal/auth/service"
	"github.com/wealthstudio/studio-auth/pkg/authsdk"
	"github.com/wealthstudio/studio-auth/pkg/httpx"
)

type InviteHandler struct {
	AuthService *service.AuthService
}

var inviteReasonMessages = map[domain.InviteReason]string{
	domain.InviteInactive:      "Invite code is no longer active",
	domain.InviteExpired:       "Invite code has expired",
	domain.InviteEmailMismatch: "Invite code is reserved for a different email",
	domain.InviteExhausted:     msgInviteExhausted,
}

// HandleCheck godoc
//
//	@Summary		Check an invite code
//	@Description	Pre-validates an invite code without consuming it. Pass email to check an email-bound code.
//	@Tags			Invitations
//	@Produce		json
//	@Param			code	path		string						true	"Invite code"
//	@Param			email	query		string						false	"Email the code will be used with"
//	@Success		200		{object}	authsdk.CheckInviteResponse	"valid, organization, remainingUses"
//	@Failure		400		{object}	authsdk.CheckInviteResponse	"Code exists but cannot be used"
//	@Failure		404		{object}	authsdk.ErrorResponse		"Unknown code"
//	@Router			/check-invite/{code} [get].
func (h *InviteHandler) HandleCheck(w http.ResponseWriter, r *http.Request) {
	res, err := h.AuthService.CheckInvite(r.Context(), r.PathValue("code"), r.URL.Query().Get("email"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := authsdk.CheckInviteResponse{
		Valid:         res.Valid,
		Organization:  res.Organization,
		RemainingUses: res.RemainingUses,
		ExpiresAt:     res.ExpiresAt,
	}
	if !res.Valid {
		out.Reason = string(res.Reason)
		out.Error = inviteReasonMessages[res.Reason]
		httpx.WriteJSON(w, http.StatusBadRequest, out)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleCreate godoc
//
//	@Summary		Create an invite code
//	@Description	Issues a new invite code. Defaults to one use and thirty days; expiresInDays 0 never expires. Admin only.
//	@Tags			Invitations
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.CreateInviteRequest		true	"Invite options"
//	@Success		200		{object}	authsdk.CreateInviteResponse	"success, inviteCode, expiresAt"
//	@Failure		400		{object}	authsdk.ErrorResponse			"Invalid options"
//	@Failure		401		{object}	authsdk.ErrorResponse			"Not signed in"
//	@Failure		403		{object}	authsdk.ErrorResponse			"Not an admin"
//	@Security		BearerAuth
//	@Router			/create-invite [post].
func (h *InviteHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req authsdk.CreateInviteRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	p := service.CreateInviteParams{
		Email:         req.Email,
		MaxUses:       service.DefaultInviteMaxUses,
		ExpiresInDays: service.DefaultInviteExpiresInDays,
		Organization:  req.Organization,
	}
	if req.MaxUses != nil {
		p.MaxUses = *req.MaxUses
	}
	if req.ExpiresInDays != nil {
		p.ExpiresInDays = *req.ExpiresInDays
	}

	inv, err := h.AuthService.CreateInvite(r.Context(), actor(r), p)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.CreateInviteResponse{
		Success:    true,
		InviteCode: inv.Code,
		ExpiresAt:  inv.ExpiresAt,
	})
}

// HandleList godoc
//
//	@Summary		List invite codes
//	@Description	Lists every invite code, newest first. Admin only.
//	@Tags			Invitations
//	@Produce		json
//	@Success		200	{array}		authsdk.InviteResponse	"invites"
//	@Failure		401	{object}	authsdk.ErrorResponse	"Not signed in"
//	@Failure		403	{object}	authsdk.ErrorResponse	"Not an admin"
//	@Security		BearerAuth
//	@Router			/invites [get].
func (h *InviteHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	invites, err := h.AuthService.ListInvites(r.Context(), actor(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, mapSlice(invites, toInviteResponse))
}

// HandleDeactivate godoc
//
//	@Summary		Deactivate an invite code
//	@Description	Stops an invite code from being redeemed. Admin only.
//	@Tags			Invitations
//	@Produce		json
//	@Param			code	path		string					true	"Invite code"
//	@Success		200		{object}	authsdk.SuccessResponse	"success"
//	@Failure		401		{object}	authsdk.ErrorResponse	"Not signed in"
//	@Failure		403		{object}	authsdk.ErrorResponse	"Not an admin"
//	@Failure		404		{object}	authsdk.ErrorResponse	"Unknown code"
//	@Security		BearerAuth
//	@Router			/invites/{code}/deactivate [post].
func (h *InviteHandler) HandleDeactivate(w http.ResponseWriter, r *http.Request) {
	if err := h.AuthService.DeactivateInvite(r.Context(), actor(r), r.PathValue("code")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.SuccessResponse{Success: true})
}
