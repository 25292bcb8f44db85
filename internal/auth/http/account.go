package http

import (
	"errors"
	"net/http"

	"github.com/wealthstudio/studio-auth/internal/auth/service"
	"github.com/wealthstudio/studio-auth/pkg/authsdk"
	"github.com/wealthstudio/studio-auth/pkg/httpx"
)

// AccountHandler serves registration, login and the caller's own session.
type AccountHandler struct {
	AuthService *service.AuthService
}

// HandleRegister godoc
//
//	@Summary		Register with an invite code
//	@Description	Creates an account from an invite code and signs it in. The invite is redeemed and the account created atomically.
//	@Tags			Account
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.RegisterRequest	true	"Registration details"
//	@Success		200		{object}	authsdk.AuthResponse	"success, sessionToken, expiresAt, user"
//	@Failure		400		{object}	authsdk.ErrorResponse	"Missing fields, invalid or exhausted invite, or user exists"
//	@Failure		429		{object}	authsdk.ErrorResponse	"Rate limited"
//	@Failure		500		{object}	authsdk.ErrorResponse	"Internal error"
//	@Router			/register [post].
func (h *AccountHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RegisterRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	res, err := h.AuthService.Register(r.Context(), service.RegisterParams{
		Email:        req.Email,
		Password:     req.Password,
		Name:         req.Name,
		InviteCode:   req.InviteCode,
		Organization: req.Organization,
		Meta:         clientMeta(r),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toAuthResponse(res))
}

// HandleLogin godoc
//
//	@Summary		Log in
//	@Description	Exchanges email and password for a session token. Unknown email, wrong password and deactivated account are indistinguishable.
//	@Tags			Account
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.LoginRequest	true	"Credentials"
//	@Success		200		{object}	authsdk.AuthResponse	"success, sessionToken, expiresAt, user"
//	@Failure		400		{object}	authsdk.ErrorResponse	"Missing fields"
//	@Failure		401		{object}	authsdk.ErrorResponse	"Invalid email or password"
//	@Failure		429		{object}	authsdk.ErrorResponse	"Rate limited"
//	@Router			/login [post].
func (h *AccountHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req authsdk.LoginRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	res, err := h.AuthService.Login(r.Context(), req.Email, req.Password, clientMeta(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toAuthResponse(res))
}

// HandleValidate godoc
//
//	@Summary		Validate a session token
//	@Description	Reports whether the bearer token belongs to a live session of an active user.
//	@Tags			Account
//	@Produce		json
//	@Success		200	{object}	authsdk.ValidateResponse	"valid, user"
//	@Failure		401	{object}	authsdk.ValidateResponse	"valid=false"
//	@Security		BearerAuth
//	@Router			/validate [get].
func (h *AccountHandler) HandleValidate(w http.ResponseWriter, r *http.Request) {
	token, ok := httpx.BearerToken(r)
	if !ok {
		httpx.WriteJSON(w, http.StatusUnauthorized, authsdk.ValidateResponse{Error: "No token provided"})
		return
	}

	_, u, err := h.AuthService.Validate(r.Context(), token)
	if err != nil {
		if errors.Is(err, service.ErrSessionInvalid) {
			httpx.WriteJSON(w, http.StatusUnauthorized, authsdk.ValidateResponse{Error: msgSessionInvalid})
			return
		}
		writeServiceError(w, r, err)
		return
	}

	user := toUserResponse(u)
	httpx.WriteJSON(w, http.StatusOK, authsdk.ValidateResponse{Valid: true, User: &user})
}

// HandleLogout godoc
//
//	@Summary		Log out
//	@Description	Revokes the bearer token's session. Always succeeds, even for unknown or already revoked tokens.
//	@Tags			Account
//	@Produce		json
//	@Success		200	{object}	authsdk.SuccessResponse	"success"
//	@Security		BearerAuth
//	@Router			/logout [post].
func (h *AccountHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	token, _ := httpx.BearerToken(r)
	_ = h.AuthService.Logout(r.Context(), token, clientMeta(r))
	httpx.WriteJSON(w, http.StatusOK, authsdk.SuccessResponse{Success: true})
}

// HandleChangePassword godoc
//
//	@Summary		Change password
//	@Description	Replaces the caller's password. All of the caller's other sessions are revoked.
//	@Tags			Account
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.ChangePasswordRequest	true	"Current and new password"
//	@Success		200		{object}	authsdk.SuccessResponse			"success"
//	@Failure		400		{object}	authsdk.ErrorResponse			"Missing fields"
//	@Failure		401		{object}	authsdk.ErrorResponse			"Not signed in or wrong current password"
//	@Security		BearerAuth
//	@Router			/change-password [post].
func (h *AccountHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req authsdk.ChangePasswordRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	if err := h.AuthService.ChangePassword(r.Context(), actor(r), req.CurrentPassword, req.NewPassword); err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.SuccessResponse{Success: true})
}

// HandleListSessions godoc
//
//	@Summary		List own sessions
//	@Description	Lists the caller's unexpired sessions, newest first. The session making the request is flagged current.
//	@Tags			Account
//	@Produce		json
//	@Success		200	{array}		authsdk.SessionResponse	"sessions"
//	@Failure		401	{object}	authsdk.ErrorResponse	"Not signed in"
//	@Security		BearerAuth
//	@Router			/sessions [get].
func (h *AccountHandler) HandleListSessions(w http.ResponseWriter, r *http.Request) {
	a := actor(r)
	sessions, err := h.AuthService.ListSessions(r.Context(), a)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]authsdk.SessionResponse, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, toSessionResponse(s, a.SessionID))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}
