package http

import (
	"net/http"

	"github.com/wealthstudio/studio-auth/internal/auth/domain"
	"github.com/wealthstudio/studio-auth/internal/auth/service"
	"github.com/wealthstudio/studio-auth/pkg/authsdk"
	"github.com/wealthstudio/studio-auth/pkg/httpx"
	"github.com/wealthstudio/studio-auth/pkg/slogx"
)

type BootstrapHandler struct {
	BootstrapService *service.BootstrapService
}

// ServeHTTP handles the bootstrap endpoint for initial system setup.
//
//	@Summary		Bootstrap the authentication system
//	@Description	Creates the first admin user, signs it in and issues a first invite code. Only available when a bootstrap token is configured, and only while no users exist.
//	@Tags			Bootstrap
//	@Accept			json
//	@Produce		json
//	@Param			X-Bootstrap-Token	header		string						true	"Bootstrap token for authorization"
//	@Param			request				body		authsdk.BootstrapRequest	true	"First admin"
//	@Success		200					{object}	authsdk.BootstrapResponse	"Admin session and first invite code"
//	@Failure		400					{object}	authsdk.ErrorResponse		"Invalid request body or validation failed"
//	@Failure		401					{object}	authsdk.ErrorResponse		"Missing or invalid bootstrap token"
//	@Failure		404					{object}	authsdk.ErrorResponse		"Bootstrap not enabled (no token configured)"
//	@Failure		409					{object}	authsdk.ErrorResponse		"System already bootstrapped"
//	@Router			/bootstrap [post].
func (h *BootstrapHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	l := slogx.FromContext(r.Context())
	l.Info("Starting to bootstrap")

	// 1. Check if enabled
	if h.BootstrapService.Token == "" {
		writeServiceError(w, r, service.ErrBootstrapDisabled)
		return
	}

	// 2. Require bootstrap token header
	token := r.Header.Get(authsdk.BootstrapTokenHeader)
	if token == "" {
		httpx.WriteError(w, http.StatusUnauthorized, "Bootstrap token is required in X-Bootstrap-Token header")
		return
	}

	// 3. Parse request body and validate
	var req authsdk.BootstrapRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	// 4. Bootstrap
	res, err := h.BootstrapService.Bootstrap(r.Context(), token, domain.BootstrapData{
		Email:        req.Email,
		Name:         req.Name,
		Password:     req.Password,
		Organization: req.Organization,
	}, clientMeta(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.BootstrapResponse{
		AuthResponse: toAuthResponse(service.AuthResult{Session: res.Session, User: res.Admin}),
		InviteCode:   res.Invite.Code,
	})
}
