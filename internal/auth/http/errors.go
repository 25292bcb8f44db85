package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/wealthstudio/studio-auth/internal/auth/service"
	"github.com/wealthstudio/studio-auth/pkg/authsdk"
	"github.com/wealthstudio/studio-auth/pkg/httpx"
	"github.com/wealthstudio/studio-auth/pkg/slogx"
)

const (
	msgBadJSON            = "Request body must be valid JSON"
	msgValidation         = "Validation failed"
	msgInvalidCredentials = "Invalid email or password"
	msgSessionInvalid     = "Invalid or expired session"
	msgInvalidInvite      = "Invalid or expired invite code"
	msgInviteExhausted    = "Invite code has reached maximum uses"
	msgDuplicateEmail     = "User already exists"
	msgForbidden          = "Admin access required"
	msgInviteNotFound     = "Invite code not found"
	msgUserNotFound       = "User not found"
	msgInternal           = "Internal server error"
)

// writeServiceError maps service errors onto status codes. Anything
// unrecognised is logged and reported as a bare 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *service.ValidationError

	switch {
	case errors.As(err, &verr):
		writeValidation(w, verr.Fields)
	case errors.Is(err, service.ErrValidation):
		httpx.WriteError(w, http.StatusBadRequest, msgValidation)
	case errors.Is(err, service.ErrInvalidCredentials):
		httpx.WriteError(w, http.StatusUnauthorized, msgInvalidCredentials)
	case errors.Is(err, service.ErrSessionInvalid):
		httpx.WriteError(w, http.StatusUnauthorized, msgSessionInvalid)
	case errors.Is(err, service.ErrInvalidOrExpiredInvite):
		httpx.WriteError(w, http.StatusBadRequest, msgInvalidInvite)
	case errors.Is(err, service.ErrInviteExhausted):
		httpx.WriteError(w, http.StatusBadRequest, msgInviteExhausted)
	case errors.Is(err, service.ErrDuplicateEmail):
		httpx.WriteError(w, http.StatusBadRequest, msgDuplicateEmail)
	case errors.Is(err, service.ErrForbidden):
		httpx.WriteError(w, http.StatusForbidden, msgForbidden)
	case errors.Is(err, service.ErrInviteNotFound):
		httpx.WriteError(w, http.StatusNotFound, msgInviteNotFound)
	case errors.Is(err, service.ErrUserNotFound):
		httpx.WriteError(w, http.StatusNotFound, msgUserNotFound)
	case errors.Is(err, service.ErrBootstrapDisabled):
		httpx.WriteError(w, http.StatusNotFound, "Bootstrap endpoint is not enabled")
	case errors.Is(err, service.ErrBootstrapUnauthorized):
		httpx.WriteError(w, http.StatusUnauthorized, "Invalid bootstrap token")
	case errors.Is(err, service.ErrBootstrapAlready):
		httpx.WriteError(w, http.StatusConflict, "System already bootstrapped")
	default:
		slogx.FromContext(r.Context()).Error("request failed",
			slog.String("path", r.URL.Path),
			slog.Any("error", err),
		)
		httpx.WriteError(w, http.StatusInternalServerError, msgInternal)
	}
}

func writeValidation(w http.ResponseWriter, fields map[string]string) {
	httpx.WriteJSON(w, http.StatusBadRequest, authsdk.ErrorResponse{
		Error:   msgValidation,
		Details: fields,
	})
}

// decodeRequest reads the JSON body into dst and runs its boundary
// validation. It writes the 400 itself and reports false on failure.
func decodeRequest[T interface{ Validate() map[string]string }](w http.ResponseWriter, r *http.Request, dst *T) bool {
	if err := httpx.DecodeJSON(w, r, dst); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, msgBadJSON)
		return false
	}
	if errs := (*dst).Validate(); errs != nil {
		writeValidation(w, errs)
		return false
	}
	return true
}
