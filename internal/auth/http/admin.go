package http

import (
	"net/http"
	"strconv"

	"github.com/wealthstudio/studio-auth/internal/auth/service"
	"github.com/wealthstudio/studio-auth/pkg/authsdk"
	"github.com/wealthstudio/studio-auth/pkg/httpx"
)

// AdminHandler serves account administration and the audit trail.
type AdminHandler struct {
	AuthService *service.AuthService
}

// HandleSetUserActive godoc
//
//	@Summary		Activate or deactivate an account
//	@Description	Deactivated accounts cannot log in and lose every session immediately. Admins cannot deactivate themselves.
//	@Tags			Admin
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string							true	"User ID"
//	@Param			request	body		authsdk.SetUserActiveRequest	true	"Desired state"
//	@Success		200		{object}	authsdk.SuccessResponse			"success"
//	@Failure		400		{object}	authsdk.ErrorResponse			"Invalid request"
//	@Failure		401		{object}	authsdk.ErrorResponse			"Not signed in"
//	@Failure		403		{object}	authsdk.ErrorResponse			"Not an admin"
//	@Failure		404		{object}	authsdk.ErrorResponse			"Unknown user"
//	@Security		BearerAuth
//	@Router			/users/{id}/active [post].
func (h *AdminHandler) HandleSetUserActive(w http.ResponseWriter, r *http.Request) {
	var req authsdk.SetUserActiveRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, msgBadJSON)
		return
	}

	if err := h.AuthService.SetUserActive(r.Context(), actor(r), r.PathValue("id"), req.Active); err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.SuccessResponse{Success: true})
}

// HandleListAccessLogs godoc
//
//	@Summary		List access log entries
//	@Description	Pages through the audit trail, newest first. Admin only.
//	@Tags			Admin
//	@Produce		json
//	@Param			limit	query		int							false	"Page size (default 50, max 500)"
//	@Param			offset	query		int							false	"Entries to skip"
//	@Success		200		{array}		authsdk.AccessLogResponse	"entries"
//	@Failure		400		{object}	authsdk.ErrorResponse		"Bad paging parameters"
//	@Failure		401		{object}	authsdk.ErrorResponse		"Not signed in"
//	@Failure		403		{object}	authsdk.ErrorResponse		"Not an admin"
//	@Security		BearerAuth
//	@Router			/access-logs [get].
func (h *AdminHandler) HandleListAccessLogs(w http.ResponseWriter, r *http.Request) {
	fields := map[string]string{}
	limit := queryInt(r, "limit", fields)
	offset := queryInt(r, "offset", fields)
	if len(fields) > 0 {
		writeValidation(w, fields)
		return
	}

	entries, err := h.AuthService.ListAccessLogs(r.Context(), actor(r), limit, offset)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, mapSlice(entries, toAccessLogResponse))
}

func queryInt(r *http.Request, key string, fields map[string]string) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		fields[key] = "must be a non-negative integer"
		return 0
	}
	return n
}
