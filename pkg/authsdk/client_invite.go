package authsdk

import (
	"context"
	"net/http"
	"net/url"
)

// CheckInvite pre-validates an invite code without consuming it. Unknown codes
// return a 404 *APIError; known but unusable codes return Valid false.
func (c *SDKClient) CheckInvite(ctx context.Context, code, email string) (*CheckInviteResponse, error) {
	path := "/check-invite/" + url.PathEscape(code)
	if email != "" {
		path += "?" + url.Values{"email": {email}}.Encode()
	}

	resp, err := c.doRequest(ctx, http.MethodGet, path, nil, nil, "")
	if err != nil {
		return nil, err
	}

	var out CheckInviteResponse
	expected := http.StatusOK
	if resp.StatusCode == http.StatusBadRequest {
		expected = http.StatusBadRequest
	}
	if err := decodeJSON(resp, &out, expected); err != nil {
		return nil, err
	}
	return &out, nil
}
