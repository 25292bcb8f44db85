package authsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// BootstrapTokenHeader carries the pre-shared bootstrap token.
const BootstrapTokenHeader = "X-Bootstrap-Token"

// Bootstrap creates the first administrator. It only succeeds once, on a
// service with no users.
func (c *SDKClient) Bootstrap(ctx context.Context, token string, req BootstrapRequest) (*Session, *BootstrapResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	headers := map[string]string{
		"Content-Type":       "application/json",
		BootstrapTokenHeader: token,
	}

	resp, err := c.doRequest(ctx, http.MethodPost, "/bootstrap", bytes.NewReader(body), headers, "")
	if err != nil {
		return nil, nil, err
	}

	var out BootstrapResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, nil, err
	}

	return c.NewSessionFromToken(out.SessionToken, out.ExpiresAt), &out, nil
}
