package authsdk

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// SDKClient is a client for the studio authentication service.
// It provides access to unauthenticated operations and can create authenticated Sessions.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewSDKClient creates a new auth service client.
func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Register creates an account using an invite code and returns a session
// for it.
func (c *SDKClient) Register(ctx context.Context, req RegisterRequest) (*Session, *AuthResponse, error) {
	var out AuthResponse
	if err := c.doJSON(ctx, http.MethodPost, "/register", "", req, &out, http.StatusOK); err != nil {
		return nil, nil, err
	}
	return c.NewSessionFromToken(out.SessionToken, out.ExpiresAt), &out, nil
}

// AuthenticateWithPassword logs in and returns a session.
func (c *SDKClient) AuthenticateWithPassword(ctx context.Context, email, password string) (*Session, *AuthResponse, error) {
	var out AuthResponse
	req := LoginRequest{Email: email, Password: password}
	if err := c.doJSON(ctx, http.MethodPost, "/login", "", req, &out, http.StatusOK); err != nil {
		return nil, nil, err
	}
	return c.NewSessionFromToken(out.SessionToken, out.ExpiresAt), &out, nil
}

// NewSessionFromToken wraps a session token obtained elsewhere, for example
// one a browser forwarded to a backend.
func (c *SDKClient) NewSessionFromToken(token string, expiresAt time.Time) *Session {
	return &Session{client: c, token: token, expiresAt: expiresAt}
}

// ValidateToken asks the service whether token is live. An invalid token is
// reported as Valid false, not as an error.
func (c *SDKClient) ValidateToken(ctx context.Context, token string) (*ValidateResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/validate", nil, nil, token)
	if err != nil {
		return nil, err
	}

	var out ValidateResponse
	if resp.StatusCode == http.StatusUnauthorized {
		if err := decodeJSON(resp, &out, http.StatusUnauthorized); err != nil {
			return nil, err
		}
		return &out, nil
	}
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}
