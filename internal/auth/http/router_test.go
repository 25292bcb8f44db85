package http_test

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	httpapi "github.com/wealthstudio/studio-auth/internal/auth/http"
	"github.com/wealthstudio/studio-auth/internal/auth/service"
	"github.com/wealthstudio/studio-auth/internal/auth/store/drivers/sqlite"
	"github.com/wealthstudio/studio-auth/pkg/authsdk"
	"github.com/wealthstudio/studio-auth/pkg/cryptox"
	"github.com/wealthstudio/studio-auth/pkg/httpx"
	"github.com/wealthstudio/studio-auth/pkg/jwtx"
	"github.com/wealthstudio/studio-auth/pkg/slogx"
)

const (
	bootstrapToken = "test-bootstrap-token-12345"
	adminEmail     = "admin@wealth.studio"
	adminPassword  = "Admin123!"
	userPassword   = "hunter2-but-longer"
)

// newTestServer wires the full router against a fresh SQLite database with
// rate limiting disabled.
func newTestServer(t *testing.T) (*httptest.Server, *authsdk.SDKClient) {
	t.Helper()
	return newTestServerWith(t, httpapi.Options{CORSOrigins: []string{"https://studio.example"}})
}

func newTestServerWith(t *testing.T, opts httpapi.Options) (*httptest.Server, *authsdk.SDKClient) {
	t.Helper()

	st, err := sqlite.NewStore(filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	codec, err := jwtx.NewHS256Codec([]byte("router-test-secret-router-test-secret"), "studio-auth", 0)
	require.NoError(t, err)

	hasher := cryptox.NewPasswordHasher(cryptox.Params{MemoryKiB: 64, Iterations: 1, Parallelism: 1}, "pepper")

	audit := &service.AuditService{Store: st, Mode: service.AuditDB}
	invites := &service.InviteService{Store: st}
	users := &service.UserService{Store: st, Hasher: hasher}
	sessions := &service.SessionService{Store: st, Codec: codec}

	router := httpapi.NewRouter("test", st, slogx.Discard(), opts)
	router.AuthService = &service.AuthService{
		Store:    st,
		Invites:  invites,
		Users:    users,
		Sessions: sessions,
		Audit:    audit,
	}
	router.BootstrapService = &service.BootstrapService{
		Store:    st,
		Token:    bootstrapToken,
		Users:    users,
		Invites:  invites,
		Sessions: sessions,
		Audit:    audit,
	}
	router.ApplyRoutes()

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return srv, authsdk.NewSDKClient(srv.URL)
}

// bootstrapAdmin creates the first admin and returns its session.
func bootstrapAdmin(t *testing.T, client *authsdk.SDKClient) *authsdk.Session {
	t.Helper()

	session, resp, err := client.Bootstrap(t.Context(), bootstrapToken, authsdk.BootstrapRequest{
		Email:        adminEmail,
		Password:     adminPassword,
		Name:         "Administrator",
		Organization: "Wealth Studio",
	})
	require.NoError(t, err)
	require.Equal(t, "admin", resp.User.Role)
	require.NotEmpty(t, resp.InviteCode)
	return session
}

func createInvite(t *testing.T, admin *authsdk.Session, maxUses int) string {
	t.Helper()

	resp, err := admin.CreateInvite(t.Context(), authsdk.CreateInviteRequest{
		MaxUses:      &maxUses,
		Organization: "Acme Capital",
	})
	require.NoError(t, err)
	require.True(t, resp.Success)
	return resp.InviteCode
}

func registerUser(t *testing.T, client *authsdk.SDKClient, code, email string) (*authsdk.Session, *authsdk.AuthResponse) {
	t.Helper()

	session, resp, err := client.Register(t.Context(), authsdk.RegisterRequest{
		Email:      email,
		Password:   userPassword,
		Name:       "Test User",
		InviteCode: code,
	})
	require.NoError(t, err)
	return session, resp
}

func requireAPIError(t *testing.T, err error, status int) *authsdk.APIError {
	t.Helper()

	var apiErr *authsdk.APIError
	require.True(t, errors.As(err, &apiErr), "expected *APIError, got %v", err)
	require.Equal(t, status, apiErr.StatusCode)
	return apiErr
}

// TestSingleUseInviteFlow covers the invite lifecycle end to end:
// 1. Admin creates a single-use invite
// 2. The code checks as valid
// 3. The first registration succeeds
// 4. The code now checks as exhausted and a second registration fails
func TestSingleUseInviteFlow(t *testing.T) {
	_, client := newTestServer(t)
	admin := bootstrapAdmin(t, client)
	ctx := t.Context()

	code := createInvite(t, admin, 1)

	check, err := client.CheckInvite(ctx, code, "")
	require.NoError(t, err)
	require.True(t, check.Valid)
	require.Equal(t, "Acme Capital", check.Organization)
	require.Equal(t, 1, check.RemainingUses)

	_, reg := registerUser(t, client, code, "a@x.com")
	require.True(t, reg.Success)
	require.NotEmpty(t, reg.SessionToken)
	require.Equal(t, "a@x.com", reg.User.Email)
	require.Equal(t, "user", reg.User.Role)
	require.Equal(t, "Acme Capital", reg.User.Organization)

	check, err = client.CheckInvite(ctx, code, "")
	require.NoError(t, err)
	require.False(t, check.Valid)
	require.Equal(t, "exhausted", check.Reason)
	require.Equal(t, 0, check.RemainingUses)

	_, _, err = client.Register(ctx, authsdk.RegisterRequest{
		Email:      "b@x.com",
		Password:   userPassword,
		Name:       "Second User",
		InviteCode: code,
	})
	apiErr := requireAPIError(t, err, http.StatusBadRequest)
	require.Equal(t, "Invite code has reached maximum uses", apiErr.Message)
}

func TestLoginValidateLogout(t *testing.T) {
	_, client := newTestServer(t)
	admin := bootstrapAdmin(t, client)
	ctx := t.Context()

	_, reg := registerUser(t, client, createInvite(t, admin, 1), "member@x.com")

	session, login, err := client.AuthenticateWithPassword(ctx, "member@x.com", userPassword)
	require.NoError(t, err)
	require.Equal(t, reg.User.ID, login.User.ID)
	require.NotNil(t, login.User.LastLogin)

	v, err := session.Validate(ctx)
	require.NoError(t, err)
	require.True(t, v.Valid)
	require.Equal(t, reg.User.ID, v.User.ID)

	require.NoError(t, session.Logout(ctx))

	v, err = session.Validate(ctx)
	require.NoError(t, err)
	require.False(t, v.Valid)
	require.Nil(t, v.User)

	// Logging out twice is harmless
	require.NoError(t, session.Logout(ctx))
}

func TestLogin_WrongPasswordAndUnknownUserLookAlike(t *testing.T) {
	_, client := newTestServer(t)
	bootstrapAdmin(t, client)
	ctx := t.Context()

	_, _, err := client.AuthenticateWithPassword(ctx, adminEmail, "not-the-password")
	wrong := requireAPIError(t, err, http.StatusUnauthorized)

	_, _, err = client.AuthenticateWithPassword(ctx, "nobody@x.com", "not-the-password")
	unknown := requireAPIError(t, err, http.StatusUnauthorized)

	require.Equal(t, wrong.Message, unknown.Message)
	require.Equal(t, "Invalid email or password", wrong.Message)
}

func TestValidate_MissingOrBogusToken(t *testing.T) {
	_, client := newTestServer(t)
	ctx := t.Context()

	v, err := client.ValidateToken(ctx, "")
	require.NoError(t, err)
	require.False(t, v.Valid)

	v, err = client.ValidateToken(ctx, "not-a-session-token")
	require.NoError(t, err)
	require.False(t, v.Valid)
	require.NotEmpty(t, v.Error)
}

func TestLogout_WithoutTokenSucceeds(t *testing.T) {
	_, client := newTestServer(t)

	session := client.NewSessionFromToken("", time.Time{})
	require.NoError(t, session.Logout(t.Context()))
}

// statusCounts fires n requests built by newReq and tallies the status codes.
func statusCounts(t *testing.T, srv *httptest.Server, n int, newReq func(i int) *http.Request) map[int]int {
	t.Helper()
	counts := map[int]int{}
	for i := range n {
		resp, err := srv.Client().Do(newReq(i))
		require.NoError(t, err)
		_ = resp.Body.Close()
		counts[resp.StatusCode]++
	}
	return counts
}

func TestDefaultLimits_ValidateAndLogoutNeverThrottled(t *testing.T) {
	srv, client := newTestServerWith(t, httpapi.Options{RateLimits: httpx.DefaultRateLimitProfiles()})
	admin := bootstrapAdmin(t, client)

	validate := statusCounts(t, srv, 150, func(int) *http.Request {
		req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, srv.URL+"/validate", nil)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+admin.Token())
		return req
	})
	require.Equal(t, map[int]int{http.StatusOK: 150}, validate)

	logout := statusCounts(t, srv, 150, func(int) *http.Request {
		req, err := http.NewRequestWithContext(t.Context(), http.MethodPost, srv.URL+"/logout", nil)
		require.NoError(t, err)
		return req
	})
	require.Equal(t, map[int]int{http.StatusOK: 150}, logout)
}

func TestLogin_ForwardedForFromUntrustedPeerIgnored(t *testing.T) {
	srv, _ := newTestServerWith(t, httpapi.Options{RateLimits: httpx.DefaultRateLimitProfiles()})

	counts := statusCounts(t, srv, 8, func(i int) *http.Request {
		body := strings.NewReader(`{"email":"victim@x.com","password":"guess"}`)
		req, err := http.NewRequestWithContext(t.Context(), http.MethodPost, srv.URL+"/login", body)
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i+1))
		return req
	})
	strict := httpx.DefaultRateLimitProfiles().Strict.Burst
	require.Equal(t, map[int]int{http.StatusUnauthorized: strict, http.StatusTooManyRequests: 8 - strict}, counts)
}

func TestAdminRoutes_RequireAdmin(t *testing.T) {
	_, client := newTestServer(t)
	admin := bootstrapAdmin(t, client)
	ctx := t.Context()

	member, _ := registerUser(t, client, createInvite(t, admin, 1), "member@x.com")

	_, err := member.CreateInvite(ctx, authsdk.CreateInviteRequest{})
	apiErr := requireAPIError(t, err, http.StatusForbidden)
	require.Equal(t, "Admin access required", apiErr.Message)

	_, err = member.ListInvites(ctx)
	require.True(t, authsdk.IsForbidden(err))

	_, err = member.ListAccessLogs(ctx, 10, 0)
	require.True(t, authsdk.IsForbidden(err))

	anonymous := client.NewSessionFromToken("garbage", time.Time{})
	_, err = anonymous.CreateInvite(ctx, authsdk.CreateInviteRequest{})
	require.True(t, authsdk.IsUnauthorized(err))
}

func TestCheckInvite_Unknown(t *testing.T) {
	_, client := newTestServer(t)

	_, err := client.CheckInvite(t.Context(), "WEALTH-NOPE00", "")
	require.True(t, authsdk.IsNotFound(err))
}

func TestCheckInvite_EmailBoundCode(t *testing.T) {
	_, client := newTestServer(t)
	admin := bootstrapAdmin(t, client)
	ctx := t.Context()

	resp, err := admin.CreateInvite(ctx, authsdk.CreateInviteRequest{Email: "bound@x.com"})
	require.NoError(t, err)

	check, err := client.CheckInvite(ctx, resp.InviteCode, "bound@x.com")
	require.NoError(t, err)
	require.True(t, check.Valid)

	check, err = client.CheckInvite(ctx, resp.InviteCode, "other@x.com")
	require.NoError(t, err)
	require.False(t, check.Valid)
	require.Equal(t, "email_mismatch", check.Reason)
}

func TestDeactivateInvite(t *testing.T) {
	_, client := newTestServer(t)
	admin := bootstrapAdmin(t, client)
	ctx := t.Context()

	code := createInvite(t, admin, 5)
	require.NoError(t, admin.DeactivateInvite(ctx, code))

	check, err := client.CheckInvite(ctx, code, "")
	require.NoError(t, err)
	require.False(t, check.Valid)
	require.Equal(t, "inactive", check.Reason)

	err = admin.DeactivateInvite(ctx, "WEALTH-NOPE00")
	require.True(t, authsdk.IsNotFound(err))

	list, err := admin.ListInvites(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, list)
}

func TestRegister_ValidationDetails(t *testing.T) {
	_, client := newTestServer(t)

	_, _, err := client.Register(t.Context(), authsdk.RegisterRequest{
		Email:    "a@x.com",
		Password: userPassword,
	})
	apiErr := requireAPIError(t, err, http.StatusBadRequest)
	require.Contains(t, apiErr.Details, "name")
	require.Contains(t, apiErr.Details, "inviteCode")
}

func TestSetUserActive_RevokesSessions(t *testing.T) {
	_, client := newTestServer(t)
	admin := bootstrapAdmin(t, client)
	ctx := t.Context()

	member, reg := registerUser(t, client, createInvite(t, admin, 1), "member@x.com")

	require.NoError(t, admin.SetUserActive(ctx, reg.User.ID, false))

	v, err := member.Validate(ctx)
	require.NoError(t, err)
	require.False(t, v.Valid)

	_, _, err = client.AuthenticateWithPassword(ctx, "member@x.com", userPassword)
	require.True(t, authsdk.IsUnauthorized(err))

	require.NoError(t, admin.SetUserActive(ctx, reg.User.ID, true))
	_, _, err = client.AuthenticateWithPassword(ctx, "member@x.com", userPassword)
	require.NoError(t, err)

	err = admin.SetUserActive(ctx, "01JUNKNOWNUSER0000000000000", false)
	require.True(t, authsdk.IsNotFound(err))
}

func TestChangePassword_KeepsOnlyCurrentSession(t *testing.T) {
	_, client := newTestServer(t)
	admin := bootstrapAdmin(t, client)
	ctx := t.Context()

	current, _ := registerUser(t, client, createInvite(t, admin, 1), "member@x.com")
	other, _, err := client.AuthenticateWithPassword(ctx, "member@x.com", userPassword)
	require.NoError(t, err)

	list, err := current.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)

	err = current.ChangePassword(ctx, "wrong-current", "brand-new-password")
	require.True(t, authsdk.IsUnauthorized(err))

	require.NoError(t, current.ChangePassword(ctx, userPassword, "brand-new-password"))

	v, err := other.Validate(ctx)
	require.NoError(t, err)
	require.False(t, v.Valid)

	list, err = current.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.True(t, list[0].Current)

	_, _, err = client.AuthenticateWithPassword(ctx, "member@x.com", "brand-new-password")
	require.NoError(t, err)
}

func TestAccessLogs(t *testing.T) {
	srv, client := newTestServer(t)
	admin := bootstrapAdmin(t, client)
	ctx := t.Context()

	registerUser(t, client, createInvite(t, admin, 1), "member@x.com")

	entries, err := admin.ListAccessLogs(ctx, 50, 0)
	require.NoError(t, err)

	actions := make([]string, 0, len(entries))
	for _, e := range entries {
		actions = append(actions, e.Action)
	}
	require.Contains(t, actions, "BOOTSTRAP")
	require.Contains(t, actions, "CREATE_INVITE")
	require.Contains(t, actions, "REGISTER")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/access-logs?limit=abc", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+admin.Token())

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestBootstrap_TokenAndOnce(t *testing.T) {
	_, client := newTestServer(t)
	ctx := t.Context()
	req := authsdk.BootstrapRequest{Email: adminEmail, Password: adminPassword, Name: "Administrator"}

	_, _, err := client.Bootstrap(ctx, "wrong-token", req)
	require.True(t, authsdk.IsUnauthorized(err))

	bootstrapAdmin(t, client)

	_, _, err = client.Bootstrap(ctx, bootstrapToken, req)
	require.Equal(t, http.StatusConflict, authsdk.StatusCode(err))
}

func TestCORSPreflight(t *testing.T) {
	srv, _ := newTestServer(t)

	req, err := http.NewRequestWithContext(t.Context(), http.MethodOptions, srv.URL+"/login", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://studio.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "https://studio.example", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestHealth(t *testing.T) {
	_, client := newTestServer(t)
	ctx := t.Context()

	live, err := client.GetLiveness(ctx)
	require.NoError(t, err)
	require.Equal(t, "ok", live.Status)
	require.Equal(t, "test", live.Version)

	ready, err := client.GetReadiness(ctx)
	require.NoError(t, err)
	require.Equal(t, "ok", ready.Status)
	require.Equal(t, "ok", ready.Checks.Database)
}
