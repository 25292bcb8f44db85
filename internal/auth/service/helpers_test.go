package service_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wealthstudio/studio-auth/internal/auth/domain"
	"github.com/wealthstudio/studio-auth/internal/auth/service"
	"github.com/wealthstudio/studio-auth/internal/auth/store"
	"github.com/wealthstudio/studio-auth/internal/auth/store/drivers/sqlite"
	"github.com/wealthstudio/studio-auth/pkg/cryptox"
	"github.com/wealthstudio/studio-auth/pkg/jwtx"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	store     store.Store
	clock     *fakeClock
	invites   *service.InviteService
	users     *service.UserService
	sessions  *service.SessionService
	audit     *service.AuditService
	auth      *service.AuthService
	bootstrap *service.BootstrapService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	st, err := sqlite.NewStore(filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	codec, err := jwtx.NewHS256Codec([]byte("test-secret-test-secret-test-secret"), "studio-auth", 0)
	require.NoError(t, err)

	clock := newFakeClock()
	hasher := cryptox.NewPasswordHasher(cryptox.Params{MemoryKiB: 64, Iterations: 1, Parallelism: 1}, "pepper")

	f := &fixture{store: st, clock: clock}
	f.invites = &service.InviteService{Store: st, Clock: clock.Now}
	f.users = &service.UserService{Store: st, Hasher: hasher, Clock: clock.Now}
	f.sessions = &service.SessionService{Store: st, Codec: codec, TTL: 24 * time.Hour, Clock: clock.Now}
	f.audit = &service.AuditService{Store: st, Mode: service.AuditAll, Clock: clock.Now}
	f.auth = &service.AuthService{
		Store:    st,
		Invites:  f.invites,
		Users:    f.users,
		Sessions: f.sessions,
		Audit:    f.audit,
	}
	f.bootstrap = &service.BootstrapService{
		Store:    st,
		Token:    "bootstrap-token",
		Users:    f.users,
		Invites:  f.invites,
		Sessions: f.sessions,
		Audit:    f.audit,
	}
	return f
}

// seedInvite stores a code directly so tests control its exact value.
func (f *fixture) seedInvite(t *testing.T, inv domain.InviteCode) {
	t.Helper()
	if inv.ID == "" {
		inv.ID = inv.Code
	}
	if inv.CreatedBy == "" {
		inv.CreatedBy = "seed"
	}
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = f.clock.Now()
	}
	inv.IsActive = true
	require.NoError(t, f.store.Invites().CreateInvite(context.Background(), inv))
}

// seedUser creates an active account with the given role and password.
func (f *fixture) seedUser(t *testing.T, email, password string, role domain.Role) domain.User {
	t.Helper()
	hash, err := f.users.HashPassword(password)
	require.NoError(t, err)
	u, err := f.users.Create(context.Background(), f.store, service.CreateUserParams{
		Email:        email,
		Name:         "Seed User",
		PasswordHash: hash,
		Organization: "Acme Wealth",
		Role:         role,
	})
	require.NoError(t, err)
	return u
}

func (f *fixture) actor(t *testing.T, u domain.User) service.Actor {
	t.Helper()
	issued, err := f.sessions.Create(context.Background(), u.ID, domain.ClientMeta{})
	require.NoError(t, err)
	return service.ActorFrom(issued.Session, u, domain.ClientMeta{IPAddress: "127.0.0.1"})
}

func (f *fixture) usedCount(t *testing.T, code string) int {
	t.Helper()
	inv, err := f.store.Invites().GetInviteByCode(context.Background(), code)
	require.NoError(t, err)
	return inv.UsedCount
}

func (f *fixture) accessLogActions(t *testing.T) []domain.AuditAction {
	t.Helper()
	entries, err := f.store.AccessLogs().ListAccessLogs(context.Background(), 100, 0)
	require.NoError(t, err)
	actions := make([]domain.AuditAction, 0, len(entries))
	for _, e := range entries {
		actions = append(actions, e.Action)
	}
	return actions
}
