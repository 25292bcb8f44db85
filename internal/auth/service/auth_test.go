package service_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wealthstudio/studio-auth/internal/auth/domain"
	"github.com/wealthstudio/studio-auth/internal/auth/service"
)

func registerParams(email, code string) service.RegisterParams {
	return service.RegisterParams{
		Email:      email,
		Password:   "s3cret-pass",
		Name:       "Ada",
		InviteCode: code,
		Meta:       domain.ClientMeta{IPAddress: "10.1.1.1", UserAgent: "test"},
	}
}

func TestRegister_SingleUseScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedInvite(t, domain.InviteCode{Code: "WEALTH-ABC123", MaxUses: 1, Organization: "Acme Wealth"})

	res, err := f.auth.Register(ctx, registerParams("a@x.com", "WEALTH-ABC123"))
	require.NoError(t, err)
	require.NotEmpty(t, res.Session.Token)
	require.Equal(t, "a@x.com", res.User.Email)
	require.Equal(t, "WEALTH-ABC123", res.User.InviteCodeUsed)
	require.Equal(t, "Acme Wealth", res.User.Organization)
	require.Equal(t, domain.RoleUser, res.User.Role)
	require.Equal(t, 1, f.usedCount(t, "WEALTH-ABC123"))

	_, err = f.auth.Register(ctx, registerParams("b@x.com", "WEALTH-ABC123"))
	require.ErrorIs(t, err, service.ErrInviteExhausted)

	_, err = f.users.FindByEmail(ctx, "b@x.com")
	require.ErrorIs(t, err, service.ErrUserNotFound)
	require.Equal(t, 1, f.usedCount(t, "WEALTH-ABC123"))
}

func TestRegister_SessionWorks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedInvite(t, domain.InviteCode{Code: "WEALTH-ABC123", MaxUses: 1})

	res, err := f.auth.Register(ctx, registerParams("a@x.com", "WEALTH-ABC123"))
	require.NoError(t, err)

	_, u, err := f.auth.Validate(ctx, res.Session.Token)
	require.NoError(t, err)
	require.Equal(t, res.User.ID, u.ID)
	require.Contains(t, f.accessLogActions(t), domain.ActionRegister)
}

func TestRegister_ExplicitOrganizationWins(t *testing.T) {
	f := newFixture(t)
	f.seedInvite(t, domain.InviteCode{Code: "WEALTH-ABC123", MaxUses: 1, Organization: "Acme Wealth"})

	p := registerParams("a@x.com", "WEALTH-ABC123")
	p.Organization = "Other Co"
	res, err := f.auth.Register(context.Background(), p)
	require.NoError(t, err)
	require.Equal(t, "Other Co", res.User.Organization)
}

func TestRegister_ExpiredInviteLeavesNoTrace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	exp := f.clock.Now().Add(time.Hour)
	f.seedInvite(t, domain.InviteCode{Code: "WEALTH-ABC123", MaxUses: 5, ExpiresAt: &exp})

	f.clock.Advance(2 * time.Hour)
	_, err := f.auth.Register(ctx, registerParams("a@x.com", "WEALTH-ABC123"))
	require.ErrorIs(t, err, service.ErrInvalidOrExpiredInvite)

	empty, err := f.store.Users().IsEmpty(ctx)
	require.NoError(t, err)
	require.True(t, empty)
	require.Equal(t, 0, f.usedCount(t, "WEALTH-ABC123"))
}

func TestRegister_Failures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedInvite(t, domain.InviteCode{Code: "WEALTH-BOUND0001", MaxUses: 5, Email: "a@x.com"})
	f.seedInvite(t, domain.InviteCode{Code: "WEALTH-OPEN00001", MaxUses: 5})
	f.seedUser(t, "taken@x.com", "pw", domain.RoleUser)

	_, err := f.auth.Register(ctx, registerParams("a@x.com", "WEALTH-UNKNOWN"))
	require.ErrorIs(t, err, service.ErrInvalidOrExpiredInvite)

	_, err = f.auth.Register(ctx, registerParams("b@x.com", "WEALTH-BOUND0001"))
	require.ErrorIs(t, err, service.ErrInvalidOrExpiredInvite)

	_, err = f.auth.Register(ctx, registerParams("taken@x.com", "WEALTH-OPEN00001"))
	require.ErrorIs(t, err, service.ErrDuplicateEmail)
	require.Equal(t, 0, f.usedCount(t, "WEALTH-OPEN00001"))

	bad := registerParams("not-an-email", "")
	bad.Password = ""
	bad.Name = "  "
	_, err = f.auth.Register(ctx, bad)
	var verr *service.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Fields, 4)

	_, err = f.auth.Register(ctx, registerParams(" a@x.com", "WEALTH-OPEN00001"))
	require.ErrorIs(t, err, service.ErrValidation)
}

func TestRegister_NameEmptyAfterCleaning(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedInvite(t, domain.InviteCode{Code: "WEALTH-ABC123", MaxUses: 1})

	p := registerParams("a@x.com", "WEALTH-ABC123")
	p.Name = "<b></b>"
	_, err := f.auth.Register(ctx, p)
	var verr *service.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "is required", verr.Fields["name"])

	empty, err := f.store.Users().IsEmpty(ctx)
	require.NoError(t, err)
	require.True(t, empty)
	require.Equal(t, 0, f.usedCount(t, "WEALTH-ABC123"))
}

func TestRegister_ConcurrentLastUse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedInvite(t, domain.InviteCode{Code: "WEALTH-ABC123", MaxUses: 1})

	const workers = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
		errs []error
	)
	for i := range workers {
		wg.Go(func() {
			_, err := f.auth.Register(ctx, registerParams(fmt.Sprintf("u%d@x.com", i), "WEALTH-ABC123"))
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			wins++
		})
	}
	wg.Wait()

	require.Equal(t, 1, wins)
	for _, err := range errs {
		require.ErrorIs(t, err, service.ErrInviteExhausted)
	}
	require.Equal(t, 1, f.usedCount(t, "WEALTH-ABC123"))
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.seedUser(t, "a@x.com", "right", domain.RoleUser)

	res, err := f.auth.Login(ctx, "a@x.com", "right", domain.ClientMeta{})
	require.NoError(t, err)
	require.NotNil(t, res.User.LastLogin)
	require.True(t, res.User.LastLogin.Equal(f.clock.Now()))

	_, got, err := f.auth.Validate(ctx, res.Session.Token)
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)

	stored, err := f.users.Get(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastLogin)
}

func TestLogin_FailuresIndistinguishable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.seedUser(t, "a@x.com", "right", domain.RoleUser)
	f.seedUser(t, "off@x.com", "right", domain.RoleUser)
	off, err := f.users.FindByEmail(ctx, "off@x.com")
	require.NoError(t, err)
	require.NoError(t, f.users.SetActive(ctx, off.ID, false))

	_, wrong := f.auth.Login(ctx, "a@x.com", "wrong", domain.ClientMeta{})
	_, unknown := f.auth.Login(ctx, "nobody@x.com", "right", domain.ClientMeta{})
	_, inactive := f.auth.Login(ctx, "off@x.com", "right", domain.ClientMeta{})

	require.ErrorIs(t, wrong, service.ErrInvalidCredentials)
	require.Equal(t, wrong, unknown)
	require.Equal(t, wrong, inactive)

	entries, err := f.store.AccessLogs().ListAccessLogs(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	for _, e := range entries {
		require.Equal(t, domain.ActionLoginFailed, e.Action)
		require.Nil(t, e.UserID)
	}

	stored, err := f.users.Get(ctx, u.ID)
	require.NoError(t, err)
	require.Nil(t, stored.LastLogin)
}

func TestLogout_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedUser(t, "a@x.com", "right", domain.RoleUser)

	res, err := f.auth.Login(ctx, "a@x.com", "right", domain.ClientMeta{})
	require.NoError(t, err)

	require.NoError(t, f.auth.Logout(ctx, res.Session.Token, domain.ClientMeta{}))
	_, _, err = f.auth.Validate(ctx, res.Session.Token)
	require.ErrorIs(t, err, service.ErrSessionInvalid)

	require.NoError(t, f.auth.Logout(ctx, res.Session.Token, domain.ClientMeta{}))
	require.NoError(t, f.auth.Logout(ctx, "", domain.ClientMeta{}))
	require.NoError(t, f.auth.Logout(ctx, "junk", domain.ClientMeta{}))

	logouts := 0
	for _, a := range f.accessLogActions(t) {
		if a == domain.ActionLogout {
			logouts++
		}
	}
	require.Equal(t, 1, logouts)
}

func TestAdminOperations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.actor(t, f.seedUser(t, "admin@x.com", "pw", domain.RoleAdmin))
	member := f.actor(t, f.seedUser(t, "user@x.com", "pw", domain.RoleUser))

	inv, err := f.auth.CreateInvite(ctx, admin, service.CreateInviteParams{MaxUses: 2, ExpiresInDays: 30})
	require.NoError(t, err)
	require.Equal(t, admin.UserID, inv.CreatedBy)

	check, err := f.auth.CheckInvite(ctx, inv.Code, "")
	require.NoError(t, err)
	require.True(t, check.Valid)
	require.Equal(t, 2, check.RemainingUses)

	_, err = f.auth.CreateInvite(ctx, member, service.CreateInviteParams{MaxUses: 1})
	require.ErrorIs(t, err, service.ErrForbidden)
	_, err = f.auth.ListInvites(ctx, member)
	require.ErrorIs(t, err, service.ErrForbidden)
	require.ErrorIs(t, f.auth.DeactivateInvite(ctx, member, inv.Code), service.ErrForbidden)
	require.ErrorIs(t, f.auth.SetUserActive(ctx, member, admin.UserID, false), service.ErrForbidden)
	_, err = f.auth.ListAccessLogs(ctx, member, 10, 0)
	require.ErrorIs(t, err, service.ErrForbidden)
	_, err = f.auth.CreateInvite(ctx, service.Actor{}, service.CreateInviteParams{MaxUses: 1})
	require.ErrorIs(t, err, service.ErrForbidden)

	list, err := f.auth.ListInvites(ctx, admin)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, f.auth.DeactivateInvite(ctx, admin, inv.Code))
	check, err = f.auth.CheckInvite(ctx, inv.Code, "")
	require.NoError(t, err)
	require.False(t, check.Valid)
	require.Equal(t, domain.InviteInactive, check.Reason)

	require.ErrorIs(t, f.auth.SetUserActive(ctx, admin, admin.UserID, false), service.ErrValidation)
	require.NoError(t, f.auth.SetUserActive(ctx, admin, member.UserID, false))
	_, err = f.auth.Login(ctx, "user@x.com", "pw", domain.ClientMeta{})
	require.ErrorIs(t, err, service.ErrInvalidCredentials)

	logs, err := f.auth.ListAccessLogs(ctx, admin, 0, 0)
	require.NoError(t, err)
	actions := make([]domain.AuditAction, 0, len(logs))
	for _, e := range logs {
		actions = append(actions, e.Action)
	}
	require.Subset(t, actions, []domain.AuditAction{
		domain.ActionCreateInvite,
		domain.ActionDeactivateInvite,
		domain.ActionDeactivateUser,
	})
}

func TestChangePasswordAndListSessions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.seedUser(t, "a@x.com", "old", domain.RoleUser)
	me := f.actor(t, u)

	_, err := f.auth.Login(ctx, "a@x.com", "old", domain.ClientMeta{})
	require.NoError(t, err)

	sessions, err := f.auth.ListSessions(ctx, me)
	require.NoError(t, err)
	require.Len(t, sessions, 2)

	require.NoError(t, f.auth.ChangePassword(ctx, me, "old", "new"))

	sessions, err = f.auth.ListSessions(ctx, me)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	require.Equal(t, me.SessionID, sessions[0].ID)

	_, err = f.auth.ListSessions(ctx, service.Actor{})
	require.ErrorIs(t, err, service.ErrSessionInvalid)
}
