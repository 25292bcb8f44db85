package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wealthstudio/studio-auth/internal/auth/domain"
	"github.com/wealthstudio/studio-auth/internal/auth/service"
	"github.com/wealthstudio/studio-auth/pkg/cryptox"
)

func TestSession_CreateAndValidate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.seedUser(t, "a@x.com", "pw", domain.RoleUser)

	issued, err := f.sessions.Create(ctx, u.ID, domain.ClientMeta{IPAddress: "10.0.0.1", UserAgent: "test"})
	require.NoError(t, err)
	require.NotEmpty(t, issued.Token)
	require.True(t, issued.ExpiresAt.Equal(f.clock.Now().Add(24*time.Hour)))
	require.Equal(t, cryptox.FingerprintToken(issued.Token), issued.Session.TokenHash)

	sess, got, err := f.sessions.Validate(ctx, issued.Token)
	require.NoError(t, err)
	require.Equal(t, issued.Session.ID, sess.ID)
	require.Equal(t, u.ID, got.ID)
	require.Equal(t, "10.0.0.1", sess.IPAddress)
}

func TestSession_TokenNotStored(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.seedUser(t, "a@x.com", "pw", domain.RoleUser)

	issued, err := f.sessions.Create(ctx, u.ID, domain.ClientMeta{})
	require.NoError(t, err)

	list, err := f.sessions.ListForUser(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NotEqual(t, issued.Token, list[0].TokenHash)
}

func TestSession_Expiry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.seedUser(t, "a@x.com", "pw", domain.RoleUser)

	issued, err := f.sessions.Create(ctx, u.ID, domain.ClientMeta{})
	require.NoError(t, err)

	f.clock.Advance(24*time.Hour - time.Second)
	_, _, err = f.sessions.Validate(ctx, issued.Token)
	require.NoError(t, err)

	f.clock.Advance(time.Second)
	_, _, err = f.sessions.Validate(ctx, issued.Token)
	require.ErrorIs(t, err, service.ErrSessionInvalid)
}

func TestSession_RevokedTokenRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.seedUser(t, "a@x.com", "pw", domain.RoleUser)

	issued, err := f.sessions.Create(ctx, u.ID, domain.ClientMeta{})
	require.NoError(t, err)

	require.NoError(t, f.sessions.Revoke(ctx, issued.Token))
	_, _, err = f.sessions.Validate(ctx, issued.Token)
	require.ErrorIs(t, err, service.ErrSessionInvalid)

	// again, and with garbage
	require.NoError(t, f.sessions.Revoke(ctx, issued.Token))
	require.NoError(t, f.sessions.Revoke(ctx, "not-a-token"))
	require.NoError(t, f.sessions.Revoke(ctx, ""))
}

func TestSession_InvalidTokens(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, token := range []string{"", "garbage", "a.b.c"} {
		_, _, err := f.sessions.Validate(ctx, token)
		require.ErrorIs(t, err, service.ErrSessionInvalid, token)
	}
}

func TestSession_InactiveUserRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.seedUser(t, "a@x.com", "pw", domain.RoleUser)

	issued, err := f.sessions.Create(ctx, u.ID, domain.ClientMeta{})
	require.NoError(t, err)

	// flip the flag directly so the session row survives
	require.NoError(t, f.store.Users().SetActive(ctx, u.ID, false))

	_, _, err = f.sessions.Validate(ctx, issued.Token)
	require.ErrorIs(t, err, service.ErrSessionInvalid)
}

func TestSession_ConcurrentSessions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.seedUser(t, "a@x.com", "pw", domain.RoleUser)

	a, err := f.sessions.Create(ctx, u.ID, domain.ClientMeta{})
	require.NoError(t, err)
	b, err := f.sessions.Create(ctx, u.ID, domain.ClientMeta{})
	require.NoError(t, err)
	require.NotEqual(t, a.Token, b.Token)

	n, err := f.sessions.RevokeAllForUser(ctx, u.ID, b.Session.ID)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	_, _, err = f.sessions.Validate(ctx, a.Token)
	require.ErrorIs(t, err, service.ErrSessionInvalid)
	_, _, err = f.sessions.Validate(ctx, b.Token)
	require.NoError(t, err)
}

func TestSession_SweepExpired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.seedUser(t, "a@x.com", "pw", domain.RoleUser)

	_, err := f.sessions.Create(ctx, u.ID, domain.ClientMeta{})
	require.NoError(t, err)
	f.clock.Advance(12 * time.Hour)
	fresh, err := f.sessions.Create(ctx, u.ID, domain.ClientMeta{})
	require.NoError(t, err)

	f.clock.Advance(13 * time.Hour)
	n, err := f.sessions.SweepExpired(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	_, _, err = f.sessions.Validate(ctx, fresh.Token)
	require.NoError(t, err)
}
