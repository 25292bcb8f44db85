// Package storetest is a conformance suite run against every store driver.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wealthstudio/studio-auth/internal/auth/domain"
	"github.com/wealthstudio/studio-auth/internal/auth/store"
	"github.com/wealthstudio/studio-auth/pkg/idx"
)

// Factory returns a migrated, empty store. It is called once per subtest.
type Factory func(t *testing.T) store.Store

// Run exercises the full store.Store contract.
func Run(t *testing.T, newStore Factory) {
	t.Run("Users", func(t *testing.T) { testUsers(t, newStore(t)) })
	t.Run("Invites", func(t *testing.T) { testInvites(t, newStore(t)) })
	t.Run("ConcurrentRedeem", func(t *testing.T) { testConcurrentRedeem(t, newStore(t)) })
	t.Run("ConcurrentFirstUser", func(t *testing.T) { testConcurrentFirstUser(t, newStore(t)) })
	t.Run("Sessions", func(t *testing.T) { testSessions(t, newStore(t)) })
	t.Run("AccessLogs", func(t *testing.T) { testAccessLogs(t, newStore(t)) })
	t.Run("WithTx", func(t *testing.T) { testWithTx(t, newStore(t)) })
}

var base = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

// NewUser returns a persisted-ready user with a fresh id.
func NewUser(email string, role domain.Role) domain.User {
	return domain.User{
		ID:           idx.New().String(),
		Email:        email,
		Name:         "Test User",
		PasswordHash: "$argon2id$v=19$m=64,t=1,p=1$c2FsdA$aGFzaA",
		Organization: "Acme Wealth",
		Role:         role,
		CreatedAt:    base,
		IsActive:     true,
	}
}

// NewInvite returns a persisted-ready invite code.
func NewInvite(code string, maxUses int) domain.InviteCode {
	return domain.InviteCode{
		ID:           idx.New().String(),
		Code:         code,
		MaxUses:      maxUses,
		CreatedBy:    "admin",
		Organization: "Acme Wealth",
		CreatedAt:    base,
		IsActive:     true,
	}
}

func testUsers(t *testing.T, s store.Store) {
	ctx := context.Background()
	users := s.Users()

	empty, err := users.IsEmpty(ctx)
	require.NoError(t, err)
	require.True(t, empty)

	u := NewUser("a@x.com", domain.RoleUser)
	u.InviteCodeUsed = "WEALTH-ABC123"
	require.NoError(t, users.CreateUser(ctx, u))

	empty, err = users.IsEmpty(ctx)
	require.NoError(t, err)
	require.False(t, empty)

	got, err := users.GetUserByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)
	require.Equal(t, "WEALTH-ABC123", got.InviteCodeUsed)
	require.Equal(t, domain.RoleUser, got.Role)
	require.True(t, got.IsActive)
	require.Nil(t, got.LastLogin)
	require.True(t, base.Equal(got.CreatedAt))

	_, err = users.GetUserByEmail(ctx, "nobody@x.com")
	require.ErrorIs(t, err, store.ErrNotFound)

	t.Run("duplicate email", func(t *testing.T) {
		err := users.CreateUser(ctx, NewUser("a@x.com", domain.RoleUser))
		require.ErrorIs(t, err, store.ErrAlreadyExists)
	})

	t.Run("email compared as written", func(t *testing.T) {
		require.NoError(t, users.CreateUser(ctx, NewUser("A@x.com", domain.RoleUser)))
		_, err := users.GetUserByEmail(ctx, "a@X.com")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("last login", func(t *testing.T) {
		at := base.Add(time.Hour)
		require.NoError(t, users.UpdateLastLogin(ctx, u.ID, at))
		got, err := users.GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		require.NotNil(t, got.LastLogin)
		require.True(t, at.Equal(*got.LastLogin))
	})

	t.Run("set active", func(t *testing.T) {
		require.NoError(t, users.SetActive(ctx, u.ID, false))
		got, err := users.GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		require.False(t, got.IsActive)

		require.NoError(t, users.SetActive(ctx, u.ID, true))
		require.ErrorIs(t, users.SetActive(ctx, "missing", false), store.ErrNotFound)
	})

	t.Run("password hash", func(t *testing.T) {
		require.NoError(t, users.UpdatePasswordHash(ctx, u.ID, "new-hash"))
		got, err := users.GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		require.Equal(t, "new-hash", got.PasswordHash)
	})
}

func testInvites(t *testing.T, s store.Store) {
	ctx := context.Background()
	invites := s.Invites()

	inv := NewInvite("WEALTH-ABC123", 2)
	require.NoError(t, invites.CreateInvite(ctx, inv))
	require.ErrorIs(t, invites.CreateInvite(ctx, NewInvite("WEALTH-ABC123", 1)), store.ErrAlreadyExists)

	got, err := invites.GetInviteByCode(ctx, "WEALTH-ABC123")
	require.NoError(t, err)
	require.Equal(t, inv.ID, got.ID)
	require.Equal(t, 2, got.MaxUses)
	require.Equal(t, 0, got.UsedCount)
	require.Nil(t, got.ExpiresAt)
	require.Empty(t, got.Email)

	_, err = invites.GetInviteByCode(ctx, "WEALTH-NOPE")
	require.ErrorIs(t, err, store.ErrNotFound)

	t.Run("redeem until exhausted", func(t *testing.T) {
		for range 2 {
			ok, err := invites.RedeemInvite(ctx, "WEALTH-ABC123", "a@x.com", base)
			require.NoError(t, err)
			require.True(t, ok)
		}
		ok, err := invites.RedeemInvite(ctx, "WEALTH-ABC123", "a@x.com", base)
		require.NoError(t, err)
		require.False(t, ok)

		got, err := invites.GetInviteByCode(ctx, "WEALTH-ABC123")
		require.NoError(t, err)
		require.Equal(t, 2, got.UsedCount)
	})

	t.Run("expired", func(t *testing.T) {
		inv := NewInvite("WEALTH-EXPIRED", 5)
		exp := base.Add(time.Hour)
		inv.ExpiresAt = &exp
		require.NoError(t, invites.CreateInvite(ctx, inv))

		ok, err := invites.RedeemInvite(ctx, inv.Code, "a@x.com", base.Add(30*time.Minute))
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = invites.RedeemInvite(ctx, inv.Code, "a@x.com", exp)
		require.NoError(t, err)
		require.False(t, ok, "expires_at is exclusive")
	})

	t.Run("email bound", func(t *testing.T) {
		inv := NewInvite("WEALTH-BOUND", 5)
		inv.Email = "a@x.com"
		require.NoError(t, invites.CreateInvite(ctx, inv))

		ok, err := invites.RedeemInvite(ctx, inv.Code, "b@x.com", base)
		require.NoError(t, err)
		require.False(t, ok)

		ok, err = invites.RedeemInvite(ctx, inv.Code, "a@x.com", base)
		require.NoError(t, err)
		require.True(t, ok)
	})

	t.Run("deactivate", func(t *testing.T) {
		inv := NewInvite("WEALTH-OFF", 5)
		require.NoError(t, invites.CreateInvite(ctx, inv))
		require.NoError(t, invites.DeactivateInvite(ctx, inv.Code))

		ok, err := invites.RedeemInvite(ctx, inv.Code, "a@x.com", base)
		require.NoError(t, err)
		require.False(t, ok)

		require.ErrorIs(t, invites.DeactivateInvite(ctx, "WEALTH-MISSING"), store.ErrNotFound)
	})

	t.Run("list newest first", func(t *testing.T) {
		newest := NewInvite("WEALTH-NEWEST", 1)
		newest.CreatedAt = base.Add(24 * time.Hour)
		require.NoError(t, invites.CreateInvite(ctx, newest))

		list, err := invites.ListInvites(ctx)
		require.NoError(t, err)
		require.Len(t, list, 5)
		require.Equal(t, "WEALTH-NEWEST", list[0].Code)
	})
}

func testConcurrentRedeem(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.Invites().CreateInvite(ctx, NewInvite("WEALTH-RACE", 1)))

	const workers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		failures  []error
	)
	start := make(chan struct{})

	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			ok, err := s.Invites().RedeemInvite(ctx, "WEALTH-RACE", "a@x.com", base)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures = append(failures, err)
				return
			}
			if ok {
				successes++
			}
		}()
	}
	close(start)
	wg.Wait()

	require.Empty(t, failures)
	require.Equal(t, 1, successes)

	got, err := s.Invites().GetInviteByCode(ctx, "WEALTH-RACE")
	require.NoError(t, err)
	require.Equal(t, 1, got.UsedCount)
}

// testConcurrentFirstUser races transactions that each insert a user only
// when the table is empty. Exactly one may win.
func testConcurrentFirstUser(t *testing.T, s store.Store) {
	ctx := context.Background()

	const workers = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		created  int
		failures []error
	)
	start := make(chan struct{})

	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			inserted := false
			err := s.WithTx(ctx, func(tx store.Tx) error {
				if err := tx.Users().LockUserCreation(ctx); err != nil {
					return err
				}
				empty, err := tx.Users().IsEmpty(ctx)
				if err != nil || !empty {
					return err
				}
				inserted = true
				return tx.Users().CreateUser(ctx, NewUser(fmt.Sprintf("admin%d@x.com", i), domain.RoleAdmin))
			})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures = append(failures, err)
				return
			}
			if inserted {
				created++
			}
		}()
	}
	close(start)
	wg.Wait()

	require.Empty(t, failures)
	require.Equal(t, 1, created)
}

func testSessions(t *testing.T, s store.Store) {
	ctx := context.Background()

	u := NewUser("a@x.com", domain.RoleUser)
	require.NoError(t, s.Users().CreateUser(ctx, u))

	sessions := s.Sessions()
	newSession := func(hash string, created time.Time) domain.Session {
		return domain.Session{
			ID:        idx.New().String(),
			TokenHash: hash,
			UserID:    u.ID,
			IPAddress: "203.0.113.9",
			UserAgent: "test",
			CreatedAt: created,
			ExpiresAt: created.Add(24 * time.Hour),
		}
	}

	first := newSession("hash-1", base)
	second := newSession("hash-2", base.Add(time.Minute))
	require.NoError(t, sessions.CreateSession(ctx, first))
	require.NoError(t, sessions.CreateSession(ctx, second))
	require.ErrorIs(t, sessions.CreateSession(ctx, newSession("hash-1", base)), store.ErrAlreadyExists)

	got, err := sessions.GetActiveSessionByTokenHash(ctx, "hash-1", base.Add(time.Hour))
	require.NoError(t, err)
	require.Equal(t, first.ID, got.ID)
	require.Equal(t, "203.0.113.9", got.IPAddress)

	_, err = sessions.GetActiveSessionByTokenHash(ctx, "hash-1", first.ExpiresAt)
	require.ErrorIs(t, err, store.ErrNotFound, "expires_at is exclusive")

	list, err := sessions.ListUserSessions(ctx, u.ID, base.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, second.ID, list[0].ID)

	n, err := sessions.DeleteExpiredSessions(ctx, first.ExpiresAt)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	require.NoError(t, sessions.DeleteSessionByTokenHash(ctx, "hash-2"))
	require.NoError(t, sessions.DeleteSessionByTokenHash(ctx, "hash-2"), "delete is idempotent")

	keep := newSession("hash-3", base)
	require.NoError(t, sessions.CreateSession(ctx, keep))
	require.NoError(t, sessions.CreateSession(ctx, newSession("hash-4", base)))
	n, err = sessions.DeleteUserSessions(ctx, u.ID, keep.ID)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	list, err = sessions.ListUserSessions(ctx, u.ID, base)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, keep.ID, list[0].ID)
}

func testAccessLogs(t *testing.T, s store.Store) {
	ctx := context.Background()
	logs := s.AccessLogs()

	userID := "user-1"
	resource := "/create-invite"
	for i := range 3 {
		e := domain.AccessLogEntry{
			ID:        idx.New().String(),
			Action:    domain.ActionLogin,
			IPAddress: "203.0.113.9",
			UserAgent: "test",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if i == 2 {
			e.UserID = &userID
			e.Resource = &resource
			e.Action = domain.ActionCreateInvite
		}
		require.NoError(t, logs.AppendAccessLog(ctx, e))
	}

	list, err := logs.ListAccessLogs(ctx, 2, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, domain.ActionCreateInvite, list[0].Action)
	require.Equal(t, &userID, list[0].UserID)
	require.Equal(t, &resource, list[0].Resource)
	require.Nil(t, list[1].UserID)

	list, err = logs.ListAccessLogs(ctx, 10, 2)
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func testWithTx(t *testing.T, s store.Store) {
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().CreateUser(ctx, NewUser("rollback@x.com", domain.RoleUser)); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = s.Users().GetUserByEmail(ctx, "rollback@x.com")
	require.ErrorIs(t, err, store.ErrNotFound)

	err = s.WithTx(ctx, func(tx store.Tx) error {
		return tx.Users().CreateUser(ctx, NewUser("commit@x.com", domain.RoleUser))
	})
	require.NoError(t, err)

	_, err = s.Users().GetUserByEmail(ctx, "commit@x.com")
	require.NoError(t, err)
}
