package service_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wealthstudio/studio-auth/internal/auth/domain"
	"github.com/wealthstudio/studio-auth/internal/auth/service"
)

var codePattern = regexp.MustCompile(`^WEALTH-[A-Z0-9]{10}$`)

func TestIssueCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	inv, err := f.invites.IssueCode(ctx, service.IssueInviteParams{
		Email:         "new@x.com",
		MaxUses:       3,
		ExpiresInDays: 7,
		CreatedBy:     "admin-1",
		Organization:  "<b>Acme</b> Wealth",
	})
	require.NoError(t, err)
	require.Regexp(t, codePattern, inv.Code)
	require.Equal(t, 0, inv.UsedCount)
	require.True(t, inv.IsActive)
	require.Equal(t, "Acme Wealth", inv.Organization)
	require.NotNil(t, inv.ExpiresAt)
	require.True(t, inv.ExpiresAt.Equal(f.clock.Now().Add(7*24*time.Hour)))

	stored, err := f.store.Invites().GetInviteByCode(ctx, inv.Code)
	require.NoError(t, err)
	require.Equal(t, inv.ID, stored.ID)
	require.Equal(t, "new@x.com", stored.Email)
}

func TestIssueCode_NoExpiry(t *testing.T) {
	f := newFixture(t)

	inv, err := f.invites.IssueCode(context.Background(), service.IssueInviteParams{
		MaxUses:   1,
		CreatedBy: "admin-1",
	})
	require.NoError(t, err)
	require.Nil(t, inv.ExpiresAt)
}

func TestIssueCode_Validation(t *testing.T) {
	f := newFixture(t)

	_, err := f.invites.IssueCode(context.Background(), service.IssueInviteParams{MaxUses: 0})
	require.ErrorIs(t, err, service.ErrValidation)

	var verr *service.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Contains(t, verr.Fields, "maxUses")
	require.Contains(t, verr.Fields, "createdBy")
}

func TestCheckCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	past := f.clock.Now().Add(-time.Hour)
	f.seedInvite(t, domain.InviteCode{Code: "WEALTH-OPEN000001", MaxUses: 2, Organization: "Acme"})
	f.seedInvite(t, domain.InviteCode{Code: "WEALTH-BOUND00001", MaxUses: 1, Email: "a@x.com"})
	f.seedInvite(t, domain.InviteCode{Code: "WEALTH-EXPIRED001", MaxUses: 1, ExpiresAt: &past})
	f.seedInvite(t, domain.InviteCode{Code: "WEALTH-USEDUP0001", MaxUses: 1, UsedCount: 1})

	tests := []struct {
		name   string
		code   string
		email  string
		valid  bool
		reason domain.InviteReason
	}{
		{"open", "WEALTH-OPEN000001", "", true, domain.InviteOK},
		{"bound match", "WEALTH-BOUND00001", "a@x.com", true, domain.InviteOK},
		{"bound mismatch", "WEALTH-BOUND00001", "b@x.com", false, domain.InviteEmailMismatch},
		{"expired", "WEALTH-EXPIRED001", "", false, domain.InviteExpired},
		{"exhausted", "WEALTH-USEDUP0001", "", false, domain.InviteExhausted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := f.invites.CheckCode(ctx, tt.code, tt.email)
			require.NoError(t, err)
			require.Equal(t, tt.valid, res.Valid)
			require.Equal(t, tt.reason, res.Reason)
		})
	}

	res, err := f.invites.CheckCode(ctx, "WEALTH-OPEN000001", "")
	require.NoError(t, err)
	require.Equal(t, "Acme", res.Organization)
	require.Equal(t, 2, res.RemainingUses)

	_, err = f.invites.CheckCode(ctx, "WEALTH-NOPE", "")
	require.ErrorIs(t, err, service.ErrInviteNotFound)
}

func TestCheckCode_DoesNotConsume(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedInvite(t, domain.InviteCode{Code: "WEALTH-ABC123", MaxUses: 1})

	for range 5 {
		res, err := f.invites.CheckCode(ctx, "WEALTH-ABC123", "a@x.com")
		require.NoError(t, err)
		require.True(t, res.Valid)
	}
	require.Equal(t, 0, f.usedCount(t, "WEALTH-ABC123"))
}

func TestRedeem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedInvite(t, domain.InviteCode{Code: "WEALTH-ABC123", MaxUses: 1})

	require.NoError(t, f.invites.Redeem(ctx, "WEALTH-ABC123", "a@x.com"))
	require.Equal(t, 1, f.usedCount(t, "WEALTH-ABC123"))

	err := f.invites.Redeem(ctx, "WEALTH-ABC123", "b@x.com")
	require.ErrorIs(t, err, service.ErrInviteExhausted)
	require.Equal(t, 1, f.usedCount(t, "WEALTH-ABC123"))
}

func TestRedeem_Failures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	soon := f.clock.Now().Add(time.Hour)
	f.seedInvite(t, domain.InviteCode{Code: "WEALTH-EXPIRES01", MaxUses: 5, ExpiresAt: &soon})
	f.seedInvite(t, domain.InviteCode{Code: "WEALTH-BOUND0001", MaxUses: 5, Email: "a@x.com"})
	f.seedInvite(t, domain.InviteCode{Code: "WEALTH-OFF000001", MaxUses: 5})
	require.NoError(t, f.invites.Deactivate(ctx, "WEALTH-OFF000001"))

	require.ErrorIs(t, f.invites.Redeem(ctx, "WEALTH-UNKNOWN", "a@x.com"), service.ErrInvalidOrExpiredInvite)
	require.ErrorIs(t, f.invites.Redeem(ctx, "WEALTH-BOUND0001", "b@x.com"), service.ErrInvalidOrExpiredInvite)
	require.ErrorIs(t, f.invites.Redeem(ctx, "WEALTH-OFF000001", "a@x.com"), service.ErrInvalidOrExpiredInvite)

	f.clock.Advance(time.Hour)
	require.ErrorIs(t, f.invites.Redeem(ctx, "WEALTH-EXPIRES01", "a@x.com"), service.ErrInvalidOrExpiredInvite)

	for _, code := range []string{"WEALTH-EXPIRES01", "WEALTH-BOUND0001", "WEALTH-OFF000001"} {
		require.Equal(t, 0, f.usedCount(t, code), code)
	}
}

func TestDeactivate_Unknown(t *testing.T) {
	f := newFixture(t)
	require.ErrorIs(t, f.invites.Deactivate(context.Background(), "WEALTH-NOPE"), service.ErrInviteNotFound)
}

func TestList_NewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.invites.IssueCode(ctx, service.IssueInviteParams{MaxUses: 1, CreatedBy: "admin"})
	require.NoError(t, err)
	f.clock.Advance(time.Minute)
	second, err := f.invites.IssueCode(ctx, service.IssueInviteParams{MaxUses: 1, CreatedBy: "admin"})
	require.NoError(t, err)

	list, err := f.invites.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, second.Code, list[0].Code)
	require.Equal(t, first.Code, list[1].Code)
}
