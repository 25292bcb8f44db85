package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wealthstudio/studio-auth/internal/auth/domain"
)

func TestInviteCodeCheck(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	base := func() domain.InviteCode {
		return domain.InviteCode{Code: "WEALTH-ABC123", MaxUses: 2, UsedCount: 1, IsActive: true}
	}

	tests := []struct {
		name   string
		mutate func(*domain.InviteCode)
		email  string
		want   domain.InviteReason
	}{
		{"valid", func(*domain.InviteCode) {}, "a@x.com", domain.InviteOK},
		{"future expiry", func(c *domain.InviteCode) { c.ExpiresAt = &future }, "", domain.InviteOK},
		{"inactive", func(c *domain.InviteCode) { c.IsActive = false }, "", domain.InviteInactive},
		{"expired", func(c *domain.InviteCode) { c.ExpiresAt = &past }, "", domain.InviteExpired},
		{"expires exactly now", func(c *domain.InviteCode) { c.ExpiresAt = &now }, "", domain.InviteExpired},
		{"exhausted", func(c *domain.InviteCode) { c.UsedCount = 2 }, "", domain.InviteExhausted},
		{"bound match", func(c *domain.InviteCode) { c.Email = "a@x.com" }, "a@x.com", domain.InviteOK},
		{"bound mismatch", func(c *domain.InviteCode) { c.Email = "a@x.com" }, "b@x.com", domain.InviteEmailMismatch},
		{"bound case differs", func(c *domain.InviteCode) { c.Email = "a@x.com" }, "A@x.com", domain.InviteEmailMismatch},
		{"bound without email", func(c *domain.InviteCode) { c.Email = "a@x.com" }, "", domain.InviteOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(&c)
			require.Equal(t, tt.want, c.Check(now, tt.email))
		})
	}
}

func TestInviteCodeRemainingUses(t *testing.T) {
	c := domain.InviteCode{MaxUses: 3, UsedCount: 1}
	require.Equal(t, 2, c.RemainingUses())

	c.UsedCount = 5
	require.Equal(t, 0, c.RemainingUses())
}
