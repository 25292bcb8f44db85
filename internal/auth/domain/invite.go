package domain

import "time"

// InviteCodePrefix is prepended to every generated code for readability.
const InviteCodePrefix = "WEALTH-"

// InviteCode is a usage-budgeted credential required to self-register.
// UsedCount never exceeds MaxUses.
type InviteCode struct {
	ID           string
	Code         string
	Email        string // optional binding; empty means any email
	MaxUses      int
	UsedCount    int
	ExpiresAt    *time.Time // nil never expires
	CreatedBy    string
	Organization string
	CreatedAt    time.Time
	IsActive     bool
}

// InviteReason explains why a known code cannot be redeemed.
type InviteReason string

const (
	InviteOK            InviteReason = ""
	InviteInactive      InviteReason = "inactive"
	InviteExpired       InviteReason = "expired"
	InviteEmailMismatch InviteReason = "email_mismatch"
	InviteExhausted     InviteReason = "exhausted"
)

func (c *InviteCode) RemainingUses() int {
	return max(c.MaxUses-c.UsedCount, 0)
}

func (c *InviteCode) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && !c.ExpiresAt.After(now)
}

// Check classifies whether the code can be redeemed at now by email. An
// empty email skips the binding check.
func (c *InviteCode) Check(now time.Time, email string) InviteReason {
	switch {
	case !c.IsActive:
		return InviteInactive
	case c.Expired(now):
		return InviteExpired
	case c.Email != "" && email != "" && c.Email != email:
		return InviteEmailMismatch
	case c.UsedCount >= c.MaxUses:
		return InviteExhausted
	default:
		return InviteOK
	}
}
