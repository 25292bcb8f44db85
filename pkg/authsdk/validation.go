package authsdk

import (
	"strings"
)

const (
	requiredReason = "is required"

	maxPasswordLength = 256
	maxTextLength     = 200
)

// Validate checks the register request fields. It returns a map of field
// names to messages, or nil if all fields are valid.
func (r RegisterRequest) Validate() map[string]string {
	errs := make(map[string]string)
	requireField(errs, "email", r.Email)
	validatePassword(errs, "password", r.Password)
	requireField(errs, "name", strings.TrimSpace(r.Name))
	requireField(errs, "inviteCode", strings.TrimSpace(r.InviteCode))
	maxLength(errs, "name", r.Name, maxTextLength)
	maxLength(errs, "organization", r.Organization, maxTextLength)
	return nilIfEmpty(errs)
}

func (r LoginRequest) Validate() map[string]string {
	errs := make(map[string]string)
	requireField(errs, "email", r.Email)
	requireField(errs, "password", r.Password)
	return nilIfEmpty(errs)
}

func (r CreateInviteRequest) Validate() map[string]string {
	errs := make(map[string]string)
	if r.MaxUses != nil && *r.MaxUses < 1 {
		errs["maxUses"] = "must be at least 1"
	}
	if r.ExpiresInDays != nil && *r.ExpiresInDays < 0 {
		errs["expiresInDays"] = "must not be negative"
	}
	maxLength(errs, "organization", r.Organization, maxTextLength)
	return nilIfEmpty(errs)
}

func (r ChangePasswordRequest) Validate() map[string]string {
	errs := make(map[string]string)
	requireField(errs, "currentPassword", r.CurrentPassword)
	validatePassword(errs, "newPassword", r.NewPassword)
	return nilIfEmpty(errs)
}

func (r BootstrapRequest) Validate() map[string]string {
	errs := make(map[string]string)
	requireField(errs, "email", r.Email)
	validatePassword(errs, "password", r.Password)
	requireField(errs, "name", strings.TrimSpace(r.Name))
	maxLength(errs, "name", r.Name, maxTextLength)
	maxLength(errs, "organization", r.Organization, maxTextLength)
	return nilIfEmpty(errs)
}

func requireField(errs map[string]string, field, value string) {
	if value == "" {
		errs[field] = requiredReason
	}
}

func validatePassword(errs map[string]string, field, pw string) {
	switch {
	case pw == "":
		errs[field] = requiredReason
	case len([]rune(pw)) > maxPasswordLength:
		errs[field] = "too long (max 256)"
	}
}

func maxLength(errs map[string]string, field, value string, limit int) {
	if _, set := errs[field]; set {
		return
	}
	if len([]rune(value)) > limit {
		errs[field] = "too long"
	}
}

func nilIfEmpty(errs map[string]string) map[string]string {
	if len(errs) == 0 {
		return nil
	}
	return errs
}
