package service

import (
	"errors"
	"maps"
	"slices"
	"strings"
)

var (
	ErrValidation             = errors.New("validation failed")
	ErrInvalidCredentials     = errors.New("invalid email or password")
	ErrSessionInvalid         = errors.New("invalid or expired session")
	ErrInvalidOrExpiredInvite = errors.New("invalid or expired invite code")
	ErrInviteExhausted        = errors.New("invite code has reached its usage limit")
	ErrInviteNotFound         = errors.New("invite code not found")
	ErrDuplicateEmail         = errors.New("user already exists")
	ErrForbidden              = errors.New("admin access required")
	ErrUserNotFound           = errors.New("user not found")
)

// ValidationError carries per-field messages. It matches ErrValidation with
// errors.Is.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	keys := slices.Sorted(maps.Keys(e.Fields))
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, ", ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// validationErr returns nil for an empty field map.
func validationErr(fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}
