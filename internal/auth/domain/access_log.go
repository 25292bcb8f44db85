package domain

import "time"

type AuditAction string

const (
	ActionRegister         AuditAction = "REGISTER"
	ActionLogin            AuditAction = "LOGIN"
	ActionLoginFailed      AuditAction = "LOGIN_FAILED"
	ActionLogout           AuditAction = "LOGOUT"
	ActionCreateInvite     AuditAction = "CREATE_INVITE"
	ActionDeactivateInvite AuditAction = "DEACTIVATE_INVITE"
	ActionDeactivateUser   AuditAction = "DEACTIVATE_USER"
	ActionActivateUser     AuditAction = "ACTIVATE_USER"
	ActionChangePassword   AuditAction = "CHANGE_PASSWORD"
	ActionBootstrap        AuditAction = "BOOTSTRAP"
)

// AccessLogEntry is an append-only record of a security-relevant action.
type AccessLogEntry struct {
	ID        string
	UserID    *string
	Action    AuditAction
	Resource  *string
	IPAddress string
	UserAgent string
	CreatedAt time.Time
}
