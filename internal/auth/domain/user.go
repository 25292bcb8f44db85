package domain

import "time"

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

type User struct {
	ID             string
	Email          string // stored and compared exactly as written
	Name           string
	PasswordHash   string // argon2id PHC string, or bcrypt for accounts carried over
	InviteCodeUsed string // empty for bootstrap accounts
	Organization   string
	Role           Role
	CreatedAt      time.Time
	LastLogin      *time.Time
	IsActive       bool
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
