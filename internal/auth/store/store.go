package store

import (
	"context"
	"errors"
	"time"

	"github.com/wealthstudio/studio-auth/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite, postgres)
// implement this. It exposes sub-repositories to keep concerns tidy and
// testable, and so a Tx-scoped store can hand out repos bound to the
// transaction without nesting transactions.
type Store interface {
	Users() Users
	Invites() Invites
	Sessions() Sessions
	AccessLogs() AccessLogs

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed. Inside fn only
	// the repos of tx may be used.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail matches the email exactly as stored.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// CreateUser inserts a new user (id is provided by app via ULID). A taken
	// email returns ErrAlreadyExists.
	CreateUser(ctx context.Context, u domain.User) error

	UpdateLastLogin(ctx context.Context, userID string, at time.Time) error

	// UpdatePasswordHash replaces the stored hash (argon2id upgrade or password change).
	UpdatePasswordHash(ctx context.Context, userID string, newHash string) error

	// SetActive toggles soft deactivation. Unknown ids return ErrNotFound.
	SetActive(ctx context.Context, userID string, active bool) error

	// IsEmpty returns true if there are no users.
	IsEmpty(ctx context.Context) (bool, error)

	// LockUserCreation serializes transactions that decide on the user
	// table's contents before inserting. Only meaningful inside a Tx; the
	// lock is held until the transaction ends.
	LockUserCreation(ctx context.Context) error
}

type Invites interface {
	// CreateInvite writes a new code. A taken code returns ErrAlreadyExists.
	CreateInvite(ctx context.Context, inv domain.InviteCode) error

	GetInviteByCode(ctx context.Context, code string) (domain.InviteCode, error)

	// ListInvites returns every code, newest first.
	ListInvites(ctx context.Context) ([]domain.InviteCode, error)

	// RedeemInvite consumes one use of code for email in a single conditional
	// update. It reports false when the code was not redeemable at now.
	RedeemInvite(ctx context.Context, code, email string, now time.Time) (bool, error)

	// DeactivateInvite clears is_active. Unknown codes return ErrNotFound.
	DeactivateInvite(ctx context.Context, code string) error
}

type Sessions interface {
	CreateSession(ctx context.Context, s domain.Session) error

	// GetActiveSessionByTokenHash returns the session only if it expires after now.
	GetActiveSessionByTokenHash(ctx context.Context, hash string, now time.Time) (domain.Session, error)

	// DeleteSessionByTokenHash is idempotent.
	DeleteSessionByTokenHash(ctx context.Context, hash string) error

	// DeleteUserSessions removes all of a user's sessions except exceptID
	// (which may be empty) and returns how many were removed.
	DeleteUserSessions(ctx context.Context, userID, exceptID string) (int64, error)

	// ListUserSessions returns the user's unexpired sessions, newest first.
	ListUserSessions(ctx context.Context, userID string, now time.Time) ([]domain.Session, error)

	// DeleteExpiredSessions is optional housekeeping.
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

type AccessLogs interface {
	AppendAccessLog(ctx context.Context, e domain.AccessLogEntry) error

	// ListAccessLogs returns entries newest first.
	ListAccessLogs(ctx context.Context, limit, offset int) ([]domain.AccessLogEntry, error)
}
