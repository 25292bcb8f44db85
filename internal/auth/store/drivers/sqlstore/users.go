package sqlstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/wealthstudio/studio-auth/internal/auth/domain"
)

type usersRepo struct {
	q *queries
}

const userColumns = `id, email, name, password_hash, invite_code_used, organization, role, created_at, last_login, is_active`

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (domain.User, error) {
	var (
		u          domain.User
		inviteCode sql.NullString
		role       string
		createdAt  int64
		lastLogin  sql.NullInt64
	)
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.Name,
		&u.PasswordHash,
		&inviteCode,
		&u.Organization,
		&role,
		&createdAt,
		&lastLogin,
		&u.IsActive,
	)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	u.InviteCodeUsed = mapNullString(inviteCode)
	u.Role = domain.Role(role)
	u.CreatedAt = fromMillis(createdAt)
	u.LastLogin = mapNullMillis(lastLogin)
	return u, nil
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	return scanUser(r.q.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return scanUser(r.q.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email))
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	role := u.Role
	if role == "" {
		role = domain.RoleUser
	}
	_, err := r.q.exec(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID,
		u.Email,
		u.Name,
		u.PasswordHash,
		mapStringNull(u.InviteCodeUsed),
		u.Organization,
		string(role),
		toMillis(u.CreatedAt),
		mapOptionalMillis(u.LastLogin),
		u.IsActive,
	)
	return err
}

func (r *usersRepo) UpdateLastLogin(ctx context.Context, userID string, at time.Time) error {
	return expectOne(r.q.exec(ctx, `UPDATE users SET last_login = ? WHERE id = ?`, toMillis(at), userID))
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, userID string, newHash string) error {
	return expectOne(r.q.exec(ctx, `UPDATE users SET password_hash = ? WHERE id = ?`, newHash, userID))
}

func (r *usersRepo) SetActive(ctx context.Context, userID string, active bool) error {
	return expectOne(r.q.exec(ctx, `UPDATE users SET is_active = ? WHERE id = ?`, active, userID))
}

func (r *usersRepo) LockUserCreation(ctx context.Context) error {
	if r.q.dialect.LockUsers == nil {
		return nil
	}
	return r.q.dialect.LockUsers(ctx, r.q.db)
}

func (r *usersRepo) IsEmpty(ctx context.Context) (bool, error) {
	var n int64
	if err := r.q.queryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return false, err
	}
	return n == 0, nil
}
