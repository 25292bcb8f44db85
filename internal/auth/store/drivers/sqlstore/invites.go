package sqlstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/wealthstudio/studio-auth/internal/auth/domain"
)

type invitesRepo struct {
	q *queries
}

const inviteColumns = `id, code, email, max_uses, used_count, expires_at, created_by, organization, created_at, is_active`

func scanInvite(row scanner) (domain.InviteCode, error) {
	var (
		inv       domain.InviteCode
		email     sql.NullString
		expiresAt sql.NullInt64
		createdAt int64
	)
	err := row.Scan(
		&inv.ID,
		&inv.Code,
		&email,
		&inv.MaxUses,
		&inv.UsedCount,
		&expiresAt,
		&inv.CreatedBy,
		&inv.Organization,
		&createdAt,
		&inv.IsActive,
	)
	if err != nil {
		return domain.InviteCode{}, mapNotFound(err)
	}
	inv.Email = mapNullString(email)
	inv.ExpiresAt = mapNullMillis(expiresAt)
	inv.CreatedAt = fromMillis(createdAt)
	return inv, nil
}

func (r *invitesRepo) CreateInvite(ctx context.Context, inv domain.InviteCode) error {
	_, err := r.q.exec(ctx, `
		INSERT INTO invite_codes (`+inviteColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID,
		inv.Code,
		mapStringNull(inv.Email),
		inv.MaxUses,
		inv.UsedCount,
		mapOptionalMillis(inv.ExpiresAt),
		inv.CreatedBy,
		inv.Organization,
		toMillis(inv.CreatedAt),
		inv.IsActive,
	)
	return err
}

func (r *invitesRepo) GetInviteByCode(ctx context.Context, code string) (domain.InviteCode, error) {
	return scanInvite(r.q.queryRow(ctx, `SELECT `+inviteColumns+` FROM invite_codes WHERE code = ?`, code))
}

func (r *invitesRepo) ListInvites(ctx context.Context) ([]domain.InviteCode, error) {
	rows, err := r.q.query(ctx, `SELECT `+inviteColumns+` FROM invite_codes ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := []domain.InviteCode{}
	for rows.Next() {
		inv, err := scanInvite(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

// RedeemInvite guards and increments in one statement so two concurrent
// redemptions of the last use cannot both succeed.
func (r *invitesRepo) RedeemInvite(ctx context.Context, code, email string, now time.Time) (bool, error) {
	res, err := r.q.exec(ctx, `
		UPDATE invite_codes
		SET used_count = used_count + 1
		WHERE code = ?
		  AND is_active = TRUE
		  AND used_count < max_uses
		  AND (expires_at IS NULL OR expires_at > ?)
		  AND (email IS NULL OR email = ?)`,
		code,
		toMillis(now),
		email,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *invitesRepo) DeactivateInvite(ctx context.Context, code string) error {
	return expectOne(r.q.exec(ctx, `UPDATE invite_codes SET is_active = FALSE WHERE code = ?`, code))
}
