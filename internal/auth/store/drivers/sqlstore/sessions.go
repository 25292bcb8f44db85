package sqlstore

import (
	"context"
	"time"

	"github.com/wealthstudio/studio-auth/internal/auth/domain"
)

type sessionsRepo struct {
	q *queries
}

const sessionColumns = `id, token_hash, user_id, ip_address, user_agent, expires_at, created_at`

func scanSession(row scanner) (domain.Session, error) {
	var (
		s         domain.Session
		expiresAt int64
		createdAt int64
	)
	err := row.Scan(&s.ID, &s.TokenHash, &s.UserID, &s.IPAddress, &s.UserAgent, &expiresAt, &createdAt)
	if err != nil {
		return domain.Session{}, mapNotFound(err)
	}
	s.ExpiresAt = fromMillis(expiresAt)
	s.CreatedAt = fromMillis(createdAt)
	return s, nil
}

func (r *sessionsRepo) CreateSession(ctx context.Context, s domain.Session) error {
	_, err := r.q.exec(ctx, `
		INSERT INTO sessions (`+sessionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.ID,
		s.TokenHash,
		s.UserID,
		s.IPAddress,
		s.UserAgent,
		toMillis(s.ExpiresAt),
		toMillis(s.CreatedAt),
	)
	return err
}

func (r *sessionsRepo) GetActiveSessionByTokenHash(ctx context.Context, hash string, now time.Time) (domain.Session, error) {
	return scanSession(r.q.queryRow(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE token_hash = ? AND expires_at > ?`,
		hash, toMillis(now),
	))
}

func (r *sessionsRepo) DeleteSessionByTokenHash(ctx context.Context, hash string) error {
	_, err := r.q.exec(ctx, `DELETE FROM sessions WHERE token_hash = ?`, hash)
	return err
}

func (r *sessionsRepo) DeleteUserSessions(ctx context.Context, userID, exceptID string) (int64, error) {
	res, err := r.q.exec(ctx, `DELETE FROM sessions WHERE user_id = ? AND id <> ?`, userID, exceptID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *sessionsRepo) ListUserSessions(ctx context.Context, userID string, now time.Time) ([]domain.Session, error) {
	rows, err := r.q.query(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE user_id = ? AND expires_at > ? ORDER BY created_at DESC, id DESC`,
		userID, toMillis(now),
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := []domain.Session{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *sessionsRepo) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.q.exec(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, toMillis(now))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
