package sqlstore

import (
	"context"
	"database/sql"

	"github.com/wealthstudio/studio-auth/internal/auth/domain"
)

type accessLogsRepo struct {
	q *queries
}

func (r *accessLogsRepo) AppendAccessLog(ctx context.Context, e domain.AccessLogEntry) error {
	_, err := r.q.exec(ctx, `
		INSERT INTO access_logs (id, user_id, action, resource, ip_address, user_agent, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID,
		mapOptionalString(e.UserID),
		string(e.Action),
		mapOptionalString(e.Resource),
		e.IPAddress,
		e.UserAgent,
		toMillis(e.CreatedAt),
	)
	return err
}

func (r *accessLogsRepo) ListAccessLogs(ctx context.Context, limit, offset int) ([]domain.AccessLogEntry, error) {
	rows, err := r.q.query(ctx, `
		SELECT id, user_id, action, resource, ip_address, user_agent, created_at
		FROM access_logs
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := []domain.AccessLogEntry{}
	for rows.Next() {
		var (
			e         domain.AccessLogEntry
			userID    sql.NullString
			resource  sql.NullString
			action    string
			createdAt int64
		)
		if err := rows.Scan(&e.ID, &userID, &action, &resource, &e.IPAddress, &e.UserAgent, &createdAt); err != nil {
			return nil, err
		}
		e.UserID = mapNullStringPtr(userID)
		e.Resource = mapNullStringPtr(resource)
		e.Action = domain.AuditAction(action)
		e.CreatedAt = fromMillis(createdAt)
		out = append(out, e)
	}
	return out, rows.Err()
}
