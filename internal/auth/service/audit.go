package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/wealthstudio/studio-auth/internal/auth/domain"
	"github.com/wealthstudio/studio-auth/internal/auth/store"
	"github.com/wealthstudio/studio-auth/pkg/idx"
	"github.com/wealthstudio/studio-auth/pkg/slogx"
)

// AuditMode selects where access log entries go.
type AuditMode string

const (
	AuditAll AuditMode = "all" // store and structured log
	AuditDB  AuditMode = "db"
	AuditLog AuditMode = "log"
	AuditOff AuditMode = "off"
)

func ParseAuditMode(s string) (AuditMode, error) {
	switch m := AuditMode(s); m {
	case AuditAll, AuditDB, AuditLog, AuditOff:
		return m, nil
	case "":
		return AuditAll, nil
	default:
		return "", fmt.Errorf("unknown audit mode %q", s)
	}
}

const (
	auditWriteTimeout = 2 * time.Second

	DefaultAccessLogLimit = 50
	MaxAccessLogLimit     = 500
)

type AuditEntry struct {
	UserID   string // empty when unknown
	Action   domain.AuditAction
	Resource string
	Meta     domain.ClientMeta
}

// AuditService is the access auditor. Log is best effort: a failed write is
// logged and swallowed so it never fails the request that triggered it.
type AuditService struct {
	Store store.Store
	Mode  AuditMode
	Clock Clock
}

func (s *AuditService) mode() AuditMode {
	if s.Mode == "" {
		return AuditAll
	}
	return s.Mode
}

func (s *AuditService) Log(ctx context.Context, e AuditEntry) {
	mode := s.mode()
	if mode == AuditOff {
		return
	}
	log := slogx.FromContext(ctx)

	now := s.Clock.now()
	entry := domain.AccessLogEntry{
		ID:        idx.NewAt(now).String(),
		Action:    e.Action,
		IPAddress: e.Meta.IPAddress,
		UserAgent: e.Meta.UserAgent,
		CreatedAt: now,
	}
	if e.UserID != "" {
		entry.UserID = &e.UserID
	}
	if e.Resource != "" {
		entry.Resource = &e.Resource
	}

	if mode == AuditAll || mode == AuditLog {
		log.Info("access",
			slog.String("action", string(e.Action)),
			slog.String("user_id", e.UserID),
			slog.String("resource", e.Resource),
			slog.String("ip", e.Meta.IPAddress),
		)
	}
	if mode == AuditAll || mode == AuditDB {
		// Outlive a cancelled request, but not forever.
		wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditWriteTimeout)
		defer cancel()
		if err := s.Store.AccessLogs().AppendAccessLog(wctx, entry); err != nil {
			log.Error("failed to write access log",
				slog.String("action", string(e.Action)),
				slog.Any("error", err),
			)
		}
	}
}

// List returns entries newest first. limit is clamped to
// [1, MaxAccessLogLimit] and defaults to DefaultAccessLogLimit.
func (s *AuditService) List(ctx context.Context, limit, offset int) ([]domain.AccessLogEntry, error) {
	if limit <= 0 {
		limit = DefaultAccessLogLimit
	}
	limit = min(limit, MaxAccessLogLimit)
	offset = max(offset, 0)
	return s.Store.AccessLogs().ListAccessLogs(ctx, limit, offset)
}
