package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"

	"github.com/wealthstudio/studio-auth/internal/auth/domain"
	"github.com/wealthstudio/studio-auth/internal/auth/store"
	"github.com/wealthstudio/studio-auth/pkg/slogx"
)

var (
	ErrBootstrapAlready      = errors.New("system already bootstrapped")
	ErrBootstrapUnauthorized = errors.New("unauthorized bootstrap attempt")
	ErrBootstrapDisabled     = errors.New("bootstrap disabled")
)

// BootstrapService creates the first administrator on an empty store, along
// with a first invite code so further accounts can be registered.
type BootstrapService struct {
	Store    store.Store
	Token    string // pre-configured bootstrap token; empty disables bootstrap
	Users    *UserService
	Invites  *InviteService
	Sessions *SessionService
	Audit    *AuditService
}

type BootstrapResult struct {
	Admin   domain.User
	Session domain.IssuedSession
	Invite  domain.InviteCode
}

func (s *BootstrapService) IsBootstrapped(ctx context.Context) (bool, error) {
	empty, err := s.Store.Users().IsEmpty(ctx)
	if err != nil {
		return false, err
	}
	return !empty, nil
}

func (s *BootstrapService) Bootstrap(
	ctx context.Context,
	token string,
	req domain.BootstrapData,
	meta domain.ClientMeta,
) (BootstrapResult, error) {
	l := slogx.FromContext(ctx)

	// 1. Bootstrap must be configured
	if s.Token == "" {
		return BootstrapResult{}, ErrBootstrapDisabled
	}

	// 2. Validate provided token
	if subtle.ConstantTimeCompare([]byte(token), []byte(s.Token)) != 1 {
		l.Warn("unauthorized bootstrap attempt", slog.String("ip", meta.IPAddress))
		return BootstrapResult{}, ErrBootstrapUnauthorized
	}

	// 3. Check if already bootstrapped
	if bootstrapped, err := s.IsBootstrapped(ctx); err != nil {
		return BootstrapResult{}, err
	} else if bootstrapped {
		l.Warn("attempted bootstrap on already-bootstrapped system")
		return BootstrapResult{}, ErrBootstrapAlready
	}

	// 4. Validate admin details
	fields := map[string]string{}
	checkEmail(fields, "email", req.Email)
	checkPassword(fields, "password", req.Password)
	checkName(fields, "name", req.Name)
	if err := validationErr(fields); err != nil {
		return BootstrapResult{}, err
	}

	hash, err := s.Users.HashPassword(req.Password)
	if err != nil {
		l.Error("failed to hash admin password", slog.Any("error", err))
		return BootstrapResult{}, fmt.Errorf("hash password: %w", err)
	}

	// 5. Create admin under the user-creation lock so only one bootstrap sees
	// an empty table
	var admin domain.User
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().LockUserCreation(ctx); err != nil {
			return err
		}
		empty, err := tx.Users().IsEmpty(ctx)
		if err != nil {
			return err
		}
		if !empty {
			return ErrBootstrapAlready
		}
		admin, err = s.Users.Create(ctx, tx, CreateUserParams{
			Email:        req.Email,
			Name:         req.Name,
			PasswordHash: hash,
			Organization: req.Organization,
			Role:         domain.RoleAdmin,
		})
		if errors.Is(err, ErrDuplicateEmail) {
			return ErrBootstrapAlready
		}
		return err
	})
	if err != nil {
		return BootstrapResult{}, err
	}

	// 6. First invite and a session for the admin
	inv, err := s.Invites.IssueCode(ctx, IssueInviteParams{
		MaxUses:       DefaultInviteMaxUses,
		ExpiresInDays: DefaultInviteExpiresInDays,
		CreatedBy:     admin.ID,
		Organization:  admin.Organization,
	})
	if err != nil {
		l.Error("failed to create first invite", slog.Any("error", err))
		return BootstrapResult{}, err
	}

	issued, err := s.Sessions.Create(ctx, admin.ID, meta)
	if err != nil {
		return BootstrapResult{}, err
	}

	s.Audit.Log(ctx, AuditEntry{UserID: admin.ID, Action: domain.ActionBootstrap, Resource: inv.Code, Meta: meta})
	l.Info("successfully bootstrapped system",
		slog.String("admin_user_id", admin.ID),
		slog.String("invite_code", inv.Code),
	)
	return BootstrapResult{Admin: admin, Session: issued, Invite: inv}, nil
}
