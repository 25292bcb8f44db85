package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/wealthstudio/studio-auth/internal/auth/domain"
	"github.com/wealthstudio/studio-auth/internal/auth/store"
	"github.com/wealthstudio/studio-auth/pkg/slogx"
)

// AuthService orchestrates the ledger, credential store, session manager and
// auditor into the register/login/logout flows and the admin operations.
type AuthService struct {
	Store    store.Store
	Invites  *InviteService
	Users    *UserService
	Sessions *SessionService
	Audit    *AuditService
}

// Actor is the authenticated caller of an operation.
type Actor struct {
	UserID    string
	SessionID string
	Role      domain.Role
	Meta      domain.ClientMeta
}

func ActorFrom(sess domain.Session, u domain.User, meta domain.ClientMeta) Actor {
	return Actor{UserID: u.ID, SessionID: sess.ID, Role: u.Role, Meta: meta}
}

func (a Actor) requireAdmin() error {
	if a.UserID == "" || a.Role != domain.RoleAdmin {
		return ErrForbidden
	}
	return nil
}

type RegisterParams struct {
	Email        string
	Password     string
	Name         string
	InviteCode   string
	Organization string // defaults to the invite's organization
	Meta         domain.ClientMeta
}

// AuthResult is a freshly opened session and the user it belongs to.
type AuthResult struct {
	Session domain.IssuedSession
	User    domain.User
}

// Register creates an account from an invite and signs it in.
func (s *AuthService) Register(ctx context.Context, p RegisterParams) (AuthResult, error) {
	log := slogx.FromContext(ctx)

	// 1. Validate input
	fields := map[string]string{}
	checkEmail(fields, "email", p.Email)
	checkPassword(fields, "password", p.Password)
	checkName(fields, "name", p.Name)
	if p.InviteCode == "" {
		fields["inviteCode"] = "is required"
	}
	if err := validationErr(fields); err != nil {
		return AuthResult{}, err
	}

	// 2. Invite must be usable by this email
	check, err := s.Invites.CheckCode(ctx, p.InviteCode, p.Email)
	switch {
	case errors.Is(err, ErrInviteNotFound):
		return AuthResult{}, ErrInvalidOrExpiredInvite
	case err != nil:
		return AuthResult{}, err
	case check.Reason == domain.InviteExhausted:
		return AuthResult{}, ErrInviteExhausted
	case !check.Valid:
		return AuthResult{}, ErrInvalidOrExpiredInvite
	}

	// 3. Email must be free
	if _, err := s.Users.FindByEmail(ctx, p.Email); err == nil {
		return AuthResult{}, ErrDuplicateEmail
	} else if !errors.Is(err, ErrUserNotFound) {
		return AuthResult{}, err
	}

	// 4. Hash outside the transaction
	hash, err := s.Users.HashPassword(p.Password)
	if err != nil {
		return AuthResult{}, fmt.Errorf("hash password: %w", err)
	}

	org := p.Organization
	if cleanText(org) == "" {
		org = check.Organization
	}

	// 5. Redeem and create together; a duplicate email rolls the use back
	var u domain.User
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := s.Invites.RedeemIn(ctx, tx, p.InviteCode, p.Email); err != nil {
			return err
		}
		var err error
		u, err = s.Users.Create(ctx, tx, CreateUserParams{
			Email:          p.Email,
			Name:           p.Name,
			PasswordHash:   hash,
			InviteCodeUsed: check.Code,
			Organization:   org,
			Role:           domain.RoleUser,
		})
		return err
	})
	if err != nil {
		return AuthResult{}, err
	}

	// 6. Sign in
	issued, err := s.Sessions.Create(ctx, u.ID, p.Meta)
	if err != nil {
		log.Error("account created but session failed",
			slog.String("user_id", u.ID),
			slog.Any("error", err),
		)
		return AuthResult{}, err
	}

	s.Audit.Log(ctx, AuditEntry{UserID: u.ID, Action: domain.ActionRegister, Resource: check.Code, Meta: p.Meta})
	log.Info("user registered",
		slog.String("user_id", u.ID),
		slog.String("invite_code", check.Code),
	)
	return AuthResult{Session: issued, User: u}, nil
}

// Login checks credentials and opens a session. Every credential failure is
// ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, password string, meta domain.ClientMeta) (AuthResult, error) {
	fields := map[string]string{}
	if email == "" {
		fields["email"] = "is required"
	}
	if password == "" {
		fields["password"] = "is required"
	}
	if err := validationErr(fields); err != nil {
		return AuthResult{}, err
	}

	u, err := s.Users.Authenticate(ctx, email, password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			s.Audit.Log(ctx, AuditEntry{Action: domain.ActionLoginFailed, Resource: email, Meta: meta})
		}
		return AuthResult{}, err
	}

	at, err := s.Users.UpdateLastLogin(ctx, u.ID)
	if err != nil {
		return AuthResult{}, fmt.Errorf("update last login: %w", err)
	}
	u.LastLogin = &at

	issued, err := s.Sessions.Create(ctx, u.ID, meta)
	if err != nil {
		return AuthResult{}, err
	}

	s.Audit.Log(ctx, AuditEntry{UserID: u.ID, Action: domain.ActionLogin, Meta: meta})
	return AuthResult{Session: issued, User: u}, nil
}

func (s *AuthService) Validate(ctx context.Context, token string) (domain.Session, domain.User, error) {
	return s.Sessions.Validate(ctx, token)
}

// Logout revokes token. It always succeeds from the caller's point of view.
func (s *AuthService) Logout(ctx context.Context, token string, meta domain.ClientMeta) error {
	log := slogx.FromContext(ctx)

	var userID string
	if _, u, err := s.Sessions.Validate(ctx, token); err == nil {
		userID = u.ID
	}

	if err := s.Sessions.Revoke(ctx, token); err != nil {
		log.Warn("failed to revoke session", slog.Any("error", err))
	}

	if userID != "" {
		s.Audit.Log(ctx, AuditEntry{UserID: userID, Action: domain.ActionLogout, Meta: meta})
	}
	return nil
}

func (s *AuthService) CheckInvite(ctx context.Context, code, email string) (InviteCheck, error) {
	return s.Invites.CheckCode(ctx, code, email)
}

type CreateInviteParams struct {
	Email         string
	MaxUses       int
	ExpiresInDays int
	Organization  string
}

func (s *AuthService) CreateInvite(ctx context.Context, actor Actor, p CreateInviteParams) (domain.InviteCode, error) {
	if err := actor.requireAdmin(); err != nil {
		return domain.InviteCode{}, err
	}
	if p.Email != "" {
		fields := map[string]string{}
		checkEmail(fields, "email", p.Email)
		if err := validationErr(fields); err != nil {
			return domain.InviteCode{}, err
		}
	}

	inv, err := s.Invites.IssueCode(ctx, IssueInviteParams{
		Email:         p.Email,
		MaxUses:       p.MaxUses,
		ExpiresInDays: p.ExpiresInDays,
		CreatedBy:     actor.UserID,
		Organization:  p.Organization,
	})
	if err != nil {
		return domain.InviteCode{}, err
	}

	s.Audit.Log(ctx, AuditEntry{UserID: actor.UserID, Action: domain.ActionCreateInvite, Resource: inv.Code, Meta: actor.Meta})
	return inv, nil
}

func (s *AuthService) ListInvites(ctx context.Context, actor Actor) ([]domain.InviteCode, error) {
	if err := actor.requireAdmin(); err != nil {
		return nil, err
	}
	return s.Invites.List(ctx)
}

func (s *AuthService) DeactivateInvite(ctx context.Context, actor Actor, code string) error {
	if err := actor.requireAdmin(); err != nil {
		return err
	}
	if err := s.Invites.Deactivate(ctx, code); err != nil {
		return err
	}
	s.Audit.Log(ctx, AuditEntry{UserID: actor.UserID, Action: domain.ActionDeactivateInvite, Resource: code, Meta: actor.Meta})
	return nil
}

// SetUserActive toggles an account. Admins cannot deactivate themselves.
func (s *AuthService) SetUserActive(ctx context.Context, actor Actor, userID string, active bool) error {
	if err := actor.requireAdmin(); err != nil {
		return err
	}
	if userID == actor.UserID && !active {
		return validationErr(map[string]string{"userId": "cannot deactivate your own account"})
	}
	if err := s.Users.SetActive(ctx, userID, active); err != nil {
		return err
	}

	action := domain.ActionActivateUser
	if !active {
		action = domain.ActionDeactivateUser
	}
	s.Audit.Log(ctx, AuditEntry{UserID: actor.UserID, Action: action, Resource: userID, Meta: actor.Meta})
	return nil
}

func (s *AuthService) ListAccessLogs(ctx context.Context, actor Actor, limit, offset int) ([]domain.AccessLogEntry, error) {
	if err := actor.requireAdmin(); err != nil {
		return nil, err
	}
	return s.Audit.List(ctx, limit, offset)
}

// ChangePassword keeps the caller's own session and drops the rest.
func (s *AuthService) ChangePassword(ctx context.Context, actor Actor, current, next string) error {
	if actor.UserID == "" {
		return ErrSessionInvalid
	}
	if err := s.Users.ChangePassword(ctx, actor.UserID, current, next, actor.SessionID); err != nil {
		return err
	}
	s.Audit.Log(ctx, AuditEntry{UserID: actor.UserID, Action: domain.ActionChangePassword, Meta: actor.Meta})
	return nil
}

func (s *AuthService) ListSessions(ctx context.Context, actor Actor) ([]domain.Session, error) {
	if actor.UserID == "" {
		return nil, ErrSessionInvalid
	}
	return s.Sessions.ListForUser(ctx, actor.UserID)
}
