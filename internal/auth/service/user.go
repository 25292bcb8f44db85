package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/wealthstudio/studio-auth/internal/auth/domain"
	"github.com/wealthstudio/studio-auth/internal/auth/store"
	"github.com/wealthstudio/studio-auth/pkg/cryptox"
	"github.com/wealthstudio/studio-auth/pkg/idx"
	"github.com/wealthstudio/studio-auth/pkg/slogx"
)

// UserService is the credential store.
type UserService struct {
	Store  store.Store
	Hasher *cryptox.PasswordHasher
	Clock  Clock
}

type CreateUserParams struct {
	Email          string
	Name           string
	PasswordHash   string
	InviteCodeUsed string
	Organization   string
	Role           domain.Role // defaults to RoleUser
}

func (s *UserService) HashPassword(password string) (string, error) {
	return s.Hasher.Hash(password)
}

// Create inserts a user through st, which may be a transaction.
func (s *UserService) Create(ctx context.Context, st store.Store, p CreateUserParams) (domain.User, error) {
	role := p.Role
	if role == "" {
		role = domain.RoleUser
	}
	if !role.Valid() {
		return domain.User{}, validationErr(map[string]string{"role": "must be user or admin"})
	}

	now := s.Clock.now()
	u := domain.User{
		ID:             idx.NewAt(now).String(),
		Email:          p.Email,
		Name:           cleanText(p.Name),
		PasswordHash:   p.PasswordHash,
		InviteCodeUsed: p.InviteCodeUsed,
		Organization:   cleanText(p.Organization),
		Role:           role,
		CreatedAt:      now,
		IsActive:       true,
	}

	if err := st.Users().CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, ErrDuplicateEmail
		}
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

func (s *UserService) Get(ctx context.Context, userID string) (domain.User, error) {
	u, err := s.Store.Users().GetUserByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.User{}, ErrUserNotFound
	}
	return u, err
}

func (s *UserService) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	u, err := s.Store.Users().GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return domain.User{}, ErrUserNotFound
	}
	return u, err
}

// Authenticate checks email and password. Unknown emails, inactive accounts
// and wrong passwords all yield ErrInvalidCredentials.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (domain.User, error) {
	log := slogx.FromContext(ctx)

	u, err := s.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			s.Hasher.VerifyDummy(password)
			return domain.User{}, ErrInvalidCredentials
		}
		return domain.User{}, err
	}

	if err := s.Hasher.Verify(password, u.PasswordHash); err != nil {
		if !errors.Is(err, cryptox.ErrPasswordMismatch) {
			log.Error("stored password hash unreadable",
				slog.String("user_id", u.ID),
				slog.Any("error", err),
			)
		}
		return domain.User{}, ErrInvalidCredentials
	}

	// Checked after the hash so timing matches a wrong password.
	if !u.IsActive {
		return domain.User{}, ErrInvalidCredentials
	}

	if s.Hasher.NeedsRehash(u.PasswordHash) {
		if newHash, err := s.Hasher.Hash(password); err == nil {
			if err := s.Store.Users().UpdatePasswordHash(ctx, u.ID, newHash); err != nil {
				log.Warn("failed to upgrade password hash", slog.String("user_id", u.ID), slog.Any("error", err))
			} else {
				u.PasswordHash = newHash
				log.Info("upgraded password hash", slog.String("user_id", u.ID))
			}
		}
	}

	return u, nil
}

func (s *UserService) UpdateLastLogin(ctx context.Context, userID string) (time.Time, error) {
	now := s.Clock.now()
	err := s.Store.Users().UpdateLastLogin(ctx, userID, now)
	if errors.Is(err, store.ErrNotFound) {
		return now, ErrUserNotFound
	}
	return now, err
}

// SetActive toggles soft deactivation. Deactivating also drops every session
// the user holds.
func (s *UserService) SetActive(ctx context.Context, userID string, active bool) error {
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().SetActive(ctx, userID, active); err != nil {
			return err
		}
		if active {
			return nil
		}
		n, err := tx.Sessions().DeleteUserSessions(ctx, userID, "")
		if err != nil {
			return err
		}
		slogx.FromContext(ctx).Info("revoked sessions of deactivated user",
			slog.String("user_id", userID),
			slog.Int64("sessions", n),
		)
		return nil
	})
	if errors.Is(err, store.ErrNotFound) {
		return ErrUserNotFound
	}
	return err
}

// ChangePassword replaces the password after checking the current one and
// revokes every session except keepSessionID.
func (s *UserService) ChangePassword(ctx context.Context, userID, current, next, keepSessionID string) error {
	fields := map[string]string{}
	if current == "" {
		fields["currentPassword"] = "is required"
	}
	checkPassword(fields, "newPassword", next)
	if err := validationErr(fields); err != nil {
		return err
	}

	u, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.Hasher.Verify(current, u.PasswordHash); err != nil {
		return ErrInvalidCredentials
	}

	hash, err := s.Hasher.Hash(next)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().UpdatePasswordHash(ctx, userID, hash); err != nil {
			return err
		}
		_, err := tx.Sessions().DeleteUserSessions(ctx, userID, keepSessionID)
		return err
	})
}
