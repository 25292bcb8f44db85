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

const (
	inviteCodeLength   = 10
	inviteCodeAttempts = 3

	DefaultInviteMaxUses       = 1
	DefaultInviteExpiresInDays = 30
)

// InviteService is the invite ledger: issuance, pre-validation and atomic
// redemption of invite codes.
type InviteService struct {
	Store store.Store
	Clock Clock
}

type IssueInviteParams struct {
	Email         string // optional binding
	MaxUses       int
	ExpiresInDays int // <= 0 never expires
	CreatedBy     string
	Organization  string
}

// InviteCheck is the outcome of a side-effect free look at a known code.
type InviteCheck struct {
	Code          string
	Valid         bool
	Reason        domain.InviteReason
	Organization  string
	RemainingUses int
	ExpiresAt     *time.Time
}

// IssueCode mints and persists a fresh code.
func (s *InviteService) IssueCode(ctx context.Context, p IssueInviteParams) (domain.InviteCode, error) {
	log := slogx.FromContext(ctx)

	// 1. Validate business rules
	fields := map[string]string{}
	if p.MaxUses < 1 {
		fields["maxUses"] = "must be at least 1"
	}
	if p.CreatedBy == "" {
		fields["createdBy"] = "is required"
	}
	if err := validationErr(fields); err != nil {
		return domain.InviteCode{}, err
	}

	now := s.Clock.now()
	inv := domain.InviteCode{
		Email:        p.Email,
		MaxUses:      p.MaxUses,
		CreatedBy:    p.CreatedBy,
		Organization: cleanText(p.Organization),
		CreatedAt:    now,
		IsActive:     true,
	}
	if p.ExpiresInDays > 0 {
		exp := now.Add(time.Duration(p.ExpiresInDays) * 24 * time.Hour)
		inv.ExpiresAt = &exp
	}

	// 2. Generate and store, retrying the rare code collision
	for attempt := 1; ; attempt++ {
		code, err := cryptox.GenerateCode(domain.InviteCodePrefix, inviteCodeLength)
		if err != nil {
			log.Error("failed to generate invite code", slog.Any("error", err))
			return domain.InviteCode{}, err
		}
		inv.ID = idx.NewAt(now).String()
		inv.Code = code

		err = s.Store.Invites().CreateInvite(ctx, inv)
		if err == nil {
			break
		}
		if errors.Is(err, store.ErrAlreadyExists) && attempt < inviteCodeAttempts {
			log.Warn("invite code collision, retrying", slog.Int("attempt", attempt))
			continue
		}
		log.Error("failed to create invite", slog.Any("error", err))
		return domain.InviteCode{}, fmt.Errorf("create invite: %w", err)
	}

	log.Info("invite created",
		slog.String("invite_id", inv.ID),
		slog.String("created_by", inv.CreatedBy),
		slog.Int("max_uses", inv.MaxUses),
		slog.Bool("email_bound", inv.Email != ""),
	)
	return inv, nil
}

// CheckCode reports whether code could be redeemed right now by email. It
// never changes the code.
func (s *InviteService) CheckCode(ctx context.Context, code, email string) (InviteCheck, error) {
	inv, err := s.Store.Invites().GetInviteByCode(ctx, code)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return InviteCheck{}, ErrInviteNotFound
		}
		return InviteCheck{}, err
	}

	reason := inv.Check(s.Clock.now(), email)
	return InviteCheck{
		Code:          inv.Code,
		Valid:         reason == domain.InviteOK,
		Reason:        reason,
		Organization:  inv.Organization,
		RemainingUses: inv.RemainingUses(),
		ExpiresAt:     inv.ExpiresAt,
	}, nil
}

// Redeem consumes one use of code for email.
func (s *InviteService) Redeem(ctx context.Context, code, email string) error {
	return s.RedeemIn(ctx, s.Store, code, email)
}

// RedeemIn is Redeem against st, which may be a transaction.
func (s *InviteService) RedeemIn(ctx context.Context, st store.Store, code, email string) error {
	now := s.Clock.now()

	ok, err := st.Invites().RedeemInvite(ctx, code, email, now)
	if err != nil {
		return fmt.Errorf("redeem invite: %w", err)
	}
	if ok {
		return nil
	}

	// The guarded update matched nothing; find out why.
	inv, err := st.Invites().GetInviteByCode(ctx, code)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidOrExpiredInvite
		}
		return err
	}
	if inv.Check(now, email) == domain.InviteExhausted {
		return ErrInviteExhausted
	}
	return ErrInvalidOrExpiredInvite
}

func (s *InviteService) List(ctx context.Context) ([]domain.InviteCode, error) {
	return s.Store.Invites().ListInvites(ctx)
}

func (s *InviteService) Deactivate(ctx context.Context, code string) error {
	err := s.Store.Invites().DeactivateInvite(ctx, code)
	if errors.Is(err, store.ErrNotFound) {
		return ErrInviteNotFound
	}
	return err
}
