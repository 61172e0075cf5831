package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"

	"github.com/AhmedB2023/ecommerce-backend/internal/apperrors"
	"github.com/AhmedB2023/ecommerce-backend/internal/domain"
	"github.com/AhmedB2023/ecommerce-backend/internal/payment"
	"github.com/AhmedB2023/ecommerce-backend/internal/repository"
)

// AccountService owns provider connected accounts. One account exists per
// provider email and is reused by every job of that provider.
type AccountService struct {
	repo        repository.ProviderAccountRepository
	payments    payment.Provider
	baseURL     string
	frontendURL string
	log         *slog.Logger
}

func NewAccountService(repo repository.ProviderAccountRepository, payments payment.Provider, baseURL, frontendURL string, log *slog.Logger) *AccountService {
	return &AccountService{
		repo:        repo,
		payments:    payments,
		baseURL:     baseURL,
		frontendURL: frontendURL,
		log:         log,
	}
}

// EnsureConnectedAccount returns the provider's account, creating it when
// absent. created is true only for the caller whose row was stored.
func (s *AccountService) EnsureConnectedAccount(ctx context.Context, email string) (*domain.ProviderAccount, bool, error) {
	const op = "internal.service.AccountService.EnsureConnectedAccount"

	email = domain.NormalizeEmail(email)
	log := s.log.With(slog.String("op", op))

	existing, err := s.repo.GetByEmail(ctx, email)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}

	acct, err := s.payments.CreateConnectedAccount(ctx, accountIdempotencyKey(email), email)
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}

	stored := &domain.ProviderAccount{
		ProviderEmail:   email,
		StripeAccountID: acct.ID,
		TransfersActive: acct.TransfersActive,
	}

	inserted, err := s.repo.Insert(ctx, stored)
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}

	if !inserted {
		winner, err := s.repo.GetByEmail(ctx, email)
		if err != nil {
			return nil, false, fmt.Errorf("%s: failed to read stored account: %w", op, err)
		}
		return winner, false, nil
	}

	log.Info("connected account created", slog.String("account_id", acct.ID))

	return stored, true, nil
}

// OnboardingLink issues a fresh onboarding link for accountID.
func (s *AccountService) OnboardingLink(ctx context.Context, accountID string) (string, error) {
	const op = "internal.service.AccountService.OnboardingLink"

	refresh := fmt.Sprintf("%s/api/repairs/onboarding/refresh/%s", s.baseURL, accountID)
	ret := fmt.Sprintf("%s/provider/onboarding/complete", s.frontendURL)

	link, err := s.payments.CreateOnboardingLink(ctx, accountID, refresh, ret)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return link, nil
}

// OnboardingRefresh serves expired onboarding links. Only stored accounts
// get a new link.
func (s *AccountService) OnboardingRefresh(ctx context.Context, accountID string) (string, error) {
	const op = "internal.service.AccountService.OnboardingRefresh"

	if _, err := s.repo.GetByAccountID(ctx, accountID); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return s.OnboardingLink(ctx, accountID)
}

// TransfersActive prefers the stored flag and falls back to asking the
// provider, persisting a newly active capability.
func (s *AccountService) TransfersActive(ctx context.Context, accountID string) (bool, error) {
	const op = "internal.service.AccountService.TransfersActive"

	acct, err := s.repo.GetByAccountID(ctx, accountID)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if acct != nil && acct.TransfersActive {
		return true, nil
	}

	active, err := s.payments.TransfersActive(ctx, accountID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	if active && acct != nil {
		if err := s.repo.SetTransfersActive(ctx, accountID, true); err != nil {
			return false, fmt.Errorf("%s: %w", op, err)
		}
	}

	return active, nil
}

// SetTransfersActive records the capability reported by an account event.
func (s *AccountService) SetTransfersActive(ctx context.Context, accountID string, active bool) error {
	const op = "internal.service.AccountService.SetTransfersActive"

	if err := s.repo.SetTransfersActive(ctx, accountID, active); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func accountIdempotencyKey(email string) string {
	sum := sha256.Sum256([]byte(domain.NormalizeEmail(email)))
	return "connect-account-" + hex.EncodeToString(sum[:])
}
