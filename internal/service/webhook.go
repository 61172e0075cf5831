package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/AhmedB2023/ecommerce-backend/internal/apperrors"
	"github.com/AhmedB2023/ecommerce-backend/internal/dedup"
	"github.com/AhmedB2023/ecommerce-backend/internal/domain"
	"github.com/AhmedB2023/ecommerce-backend/internal/payment"
	"github.com/AhmedB2023/ecommerce-backend/pkg/logger/sl"
)

type DepositRecorder interface {
	RecordDeposit(ctx context.Context, pi *payment.PaymentIntent) error
}

type CheckoutRecorder interface {
	Pay(ctx context.Context, session *payment.CheckoutSession) error
}

type AccountUpdater interface {
	SetTransfersActive(ctx context.Context, accountID string, active bool) error
}

type AccountPayouts interface {
	ReleaseForAccount(ctx context.Context, accountID string) ([]domain.PayoutResult, error)
}

// WebhookService verifies provider events and routes them to the lifecycle
// services. Every event id is handled at most once.
type WebhookService struct {
	payments  payment.Provider
	seen      dedup.Store
	deposits  DepositRecorder
	checkouts CheckoutRecorder
	accounts  AccountUpdater
	payouts   AccountPayouts
	log       *slog.Logger
}

func NewWebhookService(
	payments payment.Provider,
	seen dedup.Store,
	deposits DepositRecorder,
	checkouts CheckoutRecorder,
	accounts AccountUpdater,
	payouts AccountPayouts,
	log *slog.Logger,
) *WebhookService {
	return &WebhookService{
		payments:  payments,
		seen:      seen,
		deposits:  deposits,
		checkouts: checkouts,
		accounts:  accounts,
		payouts:   payouts,
		log:       log,
	}
}

// Handle processes one signed delivery. A nil error acknowledges the event,
// including events that are duplicates or of no interest.
func (s *WebhookService) Handle(ctx context.Context, payload []byte, signature string, source payment.EventSource) error {
	const op = "internal.service.WebhookService.Handle"

	ev, err := s.payments.ParseEvent(payload, signature, source)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	log := s.log.With(
		slog.String("op", op),
		slog.String("event_id", ev.ID),
		slog.String("event_type", ev.Type),
		slog.String("source", string(source)),
	)

	fresh, err := s.seen.Claim(ctx, ev.ID)
	if err != nil {
		log.Warn("dedup store unavailable, processing anyway", sl.Err(err))
		fresh = true
	}
	if !fresh {
		log.Info("duplicate event ignored")
		return nil
	}

	if err := s.route(ctx, log, ev); err != nil {
		if ferr := s.seen.Forget(ctx, ev.ID); ferr != nil {
			log.Warn("failed to forget event", sl.Err(ferr))
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *WebhookService) route(ctx context.Context, log *slog.Logger, ev *payment.Event) error {
	switch ev.Type {
	case payment.EventPaymentIntentSucceeded:
		pi := ev.PaymentIntent
		if pi == nil || pi.Metadata[payment.MetaKind] != payment.KindDeposit {
			log.Debug("payment intent is not a deposit")
			return nil
		}

		return acknowledgeStale(log, s.deposits.RecordDeposit(ctx, pi))

	case payment.EventCheckoutCompleted:
		session := ev.CheckoutSession
		if session == nil || session.Metadata[payment.MetaReservationID] == "" {
			log.Debug("checkout session is not a reservation")
			return nil
		}
		if session.PaymentStatus != "paid" {
			log.Info("checkout completed without payment", slog.String("payment_status", session.PaymentStatus))
			return nil
		}

		return acknowledgeStale(log, s.checkouts.Pay(ctx, session))

	case payment.EventAccountUpdated:
		acct := ev.ConnectedAccount
		if acct == nil {
			return nil
		}

		err := s.accounts.SetTransfersActive(ctx, acct.ID, acct.TransfersActive)
		if errors.Is(err, apperrors.ErrNotFound) {
			log.Info("account is not ours", slog.String("account_id", acct.ID))
			return nil
		}
		if err != nil {
			return err
		}

		if !acct.TransfersActive {
			return nil
		}

		results, err := s.payouts.ReleaseForAccount(ctx, acct.ID)
		for _, r := range results {
			log.Info("payout attempted",
				slog.Int64("repair_id", r.RepairID),
				slog.Bool("success", r.Success),
				slog.String("reason", r.Reason),
			)
		}

		return err

	default:
		log.Debug("unhandled event type")
		return nil
	}
}

// acknowledgeStale swallows errors a redelivery cannot fix, such as an
// event arriving after the entity moved on.
func acknowledgeStale(log *slog.Logger, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, apperrors.ErrInvalidTransition) ||
		errors.Is(err, apperrors.ErrNotFound) ||
		errors.Is(err, apperrors.ErrPrecondition) ||
		errors.Is(err, apperrors.ErrInvalidRequest) {
		log.Warn("event ignored", sl.Err(err))
		return nil
	}

	return err
}
