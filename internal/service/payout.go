package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/AhmedB2023/ecommerce-backend/internal/domain"
	"github.com/AhmedB2023/ecommerce-backend/internal/events"
	"github.com/AhmedB2023/ecommerce-backend/internal/payment"
	"github.com/AhmedB2023/ecommerce-backend/internal/repository"
	"github.com/AhmedB2023/ecommerce-backend/pkg/logger/sl"
	"github.com/jmoiron/sqlx"
)

// PayoutService transfers the provider's remaining share once the requester
// has confirmed completion. Each job is paid out at most once.
type PayoutService struct {
	BaseService
	query    repository.RepairQueryRepository
	command  repository.RepairCommandRepository
	accounts *AccountService
	payments payment.Provider
}

func NewPayoutService(
	base BaseService,
	query repository.RepairQueryRepository,
	command repository.RepairCommandRepository,
	accounts *AccountService,
	payments payment.Provider,
) *PayoutService {
	return &PayoutService{
		BaseService: base,
		query:       query,
		command:     command,
		accounts:    accounts,
		payments:    payments,
	}
}

// Release attempts the payout for one job. Unmet preconditions come back as
// a result with Success=false; errors are reserved for failures of the store
// or the payment provider.
func (s *PayoutService) Release(ctx context.Context, id int64) (*domain.PayoutResult, error) {
	const op = "internal.service.PayoutService.Release"

	log := s.log.With(slog.String("op", op), slog.Int64("repair_id", id))

	r, err := s.query.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if reason, err := s.precheck(ctx, r); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	} else if reason != "" {
		payoutsTotal.WithLabelValues(reason).Inc()
		log.Info("payout skipped", slog.String("reason", reason))
		return &domain.PayoutResult{RepairID: id, Reason: reason}, nil
	}

	claimed, ok, err := s.command.ClaimPayout(ctx, id, s.now())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		payoutsTotal.WithLabelValues(domain.PayoutAlreadyReleased).Inc()
		return &domain.PayoutResult{RepairID: id, Reason: domain.PayoutAlreadyReleased}, nil
	}

	amount := claimed.PayoutDue()
	account := claimed.ConnectedAccount()

	transferID, err := s.payments.Transfer(ctx, payment.TransferRequest{
		IdempotencyKey: fmt.Sprintf("repair-%d-payout", id),
		Destination:    account,
		Amount:         amount,
		Metadata: map[string]string{
			payment.MetaKind:     payment.KindPayout,
			payment.MetaRepairID: strconv.FormatInt(id, 10),
			payment.MetaJobCode:  claimed.JobCode,
		},
	})
	if err != nil {
		payoutsTotal.WithLabelValues("failed").Inc()

		if rerr := s.command.ReleasePayoutClaim(ctx, id); rerr != nil {
			log.Error("failed to release payout claim", sl.Err(rerr))
			return nil, fmt.Errorf("%s: %w", op, errors.Join(err, rerr))
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	claimed.PayoutTransferID = &transferID

	err = s.transaction(ctx, op, func(tx *sqlx.Tx) error {
		if err := s.command.SetPayoutTransfer(ctx, tx, id, transferID); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		if claimed.ProviderEmail == nil {
			return nil
		}

		data := repairData(claimed)
		data.Amount = money(amount)
		msg := repairMessage(domain.NotifyPayoutReleased, *claimed.ProviderEmail, claimed, "", data)

		if err := s.notifier.Enqueue(ctx, tx, msg); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		return nil
	})
	if err != nil {
		// The money has moved; the claim stays so the transfer is not repeated.
		log.Error("failed to record payout transfer", slog.String("transfer_id", transferID), sl.Err(err))
	}

	payoutsTotal.WithLabelValues("released").Inc()

	s.committed(ctx, domain.RepairFlow.Entity(), events.ChannelRepairs, events.Event{
		Type:     events.TypePayoutReleased,
		EntityID: id,
		From:     claimed.State().String(),
		To:       claimed.State().String(),
		Event:    string(domain.RepairEventReleasePayout),
		Payload: map[string]any{
			"amount":      money(amount),
			"transfer_id": transferID,
		},
	})

	log.Info("payout released", slog.String("amount", money(amount)), slog.String("transfer_id", transferID))

	return &domain.PayoutResult{
		RepairID:   id,
		Success:    true,
		Amount:     amount,
		TransferID: transferID,
	}, nil
}

func (s *PayoutService) precheck(ctx context.Context, r *domain.RepairRequest) (string, error) {
	if r.PayoutReleasedAt != nil {
		return domain.PayoutAlreadyReleased, nil
	}

	if !domain.RepairFlow.Can(r.State(), domain.RepairEventReleasePayout) {
		return domain.PayoutCompletionNotConfirmed, nil
	}

	account := r.ConnectedAccount()
	if account == "" {
		return domain.PayoutNoConnectedAccount, nil
	}

	active, err := s.accounts.TransfersActive(ctx, account)
	if err != nil {
		return "", err
	}
	if !active {
		return domain.PayoutTransfersInactive, nil
	}

	if !r.PayoutDue().IsPositive() {
		return domain.PayoutNothingToTransfer, nil
	}

	return "", nil
}

// ReleaseForAccount retries the payouts that were waiting on the account's
// transfer capability.
func (s *PayoutService) ReleaseForAccount(ctx context.Context, accountID string) ([]domain.PayoutResult, error) {
	const op = "internal.service.PayoutService.ReleaseForAccount"

	pending, err := s.query.ListAwaitingPayout(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var (
		results []domain.PayoutResult
		errs    []error
	)

	for _, r := range pending {
		res, err := s.Release(ctx, r.ID)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		results = append(results, *res)
	}

	if err := errors.Join(errs...); err != nil {
		return results, fmt.Errorf("%s: %w", op, err)
	}

	return results, nil
}
