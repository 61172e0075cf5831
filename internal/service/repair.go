package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/AhmedB2023/ecommerce-backend/internal/apperrors"
	"github.com/AhmedB2023/ecommerce-backend/internal/config"
	"github.com/AhmedB2023/ecommerce-backend/internal/domain"
	"github.com/AhmedB2023/ecommerce-backend/internal/events"
	"github.com/AhmedB2023/ecommerce-backend/internal/notification"
	"github.com/AhmedB2023/ecommerce-backend/internal/payment"
	"github.com/AhmedB2023/ecommerce-backend/internal/repository"
	"github.com/AhmedB2023/ecommerce-backend/pkg/logger/sl"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// RepairSettings are frozen onto every new request.
type RepairSettings struct {
	Deposit               decimal.Decimal
	PlatformFeePercent    int
	ProviderPayoutPercent int
	JobCodeAttempts       int
}

func RepairSettingsFrom(cfg config.Repair) (RepairSettings, error) {
	deposit, err := cfg.Deposit()
	if err != nil {
		return RepairSettings{}, fmt.Errorf("invalid deposit amount: %w", err)
	}

	return RepairSettings{
		Deposit:               deposit,
		PlatformFeePercent:    cfg.PlatformFeePercent,
		ProviderPayoutPercent: cfg.ProviderPayoutPercent,
		JobCodeAttempts:       cfg.JobCodeAttempts,
	}, nil
}

type AcceptResult struct {
	Repair         *domain.RepairRequest
	AccountCreated bool
}

type DepositResult struct {
	RepairID        int64
	PaymentIntentID string
	ClientSecret    string
	Amount          decimal.Decimal
}

// SavePaymentMethodInput names the deposit intent whose payment method is
// kept for the off-session final charge.
type SavePaymentMethodInput struct {
	RepairID        int64
	PaymentIntentID string
}

type CompletionInput struct {
	JobCode    string
	Email      string
	FinalPrice decimal.Decimal
}

type RevisePriceInput struct {
	JobCode       string
	Email         string
	FinalPrice    decimal.Decimal
	MaterialsCost decimal.NullDecimal
}

type ConfirmResult struct {
	Repair              *domain.RepairRequest
	Charged             decimal.Decimal
	ApplicationFee      decimal.Decimal
	TransferredOnCharge decimal.Decimal
	Payout              *domain.PayoutResult
}

type LookupResult struct {
	Role   string
	Repair *domain.RepairRequest
}

// RepairService drives repair requests through domain.RepairFlow.
//
// Transitions that call the payment provider do so before touching the
// database, with an idempotency key derived from the request id, and then
// re-validate the transition against the locked row. A retried call
// collapses into the same provider object.
type RepairService struct {
	BaseService
	query    repository.RepairQueryRepository
	command  repository.RepairCommandRepository
	accounts *AccountService
	payouts  *PayoutService
	payments payment.Provider
	settings RepairSettings
	jobCodes domain.JobCodeGenerator
}

func NewRepairService(
	base BaseService,
	query repository.RepairQueryRepository,
	command repository.RepairCommandRepository,
	accounts *AccountService,
	payouts *PayoutService,
	payments payment.Provider,
	settings RepairSettings,
) *RepairService {
	return &RepairService{
		BaseService: base,
		query:       query,
		command:     command,
		accounts:    accounts,
		payouts:     payouts,
		payments:    payments,
		settings:    settings,
		jobCodes:    domain.NewJobCode,
	}
}

func (s *RepairService) Submit(ctx context.Context, in domain.NewRepairRequest) (*domain.RepairRequest, error) {
	const op = "internal.service.RepairService.Submit"

	log := s.log.With(slog.String("op", op))

	if err := firstMissing(
		field{"description", in.Description},
		field{"customer_address", in.CustomerAddress},
		field{"preferred_time", in.PreferredTime},
		field{"requester_email", in.RequesterEmail},
	); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	state, err := domain.RepairFlow.Next(domain.RepairState{}, domain.RepairEventSubmit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	r := &domain.RepairRequest{
		Description:           strings.TrimSpace(in.Description),
		ImageURLs:             pq.StringArray(in.ImageURLs),
		CustomerAddress:       strings.TrimSpace(in.CustomerAddress),
		PreferredTime:         strings.TrimSpace(in.PreferredTime),
		RequesterEmail:        domain.NormalizeEmail(in.RequesterEmail),
		DepositAmount:         s.settings.Deposit,
		PlatformFeePercent:    s.settings.PlatformFeePercent,
		ProviderPayoutPercent: s.settings.ProviderPayoutPercent,
	}
	r.SetState(state)

	err = s.transaction(ctx, op, func(tx *sqlx.Tx) error {
		if err := s.createWithJobCode(ctx, tx, r); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		msg := repairMessage(domain.NotifyRepairSubmitted, r.RequesterEmail, r, "", repairData(r))
		if err := s.notifier.Enqueue(ctx, tx, msg); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.committed(ctx, domain.RepairFlow.Entity(), events.ChannelRepairs, events.Event{
		Type:     events.TypeRepairStatusChanged,
		EntityID: r.ID,
		From:     domain.RepairState{}.String(),
		To:       state.String(),
		Event:    string(domain.RepairEventSubmit),
	})

	log.Info("repair request submitted", slog.Int64("repair_id", r.ID), slog.String("job_code", r.JobCode))

	return r, nil
}

func (s *RepairService) createWithJobCode(ctx context.Context, tx *sqlx.Tx, r *domain.RepairRequest) error {
	for attempt := 1; attempt <= s.settings.JobCodeAttempts; attempt++ {
		code, err := s.jobCodes()
		if err != nil {
			return err
		}

		r.JobCode = code
		err = s.command.Create(ctx, tx, r)
		if err == nil {
			return nil
		}
		if !errors.Is(err, apperrors.ErrJobCodeTaken) {
			return err
		}

		s.log.Warn("job code collision", slog.String("job_code", code), slog.Int("attempt", attempt))
	}

	return fmt.Errorf("%w: no free job code after %d attempts", apperrors.ErrConflict, s.settings.JobCodeAttempts)
}

func (s *RepairService) ListOpen(ctx context.Context) ([]domain.RepairRequest, error) {
	const op = "internal.service.RepairService.ListOpen"

	repairs, err := s.query.ListByStatus(ctx, domain.RepairOpen)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return repairs, nil
}

func (s *RepairService) Quote(ctx context.Context, id int64, q domain.ProviderQuote) (*domain.RepairRequest, error) {
	const op = "internal.service.RepairService.Quote"

	if err := firstMissing(
		field{"provider_email", q.Email},
		field{"provider_first_name", q.FirstName},
		field{"provider_last_name", q.LastName},
	); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !q.Price.IsPositive() {
		return nil, fmt.Errorf("%s: %w", op, &apperrors.ValidationError{Field: "price_quote", Rule: "gt"})
	}

	return s.apply(ctx, op, id, domain.RepairEventQuote, func(tx *sqlx.Tx, r *domain.RepairRequest, _ domain.RepairState) error {
		email := domain.NormalizeEmail(q.Email)
		r.ProviderEmail = &email
		r.ProviderFirstName = optional(q.FirstName)
		r.ProviderLastName = optional(q.LastName)
		r.ProviderCity = optional(q.City)
		r.PriceQuote = decimal.NewNullDecimal(q.Price)

		suffix := email + ":" + money(q.Price)
		data := repairData(r)

		if err := s.notifier.Enqueue(ctx, tx,
			repairMessage(domain.NotifyRepairQuoted, r.RequesterEmail, r, suffix, data),
			repairMessage(domain.NotifyRepairQuoteSent, email, r, suffix, data),
		); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		return nil
	})
}

// Accept records the requester's acceptance of the quote or of a revised
// price. Accepting a quote ensures the provider has a connected account.
func (s *RepairService) Accept(ctx context.Context, id int64, code string) (*AcceptResult, error) {
	const op = "internal.service.RepairService.Accept"

	log := s.log.With(slog.String("op", op), slog.Int64("repair_id", id))

	current, err := s.query.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := checkJobCode(current, code); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	to, err := domain.RepairFlow.Next(current.State(), domain.RepairEventAccept)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var (
		account *domain.ProviderAccount
		created bool
		link    string
	)

	if to.Status == domain.RepairAccepted && current.ProviderEmail != nil {
		account, created, err = s.accounts.EnsureConnectedAccount(ctx, *current.ProviderEmail)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		if created {
			link, err = s.accounts.OnboardingLink(ctx, account.StripeAccountID)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", op, err)
			}
		}
	}

	r, err := s.apply(ctx, op, id, domain.RepairEventAccept, func(tx *sqlx.Tx, r *domain.RepairRequest, to domain.RepairState) error {
		if err := checkJobCode(r, code); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		if account != nil {
			r.ProviderStripeAccountID = &account.StripeAccountID
		}

		if r.ProviderEmail == nil {
			return nil
		}

		data := repairData(r)
		msgs := []notification.Message{
			repairMessage(domain.NotifyRepairAccepted, *r.ProviderEmail, r, string(to.Status), data),
		}
		if link != "" {
			onboarding := data
			onboarding.Link = link
			msgs = append(msgs, repairMessage(domain.NotifyProviderOnboarding, *r.ProviderEmail, r, "", onboarding))
		}

		if err := s.notifier.Enqueue(ctx, tx, msgs...); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info("repair accepted", slog.String("status", string(r.Status)), slog.Bool("account_created", created))

	return &AcceptResult{Repair: r, AccountCreated: created}, nil
}

func (s *RepairService) Reject(ctx context.Context, id int64, code string) (*domain.RepairRequest, error) {
	const op = "internal.service.RepairService.Reject"

	return s.apply(ctx, op, id, domain.RepairEventReject, func(tx *sqlx.Tx, r *domain.RepairRequest, _ domain.RepairState) error {
		if err := checkJobCode(r, code); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		if r.ProviderEmail == nil {
			return nil
		}

		msg := repairMessage(domain.NotifyRepairRejected, *r.ProviderEmail, r, "", repairData(r))
		if err := s.notifier.Enqueue(ctx, tx, msg); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		return nil
	})
}

// StartDeposit creates (or re-creates, idempotently) the deposit payment
// intent and returns its client secret.
func (s *RepairService) StartDeposit(ctx context.Context, id int64) (*DepositResult, error) {
	const op = "internal.service.RepairService.StartDeposit"

	current, err := s.query.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if _, err := domain.RepairFlow.Next(current.State(), domain.RepairEventStartDeposit); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	customerID := ""
	if current.StripeCustomerID != nil {
		customerID = *current.StripeCustomerID
	}
	if customerID == "" {
		customerID, err = s.payments.CreateCustomer(ctx, fmt.Sprintf("repair-%d-customer", id), current.RequesterEmail)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	intent, err := s.payments.CreateDepositIntent(ctx, payment.DepositRequest{
		IdempotencyKey: fmt.Sprintf("repair-%d-deposit", id),
		CustomerID:     customerID,
		Amount:         current.DepositAmount,
		Metadata:       repairMetadata(current, payment.KindDeposit),
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	r, err := s.apply(ctx, op, id, domain.RepairEventStartDeposit, func(_ *sqlx.Tx, r *domain.RepairRequest, _ domain.RepairState) error {
		r.StripeCustomerID = &customerID
		r.PaymentIntentID = &intent.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &DepositResult{
		RepairID:        r.ID,
		PaymentIntentID: intent.ID,
		ClientSecret:    intent.ClientSecret,
		Amount:          r.DepositAmount,
	}, nil
}

// SavePaymentMethod keeps the payment method of the job's captured deposit
// so the final charge can run off-session. The intent must be the deposit
// stored on the job and must have succeeded.
func (s *RepairService) SavePaymentMethod(ctx context.Context, in SavePaymentMethodInput) (*domain.RepairRequest, error) {
	const op = "internal.service.RepairService.SavePaymentMethod"

	if in.PaymentIntentID == "" {
		return nil, fmt.Errorf("%s: %w", op, &apperrors.ValidationError{Field: "payment_intent_id", Rule: "required"})
	}

	pi, err := s.payments.GetPaymentIntent(ctx, in.PaymentIntentID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if pi.Metadata[payment.MetaRepairID] != strconv.FormatInt(in.RepairID, 10) {
		return nil, fmt.Errorf("%s: %w: payment intent belongs to another job", op, apperrors.ErrForbidden)
	}

	return s.recordDeposit(ctx, op, in.RepairID, pi)
}

// RecordDeposit handles a succeeded deposit intent reported by webhook.
func (s *RepairService) RecordDeposit(ctx context.Context, pi *payment.PaymentIntent) error {
	const op = "internal.service.RepairService.RecordDeposit"

	id, err := strconv.ParseInt(pi.Metadata[payment.MetaRepairID], 10, 64)
	if err != nil {
		return fmt.Errorf("%s: %w: payment intent %s has no repair id", op, apperrors.ErrInvalidRequest, pi.ID)
	}

	_, err = s.recordDeposit(ctx, op, id, pi)

	return err
}

func (s *RepairService) recordDeposit(ctx context.Context, op string, id int64, pi *payment.PaymentIntent) (*domain.RepairRequest, error) {
	if pi.Status != payment.IntentSucceeded {
		return nil, fmt.Errorf("%s: %w", op, &apperrors.PreconditionError{Reason: "deposit has not been captured"})
	}

	if pi.PaymentMethodID == "" {
		return nil, fmt.Errorf("%s: %w", op, &apperrors.PreconditionError{Reason: "payment intent has no payment method"})
	}

	var r *domain.RepairRequest

	err := s.transaction(ctx, op, func(tx *sqlx.Tx) error {
		var err error
		r, err = s.command.GetByIDWithLock(ctx, tx, id)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		if !r.State().AcceptsPaymentMethod() {
			return fmt.Errorf("%s: %w", op, &apperrors.TransitionError{
				Entity: domain.RepairFlow.Entity(),
				From:   r.State().String(),
				Event:  "save_payment_method",
			})
		}

		if r.PaymentIntentID == nil || *r.PaymentIntentID != pi.ID {
			return fmt.Errorf("%s: %w", op, &apperrors.PreconditionError{Reason: "payment intent is not the job's deposit"})
		}

		r.PaymentMethodID = &pi.PaymentMethodID
		if pi.CustomerID != "" && r.StripeCustomerID == nil {
			r.StripeCustomerID = &pi.CustomerID
		}

		if err := s.command.Update(ctx, tx, r); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		if r.ProviderEmail == nil {
			return nil
		}

		msg := repairMessage(domain.NotifyDepositPaid, *r.ProviderEmail, r, "", repairData(r))
		if err := s.notifier.Enqueue(ctx, tx, msg); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("payment method saved", slog.String("op", op), slog.Int64("repair_id", id))

	return r, nil
}

func (s *RepairService) MarkCompleted(ctx context.Context, in CompletionInput) (*domain.RepairRequest, error) {
	const op = "internal.service.RepairService.MarkCompleted"

	if !in.FinalPrice.IsPositive() {
		return nil, fmt.Errorf("%s: %w", op, &apperrors.ValidationError{Field: "final_price", Rule: "gt"})
	}

	current, err := s.providerJob(ctx, in.JobCode, in.Email)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return s.apply(ctx, op, current.ID, domain.RepairEventMarkCompleted, func(tx *sqlx.Tx, r *domain.RepairRequest, _ domain.RepairState) error {
		if !r.IsProvider(in.Email) {
			return fmt.Errorf("%s: %w: caller is not the assigned provider", op, apperrors.ErrForbidden)
		}

		r.FinalPrice = decimal.NewNullDecimal(in.FinalPrice)

		msg := repairMessage(domain.NotifyCompletionNeeded, r.RequesterEmail, r, money(in.FinalPrice), repairData(r))
		if err := s.notifier.Enqueue(ctx, tx, msg); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		return nil
	})
}

func (s *RepairService) RevisePrice(ctx context.Context, in RevisePriceInput) (*domain.RepairRequest, error) {
	const op = "internal.service.RepairService.RevisePrice"

	if !in.FinalPrice.IsPositive() {
		return nil, fmt.Errorf("%s: %w", op, &apperrors.ValidationError{Field: "final_price", Rule: "gt"})
	}
	if in.MaterialsCost.Valid && in.MaterialsCost.Decimal.IsNegative() {
		return nil, fmt.Errorf("%s: %w", op, &apperrors.ValidationError{Field: "materials_cost", Rule: "gte"})
	}

	current, err := s.providerJob(ctx, in.JobCode, in.Email)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return s.apply(ctx, op, current.ID, domain.RepairEventRevisePrice, func(tx *sqlx.Tx, r *domain.RepairRequest, _ domain.RepairState) error {
		if !r.IsProvider(in.Email) {
			return fmt.Errorf("%s: %w: caller is not the assigned provider", op, apperrors.ErrForbidden)
		}

		r.FinalPrice = decimal.NewNullDecimal(in.FinalPrice)
		r.MaterialsCost = in.MaterialsCost

		msg := repairMessage(domain.NotifyPriceRevised, r.RequesterEmail, r, money(in.FinalPrice), repairData(r))
		if err := s.notifier.Enqueue(ctx, tx, msg); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		return nil
	})
}

// ConfirmCompletion charges the balance after the deposit, completes the job
// and attempts the payout. A payout that cannot run yet is reported in the
// result, not as an error.
func (s *RepairService) ConfirmCompletion(ctx context.Context, jobCode, email string) (*ConfirmResult, error) {
	const op = "internal.service.RepairService.ConfirmCompletion"

	log := s.log.With(slog.String("op", op))

	current, err := s.query.GetByJobCode(ctx, jobCode)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !current.IsRequester(email) {
		return nil, fmt.Errorf("%s: %w: caller is not the requester", op, apperrors.ErrForbidden)
	}

	if _, err := domain.RepairFlow.Next(current.State(), domain.RepairEventConfirm); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !current.HasPaymentMethod() || current.StripeCustomerID == nil {
		return nil, fmt.Errorf("%s: %w", op, &apperrors.PreconditionError{Reason: "no saved payment method"})
	}

	plan, err := s.planCharge(ctx, current)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	pi, err := s.payments.ChargeOffSession(ctx, payment.ChargeRequest{
		IdempotencyKey:  fmt.Sprintf("repair-%d-final-charge", current.ID),
		CustomerID:      *current.StripeCustomerID,
		PaymentMethodID: *current.PaymentMethodID,
		Amount:          plan.Amount,
		ApplicationFee:  plan.ApplicationFee,
		Destination:     plan.Destination,
		Description:     "Repair " + current.JobCode,
		Metadata:        repairMetadata(current, payment.KindFinalCharge),
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	pi, err = s.settled(ctx, pi)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	r, err := s.apply(ctx, op, current.ID, domain.RepairEventConfirm, func(tx *sqlx.Tx, r *domain.RepairRequest, _ domain.RepairState) error {
		if !r.FinalPrice.Decimal.Equal(current.FinalPrice.Decimal) {
			return fmt.Errorf("%s: %w: final price changed during confirmation", op, apperrors.ErrConflict)
		}

		r.FinalPaymentIntentID = &pi.ID
		r.TransferredOnCharge = plan.TransferredOnCharge

		receipt := repairData(r)
		receipt.Amount = money(plan.Amount)
		msgs := []notification.Message{
			repairMessage(domain.NotifyFinalChargeReceipt, r.RequesterEmail, r, "", receipt),
		}

		if r.ProviderEmail != nil {
			confirmed := repairData(r)
			if plan.TransferredOnCharge.IsPositive() {
				confirmed.Amount = money(plan.TransferredOnCharge)
			}
			msgs = append(msgs, repairMessage(domain.NotifyJobConfirmed, *r.ProviderEmail, r, "", confirmed))
		}

		if err := s.notifier.Enqueue(ctx, tx, msgs...); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info("completion confirmed",
		slog.Int64("repair_id", r.ID),
		slog.String("charged", money(plan.Amount)),
		slog.String("application_fee", money(plan.ApplicationFee)),
	)

	result := &ConfirmResult{
		Repair:              r,
		Charged:             plan.Amount,
		ApplicationFee:      plan.ApplicationFee,
		TransferredOnCharge: plan.TransferredOnCharge,
	}

	payout, err := s.payouts.Release(ctx, r.ID)
	if err != nil {
		log.Error("payout after confirmation failed", slog.Int64("repair_id", r.ID), sl.Err(err))
	} else {
		result.Payout = payout
	}

	return result, nil
}

// settled returns the final charge once it has succeeded. A replayed
// idempotent charge reports the status of the first attempt, so any other
// status is re-read before the confirmation is refused.
func (s *RepairService) settled(ctx context.Context, pi *payment.PaymentIntent) (*payment.PaymentIntent, error) {
	if pi.Status == payment.IntentSucceeded {
		return pi, nil
	}

	current, err := s.payments.GetPaymentIntent(ctx, pi.ID)
	if err != nil {
		return nil, err
	}

	if current.Status != payment.IntentSucceeded {
		return nil, &apperrors.PreconditionError{Reason: "final charge is " + current.Status}
	}

	return current, nil
}

// planCharge routes the charge to the provider only when their account can
// receive transfers.
func (s *RepairService) planCharge(ctx context.Context, r *domain.RepairRequest) (domain.ChargePlan, error) {
	if _, err := domain.PlanFinalCharge(r); err != nil {
		return domain.ChargePlan{}, err
	}

	routed := *r
	if account := r.ConnectedAccount(); account != "" {
		active, err := s.accounts.TransfersActive(ctx, account)
		if err != nil {
			return domain.ChargePlan{}, err
		}
		if !active {
			routed.ProviderStripeAccountID = nil
		}
	}

	return domain.PlanFinalCharge(&routed)
}

// Lookup identifies the caller's role on the job.
func (s *RepairService) Lookup(ctx context.Context, jobCode, email string) (*LookupResult, error) {
	const op = "internal.service.RepairService.Lookup"

	r, err := s.query.GetByJobCode(ctx, strings.TrimSpace(jobCode))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	role := r.RoleOf(email)
	if role == "" {
		return nil, fmt.Errorf("%s: %w: email does not match this job", op, apperrors.ErrForbidden)
	}

	return &LookupResult{Role: role, Repair: r}, nil
}

func (s *RepairService) providerJob(ctx context.Context, jobCode, email string) (*domain.RepairRequest, error) {
	r, err := s.query.GetByJobCode(ctx, strings.TrimSpace(jobCode))
	if err != nil {
		return nil, err
	}

	if !r.IsProvider(email) {
		return nil, fmt.Errorf("%w: caller is not the assigned provider", apperrors.ErrForbidden)
	}

	return r, nil
}

// apply runs event on the locked row. fn sees the row in its current state
// and the target state; the new state is written after fn returns.
func (s *RepairService) apply(
	ctx context.Context,
	op string,
	id int64,
	event domain.RepairEvent,
	fn func(tx *sqlx.Tx, r *domain.RepairRequest, to domain.RepairState) error,
) (*domain.RepairRequest, error) {
	var (
		r        *domain.RepairRequest
		from, to domain.RepairState
	)

	err := s.transaction(ctx, op, func(tx *sqlx.Tx) error {
		var err error
		r, err = s.command.GetByIDWithLock(ctx, tx, id)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		from = r.State()
		to, err = domain.RepairFlow.Next(from, event)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		if err := fn(tx, r, to); err != nil {
			return err
		}

		r.SetState(to)
		if err := s.command.Update(ctx, tx, r); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.committed(ctx, domain.RepairFlow.Entity(), events.ChannelRepairs, events.Event{
		Type:     events.TypeRepairStatusChanged,
		EntityID: r.ID,
		From:     from.String(),
		To:       to.String(),
		Event:    string(event),
	})

	return r, nil
}

func checkJobCode(r *domain.RepairRequest, code string) error {
	if code == "" || !strings.EqualFold(strings.TrimSpace(code), r.JobCode) {
		return fmt.Errorf("%w: job code does not match", apperrors.ErrForbidden)
	}
	return nil
}

func repairMetadata(r *domain.RepairRequest, kind string) map[string]string {
	return map[string]string{
		payment.MetaKind:     kind,
		payment.MetaRepairID: strconv.FormatInt(r.ID, 10),
		payment.MetaJobCode:  r.JobCode,
	}
}

type field struct {
	name  string
	value string
}

func firstMissing(fields ...field) error {
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return &apperrors.ValidationError{Field: f.name, Rule: "required"}
		}
	}
	return nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
