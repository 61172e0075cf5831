package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/AhmedB2023/ecommerce-backend/internal/apperrors"
	"github.com/AhmedB2023/ecommerce-backend/internal/domain"
	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var repairColumns = []string{
	"id", "job_code", "description", "image_urls", "customer_address", "preferred_time", "requester_email",
	"provider_email", "provider_first_name", "provider_last_name", "provider_city",
	"price_quote", "final_price", "materials_cost", "deposit_amount", "platform_fee_percent", "provider_payout_percent",
	"stripe_customer_id", "payment_method_id", "payment_intent_id", "final_payment_intent_id",
	"provider_stripe_account_id", "transferred_on_charge", "payout_transfer_id",
	"status", "completion_status", "payout_released_at", "created_at", "updated_at",
}

type RepairRepository struct {
	db  *sqlx.DB
	log *slog.Logger
	sq  sq.StatementBuilderType
}

func NewRepairRepository(db *sqlx.DB, log *slog.Logger) *RepairRepository {
	return &RepairRepository{
		db:  db,
		log: log,
		sq:  builder(),
	}
}

func (r *RepairRepository) Create(ctx context.Context, tx *sqlx.Tx, req *domain.RepairRequest) error {
	const op = "internal.repository.postgres.RepairRepository.Create"

	images := req.ImageURLs
	if images == nil {
		images = pq.StringArray{}
	}

	query, args, err := r.sq.Insert("repair_requests").
		Columns(
			"job_code", "description", "image_urls", "customer_address", "preferred_time", "requester_email",
			"deposit_amount", "platform_fee_percent", "provider_payout_percent", "status", "completion_status",
		).
		Values(
			req.JobCode, req.Description, images, req.CustomerAddress, req.PreferredTime, req.RequesterEmail,
			req.DepositAmount, req.PlatformFeePercent, req.ProviderPayoutPercent, req.Status, req.CompletionStatus,
		).
		Suffix("ON CONFLICT (job_code) DO NOTHING RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: failed to build insert query: %w", op, err)
	}

	err = tx.QueryRowxContext(ctx, query, args...).Scan(&req.ID, &req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%s: %w: '%s'", op, apperrors.ErrJobCodeTaken, req.JobCode)
		}

		return fmt.Errorf("%s: failed to execute insert: %w", op, err)
	}

	req.ImageURLs = images

	return nil
}

func (r *RepairRepository) GetByID(ctx context.Context, id int64) (*domain.RepairRequest, error) {
	const op = "internal.repository.postgres.RepairRepository.GetByID"

	return r.getOne(ctx, r.db, op, sq.Eq{"id": id}, false)
}

func (r *RepairRepository) GetByJobCode(ctx context.Context, jobCode string) (*domain.RepairRequest, error) {
	const op = "internal.repository.postgres.RepairRepository.GetByJobCode"

	return r.getOne(ctx, r.db, op, sq.Eq{"job_code": jobCode}, false)
}

func (r *RepairRepository) GetByIDWithLock(ctx context.Context, tx *sqlx.Tx, id int64) (*domain.RepairRequest, error) {
	const op = "internal.repository.postgres.RepairRepository.GetByIDWithLock"

	return r.getOne(ctx, tx, op, sq.Eq{"id": id}, true)
}

func (r *RepairRepository) getOne(ctx context.Context, q sqlx.QueryerContext, op string, where sq.Eq, lock bool) (*domain.RepairRequest, error) {
	qb := r.sq.Select(repairColumns...).
		From("repair_requests").
		Where(where)

	if lock {
		qb = qb.Suffix("FOR UPDATE")
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	var req domain.RepairRequest
	if err := sqlx.GetContext(ctx, q, &req, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w: repair request %v", op, apperrors.ErrNotFound, where)
		}

		return nil, fmt.Errorf("%s: failed to get repair request: %w", op, err)
	}

	return &req, nil
}

func (r *RepairRepository) ListByStatus(ctx context.Context, status domain.RepairStatus) ([]domain.RepairRequest, error) {
	const op = "internal.repository.postgres.RepairRepository.ListByStatus"

	query, args, err := r.sq.Select(repairColumns...).
		From("repair_requests").
		Where(sq.Eq{"status": status}).
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	repairs := []domain.RepairRequest{}
	if err := r.db.SelectContext(ctx, &repairs, query, args...); err != nil {
		return nil, fmt.Errorf("%s: failed to execute query: %w", op, err)
	}

	return repairs, nil
}

func (r *RepairRepository) ListAwaitingPayout(ctx context.Context, accountID string) ([]domain.RepairRequest, error) {
	const op = "internal.repository.postgres.RepairRepository.ListAwaitingPayout"

	query, args, err := r.sq.Select(repairColumns...).
		From("repair_requests").
		Where(sq.Eq{
			"provider_stripe_account_id": accountID,
			"status":                     domain.RepairCompleted,
			"completion_status":          domain.CompletionUserConfirmed,
			"payout_released_at":         nil,
		}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	repairs := []domain.RepairRequest{}
	if err := r.db.SelectContext(ctx, &repairs, query, args...); err != nil {
		return nil, fmt.Errorf("%s: failed to execute query: %w", op, err)
	}

	return repairs, nil
}

func (r *RepairRepository) Update(ctx context.Context, tx *sqlx.Tx, req *domain.RepairRequest) error {
	const op = "internal.repository.postgres.RepairRepository.Update"

	query, args, err := r.sq.Update("repair_requests").
		SetMap(map[string]interface{}{
			"provider_email":             req.ProviderEmail,
			"provider_first_name":        req.ProviderFirstName,
			"provider_last_name":         req.ProviderLastName,
			"provider_city":              req.ProviderCity,
			"price_quote":                req.PriceQuote,
			"final_price":                req.FinalPrice,
			"materials_cost":             req.MaterialsCost,
			"stripe_customer_id":         req.StripeCustomerID,
			"payment_method_id":          req.PaymentMethodID,
			"payment_intent_id":          req.PaymentIntentID,
			"final_payment_intent_id":    req.FinalPaymentIntentID,
			"provider_stripe_account_id": req.ProviderStripeAccountID,
			"transferred_on_charge":      req.TransferredOnCharge,
			"status":                     req.Status,
			"completion_status":          req.CompletionStatus,
			"updated_at":                 sq.Expr("NOW()"),
		}).
		Where(sq.Eq{"id": req.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: failed to build update query: %w", op, err)
	}

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: failed to execute update: %w", op, err)
	}

	if rowsAffected, err := res.RowsAffected(); err == nil && rowsAffected == 0 {
		return fmt.Errorf("%s: %w: repair request %d", op, apperrors.ErrNotFound, req.ID)
	}

	return nil
}

func (r *RepairRepository) ClaimPayout(ctx context.Context, id int64, at time.Time) (*domain.RepairRequest, bool, error) {
	const op = "internal.repository.postgres.RepairRepository.ClaimPayout"

	query, args, err := r.sq.Update("repair_requests").
		Set("payout_released_at", at).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{
			"id":                 id,
			"payout_released_at": nil,
			"status":             domain.RepairCompleted,
			"completion_status":  domain.CompletionUserConfirmed,
		}).
		Suffix("RETURNING " + strings.Join(repairColumns, ", ")).
		ToSql()
	if err != nil {
		return nil, false, fmt.Errorf("%s: failed to build update query: %w", op, err)
	}

	var req domain.RepairRequest
	if err := r.db.GetContext(ctx, &req, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}

		return nil, false, fmt.Errorf("%s: failed to claim payout: %w", op, err)
	}

	return &req, true, nil
}

func (r *RepairRepository) ReleasePayoutClaim(ctx context.Context, id int64) error {
	const op = "internal.repository.postgres.RepairRepository.ReleasePayoutClaim"

	query, args, err := r.sq.Update("repair_requests").
		Set("payout_released_at", nil).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id, "payout_transfer_id": nil}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: failed to build update query: %w", op, err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%s: failed to release payout claim: %w", op, err)
	}

	return nil
}

func (r *RepairRepository) SetPayoutTransfer(ctx context.Context, tx *sqlx.Tx, id int64, transferID string) error {
	const op = "internal.repository.postgres.RepairRepository.SetPayoutTransfer"

	query, args, err := r.sq.Update("repair_requests").
		Set("payout_transfer_id", transferID).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: failed to build update query: %w", op, err)
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%s: failed to set payout transfer: %w", op, err)
	}

	return nil
}
