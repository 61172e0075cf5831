package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/AhmedB2023/ecommerce-backend/internal/apperrors"
	"github.com/AhmedB2023/ecommerce-backend/internal/domain"
	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var reservationColumns = []string{
	"r.id", "r.property_id", "r.tenant_email", "r.tenant_name", "r.start_date", "r.end_date", "r.offer_price",
	"r.message", "r.status", "r.landlord_note", "r.id_front_ref", "r.id_back_ref", "r.selfie_ref", "r.documents",
	"r.id_verified_at", "r.checkout_session_id", "r.checkout_url", "r.paid_at", "r.created_at", "r.updated_at",
	"p.landlord_email",
}

type ReservationRepository struct {
	db  *sqlx.DB
	log *slog.Logger
	sq  sq.StatementBuilderType
}

func NewReservationRepository(db *sqlx.DB, log *slog.Logger) *ReservationRepository {
	return &ReservationRepository{
		db:  db,
		log: log,
		sq:  builder(),
	}
}

func (r *ReservationRepository) Create(ctx context.Context, tx *sqlx.Tx, res *domain.Reservation) error {
	const op = "internal.repository.postgres.ReservationRepository.Create"

	query, args, err := r.sq.Insert("reservations").
		Columns("property_id", "tenant_email", "tenant_name", "start_date", "end_date", "offer_price", "message", "status").
		Values(res.PropertyID, res.TenantEmail, res.TenantName, res.StartDate, res.EndDate, res.OfferPrice, res.Message, res.Status).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: failed to build insert query: %w", op, err)
	}

	if err := tx.QueryRowxContext(ctx, query, args...).Scan(&res.ID, &res.CreatedAt, &res.UpdatedAt); err != nil {
		if pqCode(err) == pqForeignKeyViolation {
			return fmt.Errorf("%s: %w: property %d", op, apperrors.ErrNotFound, res.PropertyID)
		}

		return fmt.Errorf("%s: failed to execute insert: %w", op, err)
	}

	if res.Documents == nil {
		res.Documents = pq.StringArray{}
	}

	return nil
}

func (r *ReservationRepository) HasOverlap(ctx context.Context, tx *sqlx.Tx, propertyID int64, from, to time.Time) (bool, error) {
	const op = "internal.repository.postgres.ReservationRepository.HasOverlap"

	query, args, err := r.sq.Select("1").
		From("reservations").
		Where(sq.Eq{"property_id": propertyID, "status": blockingStatuses()}).
		Where(sq.LtOrEq{"start_date": to}).
		Where(sq.GtOrEq{"end_date": from}).
		Prefix("SELECT EXISTS (").
		Suffix(")").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	var exists bool
	if err := tx.GetContext(ctx, &exists, query, args...); err != nil {
		return false, fmt.Errorf("%s: failed to execute query: %w", op, err)
	}

	return exists, nil
}

func (r *ReservationRepository) GetByID(ctx context.Context, id int64) (*domain.Reservation, error) {
	const op = "internal.repository.postgres.ReservationRepository.GetByID"

	return r.getOne(ctx, r.db, op, sq.Eq{"r.id": id}, false)
}

func (r *ReservationRepository) GetByIDWithLock(ctx context.Context, tx *sqlx.Tx, id int64) (*domain.Reservation, error) {
	const op = "internal.repository.postgres.ReservationRepository.GetByIDWithLock"

	return r.getOne(ctx, tx, op, sq.Eq{"r.id": id}, true)
}

func (r *ReservationRepository) GetByCheckoutSession(ctx context.Context, sessionID string) (*domain.Reservation, error) {
	const op = "internal.repository.postgres.ReservationRepository.GetByCheckoutSession"

	return r.getOne(ctx, r.db, op, sq.Eq{"r.checkout_session_id": sessionID}, false)
}

func (r *ReservationRepository) getOne(ctx context.Context, q sqlx.QueryerContext, op string, where sq.Eq, lock bool) (*domain.Reservation, error) {
	qb := r.sq.Select(reservationColumns...).
		From("reservations r").
		Join("properties p ON p.id = r.property_id").
		Where(where)

	if lock {
		qb = qb.Suffix("FOR UPDATE OF r")
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	var res domain.Reservation
	if err := sqlx.GetContext(ctx, q, &res, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w: reservation %v", op, apperrors.ErrNotFound, where)
		}

		return nil, fmt.Errorf("%s: failed to get reservation: %w", op, err)
	}

	return &res, nil
}

func (r *ReservationRepository) Update(ctx context.Context, tx *sqlx.Tx, res *domain.Reservation) error {
	const op = "internal.repository.postgres.ReservationRepository.Update"

	documents := res.Documents
	if documents == nil {
		documents = pq.StringArray{}
	}

	query, args, err := r.sq.Update("reservations").
		SetMap(map[string]interface{}{
			"status":              res.Status,
			"landlord_note":       res.LandlordNote,
			"id_front_ref":        res.IDFrontRef,
			"id_back_ref":         res.IDBackRef,
			"selfie_ref":          res.SelfieRef,
			"documents":           documents,
			"id_verified_at":      res.IDVerifiedAt,
			"checkout_session_id": res.CheckoutSessionID,
			"checkout_url":        res.CheckoutURL,
			"paid_at":             res.PaidAt,
			"updated_at":          sq.Expr("NOW()"),
		}).
		Where(sq.Eq{"id": res.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: failed to build update query: %w", op, err)
	}

	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: failed to execute update: %w", op, err)
	}

	if rowsAffected, err := result.RowsAffected(); err == nil && rowsAffected == 0 {
		return fmt.Errorf("%s: %w: reservation %d", op, apperrors.ErrNotFound, res.ID)
	}

	return nil
}
