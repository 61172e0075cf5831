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

var propertyColumns = []string{"id", "landlord_email", "title", "address", "nightly_price", "created_at"}

type PropertyRepository struct {
	db  *sqlx.DB
	log *slog.Logger
	sq  sq.StatementBuilderType
}

func NewPropertyRepository(db *sqlx.DB, log *slog.Logger) *PropertyRepository {
	return &PropertyRepository{
		db:  db,
		log: log,
		sq:  builder(),
	}
}

func (r *PropertyRepository) CreateProperty(ctx context.Context, p *domain.Property) error {
	const op = "internal.repository.postgres.PropertyRepository.CreateProperty"

	query, args, err := r.sq.Insert("properties").
		Columns("landlord_email", "title", "address", "nightly_price").
		Values(p.LandlordEmail, p.Title, p.Address, p.NightlyPrice).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: failed to build insert query: %w", op, err)
	}

	if err := r.db.QueryRowxContext(ctx, query, args...).Scan(&p.ID, &p.CreatedAt); err != nil {
		return fmt.Errorf("%s: failed to execute insert: %w", op, err)
	}

	return nil
}

func (r *PropertyRepository) GetProperty(ctx context.Context, id int64) (*domain.Property, error) {
	const op = "internal.repository.postgres.PropertyRepository.GetProperty"

	return r.getProperty(ctx, r.db, op, id, false)
}

func (r *PropertyRepository) GetPropertyWithLock(ctx context.Context, tx *sqlx.Tx, id int64) (*domain.Property, error) {
	const op = "internal.repository.postgres.PropertyRepository.GetPropertyWithLock"

	return r.getProperty(ctx, tx, op, id, true)
}

func (r *PropertyRepository) getProperty(ctx context.Context, q sqlx.QueryerContext, op string, id int64, lock bool) (*domain.Property, error) {
	qb := r.sq.Select(propertyColumns...).
		From("properties").
		Where(sq.Eq{"id": id})

	if lock {
		qb = qb.Suffix("FOR UPDATE")
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	var p domain.Property
	if err := sqlx.GetContext(ctx, q, &p, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w: property %d", op, apperrors.ErrNotFound, id)
		}

		return nil, fmt.Errorf("%s: failed to get property: %w", op, err)
	}

	return &p, nil
}

func (r *PropertyRepository) UpsertAvailability(ctx context.Context, a *domain.AvailabilityRange) error {
	const op = "internal.repository.postgres.PropertyRepository.UpsertAvailability"

	query, args, err := r.sq.Insert("property_availability").
		Columns("property_id", "start_date", "end_date", "is_available", "note").
		Values(a.PropertyID, a.StartDate, a.EndDate, a.IsAvailable, a.Note).
		Suffix(`ON CONFLICT (property_id) DO UPDATE SET
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date,
			is_available = EXCLUDED.is_available,
			note = EXCLUDED.note,
			updated_at = NOW()
		RETURNING updated_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: failed to build upsert query: %w", op, err)
	}

	if err := r.db.QueryRowxContext(ctx, query, args...).Scan(&a.UpdatedAt); err != nil {
		if pqCode(err) == pqForeignKeyViolation {
			return fmt.Errorf("%s: %w: property %d", op, apperrors.ErrNotFound, a.PropertyID)
		}

		return fmt.Errorf("%s: failed to execute upsert: %w", op, err)
	}

	return nil
}

func (r *PropertyRepository) GetAvailability(ctx context.Context, propertyID int64) (*domain.AvailabilityRange, error) {
	const op = "internal.repository.postgres.PropertyRepository.GetAvailability"

	query, args, err := r.sq.Select("property_id", "start_date", "end_date", "is_available", "note", "updated_at").
		From("property_availability").
		Where(sq.Eq{"property_id": propertyID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	var a domain.AvailabilityRange
	if err := r.db.GetContext(ctx, &a, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w: availability for property %d", op, apperrors.ErrNotFound, propertyID)
		}

		return nil, fmt.Errorf("%s: failed to get availability: %w", op, err)
	}

	return &a, nil
}

// dayAvailabilityQuery walks every day in [$2, $3]. A day is free when the
// property's range (if any) marks it available and no blocking reservation
// covers it.
const dayAvailabilityQuery = `
SELECT to_char(d.day, 'YYYY-MM-DD') AS day,
       (
         COALESCE((
           SELECT pa.is_available
             FROM property_availability pa
            WHERE pa.property_id = $1
              AND d.day >= pa.start_date
              AND (pa.end_date IS NULL OR d.day <= pa.end_date)
         ), NOT EXISTS (SELECT 1 FROM property_availability pa WHERE pa.property_id = $1))
         AND NOT EXISTS (
           SELECT 1
             FROM reservations r
            WHERE r.property_id = $1
              AND r.status = ANY($4)
              AND d.day BETWEEN r.start_date AND r.end_date
         )
       ) AS is_free
  FROM generate_series($2::date, $3::date, interval '1 day') AS d(day)
 ORDER BY d.day`

func (r *PropertyRepository) DayAvailability(ctx context.Context, propertyID int64, from, to time.Time) ([]domain.DayAvailability, error) {
	const op = "internal.repository.postgres.PropertyRepository.DayAvailability"

	days := []domain.DayAvailability{}
	err := r.db.SelectContext(ctx, &days, dayAvailabilityQuery,
		propertyID, from.Format(domain.DateLayout), to.Format(domain.DateLayout), pq.Array(blockingStatuses()),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to execute query: %w", op, err)
	}

	return days, nil
}

func blockingStatuses() []string {
	out := make([]string, 0, len(domain.BlockingReservationStatuses))
	for _, s := range domain.BlockingReservationStatuses {
		out = append(out, string(s))
	}
	return out
}
