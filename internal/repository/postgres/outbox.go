package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/AhmedB2023/ecommerce-backend/internal/domain"
	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
)

type OutboxRepository struct {
	db  *sqlx.DB
	log *slog.Logger
	sq  sq.StatementBuilderType
}

func NewOutboxRepository(db *sqlx.DB, log *slog.Logger) *OutboxRepository {
	return &OutboxRepository{
		db:  db,
		log: log,
		sq:  builder(),
	}
}

func (r *OutboxRepository) Enqueue(ctx context.Context, tx *sqlx.Tx, n *domain.Notification) error {
	const op = "internal.repository.postgres.OutboxRepository.Enqueue"

	query, args, err := r.sq.Insert("notification_outbox").
		Columns("recipient", "subject", "body_html", "kind", "entity_type", "entity_id", "dedup_key").
		Values(n.Recipient, n.Subject, n.BodyHTML, n.Kind, n.EntityType, n.EntityID, n.DedupKey).
		Suffix("ON CONFLICT (dedup_key) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: failed to build insert query: %w", op, err)
	}

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: failed to execute insert: %w", op, err)
	}

	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		r.log.Debug("notification already queued", slog.String("dedup_key", n.DedupKey))
	}

	return nil
}

// ClaimPending leases up to limit unsent rows until the given time. A lease
// that has run out makes the row claimable again.
func (r *OutboxRepository) ClaimPending(ctx context.Context, tx *sqlx.Tx, limit, maxAttempts int, now, until time.Time) ([]domain.Notification, error) {
	const op = "internal.repository.postgres.OutboxRepository.ClaimPending"

	query, args, err := r.sq.Select(
		"id", "recipient", "subject", "body_html", "kind", "entity_type", "entity_id",
		"dedup_key", "attempts", "last_error", "sent_at", "created_at",
	).
		From("notification_outbox").
		Where(sq.Eq{"sent_at": nil}).
		Where(sq.Lt{"attempts": maxAttempts}).
		Where(sq.Or{sq.Eq{"claimed_until": nil}, sq.Lt{"claimed_until": now}}).
		OrderBy("created_at", "id").
		Limit(uint64(limit)).
		Suffix("FOR UPDATE SKIP LOCKED").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	pending := []domain.Notification{}
	if err := tx.SelectContext(ctx, &pending, query, args...); err != nil {
		return nil, fmt.Errorf("%s: failed to execute query: %w", op, err)
	}

	if len(pending) == 0 {
		return pending, nil
	}

	ids := make([]int64, len(pending))
	for i := range pending {
		ids[i] = pending[i].ID
	}

	query, args, err = r.sq.Update("notification_outbox").
		Set("claimed_until", until).
		Where(sq.Eq{"id": ids}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build update query: %w", op, err)
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("%s: failed to execute update: %w", op, err)
	}

	return pending, nil
}

func (r *OutboxRepository) MarkSent(ctx context.Context, tx *sqlx.Tx, id int64, at time.Time) error {
	const op = "internal.repository.postgres.OutboxRepository.MarkSent"

	query, args, err := r.sq.Update("notification_outbox").
		Set("sent_at", at).
		Set("attempts", sq.Expr("attempts + 1")).
		Set("last_error", nil).
		Set("claimed_until", nil).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: failed to build update query: %w", op, err)
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%s: failed to execute update: %w", op, err)
	}

	return nil
}

func (r *OutboxRepository) MarkFailed(ctx context.Context, tx *sqlx.Tx, id int64, reason string) error {
	const op = "internal.repository.postgres.OutboxRepository.MarkFailed"

	query, args, err := r.sq.Update("notification_outbox").
		Set("attempts", sq.Expr("attempts + 1")).
		Set("last_error", reason).
		Set("claimed_until", nil).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: failed to build update query: %w", op, err)
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%s: failed to execute update: %w", op, err)
	}

	return nil
}
