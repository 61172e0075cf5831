package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/AhmedB2023/ecommerce-backend/internal/events"
	"github.com/AhmedB2023/ecommerce-backend/internal/notification"
	"github.com/AhmedB2023/ecommerce-backend/pkg/logger/sl"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	transitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_transitions_total",
			Help: "Committed state transitions by entity and event",
		},
		[]string{"entity", "event"},
	)

	payoutsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_payouts_total",
			Help: "Payout attempts by result",
		},
		[]string{"result"},
	)
)

type Transactor interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// Notifier stores emails inside the caller's transaction.
type Notifier interface {
	Enqueue(ctx context.Context, tx *sqlx.Tx, msgs ...notification.Message) error
}

type BaseService struct {
	db        Transactor
	notifier  Notifier
	publisher events.Publisher
	log       *slog.Logger
	now       func() time.Time
}

func NewBaseService(db Transactor, notifier Notifier, publisher events.Publisher, log *slog.Logger) BaseService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}

	return BaseService{
		db:        db,
		notifier:  notifier,
		publisher: publisher,
		log:       log,
		now:       time.Now,
	}
}

func (s *BaseService) transaction(ctx context.Context, op string, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}

	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			s.log.Error("failed to rollback transaction", sl.Err(err))
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	return nil
}

// committed records a transition that is already durable. Publishing is
// best effort.
func (s *BaseService) committed(ctx context.Context, entity, channel string, ev events.Event) {
	transitionsTotal.WithLabelValues(entity, ev.Event).Inc()

	ev.At = s.now()
	if err := s.publisher.Publish(ctx, channel, ev); err != nil {
		s.log.Warn("failed to publish event",
			slog.String("type", ev.Type),
			slog.Int64("entity_id", ev.EntityID),
			sl.Err(err),
		)
	}
}
