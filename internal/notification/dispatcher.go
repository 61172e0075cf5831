package notification

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/AhmedB2023/ecommerce-backend/internal/config"
	"github.com/AhmedB2023/ecommerce-backend/internal/domain"
	"github.com/AhmedB2023/ecommerce-backend/internal/repository"
	"github.com/AhmedB2023/ecommerce-backend/pkg/logger/sl"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var notificationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "marketplace_notifications_total",
		Help: "Outbox emails by delivery result",
	},
	[]string{"result"},
)

type Transactor interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// Dispatcher drains the outbox. Several dispatchers may run against the
// same database; rows are claimed with SKIP LOCKED.
type Dispatcher struct {
	db     Transactor
	repo   repository.OutboxRepository
	mailer Mailer
	cfg    config.Outbox
	log    *slog.Logger
	now    func() time.Time
}

func NewDispatcher(db Transactor, repo repository.OutboxRepository, mailer Mailer, cfg config.Outbox, log *slog.Logger) *Dispatcher {
	return &Dispatcher{
		db:     db,
		repo:   repo,
		mailer: mailer,
		cfg:    cfg,
		log:    log,
		now:    time.Now,
	}
}

// Run polls the outbox until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	const op = "internal.notification.Dispatcher.Run"

	log := d.log.With(slog.String("op", op))
	log.Info("outbox dispatcher started", slog.Duration("interval", d.cfg.Interval))

	ticker := time.NewTicker(d.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("outbox dispatcher stopped")
			return nil
		case <-ticker.C:
			if _, err := d.DispatchOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("failed to dispatch outbox batch", sl.Err(err))
			}
		}
	}
}

// DispatchOnce sends one batch and returns how many emails went out. The
// batch is leased in its own transaction and every delivery is recorded in
// a short transaction of its own, so a failed write never un-records the
// emails already sent.
func (d *Dispatcher) DispatchOnce(ctx context.Context) (int, error) {
	const op = "internal.notification.Dispatcher.DispatchOnce"

	pending, err := d.claim(ctx)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	sent := 0
	var errs []error

	for i := range pending {
		n := &pending[i]
		log := d.log.With(
			slog.String("op", op),
			slog.Int64("notification_id", n.ID),
			slog.String("kind", string(n.Kind)),
		)

		if err := d.mailer.Send(ctx, n); err != nil {
			notificationsTotal.WithLabelValues("failed").Inc()

			if n.Attempts+1 >= d.cfg.MaxAttempts {
				log.Warn("giving up on notification", slog.Int("attempts", n.Attempts+1), sl.Err(err))
			} else {
				log.Error("failed to send notification", sl.Err(err))
			}

			reason := err.Error()
			if err := d.record(ctx, func(tx *sqlx.Tx) error {
				return d.repo.MarkFailed(ctx, tx, n.ID, reason)
			}); err != nil {
				log.Error("failed to record notification failure", sl.Err(err))
				errs = append(errs, err)
			}
			continue
		}

		notificationsTotal.WithLabelValues("sent").Inc()
		sent++

		if err := d.record(ctx, func(tx *sqlx.Tx) error {
			return d.repo.MarkSent(ctx, tx, n.ID, d.now())
		}); err != nil {
			log.Error("failed to record sent notification", sl.Err(err))
			errs = append(errs, err)
		}
	}

	if err := errors.Join(errs...); err != nil {
		return sent, fmt.Errorf("%s: %w", op, err)
	}

	return sent, nil
}

func (d *Dispatcher) claim(ctx context.Context) ([]domain.Notification, error) {
	var pending []domain.Notification

	err := d.record(ctx, func(tx *sqlx.Tx) error {
		now := d.now()

		var err error
		pending, err = d.repo.ClaimPending(ctx, tx, d.cfg.BatchSize, d.cfg.MaxAttempts, now, now.Add(d.cfg.Lease))
		return err
	})

	return pending, err
}

func (d *Dispatcher) record(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := d.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			d.log.Error("failed to rollback transaction", sl.Err(err))
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
