package notification

import (
	"context"
	"fmt"

	"github.com/AhmedB2023/ecommerce-backend/internal/repository"
	"github.com/jmoiron/sqlx"
)

// Outbox renders messages and stores them inside the caller's transaction,
// so an email exists only when the transition that caused it committed.
type Outbox struct {
	repo     repository.OutboxRepository
	composer *Composer
}

func NewOutbox(repo repository.OutboxRepository, composer *Composer) *Outbox {
	return &Outbox{
		repo:     repo,
		composer: composer,
	}
}

func (o *Outbox) Enqueue(ctx context.Context, tx *sqlx.Tx, msgs ...Message) error {
	const op = "internal.notification.Outbox.Enqueue"

	for _, m := range msgs {
		n, err := o.composer.Compose(m)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		if err := o.repo.Enqueue(ctx, tx, n); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	return nil
}
