package notification

import (
	"context"
	"time"

	"github.com/AhmedB2023/ecommerce-backend/internal/domain"
	"github.com/AhmedB2023/ecommerce-backend/internal/repository"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/mock"
)

type OutboxRepositoryMock struct {
	mock.Mock
}

var _ repository.OutboxRepository = (*OutboxRepositoryMock)(nil)

func (m *OutboxRepositoryMock) Enqueue(ctx context.Context, tx *sqlx.Tx, n *domain.Notification) error {
	args := m.Called(ctx, tx, n)
	return args.Error(0)
}

func (m *OutboxRepositoryMock) ClaimPending(ctx context.Context, tx *sqlx.Tx, limit, maxAttempts int, now, until time.Time) ([]domain.Notification, error) {
	args := m.Called(ctx, tx, limit, maxAttempts, now, until)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Notification), args.Error(1)
}

func (m *OutboxRepositoryMock) MarkSent(ctx context.Context, tx *sqlx.Tx, id int64, at time.Time) error {
	args := m.Called(ctx, tx, id, at)
	return args.Error(0)
}

func (m *OutboxRepositoryMock) MarkFailed(ctx context.Context, tx *sqlx.Tx, id int64, reason string) error {
	args := m.Called(ctx, tx, id, reason)
	return args.Error(0)
}

type MailerMock struct {
	mock.Mock
}

var _ Mailer = (*MailerMock)(nil)

func (m *MailerMock) Send(ctx context.Context, n *domain.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}
