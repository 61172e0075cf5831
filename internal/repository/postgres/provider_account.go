package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/AhmedB2023/ecommerce-backend/internal/apperrors"
	"github.com/AhmedB2023/ecommerce-backend/internal/domain"
	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
)

var providerAccountColumns = []string{"provider_email", "stripe_account_id", "transfers_active", "created_at", "updated_at"}

type ProviderAccountRepository struct {
	db  *sqlx.DB
	log *slog.Logger
	sq  sq.StatementBuilderType
}

func NewProviderAccountRepository(db *sqlx.DB, log *slog.Logger) *ProviderAccountRepository {
	return &ProviderAccountRepository{
		db:  db,
		log: log,
		sq:  builder(),
	}
}

func (r *ProviderAccountRepository) GetByEmail(ctx context.Context, email string) (*domain.ProviderAccount, error) {
	const op = "internal.repository.postgres.ProviderAccountRepository.GetByEmail"

	return r.get(ctx, op, sq.Eq{"provider_email": domain.NormalizeEmail(email)})
}

func (r *ProviderAccountRepository) GetByAccountID(ctx context.Context, accountID string) (*domain.ProviderAccount, error) {
	const op = "internal.repository.postgres.ProviderAccountRepository.GetByAccountID"

	return r.get(ctx, op, sq.Eq{"stripe_account_id": accountID})
}

func (r *ProviderAccountRepository) get(ctx context.Context, op string, where sq.Eq) (*domain.ProviderAccount, error) {
	query, args, err := r.sq.Select(providerAccountColumns...).
		From("provider_accounts").
		Where(where).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	var account domain.ProviderAccount
	if err := r.db.GetContext(ctx, &account, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w: provider account %v", op, apperrors.ErrNotFound, where)
		}

		return nil, fmt.Errorf("%s: failed to get provider account: %w", op, err)
	}

	return &account, nil
}

func (r *ProviderAccountRepository) Insert(ctx context.Context, account *domain.ProviderAccount) (bool, error) {
	const op = "internal.repository.postgres.ProviderAccountRepository.Insert"

	account.ProviderEmail = domain.NormalizeEmail(account.ProviderEmail)

	query, args, err := r.sq.Insert("provider_accounts").
		Columns("provider_email", "stripe_account_id", "transfers_active").
		Values(account.ProviderEmail, account.StripeAccountID, account.TransfersActive).
		Suffix("ON CONFLICT DO NOTHING").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("%s: failed to build insert query: %w", op, err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("%s: failed to execute insert: %w", op, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: failed to read affected rows: %w", op, err)
	}

	return rows == 1, nil
}

func (r *ProviderAccountRepository) SetTransfersActive(ctx context.Context, accountID string, active bool) error {
	const op = "internal.repository.postgres.ProviderAccountRepository.SetTransfersActive"

	query, args, err := r.sq.Update("provider_accounts").
		Set("transfers_active", active).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"stripe_account_id": accountID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: failed to build update query: %w", op, err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: failed to execute update: %w", op, err)
	}

	if rowsAffected, err := res.RowsAffected(); err == nil && rowsAffected == 0 {
		return fmt.Errorf("%s: %w: provider account '%s'", op, apperrors.ErrNotFound, accountID)
	}

	return nil
}
