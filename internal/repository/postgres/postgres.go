package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/AhmedB2023/ecommerce-backend/internal/config"
	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

type Postgres struct {
	db  *sqlx.DB
	log *slog.Logger
}

func NewDB(ctx context.Context, cfg config.Postgres, log *slog.Logger) (*Postgres, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("can't connect to database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	log.Info("connected to postgres", slog.String("host", cfg.Host), slog.String("db", cfg.Database))

	return &Postgres{db: db, log: log}, nil
}

func (p *Postgres) DB() *sqlx.DB {
	return p.db
}

func (p *Postgres) Close() error {
	return p.db.Close()
}

func builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func pqCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}
