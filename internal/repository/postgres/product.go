package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/AhmedB2023/ecommerce-backend/internal/apperrors"
	"github.com/AhmedB2023/ecommerce-backend/internal/domain"
	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
)

var productColumns = []string{
	"p.id", "p.vendor_id", "v.name AS vendor_name", "p.name", "p.description", "p.price",
	"p.stock", "p.image_url", "p.is_active", "p.created_at",
}

// likeEscaper makes user input literal inside an ILIKE pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

type ProductRepository struct {
	db  *sqlx.DB
	log *slog.Logger
	sq  sq.StatementBuilderType
}

func NewProductRepository(db *sqlx.DB, log *slog.Logger) *ProductRepository {
	return &ProductRepository{
		db:  db,
		log: log,
		sq:  builder(),
	}
}

func (r *ProductRepository) CreateVendor(ctx context.Context, v *domain.Vendor) error {
	const op = "internal.repository.postgres.ProductRepository.CreateVendor"

	query, args, err := r.sq.Insert("vendors").
		Columns("name", "email").
		Values(v.Name, v.Email).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: failed to build insert query: %w", op, err)
	}

	if err := r.db.QueryRowxContext(ctx, query, args...).Scan(&v.ID, &v.CreatedAt); err != nil {
		if pqCode(err) == pqUniqueViolation {
			return fmt.Errorf("%s: %w: vendor '%s'", op, apperrors.ErrAlreadyExists, v.Name)
		}

		return fmt.Errorf("%s: failed to execute insert: %w", op, err)
	}

	return nil
}

func (r *ProductRepository) GetVendor(ctx context.Context, id int64) (*domain.Vendor, error) {
	const op = "internal.repository.postgres.ProductRepository.GetVendor"

	return r.getVendor(ctx, op, sq.Eq{"id": id})
}

func (r *ProductRepository) GetVendorByName(ctx context.Context, name string) (*domain.Vendor, error) {
	const op = "internal.repository.postgres.ProductRepository.GetVendorByName"

	return r.getVendor(ctx, op, sq.Eq{"name": name})
}

func (r *ProductRepository) getVendor(ctx context.Context, op string, where sq.Eq) (*domain.Vendor, error) {
	query, args, err := r.sq.Select("id", "name", "email", "created_at").
		From("vendors").
		Where(where).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	var v domain.Vendor
	if err := r.db.GetContext(ctx, &v, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w: vendor %v", op, apperrors.ErrNotFound, where)
		}

		return nil, fmt.Errorf("%s: failed to get vendor: %w", op, err)
	}

	return &v, nil
}

func (r *ProductRepository) CreateProduct(ctx context.Context, p *domain.Product) error {
	const op = "internal.repository.postgres.ProductRepository.CreateProduct"

	query, args, err := r.sq.Insert("products").
		Columns("vendor_id", "name", "description", "price", "stock", "image_url").
		Values(p.VendorID, p.Name, p.Description, p.Price, p.Stock, p.ImageURL).
		Suffix("RETURNING id, is_active, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: failed to build insert query: %w", op, err)
	}

	if err := r.db.QueryRowxContext(ctx, query, args...).Scan(&p.ID, &p.IsActive, &p.CreatedAt); err != nil {
		if pqCode(err) == pqForeignKeyViolation {
			return fmt.Errorf("%s: %w: vendor %d", op, apperrors.ErrNotFound, p.VendorID)
		}

		return fmt.Errorf("%s: failed to execute insert: %w", op, err)
	}

	return nil
}

func (r *ProductRepository) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	const op = "internal.repository.postgres.ProductRepository.GetProduct"

	query, args, err := r.products().Where(sq.Eq{"p.id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	var p domain.Product
	if err := r.db.GetContext(ctx, &p, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w: product %d", op, apperrors.ErrNotFound, id)
		}

		return nil, fmt.Errorf("%s: failed to get product: %w", op, err)
	}

	return &p, nil
}

func (r *ProductRepository) ListActive(ctx context.Context, vendorID int64) ([]domain.Product, error) {
	const op = "internal.repository.postgres.ProductRepository.ListActive"

	qb := r.products().Where(sq.Eq{"p.is_active": true})
	if vendorID != 0 {
		qb = qb.Where(sq.Eq{"p.vendor_id": vendorID})
	}

	return r.list(ctx, op, qb.OrderBy("p.created_at DESC", "p.id DESC"))
}

func (r *ProductRepository) Search(ctx context.Context, term string, limit int) ([]domain.Product, error) {
	const op = "internal.repository.postgres.ProductRepository.Search"

	qb := r.products().
		Where(sq.Eq{"p.is_active": true}).
		Where(sq.ILike{"p.name": "%" + likeEscaper.Replace(term) + "%"}).
		OrderBy("p.name", "p.id").
		Limit(uint64(limit))

	return r.list(ctx, op, qb)
}

func (r *ProductRepository) list(ctx context.Context, op string, qb sq.SelectBuilder) ([]domain.Product, error) {
	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	products := []domain.Product{}
	if err := r.db.SelectContext(ctx, &products, query, args...); err != nil {
		return nil, fmt.Errorf("%s: failed to execute query: %w", op, err)
	}

	return products, nil
}

const deactivateProductQuery = `
WITH hidden AS (
    UPDATE products SET is_active = FALSE
     WHERE id = $1 AND is_active
    RETURNING *
)
SELECT p.id, p.vendor_id, v.name AS vendor_name, p.name, p.description, p.price,
       p.stock, p.image_url, p.is_active, p.created_at
  FROM hidden p
  JOIN vendors v ON v.id = p.vendor_id`

func (r *ProductRepository) Deactivate(ctx context.Context, id int64) (*domain.Product, error) {
	const op = "internal.repository.postgres.ProductRepository.Deactivate"

	var p domain.Product
	if err := r.db.GetContext(ctx, &p, deactivateProductQuery, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w: active product %d", op, apperrors.ErrNotFound, id)
		}

		return nil, fmt.Errorf("%s: failed to deactivate product: %w", op, err)
	}

	return &p, nil
}

func (r *ProductRepository) LockActive(ctx context.Context, tx *sqlx.Tx, vendorID int64, ids []int64) ([]domain.Product, error) {
	const op = "internal.repository.postgres.ProductRepository.LockActive"

	query, args, err := r.products().
		Where(sq.Eq{"p.vendor_id": vendorID, "p.id": ids, "p.is_active": true}).
		Suffix("FOR SHARE OF p").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	products := []domain.Product{}
	if err := tx.SelectContext(ctx, &products, query, args...); err != nil {
		return nil, fmt.Errorf("%s: failed to execute query: %w", op, err)
	}

	return products, nil
}

func (r *ProductRepository) products() sq.SelectBuilder {
	return r.sq.Select(productColumns...).
		From("products p").
		Join("vendors v ON v.id = p.vendor_id")
}
