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
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var orderColumns = []string{
	"id", "ref", "vendor_id", "customer_id", "guest_name", "guest_contact",
	"barcode", "total_price", "status", "created_at",
}

type OrderRepository struct {
	db  *sqlx.DB
	log *slog.Logger
	sq  sq.StatementBuilderType
}

func NewOrderRepository(db *sqlx.DB, log *slog.Logger) *OrderRepository {
	return &OrderRepository{
		db:  db,
		log: log,
		sq:  builder(),
	}
}

func (r *OrderRepository) Create(ctx context.Context, tx *sqlx.Tx, o *domain.Order) error {
	const op = "internal.repository.postgres.OrderRepository.Create"

	query, args, err := r.sq.Insert("orders").
		Columns("ref", "vendor_id", "customer_id", "guest_name", "guest_contact", "barcode", "total_price", "status").
		Values(o.Ref, o.VendorID, o.CustomerID, o.GuestName, o.GuestContact, o.Barcode, o.TotalPrice, o.Status).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: failed to build insert query: %w", op, err)
	}

	if err := tx.QueryRowxContext(ctx, query, args...).Scan(&o.ID, &o.CreatedAt); err != nil {
		if pqCode(err) == pqUniqueViolation {
			return fmt.Errorf("%s: %w: barcode already issued", op, apperrors.ErrConflict)
		}

		return fmt.Errorf("%s: failed to execute insert: %w", op, err)
	}

	items := r.sq.Insert("order_items").Columns("order_id", "product_id", "quantity", "price")
	for i := range o.Items {
		o.Items[i].OrderID = o.ID
		items = items.Values(o.ID, o.Items[i].ProductID, o.Items[i].Quantity, o.Items[i].Price)
	}

	query, args, err = items.ToSql()
	if err != nil {
		return fmt.Errorf("%s: failed to build items query: %w", op, err)
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%s: failed to insert items: %w", op, err)
	}

	return nil
}

func (r *OrderRepository) GetByRef(ctx context.Context, ref uuid.UUID) (*domain.Order, error) {
	const op = "internal.repository.postgres.OrderRepository.GetByRef"

	query, args, err := r.sq.Select(orderColumns...).
		From("orders").
		Where(sq.Eq{"ref": ref}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	var o domain.Order
	if err := r.db.GetContext(ctx, &o, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w: order %s", op, apperrors.ErrNotFound, ref)
		}

		return nil, fmt.Errorf("%s: failed to get order: %w", op, err)
	}

	orders := []domain.Order{o}
	if err := r.attachItems(ctx, orders); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &orders[0], nil
}

func (r *OrderRepository) ListByCustomer(ctx context.Context, customerID int64) ([]domain.Order, error) {
	const op = "internal.repository.postgres.OrderRepository.ListByCustomer"

	return r.list(ctx, op, sq.Eq{"customer_id": customerID})
}

func (r *OrderRepository) ListByVendor(ctx context.Context, vendorID int64) ([]domain.Order, error) {
	const op = "internal.repository.postgres.OrderRepository.ListByVendor"

	return r.list(ctx, op, sq.Eq{"vendor_id": vendorID})
}

func (r *OrderRepository) list(ctx context.Context, op string, where sq.Eq) ([]domain.Order, error) {
	query, args, err := r.sq.Select(orderColumns...).
		From("orders").
		Where(where).
		OrderBy("created_at DESC", "id DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	orders := []domain.Order{}
	if err := r.db.SelectContext(ctx, &orders, query, args...); err != nil {
		return nil, fmt.Errorf("%s: failed to execute query: %w", op, err)
	}

	if err := r.attachItems(ctx, orders); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return orders, nil
}

// attachItems loads the items of every order in one query.
func (r *OrderRepository) attachItems(ctx context.Context, orders []domain.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]int64, len(orders))
	byID := make(map[int64]*domain.Order, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
		orders[i].Items = []domain.OrderItem{}
		byID[orders[i].ID] = &orders[i]
	}

	query, args, err := r.sq.Select("oi.order_id", "oi.product_id", "p.name AS product_name", "oi.quantity", "oi.price").
		From("order_items oi").
		Join("products p ON p.id = oi.product_id").
		Where(sq.Eq{"oi.order_id": ids}).
		OrderBy("oi.order_id", "oi.id").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build items query: %w", err)
	}

	var items []domain.OrderItem
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return fmt.Errorf("failed to load items: %w", err)
	}

	for _, it := range items {
		if o, ok := byID[it.OrderID]; ok {
			o.Items = append(o.Items, it)
		}
	}

	return nil
}
