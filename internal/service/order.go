package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/AhmedB2023/ecommerce-backend/internal/apperrors"
	"github.com/AhmedB2023/ecommerce-backend/internal/domain"
	"github.com/AhmedB2023/ecommerce-backend/internal/events"
	"github.com/AhmedB2023/ecommerce-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

const searchLimit = 50

type NewVendor struct {
	Name  string
	Email string
}

type NewProduct struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
	ImageURL    string
}

// OrderService runs the storefront: vendors, their products and pickup
// reservations. Prices are always taken from the product rows, never from
// the caller.
type OrderService struct {
	BaseService
	products repository.ProductRepository
	orders   repository.OrderRepository
	barcodes domain.BarcodeGenerator
}

func NewOrderService(base BaseService, products repository.ProductRepository, orders repository.OrderRepository) *OrderService {
	return &OrderService{
		BaseService: base,
		products:    products,
		orders:      orders,
		barcodes:    domain.NewBarcode,
	}
}

func (s *OrderService) CreateVendor(ctx context.Context, in NewVendor) (*domain.Vendor, error) {
	const op = "internal.service.OrderService.CreateVendor"

	if err := firstMissing(field{"name", in.Name}, field{"email", in.Email}); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	v := &domain.Vendor{
		Name:  strings.TrimSpace(in.Name),
		Email: domain.NormalizeEmail(in.Email),
	}

	if err := s.products.CreateVendor(ctx, v); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("vendor created", slog.String("op", op), slog.Int64("vendor_id", v.ID))

	return v, nil
}

func (s *OrderService) VendorByName(ctx context.Context, name string) (*domain.Vendor, error) {
	const op = "internal.service.OrderService.VendorByName"

	v, err := s.products.GetVendorByName(ctx, strings.TrimSpace(name))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return v, nil
}

// Products lists active products. A zero vendorID lists every vendor.
func (s *OrderService) Products(ctx context.Context, vendorID int64) ([]domain.Product, error) {
	const op = "internal.service.OrderService.Products"

	products, err := s.products.ListActive(ctx, vendorID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return products, nil
}

func (s *OrderService) CreateProduct(ctx context.Context, vendorID int64, in NewProduct) (*domain.Product, error) {
	const op = "internal.service.OrderService.CreateProduct"

	if err := firstMissing(field{"name", in.Name}); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if in.Price.IsNegative() {
		return nil, fmt.Errorf("%s: %w", op, &apperrors.ValidationError{Field: "price", Rule: "gte"})
	}
	if in.Stock < 0 {
		return nil, fmt.Errorf("%s: %w", op, &apperrors.ValidationError{Field: "stock", Rule: "gte"})
	}

	v, err := s.products.GetVendor(ctx, vendorID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	p := &domain.Product{
		VendorID:    v.ID,
		VendorName:  v.Name,
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Price:       in.Price.Round(2),
		Stock:       in.Stock,
		ImageURL:    optional(in.ImageURL),
	}

	if err := s.products.CreateProduct(ctx, p); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("product created", slog.String("op", op), slog.Int64("product_id", p.ID), slog.Int64("vendor_id", v.ID))

	return p, nil
}

// DeleteProduct hides a product from listings and search. Past orders keep
// referring to it.
func (s *OrderService) DeleteProduct(ctx context.Context, vendorID, productID int64) (*domain.Product, error) {
	const op = "internal.service.OrderService.DeleteProduct"

	p, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if p.VendorID != vendorID {
		return nil, fmt.Errorf("%s: %w: product %d belongs to another vendor", op, apperrors.ErrForbidden, productID)
	}

	p, err = s.products.Deactivate(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("product deactivated", slog.String("op", op), slog.Int64("product_id", productID))

	return p, nil
}

// Search matches active product names. A blank term matches nothing.
func (s *OrderService) Search(ctx context.Context, term string) ([]domain.Product, error) {
	const op = "internal.service.OrderService.Search"

	term = strings.TrimSpace(term)
	if term == "" {
		return []domain.Product{}, nil
	}

	products, err := s.products.Search(ctx, term, searchLimit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return products, nil
}

// Reserve places a pickup order with one vendor and alerts the vendor by
// email. Duplicate lines for the same product are merged.
func (s *OrderService) Reserve(ctx context.Context, in domain.NewOrder) (*domain.Order, error) {
	const op = "internal.service.OrderService.Reserve"

	lines, err := mergeLines(in.Lines)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if in.VendorID <= 0 {
		return nil, fmt.Errorf("%s: %w", op, &apperrors.ValidationError{Field: "vendor_id", Rule: "required"})
	}
	if in.CustomerID == nil && strings.TrimSpace(in.GuestContact) == "" {
		return nil, fmt.Errorf("%s: %w", op, &apperrors.ValidationError{Field: "guest_contact", Rule: "required_without"})
	}

	vendor, err := s.products.GetVendor(ctx, in.VendorID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	barcode, err := s.barcodes()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	o := &domain.Order{
		Ref:          uuid.New(),
		VendorID:     vendor.ID,
		CustomerID:   in.CustomerID,
		GuestName:    optional(in.GuestName),
		GuestContact: optional(in.GuestContact),
		Barcode:      barcode,
		Status:       domain.OrderReserved,
	}

	err = s.transaction(ctx, op, func(tx *sqlx.Tx) error {
		ids := make([]int64, len(lines))
		for i, l := range lines {
			ids[i] = l.ProductID
		}

		products, err := s.products.LockActive(ctx, tx, vendor.ID, ids)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		byID := make(map[int64]domain.Product, len(products))
		for _, p := range products {
			byID[p.ID] = p
		}

		o.Items = make([]domain.OrderItem, 0, len(lines))
		for _, l := range lines {
			p, ok := byID[l.ProductID]
			if !ok {
				return fmt.Errorf("%s: %w", op, &apperrors.PreconditionError{
					Reason: fmt.Sprintf("product %d is not available from this vendor", l.ProductID),
				})
			}

			o.Items = append(o.Items, domain.OrderItem{
				ProductID:   p.ID,
				ProductName: p.Name,
				Quantity:    l.Quantity,
				Price:       p.Price,
			})
		}
		o.TotalPrice = o.Total()

		if err := s.orders.Create(ctx, tx, o); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		if err := s.notifier.Enqueue(ctx, tx, orderMessage(o, vendor)); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.committed(ctx, domain.EntityOrder, events.ChannelOrders, events.Event{
		Type:     events.TypeOrderReserved,
		EntityID: o.ID,
		To:       string(o.Status),
		Event:    "reserve",
		Payload:  map[string]any{"ref": o.Ref.String(), "vendor_id": o.VendorID},
	})

	s.log.Info("order reserved",
		slog.String("op", op),
		slog.String("order_ref", o.Ref.String()),
		slog.Int64("vendor_id", o.VendorID),
		slog.String("total", money(o.TotalPrice)),
	)

	return o, nil
}

func (s *OrderService) GetOrder(ctx context.Context, ref uuid.UUID) (*domain.Order, error) {
	const op = "internal.service.OrderService.GetOrder"

	o, err := s.orders.GetByRef(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return o, nil
}

func (s *OrderService) CustomerOrders(ctx context.Context, customerID int64) ([]domain.Order, error) {
	const op = "internal.service.OrderService.CustomerOrders"

	orders, err := s.orders.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return orders, nil
}

func (s *OrderService) VendorReservations(ctx context.Context, vendorID int64) ([]domain.Order, error) {
	const op = "internal.service.OrderService.VendorReservations"

	orders, err := s.orders.ListByVendor(ctx, vendorID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return orders, nil
}

func mergeLines(lines []domain.OrderLine) ([]domain.OrderLine, error) {
	if len(lines) == 0 {
		return nil, &apperrors.ValidationError{Field: "items", Rule: "min"}
	}

	merged := make([]domain.OrderLine, 0, len(lines))
	index := make(map[int64]int, len(lines))

	for _, l := range lines {
		if l.ProductID <= 0 {
			return nil, &apperrors.ValidationError{Field: "product_id", Rule: "gt"}
		}
		if l.Quantity <= 0 {
			return nil, &apperrors.ValidationError{Field: "quantity", Rule: "gt"}
		}

		if i, ok := index[l.ProductID]; ok {
			merged[i].Quantity += l.Quantity
			continue
		}

		index[l.ProductID] = len(merged)
		merged = append(merged, l)
	}

	return merged, nil
}
