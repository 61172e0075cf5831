// Package repository defines the persistence contracts used by the service
// layer. Methods taking a *sqlx.Tx are expected to run inside the caller's
// transaction; the others use the pool directly.
package repository

import (
	"context"
	"time"

	"github.com/AhmedB2023/ecommerce-backend/internal/domain"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// RepairQueryRepository holds read-only repair request lookups.
type RepairQueryRepository interface {
	// GetByID returns apperrors.ErrNotFound when no request has the id.
	GetByID(ctx context.Context, id int64) (*domain.RepairRequest, error)

	// GetByJobCode returns apperrors.ErrNotFound when no request has the code.
	GetByJobCode(ctx context.Context, jobCode string) (*domain.RepairRequest, error)

	// ListByStatus returns requests in the given status, newest first.
	ListByStatus(ctx context.Context, status domain.RepairStatus) ([]domain.RepairRequest, error)

	// ListAwaitingPayout returns confirmed, not yet paid out requests routed to
	// the connected account.
	ListAwaitingPayout(ctx context.Context, accountID string) ([]domain.RepairRequest, error)
}

// RepairCommandRepository holds the write side of repair requests.
type RepairCommandRepository interface {
	// Create inserts the request. It returns apperrors.ErrJobCodeTaken when
	// the job code collides with an existing one; the transaction stays usable.
	Create(ctx context.Context, tx *sqlx.Tx, r *domain.RepairRequest) error

	// GetByIDWithLock reads the request with "FOR UPDATE".
	GetByIDWithLock(ctx context.Context, tx *sqlx.Tx, id int64) (*domain.RepairRequest, error)

	// Update persists every mutable column of r.
	Update(ctx context.Context, tx *sqlx.Tx, r *domain.RepairRequest) error

	// ClaimPayout atomically marks the payout as released when it was not
	// released yet and the completion is confirmed. claimed is false when
	// another caller got there first.
	ClaimPayout(ctx context.Context, id int64, at time.Time) (r *domain.RepairRequest, claimed bool, err error)

	// ReleasePayoutClaim undoes a claim whose transfer failed.
	ReleasePayoutClaim(ctx context.Context, id int64) error

	SetPayoutTransfer(ctx context.Context, tx *sqlx.Tx, id int64, transferID string) error
}

type ProviderAccountRepository interface {
	// GetByEmail returns apperrors.ErrNotFound when the provider has no account.
	GetByEmail(ctx context.Context, email string) (*domain.ProviderAccount, error)

	GetByAccountID(ctx context.Context, accountID string) (*domain.ProviderAccount, error)

	// Insert stores the account unless the email already has one. inserted
	// reports whether this call won.
	Insert(ctx context.Context, account *domain.ProviderAccount) (inserted bool, err error)

	SetTransfersActive(ctx context.Context, accountID string, active bool) error
}

type PropertyRepository interface {
	CreateProperty(ctx context.Context, p *domain.Property) error
	GetProperty(ctx context.Context, id int64) (*domain.Property, error)
	GetPropertyWithLock(ctx context.Context, tx *sqlx.Tx, id int64) (*domain.Property, error)

	UpsertAvailability(ctx context.Context, a *domain.AvailabilityRange) error

	// GetAvailability returns apperrors.ErrNotFound when the property has no range.
	GetAvailability(ctx context.Context, propertyID int64) (*domain.AvailabilityRange, error)

	// DayAvailability expands [from, to] into days merged with the range and
	// with reservations in a blocking status.
	DayAvailability(ctx context.Context, propertyID int64, from, to time.Time) ([]domain.DayAvailability, error)
}

type ReservationRepository interface {
	Create(ctx context.Context, tx *sqlx.Tx, r *domain.Reservation) error

	// HasOverlap reports whether a blocking reservation intersects [from, to].
	HasOverlap(ctx context.Context, tx *sqlx.Tx, propertyID int64, from, to time.Time) (bool, error)

	GetByID(ctx context.Context, id int64) (*domain.Reservation, error)
	GetByIDWithLock(ctx context.Context, tx *sqlx.Tx, id int64) (*domain.Reservation, error)
	GetByCheckoutSession(ctx context.Context, sessionID string) (*domain.Reservation, error)

	Update(ctx context.Context, tx *sqlx.Tx, r *domain.Reservation) error
}

type ProductRepository interface {
	// CreateVendor returns apperrors.ErrAlreadyExists when the name is taken.
	CreateVendor(ctx context.Context, v *domain.Vendor) error
	GetVendor(ctx context.Context, id int64) (*domain.Vendor, error)
	GetVendorByName(ctx context.Context, name string) (*domain.Vendor, error)

	// CreateProduct returns apperrors.ErrNotFound when the vendor is unknown.
	CreateProduct(ctx context.Context, p *domain.Product) error
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)

	// ListActive returns active products, newest first. A zero vendorID
	// lists every vendor.
	ListActive(ctx context.Context, vendorID int64) ([]domain.Product, error)

	// Search matches active product names case-insensitively.
	Search(ctx context.Context, term string, limit int) ([]domain.Product, error)

	// Deactivate hides an active product. It returns apperrors.ErrNotFound
	// when the product is unknown or already inactive.
	Deactivate(ctx context.Context, id int64) (*domain.Product, error)

	// LockActive reads the vendor's active products among ids with
	// "FOR SHARE". Missing or inactive ids are left out.
	LockActive(ctx context.Context, tx *sqlx.Tx, vendorID int64, ids []int64) ([]domain.Product, error)
}

type OrderRepository interface {
	// Create inserts the order and its items. It returns
	// apperrors.ErrConflict when the barcode is already in use.
	Create(ctx context.Context, tx *sqlx.Tx, o *domain.Order) error

	// GetByRef loads the order with its items.
	GetByRef(ctx context.Context, ref uuid.UUID) (*domain.Order, error)

	// ListByCustomer and ListByVendor return orders with items, newest first.
	ListByCustomer(ctx context.Context, customerID int64) ([]domain.Order, error)
	ListByVendor(ctx context.Context, vendorID int64) ([]domain.Order, error)
}

// OutboxRepository stores pending email notifications.
type OutboxRepository interface {
	// Enqueue inserts n unless a row with the same dedup key exists.
	Enqueue(ctx context.Context, tx *sqlx.Tx, n *domain.Notification) error

	// ClaimPending leases up to limit unsent rows that have been tried fewer
	// than maxAttempts times until the given time. Rows leased by another
	// dispatcher are skipped.
	ClaimPending(ctx context.Context, tx *sqlx.Tx, limit, maxAttempts int, now, until time.Time) ([]domain.Notification, error)

	MarkSent(ctx context.Context, tx *sqlx.Tx, id int64, at time.Time) error
	MarkFailed(ctx context.Context, tx *sqlx.Tx, id int64, reason string) error
}
