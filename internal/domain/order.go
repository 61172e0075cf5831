package domain

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const OrderReserved OrderStatus = "reserved"

// Vendor sells products for in-store pickup. The email only receives
// reservation alerts and is never shown to shoppers.
type Vendor struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"-"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type Product struct {
	ID          int64           `db:"id" json:"id"`
	VendorID    int64           `db:"vendor_id" json:"vendor_id"`
	VendorName  string          `db:"vendor_name" json:"vendor_name"`
	Name        string          `db:"name" json:"name"`
	Description string          `db:"description" json:"description"`
	Price       decimal.Decimal `db:"price" json:"price"`
	Stock       int             `db:"stock" json:"stock"`
	ImageURL    *string         `db:"image_url" json:"image_url,omitempty"`
	IsActive    bool            `db:"is_active" json:"is_active"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}

// Order is a pickup reservation with one vendor. Ref is the public id; the
// numeric id stays internal.
type Order struct {
	ID           int64           `db:"id" json:"-"`
	Ref          uuid.UUID       `db:"ref" json:"id"`
	VendorID     int64           `db:"vendor_id" json:"vendor_id"`
	CustomerID   *int64          `db:"customer_id" json:"customer_id,omitempty"`
	GuestName    *string         `db:"guest_name" json:"guest_name,omitempty"`
	GuestContact *string         `db:"guest_contact" json:"guest_contact,omitempty"`
	Barcode      string          `db:"barcode" json:"barcode"`
	TotalPrice   decimal.Decimal `db:"total_price" json:"total_price"`
	Status       OrderStatus     `db:"status" json:"status"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	Items        []OrderItem     `db:"-" json:"items"`
}

// OrderItem carries the unit price at reservation time.
type OrderItem struct {
	OrderID     int64           `db:"order_id" json:"-"`
	ProductID   int64           `db:"product_id" json:"product_id"`
	ProductName string          `db:"product_name" json:"product_name"`
	Quantity    int             `db:"quantity" json:"quantity"`
	Price       decimal.Decimal `db:"price" json:"price"`
}

// Total is the sum of price times quantity over items.
func (o *Order) Total() decimal.Decimal {
	total := decimal.Zero
	for _, it := range o.Items {
		total = total.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total
}

// OrderLine is one requested product in a reservation.
type OrderLine struct {
	ProductID int64
	Quantity  int
}

type NewOrder struct {
	VendorID     int64
	CustomerID   *int64
	GuestName    string
	GuestContact string
	Lines        []OrderLine
}

// BarcodeGenerator yields pickup tokens.
type BarcodeGenerator func() (string, error)

// NewBarcode returns 16 random hex characters.
func NewBarcode() (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("cannot generate barcode: %w", err)
	}

	return hex.EncodeToString(b), nil
}
