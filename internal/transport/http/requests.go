package http

import (
	"github.com/AhmedB2023/ecommerce-backend/internal/domain"
	"github.com/shopspring/decimal"
)

type submitRepairRequest struct {
	Description     string   `json:"description" validate:"required,max=4000"`
	ImageURLs       []string `json:"image_urls" validate:"omitempty,max=10,dive,url"`
	CustomerAddress string   `json:"customer_address" validate:"required,max=500"`
	PreferredTime   string   `json:"preferred_time" validate:"required,max=200"`
	RequesterEmail  string   `json:"requester_email" validate:"required,email"`
}

type quoteRequest struct {
	ProviderEmail string          `json:"provider_email" validate:"required,email"`
	FirstName     string          `json:"first_name" validate:"required,max=100"`
	LastName      string          `json:"last_name" validate:"required,max=100"`
	City          string          `json:"city" validate:"omitempty,max=100"`
	PriceQuote    decimal.Decimal `json:"price_quote" validate:"gt=0"`
}

type savePaymentMethodRequest struct {
	RepairID        int64  `json:"repair_id" validate:"required,gt=0"`
	PaymentIntentID string `json:"payment_intent_id" validate:"required,max=255"`
}

type markCompletedRequest struct {
	JobCode    string          `json:"job_code" validate:"required,job_code"`
	Email      string          `json:"email" validate:"required,email"`
	FinalPrice decimal.Decimal `json:"final_price" validate:"gt=0"`
}

type revisePriceRequest struct {
	JobCode       string              `json:"job_code" validate:"required,job_code"`
	Email         string              `json:"email" validate:"required,email"`
	FinalPrice    decimal.Decimal     `json:"final_price" validate:"gt=0"`
	MaterialsCost decimal.NullDecimal `json:"materials_cost" validate:"omitempty,gte=0"`
}

type jobCodeRequest struct {
	JobCode string `json:"job_code" validate:"required,job_code"`
	Email   string `json:"email" validate:"required,email"`
}

type releasePaymentRequest struct {
	RepairID int64 `json:"repair_id" validate:"required,gt=0"`
}

type createPropertyRequest struct {
	LandlordEmail string          `json:"landlord_email" validate:"required,email"`
	Title         string          `json:"title" validate:"required,max=200"`
	Address       string          `json:"address" validate:"required,max=500"`
	NightlyPrice  decimal.Decimal `json:"nightly_price" validate:"gt=0"`
}

type availabilityRangeRequest struct {
	StartDate string `json:"start_date" validate:"required,iso_date"`
	EndDate   string `json:"end_date" validate:"omitempty,iso_date"`
	// IsAvailable defaults to true when omitted.
	IsAvailable *bool  `json:"is_available"`
	Note        string `json:"note" validate:"omitempty,max=500"`
}

type submitReservationRequest struct {
	PropertyID  int64           `json:"property_id" validate:"required,gt=0"`
	TenantEmail string          `json:"tenant_email" validate:"required,email"`
	TenantName  string          `json:"tenant_name" validate:"required,max=200"`
	StartDate   string          `json:"start_date" validate:"required,iso_date"`
	EndDate     string          `json:"end_date" validate:"required,iso_date"`
	OfferPrice  decimal.Decimal `json:"offer_price" validate:"gt=0"`
	Message     string          `json:"message" validate:"omitempty,max=2000"`
}

type reservationCheckRequest struct {
	ReservationID int64  `json:"reservation_id" validate:"required,gt=0"`
	Email         string `json:"email" validate:"required,email"`
}

type partyRequest struct {
	Email string `json:"email" validate:"required,email"`
	Note  string `json:"note" validate:"omitempty,max=2000"`
}

type documentsRequest struct {
	Email     string   `json:"email" validate:"required,email"`
	Documents []string `json:"documents" validate:"required,min=1,max=10,dive,required,max=500"`
}

type identityRequest struct {
	Email     string `json:"email" validate:"required,email"`
	IDFront   string `json:"id_front_ref" validate:"required,max=500"`
	IDBack    string `json:"id_back_ref" validate:"omitempty,max=500"`
	SelfieRef string `json:"selfie_ref" validate:"omitempty,max=500"`
}

type createVendorRequest struct {
	Name  string `json:"name" validate:"required,max=100"`
	Email string `json:"email" validate:"required,email"`
}

type createProductRequest struct {
	Name        string          `json:"name" validate:"required,max=100"`
	Description string          `json:"description" validate:"omitempty,max=2000"`
	Price       decimal.Decimal `json:"price" validate:"gte=0"`
	Stock       int             `json:"stock" validate:"gte=0"`
	ImageURL    string          `json:"image_url" validate:"omitempty,url,max=2048"`
}

type orderItemRequest struct {
	ProductID int64 `json:"product_id"`
	// ID is the older spelling of ProductID.
	ID       int64 `json:"id"`
	Quantity int   `json:"quantity"`
}

// reserveOrderRequest accepts both the snake_case and the camelCase field
// names storefront clients send.
type reserveOrderRequest struct {
	VendorID        int64              `json:"vendor_id" validate:"required,gt=0"`
	CustomerID      *int64             `json:"customer_id" validate:"omitempty,gt=0"`
	UserID          *int64             `json:"userId" validate:"omitempty,gt=0"`
	Items           []orderItemRequest `json:"items" validate:"max=50"`
	Products        []orderItemRequest `json:"products" validate:"max=50"`
	GuestName       string             `json:"guest_name" validate:"omitempty,max=200"`
	GuestNameAlt    string             `json:"guestName" validate:"omitempty,max=200"`
	GuestContact    string             `json:"guest_contact" validate:"omitempty,max=200"`
	GuestContactAlt string             `json:"guestContact" validate:"omitempty,max=200"`
}

func (r *reserveOrderRequest) order() domain.NewOrder {
	items := r.Items
	if len(items) == 0 {
		items = r.Products
	}

	lines := make([]domain.OrderLine, 0, len(items))
	for _, it := range items {
		id := it.ProductID
		if id == 0 {
			id = it.ID
		}
		lines = append(lines, domain.OrderLine{ProductID: id, Quantity: it.Quantity})
	}

	customer := r.CustomerID
	if customer == nil {
		customer = r.UserID
	}

	return domain.NewOrder{
		VendorID:     r.VendorID,
		CustomerID:   customer,
		GuestName:    firstNonEmpty(r.GuestName, r.GuestNameAlt),
		GuestContact: firstNonEmpty(r.GuestContact, r.GuestContactAlt),
		Lines:        lines,
	}
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
