package domain

import (
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// DateLayout is the wire format of calendar days.
const DateLayout = "2006-01-02"

type ReservationStatus string

const (
	ReservationPending             ReservationStatus = "pending"
	ReservationDocumentsRequested  ReservationStatus = "documents_requested"
	ReservationPendingVerification ReservationStatus = "accepted_pending_verification"
	ReservationAccepted            ReservationStatus = "accepted"
	ReservationAwaitingPayment     ReservationStatus = "awaiting_payment"
	ReservationPaid                ReservationStatus = "paid"
	ReservationConfirmed           ReservationStatus = "confirmed"
	ReservationRejected            ReservationStatus = "rejected"
)

const (
	RoleTenant   = "tenant"
	RoleLandlord = "landlord"
)

// BlockingReservationStatuses hold their dates against other offers.
var BlockingReservationStatuses = []ReservationStatus{
	ReservationPending,
	ReservationDocumentsRequested,
	ReservationPendingVerification,
	ReservationAccepted,
	ReservationAwaitingPayment,
	ReservationPaid,
	ReservationConfirmed,
}

type Property struct {
	ID            int64           `db:"id" json:"id"`
	LandlordEmail string          `db:"landlord_email" json:"landlord_email"`
	Title         string          `db:"title" json:"title"`
	Address       string          `db:"address" json:"address"`
	NightlyPrice  decimal.Decimal `db:"nightly_price" json:"nightly_price"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}

// AvailabilityRange is the single bookable window of a property. A nil
// EndDate leaves the range open-ended.
type AvailabilityRange struct {
	PropertyID  int64      `db:"property_id" json:"property_id"`
	StartDate   time.Time  `db:"start_date" json:"start_date"`
	EndDate     *time.Time `db:"end_date" json:"end_date,omitempty"`
	IsAvailable bool       `db:"is_available" json:"is_available"`
	Note        *string    `db:"note" json:"note,omitempty"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// Covers reports whether day falls inside the range.
func (a *AvailabilityRange) Covers(day time.Time) bool {
	if day.Before(a.StartDate) {
		return false
	}
	return a.EndDate == nil || !day.After(*a.EndDate)
}

type DayAvailability struct {
	Day    string `db:"day" json:"day"`
	IsFree bool   `db:"is_free" json:"is_free"`
}

type Reservation struct {
	ID           int64             `db:"id" json:"id"`
	PropertyID   int64             `db:"property_id" json:"property_id"`
	TenantEmail  string            `db:"tenant_email" json:"tenant_email"`
	TenantName   string            `db:"tenant_name" json:"tenant_name"`
	StartDate    time.Time         `db:"start_date" json:"start_date"`
	EndDate      time.Time         `db:"end_date" json:"end_date"`
	OfferPrice   decimal.Decimal   `db:"offer_price" json:"offer_price"`
	Message      *string           `db:"message" json:"message,omitempty"`
	Status       ReservationStatus `db:"status" json:"status"`
	LandlordNote *string           `db:"landlord_note" json:"landlord_note,omitempty"`

	IDFrontRef   *string        `db:"id_front_ref" json:"-"`
	IDBackRef    *string        `db:"id_back_ref" json:"-"`
	SelfieRef    *string        `db:"selfie_ref" json:"-"`
	Documents    pq.StringArray `db:"documents" json:"-"`
	IDVerifiedAt *time.Time     `db:"id_verified_at" json:"id_verified_at,omitempty"`

	CheckoutSessionID *string    `db:"checkout_session_id" json:"-"`
	CheckoutURL       *string    `db:"checkout_url" json:"checkout_url,omitempty"`
	PaidAt            *time.Time `db:"paid_at" json:"paid_at,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`

	// LandlordEmail is joined from the property and not stored on the row.
	LandlordEmail string `db:"landlord_email" json:"-"`
}

type NewReservation struct {
	PropertyID  int64
	TenantEmail string
	TenantName  string
	StartDate   time.Time
	EndDate     time.Time
	OfferPrice  decimal.Decimal
	Message     string
}

// IdentityDocuments are references to files already uploaded elsewhere.
type IdentityDocuments struct {
	FrontRef  string
	BackRef   string
	SelfieRef string
}

func (r *Reservation) RoleOf(email string) string {
	switch {
	case SameEmail(email, r.TenantEmail):
		return RoleTenant
	case SameEmail(email, r.LandlordEmail):
		return RoleLandlord
	default:
		return ""
	}
}

// Nights is the number of nights between the start and end dates, at least
// one.
func (r *Reservation) Nights() int64 {
	n := int64(r.EndDate.Sub(r.StartDate).Hours() / 24)
	if n < 1 {
		return 1
	}
	return n
}
