package domain

import (
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

type RepairStatus string

const (
	RepairOpen                  RepairStatus = "open"
	RepairQuoted                RepairStatus = "quoted"
	RepairAccepted              RepairStatus = "accepted"
	RepairAwaitingDeposit       RepairStatus = "accepted_pending_deposit"
	RepairFinalPricePendingUser RepairStatus = "final_price_pending_user"
	RepairFinalPriceAccepted    RepairStatus = "final_price_accepted"
	RepairRejected              RepairStatus = "rejected"
	RepairCompleted             RepairStatus = "completed"
)

type CompletionStatus string

const (
	CompletionPending           CompletionStatus = "pending"
	CompletionProviderCompleted CompletionStatus = "provider_completed"
	CompletionUserConfirmed     CompletionStatus = "user_confirmed"
)

// Party roles returned by lookups.
const (
	RoleUser     = "user"
	RoleProvider = "provider"
)

// RepairRequest is a customer's request for a repair job together with its
// quote, payment references and payout state.
type RepairRequest struct {
	ID              int64          `db:"id" json:"id"`
	JobCode         string         `db:"job_code" json:"job_code"`
	Description     string         `db:"description" json:"description"`
	ImageURLs       pq.StringArray `db:"image_urls" json:"image_urls"`
	CustomerAddress string         `db:"customer_address" json:"customer_address"`
	PreferredTime   string         `db:"preferred_time" json:"preferred_time"`
	RequesterEmail  string         `db:"requester_email" json:"requester_email"`

	ProviderEmail     *string `db:"provider_email" json:"provider_email,omitempty"`
	ProviderFirstName *string `db:"provider_first_name" json:"provider_first_name,omitempty"`
	ProviderLastName  *string `db:"provider_last_name" json:"provider_last_name,omitempty"`
	ProviderCity      *string `db:"provider_city" json:"provider_city,omitempty"`

	PriceQuote            decimal.NullDecimal `db:"price_quote" json:"price_quote"`
	FinalPrice            decimal.NullDecimal `db:"final_price" json:"final_price"`
	MaterialsCost         decimal.NullDecimal `db:"materials_cost" json:"materials_cost"`
	DepositAmount         decimal.Decimal     `db:"deposit_amount" json:"deposit_amount"`
	PlatformFeePercent    int                 `db:"platform_fee_percent" json:"platform_fee_percent"`
	ProviderPayoutPercent int                 `db:"provider_payout_percent" json:"provider_payout_percent"`

	StripeCustomerID        *string         `db:"stripe_customer_id" json:"-"`
	PaymentMethodID         *string         `db:"payment_method_id" json:"-"`
	PaymentIntentID         *string         `db:"payment_intent_id" json:"-"`
	FinalPaymentIntentID    *string         `db:"final_payment_intent_id" json:"-"`
	ProviderStripeAccountID *string         `db:"provider_stripe_account_id" json:"-"`
	TransferredOnCharge     decimal.Decimal `db:"transferred_on_charge" json:"-"`
	PayoutTransferID        *string         `db:"payout_transfer_id" json:"-"`

	Status           RepairStatus     `db:"status" json:"status"`
	CompletionStatus CompletionStatus `db:"completion_status" json:"completion_status"`
	PayoutReleasedAt *time.Time       `db:"payout_released_at" json:"payout_released_at,omitempty"`
	CreatedAt        time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time        `db:"updated_at" json:"updated_at"`
}

// RepairListing is the view of a job shown to callers that have not proven
// they are a party to it. It carries no job code, no requester email and no
// payment references.
type RepairListing struct {
	ID                int64               `json:"id"`
	Description       string              `json:"description"`
	ImageURLs         []string            `json:"image_urls"`
	CustomerAddress   string              `json:"customer_address"`
	PreferredTime     string              `json:"preferred_time"`
	ProviderFirstName *string             `json:"provider_first_name,omitempty"`
	ProviderCity      *string             `json:"provider_city,omitempty"`
	PriceQuote        decimal.NullDecimal `json:"price_quote"`
	DepositAmount     decimal.Decimal     `json:"deposit_amount"`
	Status            RepairStatus        `json:"status"`
	CompletionStatus  CompletionStatus    `json:"completion_status"`
	CreatedAt         time.Time           `json:"created_at"`
}

func (r *RepairRequest) Listing() RepairListing {
	images := []string(r.ImageURLs)
	if images == nil {
		images = []string{}
	}

	return RepairListing{
		ID:                r.ID,
		Description:       r.Description,
		ImageURLs:         images,
		CustomerAddress:   r.CustomerAddress,
		PreferredTime:     r.PreferredTime,
		ProviderFirstName: r.ProviderFirstName,
		ProviderCity:      r.ProviderCity,
		PriceQuote:        r.PriceQuote,
		DepositAmount:     r.DepositAmount,
		Status:            r.Status,
		CompletionStatus:  r.CompletionStatus,
		CreatedAt:         r.CreatedAt,
	}
}

// NewRepairRequest is the submission payload accepted by the lifecycle.
type NewRepairRequest struct {
	Description     string
	ImageURLs       []string
	CustomerAddress string
	PreferredTime   string
	RequesterEmail  string
}

// ProviderQuote identifies the provider quoting a job.
type ProviderQuote struct {
	Email     string
	FirstName string
	LastName  string
	City      string
	Price     decimal.Decimal
}

func (r *RepairRequest) State() RepairState {
	return RepairState{Status: r.Status, Completion: r.CompletionStatus}
}

func (r *RepairRequest) SetState(s RepairState) {
	r.Status = s.Status
	r.CompletionStatus = s.Completion
}

// RoleOf matches email case-insensitively against the requester and the
// assigned provider. It returns "" when neither matches.
func (r *RepairRequest) RoleOf(email string) string {
	switch {
	case SameEmail(email, r.RequesterEmail):
		return RoleUser
	case r.ProviderEmail != nil && SameEmail(email, *r.ProviderEmail):
		return RoleProvider
	default:
		return ""
	}
}

func (r *RepairRequest) IsProvider(email string) bool {
	return r.ProviderEmail != nil && SameEmail(email, *r.ProviderEmail)
}

func (r *RepairRequest) IsRequester(email string) bool {
	return SameEmail(email, r.RequesterEmail)
}

func (r *RepairRequest) ProviderName() string {
	return strings.TrimSpace(deref(r.ProviderFirstName) + " " + deref(r.ProviderLastName))
}

func (r *RepairRequest) HasPaymentMethod() bool {
	return r.PaymentMethodID != nil && *r.PaymentMethodID != ""
}

func (r *RepairRequest) ConnectedAccount() string {
	return deref(r.ProviderStripeAccountID)
}

// ProviderAccount is the provider's connected payment account, keyed by
// lower-cased email and shared by all of the provider's jobs.
type ProviderAccount struct {
	ProviderEmail   string    `db:"provider_email" json:"provider_email"`
	StripeAccountID string    `db:"stripe_account_id" json:"stripe_account_id"`
	TransfersActive bool      `db:"transfers_active" json:"transfers_active"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// Soft payout failure reasons.
const (
	PayoutCompletionNotConfirmed = "completion_not_confirmed"
	PayoutNoConnectedAccount     = "no_connected_account"
	PayoutTransfersInactive      = "transfers_inactive"
	PayoutAlreadyReleased        = "already_released"
	PayoutNothingToTransfer      = "nothing_to_transfer"
)

// PayoutResult reports a payout attempt. Unmet preconditions are reported
// through Success=false and Reason rather than as errors.
type PayoutResult struct {
	RepairID   int64           `json:"repair_id"`
	Success    bool            `json:"success"`
	Reason     string          `json:"reason,omitempty"`
	Amount     decimal.Decimal `json:"amount"`
	TransferID string          `json:"transfer_id,omitempty"`
}

func SameEmail(a, b string) bool {
	return a != "" && strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
