// Package payment defines the payment-provider port used by the service
// layer. The stripe subpackage implements it.
package payment

import (
	"context"

	"github.com/shopspring/decimal"
)

// Event types the service reacts to.
const (
	EventPaymentIntentSucceeded = "payment_intent.succeeded"
	EventCheckoutCompleted      = "checkout.session.completed"
	EventAccountUpdated         = "account.updated"
)

// Metadata keys written on provider objects.
const (
	MetaKind          = "kind"
	MetaRepairID      = "repair_id"
	MetaJobCode       = "job_code"
	MetaReservationID = "reservation_id"

	KindDeposit     = "deposit"
	KindFinalCharge = "final_charge"
	KindPayout      = "payout"
	KindRental      = "rental"
)

// IntentSucceeded is the only payment intent status that means the money
// was captured.
const IntentSucceeded = "succeeded"

// EventSource selects the signing secret used to verify a webhook.
type EventSource string

const (
	SourcePlatform  EventSource = "platform"
	SourceConnected EventSource = "connected"
)

type DepositRequest struct {
	IdempotencyKey string
	CustomerID     string
	Amount         decimal.Decimal
	Metadata       map[string]string
}

type DepositIntent struct {
	ID           string
	ClientSecret string
}

type PaymentIntent struct {
	ID              string
	Status          string
	CustomerID      string
	PaymentMethodID string
	Metadata        map[string]string
}

// ChargeRequest is an off-session charge against a saved payment method.
// When Destination is set the charge is routed to that connected account
// minus ApplicationFee.
type ChargeRequest struct {
	IdempotencyKey  string
	CustomerID      string
	PaymentMethodID string
	Amount          decimal.Decimal
	ApplicationFee  decimal.Decimal
	Destination     string
	Description     string
	Metadata        map[string]string
}

type ConnectedAccount struct {
	ID              string
	TransfersActive bool
}

type TransferRequest struct {
	IdempotencyKey string
	Destination    string
	Amount         decimal.Decimal
	Metadata       map[string]string
}

type CheckoutRequest struct {
	IdempotencyKey string
	CustomerEmail  string
	ProductName    string
	Amount         decimal.Decimal
	SuccessURL     string
	CancelURL      string
	Metadata       map[string]string
}

type CheckoutSession struct {
	ID            string
	URL           string
	PaymentStatus string
	Metadata      map[string]string
}

// Event is a verified webhook event. Exactly one of the object fields is
// set, matching Type.
type Event struct {
	ID      string
	Type    string
	Account string

	PaymentIntent    *PaymentIntent
	CheckoutSession  *CheckoutSession
	ConnectedAccount *ConnectedAccount
}

// Provider is the payment provider port. Calls that create objects take an
// idempotency key so retries collapse into a single provider object.
type Provider interface {
	CreateCustomer(ctx context.Context, idempotencyKey, email string) (string, error)
	CreateDepositIntent(ctx context.Context, req DepositRequest) (*DepositIntent, error)
	GetPaymentIntent(ctx context.Context, id string) (*PaymentIntent, error)
	ChargeOffSession(ctx context.Context, req ChargeRequest) (*PaymentIntent, error)

	CreateConnectedAccount(ctx context.Context, idempotencyKey, email string) (*ConnectedAccount, error)
	CreateOnboardingLink(ctx context.Context, accountID, refreshURL, returnURL string) (string, error)
	TransfersActive(ctx context.Context, accountID string) (bool, error)
	Transfer(ctx context.Context, req TransferRequest) (string, error)

	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)

	// ParseEvent verifies the signature header against the secret of source
	// and decodes the event. Bad signatures wrap apperrors.ErrInvalidRequest.
	ParseEvent(payload []byte, signature string, source EventSource) (*Event, error)
}
