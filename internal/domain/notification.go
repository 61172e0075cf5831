package domain

import (
	"fmt"
	"time"
)

type NotificationKind string

const (
	NotifyRepairSubmitted       NotificationKind = "repair_submitted"
	NotifyRepairQuoted          NotificationKind = "repair_quoted"
	NotifyRepairQuoteSent       NotificationKind = "repair_quote_sent"
	NotifyRepairAccepted        NotificationKind = "repair_accepted"
	NotifyRepairRejected        NotificationKind = "repair_rejected"
	NotifyProviderOnboarding    NotificationKind = "provider_onboarding"
	NotifyDepositPaid           NotificationKind = "deposit_paid"
	NotifyCompletionNeeded      NotificationKind = "completion_needed"
	NotifyPriceRevised          NotificationKind = "price_revised"
	NotifyFinalChargeReceipt    NotificationKind = "final_charge_receipt"
	NotifyJobConfirmed          NotificationKind = "job_confirmed"
	NotifyPayoutReleased        NotificationKind = "payout_released"
	NotifyReservationSubmitted  NotificationKind = "reservation_submitted"
	NotifyDocumentsRequested    NotificationKind = "documents_requested"
	NotifyDocumentsSubmitted    NotificationKind = "documents_submitted"
	NotifyReservationAccepted   NotificationKind = "reservation_accepted"
	NotifyReservationRejected   NotificationKind = "reservation_rejected"
	NotifyReservationPaid       NotificationKind = "reservation_paid"
	NotifyReservationPaidTenant NotificationKind = "reservation_paid_tenant"
	NotifyReservationConfirmed  NotificationKind = "reservation_confirmed"
	NotifyOrderReserved         NotificationKind = "order_reserved"
)

const (
	EntityRepair      = "repair"
	EntityReservation = "reservation"
	EntityOrder       = "order"
)

// Notification is a single outbound email, persisted in the outbox until
// the dispatcher delivers it.
type Notification struct {
	ID         int64            `db:"id"`
	Recipient  string           `db:"recipient"`
	Subject    string           `db:"subject"`
	BodyHTML   string           `db:"body_html"`
	Kind       NotificationKind `db:"kind"`
	EntityType string           `db:"entity_type"`
	EntityID   int64            `db:"entity_id"`
	DedupKey   string           `db:"dedup_key"`
	Attempts   int              `db:"attempts"`
	LastError  *string          `db:"last_error"`
	SentAt     *time.Time       `db:"sent_at"`
	CreatedAt  time.Time        `db:"created_at"`
}

// DedupKeyFor builds "<kind>:<entity>:<id>[:suffix]".
func DedupKeyFor(kind NotificationKind, entity string, id int64, suffix string) string {
	key := fmt.Sprintf("%s:%s:%d", kind, entity, id)
	if suffix != "" {
		key += ":" + suffix
	}
	return key
}
