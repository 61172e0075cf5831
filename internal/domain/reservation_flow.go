package domain

import (
	"github.com/AhmedB2023/ecommerce-backend/internal/workflow"
)

type ReservationEvent string

const (
	ReservationEventSubmit           ReservationEvent = "submit"
	ReservationEventRequestDocuments ReservationEvent = "request_documents"
	ReservationEventSubmitDocuments  ReservationEvent = "submit_documents"
	ReservationEventAccept           ReservationEvent = "accept"
	ReservationEventReject           ReservationEvent = "reject"
	ReservationEventVerifyIdentity   ReservationEvent = "verify_identity"
	ReservationEventStartCheckout    ReservationEvent = "start_checkout"
	ReservationEventPay              ReservationEvent = "pay"
	ReservationEventConfirm          ReservationEvent = "confirm"
)

type reservationTransition = workflow.Transition[ReservationStatus, ReservationEvent]

// ReservationFlow is the rental offer transition table. The empty status is
// the state before submission.
var ReservationFlow = workflow.New("reservation",
	reservationTransition{From: "", Event: ReservationEventSubmit, To: ReservationPending},

	reservationTransition{From: ReservationPending, Event: ReservationEventRequestDocuments, To: ReservationDocumentsRequested},
	reservationTransition{From: ReservationDocumentsRequested, Event: ReservationEventSubmitDocuments, To: ReservationPending},

	reservationTransition{From: ReservationPending, Event: ReservationEventAccept, To: ReservationPendingVerification},

	reservationTransition{From: ReservationPending, Event: ReservationEventReject, To: ReservationRejected},
	reservationTransition{From: ReservationDocumentsRequested, Event: ReservationEventReject, To: ReservationRejected},
	reservationTransition{From: ReservationPendingVerification, Event: ReservationEventReject, To: ReservationRejected},

	reservationTransition{From: ReservationPendingVerification, Event: ReservationEventVerifyIdentity, To: ReservationAccepted},

	reservationTransition{From: ReservationAccepted, Event: ReservationEventStartCheckout, To: ReservationAwaitingPayment},
	reservationTransition{From: ReservationAwaitingPayment, Event: ReservationEventStartCheckout, To: ReservationAwaitingPayment},

	reservationTransition{From: ReservationAwaitingPayment, Event: ReservationEventPay, To: ReservationPaid},
	reservationTransition{From: ReservationPaid, Event: ReservationEventConfirm, To: ReservationConfirmed},
)
