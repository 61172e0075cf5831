package domain

import (
	"github.com/AhmedB2023/ecommerce-backend/internal/workflow"
)

// RepairState combines the request-level status with the completion
// dimension. The zero value is the state before submission.
type RepairState struct {
	Status     RepairStatus
	Completion CompletionStatus
}

func (s RepairState) String() string {
	if s.Status == "" {
		return "none"
	}
	return string(s.Status) + "/" + string(s.Completion)
}

type RepairEvent string

const (
	RepairEventSubmit        RepairEvent = "submit"
	RepairEventQuote         RepairEvent = "quote"
	RepairEventAccept        RepairEvent = "accept"
	RepairEventReject        RepairEvent = "reject"
	RepairEventStartDeposit  RepairEvent = "start_deposit"
	RepairEventMarkCompleted RepairEvent = "mark_completed"
	RepairEventRevisePrice   RepairEvent = "revise_price"
	RepairEventConfirm       RepairEvent = "confirm"
	RepairEventReleasePayout RepairEvent = "release_payout"
)

// RepairFlow is the repair job transition table.
var RepairFlow = workflow.New("repair", repairTransitions()...)

func repairTransitions() []workflow.Transition[RepairState, RepairEvent] {
	type tr = workflow.Transition[RepairState, RepairEvent]

	st := func(s RepairStatus, c CompletionStatus) RepairState {
		return RepairState{Status: s, Completion: c}
	}

	var out []tr
	add := func(from RepairState, e RepairEvent, to RepairState) {
		out = append(out, tr{From: from, Event: e, To: to})
	}

	add(RepairState{}, RepairEventSubmit, st(RepairOpen, CompletionPending))

	add(st(RepairOpen, CompletionPending), RepairEventQuote, st(RepairQuoted, CompletionPending))
	add(st(RepairQuoted, CompletionPending), RepairEventQuote, st(RepairQuoted, CompletionPending))

	add(st(RepairQuoted, CompletionPending), RepairEventAccept, st(RepairAccepted, CompletionPending))
	add(st(RepairQuoted, CompletionPending), RepairEventReject, st(RepairRejected, CompletionPending))

	for _, c := range []CompletionStatus{CompletionPending, CompletionProviderCompleted} {
		add(st(RepairAccepted, c), RepairEventReject, st(RepairRejected, c))
		add(st(RepairFinalPricePendingUser, c), RepairEventAccept, st(RepairFinalPriceAccepted, c))
		add(st(RepairFinalPricePendingUser, c), RepairEventReject, st(RepairRejected, c))
	}

	for _, s := range []RepairStatus{RepairAccepted, RepairAwaitingDeposit, RepairFinalPriceAccepted} {
		add(st(s, CompletionPending), RepairEventStartDeposit, st(RepairAwaitingDeposit, CompletionPending))

		add(st(s, CompletionPending), RepairEventMarkCompleted, st(s, CompletionProviderCompleted))
		add(st(s, CompletionProviderCompleted), RepairEventMarkCompleted, st(s, CompletionProviderCompleted))

		add(st(s, CompletionProviderCompleted), RepairEventConfirm, st(RepairCompleted, CompletionUserConfirmed))
	}

	add(st(RepairQuoted, CompletionPending), RepairEventRevisePrice, st(RepairFinalPricePendingUser, CompletionPending))
	for _, s := range []RepairStatus{RepairAccepted, RepairAwaitingDeposit, RepairFinalPricePendingUser, RepairFinalPriceAccepted} {
		for _, c := range []CompletionStatus{CompletionPending, CompletionProviderCompleted} {
			add(st(s, c), RepairEventRevisePrice, st(RepairFinalPricePendingUser, c))
		}
	}

	completed := st(RepairCompleted, CompletionUserConfirmed)
	add(completed, RepairEventReleasePayout, completed)

	return out
}

// AcceptsPaymentMethod reports whether a saved payment method may still be
// attached to the job.
func (s RepairState) AcceptsPaymentMethod() bool {
	switch s.Status {
	case RepairAccepted, RepairAwaitingDeposit, RepairFinalPricePendingUser, RepairFinalPriceAccepted:
		return true
	default:
		return false
	}
}
