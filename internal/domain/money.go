package domain

import (
	"github.com/AhmedB2023/ecommerce-backend/internal/apperrors"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ToCents converts a currency amount to the provider's minor units.
func ToCents(d decimal.Decimal) int64 {
	return d.Mul(hundred).Round(0).IntPart()
}

func FromCents(c int64) decimal.Decimal {
	return decimal.New(c, -2)
}

// Percent returns pct percent of amount rounded to cents.
func Percent(amount decimal.Decimal, pct int) decimal.Decimal {
	return amount.Mul(decimal.NewFromInt(int64(pct))).Div(hundred).Round(2)
}

// ChargePlan describes the off-session charge taken when the requester
// confirms completion.
type ChargePlan struct {
	Amount         decimal.Decimal
	ApplicationFee decimal.Decimal
	// Destination is the connected account receiving Amount-ApplicationFee
	// with the charge. Empty means the platform keeps the whole charge.
	Destination         string
	TransferredOnCharge decimal.Decimal
}

// PlanFinalCharge computes the remaining charge after the deposit. The final
// price must exceed the deposit.
func PlanFinalCharge(r *RepairRequest) (ChargePlan, error) {
	if !r.FinalPrice.Valid {
		return ChargePlan{}, &apperrors.PreconditionError{Reason: "final price is not set"}
	}

	final := r.FinalPrice.Decimal
	if !final.GreaterThan(r.DepositAmount) {
		return ChargePlan{}, &apperrors.PreconditionError{Reason: "final price must exceed the deposit"}
	}

	plan := ChargePlan{Amount: final.Sub(r.DepositAmount)}

	fee := Percent(final, r.PlatformFeePercent)
	if account := r.ConnectedAccount(); account != "" && fee.LessThan(plan.Amount) {
		plan.ApplicationFee = fee
		plan.Destination = account
		plan.TransferredOnCharge = plan.Amount.Sub(fee)
	}

	return plan, nil
}

// ProviderShare is the provider's total take: payout percent of the final
// price, or of the quote when no final price was set.
func (r *RepairRequest) ProviderShare() decimal.Decimal {
	base := r.PriceQuote.Decimal
	if r.FinalPrice.Valid {
		base = r.FinalPrice.Decimal
	}

	return Percent(base, r.ProviderPayoutPercent)
}

// PayoutDue is the amount still owed to the provider after whatever was
// routed to them with the final charge.
func (r *RepairRequest) PayoutDue() decimal.Decimal {
	due := r.ProviderShare().Sub(r.TransferredOnCharge)
	if due.IsNegative() {
		return decimal.Zero
	}
	return due
}
