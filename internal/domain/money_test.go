package domain

import (
	"testing"

	"github.com/AhmedB2023/ecommerce-backend/internal/apperrors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func nullDec(s string) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: dec(s), Valid: true}
}

func strPtr(s string) *string { return &s }

func TestCents(t *testing.T) {
	assert.Equal(t, int64(13000), ToCents(dec("130")))
	assert.Equal(t, int64(1999), ToCents(dec("19.99")))
	assert.Equal(t, int64(1), ToCents(dec("0.005")))
	assert.True(t, dec("12.34").Equal(FromCents(1234)))
}

func TestPercent(t *testing.T) {
	assert.True(t, dec("15").Equal(Percent(dec("150"), 10)))
	assert.True(t, dec("135").Equal(Percent(dec("150"), 90)))
	assert.True(t, dec("3.33").Equal(Percent(dec("33.33"), 10)))
}

func TestPlanFinalCharge(t *testing.T) {
	testCases := []struct {
		name       string
		repair     RepairRequest
		want       ChargePlan
		wantReason string
	}{
		{
			name: "destination charge with fee",
			repair: RepairRequest{
				FinalPrice: nullDec("150"), DepositAmount: dec("20"), PlatformFeePercent: 10,
				ProviderStripeAccountID: strPtr("acct_1"),
			},
			want: ChargePlan{
				Amount: dec("130"), ApplicationFee: dec("15"),
				Destination: "acct_1", TransferredOnCharge: dec("115"),
			},
		},
		{
			name: "no connected account keeps charge on platform",
			repair: RepairRequest{
				FinalPrice: nullDec("150"), DepositAmount: dec("20"), PlatformFeePercent: 10,
			},
			want: ChargePlan{Amount: dec("130")},
		},
		{
			name: "fee not below remaining skips destination",
			repair: RepairRequest{
				FinalPrice: nullDec("21"), DepositAmount: dec("20"), PlatformFeePercent: 10,
				ProviderStripeAccountID: strPtr("acct_1"),
			},
			want: ChargePlan{Amount: dec("1")},
		},
		{
			name:       "final below deposit",
			repair:     RepairRequest{FinalPrice: nullDec("15"), DepositAmount: dec("20"), PlatformFeePercent: 10},
			wantReason: "final price must exceed the deposit",
		},
		{
			name:       "final equal to deposit",
			repair:     RepairRequest{FinalPrice: nullDec("20"), DepositAmount: dec("20"), PlatformFeePercent: 10},
			wantReason: "final price must exceed the deposit",
		},
		{
			name:       "final missing",
			repair:     RepairRequest{DepositAmount: dec("20"), PlatformFeePercent: 10},
			wantReason: "final price is not set",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := PlanFinalCharge(&tc.repair)
			if tc.wantReason != "" {
				require.ErrorIs(t, err, apperrors.ErrPrecondition)

				var pe *apperrors.PreconditionError
				require.ErrorAs(t, err, &pe)
				assert.Equal(t, tc.wantReason, pe.Reason)
				return
			}

			require.NoError(t, err)
			assert.True(t, tc.want.Amount.Equal(got.Amount), "amount %s", got.Amount)
			assert.True(t, tc.want.ApplicationFee.Equal(got.ApplicationFee), "fee %s", got.ApplicationFee)
			assert.True(t, tc.want.TransferredOnCharge.Equal(got.TransferredOnCharge))
			assert.Equal(t, tc.want.Destination, got.Destination)
		})
	}
}

func TestPayoutDue(t *testing.T) {
	testCases := []struct {
		name   string
		repair RepairRequest
		want   string
	}{
		{
			name: "remainder after destination charge",
			repair: RepairRequest{
				FinalPrice: nullDec("150"), ProviderPayoutPercent: 90, TransferredOnCharge: dec("115"),
			},
			want: "20",
		},
		{
			name:   "full share when nothing routed on charge",
			repair: RepairRequest{FinalPrice: nullDec("150"), ProviderPayoutPercent: 90},
			want:   "135",
		},
		{
			name:   "quote used without final price",
			repair: RepairRequest{PriceQuote: nullDec("100"), ProviderPayoutPercent: 90},
			want:   "90",
		},
		{
			name: "never negative",
			repair: RepairRequest{
				FinalPrice: nullDec("100"), ProviderPayoutPercent: 90, TransferredOnCharge: dec("95"),
			},
			want: "0",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.repair.PayoutDue()
			assert.True(t, dec(tc.want).Equal(got), "got %s", got)
		})
	}
}

func TestEndToEndSplit(t *testing.T) {
	r := RepairRequest{
		PriceQuote:              nullDec("150"),
		FinalPrice:              nullDec("150"),
		DepositAmount:           dec("20"),
		PlatformFeePercent:      10,
		ProviderPayoutPercent:   90,
		ProviderStripeAccountID: strPtr("acct_provider"),
	}

	plan, err := PlanFinalCharge(&r)
	require.NoError(t, err)
	assert.True(t, dec("130").Equal(plan.Amount))
	assert.True(t, dec("15").Equal(plan.ApplicationFee))

	r.TransferredOnCharge = plan.TransferredOnCharge
	total := plan.TransferredOnCharge.Add(r.PayoutDue())
	assert.True(t, dec("135").Equal(total), "provider total %s", total)
}
