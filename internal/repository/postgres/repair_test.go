//go:build integration

package postgres

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/AhmedB2023/ecommerce-backend/internal/apperrors"
	"github.com/AhmedB2023/ecommerce-backend/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepair(code string) *domain.RepairRequest {
	return &domain.RepairRequest{
		JobCode:               code,
		Description:           "leaky faucet",
		CustomerAddress:       "123 Main St",
		PreferredTime:         "tomorrow 9am",
		RequesterEmail:        "jane@example.com",
		DepositAmount:         decimal.RequireFromString("20"),
		PlatformFeePercent:    10,
		ProviderPayoutPercent: 90,
		Status:                domain.RepairOpen,
		CompletionStatus:      domain.CompletionPending,
	}
}

func createRepair(t *testing.T, repo *RepairRepository, r *domain.RepairRequest) {
	t.Helper()

	tx, err := testDB.Beginx()
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), tx, r))
	require.NoError(t, tx.Commit())
}

func TestRepairRepository_Flow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}

	truncateTables(t, testDB)
	repo := NewRepairRepository(testDB, logger)
	ctx := context.Background()

	r := newRepair("R-000001")
	createRepair(t, repo, r)
	assert.NotZero(t, r.ID)

	got, err := repo.GetByJobCode(ctx, "R-000001")
	require.NoError(t, err)
	assert.Equal(t, r.ID, got.ID)
	assert.Equal(t, domain.RepairOpen, got.Status)
	assert.Empty(t, got.ImageURLs)
	assert.False(t, got.PriceQuote.Valid)

	open, err := repo.ListByStatus(ctx, domain.RepairOpen)
	require.NoError(t, err)
	assert.Len(t, open, 1)

	tx, err := testDB.Beginx()
	require.NoError(t, err)
	locked, err := repo.GetByIDWithLock(ctx, tx, r.ID)
	require.NoError(t, err)

	provider := "fixer@shop.io"
	locked.ProviderEmail = &provider
	locked.PriceQuote = decimal.NewNullDecimal(decimal.RequireFromString("150"))
	locked.Status = domain.RepairQuoted
	require.NoError(t, repo.Update(ctx, tx, locked))
	require.NoError(t, tx.Commit())

	got, err = repo.GetByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RepairQuoted, got.Status)
	require.NotNil(t, got.ProviderEmail)
	assert.Equal(t, provider, *got.ProviderEmail)
	assert.True(t, decimal.RequireFromString("150").Equal(got.PriceQuote.Decimal))

	_, err = repo.GetByID(ctx, 9999)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestRepairRepository_CreateJobCodeCollision(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}

	truncateTables(t, testDB)
	repo := NewRepairRepository(testDB, logger)
	ctx := context.Background()

	createRepair(t, repo, newRepair("R-123456"))

	tx, err := testDB.Beginx()
	require.NoError(t, err)
	defer tx.Rollback()

	err = repo.Create(ctx, tx, newRepair("R-123456"))
	require.ErrorIs(t, err, apperrors.ErrJobCodeTaken)

	// The transaction survives the collision and can retry with a new code.
	retry := newRepair("R-654321")
	require.NoError(t, repo.Create(ctx, tx, retry))
	require.NoError(t, tx.Commit())
	assert.NotZero(t, retry.ID)
}

func TestRepairRepository_ClaimPayoutOnce(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}

	truncateTables(t, testDB)
	repo := NewRepairRepository(testDB, logger)
	ctx := context.Background()

	r := newRepair("R-777777")
	createRepair(t, repo, r)

	_, claimed, err := repo.ClaimPayout(ctx, r.ID, time.Now())
	require.NoError(t, err)
	assert.False(t, claimed, "unconfirmed job must not be claimable")

	account := "acct_123"
	tx, err := testDB.Beginx()
	require.NoError(t, err)
	r.Status = domain.RepairCompleted
	r.CompletionStatus = domain.CompletionUserConfirmed
	r.FinalPrice = decimal.NewNullDecimal(decimal.RequireFromString("150"))
	r.ProviderStripeAccountID = &account
	require.NoError(t, repo.Update(ctx, tx, r))
	require.NoError(t, tx.Commit())

	awaiting, err := repo.ListAwaitingPayout(ctx, account)
	require.NoError(t, err)
	require.Len(t, awaiting, 1)

	var (
		wg   sync.WaitGroup
		wins atomic.Int32
	)

	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, ok, err := repo.ClaimPayout(ctx, r.ID, time.Now())
			assert.NoError(t, err)
			if ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())

	awaiting, err = repo.ListAwaitingPayout(ctx, account)
	require.NoError(t, err)
	assert.Empty(t, awaiting)

	require.NoError(t, repo.ReleasePayoutClaim(ctx, r.ID))
	claimedRepair, claimed, err := repo.ClaimPayout(ctx, r.ID, time.Now())
	require.NoError(t, err)
	require.True(t, claimed, "released claim must be claimable again")
	assert.NotNil(t, claimedRepair.PayoutReleasedAt)

	tx, err = testDB.Beginx()
	require.NoError(t, err)
	require.NoError(t, repo.SetPayoutTransfer(ctx, tx, r.ID, "tr_1"))
	require.NoError(t, tx.Commit())

	require.NoError(t, repo.ReleasePayoutClaim(ctx, r.ID))
	_, claimed, err = repo.ClaimPayout(ctx, r.ID, time.Now())
	require.NoError(t, err)
	assert.False(t, claimed, "claim with a recorded transfer stays released")
}

func TestProviderAccountRepository_InsertOnce(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}

	truncateTables(t, testDB)
	repo := NewProviderAccountRepository(testDB, logger)
	ctx := context.Background()

	inserted, err := repo.Insert(ctx, &domain.ProviderAccount{ProviderEmail: "Fixer@Shop.io", StripeAccountID: "acct_a"})
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = repo.Insert(ctx, &domain.ProviderAccount{ProviderEmail: "fixer@shop.io", StripeAccountID: "acct_b"})
	require.NoError(t, err)
	assert.False(t, inserted)

	account, err := repo.GetByEmail(ctx, "FIXER@shop.io")
	require.NoError(t, err)
	assert.Equal(t, "acct_a", account.StripeAccountID)
	assert.False(t, account.TransfersActive)

	require.NoError(t, repo.SetTransfersActive(ctx, "acct_a", true))
	account, err = repo.GetByAccountID(ctx, "acct_a")
	require.NoError(t, err)
	assert.True(t, account.TransfersActive)

	err = repo.SetTransfersActive(ctx, "acct_unknown", true)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
