package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/AhmedB2023/ecommerce-backend/internal/apperrors"
	"github.com/AhmedB2023/ecommerce-backend/internal/domain"
	"github.com/AhmedB2023/ecommerce-backend/internal/payment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func confirmedRepair(opts ...repairOption) *domain.RepairRequest {
	base := []repairOption{withFinal(150), withAccount("acct_1"), withPaymentMethod(), withTransferred(115)}
	return testRepair(domain.RepairCompleted, domain.CompletionUserConfirmed, append(base, opts...)...)
}

func TestPayoutService_Release_SoftFailures(t *testing.T) {
	released := fixedNow.Add(-time.Hour)

	testCases := []struct {
		name       string
		repair     *domain.RepairRequest
		setup      func(f *repairFixture)
		wantReason string
	}{
		{
			name: "Already released",
			repair: confirmedRepair(func(r *domain.RepairRequest) {
				r.PayoutReleasedAt = &released
			}),
			wantReason: domain.PayoutAlreadyReleased,
		},
		{
			name:       "Completion not confirmed",
			repair:     testRepair(domain.RepairAccepted, domain.CompletionProviderCompleted, withAccount("acct_1")),
			wantReason: domain.PayoutCompletionNotConfirmed,
		},
		{
			name: "No connected account",
			repair: confirmedRepair(func(r *domain.RepairRequest) {
				r.ProviderStripeAccountID = nil
			}),
			wantReason: domain.PayoutNoConnectedAccount,
		},
		{
			name:   "Transfers inactive",
			repair: confirmedRepair(),
			setup: func(f *repairFixture) {
				f.accounts.On("GetByAccountID", mock.Anything, "acct_1").Return(nil, apperrors.ErrNotFound).Once()
				f.payments.On("TransfersActive", mock.Anything, "acct_1").Return(false, nil).Once()
			},
			wantReason: domain.PayoutTransfersInactive,
		},
		{
			name:   "Everything already routed with the charge",
			repair: confirmedRepair(withTransferred(135)),
			setup: func(f *repairFixture) {
				f.accounts.On("GetByAccountID", mock.Anything, "acct_1").
					Return(&domain.ProviderAccount{TransfersActive: true}, nil).Once()
			},
			wantReason: domain.PayoutNothingToTransfer,
		},
		{
			name:   "Lost the claim",
			repair: confirmedRepair(),
			setup: func(f *repairFixture) {
				f.accounts.On("GetByAccountID", mock.Anything, "acct_1").
					Return(&domain.ProviderAccount{TransfersActive: true}, nil).Once()
				f.command.On("ClaimPayout", mock.Anything, int64(7), fixedNow).Return(nil, false, nil).Once()
			},
			wantReason: domain.PayoutAlreadyReleased,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newRepairFixture(t)
			f.query.On("GetByID", mock.Anything, int64(7)).Return(tc.repair, nil).Once()
			if tc.setup != nil {
				tc.setup(f)
			}

			res, err := f.svc.payouts.Release(context.Background(), 7)

			require.NoError(t, err)
			assert.False(t, res.Success)
			assert.Equal(t, tc.wantReason, res.Reason)
			f.payments.AssertNotCalled(t, "Transfer", mock.Anything, mock.Anything)
		})
	}
}

func TestPayoutService_Release_NotFound(t *testing.T) {
	f := newRepairFixture(t)
	f.query.On("GetByID", mock.Anything, int64(404)).Return(nil, apperrors.ErrNotFound).Once()

	_, err := f.svc.payouts.Release(context.Background(), 404)

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestPayoutService_Release_TransferFailureUnclaims(t *testing.T) {
	f := newRepairFixture(t)

	f.query.On("GetByID", mock.Anything, int64(7)).Return(confirmedRepair(), nil).Once()
	f.accounts.On("GetByAccountID", mock.Anything, "acct_1").
		Return(&domain.ProviderAccount{TransfersActive: true}, nil).Once()
	f.command.On("ClaimPayout", mock.Anything, int64(7), fixedNow).Return(confirmedRepair(), true, nil).Once()
	f.payments.On("Transfer", mock.Anything, mock.Anything).
		Return("", &apperrors.UpstreamError{Provider: "stripe", Op: "transfer", Err: errors.New("insufficient funds")}).Once()
	f.command.On("ReleasePayoutClaim", mock.Anything, int64(7)).Return(nil).Once()

	_, err := f.svc.payouts.Release(context.Background(), 7)

	assert.ErrorIs(t, err, apperrors.ErrUpstream)
}

func TestPayoutService_Release_ConcurrentCallersPayOnce(t *testing.T) {
	f := newRepairFixture(t)

	const callers = 8

	f.query.On("GetByID", mock.Anything, int64(7)).Return(confirmedRepair(), nil).Times(callers)
	f.accounts.On("GetByAccountID", mock.Anything, "acct_1").
		Return(&domain.ProviderAccount{TransfersActive: true}, nil).Times(callers)

	// The store grants the conditional update to exactly one caller.
	f.command.On("ClaimPayout", mock.Anything, int64(7), fixedNow).Return(confirmedRepair(), true, nil).Once()
	f.command.On("ClaimPayout", mock.Anything, int64(7), fixedNow).Return(nil, false, nil).Times(callers - 1)

	f.payments.On("Transfer", mock.Anything, mock.Anything).Return("tr_1", nil).Once()
	tx := expectTx(t, f.db, true)
	f.command.On("SetPayoutTransfer", mock.Anything, tx, int64(7), "tr_1").Return(nil).Once()
	f.notifier.On("Enqueue", mock.Anything, tx, kinds(domain.NotifyPayoutReleased)).Return(nil).Once()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results []*domain.PayoutResult
	)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.svc.payouts.Release(context.Background(), 7)
			assert.NoError(t, err)

			mu.Lock()
			results = append(results, res)
			mu.Unlock()
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, res := range results {
		if res.Success {
			succeeded++
			assert.True(t, amountIs(res.Amount, 20))
			continue
		}
		assert.Equal(t, domain.PayoutAlreadyReleased, res.Reason)
	}
	assert.Equal(t, 1, succeeded)
}

func TestPayoutService_ReleaseForAccount(t *testing.T) {
	f := newRepairFixture(t)

	other := confirmedRepair()
	other.ID = 8

	f.query.On("ListAwaitingPayout", mock.Anything, "acct_1").
		Return([]domain.RepairRequest{*confirmedRepair(), *other}, nil).Once()

	f.query.On("GetByID", mock.Anything, int64(7)).Return(confirmedRepair(), nil).Once()
	f.query.On("GetByID", mock.Anything, int64(8)).Return(nil, errors.New("db down")).Once()
	f.accounts.On("GetByAccountID", mock.Anything, "acct_1").
		Return(&domain.ProviderAccount{TransfersActive: true}, nil).Once()
	f.command.On("ClaimPayout", mock.Anything, int64(7), fixedNow).Return(confirmedRepair(), true, nil).Once()
	f.payments.On("Transfer", mock.Anything, mock.Anything).Return("tr_7", nil).Once()

	tx := expectTx(t, f.db, true)
	f.command.On("SetPayoutTransfer", mock.Anything, tx, int64(7), "tr_7").Return(nil).Once()
	f.notifier.On("Enqueue", mock.Anything, tx, mock.Anything).Return(nil).Once()

	results, err := f.svc.payouts.ReleaseForAccount(context.Background(), "acct_1")

	require.Error(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Success)
	assert.Equal(t, "tr_7", results[0].TransferID)
}

func TestAccountService_EnsureConnectedAccount(t *testing.T) {
	newAccounts := func() (*AccountService, *ProviderAccountRepositoryMock, *PaymentProviderMock) {
		repo, payments := new(ProviderAccountRepositoryMock), new(PaymentProviderMock)
		return NewAccountService(repo, payments, "https://api.tajer.test", "https://tajer.test", discardLog), repo, payments
	}

	t.Run("Creates once with a deterministic key", func(t *testing.T) {
		svc, repo, payments := newAccounts()

		repo.On("GetByEmail", mock.Anything, "pro@example.com").Return(nil, apperrors.ErrNotFound).Once()
		payments.On("CreateConnectedAccount", mock.Anything, accountIdempotencyKey("PRO@example.com "), "pro@example.com").
			Return(&payment.ConnectedAccount{ID: "acct_new"}, nil).Once()
		repo.On("Insert", mock.Anything, mock.MatchedBy(func(a *domain.ProviderAccount) bool {
			return a.ProviderEmail == "pro@example.com" && a.StripeAccountID == "acct_new"
		})).Return(true, nil).Once()

		acct, created, err := svc.EnsureConnectedAccount(context.Background(), " PRO@example.com")

		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, "acct_new", acct.StripeAccountID)
		mock.AssertExpectationsForObjects(t, repo, payments)
	})

	t.Run("Losing the insert race returns the stored account", func(t *testing.T) {
		svc, repo, payments := newAccounts()

		winner := &domain.ProviderAccount{ProviderEmail: "pro@example.com", StripeAccountID: "acct_winner"}

		repo.On("GetByEmail", mock.Anything, "pro@example.com").Return(nil, apperrors.ErrNotFound).Once()
		payments.On("CreateConnectedAccount", mock.Anything, accountIdempotencyKey("pro@example.com"), "pro@example.com").
			Return(&payment.ConnectedAccount{ID: "acct_winner"}, nil).Once()
		repo.On("Insert", mock.Anything, mock.Anything).Return(false, nil).Once()
		repo.On("GetByEmail", mock.Anything, "pro@example.com").Return(winner, nil).Once()

		acct, created, err := svc.EnsureConnectedAccount(context.Background(), "pro@example.com")

		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, winner, acct)
		mock.AssertExpectationsForObjects(t, repo, payments)
	})

	t.Run("Existing account skips the provider", func(t *testing.T) {
		svc, repo, payments := newAccounts()

		repo.On("GetByEmail", mock.Anything, "pro@example.com").
			Return(&domain.ProviderAccount{StripeAccountID: "acct_1"}, nil).Once()

		acct, created, err := svc.EnsureConnectedAccount(context.Background(), "pro@example.com")

		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, "acct_1", acct.StripeAccountID)
		payments.AssertNotCalled(t, "CreateConnectedAccount", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestAccountService_TransfersActive(t *testing.T) {
	testCases := []struct {
		name   string
		stored *domain.ProviderAccount
		remote bool
		want   bool
	}{
		{"Stored flag wins", &domain.ProviderAccount{StripeAccountID: "acct_1", TransfersActive: true}, false, true},
		{"Newly active is persisted", &domain.ProviderAccount{StripeAccountID: "acct_1"}, true, true},
		{"Still inactive", &domain.ProviderAccount{StripeAccountID: "acct_1"}, false, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			repo, payments := new(ProviderAccountRepositoryMock), new(PaymentProviderMock)
			svc := NewAccountService(repo, payments, "", "", discardLog)

			repo.On("GetByAccountID", mock.Anything, "acct_1").Return(tc.stored, nil).Once()
			if !tc.stored.TransfersActive {
				payments.On("TransfersActive", mock.Anything, "acct_1").Return(tc.remote, nil).Once()
			}
			if !tc.stored.TransfersActive && tc.remote {
				repo.On("SetTransfersActive", mock.Anything, "acct_1", true).Return(nil).Once()
			}

			got, err := svc.TransfersActive(context.Background(), "acct_1")

			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
			mock.AssertExpectationsForObjects(t, repo, payments)
		})
	}
}

func TestAccountService_OnboardingRefresh(t *testing.T) {
	repo, payments := new(ProviderAccountRepositoryMock), new(PaymentProviderMock)
	svc := NewAccountService(repo, payments, "https://api.tajer.test", "https://tajer.test", discardLog)

	repo.On("GetByAccountID", mock.Anything, "acct_unknown").Return(nil, apperrors.ErrNotFound).Once()

	_, err := svc.OnboardingRefresh(context.Background(), "acct_unknown")

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	payments.AssertNotCalled(t, "CreateOnboardingLink", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
