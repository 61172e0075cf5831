package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/AhmedB2023/ecommerce-backend/internal/dedup"
	"github.com/AhmedB2023/ecommerce-backend/internal/domain"
	"github.com/AhmedB2023/ecommerce-backend/internal/events"
	"github.com/AhmedB2023/ecommerce-backend/internal/notification"
	"github.com/AhmedB2023/ecommerce-backend/internal/payment"
	"github.com/AhmedB2023/ecommerce-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/mock"
)

type TransactorMock struct {
	mock.Mock
}

var _ Transactor = (*TransactorMock)(nil)

func (m *TransactorMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	var tx *sqlx.Tx

	args := m.Called(ctx, opts)
	if args.Get(0) != nil {
		tx = args.Get(0).(*sqlx.Tx)
	}

	return tx, args.Error(1)
}

type NotifierMock struct {
	mock.Mock
}

var _ Notifier = (*NotifierMock)(nil)

func (m *NotifierMock) Enqueue(ctx context.Context, tx *sqlx.Tx, msgs ...notification.Message) error {
	args := m.Called(ctx, tx, msgs)
	return args.Error(0)
}

type PublisherMock struct {
	mock.Mock
}

var _ events.Publisher = (*PublisherMock)(nil)

func (m *PublisherMock) Publish(ctx context.Context, channel string, event events.Event) error {
	args := m.Called(ctx, channel, event)
	return args.Error(0)
}

type RepairQueryRepositoryMock struct {
	mock.Mock
}

var _ repository.RepairQueryRepository = (*RepairQueryRepositoryMock)(nil)

func (m *RepairQueryRepositoryMock) GetByID(ctx context.Context, id int64) (*domain.RepairRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RepairRequest), args.Error(1)
}

func (m *RepairQueryRepositoryMock) GetByJobCode(ctx context.Context, jobCode string) (*domain.RepairRequest, error) {
	args := m.Called(ctx, jobCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RepairRequest), args.Error(1)
}

func (m *RepairQueryRepositoryMock) ListByStatus(ctx context.Context, status domain.RepairStatus) ([]domain.RepairRequest, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RepairRequest), args.Error(1)
}

func (m *RepairQueryRepositoryMock) ListAwaitingPayout(ctx context.Context, accountID string) ([]domain.RepairRequest, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RepairRequest), args.Error(1)
}

type RepairCommandRepositoryMock struct {
	mock.Mock
}

var _ repository.RepairCommandRepository = (*RepairCommandRepositoryMock)(nil)

func (m *RepairCommandRepositoryMock) Create(ctx context.Context, tx *sqlx.Tx, r *domain.RepairRequest) error {
	args := m.Called(ctx, tx, r)
	return args.Error(0)
}

func (m *RepairCommandRepositoryMock) GetByIDWithLock(ctx context.Context, tx *sqlx.Tx, id int64) (*domain.RepairRequest, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RepairRequest), args.Error(1)
}

func (m *RepairCommandRepositoryMock) Update(ctx context.Context, tx *sqlx.Tx, r *domain.RepairRequest) error {
	args := m.Called(ctx, tx, r)
	return args.Error(0)
}

func (m *RepairCommandRepositoryMock) ClaimPayout(ctx context.Context, id int64, at time.Time) (*domain.RepairRequest, bool, error) {
	args := m.Called(ctx, id, at)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*domain.RepairRequest), args.Bool(1), args.Error(2)
}

func (m *RepairCommandRepositoryMock) ReleasePayoutClaim(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *RepairCommandRepositoryMock) SetPayoutTransfer(ctx context.Context, tx *sqlx.Tx, id int64, transferID string) error {
	args := m.Called(ctx, tx, id, transferID)
	return args.Error(0)
}

type ProviderAccountRepositoryMock struct {
	mock.Mock
}

var _ repository.ProviderAccountRepository = (*ProviderAccountRepositoryMock)(nil)

func (m *ProviderAccountRepositoryMock) GetByEmail(ctx context.Context, email string) (*domain.ProviderAccount, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ProviderAccount), args.Error(1)
}

func (m *ProviderAccountRepositoryMock) GetByAccountID(ctx context.Context, accountID string) (*domain.ProviderAccount, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ProviderAccount), args.Error(1)
}

func (m *ProviderAccountRepositoryMock) Insert(ctx context.Context, account *domain.ProviderAccount) (bool, error) {
	args := m.Called(ctx, account)
	return args.Bool(0), args.Error(1)
}

func (m *ProviderAccountRepositoryMock) SetTransfersActive(ctx context.Context, accountID string, active bool) error {
	args := m.Called(ctx, accountID, active)
	return args.Error(0)
}

type PropertyRepositoryMock struct {
	mock.Mock
}

var _ repository.PropertyRepository = (*PropertyRepositoryMock)(nil)

func (m *PropertyRepositoryMock) CreateProperty(ctx context.Context, p *domain.Property) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *PropertyRepositoryMock) GetProperty(ctx context.Context, id int64) (*domain.Property, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Property), args.Error(1)
}

func (m *PropertyRepositoryMock) GetPropertyWithLock(ctx context.Context, tx *sqlx.Tx, id int64) (*domain.Property, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Property), args.Error(1)
}

func (m *PropertyRepositoryMock) UpsertAvailability(ctx context.Context, a *domain.AvailabilityRange) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *PropertyRepositoryMock) GetAvailability(ctx context.Context, propertyID int64) (*domain.AvailabilityRange, error) {
	args := m.Called(ctx, propertyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AvailabilityRange), args.Error(1)
}

func (m *PropertyRepositoryMock) DayAvailability(ctx context.Context, propertyID int64, from, to time.Time) ([]domain.DayAvailability, error) {
	args := m.Called(ctx, propertyID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.DayAvailability), args.Error(1)
}

type ReservationRepositoryMock struct {
	mock.Mock
}

var _ repository.ReservationRepository = (*ReservationRepositoryMock)(nil)

func (m *ReservationRepositoryMock) Create(ctx context.Context, tx *sqlx.Tx, r *domain.Reservation) error {
	args := m.Called(ctx, tx, r)
	return args.Error(0)
}

func (m *ReservationRepositoryMock) HasOverlap(ctx context.Context, tx *sqlx.Tx, propertyID int64, from, to time.Time) (bool, error) {
	args := m.Called(ctx, tx, propertyID, from, to)
	return args.Bool(0), args.Error(1)
}

func (m *ReservationRepositoryMock) GetByID(ctx context.Context, id int64) (*domain.Reservation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Reservation), args.Error(1)
}

func (m *ReservationRepositoryMock) GetByIDWithLock(ctx context.Context, tx *sqlx.Tx, id int64) (*domain.Reservation, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Reservation), args.Error(1)
}

func (m *ReservationRepositoryMock) GetByCheckoutSession(ctx context.Context, sessionID string) (*domain.Reservation, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Reservation), args.Error(1)
}

func (m *ReservationRepositoryMock) Update(ctx context.Context, tx *sqlx.Tx, r *domain.Reservation) error {
	args := m.Called(ctx, tx, r)
	return args.Error(0)
}

type ProductRepositoryMock struct {
	mock.Mock
}

var _ repository.ProductRepository = (*ProductRepositoryMock)(nil)

func (m *ProductRepositoryMock) CreateVendor(ctx context.Context, v *domain.Vendor) error {
	args := m.Called(ctx, v)
	return args.Error(0)
}

func (m *ProductRepositoryMock) GetVendor(ctx context.Context, id int64) (*domain.Vendor, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Vendor), args.Error(1)
}

func (m *ProductRepositoryMock) GetVendorByName(ctx context.Context, name string) (*domain.Vendor, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Vendor), args.Error(1)
}

func (m *ProductRepositoryMock) CreateProduct(ctx context.Context, p *domain.Product) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *ProductRepositoryMock) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *ProductRepositoryMock) ListActive(ctx context.Context, vendorID int64) ([]domain.Product, error) {
	args := m.Called(ctx, vendorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Product), args.Error(1)
}

func (m *ProductRepositoryMock) Search(ctx context.Context, term string, limit int) ([]domain.Product, error) {
	args := m.Called(ctx, term, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Product), args.Error(1)
}

func (m *ProductRepositoryMock) Deactivate(ctx context.Context, id int64) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *ProductRepositoryMock) LockActive(ctx context.Context, tx *sqlx.Tx, vendorID int64, ids []int64) ([]domain.Product, error) {
	args := m.Called(ctx, tx, vendorID, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Product), args.Error(1)
}

type OrderRepositoryMock struct {
	mock.Mock
}

var _ repository.OrderRepository = (*OrderRepositoryMock)(nil)

func (m *OrderRepositoryMock) Create(ctx context.Context, tx *sqlx.Tx, o *domain.Order) error {
	args := m.Called(ctx, tx, o)
	return args.Error(0)
}

func (m *OrderRepositoryMock) GetByRef(ctx context.Context, ref uuid.UUID) (*domain.Order, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *OrderRepositoryMock) ListByCustomer(ctx context.Context, customerID int64) ([]domain.Order, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Order), args.Error(1)
}

func (m *OrderRepositoryMock) ListByVendor(ctx context.Context, vendorID int64) ([]domain.Order, error) {
	args := m.Called(ctx, vendorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Order), args.Error(1)
}

type PaymentProviderMock struct {
	mock.Mock
}

var _ payment.Provider = (*PaymentProviderMock)(nil)

func (m *PaymentProviderMock) CreateCustomer(ctx context.Context, idempotencyKey, email string) (string, error) {
	args := m.Called(ctx, idempotencyKey, email)
	return args.String(0), args.Error(1)
}

func (m *PaymentProviderMock) CreateDepositIntent(ctx context.Context, req payment.DepositRequest) (*payment.DepositIntent, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.DepositIntent), args.Error(1)
}

func (m *PaymentProviderMock) GetPaymentIntent(ctx context.Context, id string) (*payment.PaymentIntent, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.PaymentIntent), args.Error(1)
}

func (m *PaymentProviderMock) ChargeOffSession(ctx context.Context, req payment.ChargeRequest) (*payment.PaymentIntent, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.PaymentIntent), args.Error(1)
}

func (m *PaymentProviderMock) CreateConnectedAccount(ctx context.Context, idempotencyKey, email string) (*payment.ConnectedAccount, error) {
	args := m.Called(ctx, idempotencyKey, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.ConnectedAccount), args.Error(1)
}

func (m *PaymentProviderMock) CreateOnboardingLink(ctx context.Context, accountID, refreshURL, returnURL string) (string, error) {
	args := m.Called(ctx, accountID, refreshURL, returnURL)
	return args.String(0), args.Error(1)
}

func (m *PaymentProviderMock) TransfersActive(ctx context.Context, accountID string) (bool, error) {
	args := m.Called(ctx, accountID)
	return args.Bool(0), args.Error(1)
}

func (m *PaymentProviderMock) Transfer(ctx context.Context, req payment.TransferRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *PaymentProviderMock) CreateCheckoutSession(ctx context.Context, req payment.CheckoutRequest) (*payment.CheckoutSession, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.CheckoutSession), args.Error(1)
}

func (m *PaymentProviderMock) ParseEvent(payload []byte, signature string, source payment.EventSource) (*payment.Event, error) {
	args := m.Called(payload, signature, source)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Event), args.Error(1)
}

type DedupStoreMock struct {
	mock.Mock
}

var _ dedup.Store = (*DedupStoreMock)(nil)

func (m *DedupStoreMock) Claim(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *DedupStoreMock) Forget(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

type DepositRecorderMock struct {
	mock.Mock
}

var _ DepositRecorder = (*DepositRecorderMock)(nil)

func (m *DepositRecorderMock) RecordDeposit(ctx context.Context, pi *payment.PaymentIntent) error {
	args := m.Called(ctx, pi)
	return args.Error(0)
}

type CheckoutRecorderMock struct {
	mock.Mock
}

var _ CheckoutRecorder = (*CheckoutRecorderMock)(nil)

func (m *CheckoutRecorderMock) Pay(ctx context.Context, session *payment.CheckoutSession) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

type AccountUpdaterMock struct {
	mock.Mock
}

var _ AccountUpdater = (*AccountUpdaterMock)(nil)

func (m *AccountUpdaterMock) SetTransfersActive(ctx context.Context, accountID string, active bool) error {
	args := m.Called(ctx, accountID, active)
	return args.Error(0)
}

type AccountPayoutsMock struct {
	mock.Mock
}

var _ AccountPayouts = (*AccountPayoutsMock)(nil)

func (m *AccountPayoutsMock) ReleaseForAccount(ctx context.Context, accountID string) ([]domain.PayoutResult, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PayoutResult), args.Error(1)
}
