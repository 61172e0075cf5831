package http

import (
	"context"
	"time"

	"github.com/AhmedB2023/ecommerce-backend/internal/auth"
	"github.com/AhmedB2023/ecommerce-backend/internal/domain"
	"github.com/AhmedB2023/ecommerce-backend/internal/payment"
	"github.com/AhmedB2023/ecommerce-backend/internal/service"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

var (
	_ RepairService       = (*RepairServiceMock)(nil)
	_ PayoutService       = (*PayoutServiceMock)(nil)
	_ AccountService      = (*AccountServiceMock)(nil)
	_ ReservationService  = (*ReservationServiceMock)(nil)
	_ AvailabilityService = (*AvailabilityServiceMock)(nil)
	_ WebhookService      = (*WebhookServiceMock)(nil)
	_ OrderService        = (*OrderServiceMock)(nil)
	_ AdminVerifier       = (*AdminVerifierMock)(nil)
	_ VendorVerifier      = (*VendorVerifierMock)(nil)
	_ Limiter             = (*LimiterMock)(nil)

	_ RepairService       = (*service.RepairService)(nil)
	_ PayoutService       = (*service.PayoutService)(nil)
	_ AccountService      = (*service.AccountService)(nil)
	_ ReservationService  = (*service.ReservationService)(nil)
	_ AvailabilityService = (*service.AvailabilityService)(nil)
	_ WebhookService      = (*service.WebhookService)(nil)
	_ OrderService        = (*service.OrderService)(nil)
	_ AdminVerifier       = (*auth.Issuer)(nil)
	_ VendorVerifier      = (*auth.Issuer)(nil)
	_ Limiter             = (*RedisLimiter)(nil)
	_ Limiter             = (*MemoryLimiter)(nil)
)

type RepairServiceMock struct {
	mock.Mock
}

func repairOrNil(args mock.Arguments) (*domain.RepairRequest, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RepairRequest), args.Error(1)
}

func (m *RepairServiceMock) Submit(ctx context.Context, in domain.NewRepairRequest) (*domain.RepairRequest, error) {
	return repairOrNil(m.Called(ctx, in))
}

func (m *RepairServiceMock) ListOpen(ctx context.Context) ([]domain.RepairRequest, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RepairRequest), args.Error(1)
}

func (m *RepairServiceMock) Quote(ctx context.Context, id int64, q domain.ProviderQuote) (*domain.RepairRequest, error) {
	return repairOrNil(m.Called(ctx, id, q))
}

func (m *RepairServiceMock) Accept(ctx context.Context, id int64, code string) (*service.AcceptResult, error) {
	args := m.Called(ctx, id, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.AcceptResult), args.Error(1)
}

func (m *RepairServiceMock) Reject(ctx context.Context, id int64, code string) (*domain.RepairRequest, error) {
	return repairOrNil(m.Called(ctx, id, code))
}

func (m *RepairServiceMock) StartDeposit(ctx context.Context, id int64) (*service.DepositResult, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.DepositResult), args.Error(1)
}

func (m *RepairServiceMock) SavePaymentMethod(ctx context.Context, in service.SavePaymentMethodInput) (*domain.RepairRequest, error) {
	return repairOrNil(m.Called(ctx, in))
}

func (m *RepairServiceMock) MarkCompleted(ctx context.Context, in service.CompletionInput) (*domain.RepairRequest, error) {
	return repairOrNil(m.Called(ctx, in))
}

func (m *RepairServiceMock) RevisePrice(ctx context.Context, in service.RevisePriceInput) (*domain.RepairRequest, error) {
	return repairOrNil(m.Called(ctx, in))
}

func (m *RepairServiceMock) ConfirmCompletion(ctx context.Context, jobCode, email string) (*service.ConfirmResult, error) {
	args := m.Called(ctx, jobCode, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ConfirmResult), args.Error(1)
}

func (m *RepairServiceMock) Lookup(ctx context.Context, jobCode, email string) (*service.LookupResult, error) {
	args := m.Called(ctx, jobCode, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.LookupResult), args.Error(1)
}

type PayoutServiceMock struct {
	mock.Mock
}

func (m *PayoutServiceMock) Release(ctx context.Context, id int64) (*domain.PayoutResult, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PayoutResult), args.Error(1)
}

type AccountServiceMock struct {
	mock.Mock
}

func (m *AccountServiceMock) OnboardingRefresh(ctx context.Context, accountID string) (string, error) {
	args := m.Called(ctx, accountID)
	return args.String(0), args.Error(1)
}

type ReservationServiceMock struct {
	mock.Mock
}

func reservationOrNil(args mock.Arguments) (*domain.Reservation, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Reservation), args.Error(1)
}

func (m *ReservationServiceMock) CreateProperty(ctx context.Context, in service.NewProperty) (*domain.Property, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Property), args.Error(1)
}

func (m *ReservationServiceMock) Submit(ctx context.Context, in domain.NewReservation) (*domain.Reservation, error) {
	return reservationOrNil(m.Called(ctx, in))
}

func (m *ReservationServiceMock) RequestDocuments(ctx context.Context, id int64, email, note string) (*domain.Reservation, error) {
	return reservationOrNil(m.Called(ctx, id, email, note))
}

func (m *ReservationServiceMock) SubmitDocuments(ctx context.Context, id int64, email string, documents []string) (*domain.Reservation, error) {
	return reservationOrNil(m.Called(ctx, id, email, documents))
}

func (m *ReservationServiceMock) Accept(ctx context.Context, id int64, email, note string) (*domain.Reservation, error) {
	return reservationOrNil(m.Called(ctx, id, email, note))
}

func (m *ReservationServiceMock) Reject(ctx context.Context, id int64, email, note string) (*domain.Reservation, error) {
	return reservationOrNil(m.Called(ctx, id, email, note))
}

func (m *ReservationServiceMock) VerifyIdentity(ctx context.Context, id int64, email string, docs domain.IdentityDocuments) (*domain.Reservation, error) {
	return reservationOrNil(m.Called(ctx, id, email, docs))
}

func (m *ReservationServiceMock) StartCheckout(ctx context.Context, id int64, email string) (*domain.Reservation, error) {
	return reservationOrNil(m.Called(ctx, id, email))
}

func (m *ReservationServiceMock) Confirm(ctx context.Context, id int64, email string) (*domain.Reservation, error) {
	return reservationOrNil(m.Called(ctx, id, email))
}

func (m *ReservationServiceMock) Lookup(ctx context.Context, id int64, email string) (*service.ReservationLookup, error) {
	args := m.Called(ctx, id, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ReservationLookup), args.Error(1)
}

type AvailabilityServiceMock struct {
	mock.Mock
}

func (m *AvailabilityServiceMock) SetRange(ctx context.Context, propertyID int64, from time.Time, to *time.Time, available bool, note string) (*domain.AvailabilityRange, error) {
	args := m.Called(ctx, propertyID, from, to, available, note)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AvailabilityRange), args.Error(1)
}

func (m *AvailabilityServiceMock) Days(ctx context.Context, propertyID int64, from, to time.Time) ([]domain.DayAvailability, error) {
	args := m.Called(ctx, propertyID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.DayAvailability), args.Error(1)
}

type WebhookServiceMock struct {
	mock.Mock
}

func (m *WebhookServiceMock) Handle(ctx context.Context, payload []byte, signature string, source payment.EventSource) error {
	return m.Called(ctx, payload, signature, source).Error(0)
}

type AdminVerifierMock struct {
	mock.Mock
}

func (m *AdminVerifierMock) ParseAdmin(token string) (*auth.Claims, error) {
	args := m.Called(token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.Claims), args.Error(1)
}

type LimiterMock struct {
	mock.Mock
}

func (m *LimiterMock) Hit(ctx context.Context, key string, window time.Duration) (int64, error) {
	args := m.Called(ctx, key, window)
	return args.Get(0).(int64), args.Error(1)
}

type VendorVerifierMock struct {
	mock.Mock
}

func (m *VendorVerifierMock) ParseVendor(token string) (int64, error) {
	args := m.Called(token)
	return args.Get(0).(int64), args.Error(1)
}

type OrderServiceMock struct {
	mock.Mock
}

func productOrNil(args mock.Arguments) (*domain.Product, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func productsOrNil(args mock.Arguments) ([]domain.Product, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Product), args.Error(1)
}

func ordersOrNil(args mock.Arguments) ([]domain.Order, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Order), args.Error(1)
}

func vendorOrNil(args mock.Arguments) (*domain.Vendor, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Vendor), args.Error(1)
}

func orderOrNil(args mock.Arguments) (*domain.Order, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *OrderServiceMock) CreateVendor(ctx context.Context, in service.NewVendor) (*domain.Vendor, error) {
	return vendorOrNil(m.Called(ctx, in))
}

func (m *OrderServiceMock) VendorByName(ctx context.Context, name string) (*domain.Vendor, error) {
	return vendorOrNil(m.Called(ctx, name))
}

func (m *OrderServiceMock) Products(ctx context.Context, vendorID int64) ([]domain.Product, error) {
	return productsOrNil(m.Called(ctx, vendorID))
}

func (m *OrderServiceMock) CreateProduct(ctx context.Context, vendorID int64, in service.NewProduct) (*domain.Product, error) {
	return productOrNil(m.Called(ctx, vendorID, in))
}

func (m *OrderServiceMock) DeleteProduct(ctx context.Context, vendorID, productID int64) (*domain.Product, error) {
	return productOrNil(m.Called(ctx, vendorID, productID))
}

func (m *OrderServiceMock) Search(ctx context.Context, term string) ([]domain.Product, error) {
	return productsOrNil(m.Called(ctx, term))
}

func (m *OrderServiceMock) Reserve(ctx context.Context, in domain.NewOrder) (*domain.Order, error) {
	return orderOrNil(m.Called(ctx, in))
}

func (m *OrderServiceMock) GetOrder(ctx context.Context, ref uuid.UUID) (*domain.Order, error) {
	return orderOrNil(m.Called(ctx, ref))
}

func (m *OrderServiceMock) CustomerOrders(ctx context.Context, customerID int64) ([]domain.Order, error) {
	return ordersOrNil(m.Called(ctx, customerID))
}

func (m *OrderServiceMock) VendorReservations(ctx context.Context, vendorID int64) ([]domain.Order, error) {
	return ordersOrNil(m.Called(ctx, vendorID))
}
