// package http implements the HTTP transport layer for the service.
// It handles incoming requests, decodes them, calls the appropriate service methods,
// and encodes the responses.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/AhmedB2023/ecommerce-backend/internal/apperrors"
	"github.com/AhmedB2023/ecommerce-backend/internal/auth"
	"github.com/AhmedB2023/ecommerce-backend/internal/domain"
	"github.com/AhmedB2023/ecommerce-backend/internal/payment"
	"github.com/AhmedB2023/ecommerce-backend/internal/service"
	"github.com/AhmedB2023/ecommerce-backend/internal/validation"
	"github.com/AhmedB2023/ecommerce-backend/pkg/logger/sl"
	"github.com/AhmedB2023/ecommerce-backend/swagger"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RepairService interface {
	Submit(ctx context.Context, in domain.NewRepairRequest) (*domain.RepairRequest, error)
	ListOpen(ctx context.Context) ([]domain.RepairRequest, error)
	Quote(ctx context.Context, id int64, q domain.ProviderQuote) (*domain.RepairRequest, error)
	Accept(ctx context.Context, id int64, code string) (*service.AcceptResult, error)
	Reject(ctx context.Context, id int64, code string) (*domain.RepairRequest, error)
	StartDeposit(ctx context.Context, id int64) (*service.DepositResult, error)
	SavePaymentMethod(ctx context.Context, in service.SavePaymentMethodInput) (*domain.RepairRequest, error)
	MarkCompleted(ctx context.Context, in service.CompletionInput) (*domain.RepairRequest, error)
	RevisePrice(ctx context.Context, in service.RevisePriceInput) (*domain.RepairRequest, error)
	ConfirmCompletion(ctx context.Context, jobCode, email string) (*service.ConfirmResult, error)
	Lookup(ctx context.Context, jobCode, email string) (*service.LookupResult, error)
}

type PayoutService interface {
	Release(ctx context.Context, id int64) (*domain.PayoutResult, error)
}

type AccountService interface {
	OnboardingRefresh(ctx context.Context, accountID string) (string, error)
}

type ReservationService interface {
	CreateProperty(ctx context.Context, in service.NewProperty) (*domain.Property, error)
	Submit(ctx context.Context, in domain.NewReservation) (*domain.Reservation, error)
	RequestDocuments(ctx context.Context, id int64, email, note string) (*domain.Reservation, error)
	SubmitDocuments(ctx context.Context, id int64, email string, documents []string) (*domain.Reservation, error)
	Accept(ctx context.Context, id int64, email, note string) (*domain.Reservation, error)
	Reject(ctx context.Context, id int64, email, note string) (*domain.Reservation, error)
	VerifyIdentity(ctx context.Context, id int64, email string, docs domain.IdentityDocuments) (*domain.Reservation, error)
	StartCheckout(ctx context.Context, id int64, email string) (*domain.Reservation, error)
	Confirm(ctx context.Context, id int64, email string) (*domain.Reservation, error)
	Lookup(ctx context.Context, id int64, email string) (*service.ReservationLookup, error)
}

type AvailabilityService interface {
	SetRange(ctx context.Context, propertyID int64, from time.Time, to *time.Time, available bool, note string) (*domain.AvailabilityRange, error)
	Days(ctx context.Context, propertyID int64, from, to time.Time) ([]domain.DayAvailability, error)
}

type WebhookService interface {
	Handle(ctx context.Context, payload []byte, signature string, source payment.EventSource) error
}

type OrderService interface {
	CreateVendor(ctx context.Context, in service.NewVendor) (*domain.Vendor, error)
	VendorByName(ctx context.Context, name string) (*domain.Vendor, error)
	Products(ctx context.Context, vendorID int64) ([]domain.Product, error)
	CreateProduct(ctx context.Context, vendorID int64, in service.NewProduct) (*domain.Product, error)
	DeleteProduct(ctx context.Context, vendorID, productID int64) (*domain.Product, error)
	Search(ctx context.Context, term string) ([]domain.Product, error)
	Reserve(ctx context.Context, in domain.NewOrder) (*domain.Order, error)
	GetOrder(ctx context.Context, ref uuid.UUID) (*domain.Order, error)
	CustomerOrders(ctx context.Context, customerID int64) ([]domain.Order, error)
	VendorReservations(ctx context.Context, vendorID int64) ([]domain.Order, error)
}

// AdminVerifier checks bearer tokens on admin-only routes.
type AdminVerifier interface {
	ParseAdmin(token string) (*auth.Claims, error)
}

// VendorVerifier resolves a vendor bearer token to the vendor id it was
// issued for.
type VendorVerifier interface {
	ParseVendor(token string) (int64, error)
}

// Services groups the use cases the server exposes.
type Services struct {
	Repairs      RepairService
	Payouts      PayoutService
	Accounts     AccountService
	Reservations ReservationService
	Availability AvailabilityService
	Webhooks     WebhookService
	Orders       OrderService
}

// Server holds the dependencies for the HTTP server, including the logger and service interfaces.
type Server struct {
	log     *slog.Logger
	svc     Services
	admin   AdminVerifier
	vendors VendorVerifier
	limiter Limiter
	limit   int
	window  time.Duration
}

type Option func(*Server)

// WithRateLimit guards the lookup endpoints with limiter, allowing limit
// calls per client per window.
func WithRateLimit(limiter Limiter, limit int, window time.Duration) Option {
	return func(s *Server) {
		s.limiter = limiter
		s.limit = limit
		s.window = window
	}
}

// WithVendorAuth enables the vendor storefront routes.
func WithVendorAuth(v VendorVerifier) Option {
	return func(s *Server) {
		s.vendors = v
	}
}

// NewServer creates a new instance of the HTTP server.
func NewServer(log *slog.Logger, svc Services, admin AdminVerifier, opts ...Option) *Server {
	s := &Server{
		log:   log,
		svc:   svc,
		admin: admin,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Routes sets up the router with all middleware and API endpoints.
func (s *Server) Routes() http.Handler {
	mux := chi.NewRouter()

	mux.Use(s.requestID)
	mux.Use(s.logRequest)
	mux.Use(s.metricsMiddleware)

	swaggerHandler, err := swagger.GetHandler()
	if err != nil {
		s.log.Error("failed to get swagger handler", sl.Err(err))
	} else {
		mux.Mount("/swagger", http.StripPrefix("/swagger", swaggerHandler))
	}

	mux.Handle("/metrics", promhttp.Handler())
	mux.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		s.respond(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.Route("/api/repairs", func(r chi.Router) {
		r.Post("/", s.submitRepair)
		r.Get("/open", s.listOpenRepairs)
		r.Post("/{id}/quote", s.quoteRepair)
		r.Get("/{id}/accept", s.acceptRepair)
		r.Post("/{id}/accept", s.acceptRepair)
		r.Get("/{id}/reject", s.rejectRepair)
		r.Post("/{id}/reject", s.rejectRepair)
		r.Post("/payments/start/{id}", s.startDeposit)
		r.Post("/save-payment-method", s.savePaymentMethod)
		r.Post("/mark-completed", s.markCompleted)
		r.Post("/revise-price", s.revisePrice)
		r.Post("/confirm-completion", s.confirmCompletion)
		r.With(s.adminOnly).Post("/release-payment", s.releasePayment)
		r.With(s.rateLimit("repair-check")).Post("/check", s.checkRepair)
		r.Get("/onboarding/refresh/{accountID}", s.refreshOnboarding)
	})

	mux.Route("/api/properties", func(r chi.Router) {
		r.Post("/", s.createProperty)
		r.Post("/{id}/availability/range", s.setAvailabilityRange)
		r.Get("/{id}/availability", s.availability)
	})

	mux.Route("/api/reservations", func(r chi.Router) {
		r.Post("/", s.submitReservation)
		r.With(s.rateLimit("reservation-check")).Post("/check", s.checkReservation)
		r.Post("/{id}/accept", s.acceptReservation)
		r.Post("/{id}/reject", s.rejectReservation)
		r.Post("/{id}/request-documents", s.requestDocuments)
		r.Post("/{id}/documents", s.submitDocuments)
		r.Post("/{id}/id-verification", s.verifyIdentity)
		r.Post("/{id}/checkout", s.startCheckout)
		r.Post("/{id}/confirm", s.confirmReservation)
	})

	mux.Route("/api/products", func(r chi.Router) {
		r.Get("/", s.listProducts)
		r.With(s.vendorOnly).Post("/", s.createProduct)
		r.With(s.vendorOnly).Delete("/{id}", s.deleteProduct)
	})
	mux.Get("/api/search", s.searchProducts)

	mux.Route("/api/vendors", func(r chi.Router) {
		r.With(s.adminOnly).Post("/", s.createVendor)
		r.Get("/by-name/{name}", s.vendorByName)
		r.Get("/{id}/products", s.vendorProducts)
		r.With(s.vendorOnly).Get("/{id}/reservations", s.vendorReservations)
	})

	mux.Post("/api/reserve-order", s.reserveOrder)
	mux.Route("/api/orders", func(r chi.Router) {
		r.With(s.adminOnly).Get("/", s.customerOrders)
		r.Get("/{id}", s.getOrder)
	})

	mux.Post("/webhook", s.webhook(payment.SourcePlatform))
	mux.Post("/webhook/connected", s.webhook(payment.SourceConnected))

	return mux
}

// respond is a helper function to encode data to JSON and write it to the response.
// It centralizes setting the Content-Type header and writing the status code.
func (s *Server) respond(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)

	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			s.log.Error("failed to encode response", sl.Err(err))
		}
	}
}

// respondError is a convenience wrapper around respond for sending simple error messages.
func (s *Server) respondError(w http.ResponseWriter, code int, message string) {
	s.respond(w, code, map[string]string{"error": message})
}

// decodeAndValidate is a helper that deserializes a JSON request body into a struct
// and then runs validation checks on it.
func (s *Server) decodeAndValidate(r *http.Request, v any) error {
	if err := s.decode(r.Body, v); err != nil {
		return err
	}

	return validation.ValidateStruct(v)
}

// decode is a helper function to decode a JSON request body.
func (s *Server) decode(body io.ReadCloser, v any) error {
	defer body.Close()

	if err := json.NewDecoder(body).Decode(v); err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrInvalidRequest, err)
	}

	return nil
}

// pathID reads a positive integer URL parameter.
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, &apperrors.ValidationError{Field: name, Rule: "id"}
	}

	return id, nil
}

// handleServiceError provides centralized error handling for all HTTP handlers.
// It logs the internal error and maps it to a stable HTTP response.
func (s *Server) handleServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	log := s.log.With(
		slog.String("op", op),
		slog.String("request_id", getRequestID(r.Context())),
	)

	var (
		validationErr *validation.ValidationError
		fieldErr      *apperrors.ValidationError
		transitionErr *apperrors.TransitionError
		preErr        *apperrors.PreconditionError
	)

	switch {
	case errors.As(err, &validationErr):
		log.Info("request rejected", sl.Err(err))
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("%s: %s", apperrors.ErrValidation, validationErr.Error()))
	case errors.As(err, &fieldErr):
		log.Info("request rejected", sl.Err(err))
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("%s: %s", apperrors.ErrValidation, fieldErr.Error()))
	case errors.Is(err, apperrors.ErrInvalidRequest):
		log.Info("request rejected", sl.Err(err))
		s.respondError(w, http.StatusBadRequest, apperrors.ErrInvalidRequest.Error())
	case errors.Is(err, apperrors.ErrNotFound):
		s.respondError(w, http.StatusNotFound, apperrors.ErrNotFound.Error())
	case errors.Is(err, apperrors.ErrForbidden):
		log.Warn("forbidden", sl.Err(err))
		s.respondError(w, http.StatusForbidden, apperrors.ErrForbidden.Error())
	case errors.As(err, &transitionErr):
		log.Info("transition refused", sl.Err(err))
		s.respondError(w, http.StatusConflict, transitionErr.Error())
	case errors.As(err, &preErr):
		log.Info("precondition failed", sl.Err(err))
		s.respondError(w, http.StatusConflict, preErr.Error())
	case errors.Is(err, apperrors.ErrAlreadyExists), errors.Is(err, apperrors.ErrConflict):
		log.Info("conflict", sl.Err(err))
		s.respondError(w, http.StatusConflict, apperrors.ErrConflict.Error())
	case errors.Is(err, apperrors.ErrUpstream):
		log.Error("upstream provider failed", sl.Err(err))
		s.respondError(w, http.StatusBadGateway, apperrors.ErrUpstream.Error())
	default:
		log.Error("service error occurred", sl.Err(err))
		s.respondError(w, http.StatusInternalServerError, "internal server error")
	}
}
