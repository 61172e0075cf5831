package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/AhmedB2023/ecommerce-backend/internal/apperrors"
	"github.com/AhmedB2023/ecommerce-backend/internal/domain"
	"github.com/AhmedB2023/ecommerce-backend/internal/events"
	"github.com/AhmedB2023/ecommerce-backend/internal/notification"
	"github.com/AhmedB2023/ecommerce-backend/internal/payment"
	"github.com/AhmedB2023/ecommerce-backend/internal/repository"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

type NewProperty struct {
	LandlordEmail string
	Title         string
	Address       string
	NightlyPrice  decimal.Decimal
}

type ReservationLookup struct {
	Role        string
	Reservation *domain.Reservation
}

// ReservationService drives rental offers through domain.ReservationFlow.
type ReservationService struct {
	BaseService
	properties   repository.PropertyRepository
	reservations repository.ReservationRepository
	payments     payment.Provider
	frontendURL  string
}

func NewReservationService(
	base BaseService,
	properties repository.PropertyRepository,
	reservations repository.ReservationRepository,
	payments payment.Provider,
	frontendURL string,
) *ReservationService {
	return &ReservationService{
		BaseService:  base,
		properties:   properties,
		reservations: reservations,
		payments:     payments,
		frontendURL:  strings.TrimRight(frontendURL, "/"),
	}
}

func (s *ReservationService) CreateProperty(ctx context.Context, in NewProperty) (*domain.Property, error) {
	const op = "internal.service.ReservationService.CreateProperty"

	if err := firstMissing(
		field{"landlord_email", in.LandlordEmail},
		field{"title", in.Title},
		field{"address", in.Address},
	); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if in.NightlyPrice.IsNegative() {
		return nil, fmt.Errorf("%s: %w", op, &apperrors.ValidationError{Field: "nightly_price", Rule: "gte"})
	}

	p := &domain.Property{
		LandlordEmail: domain.NormalizeEmail(in.LandlordEmail),
		Title:         strings.TrimSpace(in.Title),
		Address:       strings.TrimSpace(in.Address),
		NightlyPrice:  in.NightlyPrice,
	}

	if err := s.properties.CreateProperty(ctx, p); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("property created", slog.String("op", op), slog.Int64("property_id", p.ID))

	return p, nil
}

// Submit places a tenant's offer. The property row is locked for the
// duration so two offers for overlapping dates cannot both pass the check.
func (s *ReservationService) Submit(ctx context.Context, in domain.NewReservation) (*domain.Reservation, error) {
	const op = "internal.service.ReservationService.Submit"

	if err := firstMissing(
		field{"tenant_email", in.TenantEmail},
		field{"tenant_name", in.TenantName},
	); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if in.EndDate.Before(in.StartDate) {
		return nil, fmt.Errorf("%s: %w", op, &apperrors.ValidationError{Field: "end_date", Rule: "gtefield"})
	}
	if in.OfferPrice.IsNegative() {
		return nil, fmt.Errorf("%s: %w", op, &apperrors.ValidationError{Field: "offer_price", Rule: "gte"})
	}

	to, err := domain.ReservationFlow.Next("", domain.ReservationEventSubmit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	res := &domain.Reservation{
		PropertyID:  in.PropertyID,
		TenantEmail: domain.NormalizeEmail(in.TenantEmail),
		TenantName:  strings.TrimSpace(in.TenantName),
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		OfferPrice:  in.OfferPrice,
		Message:     optional(in.Message),
		Status:      to,
	}

	err = s.transaction(ctx, op, func(tx *sqlx.Tx) error {
		p, err := s.properties.GetPropertyWithLock(ctx, tx, in.PropertyID)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		if err := s.checkAvailable(ctx, in); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		overlap, err := s.reservations.HasOverlap(ctx, tx, in.PropertyID, in.StartDate, in.EndDate)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		if overlap {
			return fmt.Errorf("%s: %w: dates overlap an existing reservation", op, apperrors.ErrConflict)
		}

		if err := s.reservations.Create(ctx, tx, res); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		res.LandlordEmail = p.LandlordEmail

		data := reservationData(res, p)
		if res.Message != nil {
			data.Note = *res.Message
		}

		msg := reservationMessage(domain.NotifyReservationSubmitted, p.LandlordEmail, res, "", data)
		if err := s.notifier.Enqueue(ctx, tx, msg); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.published(ctx, res.ID, "", to, domain.ReservationEventSubmit)

	return res, nil
}

func (s *ReservationService) checkAvailable(ctx context.Context, in domain.NewReservation) error {
	rng, err := s.properties.GetAvailability(ctx, in.PropertyID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if !rng.IsAvailable || !rng.Covers(in.StartDate) || !rng.Covers(in.EndDate) {
		return fmt.Errorf("%w: property is not available for the requested dates", apperrors.ErrConflict)
	}

	return nil
}

func (s *ReservationService) RequestDocuments(ctx context.Context, id int64, email, note string) (*domain.Reservation, error) {
	const op = "internal.service.ReservationService.RequestDocuments"

	return s.apply(ctx, op, id, domain.ReservationEventRequestDocuments, domain.RoleLandlord, email,
		func(tx *sqlx.Tx, r *domain.Reservation, p *domain.Property) error {
			r.LandlordNote = optional(note)

			data := reservationData(r, p)
			data.Note = note

			return s.notify(ctx, tx, reservationMessage(domain.NotifyDocumentsRequested, r.TenantEmail, r, "", data))
		})
}

func (s *ReservationService) SubmitDocuments(ctx context.Context, id int64, email string, documents []string) (*domain.Reservation, error) {
	const op = "internal.service.ReservationService.SubmitDocuments"

	if len(documents) == 0 {
		return nil, fmt.Errorf("%s: %w", op, &apperrors.ValidationError{Field: "documents", Rule: "min"})
	}

	return s.apply(ctx, op, id, domain.ReservationEventSubmitDocuments, domain.RoleTenant, email,
		func(tx *sqlx.Tx, r *domain.Reservation, p *domain.Property) error {
			r.Documents = append(r.Documents, documents...)

			suffix := strconv.Itoa(len(r.Documents))
			msg := reservationMessage(domain.NotifyDocumentsSubmitted, r.LandlordEmail, r, suffix, reservationData(r, p))

			return s.notify(ctx, tx, msg)
		})
}

func (s *ReservationService) Accept(ctx context.Context, id int64, email, note string) (*domain.Reservation, error) {
	const op = "internal.service.ReservationService.Accept"

	return s.apply(ctx, op, id, domain.ReservationEventAccept, domain.RoleLandlord, email,
		func(tx *sqlx.Tx, r *domain.Reservation, p *domain.Property) error {
			if n := optional(note); n != nil {
				r.LandlordNote = n
			}

			data := reservationData(r, p)
			data.Note = note

			return s.notify(ctx, tx, reservationMessage(domain.NotifyReservationAccepted, r.TenantEmail, r, "", data))
		})
}

func (s *ReservationService) Reject(ctx context.Context, id int64, email, note string) (*domain.Reservation, error) {
	const op = "internal.service.ReservationService.Reject"

	return s.apply(ctx, op, id, domain.ReservationEventReject, domain.RoleLandlord, email,
		func(tx *sqlx.Tx, r *domain.Reservation, p *domain.Property) error {
			if n := optional(note); n != nil {
				r.LandlordNote = n
			}

			data := reservationData(r, p)
			data.Note = note

			return s.notify(ctx, tx, reservationMessage(domain.NotifyReservationRejected, r.TenantEmail, r, "", data))
		})
}

// VerifyIdentity stores the tenant's ID references. A front image is the
// minimum needed to pass the gate.
func (s *ReservationService) VerifyIdentity(ctx context.Context, id int64, email string, docs domain.IdentityDocuments) (*domain.Reservation, error) {
	const op = "internal.service.ReservationService.VerifyIdentity"

	if strings.TrimSpace(docs.FrontRef) == "" {
		return nil, fmt.Errorf("%s: %w", op, &apperrors.ValidationError{Field: "id_front", Rule: "required"})
	}

	return s.apply(ctx, op, id, domain.ReservationEventVerifyIdentity, domain.RoleTenant, email,
		func(_ *sqlx.Tx, r *domain.Reservation, _ *domain.Property) error {
			now := s.now()
			r.IDFrontRef = optional(docs.FrontRef)
			r.IDBackRef = optional(docs.BackRef)
			r.SelfieRef = optional(docs.SelfieRef)
			r.IDVerifiedAt = &now
			return nil
		})
}

// StartCheckout creates the hosted checkout session for the offer price. A
// tenant returning to checkout gets the same session back.
func (s *ReservationService) StartCheckout(ctx context.Context, id int64, email string) (*domain.Reservation, error) {
	const op = "internal.service.ReservationService.StartCheckout"

	current, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if current.RoleOf(email) != domain.RoleTenant {
		return nil, fmt.Errorf("%s: %w: only the tenant may pay", op, apperrors.ErrForbidden)
	}
	if _, err := domain.ReservationFlow.Next(current.Status, domain.ReservationEventStartCheckout); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !current.OfferPrice.IsPositive() {
		return nil, fmt.Errorf("%s: %w", op, &apperrors.PreconditionError{Reason: "offer price must be positive"})
	}

	p, err := s.properties.GetProperty(ctx, current.PropertyID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	session, err := s.payments.CreateCheckoutSession(ctx, payment.CheckoutRequest{
		IdempotencyKey: fmt.Sprintf("reservation-%d-checkout", id),
		CustomerEmail:  current.TenantEmail,
		ProductName:    p.Title,
		Amount:         current.OfferPrice,
		SuccessURL:     fmt.Sprintf("%s/reservations/%d/paid", s.frontendURL, id),
		CancelURL:      fmt.Sprintf("%s/reservations/%d", s.frontendURL, id),
		Metadata: map[string]string{
			payment.MetaKind:          payment.KindRental,
			payment.MetaReservationID: strconv.FormatInt(id, 10),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return s.apply(ctx, op, id, domain.ReservationEventStartCheckout, domain.RoleTenant, email,
		func(_ *sqlx.Tx, r *domain.Reservation, _ *domain.Property) error {
			r.CheckoutSessionID = &session.ID
			r.CheckoutURL = &session.URL
			return nil
		})
}

// Pay records a completed checkout session. Sessions for reservations that
// are already paid are ignored.
func (s *ReservationService) Pay(ctx context.Context, session *payment.CheckoutSession) error {
	const op = "internal.service.ReservationService.Pay"

	log := s.log.With(slog.String("op", op), slog.String("session_id", session.ID))

	current, err := s.reservationForSession(ctx, session)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if current.Status == domain.ReservationPaid || current.Status == domain.ReservationConfirmed {
		log.Info("reservation already paid", slog.Int64("reservation_id", current.ID))
		return nil
	}

	_, err = s.apply(ctx, op, current.ID, domain.ReservationEventPay, "", "",
		func(tx *sqlx.Tx, r *domain.Reservation, p *domain.Property) error {
			now := s.now()
			r.PaidAt = &now
			if r.CheckoutSessionID == nil {
				r.CheckoutSessionID = &session.ID
			}

			data := reservationData(r, p)

			return s.notify(ctx, tx,
				reservationMessage(domain.NotifyReservationPaid, r.LandlordEmail, r, "", data),
				reservationMessage(domain.NotifyReservationPaidTenant, r.TenantEmail, r, "", data),
			)
		})

	return err
}

func (s *ReservationService) reservationForSession(ctx context.Context, session *payment.CheckoutSession) (*domain.Reservation, error) {
	if raw := session.Metadata[payment.MetaReservationID]; raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad reservation id %q", apperrors.ErrInvalidRequest, raw)
		}
		return s.reservations.GetByID(ctx, id)
	}

	return s.reservations.GetByCheckoutSession(ctx, session.ID)
}

func (s *ReservationService) Confirm(ctx context.Context, id int64, email string) (*domain.Reservation, error) {
	const op = "internal.service.ReservationService.Confirm"

	return s.apply(ctx, op, id, domain.ReservationEventConfirm, domain.RoleLandlord, email,
		func(tx *sqlx.Tx, r *domain.Reservation, p *domain.Property) error {
			return s.notify(ctx, tx, reservationMessage(domain.NotifyReservationConfirmed, r.TenantEmail, r, "", reservationData(r, p)))
		})
}

func (s *ReservationService) Lookup(ctx context.Context, id int64, email string) (*ReservationLookup, error) {
	const op = "internal.service.ReservationService.Lookup"

	r, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	role := r.RoleOf(email)
	if role == "" {
		return nil, fmt.Errorf("%s: %w: email does not match this reservation", op, apperrors.ErrForbidden)
	}

	return &ReservationLookup{Role: role, Reservation: r}, nil
}

// apply fires event on the locked reservation. An empty role skips the
// caller check; webhook-driven events use it.
func (s *ReservationService) apply(
	ctx context.Context,
	op string,
	id int64,
	event domain.ReservationEvent,
	role, email string,
	fn func(tx *sqlx.Tx, r *domain.Reservation, p *domain.Property) error,
) (*domain.Reservation, error) {
	var (
		r        *domain.Reservation
		from, to domain.ReservationStatus
	)

	err := s.transaction(ctx, op, func(tx *sqlx.Tx) error {
		var err error
		r, err = s.reservations.GetByIDWithLock(ctx, tx, id)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		if role != "" && r.RoleOf(email) != role {
			return fmt.Errorf("%s: %w: only the %s may %s", op, apperrors.ErrForbidden, role, event)
		}

		from = r.Status
		to, err = domain.ReservationFlow.Next(from, event)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		p, err := s.properties.GetProperty(ctx, r.PropertyID)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		if err := fn(tx, r, p); err != nil {
			return err
		}

		r.Status = to
		if err := s.reservations.Update(ctx, tx, r); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.published(ctx, r.ID, from, to, event)

	return r, nil
}

func (s *ReservationService) notify(ctx context.Context, tx *sqlx.Tx, msgs ...notification.Message) error {
	if err := s.notifier.Enqueue(ctx, tx, msgs...); err != nil {
		return fmt.Errorf("internal.service.ReservationService.notify: %w", err)
	}
	return nil
}

func (s *ReservationService) published(ctx context.Context, id int64, from, to domain.ReservationStatus, event domain.ReservationEvent) {
	fromLabel := string(from)
	if fromLabel == "" {
		fromLabel = "none"
	}

	s.committed(ctx, domain.ReservationFlow.Entity(), events.ChannelReservations, events.Event{
		Type:     events.TypeReservationStatusChanged,
		EntityID: id,
		From:     fromLabel,
		To:       string(to),
		Event:    string(event),
	})
}
