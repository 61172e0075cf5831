package http

import (
	"context"
	"net/http"
	"time"

	"github.com/AhmedB2023/ecommerce-backend/internal/apperrors"
	"github.com/AhmedB2023/ecommerce-backend/internal/domain"
	"github.com/AhmedB2023/ecommerce-backend/internal/service"
	"github.com/AhmedB2023/ecommerce-backend/internal/validation"
)

type reservationResponse struct {
	Reservation *domain.Reservation `json:"reservation"`
}

func (s *Server) createProperty(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.createProperty"

	var req createPropertyRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	p, err := s.svc.Reservations.CreateProperty(r.Context(), service.NewProperty{
		LandlordEmail: req.LandlordEmail,
		Title:         req.Title,
		Address:       req.Address,
		NightlyPrice:  req.NightlyPrice,
	})
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusCreated, map[string]*domain.Property{"property": p})
}

func (s *Server) setAvailabilityRange(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.setAvailabilityRange"

	id, err := pathID(r, "id")
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	var req availabilityRangeRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	// Tags already checked the format.
	from, _ := validation.ParseDate(req.StartDate)

	var to *time.Time
	if req.EndDate != "" {
		end, _ := validation.ParseDate(req.EndDate)
		to = &end
	}

	available := req.IsAvailable == nil || *req.IsAvailable

	rng, err := s.svc.Availability.SetRange(r.Context(), id, from, to, available, req.Note)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, map[string]*domain.AvailabilityRange{"range": rng})
}

func (s *Server) availability(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.availability"

	id, err := pathID(r, "id")
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	q := r.URL.Query()
	from, err := validation.ParseDate(q.Get("from"))
	if err != nil {
		s.handleServiceError(w, r, op, &apperrors.ValidationError{Field: "from", Rule: "iso_date"})
		return
	}
	to, err := validation.ParseDate(q.Get("to"))
	if err != nil {
		s.handleServiceError(w, r, op, &apperrors.ValidationError{Field: "to", Rule: "iso_date"})
		return
	}

	days, err := s.svc.Availability.Days(r.Context(), id, from, to)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, map[string]any{"property_id": id, "days": days})
}

func (s *Server) submitReservation(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.submitReservation"

	var req submitReservationRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	start, _ := validation.ParseDate(req.StartDate)
	end, _ := validation.ParseDate(req.EndDate)

	res, err := s.svc.Reservations.Submit(r.Context(), domain.NewReservation{
		PropertyID:  req.PropertyID,
		TenantEmail: req.TenantEmail,
		TenantName:  req.TenantName,
		StartDate:   start,
		EndDate:     end,
		OfferPrice:  req.OfferPrice,
		Message:     req.Message,
	})
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusCreated, reservationResponse{Reservation: res})
}

func (s *Server) checkReservation(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.checkReservation"

	var req reservationCheckRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	res, err := s.svc.Reservations.Lookup(r.Context(), req.ReservationID, req.Email)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, struct {
		Role        string              `json:"role"`
		Reservation *domain.Reservation `json:"reservation"`
	}{res.Role, res.Reservation})
}

type partyAction func(ctx context.Context, id int64, email, note string) (*domain.Reservation, error)

// party runs a landlord or tenant action that takes an email and an
// optional note.
func (s *Server) party(w http.ResponseWriter, r *http.Request, op string, action partyAction) {
	id, err := pathID(r, "id")
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	var req partyRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	res, err := action(r.Context(), id, req.Email, req.Note)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, reservationResponse{Reservation: res})
}

func (s *Server) acceptReservation(w http.ResponseWriter, r *http.Request) {
	s.party(w, r, "internal.transport.http.acceptReservation", s.svc.Reservations.Accept)
}

func (s *Server) rejectReservation(w http.ResponseWriter, r *http.Request) {
	s.party(w, r, "internal.transport.http.rejectReservation", s.svc.Reservations.Reject)
}

func (s *Server) requestDocuments(w http.ResponseWriter, r *http.Request) {
	s.party(w, r, "internal.transport.http.requestDocuments", s.svc.Reservations.RequestDocuments)
}

func (s *Server) startCheckout(w http.ResponseWriter, r *http.Request) {
	s.party(w, r, "internal.transport.http.startCheckout",
		func(ctx context.Context, id int64, email, _ string) (*domain.Reservation, error) {
			return s.svc.Reservations.StartCheckout(ctx, id, email)
		})
}

func (s *Server) confirmReservation(w http.ResponseWriter, r *http.Request) {
	s.party(w, r, "internal.transport.http.confirmReservation",
		func(ctx context.Context, id int64, email, _ string) (*domain.Reservation, error) {
			return s.svc.Reservations.Confirm(ctx, id, email)
		})
}

func (s *Server) submitDocuments(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.submitDocuments"

	id, err := pathID(r, "id")
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	var req documentsRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	res, err := s.svc.Reservations.SubmitDocuments(r.Context(), id, req.Email, req.Documents)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, reservationResponse{Reservation: res})
}

func (s *Server) verifyIdentity(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.verifyIdentity"

	id, err := pathID(r, "id")
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	var req identityRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	res, err := s.svc.Reservations.VerifyIdentity(r.Context(), id, req.Email, domain.IdentityDocuments{
		FrontRef:  req.IDFront,
		BackRef:   req.IDBack,
		SelfieRef: req.SelfieRef,
	})
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, reservationResponse{Reservation: res})
}
