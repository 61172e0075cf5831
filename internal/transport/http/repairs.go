package http

import (
	"net/http"

	"github.com/AhmedB2023/ecommerce-backend/internal/apperrors"
	"github.com/AhmedB2023/ecommerce-backend/internal/domain"
	"github.com/AhmedB2023/ecommerce-backend/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// repairResponse is returned to callers that proved they are a party to
// the job with its code.
type repairResponse struct {
	Repair *domain.RepairRequest `json:"repair"`
}

// listingResponse is returned where the caller is not yet known to be a
// party to the job.
type listingResponse struct {
	Repair domain.RepairListing `json:"repair"`
}

type submitResponse struct {
	Success  bool   `json:"success"`
	RepairID int64  `json:"repairId"`
	JobCode  string `json:"job_code"`
}

func (s *Server) submitRepair(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.submitRepair"

	var req submitRepairRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	repair, err := s.svc.Repairs.Submit(r.Context(), domain.NewRepairRequest{
		Description:     req.Description,
		ImageURLs:       req.ImageURLs,
		CustomerAddress: req.CustomerAddress,
		PreferredTime:   req.PreferredTime,
		RequesterEmail:  req.RequesterEmail,
	})
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusCreated, submitResponse{Success: true, RepairID: repair.ID, JobCode: repair.JobCode})
}

func (s *Server) listOpenRepairs(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.listOpenRepairs"

	repairs, err := s.svc.Repairs.ListOpen(r.Context())
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	listings := make([]domain.RepairListing, 0, len(repairs))
	for i := range repairs {
		listings = append(listings, repairs[i].Listing())
	}

	s.respond(w, http.StatusOK, map[string][]domain.RepairListing{"repairs": listings})
}

func (s *Server) quoteRepair(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.quoteRepair"

	id, err := pathID(r, "id")
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	var req quoteRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	repair, err := s.svc.Repairs.Quote(r.Context(), id, domain.ProviderQuote{
		Email:     req.ProviderEmail,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		City:      req.City,
		Price:     req.PriceQuote,
	})
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, listingResponse{Repair: repair.Listing()})
}

// acceptRepair serves both the emailed link (GET) and the API call (POST).
func (s *Server) acceptRepair(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.acceptRepair"

	id, code, err := idAndCode(r)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	res, err := s.svc.Repairs.Accept(r.Context(), id, code)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, repairResponse{Repair: res.Repair})
}

func (s *Server) rejectRepair(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.rejectRepair"

	id, code, err := idAndCode(r)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	repair, err := s.svc.Repairs.Reject(r.Context(), id, code)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, repairResponse{Repair: repair})
}

func (s *Server) startDeposit(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.startDeposit"

	id, err := pathID(r, "id")
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	res, err := s.svc.Repairs.StartDeposit(r.Context(), id)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, struct {
		RepairID        int64           `json:"repair_id"`
		PaymentIntentID string          `json:"payment_intent_id"`
		ClientSecret    string          `json:"client_secret"`
		Amount          decimal.Decimal `json:"amount"`
	}{res.RepairID, res.PaymentIntentID, res.ClientSecret, res.Amount})
}

func (s *Server) savePaymentMethod(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.savePaymentMethod"

	var req savePaymentMethodRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	repair, err := s.svc.Repairs.SavePaymentMethod(r.Context(), service.SavePaymentMethodInput{
		RepairID:        req.RepairID,
		PaymentIntentID: req.PaymentIntentID,
	})
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, listingResponse{Repair: repair.Listing()})
}

func (s *Server) markCompleted(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.markCompleted"

	var req markCompletedRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	repair, err := s.svc.Repairs.MarkCompleted(r.Context(), service.CompletionInput{
		JobCode:    req.JobCode,
		Email:      req.Email,
		FinalPrice: req.FinalPrice,
	})
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, repairResponse{Repair: repair})
}

func (s *Server) revisePrice(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.revisePrice"

	var req revisePriceRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	repair, err := s.svc.Repairs.RevisePrice(r.Context(), service.RevisePriceInput{
		JobCode:       req.JobCode,
		Email:         req.Email,
		FinalPrice:    req.FinalPrice,
		MaterialsCost: req.MaterialsCost,
	})
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, repairResponse{Repair: repair})
}

type confirmResponse struct {
	Repair              *domain.RepairRequest `json:"repair"`
	Charged             decimal.Decimal       `json:"charged"`
	ApplicationFee      decimal.Decimal       `json:"application_fee"`
	TransferredOnCharge decimal.Decimal       `json:"transferred_on_charge"`
	Payout              *domain.PayoutResult  `json:"payout,omitempty"`
}

func (s *Server) confirmCompletion(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.confirmCompletion"

	var req jobCodeRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	res, err := s.svc.Repairs.ConfirmCompletion(r.Context(), req.JobCode, req.Email)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, confirmResponse{
		Repair:              res.Repair,
		Charged:             res.Charged,
		ApplicationFee:      res.ApplicationFee,
		TransferredOnCharge: res.TransferredOnCharge,
		Payout:              res.Payout,
	})
}

// releasePayment answers 200 for soft failures; the reason is in the body.
func (s *Server) releasePayment(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.releasePayment"

	var req releasePaymentRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	res, err := s.svc.Payouts.Release(r.Context(), req.RepairID)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, res)
}

func (s *Server) checkRepair(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.checkRepair"

	var req jobCodeRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	res, err := s.svc.Repairs.Lookup(r.Context(), req.JobCode, req.Email)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, struct {
		Role   string                `json:"role"`
		Repair *domain.RepairRequest `json:"repair"`
	}{res.Role, res.Repair})
}

// refreshOnboarding is the return target of an expired onboarding link.
func (s *Server) refreshOnboarding(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.refreshOnboarding"

	accountID := chi.URLParam(r, "accountID")
	if accountID == "" {
		s.handleServiceError(w, r, op, &apperrors.ValidationError{Field: "accountID", Rule: "required"})
		return
	}

	link, err := s.svc.Accounts.OnboardingRefresh(r.Context(), accountID)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	http.Redirect(w, r, link, http.StatusFound)
}

func idAndCode(r *http.Request) (int64, string, error) {
	id, err := pathID(r, "id")
	if err != nil {
		return 0, "", err
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		return 0, "", &apperrors.ValidationError{Field: "code", Rule: "required"}
	}

	return id, code, nil
}
