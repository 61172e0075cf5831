package http

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/AhmedB2023/ecommerce-backend/internal/apperrors"
	"github.com/AhmedB2023/ecommerce-backend/internal/payment"
	"github.com/AhmedB2023/ecommerce-backend/pkg/logger/sl"
)

const (
	signatureHeader = "Stripe-Signature"
	maxWebhookBody  = int64(65536)
)

// webhook verifies and dispatches a provider delivery. Any non-2xx answer
// makes the provider redeliver.
func (s *Server) webhook(source payment.EventSource) http.HandlerFunc {
	const op = "internal.transport.http.webhook"

	return func(w http.ResponseWriter, r *http.Request) {
		payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
		if err != nil {
			s.respondError(w, http.StatusRequestEntityTooLarge, "payload too large")
			return
		}

		err = s.svc.Webhooks.Handle(r.Context(), payload, r.Header.Get(signatureHeader), source)
		switch {
		case err == nil:
			s.respond(w, http.StatusOK, map[string]bool{"received": true})
		case errors.Is(err, apperrors.ErrInvalidRequest):
			s.log.Warn("webhook rejected",
				slog.String("op", op),
				slog.String("source", string(source)),
				sl.Err(err),
			)
			s.respondError(w, http.StatusBadRequest, "invalid webhook")
		default:
			s.handleServiceError(w, r, op, err)
		}
	}
}
