package http

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/AhmedB2023/ecommerce-backend/internal/apperrors"
	"github.com/AhmedB2023/ecommerce-backend/pkg/logger/sl"
)

func (s *Server) logRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := getRequestID(r.Context())

		log := s.log.With(
			slog.String("request_id", requestID),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("remote_addr", r.RemoteAddr),
			slog.String("user_agent", r.UserAgent()),
		)
		log.Info("request started")

		t1 := time.Now()

		next.ServeHTTP(w, r)

		log.Info("request completed",
			slog.String("duration", time.Since(t1).String()),
		)
	})
}

// adminOnly requires a valid admin bearer token.
func (s *Server) adminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		const op = "internal.transport.http.adminOnly"

		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" {
			s.respondError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		if s.admin == nil {
			s.handleServiceError(w, r, op, apperrors.ErrForbidden)
			return
		}

		claims, err := s.admin.ParseAdmin(token)
		if err != nil {
			s.handleServiceError(w, r, op, err)
			return
		}

		s.log.Info("admin request",
			slog.String("request_id", getRequestID(r.Context())),
			slog.String("subject", claims.Subject),
			slog.String("path", r.URL.Path),
		)

		next.ServeHTTP(w, r)
	})
}

// vendorOnly requires a vendor bearer token and exposes the vendor id to the
// handler through the request context.
func (s *Server) vendorOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		const op = "internal.transport.http.vendorOnly"

		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" {
			s.respondError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		if s.vendors == nil {
			s.handleServiceError(w, r, op, apperrors.ErrForbidden)
			return
		}

		vendorID, err := s.vendors.ParseVendor(token)
		if err != nil {
			s.handleServiceError(w, r, op, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), vendorIDKey, vendorID)))
	})
}

func vendorFromContext(ctx context.Context) int64 {
	id, _ := ctx.Value(vendorIDKey).(int64)
	return id
}

// rateLimit caps calls per client address within the configured window.
// The limiter failing lets the request through.
func (s *Server) rateLimit(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if s.limiter == nil || s.limit <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			key := "rl:" + scope + ":" + clientIP(r)

			count, err := s.limiter.Hit(r.Context(), key, s.window)
			if err != nil {
				s.log.Warn("rate limiter unavailable", slog.String("key", key), sl.Err(err))
				next.ServeHTTP(w, r)
				return
			}

			if count > int64(s.limit) {
				w.Header().Set("Retry-After", retryAfter(s.window))
				s.respondError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return host
}

func retryAfter(window time.Duration) string {
	secs := int(window / time.Second)
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}
