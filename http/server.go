// Package http exposes the cooperative loan service as a JSON API.
package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"coop-loans/domain"
	"coop-loans/metrics"
	"coop-loans/service"
)

const (
	maxBodyBytes = 1 << 20

	// defaultRequestTimeout stays under the default 15s write timeout.
	defaultRequestTimeout = 10 * time.Second
)

// Server wires handlers, middleware and routes.
type Server struct {
	members        *MemberHandler
	loans          *LoanHandler
	tiers          *TierHandler
	limiter        *RateLimiter
	logger         *zap.Logger
	metricsEnabled bool
	requestTimeout time.Duration
}

// NewServer creates the API server. limiter may be nil to disable rate
// limiting.
func NewServer(
	memberService *service.MemberService,
	loanService *service.LoanService,
	limiter *RateLimiter,
	logger *zap.Logger,
) *Server {
	return &Server{
		members:        NewMemberHandler(memberService, loanService, logger),
		loans:          NewLoanHandler(loanService, logger),
		tiers:          NewTierHandler(loanService, logger),
		limiter:        limiter,
		logger:         logger,
		requestTimeout: defaultRequestTimeout,
	}
}

// EnableMetrics mounts the Prometheus /metrics endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// SetRequestTimeout bounds how long a handler may run before the client gets
// a 504. It must be shorter than the http.Server WriteTimeout or the 504 can
// never be written. Zero disables the limit.
func (s *Server) SetRequestTimeout(d time.Duration) { s.requestTimeout = d }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	if s.requestTimeout > 0 {
		r.Use(middleware.Timeout(s.requestTimeout))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, s.logger, http.StatusOK, map[string]string{"status": "ok"})
	})

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		if s.limiter != nil {
			r.Use(RateLimitMiddleware(s.limiter))
		}

		r.Get("/tiers", s.tiers.ListTiers)
		r.Get("/tiers/classify", s.tiers.ClassifyTier)
		r.Post("/eligibility", s.tiers.CheckEligibility)
		r.Post("/schedules/preview", s.tiers.PreviewSchedule)
		r.Post("/schedules/recommend", s.tiers.RecommendDuration)

		r.Post("/members", s.members.RegisterMember)
		r.Route("/members/{memberID}", func(r chi.Router) {
			r.Get("/", s.members.GetMember)
			r.Post("/contributions", s.members.RecordContribution)
			r.Get("/contributions", s.members.ListContributions)
			r.Get("/loans", s.members.ListLoans)
		})

		r.Post("/loans", s.loans.Apply)
		r.Get("/loans/{loanID}", s.loans.GetLoan)
		r.Post("/loans/{loanID}/installments/{number}/pay", s.loans.PayInstallment)
	})

	return r
}

// requestLogger logs each request and records its latency by route pattern.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		elapsed := time.Since(start)
		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.HTTPRequestDuration.
			WithLabelValues(route, r.Method, strconv.Itoa(status)).
			Observe(elapsed.Seconds())

		s.logger.Debug("request",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("elapsed", elapsed))
	})
}

// writeJSON encodes v before committing the status, so a value that cannot
// be encoded becomes a 500 instead of an empty 200.
func writeJSON(w http.ResponseWriter, logger *zap.Logger, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		logger.Error("encode response", zap.Int("status", status), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(append(data, '\n')); err != nil {
		logger.Debug("write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(v)
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrMemberNotFound),
		errors.Is(err, domain.ErrLoanNotFound),
		errors.Is(err, domain.ErrInstallmentNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInstallmentPaid),
		errors.Is(err, domain.ErrLoanClosed):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidDuration),
		errors.Is(err, domain.ErrInvalidName),
		errors.Is(err, domain.ErrUnknownTier),
		errors.Is(err, domain.ErrInvalidPreference):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNoDurationFits):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError hides internal error text behind a generic message.
func writeServiceError(w http.ResponseWriter, logger *zap.Logger, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error("request failed", zap.Error(err))
		writeError(w, status, "internal server error")
		return
	}
	writeError(w, status, err.Error())
}
