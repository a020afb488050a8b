package http

import (
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"coop-loans/domain"
	"coop-loans/metrics"
	"coop-loans/service"
)

// TierHandler serves the stateless calculators: tier lookup, eligibility
// checks and schedule previews.
type TierHandler struct {
	service *service.LoanService
	logger  *zap.Logger
}

func NewTierHandler(service *service.LoanService, logger *zap.Logger) *TierHandler {
	return &TierHandler{service: service, logger: logger}
}

func (h *TierHandler) ListTiers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, h.service.Tiers())
}

type classifyResponse struct {
	Contribution  float64     `json:"contribution"`
	Tier          domain.Tier `json:"tier"`
	MaxLoanAmount float64     `json:"max_loan_amount"`
}

func (h *TierHandler) ClassifyTier(w http.ResponseWriter, r *http.Request) {
	contribution, err := strconv.ParseFloat(r.URL.Query().Get("contribution"), 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "contribution must be a number")
		return
	}
	if err := service.RequireFinite("contribution", contribution); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, h.logger, http.StatusOK, classifyResponse{
		Contribution:  contribution,
		Tier:          service.CalculateUserTier(contribution),
		MaxLoanAmount: service.MaxLoanFor(contribution),
	})
}

type eligibilityRequest struct {
	Contribution    float64 `json:"contribution"`
	RequestedAmount float64 `json:"requested_amount"`
	HasActiveLoan   bool    `json:"has_active_loan"`
}

func (h *TierHandler) CheckEligibility(w http.ResponseWriter, r *http.Request) {
	var req eligibilityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := errors.Join(
		service.RequireFinite("contribution", req.Contribution),
		service.RequireFinite("requested_amount", req.RequestedAmount),
	); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result := service.IsEligibleForLoan(req.Contribution, req.RequestedAmount, req.HasActiveLoan)
	metrics.ObserveEligibility(result.Eligible, string(result.Rule))
	writeJSON(w, h.logger, http.StatusOK, result)
}

type previewRequest struct {
	Principal      float64 `json:"principal"`
	Tier           string  `json:"tier"`
	DurationMonths int     `json:"duration_months"`
}

func (h *TierHandler) PreviewSchedule(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	tier, err := domain.ParseTier(req.Tier)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	preview, err := h.service.PreviewSchedule(r.Context(), req.Principal, tier, req.DurationMonths)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, preview)
}

func (h *TierHandler) RecommendDuration(w http.ResponseWriter, r *http.Request) {
	var req domain.DurationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rec, err := service.RecommendDuration(req)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, rec)
}
