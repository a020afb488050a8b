package http

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"coop-loans/domain"
	"coop-loans/service"
)

type LoanHandler struct {
	service *service.LoanService
	logger  *zap.Logger
}

func NewLoanHandler(service *service.LoanService, logger *zap.Logger) *LoanHandler {
	return &LoanHandler{service: service, logger: logger}
}

// Apply answers 201 with the loan when the application is accepted and 200
// with the rejection reason otherwise.
func (h *LoanHandler) Apply(w http.ResponseWriter, r *http.Request) {
	var app domain.LoanApplication
	if err := decodeJSON(w, r, &app); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	decision, err := h.service.Apply(r.Context(), app)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	status := http.StatusOK
	if decision.Eligible {
		status = http.StatusCreated
	}
	writeJSON(w, h.logger, status, decision)
}

func (h *LoanHandler) GetLoan(w http.ResponseWriter, r *http.Request) {
	loan, err := h.service.GetLoan(r.Context(), chi.URLParam(r, "loanID"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, loan)
}

func (h *LoanHandler) PayInstallment(w http.ResponseWriter, r *http.Request) {
	number, err := strconv.Atoi(chi.URLParam(r, "number"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "installment number must be an integer")
		return
	}

	loan, err := h.service.RecordRepayment(r.Context(), chi.URLParam(r, "loanID"), number)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, loan)
}
