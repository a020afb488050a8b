package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"coop-loans/service"
)

type MemberHandler struct {
	members *service.MemberService
	loans   *service.LoanService
	logger  *zap.Logger
}

func NewMemberHandler(members *service.MemberService, loans *service.LoanService, logger *zap.Logger) *MemberHandler {
	return &MemberHandler{members: members, loans: loans, logger: logger}
}

type registerMemberRequest struct {
	Name string `json:"name"`
}

func (h *MemberHandler) RegisterMember(w http.ResponseWriter, r *http.Request) {
	var req registerMemberRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	member, err := h.members.RegisterMember(r.Context(), req.Name)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, member)
}

func (h *MemberHandler) GetMember(w http.ResponseWriter, r *http.Request) {
	summary, err := h.members.GetMember(r.Context(), chi.URLParam(r, "memberID"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, summary)
}

type contributionRequest struct {
	Amount float64 `json:"amount"`
}

func (h *MemberHandler) RecordContribution(w http.ResponseWriter, r *http.Request) {
	var req contributionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	summary, err := h.members.RecordContribution(r.Context(), chi.URLParam(r, "memberID"), req.Amount)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, summary)
}

func (h *MemberHandler) ListContributions(w http.ResponseWriter, r *http.Request) {
	contributions, err := h.members.ListContributions(r.Context(), chi.URLParam(r, "memberID"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, contributions)
}

func (h *MemberHandler) ListLoans(w http.ResponseWriter, r *http.Request) {
	loans, err := h.loans.ListMemberLoans(r.Context(), chi.URLParam(r, "memberID"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, loans)
}
