package http

import (
	"bytes"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"coop-loans/domain"
	"coop-loans/repository"
	"coop-loans/service"
)

func newTestHandler(t *testing.T, limiter *RateLimiter) http.Handler {
	t.Helper()
	store := repository.NewMemoryStore()
	members := service.NewMemberService(store, zap.NewNop())
	loans := service.NewLoanService(store, store, repository.NewMemoryCache(), zap.NewNop())
	srv := NewServer(members, loans, limiter, zap.NewNop())
	srv.EnableMetrics()
	return srv.Handler()
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	h := newTestHandler(t, nil)
	w := do(t, h, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestHandler(t, nil)
	do(t, h, http.MethodGet, "/api/v1/tiers", nil)

	w := do(t, h, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "coop_http_request_duration_seconds")
}

func TestListTiers(t *testing.T) {
	h := newTestHandler(t, nil)
	w := do(t, h, http.MethodGet, "/api/v1/tiers", nil)
	require.Equal(t, http.StatusOK, w.Code)

	tiers := decode[[]domain.TierDefinition](t, w)
	require.Len(t, tiers, 2)
	assert.Equal(t, domain.TierBasic, tiers[0].Tier)
	assert.Equal(t, domain.TierPremium, tiers[1].Tier)
	assert.Contains(t, w.Body.String(), `"tier":"Premium"`)
}

func TestClassifyTier(t *testing.T) {
	h := newTestHandler(t, nil)

	w := do(t, h, http.MethodGet, "/api/v1/tiers/classify?contribution=20000", nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[classifyResponse](t, w)
	assert.Equal(t, domain.TierPremium, got.Tier)
	assert.Equal(t, 40_000.0, got.MaxLoanAmount)

	w = do(t, h, http.MethodGet, "/api/v1/tiers/classify?contribution=abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestClassifyTier_NonFiniteContribution(t *testing.T) {
	h := newTestHandler(t, nil)

	for _, v := range []string{"NaN", "Inf", "-Inf", "1e999"} {
		w := do(t, h, http.MethodGet, "/api/v1/tiers/classify?contribution="+v, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, v)
		assert.Contains(t, w.Body.String(), "error", v)
	}
}

func TestWriteJSON_UnencodableValueIs500(t *testing.T) {
	w := httptest.NewRecorder()
	writeJSON(w, zap.NewNop(), http.StatusOK, map[string]float64{"x": math.NaN()})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "internal server error")
}

func TestCheckEligibility(t *testing.T) {
	h := newTestHandler(t, nil)

	w := do(t, h, http.MethodPost, "/api/v1/eligibility", eligibilityRequest{Contribution: 20_000, RequestedAmount: 40_000})
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[domain.LoanEligibilityResult](t, w).Eligible)

	w = do(t, h, http.MethodPost, "/api/v1/eligibility", eligibilityRequest{Contribution: 20_000, RequestedAmount: 40_000, HasActiveLoan: true})
	require.Equal(t, http.StatusOK, w.Code)
	result := decode[domain.LoanEligibilityResult](t, w)
	assert.False(t, result.Eligible)
	assert.Equal(t, domain.RuleActiveLoan, result.Rule)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/eligibility", bytes.NewBufferString(`{invalid-json}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEligibility_MethodNotAllowed(t *testing.T) {
	h := newTestHandler(t, nil)
	w := do(t, h, http.MethodGet, "/api/v1/eligibility", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestPreviewSchedule(t *testing.T) {
	h := newTestHandler(t, nil)

	w := do(t, h, http.MethodPost, "/api/v1/schedules/preview", previewRequest{Principal: 30_000, Tier: "basic", DurationMonths: 3})
	require.Equal(t, http.StatusOK, w.Code)
	preview := decode[domain.SchedulePreview](t, w)
	require.Len(t, preview.Installments, 3)
	assert.InDelta(t, 10_750, preview.Installments[0].TotalAmount, 1e-6)

	w = do(t, h, http.MethodPost, "/api/v1/schedules/preview", previewRequest{Principal: 30_000, Tier: "gold", DurationMonths: 3})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, http.MethodPost, "/api/v1/schedules/preview", previewRequest{Principal: 30_000, Tier: "Basic", DurationMonths: 12})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMemberAndLoanLifecycle(t *testing.T) {
	h := newTestHandler(t, nil)

	w := do(t, h, http.MethodPost, "/api/v1/members", registerMemberRequest{Name: "Amina"})
	require.Equal(t, http.StatusCreated, w.Code)
	member := decode[domain.Member](t, w)

	w = do(t, h, http.MethodPost, "/api/v1/members/"+member.ID+"/contributions", contributionRequest{Amount: 6_000})
	require.Equal(t, http.StatusCreated, w.Code)
	summary := decode[domain.MemberSummary](t, w)
	assert.Equal(t, domain.TierBasic, summary.Tier)
	assert.Equal(t, 12_000.0, summary.MaxLoanAmount)

	w = do(t, h, http.MethodGet, "/api/v1/members/"+member.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// Over the ceiling: a 200 decision, not an error.
	w = do(t, h, http.MethodPost, "/api/v1/loans", domain.LoanApplication{MemberID: member.ID, Amount: 12_000.01, DurationMonths: 2})
	require.Equal(t, http.StatusOK, w.Code)
	rejected := decode[domain.LoanDecision](t, w)
	assert.False(t, rejected.Eligible)
	assert.Contains(t, rejected.Reason, "Maximum")

	w = do(t, h, http.MethodPost, "/api/v1/loans", domain.LoanApplication{MemberID: member.ID, Amount: 2_000, DurationMonths: 2})
	require.Equal(t, http.StatusCreated, w.Code)
	accepted := decode[domain.LoanDecision](t, w)
	require.NotNil(t, accepted.Loan)
	loanID := accepted.Loan.ID

	w = do(t, h, http.MethodGet, "/api/v1/loans/"+loanID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, h, http.MethodPost, "/api/v1/loans/"+loanID+"/installments/1/pay", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, h, http.MethodPost, "/api/v1/loans/"+loanID+"/installments/1/pay", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, h, http.MethodPost, "/api/v1/loans/"+loanID+"/installments/x/pay", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, http.MethodPost, "/api/v1/loans/"+loanID+"/installments/2/pay", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.LoanRepaid, decode[domain.Loan](t, w).Status)

	w = do(t, h, http.MethodGet, "/api/v1/members/"+member.ID+"/loans", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]domain.Loan](t, w), 1)

	w = do(t, h, http.MethodGet, "/api/v1/members/"+member.ID+"/contributions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]domain.Contribution](t, w), 1)
}

func TestNotFoundAndValidationStatuses(t *testing.T) {
	h := newTestHandler(t, nil)

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/api/v1/members/ghost", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/api/v1/loans/ghost", nil).Code)
	assert.Equal(t, http.StatusBadRequest,
		do(t, h, http.MethodPost, "/api/v1/members", registerMemberRequest{Name: ""}).Code)
	assert.Equal(t, http.StatusNotFound,
		do(t, h, http.MethodPost, "/api/v1/loans", domain.LoanApplication{MemberID: "ghost", Amount: 10, DurationMonths: 1}).Code)
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter := NewRateLimiter(2, time.Minute)
	defer limiter.Stop()
	h := newTestHandler(t, limiter)

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/api/v1/tiers", nil).Code)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/api/v1/tiers", nil).Code)

	w := do(t, h, http.MethodGet, "/api/v1/tiers", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/health", nil).Code, "health is not rate limited")
}

func TestRecommendDuration(t *testing.T) {
	h := newTestHandler(t, nil)

	w := do(t, h, http.MethodPost, "/api/v1/schedules/recommend", domain.DurationRequest{
		Tier: "Premium", Principal: 12_000, MaxMonthlyPayment: 2_000, Preference: domain.PreferMinimizeInterest,
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 7, decode[domain.DurationRecommendation](t, w).RecommendedMonths)

	w = do(t, h, http.MethodPost, "/api/v1/schedules/recommend", domain.DurationRequest{
		Tier: "Basic", Principal: 60_000, MaxMonthlyPayment: 500,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}
