// Package metrics holds the Prometheus collectors for the cooperative loan
// service. Collectors register on the default registry at init, so the
// /metrics handler from promhttp picks them up without extra wiring.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EligibilityDecisions counts eligibility evaluations by outcome and by
	// the rule that rejected them ("none" when eligible).
	EligibilityDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coop_eligibility_decisions_total",
		Help: "Loan eligibility evaluations by outcome and rejecting rule.",
	}, []string{"outcome", "rule"})

	LoansIssued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coop_loans_issued_total",
		Help: "Loans issued by tier.",
	}, []string{"tier"})

	LoanPrincipal = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "coop_loan_principal",
		Help:    "Principal of issued loans.",
		Buckets: prometheus.ExponentialBuckets(1_000, 2, 12),
	}, []string{"tier"})

	RepaymentsRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "coop_repayments_recorded_total",
		Help: "Installments marked as paid.",
	})

	LoansRepaid = promauto.NewCounter(prometheus.CounterOpts{
		Name: "coop_loans_repaid_total",
		Help: "Loans closed after their last installment was paid.",
	})

	ContributionsRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "coop_contributions_recorded_total",
		Help: "Member contributions recorded.",
	})

	PreviewCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coop_schedule_preview_cache_total",
		Help: "Schedule preview cache lookups by result (hit, miss).",
	}, []string{"result"})

	RateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "coop_http_rate_limited_total",
		Help: "Requests rejected by the per-client rate limiter.",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "coop_http_request_duration_seconds",
		Help:    "HTTP request latency by route pattern, method and status.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method", "status"})
)

// ObserveEligibility records one eligibility evaluation.
func ObserveEligibility(eligible bool, rule string) {
	outcome := "rejected"
	if eligible {
		outcome = "eligible"
		rule = "none"
	}
	EligibilityDecisions.WithLabelValues(outcome, rule).Inc()
}
