package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	LoansSubmitted prometheus.Counter
	LoansApproved  prometheus.Counter
	LoansRejected  prometheus.Counter
	LoansIssued    prometheus.Counter
	LoansCompleted prometheus.Counter
	LoansDefaulted prometheus.Counter
	Contributions  prometheus.Counter
	Payments       prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		LoansSubmitted: f.NewCounter(prometheus.CounterOpts{
			Name: "bazaar_loans_submitted_total",
			Help: "Total number of loan applications submitted",
		}),
		LoansApproved: f.NewCounter(prometheus.CounterOpts{
			Name: "bazaar_loans_approved_total",
			Help: "Total number of loans approved after credit evaluation",
		}),
		LoansRejected: f.NewCounter(prometheus.CounterOpts{
			Name: "bazaar_loans_rejected_total",
			Help: "Total number of loans rejected after credit evaluation",
		}),
		LoansIssued: f.NewCounter(prometheus.CounterOpts{
			Name: "bazaar_loans_issued_total",
			Help: "Total number of loans disbursed",
		}),
		LoansCompleted: f.NewCounter(prometheus.CounterOpts{
			Name: "bazaar_loans_completed_total",
			Help: "Total number of loans fully repaid",
		}),
		LoansDefaulted: f.NewCounter(prometheus.CounterOpts{
			Name: "bazaar_loans_defaulted_total",
			Help: "Total number of loans marked as defaulted",
		}),
		Contributions: f.NewCounter(prometheus.CounterOpts{
			Name: "bazaar_pool_contributions_total",
			Help: "Total number of lender contributions recorded",
		}),
		Payments: f.NewCounter(prometheus.CounterOpts{
			Name: "bazaar_payments_recorded_total",
			Help: "Total number of borrower payments recorded",
		}),
	}
}
