package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	HTTPRequestDuration *prometheus.HistogramVec
	CasesCreated        prometheus.Counter
	CaseOutcomes        *prometheus.CounterVec
	CasesClosed         prometheus.Counter
	CasesDeleted        prometheus.Counter
	ReviewDecisions     *prometheus.CounterVec
	Uploads             *prometheus.CounterVec
	SMSDeliveries       *prometheus.CounterVec
	Logins              *prometheus.CounterVec
}

// New creates the metrics and registers them with reg. Tests pass a fresh
// prometheus.NewRegistry() to avoid duplicate registration.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "estekhdam_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		CasesCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "estekhdam_cases_created_total",
			Help: "Total number of hiring cases created",
		}),
		CaseOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "estekhdam_case_create_outcomes_total",
			Help: "Create-case submissions by outcome",
		}, []string{"outcome"}),
		CasesClosed: f.NewCounter(prometheus.CounterOpts{
			Name: "estekhdam_cases_closed_total",
			Help: "Total number of hiring cases closed",
		}),
		CasesDeleted: f.NewCounter(prometheus.CounterOpts{
			Name: "estekhdam_cases_deleted_total",
			Help: "Total number of hiring cases hard-deleted",
		}),
		ReviewDecisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "estekhdam_review_decisions_total",
			Help: "Recruiter verdicts recorded by queue and verdict",
		}, []string{"queue", "verdict"}),
		Uploads: f.NewCounterVec(prometheus.CounterOpts{
			Name: "estekhdam_candidate_uploads_total",
			Help: "Candidate uploads by kind and result",
		}, []string{"kind", "result"}),
		SMSDeliveries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "estekhdam_sms_deliveries_total",
			Help: "Outbound SMS attempts by delivery state",
		}, []string{"state"}),
		Logins: f.NewCounterVec(prometheus.CounterOpts{
			Name: "estekhdam_logins_total",
			Help: "Login attempts by result",
		}, []string{"result"}),
	}
}

func (m *Metrics) ObserveRequest(method, route, status string, seconds float64) {
	m.HTTPRequestDuration.WithLabelValues(method, route, status).Observe(seconds)
}

func (m *Metrics) IncrementCasesCreated() {
	m.CasesCreated.Inc()
}

func (m *Metrics) IncrementCaseOutcome(outcome string) {
	m.CaseOutcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncrementCasesClosed() {
	m.CasesClosed.Inc()
}

func (m *Metrics) IncrementCasesDeleted() {
	m.CasesDeleted.Inc()
}

func (m *Metrics) IncrementDecision(queue, verdict string) {
	m.ReviewDecisions.WithLabelValues(queue, verdict).Inc()
}

func (m *Metrics) IncrementUpload(kind, result string) {
	m.Uploads.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) IncrementSMS(state string) {
	m.SMSDeliveries.WithLabelValues(state).Inc()
}

func (m *Metrics) IncrementLogin(result string) {
	m.Logins.WithLabelValues(result).Inc()
}
