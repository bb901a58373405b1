// Package metricsvc records portal events as prometheus metrics.
package metricsvc

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/trezcool/tutorhub/core"
)

type Recorder struct {
	registry     *prometheus.Registry
	backendReqs  *prometheus.CounterVec
	transitions  *prometheus.CounterVec
	checkouts    *prometheus.CounterVec
	verification *prometheus.CounterVec
}

var _ core.Recorder = (*Recorder)(nil)

func NewRecorder(namespace string) *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		backendReqs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_requests_total",
			Help:      "Requests sent to the REST backend, by endpoint and status code.",
		}, []string{"endpoint", "status"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "wizard_transitions_total",
			Help:      "Enrollment wizard transitions, by source step, target step and outcome.",
		}, []string{"from", "to", "outcome"}),
		checkouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkouts_opened_total",
			Help:      "Checkout sessions opened, by gateway.",
		}, []string{"gateway"}),
		verification: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrollment_verifications_total",
			Help:      "Payment callbacks handled, by outcome.",
		}, []string{"outcome"}),
	}
	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.backendReqs, r.transitions, r.checkouts, r.verification,
	)
	return r
}

func (r *Recorder) BackendRequest(endpoint string, status int) {
	r.backendReqs.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
}

func (r *Recorder) WizardTransition(from, to string, blocked bool) {
	outcome := "ok"
	if blocked {
		outcome = "blocked"
	}
	r.transitions.WithLabelValues(from, to, outcome).Inc()
}

func (r *Recorder) CheckoutOpened(gateway string) {
	r.checkouts.WithLabelValues(gateway).Inc()
}

func (r *Recorder) Verification(outcome string) {
	r.verification.WithLabelValues(outcome).Inc()
}

// Handler exposes the registry in the prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Gatherer is used by tests to read the collected values.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.registry
}
