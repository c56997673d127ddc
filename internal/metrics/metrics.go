// Package metrics holds the Prometheus collectors for session activity.
// A nil *Recorder is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "turfsplit"

// Recorder groups every collector the service updates.
type Recorder struct {
	registry *prometheus.Registry

	rsvps           *prometheus.CounterVec
	transitions     *prometheus.CounterVec
	payments        *prometheus.CounterVec
	collectedRupees *prometheus.CounterVec
	gatewayCalls    *prometheus.HistogramVec
	sweeps          *prometheus.CounterVec
}

// New registers the collectors on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		rsvps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rsvps_total",
			Help:      "RSVP submissions by resulting status.",
		}, []string{"status", "created"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_transitions_total",
			Help:      "Session lifecycle transitions by target state.",
		}, []string{"to"}),
		payments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_total",
			Help:      "Payments recorded by method.",
		}, []string{"method"}),
		collectedRupees: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collected_rupees_total",
			Help:      "Rupees recorded as collected by method.",
		}, []string{"method"}),
		gatewayCalls: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "gateway_call_duration_seconds",
			Help:      "Payment gateway call latency by operation and outcome.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op", "outcome"}),
		sweeps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pending_order_checks_total",
			Help:      "Pending orders re-verified by the sweeper, by outcome.",
		}, []string{"outcome"}),
	}
	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.rsvps, r.transitions, r.payments, r.collectedRupees, r.gatewayCalls, r.sweeps,
	)
	return r
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

func (r *Recorder) RSVP(status string, created bool) {
	if r == nil {
		return
	}
	c := "false"
	if created {
		c = "true"
	}
	r.rsvps.WithLabelValues(status, c).Inc()
}

func (r *Recorder) Transition(to string) {
	if r == nil {
		return
	}
	r.transitions.WithLabelValues(to).Inc()
}

// Payment counts one payment of amount rupees collected by method.
func (r *Recorder) Payment(method string, amount int64) {
	if r == nil {
		return
	}
	r.payments.WithLabelValues(method).Inc()
	r.collectedRupees.WithLabelValues(method).Add(float64(amount))
}

// GatewayCall observes one gateway round trip that started at start.
func (r *Recorder) GatewayCall(op string, start time.Time, err error) {
	if r == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	r.gatewayCalls.WithLabelValues(op, outcome).Observe(time.Since(start).Seconds())
}

func (r *Recorder) SweepCheck(outcome string) {
	if r == nil {
		return
	}
	r.sweeps.WithLabelValues(outcome).Inc()
}
