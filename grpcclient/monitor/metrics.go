/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package monitor

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/acronis/go-rpcinvoker/internal/libinfo"
)

const (
	metricsLabelService = "rpc_service"
	metricsLabelMethod  = "rpc_method"
	metricsLabelOutcome = "outcome"
)

// Outcome is the final result of a dispatched call as seen by the caller.
type Outcome string

// Call outcomes.
const (
	OutcomeSuccess  Outcome = "success"
	OutcomeFailure  Outcome = "failure"
	OutcomeFallback Outcome = "fallback"
	OutcomeRejected Outcome = "rejected"
)

// CallObservation describes one dispatched call.
type CallObservation struct {
	ServiceName   string
	MethodName    string
	RemoteAddress string
	Outcome       Outcome
	Attempts      int
	// Concurrency is the number of in-flight calls for the same service and method
	// at the moment the call was dispatched (the call itself included).
	Concurrency int32
	StartTime   time.Time
}

// Sink accepts per-call observations.
type Sink interface {
	// IncInFlightCalls increments the counter of in-flight calls.
	IncInFlightCalls(serviceName, methodName string)

	// DecInFlightCalls decrements the counter of in-flight calls.
	DecInFlightCalls(serviceName, methodName string)

	// ObserveCall observes the duration and the outcome of the dispatched call.
	ObserveCall(obs CallObservation)
}

type disabledSink struct{}

// NewDisabledSink returns a Sink that drops all observations.
func NewDisabledSink() Sink {
	return disabledSink{}
}

func (disabledSink) IncInFlightCalls(string, string) {}
func (disabledSink) DecInFlightCalls(string, string) {}
func (disabledSink) ObserveCall(CallObservation)     {}

// DefaultPrometheusDurationBuckets is default buckets into which observations of client calls are counted.
var DefaultPrometheusDurationBuckets = []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}

// PrometheusOption is a function type for configuring the metrics collector.
type PrometheusOption func(*prometheusOptions)

type prometheusOptions struct {
	namespace       string
	durationBuckets []float64
	constLabels     prometheus.Labels
}

// WithPrometheusNamespace sets the namespace for metrics.
func WithPrometheusNamespace(namespace string) PrometheusOption {
	return func(c *prometheusOptions) {
		c.namespace = namespace
	}
}

// WithPrometheusDurationBuckets sets the duration buckets for histogram metrics.
func WithPrometheusDurationBuckets(buckets []float64) PrometheusOption {
	return func(c *prometheusOptions) {
		c.durationBuckets = buckets
	}
}

// WithPrometheusConstLabels sets constant labels that will be applied to all metrics.
func WithPrometheusConstLabels(labels prometheus.Labels) PrometheusOption {
	return func(c *prometheusOptions) {
		c.constLabels = labels
	}
}

// PrometheusMetrics represents collector of metrics for outgoing RPC calls.
type PrometheusMetrics struct {
	Durations *prometheus.HistogramVec
	InFlight  *prometheus.GaugeVec
}

var _ Sink = (*PrometheusMetrics)(nil)

// NewPrometheusMetrics creates a new instance of PrometheusMetrics with the provided options.
func NewPrometheusMetrics(opts ...PrometheusOption) *PrometheusMetrics {
	cfg := &prometheusOptions{durationBuckets: DefaultPrometheusDurationBuckets}
	for _, opt := range opts {
		opt(cfg)
	}

	durations := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   cfg.namespace,
			Name:        "rpc_client_call_duration_seconds",
			Help:        "A histogram of the outgoing RPC call durations.",
			Buckets:     cfg.durationBuckets,
			ConstLabels: libinfo.AddPrometheusLibVersionLabel(cfg.constLabels),
		},
		[]string{metricsLabelService, metricsLabelMethod, metricsLabelOutcome},
	)

	inFlight := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace:   cfg.namespace,
			Name:        "rpc_client_calls_in_flight",
			Help:        "Current number of outgoing RPC calls being made.",
			ConstLabels: libinfo.AddPrometheusLibVersionLabel(cfg.constLabels),
		},
		[]string{metricsLabelService, metricsLabelMethod},
	)

	return &PrometheusMetrics{Durations: durations, InFlight: inFlight}
}

// MustRegister does registration of metrics collector in Prometheus and panics if any error occurs.
func (pm *PrometheusMetrics) MustRegister() {
	prometheus.MustRegister(pm.Durations, pm.InFlight)
}

// Unregister cancels registration of metrics collector in Prometheus.
func (pm *PrometheusMetrics) Unregister() {
	prometheus.Unregister(pm.InFlight)
	prometheus.Unregister(pm.Durations)
}

// MustRegisterMetrics implements service.MetricsRegisterer.
func (pm *PrometheusMetrics) MustRegisterMetrics() {
	pm.MustRegister()
}

// UnregisterMetrics implements service.MetricsRegisterer.
func (pm *PrometheusMetrics) UnregisterMetrics() {
	pm.Unregister()
}

// IncInFlightCalls increments the counter of in-flight calls.
func (pm *PrometheusMetrics) IncInFlightCalls(serviceName, methodName string) {
	pm.InFlight.WithLabelValues(serviceName, methodName).Inc()
}

// DecInFlightCalls decrements the counter of in-flight calls.
func (pm *PrometheusMetrics) DecInFlightCalls(serviceName, methodName string) {
	pm.InFlight.WithLabelValues(serviceName, methodName).Dec()
}

// ObserveCall observes the duration of the call and its outcome.
func (pm *PrometheusMetrics) ObserveCall(obs CallObservation) {
	pm.Durations.WithLabelValues(obs.ServiceName, obs.MethodName, string(obs.Outcome)).
		Observe(time.Since(obs.StartTime).Seconds())
}
