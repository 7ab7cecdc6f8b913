// Package metrics exports recognition metrics in Prometheus format.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "face_detection"

// Recognition outcomes.
const (
	OutcomeRecognized = "recognized"
	OutcomeNoMatch    = "no_match"
	OutcomeNoFaces    = "no_faces"
	OutcomeNoUsers    = "no_users"
	OutcomeNoUsable   = "no_usable_encodings"
	OutcomeError      = "error"
)

// Registration outcomes.
const (
	OutcomeRegistered = "registered"
	OutcomeDuplicate  = "duplicate"
	OutcomeRejected   = "rejected"
)

// Exporter holds the service metrics on its own registry.
type Exporter struct {
	registry *prometheus.Registry

	detections    *prometheus.CounterVec
	detectLatency *prometheus.HistogramVec
	recognitions  *prometheus.CounterVec
	registrations *prometheus.CounterVec
	identities    prometheus.Gauge
}

// New creates an exporter. A nil registry gets a fresh one.
func New(registry *prometheus.Registry) *Exporter {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	e := &Exporter{registry: registry}

	e.detections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "detections_total",
			Help:      "Detector runs by the cascade pass that found faces (none if no pass did)",
		},
		[]string{"pass"},
	)

	e.detectLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "detect_latency_seconds",
			Help:      "Latency of detect requests in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"method"},
	)

	e.recognitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recognitions_total",
			Help:      "Recognition attempts by outcome",
		},
		[]string{"method", "outcome"},
	)

	e.registrations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registrations_total",
			Help:      "Registration attempts by outcome",
		},
		[]string{"outcome"},
	)

	e.identities = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "identities",
			Help:      "Number of enrolled identities",
		},
	)

	registry.MustRegister(e.detections, e.detectLatency, e.recognitions, e.registrations, e.identities)
	return e
}

// RecordDetection counts a detector run. pass is the winning cascade index or -1.
func (e *Exporter) RecordDetection(pass int) {
	if e == nil {
		return
	}
	label := "none"
	if pass >= 0 {
		label = strconv.Itoa(pass)
	}
	e.detections.WithLabelValues(label).Inc()
}

func (e *Exporter) RecordDetectLatency(method string, latency time.Duration) {
	if e == nil {
		return
	}
	e.detectLatency.WithLabelValues(method).Observe(latency.Seconds())
}

func (e *Exporter) RecordRecognition(method, outcome string) {
	if e == nil {
		return
	}
	e.recognitions.WithLabelValues(method, outcome).Inc()
}

func (e *Exporter) RecordRegistration(outcome string) {
	if e == nil {
		return
	}
	e.registrations.WithLabelValues(outcome).Inc()
}

// SetIdentities sets the enrolled identities gauge.
func (e *Exporter) SetIdentities(n int) {
	if e == nil {
		return
	}
	e.identities.Set(float64(n))
}

// Handler serves the registry in the Prometheus text format.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}
