// Package metrics provides Prometheus instrumentation for the result
// pool and the response streams.
package metrics

import (
	"io"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/expfmt"

	"github.com/haxii/fastresp/result"
	"github.com/haxii/fastresp/stream"
	"github.com/haxii/fastresp/usage"
)

// Metrics implements result.Observer and stream.Observer on its own
// registry
type Metrics struct {
	reg       *prometheus.Registry
	namespace string

	// Pool metrics
	ResultsAcquired *prometheus.CounterVec
	ResultsReleased *prometheus.CounterVec
	CleanupErrors   *prometheus.CounterVec

	// Stream metrics
	StreamTransitions *prometheus.CounterVec
	ActiveStreams     prometheus.Gauge
	BodyBytes         prometheus.Counter
	InputSuspends     prometheus.Counter
}

var (
	_ result.Observer = (*Metrics)(nil)
	_ stream.Observer = (*Metrics)(nil)
)

// New creates a new Metrics instance registered on a fresh registry
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "fastresp"
	}
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		reg:       reg,
		namespace: namespace,
		ResultsAcquired: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pool",
				Name:      "results_acquired_total",
				Help:      "Results acquired by kind and whether an idle one was reused",
			},
			[]string{"kind", "category", "reused"},
		),
		ResultsReleased: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pool",
				Name:      "results_released_total",
				Help:      "Results released by kind and whether they were pooled or dropped",
			},
			[]string{"kind", "category", "pooled"},
		),
		CleanupErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pool",
				Name:      "cleanup_errors_total",
				Help:      "Response cleanups that failed and were swallowed",
			},
			[]string{"kind"},
		),
		StreamTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "stream",
				Name:      "transitions_total",
				Help:      "Response stream state transitions",
			},
			[]string{"from", "to"},
		),
		ActiveStreams: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "stream",
				Name:      "active",
				Help:      "Response streams that received a head and did not end yet",
			},
		),
		BodyBytes: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "stream",
				Name:      "body_bytes_total",
				Help:      "Body bytes buffered for readers",
			},
		),
		InputSuspends: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "stream",
				Name:      "input_suspends_total",
				Help:      "Times a full stream suspended connection reads",
			},
		),
	}
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// ObserveAcquire implements result.Observer
func (m *Metrics) ObserveAcquire(kind result.Kind, reused bool) {
	m.ResultsAcquired.WithLabelValues(kind.String(), kind.Category().String(), boolLabel(reused)).Inc()
}

// ObserveRelease implements result.Observer
func (m *Metrics) ObserveRelease(kind result.Kind, pooled bool) {
	m.ResultsReleased.WithLabelValues(kind.String(), kind.Category().String(), boolLabel(pooled)).Inc()
}

// ObserveCleanupError implements result.Observer
func (m *Metrics) ObserveCleanupError(kind result.Kind) {
	m.CleanupErrors.WithLabelValues(kind.String()).Inc()
}

// ObserveTransition implements stream.Observer
func (m *Metrics) ObserveTransition(from, to stream.State) {
	m.StreamTransitions.WithLabelValues(from.String(), to.String()).Inc()
	if to == stream.StateStreaming {
		m.ActiveStreams.Inc()
	}
	if from == stream.StateStreaming && to.Terminal() {
		m.ActiveStreams.Dec()
	}
}

// ObserveBytes implements stream.Observer
func (m *Metrics) ObserveBytes(n int) {
	m.BodyBytes.Add(float64(n))
}

// ObserveSuspend implements stream.Observer
func (m *Metrics) ObserveSuspend() {
	m.InputSuspends.Inc()
}

// RegisterTraffic exposes the byte counters of t
func (m *Metrics) RegisterTraffic(t *usage.Traffic) {
	factory := promauto.With(m.reg)
	factory.NewCounterFunc(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "conn",
		Name:      "sent_bytes_total",
		Help:      "Bytes written to remote hosts",
	}, func() float64 { return float64(t.Sent()) })
	factory.NewCounterFunc(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "conn",
		Name:      "received_bytes_total",
		Help:      "Bytes read from remote hosts",
	}, func() float64 { return float64(t.Received()) })
}

// Registry the metrics are registered on
func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// WriteText writes every gathered metric family in the text format
func (m *Metrics) WriteText(w io.Writer) error {
	families, err := m.reg.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
