// Package metrics provides Prometheus metrics for the tempolink daemon.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus series the daemon exports.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	registry         prometheus.Registerer

	// Transport metrics.
	datagramsReceived  prometheus.Counter
	bundlesUnpacked    prometheus.Counter
	malformedDatagrams prometheus.Counter
	dispatchLatency    prometheus.Histogram
	transportBound     prometheus.Gauge
	listenerCount      prometheus.Gauge

	// Event metrics.
	dirtEvents        prometheus.Counter
	eventDecodeErrors prometheus.Counter

	// Tempo metrics.
	tempoEvaluations    prometheus.Counter
	tempoUpdatesApplied *prometheus.CounterVec
	tempoUpdateFailures prometheus.Counter
	candidateRejections prometheus.Counter
	phaseDrift          prometheus.Gauge
	currentCPS          prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithRegistry(customRegistry))
}

// NewManager creates a metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "tempolink",
		subsystem:        "sync",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	factory := promauto.With(m.registry)

	m.datagramsReceived = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "datagrams_received_total",
		Help:      "UDP datagrams read off the socket.",
	})
	m.bundlesUnpacked = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "bundles_unpacked_total",
		Help:      "OSC bundles demultiplexed, nested bundles included.",
	})
	m.malformedDatagrams = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "malformed_datagrams_total",
		Help:      "Datagrams that failed OSC decoding.",
	})
	m.dispatchLatency = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "dispatch_latency_seconds",
		Help:      "Time from datagram read to listener completion.",
		Buckets:   m.histogramBuckets,
	})
	m.transportBound = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "transport_bound",
		Help:      "1 while the UDP socket is bound and serving.",
	})
	m.listenerCount = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "listener_count",
		Help:      "Registered OSC address listeners.",
	})

	m.dirtEvents = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "dirt_events_total",
		Help:      "Normalized /dirt/play events.",
	})
	m.eventDecodeErrors = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "event_decode_errors_total",
		Help:      "Recognized-address events whose arguments failed to normalize.",
	})

	m.tempoEvaluations = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "tempo_evaluations_total",
		Help:      "Tempo samples run through the decision engine.",
	})
	m.tempoUpdatesApplied = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "tempo_updates_applied_total",
		Help:      "Accepted tempo updates by candidate kind.",
	}, []string{"kind"})
	m.tempoUpdateFailures = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "tempo_update_failures_total",
		Help:      "Updates where every candidate was rejected.",
	})
	m.candidateRejections = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "candidate_rejections_total",
		Help:      "Individual candidate rejections inside the fallback chain.",
	})
	m.phaseDrift = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "phase_drift_cycles",
		Help:      "Wrapped phase drift of the latest evaluated sample.",
	})
	m.currentCPS = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "current_cps",
		Help:      "Frequency of the currently applied tempo model.",
	})
}

// Package-level helpers on the global manager.

func RecordDatagramReceived() {
	if globalManager.enabled {
		globalManager.datagramsReceived.Inc()
	}
}

func RecordBundleUnpacked() {
	if globalManager.enabled {
		globalManager.bundlesUnpacked.Inc()
	}
}

func RecordMalformedDatagram() {
	if globalManager.enabled {
		globalManager.malformedDatagrams.Inc()
	}
}

func RecordDispatchLatency(seconds float64) {
	if globalManager.enabled {
		globalManager.dispatchLatency.Observe(seconds)
	}
}

func UpdateTransportBound(bound bool) {
	if !globalManager.enabled {
		return
	}
	if bound {
		globalManager.transportBound.Set(1)
	} else {
		globalManager.transportBound.Set(0)
	}
}

func UpdateListenerCount(count int) {
	if globalManager.enabled {
		globalManager.listenerCount.Set(float64(count))
	}
}

func RecordDirtEvent() {
	if globalManager.enabled {
		globalManager.dirtEvents.Inc()
	}
}

func RecordEventDecodeError() {
	if globalManager.enabled {
		globalManager.eventDecodeErrors.Inc()
	}
}

func RecordTempoEvaluation() {
	if globalManager.enabled {
		globalManager.tempoEvaluations.Inc()
	}
}

func RecordTempoUpdateApplied(kind string) {
	if globalManager.enabled {
		globalManager.tempoUpdatesApplied.WithLabelValues(kind).Inc()
	}
}

func RecordTempoUpdateFailure() {
	if globalManager.enabled {
		globalManager.tempoUpdateFailures.Inc()
	}
}

func RecordCandidateRejection() {
	if globalManager.enabled {
		globalManager.candidateRejections.Inc()
	}
}

func UpdatePhaseDrift(cycles float64) {
	if globalManager.enabled {
		globalManager.phaseDrift.Set(cycles)
	}
}

func UpdateCurrentCPS(cps float64) {
	if globalManager.enabled {
		globalManager.currentCPS.Set(cps)
	}
}

// GetRegistry exposes the custom registry for the exposition endpoint.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
