package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsConfig configures the metrics provider
type MetricsConfig struct {
	// Service identification
	ServiceName    string
	ServiceVersion string

	// Metric options
	Namespace        string    // Prometheus namespace (default: mcpcompare)
	Subsystem        string    // Prometheus subsystem
	HistogramBuckets []float64 // Custom histogram buckets for latency

	// Labels to add to all metrics
	ConstLabels prometheus.Labels
}

// Metrics holds the collectors for one run. Each instance owns its registry,
// so two runs in the same process never collide.
type Metrics struct {
	config   MetricsConfig
	registry *prometheus.Registry

	callDuration      *prometheus.HistogramVec
	callTotal         *prometheus.CounterVec
	notificationTotal *prometheus.CounterVec
	retrievalDuration *prometheus.HistogramVec
	comparisonTotal   *prometheus.CounterVec
	listedEntries     *prometheus.GaugeVec
}

// NewMetrics creates the collectors and registers them on a fresh registry.
func NewMetrics(config MetricsConfig) (*Metrics, error) {
	if config.Namespace == "" {
		config.Namespace = "mcpcompare"
	}
	if config.HistogramBuckets == nil {
		// milliseconds
		config.HistogramBuckets = []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000}
	}
	labels := prometheus.Labels{}
	for k, v := range config.ConstLabels {
		labels[k] = v
	}
	if config.ServiceName != "" {
		labels["service"] = config.ServiceName
	}
	if config.ServiceVersion != "" {
		labels["version"] = config.ServiceVersion
	}
	config.ConstLabels = labels

	m := &Metrics{
		config:   config,
		registry: prometheus.NewRegistry(),
	}
	m.initializeMetrics()

	if err := m.registerMetrics(); err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}
	return m, nil
}

func (m *Metrics) initializeMetrics() {
	m.callDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.config.Namespace,
			Subsystem:   m.config.Subsystem,
			Name:        "call_duration_milliseconds",
			Help:        "Duration of JSON-RPC calls in milliseconds",
			Buckets:     m.config.HistogramBuckets,
			ConstLabels: m.config.ConstLabels,
		},
		[]string{"endpoint", "method", "status"},
	)

	m.callTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.config.Namespace,
			Subsystem:   m.config.Subsystem,
			Name:        "call_total",
			Help:        "Total number of JSON-RPC calls",
			ConstLabels: m.config.ConstLabels,
		},
		[]string{"endpoint", "method", "status"},
	)

	m.notificationTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.config.Namespace,
			Subsystem:   m.config.Subsystem,
			Name:        "notification_total",
			Help:        "Total number of notifications sent",
			ConstLabels: m.config.ConstLabels,
		},
		[]string{"endpoint", "method", "status"},
	)

	m.retrievalDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.config.Namespace,
			Subsystem:   m.config.Subsystem,
			Name:        "retrieval_duration_milliseconds",
			Help:        "Duration of a full descriptor retrieval in milliseconds",
			Buckets:     m.config.HistogramBuckets,
			ConstLabels: m.config.ConstLabels,
		},
		[]string{"endpoint", "outcome"},
	)

	m.comparisonTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.config.Namespace,
			Subsystem:   m.config.Subsystem,
			Name:        "comparison_total",
			Help:        "Total number of comparisons by verdict",
			ConstLabels: m.config.ConstLabels,
		},
		[]string{"verdict"},
	)

	m.listedEntries = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace:   m.config.Namespace,
			Subsystem:   m.config.Subsystem,
			Name:        "listed_entries",
			Help:        "Number of entries a server listed, by kind",
			ConstLabels: m.config.ConstLabels,
		},
		[]string{"endpoint", "kind"},
	)
}

func (m *Metrics) registerMetrics() error {
	collectors := []prometheus.Collector{
		m.callDuration,
		m.callTotal,
		m.notificationTotal,
		m.retrievalDuration,
		m.comparisonTotal,
		m.listedEntries,
	}
	for _, c := range collectors {
		if err := m.registry.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// RecordCall records one request/response exchange.
func (m *Metrics) RecordCall(endpoint, method, status string, duration time.Duration) {
	m.callDuration.WithLabelValues(endpoint, method, status).Observe(float64(duration.Milliseconds()))
	m.callTotal.WithLabelValues(endpoint, method, status).Inc()
}

// RecordNotification records one notification.
func (m *Metrics) RecordNotification(endpoint, method, status string) {
	m.notificationTotal.WithLabelValues(endpoint, method, status).Inc()
}

// RecordRetrieval records a finished descriptor retrieval. outcome is
// "reachable" or "unreachable".
func (m *Metrics) RecordRetrieval(endpoint, outcome string, duration time.Duration) {
	m.retrievalDuration.WithLabelValues(endpoint, outcome).Observe(float64(duration.Milliseconds()))
}

// RecordListed sets how many entries of kind endpoint listed.
func (m *Metrics) RecordListed(endpoint, kind string, n int) {
	m.listedEntries.WithLabelValues(endpoint, kind).Set(float64(n))
}

// RecordComparison counts a verdict, "equivalent" or "different".
func (m *Metrics) RecordComparison(verdict string) {
	m.comparisonTotal.WithLabelValues(verdict).Inc()
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// WriteTextfile writes the registry to path in the node_exporter textfile
// format.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
