// Package embermetrics exposes Prometheus counters and histograms for the
// compiler's own work: compilations, cache lookups, and watch-mode rebuilds.
package embermetrics

import (
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for one compiler process.
type Metrics struct {
	compilesTotal    *prometheus.CounterVec
	compileDuration  *prometheus.HistogramVec
	compileErrors    *prometheus.CounterVec
	cacheHits        prometheus.Counter
	cacheMisses      prometheus.Counter
	watchRebuilds    *prometheus.CounterVec
	goroutines       prometheus.Gauge
	memoryAlloc      prometheus.Gauge

	registry *prometheus.Registry
}

// Config configures the metric namespace/subsystem and histogram buckets.
type Config struct {
	Namespace       string
	Subsystem       string
	DurationBuckets []float64
}

// DefaultConfig returns the default namespace ("emberc"), subsystem
// ("compiler"), and a bucket set tuned for sub-second compilations.
func DefaultConfig() Config {
	return Config{
		Namespace:       "emberc",
		Subsystem:       "compiler",
		DurationBuckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}
}

// New creates and registers the compiler's metrics collectors.
func New(config Config) *Metrics {
	if config.Namespace == "" {
		config = DefaultConfig()
	}
	if len(config.DurationBuckets) == 0 {
		config.DurationBuckets = DefaultConfig().DurationBuckets
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{registry: registry}

	m.compilesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Subsystem: config.Subsystem,
			Name:      "compiles_total",
			Help:      "Total number of source units compiled",
		},
		[]string{"result"}, // ok|error
	)

	m.compileDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: config.Namespace,
			Subsystem: config.Subsystem,
			Name:      "compile_duration_seconds",
			Help:      "Time spent lowering an AST to bytecode",
			Buckets:   config.DurationBuckets,
		},
		[]string{"result"},
	)

	m.compileErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Subsystem: config.Subsystem,
			Name:      "compile_errors_total",
			Help:      "Total number of compile diagnostics emitted, by severity",
		},
		[]string{"severity"},
	)

	m.cacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Total number of bytecode cache hits",
		},
	)

	m.cacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Total number of bytecode cache misses",
		},
	)

	m.watchRebuilds = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Subsystem: "watch",
			Name:      "rebuilds_total",
			Help:      "Total number of watch-mode recompiles triggered by a file event",
		},
		[]string{"result"},
	)

	m.goroutines = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: config.Namespace,
			Subsystem: "runtime",
			Name:      "goroutines",
			Help:      "Number of goroutines currently running",
		},
	)

	m.memoryAlloc = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: config.Namespace,
			Subsystem: "runtime",
			Name:      "memory_alloc_bytes",
			Help:      "Number of bytes allocated and still in use",
		},
	)

	registry.MustRegister(
		m.compilesTotal,
		m.compileDuration,
		m.compileErrors,
		m.cacheHits,
		m.cacheMisses,
		m.watchRebuilds,
		m.goroutines,
		m.memoryAlloc,
	)

	return m
}

// RecordCompile records the outcome and latency of one Compile call.
func (m *Metrics) RecordCompile(ok bool, duration time.Duration) {
	result := "ok"
	if !ok {
		result = "error"
	}
	m.compilesTotal.WithLabelValues(result).Inc()
	m.compileDuration.WithLabelValues(result).Observe(duration.Seconds())
}

// RecordDiagnostic increments the diagnostic counter for a severity
// ("error" or "warning").
func (m *Metrics) RecordDiagnostic(severity string) {
	m.compileErrors.WithLabelValues(severity).Inc()
}

// RecordCacheLookup records a bytecode cache hit or miss.
func (m *Metrics) RecordCacheLookup(hit bool) {
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}

// RecordWatchRebuild records the outcome of a watch-mode recompile.
func (m *Metrics) RecordWatchRebuild(ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	m.watchRebuilds.WithLabelValues(result).Inc()
}

// UpdateRuntimeMetrics refreshes the goroutine count and allocated-memory
// gauges from the Go runtime. Callers in long-lived processes (watch mode,
// the live-reload server) should call this on a ticker.
func (m *Metrics) UpdateRuntimeMetrics() {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	m.goroutines.Set(float64(runtime.NumGoroutine()))
	m.memoryAlloc.Set(float64(memStats.Alloc))
}

// Handler returns an HTTP handler serving the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
