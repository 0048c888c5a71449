package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Upload results.
const (
	UploadOK       = "ok"
	UploadRejected = "rejected"
)

// Comparison outcomes.
const (
	OutcomeTable    = "table"
	OutcomeAdvisory = "advisory"
	OutcomeError    = "error"
)

// Recorder owns a private registry so tests can build as many as they like.
type Recorder struct {
	registry     *prometheus.Registry
	uploads      *prometheus.CounterVec
	comparisons  *prometheus.CounterVec
	duration     prometheus.Histogram
	rows         prometheus.Histogram
	lookupMisses *prometheus.CounterVec
	sessions     prometheus.Gauge
	requests     *prometheus.CounterVec
	latency      *prometheus.HistogramVec
}

func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "driver_compare",
			Name:      "uploads_total",
			Help:      "Workbook uploads by result.",
		}, []string{"result"}),
		comparisons: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "driver_compare",
			Name:      "comparisons_total",
			Help:      "Comparison renders by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "driver_compare",
			Name:      "comparison_duration_seconds",
			Help:      "Time spent selecting and merging one comparison.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		rows: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "driver_compare",
			Name:      "comparison_rows",
			Help:      "Rows produced per comparison.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
		lookupMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "driver_compare",
			Name:      "lookup_misses_total",
			Help:      "Drivers missing from a metric table during merge.",
		}, []string{"metric"}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "driver_compare",
			Name:      "sessions",
			Help:      "Workbooks currently held in memory.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "driver_compare",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "driver_compare",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}

	r.registry.MustRegister(
		r.uploads,
		r.comparisons,
		r.duration,
		r.rows,
		r.lookupMisses,
		r.sessions,
		r.requests,
		r.latency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) ObserveUpload(result string) {
	r.uploads.WithLabelValues(result).Inc()
}

func (r *Recorder) ObserveComparison(outcome string, d time.Duration, rows int) {
	r.comparisons.WithLabelValues(outcome).Inc()
	if outcome == OutcomeTable {
		r.duration.Observe(d.Seconds())
		r.rows.Observe(float64(rows))
	}
}

func (r *Recorder) ObserveLookupMiss(metric string) {
	r.lookupMisses.WithLabelValues(metric).Inc()
}

func (r *Recorder) SetSessions(n int) {
	r.sessions.Set(float64(n))
}

// ObserveRequest takes the matched route pattern, not the raw path, to keep
// label cardinality bounded.
func (r *Recorder) ObserveRequest(method, route string, status int, d time.Duration) {
	r.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.latency.WithLabelValues(route).Observe(d.Seconds())
}
