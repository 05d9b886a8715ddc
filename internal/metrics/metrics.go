// Package metrics holds the Prometheus collectors for recommendations, batch
// jobs, loader rejections, sync runs and the HTTP API. Collectors live on their
// own registry so tests and multiple servers never collide on the default one.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ghostbuild/internal/build"
	"ghostbuild/internal/loader"
)

// Metrics groups every collector
type Metrics struct {
	Registry *prometheus.Registry

	Recommendations   *prometheus.CounterVec
	RecommendDuration prometheus.Histogram
	BatchJobs         *prometheus.CounterVec
	RejectedRows      *prometheus.CounterVec
	SyncRuns          *prometheus.CounterVec
	APIRequests       *prometheus.CounterVec
	APIDuration       *prometheus.HistogramVec
	WSConnections     prometheus.Gauge
}

// New registers all collectors on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		Recommendations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ghostbuild_recommendations_total",
				Help: "Total recommendations by candidate selector tier",
			},
			[]string{"tier"},
		),
		RecommendDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ghostbuild_recommend_duration_seconds",
				Help:    "Engine run time in seconds",
				Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5},
			},
		),
		BatchJobs: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ghostbuild_batch_jobs_total",
				Help: "Batch jobs by final status",
			},
			[]string{"status"}, // "done", "failed"
		),
		RejectedRows: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ghostbuild_rejected_rows_total",
				Help: "Input rows rejected by the loaders",
			},
			[]string{"table"},
		),
		SyncRuns: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ghostbuild_sync_runs_total",
				Help: "Manifest sync runs by result",
			},
			[]string{"result"}, // "updated", "current", "error"
		),
		APIRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ghostbuild_api_requests_total",
				Help: "HTTP API requests",
			},
			[]string{"method", "route", "status"},
		),
		APIDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ghostbuild_api_request_duration_seconds",
				Help:    "HTTP API latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		WSConnections: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "ghostbuild_websocket_connections",
				Help: "Open batch websocket connections",
			},
		),
	}
}

// ObserveRecommendation implements pipeline.Recorder
func (m *Metrics) ObserveRecommendation(tier build.SelectorTier, elapsed time.Duration) {
	m.Recommendations.WithLabelValues(string(tier)).Inc()
	m.RecommendDuration.Observe(elapsed.Seconds())
}

// RecordBatchJob counts one finished batch job
func (m *Metrics) RecordBatchJob(failed bool) {
	status := "done"
	if failed {
		status = "failed"
	}
	m.BatchJobs.WithLabelValues(status).Inc()
}

// RecordReports counts the rows the loaders rejected
func (m *Metrics) RecordReports(r loader.Reports) {
	for _, rep := range []loader.Report{r.Winning, r.Sets} {
		if n := len(rep.Rejected); n > 0 {
			m.RejectedRows.WithLabelValues(rep.Table).Add(float64(n))
		}
	}
}

// RecordSync counts one manifest sync
func (m *Metrics) RecordSync(updated bool, err error) {
	switch {
	case err != nil:
		m.SyncRuns.WithLabelValues("error").Inc()
	case updated:
		m.SyncRuns.WithLabelValues("updated").Inc()
	default:
		m.SyncRuns.WithLabelValues("current").Inc()
	}
}

// RecordAPIRequest counts one HTTP request
func (m *Metrics) RecordAPIRequest(method, route string, status int, duration time.Duration) {
	m.APIRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.APIDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}
