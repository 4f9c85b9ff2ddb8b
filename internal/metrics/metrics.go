package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	pagesClassified = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pdfarchive",
			Name:      "pages_classified_total",
			Help:      "Pages classified by result (extract, render)",
		},
		[]string{"result"},
	)

	extractions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pdfarchive",
			Name:      "extractions_total",
			Help:      "Per-file extraction attempts by outcome (ok, miss, error)",
		},
		[]string{"outcome"},
	)

	renderDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "pdfarchive",
			Name:      "render_duration_seconds",
			Help:      "Duration of page rasterization",
			Buckets:   prometheus.DefBuckets,
		},
	)

	rpcLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pdfarchive",
			Name:      "rpc_duration_seconds",
			Help:      "Duration of manager round trips to the worker process by op",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	workerSpawns = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "pdfarchive",
			Name:      "worker_spawns_total",
			Help:      "Worker processes spawned",
		},
	)

	workerFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "pdfarchive",
			Name:      "worker_failures_total",
			Help:      "Worker processes that died or broke the RPC channel",
		},
	)
)

// Init registers collectors.
func Init() {
	prometheus.MustRegister(pagesClassified, extractions, renderDuration, rpcLatency, workerSpawns, workerFailures)
}

// Handler returns the http.Handler for /metrics
func Handler() http.Handler { return promhttp.Handler() }

func IncClassified(result string) { pagesClassified.WithLabelValues(result).Inc() }
func IncExtraction(outcome string) { extractions.WithLabelValues(outcome).Inc() }
func ObserveRender(d time.Duration) { renderDuration.Observe(d.Seconds()) }
func IncWorkerSpawn() { workerSpawns.Inc() }
func IncWorkerFailure() { workerFailures.Inc() }
func ObserveRPC(op string, d time.Duration) {
	rpcLatency.WithLabelValues(op).Observe(d.Seconds())
}
