package server

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/artic-network/peartree/pkg/observability"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "peartree_http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "peartree_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	pipelineStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "peartree_pipeline_stage_duration_seconds",
			Help:    "Duration of pipeline stages in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		},
		[]string{"stage", "outcome"},
	)

	treesLoaded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "peartree_trees_loaded_total",
			Help: "Total number of trees parsed, by source format",
		},
		[]string{"format"},
	)

	cacheOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "peartree_cache_operations_total",
			Help: "Cache hits, misses and writes by key type",
		},
		[]string{"key_type", "operation"},
	)

	activeSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "peartree_sessions_active",
			Help: "Number of sessions created minus sessions deleted",
		},
	)
)

// RegisterMetricsHooks installs prometheus-backed pipeline and cache hooks.
// Call once at server startup.
func RegisterMetricsHooks() {
	observability.SetPipelineHooks(metricsHooks{})
	observability.SetCacheHooks(metricsHooks{})
}

// metricsHooks translates observability events into prometheus metrics.
type metricsHooks struct{}

func (metricsHooks) OnLoadStart(context.Context, string) {}

func (metricsHooks) OnLoadComplete(_ context.Context, format string, _ int, duration time.Duration, err error) {
	pipelineStageDuration.WithLabelValues("load", outcome(err)).Observe(duration.Seconds())
	if err == nil {
		treesLoaded.WithLabelValues(format).Inc()
	}
}

func (metricsHooks) OnLayoutStart(context.Context, int) {}

func (metricsHooks) OnLayoutComplete(_ context.Context, duration time.Duration, err error) {
	pipelineStageDuration.WithLabelValues("layout", outcome(err)).Observe(duration.Seconds())
}

func (metricsHooks) OnRenderStart(context.Context, []string) {}

func (metricsHooks) OnRenderComplete(_ context.Context, _ []string, duration time.Duration, err error) {
	pipelineStageDuration.WithLabelValues("render", outcome(err)).Observe(duration.Seconds())
}

func (metricsHooks) OnCacheHit(_ context.Context, keyType string) {
	cacheOperations.WithLabelValues(keyType, "hit").Inc()
}

func (metricsHooks) OnCacheMiss(_ context.Context, keyType string) {
	cacheOperations.WithLabelValues(keyType, "miss").Inc()
}

func (metricsHooks) OnCacheSet(_ context.Context, keyType string, _ int) {
	cacheOperations.WithLabelValues(keyType, "set").Inc()
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
