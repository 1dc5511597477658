package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"ercot-forecast/internal/diag"
)

const (
	metricPrefix = "ercot_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	upstreamRequests *prometheus.CounterVec
	upstreamLatency  *prometheus.HistogramVec

	tokenRefreshes *prometheus.CounterVec
	cacheLookups   *prometheus.CounterVec

	warningsTotal *prometheus.CounterVec

	toolCalls   *prometheus.CounterVec
	toolLatency *prometheus.HistogramVec

	splitFits *prometheus.CounterVec
)

// Init registers the process metrics with the default registry. Until it is
// called every helper below is a no-op.
func Init() {
	registerOnce.Do(func() {
		upstreamRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "upstream_requests_total",
				Help: "Total ERCOT API requests by endpoint and result",
			},
			[]string{"endpoint", "result"},
		)
		upstreamLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "upstream_latency_seconds",
				Help:    "ERCOT API request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint", "result"},
		)
		tokenRefreshes = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "token_refreshes_total",
				Help: "Total id_token logins by result",
			},
			[]string{"result"},
		)
		cacheLookups = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "response_cache_lookups_total",
				Help: "Response cache lookups by outcome",
			},
			[]string{"outcome"},
		)
		warningsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "warnings_total",
				Help: "Data quality warnings by kind and component",
			},
			[]string{"kind", "component"},
		)
		toolCalls = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "tool_calls_total",
				Help: "Total tool invocations by tool and result",
			},
			[]string{"tool", "result"},
		)
		toolLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "tool_latency_seconds",
				Help:    "Tool invocation latency in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"tool", "result"},
		)
		splitFits = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "cv_split_fits_total",
				Help: "Cross-validation split fits by result",
			},
			[]string{"result"},
		)

		prometheus.MustRegister(
			upstreamRequests,
			upstreamLatency,
			tokenRefreshes,
			cacheLookups,
			warningsTotal,
			toolCalls,
			toolLatency,
			splitFits,
		)
	})
}

// ObserveUpstream records one ERCOT API request.
func ObserveUpstream(endpoint, result string, duration time.Duration) {
	if endpoint == "" {
		endpoint = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if upstreamRequests != nil {
		upstreamRequests.WithLabelValues(endpoint, result).Inc()
	}
	if upstreamLatency != nil {
		upstreamLatency.WithLabelValues(endpoint, result).Observe(duration.Seconds())
	}
}

// IncTokenRefresh counts a login attempt.
func IncTokenRefresh(err error) {
	result := resultSuccess
	if err != nil {
		result = resultError
	}
	if tokenRefreshes != nil {
		tokenRefreshes.WithLabelValues(result).Inc()
	}
}

func IncCacheLookup(hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	if cacheLookups != nil {
		cacheLookups.WithLabelValues(outcome).Inc()
	}
}

// ObserveTool records a tool call.
func ObserveTool(tool, result string, duration time.Duration) {
	if tool == "" {
		tool = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if toolCalls != nil {
		toolCalls.WithLabelValues(tool, result).Inc()
	}
	if toolLatency != nil {
		toolLatency.WithLabelValues(tool, result).Observe(duration.Seconds())
	}
}

func ObserveSplitFit(result string) {
	if result == "" {
		result = resultSuccess
	}
	if splitFits != nil {
		splitFits.WithLabelValues(result).Inc()
	}
}

// WarningSink counts every diagnostic event it receives.
type WarningSink struct{}

func (WarningSink) Emit(e diag.Event) {
	if warningsTotal != nil {
		warningsTotal.WithLabelValues(string(e.Kind), e.Component).Inc()
	}
}
