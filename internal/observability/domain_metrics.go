package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	pipelineRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlask_pipeline_requests_total",
			Help: "Total number of questions by final outcome (executed, failed, halted stage).",
		},
		[]string{"outcome"},
	)
	modelCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlask_model_calls_total",
			Help: "Total number of language model calls by pipeline stage and status.",
		},
		[]string{"stage", "status"},
	)
	modelCallDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sqlask_model_call_duration_seconds",
			Help:    "Language model call latency by pipeline stage.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 15, 30, 60},
		},
		[]string{"stage"},
	)
	statementsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlask_statements_total",
			Help: "Total number of executed statements by verb and status.",
		},
		[]string{"verb", "status"},
	)
	statementDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sqlask_statement_duration_seconds",
			Help:    "Statement execution latency by verb.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"verb"},
	)
	tableFallbackTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sqlask_table_selection_fallback_total",
			Help: "Total number of table selections that fell back to every known table.",
		},
	)
	archiveUploadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlask_archive_uploads_total",
			Help: "Total number of result archive uploads by status.",
		},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(
		pipelineRequestsTotal,
		modelCallsTotal,
		modelCallDurationSeconds,
		statementsTotal,
		statementDurationSeconds,
		tableFallbackTotal,
		archiveUploadsTotal,
	)
}

func ObservePipelineOutcome(outcome string) {
	pipelineRequestsTotal.WithLabelValues(outcome).Inc()
}

func ObserveModelCall(stage string, err error, elapsed time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	modelCallsTotal.WithLabelValues(stage, status).Inc()
	modelCallDurationSeconds.WithLabelValues(stage).Observe(elapsed.Seconds())
}

func ObserveStatement(verb, status string, elapsed time.Duration) {
	if verb == "" {
		verb = "unknown"
	}
	statementsTotal.WithLabelValues(verb, status).Inc()
	statementDurationSeconds.WithLabelValues(verb).Observe(elapsed.Seconds())
}

func IncrementTableFallback() {
	tableFallbackTotal.Inc()
}

func ObserveArchiveUpload(err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	archiveUploadsTotal.WithLabelValues(status).Inc()
}
