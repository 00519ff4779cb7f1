//-------------------------------------------------------------------------
//
// pgEdge NL2SQL Server
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package metrics exposes Prometheus metrics for pipeline runs, stages,
// inference calls and HTTP requests.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels shared by pipeline and stage metrics.
const (
	OutcomeSuccess = "success"
	OutcomeSoft    = "soft_error"
	OutcomeFatal   = "fatal_error"
)

var (
	pipelineRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pgedge_nl2sql_pipeline_runs_total",
			Help: "Total number of pipeline runs by outcome.",
		},
		[]string{"outcome"},
	)

	pipelineDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pgedge_nl2sql_pipeline_duration_seconds",
			Help:    "Pipeline run latency by outcome.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
		},
		[]string{"outcome"},
	)

	stageResultsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pgedge_nl2sql_stage_results_total",
			Help: "Total number of stage results by stage and outcome.",
		},
		[]string{"stage", "outcome"},
	)

	stageDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pgedge_nl2sql_stage_duration_seconds",
			Help:    "Stage latency by stage.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"},
	)

	inferenceRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pgedge_nl2sql_inference_requests_total",
			Help: "Total number of inference calls by instruction and result.",
		},
		[]string{"instruction", "result"},
	)

	inferenceDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pgedge_nl2sql_inference_duration_seconds",
			Help:    "Inference call latency by instruction.",
			Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 40, 60},
		},
		[]string{"instruction"},
	)

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pgedge_nl2sql_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pgedge_nl2sql_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

func init() {
	prometheus.MustRegister(
		pipelineRunsTotal,
		pipelineDurationSeconds,
		stageResultsTotal,
		stageDurationSeconds,
		inferenceRequestsTotal,
		inferenceDurationSeconds,
		httpRequestsTotal,
		httpRequestDurationSeconds,
	)
}

// ObservePipelineRun records the outcome and latency of one pipeline run.
func ObservePipelineRun(outcome string, elapsed time.Duration) {
	pipelineRunsTotal.WithLabelValues(outcome).Inc()
	pipelineDurationSeconds.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// ObserveStage records the outcome and latency of one stage invocation.
func ObserveStage(stage, outcome string, elapsed time.Duration) {
	stageResultsTotal.WithLabelValues(stage, outcome).Inc()
	stageDurationSeconds.WithLabelValues(stage).Observe(elapsed.Seconds())
}

// ObserveInference records one inference call. Result is "ok" or the
// inference error kind.
func ObserveInference(instruction, result string, elapsed time.Duration) {
	inferenceRequestsTotal.WithLabelValues(instruction, result).Inc()
	inferenceDurationSeconds.WithLabelValues(instruction).Observe(elapsed.Seconds())
}

// ObserveHTTPRequest records one served HTTP request.
func ObserveHTTPRequest(method, path, status string, elapsed time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, path, status).Observe(elapsed.Seconds())
}

// Handler returns the Prometheus scrape handler for the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
