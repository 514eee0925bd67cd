// Package metrics holds the Prometheus collectors shared by the canvas
// service. They are registered with the default registry on import.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// CanvasOperations counts store operations by name and whether they
	// changed the canvas ("applied") or were dropped ("ignored").
	CanvasOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "architex_canvas_operations_total",
			Help: "Canvas store operations by operation and result",
		},
		[]string{"op", "result"},
	)

	// StateSaves counts persistence writes.
	StateSaves = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "architex_state_saves_total",
			Help: "Canvas state saves by result",
		},
		[]string{"result"},
	)

	// ActiveWorkspaces is the number of canvases held in memory.
	ActiveWorkspaces = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "architex_workspaces_active",
			Help: "Canvases currently loaded in memory",
		},
	)

	// JobPolls counts status fetches made while waiting on a job.
	JobPolls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "architex_job_polls_total",
			Help: "Job status polls by result",
		},
		[]string{"result"},
	)

	// JobOutcomes counts how job waits ended.
	JobOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "architex_job_outcomes_total",
			Help: "Generation job waits by final outcome",
		},
		[]string{"outcome"},
	)

	// HTTPRequests counts served requests.
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "architex_http_requests_total",
			Help: "HTTP requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPDuration observes request latency.
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "architex_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

func init() {
	prometheus.MustRegister(
		CanvasOperations,
		StateSaves,
		ActiveWorkspaces,
		JobPolls,
		JobOutcomes,
		HTTPRequests,
		HTTPDuration,
	)
}

// Result maps a bool outcome onto the applied/ignored label.
func Result(applied bool) string {
	if applied {
		return "applied"
	}
	return "ignored"
}
