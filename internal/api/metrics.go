package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsPrefix = "tnr_"

var httpRequests = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: metricsPrefix + "http_requests_total",
		Help: "Number of HTTP requests served, by route, method and status code",
	},
	[]string{"route", "method", "code"},
)

var httpDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    metricsPrefix + "http_request_duration_seconds",
		Help:    "Time taken to serve an HTTP request",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"route"},
)

var runResults = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: metricsPrefix + "run_results_total",
		Help: "Number of run case results recorded, by status",
	},
	[]string{"status"},
)
