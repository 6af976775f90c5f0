package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RidesSubmitted  = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_hailing", Name: "rides_submitted_total", Help: "Total ride requests submitted"})
	RidesAccepted   = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_hailing", Name: "rides_accepted_total", Help: "Total rides accepted by a driver"})
	AcceptConflicts = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_hailing", Name: "accept_conflicts_total", Help: "Accept attempts that lost the race or hit a non-pending ride"})
	TripsOpened     = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_hailing", Name: "trips_opened_total", Help: "Total trips opened"})

	AcceptLatency = promauto.NewHistogram(prometheus.HistogramOpts{Namespace: "ride_hailing", Name: "accept_latency_seconds", Help: "Accept operation latency"})

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "ride_hailing", Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ride_hailing",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
