package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DeliveriesTotal counts delivery outcomes per platform.
	DeliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pluma_deliveries_total",
		Help: "Delivery outcomes by platform and final status.",
	}, []string{"platform", "status"})

	// AdapterCallDuration observes how long external publish calls take.
	AdapterCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pluma_adapter_call_duration_seconds",
		Help:    "Duration of adapter publish calls.",
		Buckets: prometheus.DefBuckets,
	}, []string{"platform"})

	// QueuedJobs counts jobs handed to the dispatch queue.
	QueuedJobs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pluma_queued_jobs_total",
		Help: "Jobs enqueued by topic.",
	}, []string{"topic"})
)
