package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "cache_transporter"

type metrics struct {
	registry     *prometheus.Registry
	requests     *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	bytesWritten *prometheus.CounterVec
	hashMismatch prometheus.Counter
}

func newMetrics(registry *prometheus.Registry) *metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	m := &metrics{
		registry: registry,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Number of HTTP requests by bucket, method and status code.",
		}, []string{"bucket", "method", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests by bucket and method.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"bucket", "method"}),
		bytesWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_written_total",
			Help:      "Number of bytes accepted into storage by bucket.",
		}, []string{"bucket"}),
		hashMismatch: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hash_mismatch_total",
			Help:      "Number of content addressed uploads rejected because their content does not match their key.",
		}),
	}
	registry.MustRegister(m.requests, m.duration, m.bytesWritten, m.hashMismatch)
	return m
}
