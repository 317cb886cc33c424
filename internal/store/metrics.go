// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package store

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// RecordWrites counts persisted writes by outcome.
var RecordWrites = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "coresystem_store_writes_total",
		Help: "Total number of core record writes",
	},
	[]string{"status"},
)

// RecordWriteDuration observes write latency including retries.
var RecordWriteDuration = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "coresystem_store_write_duration_seconds",
		Help:    "Core record write duration in seconds, including retries",
		Buckets: prometheus.DefBuckets,
	},
)

// RecordWriteRetries counts retried write attempts.
var RecordWriteRetries = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "coresystem_store_write_retries_total",
		Help: "Total number of retried core record write attempts",
	},
)

// RegisterMetrics registers store metrics with reg.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(RecordWrites)
	reg.MustRegister(RecordWriteDuration)
	reg.MustRegister(RecordWriteRetries)
}

// RecordWrite records the outcome of one coalesced write.
func RecordWrite(err error, attempts int, d time.Duration) {
	status := "success"
	if err != nil {
		status = "error"
	}
	RecordWrites.WithLabelValues(status).Inc()
	RecordWriteDuration.Observe(d.Seconds())
	if attempts > 1 {
		RecordWriteRetries.Add(float64(attempts - 1))
	}
}
