// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package command

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Status labels for command execution metrics.
const (
	StatusSuccess          = "success"
	StatusError            = "error"
	StatusNotFound         = "not_found"
	StatusPermissionDenied = "permission_denied"
	StatusRateLimited      = "rate_limited"
)

var (
	commandExecutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coresystem_command_executions_total",
			Help: "Total number of command executions",
		},
		[]string{"command", "status"},
	)
	commandDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "coresystem_command_duration_seconds",
			Help:    "Command execution duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"command"},
	)
	commandOutputFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coresystem_command_output_failures_total",
			Help: "Writes to a command's output that failed",
		},
		[]string{"command"},
	)
)

// RegisterMetrics registers command package metrics with reg.
// Panics if registration fails.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(commandExecutions, commandDuration, commandOutputFailures)
}

func recordExecution(command, status string, started time.Time) {
	commandExecutions.WithLabelValues(command, status).Inc()
	if status == StatusSuccess || status == StatusError {
		commandDuration.WithLabelValues(command).Observe(time.Since(started).Seconds())
	}
}

// RecordOutputFailure counts a failed write to command output.
func RecordOutputFailure(command string) {
	commandOutputFailures.WithLabelValues(command).Inc()
}
