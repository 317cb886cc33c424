// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package lifecycle

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/holomush/coresystem/internal/core"
)

var (
	operationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coresystem_lifecycle_operations_total",
			Help: "Lifecycle operations by name and outcome",
		},
		[]string{"operation", "status"},
	)
	xpGrantedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coresystem_xp_granted_total",
			Help: "XP committed to Cores by reason",
		},
		[]string{"reason"},
	)
	levelUpsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "coresystem_level_ups_total",
			Help: "Levels gained across all Cores",
		},
	)
)

// RegisterMetrics registers lifecycle metrics with reg.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(operationsTotal, xpGrantedTotal, levelUpsTotal)
}

func recordOperation(op string, err error) {
	status := "ok"
	if err != nil {
		status = string(core.KindOf(err))
	}
	operationsTotal.WithLabelValues(op, status).Inc()
}
