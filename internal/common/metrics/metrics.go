// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	StageCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intake_stage_completed_total",
			Help: "Total number of stage transitions completed",
		},
		[]string{"stage"},
	)

	StageFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intake_stage_failed_total",
			Help: "Total number of stage executions that ended fatal",
		},
		[]string{"stage", "error_code"},
	)

	ItemDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "intake_item_duration_seconds",
			Help: "Duration of per-application processing in seconds",
		},
		[]string{"status"},
	)

	ItemsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "intake_items_in_flight",
			Help: "Number of applications currently being processed",
		},
	)

	BatchesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intake_batches_processed_total",
			Help: "Total number of batches processed",
		},
		[]string{"source"},
	)
)
