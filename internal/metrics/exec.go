// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MainQueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "eventbus_main_queue_depth",
		Help: "Number of tasks waiting on a serial main loop",
	}, []string{"loop"})

	BackgroundWorkers = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "eventbus_background_workers",
		Help: "Number of live background worker goroutines",
	}, []string{"pool"})

	MainTasksDiscardedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eventbus_main_tasks_discarded_total",
		Help: "Queued main loop tasks dropped because the loop ended before running them",
	}, []string{"loop"})

	ExecutorPanicsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eventbus_executor_panics_total",
		Help: "Panics caught by an executor safety net",
	}, []string{"executor"})
)

// SetMainQueueDepth publishes the current depth of a main loop queue.
func SetMainQueueDepth(loop string, depth int) {
	MainQueueDepth.WithLabelValues(normalize(loop)).Set(float64(depth))
}

// AddBackgroundWorkers adjusts the live worker gauge of a pool by delta.
func AddBackgroundWorkers(pool string, delta int) {
	BackgroundWorkers.WithLabelValues(normalize(pool)).Add(float64(delta))
}

// IncExecutorPanic records a panic recovered by an executor.
func IncExecutorPanic(executor string) {
	ExecutorPanicsTotal.WithLabelValues(normalize(executor)).Inc()
}

// AddMainTasksDiscarded records queued tasks a main loop dropped unrun.
func AddMainTasksDiscarded(loop string, n int) {
	MainTasksDiscardedTotal.WithLabelValues(normalize(loop)).Add(float64(n))
}
