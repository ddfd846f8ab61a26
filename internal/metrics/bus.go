// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PostsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "eventbus_posts_total",
		Help: "Total number of messages posted to the bus",
	})

	UnmatchedPostsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "eventbus_unmatched_posts_total",
		Help: "Total number of posted messages that matched no handler",
	})

	DeliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eventbus_deliveries_total",
		Help: "Total number of handler invocations that completed, by thread mode",
	}, []string{"mode"})

	HandlerFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eventbus_handler_failures_total",
		Help: "Total number of failed handler invocations by thread mode and reason",
	}, []string{"mode", "reason"})

	StaleSkipsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eventbus_stale_skips_total",
		Help: "Queued invocations skipped because their subscriber was unregistered first",
	}, []string{"mode"})

	RegistrationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eventbus_registrations_total",
		Help: "Total number of register calls by result",
	}, []string{"result"})

	RegisteredSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "eventbus_registered_subscribers",
		Help: "Number of subscribers currently registered across all buses",
	})
)

// IncPost records a posted message.
func IncPost() {
	PostsTotal.Inc()
}

// IncUnmatchedPost records a post that reached no handler.
func IncUnmatchedPost() {
	UnmatchedPostsTotal.Inc()
}

// IncDelivery records a completed handler invocation.
func IncDelivery(mode string) {
	DeliveriesTotal.WithLabelValues(normalize(mode)).Inc()
}

// IncHandlerFailure records a failed handler invocation with a concrete reason.
func IncHandlerFailure(mode, reason string) {
	HandlerFailuresTotal.WithLabelValues(normalize(mode), normalize(reason)).Inc()
}

// IncStaleSkip records a queued invocation dropped after unregistration.
func IncStaleSkip(mode string) {
	StaleSkipsTotal.WithLabelValues(normalize(mode)).Inc()
}

// IncRegistration records the outcome of a register call.
func IncRegistration(result string) {
	RegistrationsTotal.WithLabelValues(normalize(result)).Inc()
}

// AddRegisteredSubscribers adjusts the registered subscriber gauge by delta.
func AddRegisteredSubscribers(delta int) {
	RegisteredSubscribers.Add(float64(delta))
}

func normalize(label string) string {
	if label == "" {
		return "unknown"
	}
	return label
}
