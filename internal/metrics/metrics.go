// Package metrics holds the process-wide Prometheus collectors served at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "wordle_battle"

var (
	MatchesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "matchmaker",
		Name:      "matches_created_total",
		Help:      "Rooms created by the matchmaker.",
	})

	QueueRequeues = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "matchmaker",
		Name:      "requeues_total",
		Help:      "Players put back into the pool, by reason.",
	}, []string{"reason"})

	StoreErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "store_errors_total",
		Help:      "Failed store operations, by component.",
	}, []string{"component"})

	Guesses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "session",
		Name:      "guesses_total",
		Help:      "Submitted guesses, by outcome.",
	}, []string{"result"})

	EventsDelivered = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "gateway",
		Name:      "events_delivered_total",
		Help:      "Bus events pushed to local connections, by event type.",
	}, []string{"type"})

	EventsMalformed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "gateway",
		Name:      "events_malformed_total",
		Help:      "Bus payloads that could not be decoded.",
	})

	BusResubscribes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "bus",
		Name:      "resubscribes_total",
		Help:      "Subscriptions re-established after a drop, by topic.",
	}, []string{"topic"})

	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "gateway",
		Name:      "active_connections",
		Help:      "Open client connections on this process.",
	})
)
