package board

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EventsApplied counts events applied to the board by type and resulting change.
	EventsApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kitchenboard_events_applied_total",
		Help: "Kitchen events applied to the board",
	}, []string{"type", "change"})

	// EventsDropped counts events that never reached the board.
	EventsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kitchenboard_events_dropped_total",
		Help: "Kitchen events dropped before or during application",
	}, []string{"reason"})

	// TicketsOnBoard tracks the current board size.
	TicketsOnBoard = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "kitchenboard_tickets",
		Help: "Tickets currently on the board",
	})

	// SourceGenerations counts source activations by source name.
	SourceGenerations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kitchenboard_source_activations_total",
		Help: "Times a source became the active board feed",
	}, []string{"source"})

	// SourceDegraded is 1 while the active source reports transport failures.
	SourceDegraded = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "kitchenboard_source_degraded",
		Help: "1 while the active source is failing to reach its upstream",
	})

	// SubscribersEvicted counts stream subscribers disconnected for falling behind.
	SubscribersEvicted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kitchenboard_stream_subscribers_evicted_total",
		Help: "Stream subscribers disconnected because their update buffer was full",
	})
)

const (
	DropReasonDecode          = "decode"
	DropReasonStaleGeneration = "stale_generation"
	DropReasonAwaitSnapshot   = "awaiting_snapshot"
	DropReasonApply           = "apply"
)
