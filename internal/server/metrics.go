package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricActions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "unreel_actions_total",
		Help: "Inbound client actions by type, including dropped ones.",
	}, []string{"type"})

	metricBroadcasts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "unreel_broadcasts_total",
		Help: "State snapshots and reset notices fanned out to rooms.",
	})

	metricQuoteFetchFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "unreel_quote_fetch_failures_total",
		Help: "Quote provider calls that fell through to the next tier.",
	}, []string{"provider"})

	metricActiveRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "unreel_active_rooms",
		Help: "Rooms currently held in memory.",
	})

	metricConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "unreel_connections",
		Help: "Live websocket connections across all rooms.",
	})
)
