package server

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics covers the shell: connections, queues, matches and message
// traffic. Engine internals stay out of the metric surface.
type Metrics struct {
	ConnectedClients prometheus.Gauge
	QueuedPlayers    prometheus.Gauge
	ActiveMatches    prometheus.Gauge
	MatchesStarted   prometheus.Counter
	MatchesFinished  *prometheus.CounterVec
	MessagesReceived *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ConnectedClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "holocardserver",
			Name:      "connected_clients",
			Help:      "Currently connected websocket clients.",
		}),
		QueuedPlayers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "holocardserver",
			Name:      "queued_players",
			Help:      "Players waiting in matchmaking queues.",
		}),
		ActiveMatches: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "holocardserver",
			Name:      "active_matches",
			Help:      "Matches currently running.",
		}),
		MatchesStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "holocardserver",
			Name:      "matches_started_total",
			Help:      "Matches started since boot.",
		}),
		MatchesFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "holocardserver",
			Name:      "matches_finished_total",
			Help:      "Matches finished since boot, by close reason.",
		}, []string{"reason"}),
		MessagesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "holocardserver",
			Name:      "messages_received_total",
			Help:      "Client messages received, by message type.",
		}, []string{"message_type"}),
	}
	reg.MustRegister(
		m.ConnectedClients,
		m.QueuedPlayers,
		m.ActiveMatches,
		m.MatchesStarted,
		m.MatchesFinished,
		m.MessagesReceived,
	)
	return m
}
