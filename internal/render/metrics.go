package render

import "github.com/prometheus/client_golang/prometheus"

var (
	wsClients = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "race_ws_clients", Help: "Connected websocket clients"},
	)
	wsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "race_ws_dropped_messages_total", Help: "Messages dropped on full client queues"},
	)
	historyDropped = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "race_history_dropped_events_total", Help: "Play-through events dropped on a full history queue"},
	)
)

func RegisterMetrics() {
	prometheus.MustRegister(wsClients, wsDropped, historyDropped)
}
