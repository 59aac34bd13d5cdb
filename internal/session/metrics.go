package session

import "github.com/prometheus/client_golang/prometheus"

var activeSessions = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "textlayer",
		Subsystem: "session",
		Name:      "active_books",
		Help:      "The number of open book sessions.",
	},
)

func init() {
	prometheus.MustRegister(activeSessions)
}
