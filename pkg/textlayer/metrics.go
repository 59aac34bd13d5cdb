package textlayer

import "github.com/prometheus/client_golang/prometheus"

var layerOps = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "textlayer",
		Subsystem: "synthesizer",
		Name:      "layer_ops_total",
		Help:      "The total number of text layer attach attempts by outcome.",
	},
	[]string{"outcome"},
)

func init() {
	prometheus.MustRegister(layerOps)
}
