package source

import "github.com/prometheus/client_golang/prometheus"

var fetchOps = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "textlayer",
		Subsystem: "source",
		Name:      "document_fetch_ops_total",
		Help:      "The total number of OCR document resolutions by result.",
	},
	[]string{"result"},
)

func init() {
	prometheus.MustRegister(fetchOps)
}
