package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(codesIssuedTotal)
}

var codesIssuedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "codes_issued_total",
		Help: "Codes issued by kind.",
	},
	[]string{"kind"},
)

func IncCodeIssued(kind string) {
	codesIssuedTotal.WithLabelValues(kind).Inc()
}
