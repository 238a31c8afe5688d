package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		redemptionsTotal,
	)
}

var redemptionsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "code_redemptions_total",
		Help: "Redemption attempts by code kind and outcome.",
	},
	[]string{"kind", "outcome"}, // outcome: 'success' or a rejection name
)

func IncRedemption(kind, outcome string) {
	if kind == "" {
		kind = "unknown"
	}
	redemptionsTotal.WithLabelValues(kind, outcome).Inc()
}
