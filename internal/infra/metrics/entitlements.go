package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		entitlementsDowngradedTotal,
		cascadeRecomputesTotal,
	)
}

var entitlementsDowngradedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "entitlements_downgraded_total",
		Help: "Subscription downgrades by trigger ('lazy_read' or 'sweep').",
	},
	[]string{"trigger"},
)

var cascadeRecomputesTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "entitlement_cascade_recomputes_total",
		Help: "Holder snapshots recomputed by code status cascades.",
	},
)

func IncEntitlementDowngraded(trigger string) {
	entitlementsDowngradedTotal.WithLabelValues(trigger).Inc()
}

func AddCascadeRecomputes(n int) {
	cascadeRecomputesTotal.Add(float64(n))
}
