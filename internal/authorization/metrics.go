package authorization

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var authzDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "authelia_authz_decisions_total",
	Help: "Authorization check outcomes by evaluated policy and result",
}, []string{"policy", "result"})

// ObserveDecision records one authorization check for monitoring. The result
// label is allow, not_authenticated or not_authorized.
func ObserveDecision(policy Policy, result string) {
	authzDecisions.WithLabelValues(policy.String(), result).Inc()
}
