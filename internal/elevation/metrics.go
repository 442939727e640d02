package elevation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var verifications = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "authelia_elevation_verifications_total",
	Help: "Step-up code verification attempts by outcome",
}, []string{"outcome"})

func observeVerification(outcome string) {
	verifications.WithLabelValues(outcome).Inc()
}
