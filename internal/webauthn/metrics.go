package webauthn

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var ceremonies = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "authelia_webauthn_ceremonies_total",
	Help: "Completed ceremony attempts by ceremony kind and outcome",
}, []string{"ceremony", "outcome"})

func observeCeremony(ceremony string, outcome Outcome) {
	ceremonies.WithLabelValues(ceremony, string(outcome)).Inc()
}
