package totp

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var submissions = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "authelia_totp_submissions_total",
	Help: "One-time passcode submissions by outcome",
}, []string{"outcome"})

func observeSubmission(outcome string) {
	submissions.WithLabelValues(outcome).Inc()
}
