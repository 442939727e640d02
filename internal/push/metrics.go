package push

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var pushPolls = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "authelia_push_polls_total",
	Help: "Push approval poll responses by discriminated result",
}, []string{"result"})

func observePush(result string) {
	pushPolls.WithLabelValues(result).Inc()
}
