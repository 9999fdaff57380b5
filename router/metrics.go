package router

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	decodeFailures prometheus.Counter
	dispatched     prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &metrics{
		decodeFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "afriverse",
			Subsystem: "router",
			Name:      "decode_failures_total",
			Help:      "Inbound frames dropped because they failed to decode.",
		}),
		dispatched: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "afriverse",
			Subsystem: "router",
			Name:      "messages_dispatched_total",
			Help:      "Decoded messages dispatched to at least one subscription.",
		}),
	}
}
