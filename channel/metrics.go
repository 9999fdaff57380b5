package channel

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	epochs         prometheus.Counter
	framesReceived prometheus.Counter
	sendsDropped   prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &metrics{
		epochs: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "afriverse",
			Subsystem: "channel",
			Name:      "epochs_total",
			Help:      "Connection epochs started.",
		}),
		framesReceived: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "afriverse",
			Subsystem: "channel",
			Name:      "frames_received_total",
			Help:      "Inbound frames delivered by the transport.",
		}),
		sendsDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "afriverse",
			Subsystem: "channel",
			Name:      "sends_dropped_total",
			Help:      "Outbound frames discarded without reaching a transport.",
		}),
	}
}
