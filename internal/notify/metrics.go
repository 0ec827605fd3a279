package notify

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "splitpot_notify_events_delivered_total",
		Help: "Events successfully handed to an observer channel.",
	})
	eventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "splitpot_notify_events_dropped_total",
		Help: "Events dropped because an observer channel was full or dead.",
	})
	connectedChannels = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "splitpot_notify_connected_channels",
		Help: "Currently connected observer channels.",
	})
)
