// Package metrics exposes forwarder counters as Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "lpar_forwarder"

// OtherKind is the label of notification kinds the HMC does not document
const OtherKind = "other"

// knownKinds are the HMC notification types; anything else is counted as OtherKind
var knownKinds = map[string]bool{
	"property-change":  true,
	"status-change":    true,
	"inventory-change": true,
	"job-completion":   true,
	"log-entry":        true,
	"os-message":       true,
}

// KindLabel returns the label value for a notification kind received from the wire
func KindLabel(kind string) string {
	if knownKinds[kind] {
		return kind
	}
	return OtherKind
}

// Metrics is the set of collectors updated by the dispatch loop and fan-out
type Metrics struct {
	Notifications        prometheus.Counter
	IgnoredNotifications *prometheus.CounterVec
	ReceiveErrors        prometheus.Counter
	Messages             prometheus.Counter
	Deliveries           *prometheus.CounterVec
	DeliveryFailures     *prometheus.CounterVec
	ForwardedPartitions  prometheus.Gauge
}

// New creates the collectors and registers them with reg.
// A nil reg leaves them unregistered, which tests use.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Notifications: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notifications received from the console.",
		}),
		IgnoredNotifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ignored_notifications_total",
			Help:      "Notifications of a kind other than os-message, by kind.",
		}, []string{"kind"}),
		ReceiveErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "receive_errors_total",
			Help:      "Failed pulls from the notification stream.",
		}),
		Messages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "os_messages_total",
			Help:      "OS console messages received.",
		}),
		Deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_total",
			Help:      "Lines sent to syslog servers.",
		}, []string{"syslog"}),
		DeliveryFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delivery_failures_total",
			Help:      "Lines that could not be sent to a syslog server.",
		}, []string{"syslog"}),
		ForwardedPartitions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "forwarded_partitions",
			Help:      "Partitions whose OS messages are forwarded.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.Notifications,
			m.IgnoredNotifications,
			m.ReceiveErrors,
			m.Messages,
			m.Deliveries,
			m.DeliveryFailures,
			m.ForwardedPartitions,
		)
	}
	return m
}
