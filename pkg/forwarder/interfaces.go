package forwarder

import (
	"context"
	"io"
	"time"
)

// State is a lifecycle state of a Forwarder
type State int

const (
	Idle State = iota
	SessionOpen
	Enumerated
	Subscribed
	Running
	ShuttingDown
	Closed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case SessionOpen:
		return "SessionOpen"
	case Enumerated:
		return "Enumerated"
	case Subscribed:
		return "Subscribed"
	case Running:
		return "Running"
	case ShuttingDown:
		return "ShuttingDown"
	case Closed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// Forwarder relays OS console messages of partitions to syslog servers
type Forwarder interface {
	io.Closer

	// Start runs the startup sequence and launches the dispatch loop.
	// On failure everything opened so far is released before returning.
	Start(ctx context.Context) error

	// Shutdown stops forwarding and releases all resources. Every cleanup
	// step is attempted even if an earlier one fails.
	Shutdown(ctx context.Context) error

	// State returns the current lifecycle state
	State() State

	// Health returns the overall health of the forwarder
	Health() HealthStatus

	// Stats returns counters since Start
	Stats() Stats

	// Partitions returns the forwarded partitions sorted by URI
	Partitions() []PartitionStatus
}

// HealthStatus represents the overall health of a forwarder
type HealthStatus struct {
	// Healthy is true while the forwarder is Running
	Healthy bool

	State State

	// ForwardedPartitions is the number of partitions matched by the routing table
	ForwardedPartitions int

	// SubscribedPartitions is the number of partitions with a subscribed topic
	SubscribedPartitions int

	// Syslogs is the number of usable syslog senders
	Syslogs int

	// DisabledSyslogs is the number of syslog servers skipped at startup
	DisabledSyslogs int

	// Message provides additional health information
	Message string
}

// Stats are counters of the dispatch loop and the delivery fan-out
type Stats struct {
	StartedAt            time.Time
	Notifications        uint64
	IgnoredNotifications uint64
	ReceiveErrors        uint64
	Messages             uint64
	Deliveries           uint64
	DeliveryFailures     uint64
}

// PartitionStatus describes one forwarded partition
type PartitionStatus struct {
	URI     string
	Name    string
	Complex string
	Topic   string
	Syslogs []string
}
