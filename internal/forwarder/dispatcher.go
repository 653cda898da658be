package forwarder

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rmacdonaldsmith/lpar-forwarder/internal/metrics"
	"github.com/rmacdonaldsmith/lpar-forwarder/pkg/console"
)

// DispatchState is the state of a Dispatcher
type DispatchState int32

const (
	DispatchStopped DispatchState = iota
	DispatchRunning
	DispatchStopping
)

func (s DispatchState) String() string {
	switch s {
	case DispatchStopped:
		return "Stopped"
	case DispatchRunning:
		return "Running"
	case DispatchStopping:
		return "Stopping"
	default:
		return "Unknown"
	}
}

// Dispatcher pulls notifications from a stream and hands OS messages to a Fanout
type Dispatcher struct {
	stream  console.NotificationStream
	fanout  *Fanout
	logger  *slog.Logger
	metrics *metrics.Metrics

	startedAt     time.Time
	state         atomic.Int32
	notifications atomic.Uint64
	ignored       atomic.Uint64
	receiveErrors atomic.Uint64
	messages      atomic.Uint64
}

// NewDispatcher creates a dispatcher reading from stream
func NewDispatcher(stream console.NotificationStream, fanout *Fanout, logger *slog.Logger, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{
		stream:    stream,
		fanout:    fanout,
		logger:    logger,
		metrics:   m,
		startedAt: time.Now(),
	}
}

// Run relays notifications until ctx is cancelled or the stream is closed.
//
// A failed pull is logged and retried immediately, without backoff and
// without limit. Cancellation is checked before every pull, so a retry
// storm still ends promptly once ctx is done.
func (d *Dispatcher) Run(ctx context.Context) {
	d.state.Store(int32(DispatchRunning))
	defer d.state.Store(int32(DispatchStopped))

	for {
		if ctx.Err() != nil {
			d.state.Store(int32(DispatchStopping))
			return
		}

		n, err := d.stream.Next(ctx)
		if err != nil {
			if errors.Is(err, console.ErrStreamClosed) || ctx.Err() != nil {
				d.state.Store(int32(DispatchStopping))
				return
			}
			d.receiveErrors.Add(1)
			d.metrics.ReceiveErrors.Inc()
			d.logger.Error("error receiving notifications", "error", err)
			d.logger.Info("receiving notifications again")
			continue
		}
		if n == nil {
			continue
		}
		d.handle(n)
	}
}

func (d *Dispatcher) handle(n *console.Notification) {
	d.notifications.Add(1)
	d.metrics.Notifications.Inc()

	if n.Kind != console.KindOSMessage {
		d.ignored.Add(1)
		d.metrics.IgnoredNotifications.WithLabelValues(metrics.KindLabel(n.Kind)).Inc()
		d.logger.Warn("ignoring unknown notification",
			"kind", n.Kind,
			"class", n.ObjectClass,
			"name", n.ObjectName,
			"subscription", n.Subscription,
			"destination", n.Destination)
		return
	}

	for _, m := range n.Messages {
		d.messages.Add(1)
		d.metrics.Messages.Inc()
		d.fanout.Deliver(n.ObjectURI, m.SequenceNumber, strings.TrimRight(m.Text, "\n"))
	}
}

// State returns the current dispatch state
func (d *Dispatcher) State() DispatchState {
	return DispatchState(d.state.Load())
}

// StartedAt returns when the dispatcher was created
func (d *Dispatcher) StartedAt() time.Time { return d.startedAt }

// Notifications returns the number of notifications handled
func (d *Dispatcher) Notifications() uint64 { return d.notifications.Load() }

// Ignored returns the number of notifications of an unknown kind
func (d *Dispatcher) Ignored() uint64 { return d.ignored.Load() }

// ReceiveErrors returns the number of failed pulls
func (d *Dispatcher) ReceiveErrors() uint64 { return d.receiveErrors.Load() }

// Messages returns the number of OS messages handled
func (d *Dispatcher) Messages() uint64 { return d.messages.Load() }
