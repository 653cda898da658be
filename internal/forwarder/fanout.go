package forwarder

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/rmacdonaldsmith/lpar-forwarder/internal/metrics"
	"github.com/rmacdonaldsmith/lpar-forwarder/internal/registry"
	"github.com/rmacdonaldsmith/lpar-forwarder/internal/syslog"
	"github.com/rmacdonaldsmith/lpar-forwarder/pkg/routingtable"
)

// SenderSource looks up the sender of a target
type SenderSource interface {
	Sender(target *routingtable.SyslogTarget) (syslog.Sender, bool)
}

// Fanout delivers one console line to every destination of a partition
type Fanout struct {
	registry *registry.Registry
	senders  SenderSource
	logger   *slog.Logger
	metrics  *metrics.Metrics

	deliveries atomic.Uint64
	failures   atomic.Uint64
}

// NewFanout creates a fan-out over the entries of reg
func NewFanout(reg *registry.Registry, senders SenderSource, logger *slog.Logger, m *metrics.Metrics) *Fanout {
	return &Fanout{
		registry: reg,
		senders:  senders,
		logger:   logger,
		metrics:  m,
	}
}

// FormatLine renders a console message the way it is sent to syslog
func FormatLine(complexName, partitionName string, seq int64, text string) string {
	return fmt.Sprintf("%s %s %d: %s", complexName, partitionName, seq, text)
}

// Deliver sends the message to each destination of uri in order.
// Unknown partitions and disabled targets are skipped silently. A failing
// destination is logged and does not stop delivery to the others.
func (f *Fanout) Deliver(uri string, seq int64, text string) {
	entry, ok := f.registry.Entry(uri)
	if !ok {
		return
	}

	line := FormatLine(entry.Partition.ComplexName, entry.Partition.Name, seq, text)
	for _, target := range entry.Destinations {
		sender, ok := f.senders.Sender(target)
		if !ok {
			continue
		}
		if err := send(sender, line); err != nil {
			f.failures.Add(1)
			f.metrics.DeliveryFailures.WithLabelValues(target.String()).Inc()
			f.logger.Warn("cannot send OS message to syslog server",
				"syslog", target.Host,
				"seq", seq,
				"partition", entry.Partition.Name,
				"cpc", entry.Partition.ComplexName,
				"error", err)
			continue
		}
		f.deliveries.Add(1)
		f.metrics.Deliveries.WithLabelValues(target.String()).Inc()
	}
}

// Deliveries returns the number of successful sends
func (f *Fanout) Deliveries() uint64 {
	return f.deliveries.Load()
}

// Failures returns the number of failed sends
func (f *Fanout) Failures() uint64 {
	return f.failures.Load()
}

// send calls sender.Send and turns a panic into an error
func send(sender syslog.Sender, line string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("syslog sender panicked: %v", r)
		}
	}()
	return sender.Send(line)
}
