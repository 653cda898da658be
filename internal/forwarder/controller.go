// Package forwarder implements the lifecycle, dispatch loop and delivery
// fan-out of the OS message forwarder.
package forwarder

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"go.uber.org/multierr"

	"github.com/rmacdonaldsmith/lpar-forwarder/internal/inventory"
	"github.com/rmacdonaldsmith/lpar-forwarder/internal/registry"
	"github.com/rmacdonaldsmith/lpar-forwarder/internal/syslog"
	"github.com/rmacdonaldsmith/lpar-forwarder/pkg/console"
	"github.com/rmacdonaldsmith/lpar-forwarder/pkg/forwarder"
	"github.com/rmacdonaldsmith/lpar-forwarder/pkg/routingtable"
)

// Controller implements the forwarder.Forwarder interface.
// It owns the console session, the notification stream, the syslog
// senders and the dispatch goroutine.
type Controller struct {
	mu     sync.Mutex
	config *Config
	logger *slog.Logger

	state atomic.Int32

	registry *registry.Registry
	pool     *syslog.Pool

	session    console.Session
	stream     console.NotificationStream
	fanout     *Fanout
	dispatcher atomic.Pointer[Dispatcher]

	cancel context.CancelFunc
	done   chan struct{}
}

// NewController creates a controller in state Idle. Nothing is opened
// until Start is called.
func NewController(config *Config) (*Controller, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	config.SetDefaults()

	reg := registry.NewRegistry(config.Matcher)
	pool := syslog.NewPool(config.Dialer, config.Logger)

	return &Controller{
		config:   config,
		logger:   config.Logger,
		registry: reg,
		pool:     pool,
		fanout:   NewFanout(reg, pool, config.Logger, config.Metrics),
	}, nil
}

// Start implements forwarder.Forwarder
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.State() != forwarder.Idle {
		return ErrAlreadyStarted
	}

	c.logger.Info("opening session with HMC")
	session, err := c.config.Connector.Logon(ctx)
	if err != nil {
		return c.fail(ctx, fmt.Errorf("logon: %w", err))
	}
	c.session = session
	c.setState(forwarder.SessionOpen)

	c.logger.Info("determining forwarded partitions")
	added, err := inventory.Populate(ctx, inventory.NewSessionInventory(session), c.registry, c.logger)
	if err != nil {
		return c.fail(ctx, fmt.Errorf("enumerate partitions: %w", err))
	}
	c.config.Metrics.ForwardedPartitions.Set(float64(added))
	c.setState(forwarder.Enumerated)

	c.logger.Info("opening notification receiver")
	stream, err := c.config.Connector.OpenNotifications(ctx)
	if err != nil {
		return c.fail(ctx, fmt.Errorf("open notification receiver: %w", err))
	}
	c.stream = stream

	if err := c.subscribeAll(ctx); err != nil {
		return c.fail(ctx, err)
	}
	c.setState(forwarder.Subscribed)

	usable := c.pool.Open(c.subscribedTargets())
	c.logger.Debug("syslog senders ready", "usable", usable, "disabled", len(c.pool.Disabled()))

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.cancel = cancel
	c.done = make(chan struct{})
	dispatcher := NewDispatcher(stream, c.fanout, c.logger, c.config.Metrics)
	c.dispatcher.Store(dispatcher)

	go func(done chan struct{}) {
		defer close(done)
		dispatcher.Run(loopCtx)
	}(c.done)

	c.setState(forwarder.Running)
	c.logger.Info("forwarder is running", "partitions", added)
	return nil
}

// subscribeAll opens the message channel of every registered partition and
// subscribes its topic
func (c *Controller) subscribeAll(ctx context.Context) error {
	for _, entry := range c.registry.Entries() {
		p := entry.Partition
		c.logger.Debug("opening OS message channel", "cpc", p.ComplexName, "partition", p.Name)

		result, err := c.session.OpenMessageChannel(ctx, p)
		if err != nil {
			return fmt.Errorf("open OS message channel of partition %s on CPC %s: %w", p.Name, p.ComplexName, err)
		}

		switch result.Status {
		case console.Unsupported:
			c.logger.Warn("the OS in the partition does not support OS messages, ignoring the partition",
				"cpc", p.ComplexName, "partition", p.Name)
			continue
		case console.AlreadyOpen:
			c.logger.Info("reusing existing OS message channel",
				"cpc", p.ComplexName, "partition", p.Name, "topic", result.Topic)
		}

		if err := c.stream.Subscribe(result.Topic); err != nil {
			return fmt.Errorf("subscribe topic %s of partition %s: %w", result.Topic, p.Name, err)
		}
		c.registry.SetTopic(p.URI, result.Topic)
	}
	return nil
}

// subscribedTargets returns the distinct targets of partitions with a topic
func (c *Controller) subscribedTargets() []*routingtable.SyslogTarget {
	seen := make(map[*routingtable.SyslogTarget]bool)
	var targets []*routingtable.SyslogTarget
	for _, entry := range c.registry.Entries() {
		if entry.Topic == "" {
			continue
		}
		for _, target := range entry.Destinations {
			if !seen[target] {
				seen[target] = true
				targets = append(targets, target)
			}
		}
	}
	return targets
}

// fail cleans up after a fatal startup error. Must be called with mu held.
func (c *Controller) fail(ctx context.Context, err error) error {
	startupErr := &StartupError{State: c.State(), Err: err}
	c.logger.Error("forwarder startup failed", "state", startupErr.State.String(), "error", err)

	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.config.CleanupTimeout)
	defer cancel()
	if cleanupErr := c.shutdownLocked(cleanupCtx); cleanupErr != nil {
		c.logger.Error("error when cleaning up", "error", cleanupErr)
	}
	return startupErr
}

// Shutdown implements forwarder.Forwarder
func (c *Controller) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.shutdownLocked(ctx)
}

// shutdownLocked releases resources in reverse order of acquisition.
// Every step runs even when an earlier one failed.
func (c *Controller) shutdownLocked(ctx context.Context) error {
	if c.State() == forwarder.Closed {
		return nil
	}
	c.setState(forwarder.ShuttingDown)

	var errs error

	if c.stream != nil {
		seen := make(map[string]bool)
		for _, entry := range c.registry.Entries() {
			if entry.Topic == "" || seen[entry.Topic] {
				continue
			}
			seen[entry.Topic] = true
			c.logger.Debug("unsubscribing OS message channel",
				"cpc", entry.Partition.ComplexName, "partition", entry.Partition.Name)
			if err := c.stream.Unsubscribe(entry.Topic); err != nil {
				c.logger.Error("cannot unsubscribe", "topic", entry.Topic, "error", err)
				errs = multierr.Append(errs, fmt.Errorf("unsubscribe %s: %w", entry.Topic, err))
			}
		}

		c.logger.Info("closing notification receiver")
		if err := c.stream.Close(); err != nil {
			c.logger.Error("cannot close notification receiver", "error", err)
			errs = multierr.Append(errs, fmt.Errorf("close notification receiver: %w", err))
		}
		c.stream = nil
	}

	if c.cancel != nil {
		c.logger.Info("stopping dispatch loop")
		c.cancel()
		select {
		case <-c.done:
		case <-ctx.Done():
			errs = multierr.Append(errs, fmt.Errorf("stop dispatch loop: %w", ctx.Err()))
		}
		c.cancel = nil
	}

	if err := c.pool.Close(); err != nil {
		c.logger.Error("cannot close syslog senders", "error", err)
		errs = multierr.Append(errs, fmt.Errorf("close syslog senders: %w", err))
	}

	if c.session != nil {
		c.logger.Info("closing session with HMC")
		if err := c.session.Logoff(ctx); err != nil {
			c.logger.Error("cannot log off", "error", err)
			errs = multierr.Append(errs, fmt.Errorf("logoff: %w", err))
		}
		c.session = nil
	}

	c.setState(forwarder.Closed)
	return errs
}

// Close implements io.Closer
func (c *Controller) Close() error {
	return c.Shutdown(context.Background())
}

// State implements forwarder.Forwarder
func (c *Controller) State() forwarder.State {
	return forwarder.State(c.state.Load())
}

func (c *Controller) setState(s forwarder.State) {
	c.state.Store(int32(s))
	c.logger.Debug("forwarder state changed", "state", s.String())
}

// Health implements forwarder.Forwarder
func (c *Controller) Health() forwarder.HealthStatus {
	state := c.State()
	subscribed := 0
	entries := c.registry.Entries()
	for _, entry := range entries {
		if entry.Topic != "" {
			subscribed++
		}
	}

	status := forwarder.HealthStatus{
		Healthy:              state == forwarder.Running,
		State:                state,
		ForwardedPartitions:  len(entries),
		SubscribedPartitions: subscribed,
		Syslogs:              c.pool.Len(),
		DisabledSyslogs:      len(c.pool.Disabled()),
	}
	switch {
	case state == forwarder.Running:
		status.Message = fmt.Sprintf("forwarding %d of %d partitions", subscribed, len(entries))
	case state < forwarder.Running:
		status.Message = "starting"
	default:
		status.Message = "shutting down"
	}
	return status
}

// Stats implements forwarder.Forwarder
func (c *Controller) Stats() forwarder.Stats {
	stats := forwarder.Stats{
		Deliveries:       c.fanout.Deliveries(),
		DeliveryFailures: c.fanout.Failures(),
	}
	if dispatcher := c.dispatcher.Load(); dispatcher != nil {
		stats.StartedAt = dispatcher.StartedAt()
		stats.Notifications = dispatcher.Notifications()
		stats.IgnoredNotifications = dispatcher.Ignored()
		stats.ReceiveErrors = dispatcher.ReceiveErrors()
		stats.Messages = dispatcher.Messages()
	}
	return stats
}

// Partitions implements forwarder.Forwarder
func (c *Controller) Partitions() []forwarder.PartitionStatus {
	entries := c.registry.Entries()
	partitions := make([]forwarder.PartitionStatus, 0, len(entries))
	for _, entry := range entries {
		syslogs := make([]string, 0, len(entry.Destinations))
		for _, target := range entry.Destinations {
			syslogs = append(syslogs, target.String())
		}
		partitions = append(partitions, forwarder.PartitionStatus{
			URI:     entry.Partition.URI,
			Name:    entry.Partition.Name,
			Complex: entry.Partition.ComplexName,
			Topic:   entry.Topic,
			Syslogs: syslogs,
		})
	}
	return partitions
}

// Registry returns the registry of forwarded partitions
func (c *Controller) Registry() *registry.Registry {
	return c.registry
}

// Verify that Controller implements the Forwarder interface at compile time
var _ forwarder.Forwarder = (*Controller)(nil)
