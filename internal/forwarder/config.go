package forwarder

import (
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/rmacdonaldsmith/lpar-forwarder/internal/metrics"
	"github.com/rmacdonaldsmith/lpar-forwarder/internal/syslog"
	"github.com/rmacdonaldsmith/lpar-forwarder/pkg/console"
	"github.com/rmacdonaldsmith/lpar-forwarder/pkg/routingtable"
)

// DefaultCleanupTimeout bounds the shutdown that follows a failed startup
const DefaultCleanupTimeout = 30 * time.Second

var (
	// ErrNilConnector is returned when no console connector is configured
	ErrNilConnector = errors.New("console connector cannot be nil")
	// ErrNilMatcher is returned when no routing table is configured
	ErrNilMatcher = errors.New("routing table cannot be nil")
)

// Config represents configuration for a Controller
type Config struct {
	// Connector opens console sessions and notification streams
	Connector console.Connector

	// Matcher is the compiled routing table
	Matcher routingtable.Matcher

	// Dialer creates syslog senders; defaults to syslog.Dial
	Dialer syslog.Dialer

	// Logger receives forwarder logs; defaults to a discarding logger
	Logger *slog.Logger

	// Metrics are updated by the dispatch loop; defaults to unregistered collectors
	Metrics *metrics.Metrics

	// CleanupTimeout bounds the best-effort shutdown after a failed startup
	CleanupTimeout time.Duration
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	if c.Connector == nil {
		return ErrNilConnector
	}
	if c.Matcher == nil {
		return ErrNilMatcher
	}
	if c.CleanupTimeout < 0 {
		return errors.New("cleanup timeout cannot be negative")
	}
	return nil
}

// SetDefaults fills in unset optional fields
func (c *Config) SetDefaults() {
	if c.Dialer == nil {
		c.Dialer = syslog.Dial
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if c.Metrics == nil {
		c.Metrics = metrics.New(nil)
	}
	if c.CleanupTimeout == 0 {
		c.CleanupTimeout = DefaultCleanupTimeout
	}
}
