package health

import (
	"errors"
	"io"
	"log/slog"
	"time"
)

// ErrMissingListenAddress is returned when no listen address is configured
var ErrMissingListenAddress = errors.New("listen address cannot be empty")

// Config holds configuration for the gRPC health service
type Config struct {
	ListenAddress string

	// PollInterval is how often the forwarder state is sampled
	PollInterval time.Duration

	Logger *slog.Logger
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.ListenAddress == "" {
		return ErrMissingListenAddress
	}
	return nil
}

// SetDefaults sets sensible default values for unset configuration fields
func (c *Config) SetDefaults() {
	if c.PollInterval <= 0 {
		c.PollInterval = time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
}
