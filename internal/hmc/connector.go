package hmc

import (
	"context"
	"fmt"

	"github.com/rmacdonaldsmith/lpar-forwarder/internal/notify"
	"github.com/rmacdonaldsmith/lpar-forwarder/pkg/console"
)

// Connector implements console.Connector for one HMC
type Connector struct {
	config Config
}

// NewConnector validates config and returns a connector
func NewConnector(config Config) (*Connector, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid HMC config: %w", err)
	}
	config.SetDefaults()
	return &Connector{config: config}, nil
}

// Logon implements console.Connector
func (c *Connector) Logon(ctx context.Context) (console.Session, error) {
	client, err := NewClient(c.config)
	if err != nil {
		return nil, err
	}
	if err := client.Logon(ctx); err != nil {
		return nil, err
	}
	return client, nil
}

// OpenNotifications implements console.Connector
func (c *Connector) OpenNotifications(ctx context.Context) (console.NotificationStream, error) {
	tlsConfig, err := c.config.TLSConfig()
	if err != nil {
		return nil, err
	}
	c.config.NotifyLogger.Info("connecting to notification service", "address", c.config.StompAddress())
	return notify.Dial(ctx, notify.Config{
		Address:        c.config.StompAddress(),
		Login:          c.config.UserID,
		Passcode:       c.config.Password,
		TLSConfig:      tlsConfig,
		ConnectTimeout: c.config.ConnectTimeout,
		Logger:         c.config.NotifyLogger,
	})
}

// Verify that Connector implements the Connector interface at compile time
var _ console.Connector = (*Connector)(nil)
