package hmc

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strconv"
	"time"
)

const (
	// DefaultPort is the port of the HMC Web Services API
	DefaultPort = 6794

	// DefaultStompPort is the port of the HMC notification (STOMP) service
	DefaultStompPort = 61612

	// DefaultConnectTimeout bounds establishing a connection
	DefaultConnectTimeout = 10 * time.Second

	// DefaultReadTimeout bounds waiting for a response
	DefaultReadTimeout = 300 * time.Second
)

var (
	// ErrMissingHost is returned when no HMC host is configured
	ErrMissingHost = errors.New("HMC host cannot be empty")
	// ErrMissingCredentials is returned when userid or password is missing
	ErrMissingCredentials = errors.New("HMC userid and password are required")
)

// Config holds the connection settings of an HMC
type Config struct {
	Host      string
	Port      int
	StompPort int
	UserID    string
	Password  string

	// VerifyCert enables server certificate verification
	VerifyCert bool

	// CAFile is a PEM bundle used instead of the system roots when set
	CAFile string

	// BaseURL overrides https://Host:Port, mainly for tests
	BaseURL string

	ConnectTimeout time.Duration
	ReadTimeout    time.Duration

	// Logger receives request level logs (the "hmc" component)
	Logger *slog.Logger

	// NotifyLogger receives notification transport logs (the "jms" component)
	NotifyLogger *slog.Logger
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	if c.Host == "" && c.BaseURL == "" {
		return ErrMissingHost
	}
	if c.UserID == "" || c.Password == "" {
		return ErrMissingCredentials
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.StompPort < 0 || c.StompPort > 65535 {
		return fmt.Errorf("invalid stomp port %d", c.StompPort)
	}
	return nil
}

// SetDefaults sets reasonable default values for the config
func (c *Config) SetDefaults() {
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.StompPort == 0 {
		c.StompPort = DefaultStompPort
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if c.NotifyLogger == nil {
		c.NotifyLogger = c.Logger
	}
}

// URL returns the base URL of the Web Services API
func (c *Config) URL() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	return "https://" + net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// StompAddress returns the host:port of the notification service
func (c *Config) StompAddress() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.StompPort))
}

// TLSConfig returns the client TLS settings for both the REST API and
// the notification service
func (c *Config) TLSConfig() (*tls.Config, error) {
	tlsConfig := &tls.Config{
		MinVersion: tls.VersionTLS12,
		ServerName: c.Host,
	}
	if !c.VerifyCert {
		tlsConfig.InsecureSkipVerify = true
		return tlsConfig, nil
	}
	if c.CAFile == "" {
		return tlsConfig, nil
	}

	pem, err := os.ReadFile(c.CAFile)
	if err != nil {
		return nil, fmt.Errorf("cannot read CA file: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("no certificates found in CA file %s", c.CAFile)
	}
	tlsConfig.RootCAs = pool
	return tlsConfig, nil
}
