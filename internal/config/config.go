// Package config loads the forwarder configuration document.
//
// The document is a YAML file with an "hmc" section (console endpoint and
// credentials), a "forwarding" section (which LPARs go to which syslog
// servers) and an optional "api" section for the status surfaces.
// Unknown keys are rejected so that typos fail loudly at startup.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultPath is where the forwarder looks for its config file
	DefaultPath = "/etc/lpar-forwarder/config.yaml"

	// DefaultHMCPort is the port of the HMC Web Services API
	DefaultHMCPort = 6794

	// DefaultStompPort is the port of the HMC notification (STOMP) service
	DefaultStompPort = 61612
)

var (
	// ErrMissingHMCHost is returned when hmc.host is empty
	ErrMissingHMCHost = errors.New("hmc.host is required")
	// ErrMissingUserID is returned when hmc.userid is empty
	ErrMissingUserID = errors.New("hmc.userid is required")
	// ErrMissingPassword is returned when hmc.password is empty
	ErrMissingPassword = errors.New("hmc.password is required")
	// ErrNoForwarding is returned when the forwarding list is empty
	ErrNoForwarding = errors.New("forwarding must contain at least one entry")
)

// Error reports a problem reading or decoding a config file
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("config file %s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Config is the forwarder configuration document
type Config struct {
	// HMC is the management console connection
	HMC HMCConfig `yaml:"hmc"`

	// Forwarding is the ordered list of routing entries
	Forwarding []Forwarding `yaml:"forwarding"`

	// API enables the optional status surfaces
	API *APIConfig `yaml:"api,omitempty"`

	// Dir is the directory of the file the config was loaded from.
	// Relative paths in the document are resolved against it.
	Dir string `yaml:"-"`
}

// HMCConfig describes how to reach the management console
type HMCConfig struct {
	Host     string `yaml:"host"`
	UserID   string `yaml:"userid"`
	Password string `yaml:"password"`

	// VerifyCert is true/false, or the path of a CA bundle
	VerifyCert *VerifyCert `yaml:"verify_cert,omitempty"`

	// Port of the Web Services REST API
	Port int `yaml:"port,omitempty"`

	// StompPort of the notification service
	StompPort int `yaml:"stomp_port,omitempty"`
}

// VerifyCert holds the certificate verification setting of the HMC section.
// In YAML it is either a boolean or a CA bundle path.
type VerifyCert struct {
	Enabled bool
	CAFile  string
}

// UnmarshalYAML accepts a boolean or a string path
func (v *VerifyCert) UnmarshalYAML(node *yaml.Node) error {
	switch node.Tag {
	case "!!bool":
		var enabled bool
		if err := node.Decode(&enabled); err != nil {
			return err
		}
		*v = VerifyCert{Enabled: enabled}
		return nil
	case "!!str":
		if node.Value == "" {
			return fmt.Errorf("line %d: verify_cert path cannot be empty", node.Line)
		}
		*v = VerifyCert{Enabled: true, CAFile: node.Value}
		return nil
	default:
		return fmt.Errorf("line %d: verify_cert must be a boolean or a CA file path", node.Line)
	}
}

// MarshalYAML writes the value back in its input form
func (v VerifyCert) MarshalYAML() (interface{}, error) {
	if v.CAFile != "" {
		return v.CAFile, nil
	}
	return v.Enabled, nil
}

// Forwarding is one routing entry: a set of syslog servers and the
// complexes and partitions whose messages go there
type Forwarding struct {
	Syslogs []Syslog `yaml:"syslogs"`
	CPCs    []CPC    `yaml:"cpcs"`
}

// Syslog is one syslog server of a forwarding entry
type Syslog struct {
	Host string `yaml:"host,omitempty"`

	// Server is the legacy spelling of Host
	Server string `yaml:"server,omitempty"`

	Port     int    `yaml:"port,omitempty"`
	PortType string `yaml:"port_type,omitempty"`
	Facility string `yaml:"facility,omitempty"`
	Format   string `yaml:"format,omitempty"`
}

// Address returns Host, falling back to the legacy Server key
func (s Syslog) Address() string {
	if s.Host != "" {
		return s.Host
	}
	return s.Server
}

// CPC is a complex name pattern and its partition patterns
type CPC struct {
	CPC        string      `yaml:"cpc"`
	Partitions []Partition `yaml:"partitions"`
}

// Partition is a partition name pattern
type Partition struct {
	Partition string `yaml:"partition"`
}

// APIConfig configures the status HTTP API and the gRPC health service.
// Empty addresses disable the corresponding surface.
type APIConfig struct {
	ListenAddress     string `yaml:"listen_address,omitempty"`
	SecretKey         string `yaml:"secret_key,omitempty"`
	GRPCHealthAddress string `yaml:"grpc_health_address,omitempty"`
}

// Load reads, decodes, defaults and validates the config file at path
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Path: path, Err: err}
	}
	return Parse(data, path)
}

// Parse decodes, defaults and validates a config document. path is used for
// error messages and to resolve relative file references.
func Parse(data []byte, path string) (*Config, error) {
	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			err = errors.New("document is empty")
		}
		return nil, &Error{Path: path, Err: err}
	}

	if path != "" {
		cfg.Dir = filepath.Dir(path)
	}
	cfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, &Error{Path: path, Err: err}
	}
	return &cfg, nil
}

// SetDefaults fills in unset optional fields
func (c *Config) SetDefaults() {
	if c.HMC.VerifyCert == nil {
		c.HMC.VerifyCert = &VerifyCert{Enabled: true}
	}
	if c.HMC.Port <= 0 {
		c.HMC.Port = DefaultHMCPort
	}
	if c.HMC.StompPort <= 0 {
		c.HMC.StompPort = DefaultStompPort
	}
}

// Validate checks the fields the forwarder cannot start without.
// Routing entries are checked in depth when they are compiled.
func (c *Config) Validate() error {
	if c.HMC.Host == "" {
		return ErrMissingHMCHost
	}
	if c.HMC.UserID == "" {
		return ErrMissingUserID
	}
	if c.HMC.Password == "" {
		return ErrMissingPassword
	}
	if len(c.Forwarding) == 0 {
		return ErrNoForwarding
	}
	if c.API != nil && c.API.ListenAddress != "" && c.API.SecretKey == "" {
		return errors.New("api.secret_key is required when api.listen_address is set")
	}
	return nil
}

// CAFile returns the absolute path of the configured CA bundle, or "" when
// the default trust store (or no verification) is used
func (c *Config) CAFile() string {
	if c.HMC.VerifyCert == nil || c.HMC.VerifyCert.CAFile == "" {
		return ""
	}
	caFile := c.HMC.VerifyCert.CAFile
	if !filepath.IsAbs(caFile) && c.Dir != "" {
		caFile = filepath.Join(c.Dir, caFile)
	}
	return caFile
}

// Example is the annotated config document printed by --help-config
const Example = `---
hmc:
  host: 10.11.12.13
  userid: "myuser"
  password: "mypassword"
  verify_cert: false        # or a CA bundle path, relative to this file

forwarding:
  - syslogs:
      - host: 10.11.12.14
        port: 514           # default: 514
        port_type: tcp      # tcp or udp, default: tcp
        facility: user      # user, local0..local7, default: user
    cpcs:
      - cpc: MYCPC
        partitions:
          - partition: ".*"

api:                        # optional
  listen_address: ":8081"
  secret_key: "change-me"
  grpc_health_address: ":9091"
`
