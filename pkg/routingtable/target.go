package routingtable

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

const (
	// DefaultPort is the well-known syslog port
	DefaultPort = 514

	// DefaultFacility is used when a target does not name one
	DefaultFacility = "user"
)

// Transport is the network transport used to reach a syslog server
type Transport int

const (
	// Stream delivers over TCP (rsyslog and newer collectors)
	Stream Transport = iota

	// Datagram delivers over UDP (classic BSD syslog)
	Datagram
)

// ParseTransport parses a port type as written in the configuration.
// "tcp" and "stream" map to Stream, "udp" and "datagram" to Datagram.
// An empty string yields the default, Stream.
func ParseTransport(s string) (Transport, error) {
	switch strings.ToLower(s) {
	case "", "tcp", "stream":
		return Stream, nil
	case "udp", "datagram":
		return Datagram, nil
	default:
		return Stream, fmt.Errorf("unknown port type %q (allowed: tcp, udp)", s)
	}
}

// Network returns the net package network name for the transport
func (t Transport) Network() string {
	if t == Datagram {
		return "udp"
	}
	return "tcp"
}

// String returns the configuration spelling of the transport
func (t Transport) String() string {
	return t.Network()
}

// Format is the syslog wire format written to a target
type Format int

const (
	// RFC3164 is the BSD syslog format
	RFC3164 Format = iota

	// RFC5424 is the IETF syslog format
	RFC5424
)

// ParseFormat parses a format name. An empty string yields RFC3164.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "rfc3164":
		return RFC3164, nil
	case "rfc5424":
		return RFC5424, nil
	default:
		return RFC3164, fmt.Errorf("unknown syslog format %q (allowed: rfc3164, rfc5424)", s)
	}
}

// String returns the configuration spelling of the format
func (f Format) String() string {
	if f == RFC5424 {
		return "rfc5424"
	}
	return "rfc3164"
}

// Facilities lists the syslog facilities a target may use
var Facilities = []string{
	"user", "local0", "local1", "local2", "local3",
	"local4", "local5", "local6", "local7",
}

// ValidFacility reports whether name is one of Facilities
func ValidFacility(name string) bool {
	for _, f := range Facilities {
		if f == name {
			return true
		}
	}
	return false
}

// SyslogTarget is one syslog destination. It is immutable once compiled and
// shared by pointer between all partition entries of a forwarding entry.
type SyslogTarget struct {
	// Host is the syslog server host name or IP address
	Host string

	// Port is the syslog server port
	Port int

	// Transport selects TCP or UDP
	Transport Transport

	// Facility is the syslog facility name (user, local0..local7)
	Facility string

	// Format is the wire format of delivered messages
	Format Format
}

// NewSyslogTarget creates a target with default port, transport, facility and format
func NewSyslogTarget(host string) *SyslogTarget {
	return &SyslogTarget{
		Host:      host,
		Port:      DefaultPort,
		Transport: Stream,
		Facility:  DefaultFacility,
		Format:    RFC3164,
	}
}

// Address returns the dialable host:port of the target
func (t *SyslogTarget) Address() string {
	return net.JoinHostPort(t.Host, strconv.Itoa(t.Port))
}

// String renders the target as host:port/transport
func (t *SyslogTarget) String() string {
	return fmt.Sprintf("%s/%s", t.Address(), t.Transport)
}
