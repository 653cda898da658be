// Package syslog delivers formatted console lines to syslog servers.
package syslog

import (
	"fmt"
	"strings"

	"github.com/RackSec/srslog"

	"github.com/rmacdonaldsmith/lpar-forwarder/pkg/routingtable"
)

// Tag is the syslog tag (APP-NAME) of forwarded lines
const Tag = "lpar-forwarder"

// Sender sends lines to one syslog server
type Sender interface {
	// Send transmits line as a single syslog message
	Send(line string) error

	// Close releases the connection
	Close() error
}

// Dialer creates the Sender for a target
type Dialer func(target *routingtable.SyslogTarget) (Sender, error)

// DeliveryError reports a failed send to one target
type DeliveryError struct {
	Target string
	Err    error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("cannot send to syslog server %s: %v", e.Target, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

var facilities = map[string]srslog.Priority{
	"user":   srslog.LOG_USER,
	"local0": srslog.LOG_LOCAL0,
	"local1": srslog.LOG_LOCAL1,
	"local2": srslog.LOG_LOCAL2,
	"local3": srslog.LOG_LOCAL3,
	"local4": srslog.LOG_LOCAL4,
	"local5": srslog.LOG_LOCAL5,
	"local6": srslog.LOG_LOCAL6,
	"local7": srslog.LOG_LOCAL7,
}

// Facility returns the srslog facility for name, LOG_USER if unknown
func Facility(name string) srslog.Priority {
	if f, ok := facilities[name]; ok {
		return f
	}
	return srslog.LOG_USER
}

// srslogSender is a Sender backed by a srslog.Writer
type srslogSender struct {
	target string
	writer *srslog.Writer
}

// Dial connects to target using its transport, facility and format.
// Datagram dials only resolve the address, so they fail on bad host names
// but not on unreachable servers.
func Dial(target *routingtable.SyslogTarget) (Sender, error) {
	writer, err := srslog.Dial(target.Transport.Network(), target.Address(), Facility(target.Facility)|srslog.LOG_INFO, Tag)
	if err != nil {
		return nil, fmt.Errorf("cannot create syslog sender for %s: %w", target, err)
	}

	switch target.Format {
	case routingtable.RFC5424:
		writer.SetFormatter(srslog.RFC5424Formatter)
	default:
		writer.SetFormatter(srslog.RFC3164Formatter)
	}

	return &srslogSender{target: target.String(), writer: writer}, nil
}

func (s *srslogSender) Send(line string) error {
	// a stream connection is framed by newlines, embedded ones would split the message
	line = strings.ReplaceAll(line, "\n", " ")
	if err := s.writer.Info(line); err != nil {
		return &DeliveryError{Target: s.target, Err: err}
	}
	return nil
}

func (s *srslogSender) Close() error {
	return s.writer.Close()
}

// Verify that srslogSender implements the Sender interface at compile time
var _ Sender = (*srslogSender)(nil)
