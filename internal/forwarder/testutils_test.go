package forwarder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"github.com/rmacdonaldsmith/lpar-forwarder/internal/config"
	"github.com/rmacdonaldsmith/lpar-forwarder/internal/routingtable"
	"github.com/rmacdonaldsmith/lpar-forwarder/internal/syslog"
	routingtablepkg "github.com/rmacdonaldsmith/lpar-forwarder/pkg/routingtable"
)

// logRecord is one captured log call with its attributes rendered as strings
type logRecord struct {
	Level   slog.Level
	Message string
	Attrs   map[string]string
}

// logCapture is a slog.Handler that keeps every record for assertions
type logCapture struct {
	mu      *sync.Mutex
	records *[]logRecord
	attrs   []slog.Attr
}

func newLogCapture() *logCapture {
	return &logCapture{mu: &sync.Mutex{}, records: &[]logRecord{}}
}

func (c *logCapture) Enabled(context.Context, slog.Level) bool { return true }

func (c *logCapture) Handle(_ context.Context, r slog.Record) error {
	rec := logRecord{Level: r.Level, Message: r.Message, Attrs: make(map[string]string)}
	for _, a := range c.attrs {
		rec.Attrs[a.Key] = a.Value.String()
	}
	r.Attrs(func(a slog.Attr) bool {
		rec.Attrs[a.Key] = a.Value.String()
		return true
	})
	c.mu.Lock()
	*c.records = append(*c.records, rec)
	c.mu.Unlock()
	return nil
}

func (c *logCapture) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &logCapture{mu: c.mu, records: c.records, attrs: append(append([]slog.Attr(nil), c.attrs...), attrs...)}
}

func (c *logCapture) WithGroup(string) slog.Handler { return c }

func (c *logCapture) logger() *slog.Logger { return slog.New(c) }

// find returns the records with the given level and message
func (c *logCapture) find(level slog.Level, msg string) []logRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	var found []logRecord
	for _, r := range *c.records {
		if r.Level == level && r.Message == msg {
			found = append(found, r)
		}
	}
	return found
}

// fakeSender records lines and can be told to fail or panic
type fakeSender struct {
	mu       sync.Mutex
	lines    []string
	err      error
	panicMsg string
	closed   bool
}

func (s *fakeSender) Send(line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.panicMsg != "" {
		panic(s.panicMsg)
	}
	if s.err != nil {
		return s.err
	}
	s.lines = append(s.lines, line)
	return nil
}

func (s *fakeSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeSender) Lines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.lines...)
}

func (s *fakeSender) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// fakeDialer hands out one fakeSender per host
type fakeDialer struct {
	mu      sync.Mutex
	senders map[string]*fakeSender
	refuse  map[string]bool
}

func newFakeDialer() *fakeDialer {
	return &fakeDialer{senders: make(map[string]*fakeSender), refuse: make(map[string]bool)}
}

func (d *fakeDialer) Dial(target *routingtablepkg.SyslogTarget) (syslog.Sender, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.refuse[target.Host] {
		return nil, fmt.Errorf("dial %s: %w", target, errors.New("connection refused"))
	}
	sender, ok := d.senders[target.Host]
	if !ok {
		sender = &fakeSender{}
		d.senders[target.Host] = sender
	}
	return sender, nil
}

// sender returns the sender for host, creating it so tests can configure it before dialing
func (d *fakeDialer) sender(host string) *fakeSender {
	d.mu.Lock()
	defer d.mu.Unlock()
	sender, ok := d.senders[host]
	if !ok {
		sender = &fakeSender{}
		d.senders[host] = sender
	}
	return sender
}

// compileRoutes builds a table from one forwarding entry per complex pattern
func compileRoutes(t *testing.T, entries ...config.Forwarding) *routingtable.Table {
	t.Helper()
	table, err := routingtable.Compile(entries)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	return table
}

func forwarding(complexPattern, partitionPattern string, hosts ...string) config.Forwarding {
	entry := config.Forwarding{
		CPCs: []config.CPC{{CPC: complexPattern, Partitions: []config.Partition{{Partition: partitionPattern}}}},
	}
	for _, h := range hosts {
		entry.Syslogs = append(entry.Syslogs, config.Syslog{Host: h})
	}
	return entry
}
