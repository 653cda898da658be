// Package consoletest provides in-memory console collaborators for tests.
package consoletest

import (
	"context"
	"errors"
	"sync"

	"github.com/rmacdonaldsmith/lpar-forwarder/pkg/console"
)

// Console is a scripted console.Connector. Exported fields configure its
// behaviour and must be set before use; the recorded calls are read through
// the accessor methods.
type Console struct {
	Complexes  []console.Complex
	Partitions map[string][]console.Partition // keyed by complex URI
	Results    map[string]console.OpenResult  // keyed by partition URI, default Opened with topic "topic-"+name
	OpenErrors map[string]error               // keyed by partition URI

	LogonErr         error
	ListErr          error
	NotificationsErr error
	LogoffErr        error

	Stream *Stream

	mu       sync.Mutex
	logons   int
	logoffs  int
	opened   []string
	sessions []*Session
}

// NewConsole creates a console with one complex per name, each holding the
// given partition names, and an empty stream.
func NewConsole(layout map[string][]string) *Console {
	c := &Console{
		Partitions: make(map[string][]console.Partition),
		Results:    make(map[string]console.OpenResult),
		OpenErrors: make(map[string]error),
		Stream:     NewStream(),
	}
	for _, complexName := range sortedKeys(layout) {
		cpc := console.Complex{URI: "/api/cpcs/" + complexName, Name: complexName, DPMEnabled: true}
		c.Complexes = append(c.Complexes, cpc)
		for _, name := range layout[complexName] {
			c.Partitions[cpc.URI] = append(c.Partitions[cpc.URI], console.Partition{
				URI:         PartitionURI(complexName, name),
				Name:        name,
				ComplexName: complexName,
				ComplexURI:  cpc.URI,
			})
		}
	}
	return c
}

// PartitionURI returns the URI NewConsole assigns to a partition
func PartitionURI(complexName, name string) string {
	return "/api/partitions/" + complexName + "-" + name
}

// Logon implements console.Connector
func (c *Console) Logon(ctx context.Context) (console.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logons++
	if c.LogonErr != nil {
		return nil, c.LogonErr
	}
	s := &Session{console: c}
	c.sessions = append(c.sessions, s)
	return s, nil
}

// OpenNotifications implements console.Connector
func (c *Console) OpenNotifications(ctx context.Context) (console.NotificationStream, error) {
	if c.NotificationsErr != nil {
		return nil, c.NotificationsErr
	}
	return c.Stream, nil
}

// Logoffs returns how many times a session was logged off
func (c *Console) Logoffs() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.logoffs
}

// Opened returns the partition URIs whose message channel was opened
func (c *Console) Opened() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.opened...)
}

// Session is the console.Session handed out by Console
type Session struct {
	console *Console
}

// ListComplexes implements console.Session
func (s *Session) ListComplexes(ctx context.Context) ([]console.Complex, error) {
	if s.console.ListErr != nil {
		return nil, s.console.ListErr
	}
	return append([]console.Complex(nil), s.console.Complexes...), nil
}

// ListPartitions implements console.Session
func (s *Session) ListPartitions(ctx context.Context, c console.Complex) ([]console.Partition, error) {
	if s.console.ListErr != nil {
		return nil, s.console.ListErr
	}
	return append([]console.Partition(nil), s.console.Partitions[c.URI]...), nil
}

// OpenMessageChannel implements console.Session
func (s *Session) OpenMessageChannel(ctx context.Context, p console.Partition) (console.OpenResult, error) {
	c := s.console
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.OpenErrors[p.URI]; err != nil {
		return console.OpenResult{}, err
	}
	c.opened = append(c.opened, p.URI)
	if result, ok := c.Results[p.URI]; ok {
		return result, nil
	}
	return console.OpenResult{Status: console.Opened, Topic: "topic-" + p.Name}, nil
}

// Logoff implements console.Session
func (s *Session) Logoff(ctx context.Context) error {
	c := s.console
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logoffs++
	return c.LogoffErr
}

// item is either a notification or a pull error
type item struct {
	notification *console.Notification
	err          error
}

// Stream is an in-memory console.NotificationStream fed by Push and PushError
type Stream struct {
	items  chan item
	closed chan struct{}

	// UnsubscribeErr and CloseErr are returned by the matching calls
	UnsubscribeErr error
	CloseErr       error

	mu         sync.Mutex
	closeOnce  sync.Once
	topics     map[string]bool
	subscribed []string
	pulls      int
}

// NewStream creates an empty stream
func NewStream() *Stream {
	return &Stream{
		items:  make(chan item, 1024),
		closed: make(chan struct{}),
		topics: make(map[string]bool),
	}
}

// Push queues a notification for Next
func (s *Stream) Push(n *console.Notification) {
	s.items <- item{notification: n}
}

// PushError queues a pull error for Next
func (s *Stream) PushError(err error) {
	s.items <- item{err: err}
}

// Subscribe implements console.NotificationStream
func (s *Stream) Subscribe(topic string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isClosed() {
		return console.ErrStreamClosed
	}
	s.topics[topic] = true
	s.subscribed = append(s.subscribed, topic)
	return nil
}

// Unsubscribe implements console.NotificationStream
func (s *Stream) Unsubscribe(topic string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.UnsubscribeErr != nil {
		return s.UnsubscribeErr
	}
	if !s.topics[topic] {
		return errors.New("not subscribed: " + topic)
	}
	delete(s.topics, topic)
	return nil
}

// Next implements console.NotificationStream
func (s *Stream) Next(ctx context.Context) (*console.Notification, error) {
	s.mu.Lock()
	s.pulls++
	s.mu.Unlock()

	// a closed stream wins over queued items
	if s.isClosed() {
		return nil, console.ErrStreamClosed
	}
	select {
	case it := <-s.items:
		return it.notification, it.err
	case <-s.closed:
		return nil, console.ErrStreamClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close implements console.NotificationStream
func (s *Stream) Close() error {
	s.closeOnce.Do(func() { close(s.closed) })
	return s.CloseErr
}

// Closed reports whether Close was called
func (s *Stream) Closed() bool {
	return s.isClosed()
}

// Topics returns the topics currently subscribed
func (s *Stream) Topics() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	topics := make([]string, 0, len(s.topics))
	for _, t := range s.subscribed {
		if s.topics[t] {
			topics = append(topics, t)
		}
	}
	return topics
}

// Subscribed returns every topic ever subscribed, in order
func (s *Stream) Subscribed() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.subscribed...)
}

// Pulls returns how many times Next was called
func (s *Stream) Pulls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pulls
}

// Pending returns how many queued items Next has not consumed yet
func (s *Stream) Pending() int {
	return len(s.items)
}

func (s *Stream) isClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}
