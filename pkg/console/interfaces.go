package console

import (
	"context"
	"errors"
	"fmt"
)

// ErrStreamClosed is returned by NotificationStream.Next once Close was called
var ErrStreamClosed = errors.New("notification stream closed")

// OpenStatus is the outcome of opening an OS message channel
type OpenStatus int

const (
	// Opened means a new channel was created for the partition
	Opened OpenStatus = iota
	// AlreadyOpen means a channel existed and its topic is reused
	AlreadyOpen
	// Unsupported means the partition cannot provide OS messages
	Unsupported
)

func (s OpenStatus) String() string {
	switch s {
	case Opened:
		return "Opened"
	case AlreadyOpen:
		return "AlreadyOpen"
	case Unsupported:
		return "Unsupported"
	default:
		return "Unknown"
	}
}

// OpenResult is returned by Session.OpenMessageChannel.
// Topic is empty when Status is Unsupported.
type OpenResult struct {
	Status OpenStatus
	Topic  string
}

// Connector creates sessions and notification streams against one console
type Connector interface {
	// Logon authenticates and returns a new session
	Logon(ctx context.Context) (Session, error)

	// OpenNotifications connects the notification transport.
	// The returned stream starts with no subscriptions.
	OpenNotifications(ctx context.Context) (NotificationStream, error)
}

// Session is an authenticated console session
type Session interface {
	// ListComplexes returns every managed complex
	ListComplexes(ctx context.Context) ([]Complex, error)

	// ListPartitions returns the partitions of c.
	// DPM complexes list partitions, classic ones list logical partitions.
	ListPartitions(ctx context.Context, c Complex) ([]Partition, error)

	// OpenMessageChannel opens the OS message channel of p.
	// A channel that is already open or unsupported is reported through
	// OpenResult.Status, not as an error.
	OpenMessageChannel(ctx context.Context, p Partition) (OpenResult, error)

	// Logoff ends the session. Logging off a session that the console
	// already discarded is not an error.
	Logoff(ctx context.Context) error
}

// NotificationStream receives notifications for the subscribed topics
type NotificationStream interface {
	// Subscribe starts receiving notifications for topic
	Subscribe(topic string) error

	// Unsubscribe stops receiving notifications for topic
	Unsubscribe(topic string) error

	// Next blocks until a notification arrives, ctx is done, or the
	// stream is closed. Transport failures are returned as *TransportError
	// and the stream recovers on the following call.
	Next(ctx context.Context) (*Notification, error)

	// Close releases the transport. Pending and later Next calls return
	// ErrStreamClosed.
	Close() error
}

// TransportError reports a failure of the notification transport
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("notification transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
