// Package notify receives HMC notifications over STOMP.
package notify

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/go-stomp/stomp/v3"

	"github.com/rmacdonaldsmith/lpar-forwarder/pkg/console"
)

const (
	// DefaultConnectTimeout bounds connecting to the notification service
	DefaultConnectTimeout = 10 * time.Second

	// DefaultUnsubscribeTimeout bounds the wait for the broker's receipt of
	// an UNSUBSCRIBE frame
	DefaultUnsubscribeTimeout = time.Second
)

// topicPrefix is prepended to topic names to form STOMP destinations
const topicPrefix = "/topic/"

// Config holds the settings of a Receiver
type Config struct {
	// Address is the host:port of the STOMP service
	Address string

	Login    string
	Passcode string

	// TLSConfig enables TLS when set
	TLSConfig *tls.Config

	ConnectTimeout time.Duration

	// UnsubscribeTimeout bounds the wait for an unsubscribe receipt. Brokers
	// that never acknowledge UNSUBSCRIBE cost this much per topic.
	UnsubscribeTimeout time.Duration

	Logger *slog.Logger
}

// SetDefaults sets reasonable default values for the config
func (c *Config) SetDefaults() {
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.UnsubscribeTimeout == 0 {
		c.UnsubscribeTimeout = DefaultUnsubscribeTimeout
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
}

// delivery is one message taken from a subscription channel
type delivery struct {
	generation int
	topic      string
	sub        *stomp.Subscription
	msg        *stomp.Message
}

// Receiver implements console.NotificationStream.
// Messages of all subscriptions are merged into one inbox. When the
// connection fails, the failure is reported once by Next and the next call
// reconnects and subscribes every topic again.
type Receiver struct {
	config Config
	logger *slog.Logger

	inbox     chan delivery
	closed    chan struct{}
	closeOnce sync.Once

	mu         sync.Mutex
	conn       *stomp.Conn
	generation int
	broken     bool
	topics     []string
	subs       map[string]*stomp.Subscription
}

// Dial connects to the notification service
func Dial(ctx context.Context, config Config) (*Receiver, error) {
	config.SetDefaults()
	r := &Receiver{
		config: config,
		logger: config.Logger,
		inbox:  make(chan delivery, 256),
		closed: make(chan struct{}),
		subs:   make(map[string]*stomp.Subscription),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.connectLocked(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

// connectLocked opens a new connection and subscribes every known topic.
// Must be called with mu held.
func (r *Receiver) connectLocked(ctx context.Context) error {
	netConn, err := r.dial(ctx)
	if err != nil {
		return &console.TransportError{Op: "connect", Err: err}
	}

	host, _, _ := net.SplitHostPort(r.config.Address)
	conn, err := stomp.Connect(netConn,
		stomp.ConnOpt.Login(r.config.Login, r.config.Passcode),
		stomp.ConnOpt.Host(host),
		stomp.ConnOpt.UnsubscribeReceiptTimeout(r.config.UnsubscribeTimeout))
	if err != nil {
		netConn.Close()
		return &console.TransportError{Op: "connect", Err: err}
	}

	r.conn = conn
	r.generation++
	r.broken = false
	r.subs = make(map[string]*stomp.Subscription)
	r.logger.Debug("connected to notification service", "address", r.config.Address)

	for _, topic := range r.topics {
		if err := r.subscribeLocked(topic); err != nil {
			r.dropLocked()
			return err
		}
	}
	return nil
}

func (r *Receiver) dial(ctx context.Context) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: r.config.ConnectTimeout}
	if r.config.TLSConfig == nil {
		return dialer.DialContext(ctx, "tcp", r.config.Address)
	}
	tlsDialer := &tls.Dialer{NetDialer: dialer, Config: r.config.TLSConfig}
	return tlsDialer.DialContext(ctx, "tcp", r.config.Address)
}

// subscribeLocked subscribes topic on the current connection and starts
// pumping its messages into the inbox. Must be called with mu held.
func (r *Receiver) subscribeLocked(topic string) error {
	sub, err := r.conn.Subscribe(topicPrefix+topic, stomp.AckAuto)
	if err != nil {
		return &console.TransportError{Op: "subscribe", Err: err}
	}
	r.subs[topic] = sub
	go r.pump(r.generation, topic, sub)
	r.logger.Debug("subscribed", "topic", topic)
	return nil
}

// pump forwards the messages of one subscription until the library closes
// its channel. After Close it keeps draining without forwarding.
func (r *Receiver) pump(generation int, topic string, sub *stomp.Subscription) {
	for msg := range sub.C {
		select {
		case r.inbox <- delivery{generation: generation, topic: topic, sub: sub, msg: msg}:
		case <-r.closed:
		}
	}
}

// currentLocked reports whether d comes from a live subscription of the
// current connection. Must be called with mu held.
func (r *Receiver) currentLocked(d delivery) bool {
	return d.generation == r.generation && r.subs[d.topic] == d.sub
}

// dropLocked abandons the current connection. Must be called with mu held.
func (r *Receiver) dropLocked() {
	if r.conn != nil {
		_ = r.conn.MustDisconnect()
	}
	r.conn = nil
	r.broken = true
	r.subs = make(map[string]*stomp.Subscription)
}

// Subscribe implements console.NotificationStream
func (r *Receiver) Subscribe(topic string) error {
	if r.isClosed() {
		return console.ErrStreamClosed
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, t := range r.topics {
		if t == topic {
			return nil
		}
	}
	r.topics = append(r.topics, topic)
	if r.broken || r.conn == nil {
		// subscribed on reconnect
		return nil
	}
	return r.subscribeLocked(topic)
}

// Unsubscribe implements console.NotificationStream
func (r *Receiver) Unsubscribe(topic string) error {
	r.mu.Lock()

	for i, t := range r.topics {
		if t == topic {
			r.topics = append(r.topics[:i], r.topics[i+1:]...)
			break
		}
	}

	sub, ok := r.subs[topic]
	if !ok {
		r.mu.Unlock()
		return nil
	}
	delete(r.subs, topic)
	r.mu.Unlock()

	err := sub.Unsubscribe()
	switch {
	case err == nil:
	case errors.Is(err, &stomp.ErrUnsubscribeReceiptTimeout):
		// the frame was sent, only the receipt is missing
		r.logger.Debug("no receipt for unsubscribe", "topic", topic)
	default:
		return &console.TransportError{Op: "unsubscribe", Err: err}
	}
	r.logger.Debug("unsubscribed", "topic", topic)
	return nil
}

// Next implements console.NotificationStream
func (r *Receiver) Next(ctx context.Context) (*console.Notification, error) {
	if r.isClosed() {
		return nil, console.ErrStreamClosed
	}

	r.mu.Lock()
	if r.broken {
		r.logger.Info("reconnecting to notification service", "address", r.config.Address)
		if err := r.connectLocked(ctx); err != nil {
			r.mu.Unlock()
			return nil, err
		}
	}
	r.mu.Unlock()

	for {
		select {
		case d := <-r.inbox:
			if r.isClosed() {
				return nil, console.ErrStreamClosed
			}
			r.mu.Lock()
			current := r.currentLocked(d)
			r.mu.Unlock()
			if !current {
				continue
			}
			if d.msg.Err != nil {
				r.mu.Lock()
				r.dropLocked()
				r.mu.Unlock()
				return nil, &console.TransportError{Op: "receive", Err: d.msg.Err}
			}
			n, err := decodeMessage(d.msg)
			if err != nil {
				return nil, &console.TransportError{Op: "decode", Err: err}
			}
			return n, nil
		case <-r.closed:
			return nil, console.ErrStreamClosed
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Close implements console.NotificationStream
func (r *Receiver) Close() error {
	var err error
	r.closeOnce.Do(func() {
		close(r.closed)

		r.mu.Lock()
		defer r.mu.Unlock()
		if r.conn != nil && !r.broken {
			if derr := r.conn.Disconnect(); derr != nil {
				err = fmt.Errorf("disconnect: %w", derr)
			}
		}
		r.conn = nil
		r.subs = make(map[string]*stomp.Subscription)
	})
	return err
}

func (r *Receiver) isClosed() bool {
	select {
	case <-r.closed:
		return true
	default:
		return false
	}
}

// Topics returns the subscribed topics in subscription order
func (r *Receiver) Topics() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.topics...)
}

// Verify that Receiver implements the NotificationStream interface at compile time
var _ console.NotificationStream = (*Receiver)(nil)
