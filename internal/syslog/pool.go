package syslog

import (
	"log/slog"
	"sync"

	"go.uber.org/multierr"

	"github.com/rmacdonaldsmith/lpar-forwarder/pkg/routingtable"
)

// Pool holds one Sender per distinct target. A target whose sender could
// not be created is disabled: it stays in the routing table but Sender
// reports no sender for it.
type Pool struct {
	dial   Dialer
	logger *slog.Logger

	mu       sync.RWMutex
	senders  map[*routingtable.SyslogTarget]Sender
	disabled map[*routingtable.SyslogTarget]error
}

// NewPool creates an empty pool. A nil dial uses Dial.
func NewPool(dial Dialer, logger *slog.Logger) *Pool {
	if dial == nil {
		dial = Dial
	}
	return &Pool{
		dial:     dial,
		logger:   logger,
		senders:  make(map[*routingtable.SyslogTarget]Sender),
		disabled: make(map[*routingtable.SyslogTarget]error),
	}
}

// Open creates senders for targets that have none yet and returns how many
// targets are usable afterwards. Failures are logged and disable the target.
func (p *Pool) Open(targets []*routingtable.SyslogTarget) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, target := range targets {
		if _, ok := p.senders[target]; ok {
			continue
		}
		if _, ok := p.disabled[target]; ok {
			continue
		}
		sender, err := p.dial(target)
		if err != nil {
			p.logger.Warn("skipping syslog server", "syslog", target.String(), "error", err)
			p.disabled[target] = err
			continue
		}
		p.logger.Debug("created syslog sender", "syslog", target.String())
		p.senders[target] = sender
	}
	return len(p.senders)
}

// Sender returns the sender of target
func (p *Pool) Sender(target *routingtable.SyslogTarget) (Sender, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	sender, ok := p.senders[target]
	return sender, ok
}

// Disabled returns the targets whose sender could not be created
func (p *Pool) Disabled() []*routingtable.SyslogTarget {
	p.mu.RLock()
	defer p.mu.RUnlock()
	targets := make([]*routingtable.SyslogTarget, 0, len(p.disabled))
	for target := range p.disabled {
		targets = append(targets, target)
	}
	return targets
}

// Len returns the number of usable senders
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.senders)
}

// Close closes every sender and empties the pool
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var err error
	for target, sender := range p.senders {
		err = multierr.Append(err, sender.Close())
		delete(p.senders, target)
	}
	return err
}
