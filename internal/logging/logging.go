// Package logging builds the per-component loggers of the forwarder.
//
// Three components log independently: "forwarder" (startup, dispatch and
// delivery), "hmc" (Web Services requests) and "jms" (the notification
// transport). Each has its own level and all share one destination.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/RackSec/srslog"
	"go.uber.org/multierr"

	"github.com/rmacdonaldsmith/lpar-forwarder/internal/syslog"
)

// Component names accepted by --log-comp
const (
	ComponentForwarder = "forwarder"
	ComponentHMC       = "hmc"
	ComponentJMS       = "jms"
	ComponentAll       = "all"
)

// Destinations accepted by --log besides a file path
const (
	DestStderr = "stderr"
	DestSyslog = "syslog"
)

// LevelOff disables a component
const LevelOff = slog.Level(100)

// DefaultLevel applies to components not named by --log-comp
const DefaultLevel = slog.LevelWarn

// Components lists the loggable components in display order
var Components = []string{ComponentForwarder, ComponentHMC, ComponentJMS}

var levels = map[string]slog.Level{
	"error":   slog.LevelError,
	"warning": slog.LevelWarn,
	"info":    slog.LevelInfo,
	"debug":   slog.LevelDebug,
	"off":     LevelOff,
}

// Options selects where and how much to log
type Options struct {
	// Dest is stderr, syslog, a file path, or empty for no logging
	Dest string

	// CompLevels are COMP[=LEVEL] settings applied in order after the default
	CompLevels []string

	// SyslogFacility is used when Dest is syslog
	SyslogFacility string

	// Verbose raises the forwarder component to info (1) or debug (2).
	// Without Dest, verbose output goes to Stdout.
	Verbose int

	// Stdout receives verbose output when Dest is empty; defaults to os.Stdout
	Stdout io.Writer
}

// Loggers holds one logger per component
type Loggers struct {
	Forwarder *slog.Logger
	HMC       *slog.Logger
	JMS       *slog.Logger

	levels  map[string]*slog.LevelVar
	closers []io.Closer
}

// Setup creates the component loggers for opts
func Setup(opts Options) (*Loggers, error) {
	compLevels, err := ParseCompLevels(opts.CompLevels)
	if err != nil {
		return nil, err
	}

	l := &Loggers{levels: make(map[string]*slog.LevelVar)}
	for _, comp := range Components {
		lv := &slog.LevelVar{}
		lv.Set(compLevels[comp])
		l.levels[comp] = lv
	}

	var out io.Writer
	switch opts.Dest {
	case "":
		if opts.Verbose == 0 {
			out = io.Discard
			for _, lv := range l.levels {
				lv.Set(LevelOff)
			}
			break
		}
		out = opts.Stdout
		if out == nil {
			out = os.Stdout
		}
		// only the forwarder component prints without a destination
		l.levels[ComponentHMC].Set(LevelOff)
		l.levels[ComponentJMS].Set(LevelOff)
	case DestStderr:
		out = os.Stderr
	case DestSyslog:
		facility := opts.SyslogFacility
		if facility == "" {
			facility = "user"
		}
		w, err := srslog.Dial("", "", syslog.Facility(facility)|srslog.LOG_INFO, syslog.Tag)
		if err != nil {
			return nil, fmt.Errorf("cannot log to the system log: %w", err)
		}
		l.closers = append(l.closers, w)
		out = w
	default:
		f, err := os.OpenFile(opts.Dest, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("cannot open log file: %w", err)
		}
		l.closers = append(l.closers, f)
		out = f
	}

	switch {
	case opts.Verbose >= 2:
		lowerTo(l.levels[ComponentForwarder], slog.LevelDebug)
	case opts.Verbose == 1:
		lowerTo(l.levels[ComponentForwarder], slog.LevelInfo)
	}

	base := slog.NewTextHandler(out, &slog.HandlerOptions{Level: slog.LevelDebug})
	l.Forwarder = slog.New(newComponentHandler(ComponentForwarder, l.levels[ComponentForwarder], base))
	l.HMC = slog.New(newComponentHandler(ComponentHMC, l.levels[ComponentHMC], base))
	l.JMS = slog.New(newComponentHandler(ComponentJMS, l.levels[ComponentJMS], base))
	return l, nil
}

func lowerTo(lv *slog.LevelVar, level slog.Level) {
	if lv.Level() > level {
		lv.Set(level)
	}
}

// Level returns the current level of comp
func (l *Loggers) Level(comp string) slog.Level {
	if lv, ok := l.levels[comp]; ok {
		return lv.Level()
	}
	return LevelOff
}

// SetLevel changes the level of comp, or of every component for "all"
func (l *Loggers) SetLevel(comp string, level slog.Level) error {
	if comp == ComponentAll {
		for _, lv := range l.levels {
			lv.Set(level)
		}
		return nil
	}
	lv, ok := l.levels[comp]
	if !ok {
		return fmt.Errorf("unknown log component %q", comp)
	}
	lv.Set(level)
	return nil
}

// Close releases the log destination
func (l *Loggers) Close() error {
	var err error
	for _, c := range l.closers {
		err = multierr.Append(err, c.Close())
	}
	l.closers = nil
	return err
}

// ParseLevel parses a level name
func ParseLevel(name string) (slog.Level, error) {
	level, ok := levels[strings.ToLower(name)]
	if !ok {
		return 0, fmt.Errorf("invalid log level %q (allowed: error, warning, info, debug, off)", name)
	}
	return level, nil
}

// ParseCompLevels applies COMP[=LEVEL] settings on top of all=warning.
// A missing level means warning.
func ParseCompLevels(settings []string) (map[string]slog.Level, error) {
	result := make(map[string]slog.Level, len(Components))
	for _, comp := range Components {
		result[comp] = DefaultLevel
	}

	for _, setting := range settings {
		comp, name, found := strings.Cut(setting, "=")
		level := DefaultLevel
		if found {
			var err error
			if level, err = ParseLevel(name); err != nil {
				return nil, fmt.Errorf("invalid --log-comp %q: %w", setting, err)
			}
		}
		if comp == ComponentAll {
			for _, c := range Components {
				result[c] = level
			}
			continue
		}
		if _, ok := result[comp]; !ok {
			return nil, fmt.Errorf("invalid --log-comp %q: unknown component %q (allowed: forwarder, hmc, jms, all)", setting, comp)
		}
		result[comp] = level
	}
	return result, nil
}

// componentHandler filters records by a per-component level and tags them
// with the component name
type componentHandler struct {
	level *slog.LevelVar
	inner slog.Handler
}

func newComponentHandler(comp string, level *slog.LevelVar, inner slog.Handler) *componentHandler {
	return &componentHandler{
		level: level,
		inner: inner.WithAttrs([]slog.Attr{slog.String("component", comp)}),
	}
}

func (h *componentHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.level.Level() && h.inner.Enabled(ctx, level)
}

func (h *componentHandler) Handle(ctx context.Context, r slog.Record) error {
	return h.inner.Handle(ctx, r)
}

func (h *componentHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &componentHandler{level: h.level, inner: h.inner.WithAttrs(attrs)}
}

func (h *componentHandler) WithGroup(name string) slog.Handler {
	return &componentHandler{level: h.level, inner: h.inner.WithGroup(name)}
}
