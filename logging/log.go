// Package logging builds the slog loggers shared by the driver, the cache,
// the transport and the controller.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Component identifies a subsystem for log filtering.
type Component string

// Component identifiers.
const (
	ComponentDriver     Component = "driver"
	ComponentCache      Component = "cache"
	ComponentTransport  Component = "transport"
	ComponentController Component = "controller"
	ComponentCLI        Component = "cli"
)

// Format specifies the output format for logging.
type Format int

// Format options.
const (
	FormatText Format = iota // Text format (default)
	FormatJSON               // JSON format
)

// ParseFormat maps "text" or "json" to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "text":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	default:
		return FormatText, fmt.Errorf("unknown log format %q", s)
	}
}

// ParseLevel maps a level name (debug, info, warn, error) to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
	return level, nil
}

// Options configures New.
type Options struct {
	Level  slog.Leveler
	Format Format
}

// New creates a logger writing to w.
func New(w io.Writer, opts Options) *slog.Logger {
	handlerOpts := &slog.HandlerOptions{Level: opts.Level}
	switch opts.Format {
	case FormatJSON:
		return slog.New(slog.NewJSONHandler(w, handlerOpts))
	default:
		return slog.New(slog.NewTextHandler(w, handlerOpts))
	}
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(127)}))
}

// For returns logger tagged with component. A nil logger yields Discard().
func For(logger *slog.Logger, component Component) *slog.Logger {
	if logger == nil {
		logger = Discard()
	}
	return logger.With("component", string(component))
}
