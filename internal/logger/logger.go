// Package logger builds slog loggers for the command line tools.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Format selects the slog handler.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

type options struct {
	level  slog.Level
	format Format
	output io.Writer
	attrs  []slog.Attr
}

// Option configures New.
type Option func(*options)

// WithLevel sets the minimum level.
func WithLevel(l slog.Level) Option { return func(o *options) { o.level = l } }

// WithFormat picks the text or JSON handler.
func WithFormat(f Format) Option { return func(o *options) { o.format = f } }

// WithJSONFormatter is WithFormat(FormatJSON).
func WithJSONFormatter() Option { return WithFormat(FormatJSON) }

// WithOutput sets the destination. Defaults to stderr.
func WithOutput(w io.Writer) Option {
	return func(o *options) {
		if w != nil {
			o.output = w
		}
	}
}

// WithAttr adds attributes to every record.
func WithAttr(attrs ...slog.Attr) Option {
	return func(o *options) { o.attrs = append(o.attrs, attrs...) }
}

// WithDevelopment logs text at debug level.
func WithDevelopment(service string) Option {
	return func(o *options) {
		o.level = slog.LevelDebug
		o.format = FormatText
		o.attrs = append(o.attrs, slog.String("service", service))
	}
}

// WithProduction logs JSON at info level.
func WithProduction(service string) Option {
	return func(o *options) {
		o.level = slog.LevelInfo
		o.format = FormatJSON
		o.attrs = append(o.attrs, slog.String("service", service))
	}
}

// New returns a logger writing text at info level to stderr unless
// configured otherwise.
func New(opts ...Option) *slog.Logger {
	o := options{level: slog.LevelInfo, format: FormatText, output: os.Stderr}
	for _, opt := range opts {
		opt(&o)
	}
	ho := &slog.HandlerOptions{Level: o.level}
	var h slog.Handler
	if o.format == FormatJSON {
		h = slog.NewJSONHandler(o.output, ho)
	} else {
		h = slog.NewTextHandler(o.output, ho)
	}
	if len(o.attrs) > 0 {
		h = h.WithAttrs(o.attrs)
	}
	return slog.New(h)
}

// ParseLevel maps debug, info, warn and error (any case) to a slog level.
// Unknown names yield info.
func ParseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return l
}
