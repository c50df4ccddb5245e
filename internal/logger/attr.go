package logger

import (
	"log/slog"
	"time"
)

// Helpers return the empty Attr for missing values so callers can pass
// them unconditionally; slog drops empty attributes.

// Error logs err under "error".
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Component names the subsystem emitting the record.
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Action names the operation being performed.
func Action(action string) slog.Attr {
	return slog.String("action", action)
}

// Length records the size of a secret or token without its value.
func Length(key string, n int) slog.Attr {
	return slog.Int(key, n)
}

// Path records a file path. Empty paths are dropped.
func Path(p string) slog.Attr {
	if p == "" {
		return slog.Attr{}
	}
	return slog.String("path", p)
}

// Elapsed records the time since start.
func Elapsed(start time.Time) slog.Attr {
	return slog.Duration("elapsed", time.Since(start))
}

// Version records a build version.
func Version(v string) slog.Attr {
	return slog.String("version", v)
}
