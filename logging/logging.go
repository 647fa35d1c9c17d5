// Package logging sets up the structured slog logger used by the profiler.
//
// It adds three levels on top of slog's defaults so the three diagnostic
// severities of a profiling cycle stay distinguishable in log queries:
// LevelTrace for verbose payload dumps, LevelCritical for problems the cycle
// survives but operators must act on (a feed without messages), and
// LevelFatal for the error that aborts an invocation.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Additional levels
const (
	LevelTrace    = slog.Level(-8)
	LevelCritical = slog.Level(12)
	LevelFatal    = slog.Level(16)
)

// Formats
const (
	FormatJSON = "json"
	FormatText = "text"
)

// Options configures New
type Options struct {
	Level   string // silent, trace, debug, info, warn, error, fatal
	Format  string // json, text
	Service string
	Version string
	Output  io.Writer
}

// ParseLevel maps a level name onto a slog level. The boolean is false for
// "silent", which disables logging entirely. "fatal" and its alias
// "critical" both keep LevelCritical records so operators still see the
// diagnostics a cycle survives.
func ParseLevel(name string) (slog.Level, bool, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "silent":
		return 0, false, nil
	case "trace":
		return LevelTrace, true, nil
	case "debug":
		return slog.LevelDebug, true, nil
	case "", "info":
		return slog.LevelInfo, true, nil
	case "warn", "warning":
		return slog.LevelWarn, true, nil
	case "error":
		return slog.LevelError, true, nil
	case "fatal", "critical":
		return LevelCritical, true, nil
	default:
		return 0, false, fmt.Errorf(
			"log level must be one of silent, trace, debug, info, warn, error or fatal, got %q", name)
	}
}

// LevelName renders custom levels with readable names.
func LevelName(level slog.Level) string {
	switch {
	case level >= LevelFatal:
		return "FATAL"
	case level >= LevelCritical:
		return "CRITICAL"
	case level <= LevelTrace:
		return "TRACE"
	default:
		return level.String()
	}
}

func replaceLevel(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey {
		if level, ok := a.Value.Any().(slog.Level); ok {
			a.Value = slog.StringValue(LevelName(level))
		}
	}
	return a
}

// New builds a logger from options.
func New(opts Options) (*slog.Logger, error) {
	level, enabled, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	if !enabled {
		return slog.New(slog.DiscardHandler), nil
	}

	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	handlerOpts := &slog.HandlerOptions{
		Level:       level,
		AddSource:   level <= slog.LevelDebug,
		ReplaceAttr: replaceLevel,
	}

	var handler slog.Handler
	switch strings.ToLower(opts.Format) {
	case "", FormatJSON:
		handler = slog.NewJSONHandler(out, handlerOpts)
	case FormatText:
		handler = slog.NewTextHandler(out, handlerOpts)
	default:
		return nil, fmt.Errorf("log format must be json or text, got %q", opts.Format)
	}

	logger := slog.New(handler)
	if opts.Service != "" {
		logger = logger.With("service", opts.Service)
	}
	if opts.Version != "" {
		logger = logger.With("version", opts.Version)
	}
	return logger, nil
}

// Critical logs at LevelCritical.
func Critical(ctx context.Context, logger *slog.Logger, msg string, args ...any) {
	logger.Log(ctx, LevelCritical, msg, args...)
}

// Fatal logs at LevelFatal. It does not exit; the caller decides the exit code.
func Fatal(ctx context.Context, logger *slog.Logger, msg string, args ...any) {
	logger.Log(ctx, LevelFatal, msg, args...)
}

// Trace logs at LevelTrace.
func Trace(ctx context.Context, logger *slog.Logger, msg string, args ...any) {
	logger.Log(ctx, LevelTrace, msg, args...)
}
