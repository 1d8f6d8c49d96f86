// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package logging configures structured logging for the meetup service.
package logging

import (
	"context"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"

	slogotel "github.com/remychantenay/slog-otel"
)

type ctxKey string

// Public constants
const (
	ErrKey = "error"
)

// Private constants
const (
	slogFields      ctxKey = "slog_fields"
	logLevelDefault        = slog.LevelDebug

	// Log field for critical errors.
	priorityCritical = "critical"
)

// Config selects the log level and whether source locations are emitted.
type Config struct {
	Level     string
	AddSource bool
}

type contextHandler struct {
	slog.Handler
}

// Handle adds contextual attributes to the Record before calling the underlying handler
func (h contextHandler) Handle(ctx context.Context, r slog.Record) error {
	if attrs, ok := ctx.Value(slogFields).([]slog.Attr); ok {
		r.AddAttrs(attrs...)
	}

	return h.Handler.Handle(ctx, r)
}

func (h contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return contextHandler{h.Handler.WithAttrs(attrs)}
}

func (h contextHandler) WithGroup(name string) slog.Handler {
	return contextHandler{h.Handler.WithGroup(name)}
}

// AppendCtx adds an slog attribute to the provided context so that it will be
// included in any Record created with such context
func AppendCtx(parent context.Context, attr slog.Attr) context.Context {
	if parent == nil {
		parent = context.Background()
	}

	existing, _ := parent.Value(slogFields).([]slog.Attr)
	// Copy so sibling contexts never share a backing array.
	v := make([]slog.Attr, 0, len(existing)+1)
	v = append(v, existing...)
	v = append(v, attr)
	return context.WithValue(parent, slogFields, v)
}

// ParseLevel maps a level name to a slog level, falling back to debug.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return logLevelDefault
	}
}

// NewHandler builds the JSON handler chain: context attributes, then trace
// and span IDs from the active OpenTelemetry span.
func NewHandler(w io.Writer, cfg Config) slog.Handler {
	opts := &slog.HandlerOptions{
		Level:     ParseLevel(cfg.Level),
		AddSource: cfg.AddSource,
	}
	return contextHandler{slogotel.OtelHandler{Next: slog.NewJSONHandler(w, opts)}}
}

// InitStructureLogConfig sets the structured log behavior of the default logger.
func InitStructureLogConfig(cfg Config) slog.Handler {
	h := NewHandler(os.Stdout, cfg)
	log.SetFlags(log.Llongfile)
	slog.SetDefault(slog.New(h))

	slog.Info("log config",
		"logLevel", ParseLevel(cfg.Level),
		"addSource", cfg.AddSource,
	)

	return h
}

// Priority creates a slog.Attr for error priority classification
func Priority(level string) slog.Attr {
	return slog.String("priority", level)
}

// PriorityCritical marks errors that should be escalated to the team.
func PriorityCritical() slog.Attr {
	return Priority(priorityCritical)
}
