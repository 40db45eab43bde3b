// Package logging builds the process logger. Records flow from log/slog
// through logr into a zap core.
package logging

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Output encodings.
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// slog debug records arrive at zap as V(4), which zap sees as level -4.
const zapFloor = zapcore.Level(-4)

// Config selects level and encoding.
type Config struct {
	Level  string
	Format string
}

// New builds a logger and returns it with the zap sync func.
func New(cfg Config) (*slog.Logger, func() error, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}
	var zcfg zap.Config
	switch cfg.Format {
	case FormatJSON, "":
		zcfg = zap.NewProductionConfig()
	case FormatConsole:
		zcfg = zap.NewDevelopmentConfig()
	default:
		return nil, nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}
	zcfg.Level = zap.NewAtomicLevelAt(zapFloor)
	zcfg.Sampling = nil
	zl, err := zcfg.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("build zap logger: %w", err)
	}
	return FromZap(zl, level), zl.Sync, nil
}

// FromZap wraps an existing zap logger, dropping records below level.
func FromZap(zl *zap.Logger, level slog.Level) *slog.Logger {
	sink := logr.ToSlogHandler(zapr.NewLogger(zl))
	return slog.New(&leveled{Handler: sink, min: level})
}

// ParseLevel accepts debug, info, warn and error in any case. Empty means
// info.
func ParseLevel(s string) (slog.Level, error) {
	if s == "" {
		return slog.LevelInfo, nil
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("parse log level %q: %w", s, err)
	}
	return l, nil
}

// leveled filters by slog level and tags warnings, which logr folds into
// info.
type leveled struct {
	slog.Handler
	min slog.Level
}

func (h *leveled) Enabled(ctx context.Context, l slog.Level) bool {
	return l >= h.min && h.Handler.Enabled(ctx, l)
}

func (h *leveled) Handle(ctx context.Context, r slog.Record) error {
	if r.Level > slog.LevelInfo && r.Level < slog.LevelError {
		r = r.Clone()
		r.AddAttrs(slog.String("severity", r.Level.String()))
	}
	return h.Handler.Handle(ctx, r)
}

func (h *leveled) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &leveled{Handler: h.Handler.WithAttrs(attrs), min: h.min}
}

func (h *leveled) WithGroup(name string) slog.Handler {
	return &leveled{Handler: h.Handler.WithGroup(name), min: h.min}
}
