package core

import (
	"context"
	"time"
)

// MetricsRecorder receives the outcome of every observed operation.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

// Tracer opens spans around observed operations.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}

// TraceSpan is closed with the operation error, nil on success.
type TraceSpan interface {
	End(err error)
}

type noopMetrics struct{}

func (noopMetrics) Observe(context.Context, string, bool, time.Duration) {}

type noopTracer struct{}

func (noopTracer) Start(ctx context.Context, _ string) (context.Context, TraceSpan) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) End(error) {}

// Operation names reported to metrics and tracers.
const (
	OpAddItem           = "add_item"
	OpRemoveItem        = "remove_item"
	OpSetState          = "set_state"
	OpSetShip           = "set_ship"
	OpSetCharacter      = "set_character"
	OpLoadCharge        = "load_charge"
	OpUnloadCharge      = "unload_charge"
	OpSetAttrOverride   = "set_attr_override"
	OpClearAttrOverride = "clear_attr_override"
	OpSetEffectMode     = "set_effect_mode"
	OpSetSkillLevel     = "set_skill_level"
	OpValidate          = "validate"
	OpResolveAttr       = "resolve_attr"
	OpLoadCatalog       = "load_catalog"
)

// options is shared by engines and fits.
type options struct {
	logger  Logger
	metrics MetricsRecorder
	tracer  Tracer
}

func defaultOptions() options {
	return options{logger: noopLogger{}, metrics: noopMetrics{}, tracer: noopTracer{}}
}

// Option configures an Engine or a Fit.
type Option func(*options)

// WithLogger overrides the logger. Nil keeps the current one.
func WithLogger(l Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics installs a metrics recorder.
func WithMetrics(m MetricsRecorder) Option {
	return func(o *options) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithTracer installs a tracer.
func WithTracer(t Tracer) Option {
	return func(o *options) {
		if t != nil {
			o.tracer = t
		}
	}
}

// observe runs fn inside a span and reports it to the metrics recorder.
func (o options) observe(ctx context.Context, operation string, fn func(context.Context) error) error {
	ctx, span := o.tracer.Start(ctx, operation)
	start := time.Now()
	err := fn(ctx)
	span.End(err)
	o.metrics.Observe(ctx, operation, err == nil, time.Since(start))
	return err
}
