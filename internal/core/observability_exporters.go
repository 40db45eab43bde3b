package core

import (
	"context"
	"encoding/json"
	"expvar"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

var expvarSeq uint64

// ExpvarMetricsRecorder publishes per operation duration totals and outcome
// counters through expvar.
type ExpvarMetricsRecorder struct {
	name      string
	root      *expvar.Map
	durations *expvar.Map
	results   *expvar.Map
	mu        sync.Mutex
}

// ExpvarMetricsSnapshot is a copy of the recorded figures.
type ExpvarMetricsSnapshot struct {
	DurationsMS map[string]float64          `json:"durations_ms_total"`
	Results     map[string]map[string]int64 `json:"results_total"`
}

// NewExpvarMetricsRecorder publishes a recorder under name. An empty name
// gets a generated one.
func NewExpvarMetricsRecorder(name string) *ExpvarMetricsRecorder {
	if name == "" {
		name = fmt.Sprintf("fitcore_metrics_%d", atomic.AddUint64(&expvarSeq, 1))
	}
	rec := &ExpvarMetricsRecorder{
		name:      name,
		root:      new(expvar.Map),
		durations: new(expvar.Map),
		results:   new(expvar.Map),
	}
	rec.root.Set("durations_ms_total", rec.durations)
	rec.root.Set("results_total", rec.results)
	expvar.Publish(name, rec.root)
	return rec
}

// Name returns the expvar export name.
func (r *ExpvarMetricsRecorder) Name() string { return r.name }

// Observe implements MetricsRecorder.
func (r *ExpvarMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	status := "error"
	if success {
		status = "success"
	}
	r.durations.AddFloat(operation, float64(duration)/float64(time.Millisecond))

	r.mu.Lock()
	counts, ok := r.results.Get(operation).(*expvar.Map)
	if !ok {
		counts = new(expvar.Map)
		r.results.Set(operation, counts)
	}
	r.mu.Unlock()
	counts.Add(status, 1)
}

// Snapshot copies the current figures.
func (r *ExpvarMetricsRecorder) Snapshot() ExpvarMetricsSnapshot {
	snap := ExpvarMetricsSnapshot{
		DurationsMS: make(map[string]float64),
		Results:     make(map[string]map[string]int64),
	}
	r.durations.Do(func(kv expvar.KeyValue) {
		if f, ok := kv.Value.(*expvar.Float); ok {
			snap.DurationsMS[kv.Key] = f.Value()
		}
	})
	r.results.Do(func(kv expvar.KeyValue) {
		counts, ok := kv.Value.(*expvar.Map)
		if !ok {
			return
		}
		byStatus := make(map[string]int64)
		counts.Do(func(c expvar.KeyValue) {
			if n, ok := c.Value.(*expvar.Int); ok {
				byStatus[c.Key] = n.Value()
			}
		})
		snap.Results[kv.Key] = byStatus
	})
	return snap
}

// JSONTraceEntry is one finished span.
type JSONTraceEntry struct {
	Operation  string    `json:"operation"`
	Parent     string    `json:"parent,omitempty"`
	Status     string    `json:"status"`
	DurationMS float64   `json:"duration_ms"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	EndedAt    time.Time `json:"ended_at"`
}

// JSONTraceTracer writes finished spans as JSON lines and keeps them for
// inspection.
type JSONTraceTracer struct {
	mu      sync.Mutex
	entries []JSONTraceEntry
	enc     *json.Encoder
}

// NewJSONTracer writes spans to w. A nil writer only retains them.
func NewJSONTracer(w io.Writer) *JSONTraceTracer {
	t := &JSONTraceTracer{}
	if w != nil {
		t.enc = json.NewEncoder(w)
	}
	return t
}

// Entries returns the finished spans in completion order.
func (t *JSONTraceTracer) Entries() []JSONTraceEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]JSONTraceEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

type jsonSpanKey struct{}

// Start implements Tracer. Spans started from a context carrying a span
// record it as their parent.
func (t *JSONTraceTracer) Start(ctx context.Context, operation string) (context.Context, TraceSpan) {
	span := &jsonTraceSpan{tracer: t, operation: operation, started: time.Now().UTC()}
	if parent, ok := ctx.Value(jsonSpanKey{}).(*jsonTraceSpan); ok {
		span.parent = parent.operation
	}
	return context.WithValue(ctx, jsonSpanKey{}, span), span
}

type jsonTraceSpan struct {
	tracer    *JSONTraceTracer
	operation string
	parent    string
	started   time.Time
}

func (s *jsonTraceSpan) End(err error) {
	ended := time.Now().UTC()
	entry := JSONTraceEntry{
		Operation:  s.operation,
		Parent:     s.parent,
		Status:     "success",
		DurationMS: float64(ended.Sub(s.started)) / float64(time.Millisecond),
		StartedAt:  s.started,
		EndedAt:    ended,
	}
	if err != nil {
		entry.Status = "error"
		entry.Error = err.Error()
	}

	s.tracer.mu.Lock()
	defer s.tracer.mu.Unlock()
	s.tracer.entries = append(s.tracer.entries, entry)
	if s.tracer.enc != nil {
		_ = s.tracer.enc.Encode(entry)
	}
}
