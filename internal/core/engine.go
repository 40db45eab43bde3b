package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"fitcore/internal/catalog"
	"fitcore/pkg/domain"
)

// ErrNoCatalog is returned when fits are requested before a catalog is
// loaded.
var ErrNoCatalog = errors.New("no catalog loaded")

// Engine holds what fits share: the catalog, installed plugins and the
// ambient logger, metrics and tracer.
type Engine struct {
	opts options

	mu         sync.RWMutex
	catalog    *catalog.Catalog
	plugins    map[string]PluginMetadata
	procedures catalog.ProcedureMap
	rules      []Rule
	closers    []func() error
}

// NewEngine constructs an engine with the built-in restriction rules and no
// catalog.
func NewEngine(opts ...Option) *Engine {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Engine{
		opts:       o,
		plugins:    make(map[string]PluginMetadata),
		procedures: make(catalog.ProcedureMap),
		rules:      DefaultRules(),
	}
}

// InstallPlugin registers a plugin's procedures and rules. Procedures only
// reach catalogs loaded afterwards.
func (e *Engine) InstallPlugin(plugin Plugin) (PluginMetadata, error) {
	if plugin == nil {
		return PluginMetadata{}, fmt.Errorf("plugin cannot be nil")
	}
	version, err := parsePluginVersion(plugin)
	if err != nil {
		return PluginMetadata{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.plugins[plugin.Name()]; ok {
		return PluginMetadata{}, fmt.Errorf("plugin %s already registered", plugin.Name())
	}

	registry := NewPluginRegistry()
	if err := plugin.Register(registry); err != nil {
		return PluginMetadata{}, fmt.Errorf("plugin %s: %w", plugin.Name(), err)
	}
	for name := range registry.procedures {
		if _, clash := e.procedures[name]; clash {
			return PluginMetadata{}, fmt.Errorf("plugin %s: procedure %s already provided", plugin.Name(), name)
		}
	}
	for name, proc := range registry.procedures {
		e.procedures[name] = proc
	}
	meta := PluginMetadata{Name: plugin.Name(), Version: version, Procedures: registry.Procedures()}
	for _, rule := range registry.Rules() {
		e.rules = append(e.rules, rule)
		meta.Rules = append(meta.Rules, rule.Name())
	}
	e.plugins[plugin.Name()] = meta
	e.opts.logger.Info("plugin installed", "plugin", meta.Name, "version", version.String())
	return meta, nil
}

// RegisteredPlugins returns metadata of installed plugins sorted by name.
func (e *Engine) RegisteredPlugins() []PluginMetadata {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]PluginMetadata, 0, len(e.plugins))
	for _, meta := range e.plugins {
		out = append(out, meta)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// LoadCatalog builds the catalog from src against the installed
// procedures and makes it current.
func (e *Engine) LoadCatalog(ctx context.Context, src catalog.Source) error {
	e.mu.RLock()
	procs := make(catalog.ProcedureMap, len(e.procedures))
	for name, p := range e.procedures {
		procs[name] = p
	}
	e.mu.RUnlock()

	var cat *catalog.Catalog
	err := e.opts.observe(ctx, OpLoadCatalog, func(ctx context.Context) error {
		var err error
		cat, err = catalog.Load(ctx, src, procs)
		return err
	})
	if err != nil {
		e.opts.logger.Error("catalog load failed", "error", err)
		return err
	}
	e.mu.Lock()
	e.catalog = cat
	e.mu.Unlock()
	e.opts.logger.Info("catalog loaded", "types", len(cat.TypeIDs()))
	return nil
}

// Catalog returns the current catalog, nil before LoadCatalog succeeded.
func (e *Engine) Catalog() *catalog.Catalog {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.catalog
}

// NewFit creates an empty fit over the current catalog with the engine's
// rules and ambient options. Extra options apply to the fit only.
func (e *Engine) NewFit(opts ...Option) (*Fit, error) {
	e.mu.RLock()
	cat := e.catalog
	rules := append([]Rule(nil), e.rules...)
	e.mu.RUnlock()
	if cat == nil {
		return nil, ErrNoCatalog
	}
	base := []Option{WithLogger(e.opts.logger), WithMetrics(e.opts.metrics), WithTracer(e.opts.tracer)}
	return NewFit(cat, domain.NewRulesEngine(rules...), append(base, opts...)...), nil
}

// Close releases resources acquired by NewEngineFromConfig.
func (e *Engine) Close() error {
	e.mu.Lock()
	closers := e.closers
	e.closers = nil
	e.mu.Unlock()
	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
