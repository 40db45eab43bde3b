package core

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"fitcore/internal/catalog"
	"fitcore/internal/config"
	"fitcore/internal/infra/source/docstore"
	"fitcore/internal/infra/source/fs"
	"fitcore/internal/infra/source/memory"
	"fitcore/internal/infra/source/postgres"
	"fitcore/internal/infra/source/s3"
	"fitcore/internal/infra/source/sqlite"
	"fitcore/internal/logging"
	"fitcore/internal/script"
)

// newLogger builds the configured logger.
var newLogger = logging.New

// OpenCatalog opens the catalog source selected by cfg. The returned func
// releases it.
func OpenCatalog(ctx context.Context, cfg config.CatalogConfig) (catalog.Source, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Driver {
	case config.DriverMemory:
		return docstore.NewSource(memory.New(), cfg.Key), noop, nil
	case config.DriverFS, "":
		store, err := fs.New(cfg.FSRoot)
		if err != nil {
			return nil, nil, err
		}
		return docstore.NewSource(store, cfg.Key), noop, nil
	case config.DriverS3:
		store, err := s3.New(ctx, s3.Config{
			Region:          cfg.S3.Region,
			Bucket:          cfg.S3.Bucket,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			PathStyle:       cfg.S3.PathStyle,
		})
		if err != nil {
			return nil, nil, err
		}
		return docstore.NewSource(store, cfg.Key), noop, nil
	case config.DriverSQLite:
		src, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return src, src.Close, nil
	case config.DriverPostgres:
		src, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		return src, src.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown catalog driver %q", cfg.Driver)
	}
}

// NewEngineFromConfig builds an engine with the configured logger and
// Prometheus metrics, installs plugins and the scripts in cfg.ScriptDir,
// then loads the catalog. Options override the configured ambient stack.
func NewEngineFromConfig(ctx context.Context, cfg config.Config, plugins []Plugin, opts ...Option) (_ *Engine, err error) {
	metrics, err := NewPrometheusMetricsRecorder(cfg.MetricsNamespace, prometheus.DefaultRegisterer)
	if err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}
	logger, sync, err := newLogger(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		return nil, err
	}
	base := []Option{WithLogger(logger), WithMetrics(metrics)}
	e := NewEngine(append(base, opts...)...)
	// stderr does not support fsync on most terminals.
	e.closers = append(e.closers, func() error { _ = sync(); return nil })
	defer func() {
		if err != nil {
			_ = e.Close()
		}
	}()

	for _, p := range plugins {
		if _, err := e.InstallPlugin(p); err != nil {
			return nil, err
		}
	}
	if cfg.ScriptDir != "" {
		procs, err := script.LoadDir(cfg.ScriptDir)
		if err != nil {
			return nil, fmt.Errorf("load scripts: %w", err)
		}
		if _, err := e.InstallPlugin(scriptPlugin{procs: procs}); err != nil {
			return nil, err
		}
	}

	src, closeSrc, err := OpenCatalog(ctx, cfg.Catalog)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer func() { _ = closeSrc() }()
	if err := e.LoadCatalog(ctx, src); err != nil {
		return nil, err
	}
	return e, nil
}

// scriptPlugin exposes Lua procedures loaded from disk.
type scriptPlugin struct {
	procs []*script.Procedure
}

func (scriptPlugin) Name() string    { return "scripts" }
func (scriptPlugin) Version() string { return "1.0.0" }

func (p scriptPlugin) Register(registry *PluginRegistry) error {
	for _, proc := range p.procs {
		if err := registry.RegisterProcedure(proc); err != nil {
			return err
		}
	}
	return nil
}
