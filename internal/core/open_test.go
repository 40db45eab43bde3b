package core

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"fitcore/internal/catalog"
	"fitcore/internal/config"
	"fitcore/internal/logging"
	"fitcore/internal/infra/source/docstore"
	"fitcore/internal/infra/source/fs"
	"fitcore/internal/infra/source/sqlite"
	"fitcore/pkg/domain"
)

func publishFS(t *testing.T, data catalog.Data) string {
	t.Helper()
	root := t.TempDir()
	store, err := fs.New(root)
	if err != nil {
		t.Fatalf("fs store: %v", err)
	}
	if _, err := docstore.Publish(context.Background(), store, "catalog.json", data); err != nil {
		t.Fatalf("publish: %v", err)
	}
	return root
}

func loadVia(t *testing.T, cfg config.CatalogConfig) *Engine {
	t.Helper()
	ctx := context.Background()
	src, closeSrc, err := OpenCatalog(ctx, cfg)
	if err != nil {
		t.Fatalf("open catalog: %v", err)
	}
	defer func() { _ = closeSrc() }()
	e := NewEngine()
	if err := e.LoadCatalog(ctx, src); err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	return e
}

func TestOpenCatalogFilesystem(t *testing.T) {
	root := publishFS(t, fixtureData())
	e := loadVia(t, config.CatalogConfig{Driver: config.DriverFS, FSRoot: root, Key: "catalog.json"})
	if _, err := e.Catalog().Type(typeShip); err != nil {
		t.Fatalf("ship type missing: %v", err)
	}
}

func TestOpenCatalogSQLite(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "catalog.db")
	src, err := sqlite.Open(ctx, path)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := src.Save(ctx, fixtureData()); err != nil {
		t.Fatalf("save: %v", err)
	}
	_ = src.Close()

	e := loadVia(t, config.CatalogConfig{Driver: config.DriverSQLite, SQLitePath: path})
	if _, err := e.Catalog().Type(typeGunnery); err != nil {
		t.Fatalf("skill type missing: %v", err)
	}
}

func TestOpenCatalogMemoryStartsEmpty(t *testing.T) {
	ctx := context.Background()
	src, closeSrc, err := OpenCatalog(ctx, config.CatalogConfig{Driver: config.DriverMemory, Key: "catalog.json"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = closeSrc() }()
	if err := NewEngine().LoadCatalog(ctx, src); !errors.Is(err, docstore.ErrNotExist) {
		t.Fatalf("expected ErrNotExist, got %v", err)
	}
}

func TestOpenCatalogUnknownDriver(t *testing.T) {
	if _, _, err := OpenCatalog(context.Background(), config.CatalogConfig{Driver: "ftp"}); err == nil {
		t.Fatalf("expected unknown driver error")
	}
}

func TestNewEngineFromConfig(t *testing.T) {
	data := fixtureData()
	data.Effects = append(data.Effects, catalog.EffectData{ID: 902, Category: domain.EffectPassive, Modifiers: []catalog.ModifierData{{
		Filter: "item", Domain: "self", TargetAttr: domain.AttrCPU, Procedure: "bonus",
	}}})
	data.Types = append(data.Types, catalog.TypeData{ID: 951, GroupID: 3, CategoryID: domain.CategoryModule,
		Attrs: map[domain.AttrID]float64{domain.AttrCPU: 1}, Effects: []domain.EffectID{902}})
	root := publishFS(t, data)

	scripts := t.TempDir()
	script := "triggers = {}\nfunction evaluate()\n  return \"mod_add\", 5\nend\n"
	if err := os.WriteFile(filepath.Join(scripts, "bonus.lua"), []byte(script), 0o600); err != nil {
		t.Fatalf("write script: %v", err)
	}

	cfg, err := config.LoadFrom(map[string]string{
		"FITCORE_CATALOG_FS_ROOT":     root,
		"FITCORE_SCRIPT_DIR":          scripts,
		"FITCORE_LOG_LEVEL":           "error",
		"FITCORE_METRICS_NAMESPACE":   "fitcore_engine_test",
		"FITCORE_CATALOG_SQLITE_PATH": filepath.Join(t.TempDir(), "unused.db"),
	})
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	e, err := NewEngineFromConfig(context.Background(), cfg, []Plugin{stubPlugin{name: "extra", version: "1.0.0"}})
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	defer func() { _ = e.Close() }()

	names := []string{}
	for _, p := range e.RegisteredPlugins() {
		names = append(names, p.Name)
	}
	if len(names) != 2 || names[0] != "extra" || names[1] != "scripts" {
		t.Fatalf("unexpected plugins %v", names)
	}
	fit, err := e.NewFit()
	if err != nil {
		t.Fatalf("new fit: %v", err)
	}
	mod := domain.NewItem(951, domain.KindModuleLow)
	mustAdd(t, fit, mod)
	if got := value(t, fit, mod, domain.AttrCPU); got != 6 {
		t.Fatalf("expected script bonus, got %v", got)
	}
}

func TestNewEngineFromConfigFailures(t *testing.T) {
	ctx := context.Background()
	if _, err := NewEngineFromConfig(ctx, config.Config{LogLevel: "loud"}, nil); err == nil {
		t.Fatalf("expected log level error")
	}
	cfg := config.Config{
		Catalog:          config.CatalogConfig{Driver: config.DriverFS, FSRoot: t.TempDir(), Key: "catalog.json"},
		LogLevel:         "error",
		MetricsNamespace: "fitcore_engine_fail",
	}
	if _, err := NewEngineFromConfig(ctx, cfg, nil); !errors.Is(err, docstore.ErrNotExist) {
		t.Fatalf("expected missing catalog, got %v", err)
	}
	cfg.ScriptDir = t.TempDir()
	if err := os.WriteFile(filepath.Join(cfg.ScriptDir, "broken.lua"), []byte("function ("), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := NewEngineFromConfig(ctx, cfg, nil); err == nil {
		t.Fatalf("expected script error")
	}
}

func TestNewEngineFromConfigSyncsLoggerOnFailure(t *testing.T) {
	syncs := 0
	t.Cleanup(func() { newLogger = logging.New })
	newLogger = func(cfg logging.Config) (*slog.Logger, func() error, error) {
		logger, sync, err := logging.New(cfg)
		if err != nil {
			return nil, nil, err
		}
		return logger, func() error { syncs++; return sync() }, nil
	}

	ctx := context.Background()
	cfg := config.Config{
		Catalog:          config.CatalogConfig{Driver: config.DriverFS, FSRoot: t.TempDir(), Key: "catalog.json"},
		LogLevel:         "error",
		MetricsNamespace: "fitcore_engine_sync",
	}
	if _, err := NewEngineFromConfig(ctx, cfg, nil); !errors.Is(err, docstore.ErrNotExist) {
		t.Fatalf("expected missing catalog, got %v", err)
	}
	if syncs != 1 {
		t.Fatalf("expected logger synced once after catalog failure, got %d", syncs)
	}
	if _, err := NewEngineFromConfig(ctx, cfg, []Plugin{stubPlugin{name: "bad", version: "one"}}); err == nil {
		t.Fatalf("expected plugin version error")
	}
	if syncs != 2 {
		t.Fatalf("expected logger synced after plugin failure, got %d", syncs)
	}
}
