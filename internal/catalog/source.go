package catalog

import (
	"context"
	"fmt"
)

// Source loads a catalog snapshot from storage.
type Source interface {
	Load(ctx context.Context) (Data, error)
}

// Load reads a snapshot from src and builds the catalog.
func Load(ctx context.Context, src Source, procs Procedures) (*Catalog, error) {
	data, err := src.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	return New(data, procs)
}

// StaticSource serves a snapshot held in memory.
type StaticSource Data

// Load implements Source.
func (s StaticSource) Load(context.Context) (Data, error) { return Data(s), nil }
