// Package storetest holds the behavior every docstore.Store must show.
package storetest

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"fitcore/internal/catalog"
	"fitcore/internal/infra/source/docstore"
	"fitcore/pkg/domain"
)

// Snapshot is a small catalog used across store tests.
func Snapshot() catalog.Data {
	return catalog.Data{
		Attributes: []catalog.AttributeData{{ID: domain.AttrCPU, Stackable: true}},
		Effects: []catalog.EffectData{{ID: 1, Category: domain.EffectOnline, Modifiers: []catalog.ModifierData{
			{Filter: "item", Domain: "ship", TargetAttr: domain.AttrCPUOutput, Operator: "mod_add", SourceAttr: domain.AttrCPU},
		}}},
		Types: []catalog.TypeData{{ID: 10, GroupID: 2, CategoryID: domain.CategoryModule, Effects: []domain.EffectID{1}, Attrs: map[domain.AttrID]float64{domain.AttrCPU: 12.5}}},
	}
}

// Run exercises store against the docstore.Store contract.
func Run(t *testing.T, store docstore.Store) {
	t.Helper()
	ctx := context.Background()

	info, err := store.Put(ctx, "dumps/a.json", strings.NewReader(`{"types":[]}`))
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Key != "dumps/a.json" || info.Size != int64(len(`{"types":[]}`)) {
		t.Fatalf("unexpected info: %+v", info)
	}
	if _, err := store.Put(ctx, "dumps/a.json", strings.NewReader("{}")); !errors.Is(err, docstore.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	_, body, err := store.Get(ctx, "dumps/a.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	b, _ := io.ReadAll(body)
	_ = body.Close()
	if string(b) != `{"types":[]}` {
		t.Fatalf("unexpected body %q", b)
	}
	if _, _, err := store.Get(ctx, "dumps/missing.json"); !errors.Is(err, docstore.ErrNotExist) {
		t.Fatalf("expected ErrNotExist, got %v", err)
	}

	if _, err := docstore.Publish(ctx, store, "dumps/b.json", Snapshot()); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if _, err := store.Put(ctx, "other.json", strings.NewReader("{}")); err != nil {
		t.Fatalf("put other: %v", err)
	}
	list, err := store.List(ctx, "dumps/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var keys []string
	for _, inf := range list {
		keys = append(keys, inf.Key)
	}
	if diff := cmp.Diff([]string{"dumps/a.json", "dumps/b.json"}, keys); diff != "" {
		t.Fatalf("list mismatch (-want +got):\n%s", diff)
	}

	data, err := docstore.NewSource(store, "dumps/b.json").Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff(Snapshot(), data); diff != "" {
		t.Fatalf("snapshot mismatch (-want +got):\n%s", diff)
	}
	if _, err := docstore.NewSource(store, "dumps/missing.json").Load(ctx); !errors.Is(err, docstore.ErrNotExist) {
		t.Fatalf("expected ErrNotExist from source, got %v", err)
	}
}
