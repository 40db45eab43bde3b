package fs

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"fitcore/internal/infra/source/docstore/storetest"
)

func TestStoreContract(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	storetest.Run(t, s)
}

func TestSanitizeKeyRejectsTraversal(t *testing.T) {
	for _, key := range []string{"", "  ", "../escape.json", "/abs.json", "a/../../b"} {
		if _, err := sanitizeKey(key); err == nil {
			t.Fatalf("expected %q to be rejected", key)
		}
	}
	if got, err := sanitizeKey("a//b/./c.json"); err != nil || got != "a/b/c.json" {
		t.Fatalf("expected cleaned key, got %q, %v", got, err)
	}
}

func TestPutWritesSidecar(t *testing.T) {
	root := t.TempDir()
	s, err := New(root)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	info, err := s.Put(context.Background(), "nested/dir/catalog.json", strings.NewReader("{}"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if info.ETag == "" {
		t.Fatalf("expected digest")
	}
	if _, err := os.Stat(filepath.Join(root, "nested", "dir", "catalog.json.meta")); err != nil {
		t.Fatalf("expected sidecar: %v", err)
	}
	entries, _ := os.ReadDir(filepath.Join(root, "nested", "dir"))
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".tmp-") {
			t.Fatalf("temp file left behind: %s", e.Name())
		}
	}
}

func TestGetFailsOnCorruptSidecar(t *testing.T) {
	root := t.TempDir()
	s, _ := New(root)
	if _, err := s.Put(context.Background(), "c.json", strings.NewReader("{}")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "c.json.meta"), []byte("nope"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, _, err := s.Get(context.Background(), "c.json"); err == nil {
		t.Fatalf("expected sidecar decode error")
	}
}
