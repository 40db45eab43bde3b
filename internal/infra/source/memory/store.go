// Package memory implements an in-memory document store for tests.
package memory

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"fitcore/internal/infra/source/docstore"
)

type document struct {
	info docstore.Info
	data []byte
}

// Store implements docstore.Store backed by process memory.
type Store struct {
	mu   sync.RWMutex
	docs map[string]document
}

var _ docstore.Store = (*Store)(nil)

// New returns an empty in-memory store.
func New() *Store { return &Store{docs: make(map[string]document)} }

// Driver implements docstore.Store.
func (s *Store) Driver() docstore.Driver { return docstore.DriverMemory }

// Put implements docstore.Store.
func (s *Store) Put(_ context.Context, key string, r io.Reader) (docstore.Info, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return docstore.Info{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.docs[key]; exists {
		return docstore.Info{}, fmt.Errorf("%w: %s", docstore.ErrExists, key)
	}
	sum := sha256.Sum256(b)
	info := docstore.Info{Key: key, Size: int64(len(b)), ETag: hex.EncodeToString(sum[:]), LastModified: time.Now().UTC()}
	s.docs[key] = document{info: info, data: b}
	return info, nil
}

// Get implements docstore.Store.
func (s *Store) Get(_ context.Context, key string) (docstore.Info, io.ReadCloser, error) {
	s.mu.RLock()
	doc, ok := s.docs[key]
	s.mu.RUnlock()
	if !ok {
		return docstore.Info{}, nil, fmt.Errorf("%w: %s", docstore.ErrNotExist, key)
	}
	return doc.info, io.NopCloser(bytes.NewReader(doc.data)), nil
}

// List implements docstore.Store.
func (s *Store) List(_ context.Context, prefix string) ([]docstore.Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]docstore.Info, 0, len(s.docs))
	for k, v := range s.docs {
		if strings.HasPrefix(k, prefix) {
			out = append(out, v.info)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}
