// Package docstore defines the document storage used for catalog dumps and
// the catalog source reading from it.
package docstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"fitcore/internal/catalog"
)

// Driver identifies a concrete document store backend.
type Driver string

const (
	// DriverFilesystem stores documents as local files.
	DriverFilesystem Driver = "fs"
	// DriverS3 stores documents in an S3 / MinIO compatible bucket.
	DriverS3 Driver = "s3"
	// DriverMemory keeps documents in process memory (tests).
	DriverMemory Driver = "memory"
)

// Info describes a stored document.
type Info struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size_bytes"`
	ETag         string    `json:"etag,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

// Store is a create-only keyed document store.
type Store interface {
	// Put stores a new document. It fails with ErrExists if the key is taken.
	Put(ctx context.Context, key string, r io.Reader) (Info, error)
	// Get returns the document metadata and content. Missing keys fail with
	// an error matching ErrNotExist.
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)
	// List returns documents whose key has prefix, ordered by key.
	List(ctx context.Context, prefix string) ([]Info, error)
	Driver() Driver
}

var (
	// ErrExists is returned when a key is already taken.
	ErrExists = errors.New("docstore: document exists")
	// ErrNotExist is returned when a key is absent.
	ErrNotExist = errors.New("docstore: document not found")
)

// Source reads a catalog snapshot stored as one JSON document.
type Source struct {
	store Store
	key   string
}

var _ catalog.Source = (*Source)(nil)

// NewSource returns a catalog source reading key from store.
func NewSource(store Store, key string) *Source {
	return &Source{store: store, key: key}
}

// Load implements catalog.Source.
func (s *Source) Load(ctx context.Context) (catalog.Data, error) {
	_, body, err := s.store.Get(ctx, s.key)
	if err != nil {
		return catalog.Data{}, fmt.Errorf("%s document %s: %w", s.store.Driver(), s.key, err)
	}
	defer func() { _ = body.Close() }()
	return catalog.Decode(body)
}

// Publish encodes data and stores it under key.
func Publish(ctx context.Context, store Store, key string, data catalog.Data) (Info, error) {
	var buf bytes.Buffer
	if err := catalog.Encode(&buf, data); err != nil {
		return Info{}, err
	}
	return store.Put(ctx, key, &buf)
}
