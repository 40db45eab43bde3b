// Package fs implements a document store on the local filesystem.
package fs

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"fitcore/internal/infra/source/docstore"
)

// Store maps keys to files under root. A sidecar (filename + `.meta`) keeps
// the digest, size and write time of each document.
type Store struct {
	root string
}

var _ docstore.Store = (*Store)(nil)

// New returns a store rooted at root, creating the directory if needed.
func New(root string) (*Store, error) {
	if root == "" {
		root = "./catalog"
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &Store{root: root}, nil
}

// Driver implements docstore.Store.
func (s *Store) Driver() docstore.Driver { return docstore.DriverFilesystem }

// sanitizeKey keeps keys relative to the root.
func sanitizeKey(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("empty key")
	}
	if strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid key contains '..'")
	}
	if strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("invalid absolute key")
	}
	return filepath.ToSlash(filepath.Clean(key)), nil
}

func (s *Store) pathFor(key string) (dataPath, metaPath string, err error) {
	k, err := sanitizeKey(key)
	if err != nil {
		return "", "", err
	}
	dataPath = filepath.Join(s.root, k)
	return dataPath, dataPath + ".meta", nil
}

type metaFile struct {
	ETag      string    `json:"etag"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Put implements docstore.Store. Content is streamed to a temp file and
// renamed into place.
func (s *Store) Put(_ context.Context, key string, r io.Reader) (docstore.Info, error) {
	dataPath, metaPath, err := s.pathFor(key)
	if err != nil {
		return docstore.Info{}, err
	}
	if _, err := os.Stat(dataPath); err == nil {
		return docstore.Info{}, fmt.Errorf("%w: %s", docstore.ErrExists, key)
	}
	if err := os.MkdirAll(filepath.Dir(dataPath), 0o755); err != nil {
		return docstore.Info{}, err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dataPath), ".tmp-*")
	if err != nil {
		return docstore.Info{}, err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	h := sha256.New()
	size, err := io.Copy(io.MultiWriter(tmp, h), r)
	if err == nil {
		err = tmp.Sync()
	}
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return docstore.Info{}, err
	}
	if err := os.Rename(tmp.Name(), dataPath); err != nil {
		return docstore.Info{}, err
	}
	mf := metaFile{ETag: hex.EncodeToString(h.Sum(nil)), Size: size, UpdatedAt: time.Now().UTC()}
	b, err := json.MarshalIndent(mf, "", "  ")
	if err != nil {
		return docstore.Info{}, err
	}
	if err := os.WriteFile(metaPath, b, 0o644); err != nil {
		return docstore.Info{}, err
	}
	return mf.info(key), nil
}

// Get implements docstore.Store.
func (s *Store) Get(_ context.Context, key string) (docstore.Info, io.ReadCloser, error) {
	dataPath, metaPath, err := s.pathFor(key)
	if err != nil {
		return docstore.Info{}, nil, err
	}
	file, err := os.Open(dataPath)
	if errors.Is(err, fs.ErrNotExist) {
		return docstore.Info{}, nil, fmt.Errorf("%w: %s", docstore.ErrNotExist, key)
	}
	if err != nil {
		return docstore.Info{}, nil, err
	}
	mf, err := readMeta(metaPath)
	if err != nil {
		_ = file.Close()
		return docstore.Info{}, nil, err
	}
	return mf.info(key), file, nil
}

// List implements docstore.Store by walking the sidecars under root.
func (s *Store) List(_ context.Context, prefix string) ([]docstore.Info, error) {
	var infos []docstore.Info
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".meta") {
			return nil
		}
		rel, err := filepath.Rel(s.root, strings.TrimSuffix(path, ".meta"))
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}
		mf, err := readMeta(path)
		if err != nil {
			return err
		}
		infos = append(infos, mf.info(key))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}

func (m metaFile) info(key string) docstore.Info {
	return docstore.Info{Key: key, Size: m.Size, ETag: m.ETag, LastModified: m.UpdatedAt}
}

func readMeta(path string) (metaFile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return metaFile{}, err
	}
	var mf metaFile
	if err := json.Unmarshal(b, &mf); err != nil {
		return metaFile{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return mf, nil
}
