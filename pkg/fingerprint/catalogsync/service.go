// Package catalogsync fetches a signature catalog, checks that it loads and
// stores it in the workspace cache.
package catalogsync

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/vulntor/sslprint/pkg/fingerprint"
)

// MaxCatalogSize caps how many bytes a Source may return.
const MaxCatalogSize = 8 << 20

// ErrTooLarge is returned for catalogs above MaxCatalogSize.
var ErrTooLarge = fmt.Errorf("catalog exceeds %d bytes", MaxCatalogSize)

// Source yields raw catalog bytes, either YAML or p0f.fp.
type Source interface {
	Load(ctx context.Context) ([]byte, error)
}

// Store persists catalog bytes that passed parsing.
type Store interface {
	Save(ctx context.Context, data []byte) error
}

// Service copies a catalog from Source to Store once it parses.
type Service struct {
	Source   Source
	Store    Store
	CacheDir string
}

// Sync loads the catalog, refuses it when it does not parse, saves it and
// returns the parsed database. Nothing is written for a broken catalog.
func (s Service) Sync(ctx context.Context) (*fingerprint.Database, error) {
	switch {
	case s.CacheDir == "":
		return nil, fingerprint.NewStorageDisabledError()
	case s.Source == nil:
		return nil, errors.New("catalog source is not configured")
	case s.Store == nil:
		return nil, errors.New("catalog store is not configured")
	}

	data, err := s.Source.Load(ctx)
	if err != nil {
		return nil, fingerprint.WrapSyncError(fmt.Errorf("load catalog: %w", err))
	}

	db, err := fingerprint.Parse(data)
	if err != nil {
		return nil, err
	}

	if err := s.Store.Save(ctx, data); err != nil {
		return nil, fingerprint.WrapSyncError(fmt.Errorf("save catalog: %w", err))
	}
	return db, nil
}

// readCapped reads r up to MaxCatalogSize bytes.
func readCapped(r io.Reader) ([]byte, error) {
	var buf bytes.Buffer
	n, err := buf.ReadFrom(io.LimitReader(r, MaxCatalogSize+1))
	if err != nil {
		return nil, err
	}
	if n > MaxCatalogSize {
		return nil, ErrTooLarge
	}
	return buf.Bytes(), nil
}

// FileSource reads the catalog from a local path.
type FileSource struct {
	Path string
}

func (f FileSource) Load(_ context.Context) ([]byte, error) {
	if f.Path == "" {
		return nil, errors.New("file path is empty")
	}
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()
	return readCapped(file)
}

// HTTPSource downloads the catalog with a GET request. A nil Client uses a
// client with a 30 second timeout.
type HTTPSource struct {
	URL    string
	Client *http.Client
}

func (h HTTPSource) Load(ctx context.Context) ([]byte, error) {
	if h.URL == "" {
		return nil, errors.New("url is empty")
	}
	client := h.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("GET %s: %s", h.URL, resp.Status)
	}
	return readCapped(resp.Body)
}

// FileStore writes the catalog to Path. Concurrent saves are serialized by
// a lock file beside it, and the catalog is swapped in with a rename.
type FileStore struct {
	Path string
}

func (f FileStore) Save(ctx context.Context, data []byte) error {
	if f.Path == "" {
		return errors.New("file store path is empty")
	}
	dir := filepath.Dir(f.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create catalog directory: %w", err)
	}

	lock := flock.New(f.Path + ".lock")
	locked, err := lock.TryLockContext(ctx, 50*time.Millisecond)
	if err != nil {
		return fmt.Errorf("lock %s: %w", lock.Path(), err)
	}
	if !locked {
		return fmt.Errorf("lock %s: not acquired", lock.Path())
	}
	defer func() { _ = lock.Unlock() }()

	return writeAtomic(f.Path, data)
}

func writeAtomic(path string, data []byte) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
