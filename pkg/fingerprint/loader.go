package fingerprint

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// CacheFileName is the catalog file kept in a workspace cache directory.
const CacheFileName = "ssl-catalog.yaml"

//go:embed data/ssl.yaml
var embeddedCatalogYAML []byte

// LoadBuiltin builds the database embedded in the binary.
func LoadBuiltin() (*Database, error) {
	db, err := parseCatalogYAML(embeddedCatalogYAML)
	if err != nil {
		return nil, fmt.Errorf("embedded catalog: %w", err)
	}
	return db, nil
}

// BuiltinCatalog returns the raw embedded catalog.
func BuiltinCatalog() []byte {
	return bytes.Clone(embeddedCatalogYAML)
}

// Parse builds a database from catalog bytes. YAML is detected by a
// schema_version key; anything else is read as p0f.fp syntax.
func Parse(data []byte) (*Database, error) {
	if isYAMLCatalog(data) {
		return parseCatalogYAML(data)
	}
	db := NewDatabase()
	if err := ParseP0F(bytes.NewReader(data), db); err != nil {
		return nil, err
	}
	return db, nil
}

// LoadFile builds a database from a catalog on disk. ".yaml" and ".yml"
// files are YAML catalogs, anything else p0f.fp syntax.
func LoadFile(path string) (*Database, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return parseCatalogYAML(data)
	default:
		db := NewDatabase()
		if err := ParseP0F(bytes.NewReader(data), db); err != nil {
			return nil, err
		}
		return db, nil
	}
}

// LoadCached builds the database synced into cacheDir. A missing cache
// returns an error wrapping fs.ErrNotExist.
func LoadCached(cacheDir string) (*Database, error) {
	if cacheDir == "" {
		return nil, errors.New("cache directory not specified")
	}
	cachedPath := filepath.Join(cacheDir, CacheFileName)
	content, err := os.ReadFile(cachedPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("read cache: %w", err)
	}
	db, err := Parse(content)
	if err != nil {
		return nil, fmt.Errorf("parse cache: %w", err)
	}
	return db, nil
}

// Resolve picks the database to use: an explicit path first, then the
// workspace cache, then the embedded catalog.
func Resolve(path, cacheDir string) (*Database, string, error) {
	if path != "" {
		db, err := LoadFile(path)
		return db, path, err
	}
	if cacheDir != "" {
		db, err := LoadCached(cacheDir)
		if err == nil {
			return db, filepath.Join(cacheDir, CacheFileName), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, "", err
		}
	}
	db, err := LoadBuiltin()
	return db, "builtin", err
}

func isYAMLCatalog(data []byte) bool {
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || line[0] == '#' || line[0] == ';' {
			continue
		}
		return strings.HasPrefix(line, "schema_version:") || line == "---"
	}
	return false
}
