package catalogsync

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vulntor/sslprint/pkg/fingerprint"
)

const catalogYAML = `schema_version: "1.0.0"
entries:
  - name: Demo
    class: app
    systems: [Linux]
    sigs:
      - "3.1:2f,35:ff01:"
`

type bytesSource []byte

func (b bytesSource) Load(context.Context) ([]byte, error) { return b, nil }

func TestFileSource(t *testing.T) {
	ctx := context.Background()

	_, err := FileSource{}.Load(ctx)
	assert.Error(t, err)

	dir := t.TempDir()
	path := filepath.Join(dir, "c.yaml")
	require.NoError(t, os.WriteFile(path, []byte(catalogYAML), 0o644))
	data, err := FileSource{Path: path}.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, catalogYAML, string(data))

	big := filepath.Join(dir, "big.fp")
	require.NoError(t, os.WriteFile(big, bytes.Repeat([]byte{'#'}, MaxCatalogSize+1), 0o644))
	_, err = FileSource{Path: big}.Load(ctx)
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestHTTPSource(t *testing.T) {
	ctx := context.Background()

	_, err := HTTPSource{}.Load(ctx)
	assert.Error(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ssl.yaml" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(catalogYAML))
	}))
	defer srv.Close()

	data, err := HTTPSource{URL: srv.URL + "/ssl.yaml", Client: srv.Client()}.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, catalogYAML, string(data))

	_, err = HTTPSource{URL: srv.URL + "/missing"}.Load(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	assert.Error(t, FileStore{}.Save(ctx, []byte("x")))

	dir := filepath.Join(t.TempDir(), "out")
	path := filepath.Join(dir, "c.yaml")
	require.NoError(t, FileStore{Path: path}.Save(ctx, []byte("first")))
	require.NoError(t, FileStore{Path: path}.Save(ctx, []byte(catalogYAML)))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, catalogYAML, string(got))

	leftovers, _ := filepath.Glob(filepath.Join(dir, "*.tmp"))
	assert.Empty(t, leftovers)
}

func TestService_Sync(t *testing.T) {
	dir := t.TempDir()
	svc := Service{
		Source:   bytesSource(catalogYAML),
		Store:    FileStore{Path: filepath.Join(dir, fingerprint.CacheFileName)},
		CacheDir: dir,
	}

	db, err := svc.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, db.Len())

	cached, err := fingerprint.LoadCached(dir)
	require.NoError(t, err)
	assert.Equal(t, 1, cached.Len())
}

func TestService_SyncRejectsInvalidCatalog(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, fingerprint.CacheFileName)
	svc := Service{
		Source:   bytesSource("[ssl:request]\nlabel = s:!:Broken:\nsig = 3.1:zz::\n"),
		Store:    FileStore{Path: path},
		CacheDir: dir,
	}

	_, err := svc.Sync(context.Background())
	assert.ErrorIs(t, err, fingerprint.ErrConfigInvalid)
	assert.NoFileExists(t, path, "a broken catalog is never stored")
}

func TestService_SyncPreconditions(t *testing.T) {
	ctx := context.Background()

	_, err := Service{Source: bytesSource(catalogYAML), Store: FileStore{Path: "x"}}.Sync(ctx)
	assert.ErrorIs(t, err, fingerprint.ErrStorageDisabled)

	_, err = Service{Store: FileStore{Path: "x"}, CacheDir: t.TempDir()}.Sync(ctx)
	assert.Error(t, err)

	_, err = Service{Source: bytesSource(catalogYAML), CacheDir: t.TempDir()}.Sync(ctx)
	assert.Error(t, err)
}
