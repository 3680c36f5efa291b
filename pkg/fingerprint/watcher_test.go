// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package fingerprint

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reload struct {
	db  *Database
	err error
}

func startWatcher(t *testing.T, path string) (chan reload, context.CancelFunc) {
	t.Helper()

	reloads := make(chan reload, 4)
	w, err := NewCatalogWatcher(path, func(db *Database, err error) {
		reloads <- reload{db, err}
	}, zerolog.Nop())
	require.NoError(t, err)
	require.Equal(t, 100*time.Millisecond, w.debounceDelay)
	w.debounceDelay = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = w.Start(ctx) }()
	// give fsnotify time to register the directory
	time.Sleep(50 * time.Millisecond)
	return reloads, cancel
}

func TestCatalogWatcher_ReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ssl.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testCatalog), 0o644))

	reloads, cancel := startWatcher(t, path)
	defer cancel()

	updated := testCatalog + "  - name: Extra\n    class: os\n    sigs: [\"3.3:2f:ff01:\"]\n"
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o644))

	select {
	case r := <-reloads:
		require.NoError(t, r.err)
		require.Equal(t, 4, r.db.Len())
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for reload")
	}
}

func TestCatalogWatcher_ReportsBrokenCatalog(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ssl.fp")
	require.NoError(t, os.WriteFile(path, []byte("[ssl:request]\n"), 0o644))

	reloads, cancel := startWatcher(t, path)
	defer cancel()

	require.NoError(t, os.WriteFile(path, []byte("[ssl:request]\nsig = 3.1:2f:ff01:\n"), 0o644))

	select {
	case r := <-reloads:
		require.Nil(t, r.db)
		require.ErrorIs(t, r.err, ErrConfigInvalid)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for reload")
	}
}

func TestCatalogWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ssl.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testCatalog), 0o644))

	reloads, cancel := startWatcher(t, path)
	defer cancel()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o644))

	select {
	case <-reloads:
		t.Fatal("unexpected reload")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestCatalogWatcher_NoReloadAfterStop(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ssl.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testCatalog), 0o644))

	t.Run("after close", func(t *testing.T) {
		calls := 0
		w, err := NewCatalogWatcher(path, func(*Database, error) { calls++ }, zerolog.Nop())
		require.NoError(t, err)

		w.reload()
		require.Equal(t, 1, calls)

		require.NoError(t, w.Close())
		w.reload()
		assert.Equal(t, 1, calls)
	})

	t.Run("after start returns", func(t *testing.T) {
		calls := 0
		w, err := NewCatalogWatcher(path, func(*Database, error) { calls++ }, zerolog.Nop())
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		require.ErrorIs(t, w.Start(ctx), context.Canceled)

		// a debounce timer that fired just before shutdown
		w.reload()
		assert.Zero(t, calls)
	})
}
