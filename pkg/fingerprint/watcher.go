// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package fingerprint

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// ReloadFunc receives the result of each catalog reload. Exactly one of db
// and err is non-nil.
type ReloadFunc func(db *Database, err error)

// CatalogWatcher rebuilds a database whenever its catalog file changes.
// Each reload produces a new Database; databases already handed out are
// never modified.
type CatalogWatcher struct {
	path     string
	onReload ReloadFunc

	watcher       *fsnotify.Watcher
	debounceDelay time.Duration
	logger        zerolog.Logger

	// mu protects debounceTimer
	mu            sync.Mutex
	debounceTimer *time.Timer

	// reloadMu is held across onReload so stop waits for a running callback
	reloadMu sync.Mutex
	stopped  bool
}

// NewCatalogWatcher creates a watcher for the catalog at path. Changes are
// debounced so an editor's burst of writes triggers one reload. onReload is
// never called once Start has returned or Close was called, and must not
// call Close itself.
func NewCatalogWatcher(path string, onReload ReloadFunc, logger zerolog.Logger) (*CatalogWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &CatalogWatcher{
		path:          path,
		onReload:      onReload,
		watcher:       watcher,
		debounceDelay: 100 * time.Millisecond,
		logger:        logger.With().Str("component", "fingerprint.watcher").Logger(),
	}, nil
}

// Start watches until ctx is canceled or the watcher is closed.
//
//	go watcher.Start(ctx)
func (w *CatalogWatcher) Start(ctx context.Context) error {
	// fsnotify watches directories; editors often replace the file
	dir := filepath.Dir(w.path)
	file := filepath.Base(w.path)

	if err := w.watcher.Add(dir); err != nil {
		w.logger.Error().
			Err(err).
			Str("dir", dir).
			Msg("Failed to watch catalog directory")
		return err
	}

	w.logger.Info().
		Str("file", w.path).
		Dur("debounce", w.debounceDelay).
		Msg("Started watching signature catalog")

	defer func() {
		w.stop()
		if err := w.watcher.Close(); err != nil {
			w.logger.Warn().Err(err).Msg("Error closing watcher")
		}
		w.logger.Info().Msg("Stopped watching signature catalog")
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != file {
				continue
			}
			if event.Op&fsnotify.Write == fsnotify.Write || event.Op&fsnotify.Create == fsnotify.Create {
				w.logger.Debug().
					Str("op", event.Op.String()).
					Str("file", event.Name).
					Msg("Detected catalog change")
				w.scheduleReload()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn().
				Err(err).
				Msg("File watcher error")
		}
	}
}

// scheduleReload resets the debounce timer.
func (w *CatalogWatcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}

	w.debounceTimer = time.AfterFunc(w.debounceDelay, w.reload)
}

// stop cancels a pending reload and waits for a running one to finish.
func (w *CatalogWatcher) stop() {
	w.mu.Lock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.mu.Unlock()

	w.reloadMu.Lock()
	w.stopped = true
	w.reloadMu.Unlock()
}

func (w *CatalogWatcher) reload() {
	w.reloadMu.Lock()
	defer w.reloadMu.Unlock()
	if w.stopped {
		return
	}

	db, err := LoadFile(w.path)
	if err != nil {
		w.logger.Error().
			Err(err).
			Msg("Failed to reload signature catalog")
		w.onReload(nil, err)
		return
	}

	w.logger.Info().
		Int("signatures", db.Len()).
		Msg("Signature catalog reloaded")
	w.onReload(db, nil)
}

// Close stops the watcher and releases resources.
func (w *CatalogWatcher) Close() error {
	w.stop()
	return w.watcher.Close()
}
