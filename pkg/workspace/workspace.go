// Package workspace manages the on-disk directory holding the synced
// signature cache, stored observations, telemetry and logs.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// EnvWorkspace overrides the default workspace location.
const EnvWorkspace = "SSLPRINT_WORKSPACE"

const appDir = "sslprint"

var defaultSubdirs = []string{
	"cache",
	"observations",
	"telemetry",
	"logs",
}

var (
	userHomeDir = os.UserHomeDir
	getGOOS     = func() string { return runtime.GOOS }
)

// Prepare creates the workspace layout under root, or under the default
// location when root is empty, and returns its absolute path.
func Prepare(root string) (string, error) {
	if root == "" {
		def, err := defaultRoot()
		if err != nil {
			return "", err
		}
		root = def
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolve workspace path: %w", err)
	}

	if err := os.MkdirAll(absRoot, 0o750); err != nil {
		return "", fmt.Errorf("create workspace root: %w", err)
	}

	for _, sub := range defaultSubdirs {
		if err := os.MkdirAll(filepath.Join(absRoot, sub), 0o750); err != nil {
			return "", fmt.Errorf("create workspace subdir %q: %w", sub, err)
		}
	}
	if err := os.MkdirAll(CatalogCacheDir(absRoot), 0o750); err != nil {
		return "", fmt.Errorf("create catalog cache: %w", err)
	}
	return absRoot, nil
}

// CatalogCacheDir is where synced signature catalogs are kept.
func CatalogCacheDir(root string) string {
	return filepath.Join(root, "cache", "fingerprint")
}

// ObservationsDB is the default SQLite store for observations.
func ObservationsDB(root string) string {
	return filepath.Join(root, "observations", "observations.db")
}

// TelemetryPath is the default match telemetry file.
func TelemetryPath(root string) string {
	return filepath.Join(root, "telemetry", "matches.jsonl")
}

// LogPath is the default log file when logging to the workspace.
func LogPath(root string) string {
	return filepath.Join(root, "logs", "sslprint.log")
}

type ctxKey string

const workspaceRootKey ctxKey = "workspace.root"

// WithContext stores the prepared workspace root on the provided context.
func WithContext(ctx context.Context, root string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, workspaceRootKey, root)
}

// FromContext extracts the workspace root from context.
func FromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	val := ctx.Value(workspaceRootKey)
	if root, ok := val.(string); ok && root != "" {
		return root, true
	}
	return "", false
}

func defaultRoot() (string, error) {
	if dir := os.Getenv(EnvWorkspace); dir != "" {
		return dir, nil
	}
	base, err := dataBase(getGOOS())
	if err != nil {
		return "", err
	}
	return filepath.Join(base, appDir), nil
}

// dataBase is the per-user application data directory for goos.
func dataBase(goos string) (string, error) {
	switch goos {
	case "windows":
		if appData := os.Getenv("AppData"); appData != "" {
			return appData, nil
		}
	case "darwin":
	default:
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			return xdg, nil
		}
	}

	home, err := userHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	if home == "" {
		return "", errors.New("cannot determine workspace directory")
	}
	switch goos {
	case "windows":
		return filepath.Join(home, "AppData", "Roaming"), nil
	case "darwin":
		return filepath.Join(home, "Library", "Application Support"), nil
	default:
		return filepath.Join(home, ".local", "share"), nil
	}
}

// Subdirectories returns the list of default workspace subdirectories.
func Subdirectories() []string {
	subs := make([]string, len(defaultSubdirs))
	copy(subs, defaultSubdirs)
	return subs
}
