package bind

import (
	"github.com/spf13/cobra"

	"github.com/vulntor/sslprint/pkg/fingerprint"
)

// SyncOptions holds configuration options for the db sync command.
type SyncOptions struct {
	FilePath string
	URL      string
	CacheDir string
}

// BindSyncOptions extracts and validates db sync flags.
//
// Flags read:
//   - --file: Load the catalog from a local file
//   - --url: Download the catalog from a remote URL
//   - --cache-dir: Override the cache destination directory
//
// Exactly one of --file and --url must be set.
func BindSyncOptions(cmd *cobra.Command) (SyncOptions, error) {
	filePath, _ := cmd.Flags().GetString("file")
	url, _ := cmd.Flags().GetString("url")
	cacheDir, _ := cmd.Flags().GetString("cache-dir")

	opts := SyncOptions{
		FilePath: filePath,
		URL:      url,
		CacheDir: cacheDir,
	}

	if filePath == "" && url == "" {
		return opts, fingerprint.NewSourceRequiredError()
	}

	if filePath != "" && url != "" {
		return opts, fingerprint.NewSourceConflictError()
	}

	return opts, nil
}
