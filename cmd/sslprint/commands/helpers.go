package commands

import (
	"context"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/vulntor/sslprint/pkg/appctx"
	"github.com/vulntor/sslprint/pkg/config"
	"github.com/vulntor/sslprint/pkg/fingerprint"
	"github.com/vulntor/sslprint/pkg/workspace"
)

func configFrom(ctx context.Context) config.Config {
	if mgr, ok := appctx.Config(ctx); ok {
		return mgr.Get()
	}
	return config.DefaultConfig()
}

// loadDatabase returns the database placed on ctx, or resolves one from
// the configured path, the workspace cache and the built-in catalog.
func loadDatabase(ctx context.Context, cfg config.Config) (*fingerprint.Database, string, error) {
	if db, ok := appctx.Database(ctx); ok {
		return db, "context", nil
	}

	cacheDir := ""
	if ws, ok := workspace.FromContext(ctx); ok {
		cacheDir = workspace.CatalogCacheDir(ws)
	}

	db, source, err := fingerprint.Resolve(cfg.Database.Path, cacheDir)
	if err != nil {
		return nil, "", err
	}
	log.Debug().
		Str("source", source).
		Int("signatures", db.Len()).
		Msg("signature database loaded")
	return db, source, nil
}

// maxSignatureWidth caps the signature column of list tables.
const maxSignatureWidth = 72

func describeRecord(db *fingerprint.Database, r *fingerprint.Record) []string {
	d := db.Describe(r)
	label := d.Label()
	if d.Generic {
		label += " (generic)"
	}
	return []string{
		strconv.Itoa(r.Line),
		d.Kind,
		label,
		strings.Join(d.Systems, ","),
		r.Signature.String(),
	}
}
