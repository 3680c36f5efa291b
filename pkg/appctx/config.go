package appctx

import (
	"context"

	"github.com/vulntor/sslprint/pkg/config"
	"github.com/vulntor/sslprint/pkg/fingerprint"
)

type key string

const (
	configKey   key = "sslprint.config.manager"
	databaseKey key = "sslprint.fingerprint.database"
)

// WithConfig stores the shared config manager on context.
func WithConfig(ctx context.Context, manager *config.Manager) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, configKey, manager)
}

// Config retrieves the shared config manager from context.
func Config(ctx context.Context) (*config.Manager, bool) {
	if ctx == nil {
		return nil, false
	}
	mgr, ok := ctx.Value(configKey).(*config.Manager)
	return mgr, ok && mgr != nil
}

// WithDatabase stores a loaded signature database on context.
func WithDatabase(ctx context.Context, db *fingerprint.Database) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, databaseKey, db)
}

// Database retrieves the signature database from context.
func Database(ctx context.Context) (*fingerprint.Database, bool) {
	if ctx == nil {
		return nil, false
	}
	db, ok := ctx.Value(databaseKey).(*fingerprint.Database)
	return db, ok && db != nil
}
