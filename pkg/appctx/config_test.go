package appctx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vulntor/sslprint/pkg/config"
	"github.com/vulntor/sslprint/pkg/fingerprint"
)

func TestWithConfig(t *testing.T) {
	t.Run("stores config manager in context", func(t *testing.T) {
		manager := config.NewManager()
		ctx := WithConfig(context.Background(), manager)

		retrieved, ok := Config(ctx)
		require.True(t, ok, "expected to retrieve config manager")
		assert.Same(t, manager, retrieved)
	})

	t.Run("handles nil context", func(t *testing.T) {
		manager := config.NewManager()
		//nolint:staticcheck
		ctx := WithConfig(nil, manager)

		retrieved, ok := Config(ctx)
		require.True(t, ok)
		assert.Same(t, manager, retrieved)
	})
}

func TestConfig(t *testing.T) {
	t.Run("returns false for nil context", func(t *testing.T) {
		//nolint:staticcheck
		_, ok := Config(nil)
		assert.False(t, ok)
	})

	t.Run("returns false when config not in context", func(t *testing.T) {
		_, ok := Config(context.Background())
		assert.False(t, ok)
	})

	t.Run("returns false for nil config manager", func(t *testing.T) {
		ctx := context.WithValue(context.Background(), configKey, (*config.Manager)(nil))
		_, ok := Config(ctx)
		assert.False(t, ok)
	})

	t.Run("returns false for wrong type in context", func(t *testing.T) {
		ctx := context.WithValue(context.Background(), configKey, "not a manager")
		_, ok := Config(ctx)
		assert.False(t, ok)
	})
}

func TestDatabase(t *testing.T) {
	db, err := fingerprint.Parse([]byte(`schema_version: "1.0.0"
entries:
  - name: Test
    class: app
    sigs: ["3.3:c02b:0:"]
`))
	require.NoError(t, err)

	ctx := WithDatabase(context.Background(), db)
	got, ok := Database(ctx)
	require.True(t, ok)
	assert.Same(t, db, got)

	_, ok = Database(WithConfig(context.Background(), config.NewManager()))
	assert.False(t, ok, "config and database use distinct keys")

	_, ok = Database(WithDatabase(context.Background(), nil))
	assert.False(t, ok)
}
