package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_ReturnsExpectedDefaults(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "info", cfg.Log.Level, "Default log level should be 'info'")
	assert.Equal(t, "text", cfg.Log.Format, "Default log format should be 'text'")
	assert.Equal(t, "", cfg.Log.File, "Default log file should be empty")
	assert.Equal(t, 8192, cfg.Capture.MaxFlowData)
	assert.Equal(t, 30*time.Second, cfg.Capture.FlowTTL)
	assert.Equal(t, "text", cfg.Output.Format)
	require.NoError(t, Validate(cfg))
}

func TestDefaultConfigAsMap_CoversEveryKey(t *testing.T) {
	m := DefaultConfigAsMap()
	for _, key := range flagKeys {
		assert.Contains(t, m, key, "flag key %s has no default", key)
	}
}

func TestManager_Load_LoadsDefaultsWhenNoFlags(t *testing.T) {
	manager := NewManager()
	err := manager.Load(nil, "")
	require.NoError(t, err, "Load should not return error when loading defaults")

	cfg := manager.Get()
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Empty(t, cfg.Capture.Ports)
	assert.Equal(t, 10000, cfg.Capture.MaxFlows)
	assert.Equal(t, 30*time.Second, cfg.Capture.FlowTTL)
}

func TestManager_Load_OverridesWithFlags(t *testing.T) {
	manager := NewManager()
	flags := newTestFlagSet()
	require.NoError(t, flags.Set("log-level", "error"))
	require.NoError(t, flags.Set("log-format", "json"))
	require.NoError(t, flags.Set("ports", "443,8443"))
	require.NoError(t, flags.Set("flow-ttl", "5s"))
	require.NoError(t, flags.Set("format", "JSON"))

	require.NoError(t, manager.Load(flags, ""))
	cfg := manager.Get()
	assert.Equal(t, "error", cfg.Log.Level, "Flag should override log level")
	assert.Equal(t, "json", cfg.Log.Format, "Flag should override log format")
	assert.Equal(t, []int{443, 8443}, cfg.Capture.Ports)
	assert.Equal(t, 5*time.Second, cfg.Capture.FlowTTL)
	assert.Equal(t, "json", cfg.Output.Format, "formats are lower-cased")
	assert.Equal(t, 8192, cfg.Capture.MaxFlowData, "unchanged flags keep defaults")
}

func TestManager_Load_DebugFlagSetsLogLevelToDebug(t *testing.T) {
	manager := NewManager()
	flags := newTestFlagSet()
	require.NoError(t, flags.Set("debug", "true"))
	require.NoError(t, manager.Load(flags, ""))
	assert.Equal(t, "debug", manager.Get().Log.Level, "Debug flag should set log level to debug")
}

func TestManager_Load_FileEnvFlagPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sslprint.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log:
  level: warn
database:
  path: /etc/p0f/p0f.fp
capture:
  ports: [443]
  max_flows: 50
output:
  sqlite: /var/lib/sslprint/obs.db
`), 0o644))

	t.Setenv("SSLPRINT_CAPTURE_MAX_FLOWS", "75")
	t.Setenv("SSLPRINT_OUTPUT_SQLITE", "/tmp/env.db")

	flags := newTestFlagSet()
	require.NoError(t, flags.Set("sqlite", "/tmp/flag.db"))

	manager := NewManager()
	require.NoError(t, manager.Load(flags, path))
	cfg := manager.Get()

	assert.Equal(t, "warn", cfg.Log.Level, "file overrides defaults")
	assert.Equal(t, "/etc/p0f/p0f.fp", cfg.Database.Path)
	assert.Equal(t, []int{443}, cfg.Capture.Ports)
	assert.Equal(t, 75, cfg.Capture.MaxFlows, "env overrides file")
	assert.Equal(t, "/tmp/flag.db", cfg.Output.SQLite, "flags override env")
}

func TestManager_Load_RejectsInvalidValues(t *testing.T) {
	manager := NewManager()
	flags := newTestFlagSet()
	require.NoError(t, flags.Set("format", "xml"))
	require.NoError(t, flags.Set("ports", "0"))

	err := manager.Load(flags, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "output.format")
	assert.Contains(t, err.Error(), "capture.ports[0]")
	assert.Equal(t, "text", manager.Get().Output.Format, "previous config is kept")
}

func TestManager_GetReturnsCopy(t *testing.T) {
	manager := NewManager()
	flags := newTestFlagSet()
	require.NoError(t, flags.Set("ports", "443"))
	require.NoError(t, manager.Load(flags, ""))

	cfg := manager.Get()
	cfg.Capture.Ports[0] = 1
	assert.Equal(t, []int{443}, manager.Get().Capture.Ports)
	assert.Equal(t, 443, manager.Koanf().Ints("capture.ports")[0])
}

func TestKeyFor(t *testing.T) {
	assert.Equal(t, "capture.max_flow_data", keyFor("Config.Capture.MaxFlowData"))
	assert.Equal(t, "capture.flow_ttl", keyFor("Config.Capture.FlowTTL"))
	assert.Equal(t, "output.sqlite", keyFor("Config.Output.SQLite"))
	assert.Equal(t, "capture.ports[2]", keyFor("Config.Capture.Ports[2]"))
}

func TestBindFlags_AddsDebugFlag(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindFlags(flags)
	debugFlag := flags.Lookup("debug")
	require.NotNil(t, debugFlag, "BindFlags should add a 'debug' flag")
	assert.Equal(t, "Enable debug logging", debugFlag.Usage)
	assert.Equal(t, "false", debugFlag.DefValue)
	assert.NotNil(t, flags.Lookup("db"))
}

func newTestFlagSet() *pflag.FlagSet {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindFlags(flags)
	BindCaptureFlags(flags)
	return flags
}
