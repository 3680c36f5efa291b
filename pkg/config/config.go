// pkg/config/config.go
package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

var validate = validator.New()

// Manager handles loading and accessing application configuration.
type Manager struct {
	koanfInstance *koanf.Koanf
	currentConfig Config
	mu            sync.RWMutex
}

// NewManager creates a Manager holding the defaults.
func NewManager() *Manager {
	return &Manager{
		koanfInstance: koanf.New("."),
		currentConfig: DefaultConfig(),
	}
}

// DefaultConfig returns a new Config struct populated with hardcoded default values.
// These serve as the baseline configuration if no other sources override them.
func DefaultConfig() Config {
	return Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
			File:   "",
		},
		Capture: CaptureConfig{
			MaxFlowData: 8192,
			MaxFlows:    10000,
			FlowTTL:     30 * time.Second,
		},
		Output: OutputConfig{
			Format: "text",
		},
	}
}

// Load reads defaults, the optional config file, SSLPRINT_* environment
// variables and flags, in that order.
func (m *Manager) Load(flags *pflag.FlagSet, customConfigFilePath string) error {
	debug := false
	if flags != nil {
		if f := flags.Lookup("debug"); f != nil && f.Value.String() == "true" {
			debug = true
		}
	}
	return m.LoadWithSources(DefaultSources(customConfigFilePath, flags, debug))
}

// LoadWithSources loads sources in ascending priority order into a fresh
// koanf instance, then unmarshals and validates the result. On error the
// previous configuration is kept.
func (m *Manager) LoadWithSources(sources []ConfigSource) error {
	ordered := make([]ConfigSource, len(sources))
	copy(ordered, sources)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority() < ordered[j].Priority()
	})

	k := koanf.New(".")
	for _, src := range ordered {
		if err := src.Load(k); err != nil {
			return fmt.Errorf("config source %s: %w", src.Name(), err)
		}
	}

	var newCfg Config
	if err := k.UnmarshalWithConf("", &newCfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return fmt.Errorf("error unmarshaling final config: %w", err)
	}
	postProcessConfig(&newCfg)

	if err := Validate(newCfg); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.koanfInstance = k
	m.currentConfig = newCfg
	return nil
}

// Get returns a copy of the current configuration.
func (m *Manager) Get() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cfg := m.currentConfig
	cfg.Capture.Ports = append([]int(nil), cfg.Capture.Ports...)
	return cfg
}

// Koanf exposes the merged key space, mainly for diagnostics.
func (m *Manager) Koanf() *koanf.Koanf {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.koanfInstance
}

// postProcessConfig normalizes case-insensitive values.
func postProcessConfig(cfg *Config) {
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	cfg.Log.Format = strings.ToLower(cfg.Log.Format)
	cfg.Output.Format = strings.ToLower(cfg.Output.Format)
}

// Validate checks cfg against its struct constraints.
func Validate(cfg Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q (value %v)", keyFor(fe.Namespace()), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

// keyFor turns "Config.Capture.MaxFlowData" into "capture.max_flow_data".
func keyFor(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) > 0 && parts[0] == "Config" {
		parts = parts[1:]
	}
	for i, p := range parts {
		var b strings.Builder
		for j := 0; j < len(p); j++ {
			c := p[j]
			if c >= 'A' && c <= 'Z' {
				if j > 0 && (p[j-1] >= 'a' && p[j-1] <= 'z' || p[j-1] >= '0' && p[j-1] <= '9') {
					b.WriteByte('_')
				}
				c += 'a' - 'A'
			}
			b.WriteByte(c)
		}
		parts[i] = b.String()
	}
	return strings.Join(parts, ".")
}

// DefaultConfigAsMap converts the DefaultConfig struct to a map[string]interface{}
// for Koanf's confmap.Provider.
func DefaultConfigAsMap() map[string]interface{} {
	def := DefaultConfig()
	return map[string]interface{}{
		"log.level":  def.Log.Level,
		"log.format": def.Log.Format,
		"log.file":   def.Log.File,

		"database.path": def.Database.Path,

		"capture.ports":         []int{},
		"capture.max_flow_data": def.Capture.MaxFlowData,
		"capture.max_flows":     def.Capture.MaxFlows,
		"capture.flow_ttl":      def.Capture.FlowTTL.String(),

		"output.format":       def.Output.Format,
		"output.only_matched": def.Output.OnlyMatched,
		"output.sqlite":       def.Output.SQLite,
		"output.telemetry":    def.Output.Telemetry,
	}
}

// flagKeys maps command-line flag names to configuration keys.
var flagKeys = map[string]string{
	"log-level":     "log.level",
	"log-format":    "log.format",
	"log-file":      "log.file",
	"db":            "database.path",
	"ports":         "capture.ports",
	"max-flow-data": "capture.max_flow_data",
	"max-flows":     "capture.max_flows",
	"flow-ttl":      "capture.flow_ttl",
	"format":        "output.format",
	"only-matched":  "output.only_matched",
	"sqlite":        "output.sqlite",
	"telemetry":     "output.telemetry",
}

// BindFlags defines the global command-line flags.
func BindFlags(flags *pflag.FlagSet) {
	defaults := DefaultConfig()

	var flagvar bool
	flags.BoolVar(&flagvar, "debug", false, "Enable debug logging")
	flags.String("log-level", defaults.Log.Level, "Log level (trace, debug, info, warn, error)")
	flags.String("log-format", defaults.Log.Format, "Log format (text, json)")
	flags.String("log-file", defaults.Log.File, "Write logs to this file instead of stderr")
	flags.String("db", defaults.Database.Path, "Signature database (p0f.fp or YAML catalog)")
}

// BindCaptureFlags defines flags overriding capture and output settings.
func BindCaptureFlags(flags *pflag.FlagSet) {
	defaults := DefaultConfig()

	flags.IntSlice("ports", nil, "Server ports to fingerprint (default: all)")
	flags.Int("max-flow-data", defaults.Capture.MaxFlowData, "Client bytes buffered per flow")
	flags.Int("max-flows", defaults.Capture.MaxFlows, "Concurrently tracked flows")
	flags.Duration("flow-ttl", defaults.Capture.FlowTTL, "Idle time before a flow is dropped")
	flags.String("format", defaults.Output.Format, "Observation format (text, json)")
	flags.Bool("only-matched", false, "Hide client hellos that matched no signature")
	flags.String("sqlite", "", "Also store observations in this SQLite database")
	flags.String("telemetry", "", "Append match telemetry to this JSONL file")
}
