// pkg/config/types.go
package config

import "time"

// Config is the root configuration structure for sslprint.
type Config struct {
	Log      LogConfig      `description:"Logging configuration" koanf:"log"`
	Database DatabaseConfig `description:"Signature database configuration" koanf:"database"`
	Capture  CaptureConfig  `description:"Capture replay configuration" koanf:"capture"`
	Output   OutputConfig   `description:"Observation output configuration" koanf:"output"`
}

// LogConfig holds logging related configuration.
type LogConfig struct {
	Level  string `description:"Log level: trace | debug | info | warn | error" koanf:"level" validate:"oneof=trace debug info warn error fatal panic disabled"`
	Format string `description:"Log format: json | text" koanf:"format" validate:"oneof=json text"`
	File   string `description:"Log file path" koanf:"file"` // empty logs to stderr
}

// DatabaseConfig selects the signature database.
type DatabaseConfig struct {
	// Path is a p0f.fp style file or a YAML catalog. Empty uses the synced
	// cache, then the built-in catalog.
	Path string `description:"Signature database path" koanf:"path"`
}

// CaptureConfig bounds flow tracking during replay.
type CaptureConfig struct {
	Ports       []int         `description:"Server ports to fingerprint (empty: all)" koanf:"ports" validate:"dive,min=1,max=65535"`
	MaxFlowData int           `description:"Client bytes buffered per flow" koanf:"max_flow_data" validate:"min=64"`
	MaxFlows    int           `description:"Concurrently tracked flows" koanf:"max_flows" validate:"min=1"`
	FlowTTL     time.Duration `description:"Idle time before a flow is dropped" koanf:"flow_ttl" validate:"min=0"`
}

// OutputConfig selects where observations go.
type OutputConfig struct {
	Format      string `description:"Observation format: text | json" koanf:"format" validate:"oneof=text json"`
	OnlyMatched bool   `description:"Hide hellos that matched no signature" koanf:"only_matched"`
	SQLite      string `description:"SQLite database to store observations in" koanf:"sqlite"`
	Telemetry   string `description:"JSONL file receiving match telemetry" koanf:"telemetry"`
}
