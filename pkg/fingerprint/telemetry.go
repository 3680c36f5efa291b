package fingerprint

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// MatchEvent records one database lookup for telemetry.
type MatchEvent struct {
	Timestamp time.Time `json:"timestamp"`
	RunID     string    `json:"run_id,omitempty"`
	Client    string    `json:"client"`
	Server    string    `json:"server"`
	RawSig    string    `json:"raw_sig"`
	MatchType string    `json:"match_type"` // "success" or "no_match"
	Kind      string    `json:"kind,omitempty"`
	Label     string    `json:"label,omitempty"`
	MatchSig  string    `json:"match_sig,omitempty"`
	Line      int       `json:"line,omitempty"`
	Generic   bool      `json:"generic,omitempty"`
}

// TelemetryWriter appends match events to a JSONL file. It is safe for
// concurrent use.
type TelemetryWriter struct {
	filePath string
	file     *os.File
	encoder  *json.Encoder
	mu       sync.Mutex
	enabled  bool
}

// NewTelemetryWriter creates a writer appending to filePath. An empty path
// yields a disabled writer.
func NewTelemetryWriter(filePath string) (*TelemetryWriter, error) {
	if filePath == "" {
		return &TelemetryWriter{enabled: false}, nil
	}

	file, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open telemetry file: %w", err)
	}

	return &TelemetryWriter{
		filePath: filePath,
		file:     file,
		encoder:  json.NewEncoder(file),
		enabled:  true,
	}, nil
}

// Write appends one event.
func (w *TelemetryWriter) Write(event MatchEvent) error {
	if !w.enabled {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return fmt.Errorf("telemetry writer closed")
	}
	if err := w.encoder.Encode(event); err != nil {
		return fmt.Errorf("failed to write telemetry event: %w", err)
	}

	return nil
}

// WriteSuccess records a lookup that found obs.Matched.
func (w *TelemetryWriter) WriteSuccess(db *Database, obs Observed, runID, client, server string) error {
	d := db.Describe(obs.Matched)
	return w.Write(MatchEvent{
		Timestamp: time.Now(),
		RunID:     runID,
		Client:    client,
		Server:    server,
		RawSig:    obs.Signature.String(),
		MatchType: "success",
		Kind:      d.Kind,
		Label:     d.Label(),
		MatchSig:  obs.Matched.Signature.String(),
		Line:      obs.Matched.Line,
		Generic:   obs.Matched.Generic,
	})
}

// WriteNoMatch records a lookup that matched nothing.
func (w *TelemetryWriter) WriteNoMatch(obs Observed, runID, client, server string) error {
	return w.Write(MatchEvent{
		Timestamp: time.Now(),
		RunID:     runID,
		Client:    client,
		Server:    server,
		RawSig:    obs.Signature.String(),
		MatchType: "no_match",
	})
}

// Close closes the telemetry file.
func (w *TelemetryWriter) Close() error {
	if !w.enabled || w.file == nil {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.file.Close(); err != nil {
		return fmt.Errorf("failed to close telemetry file: %w", err)
	}

	w.file = nil
	return nil
}

// IsEnabled returns true if telemetry is enabled.
func (w *TelemetryWriter) IsEnabled() bool {
	return w.enabled
}
