package subscribers

import (
	"encoding/json"
	"io"
	"sync"

	"github.com/rs/zerolog"

	"github.com/vulntor/sslprint/pkg/output"
)

// JSON writes one JSON object per observation.
type JSON struct {
	mu      sync.Mutex
	encoder *json.Encoder
	logger  zerolog.Logger
}

// NewJSON creates a JSON lines renderer writing to w.
func NewJSON(w io.Writer, logger zerolog.Logger) *JSON {
	return &JSON{
		encoder: json.NewEncoder(w),
		logger:  logger.With().Str("component", "output.json").Logger(),
	}
}

// Name returns the subscriber identifier.
func (j *JSON) Name() string { return "json-subscriber" }

// ShouldHandle accepts every observation.
func (j *JSON) ShouldHandle(output.Observation) bool { return true }

// Handle encodes obs on its own line.
func (j *JSON) Handle(obs output.Observation) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.encoder.Encode(obs); err != nil {
		j.logger.Error().Err(err).Msg("failed to write observation")
	}
}
