// Package output carries classification results from the engine to the
// renderers and stores that consume them.
package output

import "time"

// ModuleSSLRequest names observations produced from client hellos.
const ModuleSSLRequest = "ssl request"

// Observation is one classified SSL/TLS client hello.
type Observation struct {
	Module string    `json:"module"`
	Time   time.Time `json:"time"`
	RunID  string    `json:"run_id,omitempty"`
	Client string    `json:"client"`
	Server string    `json:"server"`

	// Kind is "app" or "os"; empty when nothing matched.
	Kind     string `json:"kind,omitempty"`
	Label    string `json:"label,omitempty"`
	Generic  bool   `json:"generic,omitempty"`
	MatchSig string `json:"match_sig,omitempty"`

	// Drift is the absolute clock difference in seconds. Nil when the
	// client timestamp is not a usable wall clock.
	Drift *int64 `json:"drift,omitempty"`

	RawSig string `json:"raw_sig"`
}

// Matched reports whether the observation carries a classification.
func (o Observation) Matched() bool { return o.Kind != "" }

// Sink receives observations.
type Sink interface {
	Emit(obs Observation)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(obs Observation)

// Emit calls f(obs).
func (f SinkFunc) Emit(obs Observation) { f(obs) }

// Discard drops every observation.
var Discard Sink = SinkFunc(func(Observation) {})
