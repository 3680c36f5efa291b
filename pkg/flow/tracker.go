package flow

import (
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// TrackerConfig bounds the memory used by a Tracker.
type TrackerConfig struct {
	MaxData  int           // client bytes kept per flow
	MaxFlows int           // concurrently tracked flows
	TTL      time.Duration // idle time before a flow is forgotten
}

// DefaultTrackerConfig returns the limits used when none are configured.
func DefaultTrackerConfig() TrackerConfig {
	return TrackerConfig{
		MaxData:  DefaultMaxData,
		MaxFlows: 10000,
		TTL:      30 * time.Second,
	}
}

// Segment is one TCP segment sent by the client.
type Segment struct {
	Key     Key
	Seq     uint32
	SYN     bool
	FIN     bool
	RST     bool
	Payload []byte
	Time    time.Time
}

type tracked struct {
	flow    *Flow
	nextSeq uint32
	synced  bool
}

// Tracker appends in-order client payload to flows keyed by endpoint pair.
// Out-of-order segments are dropped and retransmitted bytes are trimmed;
// nothing is reassembled. A Tracker is not safe for concurrent use.
type Tracker struct {
	cfg    TrackerConfig
	flows  map[Key]*tracked
	logger zerolog.Logger
	full   rate.Sometimes
}

// NewTracker builds a tracker. Zero fields in cfg take their defaults.
func NewTracker(cfg TrackerConfig, logger zerolog.Logger) *Tracker {
	def := DefaultTrackerConfig()
	if cfg.MaxData <= 0 {
		cfg.MaxData = def.MaxData
	}
	if cfg.MaxFlows <= 0 {
		cfg.MaxFlows = def.MaxFlows
	}
	if cfg.TTL <= 0 {
		cfg.TTL = def.TTL
	}
	return &Tracker{
		cfg:    cfg,
		flows:  make(map[Key]*tracked, 1024),
		logger: logger.With().Str("component", "flow.tracker").Logger(),
		full:   rate.Sometimes{First: 1, Interval: 10 * time.Second},
	}
}

// Add records a client segment. It returns the flow and whether new payload
// bytes were appended to it. Decided flows keep receiving timestamps but no
// data. The returned flow is nil when the table is full.
func (t *Tracker) Add(seg Segment) (*Flow, bool) {
	tr, ok := t.flows[seg.Key]
	if !ok {
		if len(t.flows) >= t.cfg.MaxFlows {
			t.Expire(seg.Time)
		}
		if len(t.flows) >= t.cfg.MaxFlows {
			t.full.Do(func() {
				t.logger.Warn().Int("max_flows", t.cfg.MaxFlows).Msg("flow table full, dropping new flows")
			})
			return nil, false
		}
		tr = &tracked{flow: New(seg.Key, t.cfg.MaxData)}
		tr.flow.LastSeen = seg.Time
		t.flows[seg.Key] = tr
	}

	if seg.SYN && tr.flow.State() != Undetermined {
		// a new connection reusing the endpoint pair
		tr.flow = New(seg.Key, t.cfg.MaxData)
	}

	f := tr.flow
	f.LastSeen = seg.Time

	if seg.SYN {
		tr.nextSeq = seg.Seq + 1
		tr.synced = true
		f.Request = f.Request[:0]
	}

	if len(seg.Payload) == 0 || f.State() != Undetermined {
		return f, false
	}

	if !tr.synced {
		tr.nextSeq = seg.Seq
		tr.synced = true
	}

	payload := seg.Payload
	switch diff := int32(seg.Seq - tr.nextSeq); {
	case diff > 0:
		t.logger.Trace().Stringer("flow", seg.Key).Int32("gap", diff).Msg("out of order segment dropped")
		return f, false
	case diff < 0:
		seen := int(-diff)
		if seen >= len(payload) {
			return f, false
		}
		payload = payload[seen:]
	}

	tr.nextSeq += uint32(len(payload))
	return f, f.Append(payload, seg.Time) > 0
}

// Lookup returns the flow tracked under key, or nil.
func (t *Tracker) Lookup(key Key) *Flow {
	if tr, ok := t.flows[key]; ok {
		return tr.flow
	}
	return nil
}

// Remove forgets a flow.
func (t *Tracker) Remove(key Key) {
	delete(t.flows, key)
}

// Expire forgets flows idle for longer than the configured TTL and returns
// how many were dropped.
func (t *Tracker) Expire(now time.Time) int {
	n := 0
	for k, tr := range t.flows {
		if now.Sub(tr.flow.LastSeen) > t.cfg.TTL {
			delete(t.flows, k)
			n++
		}
	}
	return n
}

// Len returns the number of tracked flows.
func (t *Tracker) Len() int { return len(t.flows) }
