// Package engine decides whether a flow carries an SSL/TLS client hello,
// dissects it, looks the signature up and emits the classification.
package engine

import (
	"encoding/binary"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/vulntor/sslprint/pkg/dissect"
	"github.com/vulntor/sslprint/pkg/fingerprint"
	"github.com/vulntor/sslprint/pkg/flow"
	"github.com/vulntor/sslprint/pkg/output"
	"github.com/vulntor/sslprint/pkg/signature"
)

// sniffLen is how many leading bytes protocol detection looks at.
const sniffLen = 6

// Verdict is the outcome of one Process call.
type Verdict int

const (
	// VerdictNeedMore means the flow is undecided and more client bytes
	// may settle it.
	VerdictNeedMore Verdict = iota
	// VerdictExhausted means the flow is undecided but its buffer is full.
	VerdictExhausted
	// VerdictIgnored means the direction is not fingerprinted.
	VerdictIgnored
	// VerdictDecided means the flow had been decided by an earlier call.
	VerdictDecided
	// VerdictNotSSL means this call rejected the flow.
	VerdictNotSSL
	// VerdictSSL means this call fingerprinted the flow.
	VerdictSSL
)

var verdictNames = [...]string{"need-more", "exhausted", "ignored", "decided", "not-ssl", "ssl"}

func (v Verdict) String() string {
	if v < 0 || int(v) >= len(verdictNames) {
		return "unknown"
	}
	return verdictNames[v]
}

// NeedMore reports whether the caller should call Process again once more
// client data arrived.
func (v Verdict) NeedMore() bool { return v == VerdictNeedMore }

// Result describes a fingerprinted flow.
type Result struct {
	Proto       string // "sslv2" or "sslv3"
	Signature   *signature.Signature
	Match       *fingerprint.Record
	Observation output.Observation
}

// Engine runs the per-flow decision procedure. Process is synchronous and
// keeps no state besides what it stores on the flow, so one Engine can
// serve many flows. The database must not change while the engine uses it.
type Engine struct {
	db        *fingerprint.Database
	sink      output.Sink
	logger    zerolog.Logger
	runID     string
	telemetry *fingerprint.TelemetryWriter
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithRunID tags observations with id instead of a random UUID.
func WithRunID(id string) Option {
	return func(e *Engine) { e.runID = id }
}

// WithTelemetry records every database lookup to w.
func WithTelemetry(w *fingerprint.TelemetryWriter) Option {
	return func(e *Engine) { e.telemetry = w }
}

// New creates an engine matching against db and emitting to sink. A nil
// sink discards observations.
func New(db *fingerprint.Database, sink output.Sink, opts ...Option) *Engine {
	if sink == nil {
		sink = output.Discard
	}
	e := &Engine{
		db:     db,
		sink:   sink,
		logger: log.Logger,
		runID:  uuid.NewString(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With().Str("component", "engine").Logger()
	return e
}

// RunID returns the identifier stamped on observations.
func (e *Engine) RunID() string { return e.runID }

// Process examines the client bytes buffered on f. It is called after each
// new segment and returns without blocking.
func (e *Engine) Process(f *flow.Flow, dir flow.Direction) (Verdict, *Result) {
	if f.State() != flow.Undetermined {
		return VerdictDecided, nil
	}

	// server hellos are not fingerprinted
	if dir != flow.ToServer {
		return VerdictIgnored, nil
	}

	req := f.Request
	if len(req) < sniffLen {
		return e.waitFor(f), nil
	}

	var (
		sig   *signature.Signature
		proto string
		err   error
	)

	switch {
	case looksLikeV2(req):
		need := 2 + int(binary.BigEndian.Uint16(req)&0x7fff)
		if len(req) < need {
			return e.waitFor(f), nil
		}
		proto = "sslv2"
		sig, err = dissect.ParseV2(req[:need])
		if sig != nil {
			sig.Flags |= signature.FlagV2
		}

	case looksLikeV3(req):
		fragLen := int(binary.BigEndian.Uint16(req[3:5]))
		if len(req) < dissect.RecordHeaderLen+fragLen {
			return e.waitFor(f), nil
		}
		proto = "sslv3"
		recordVersion := binary.BigEndian.Uint16(req[1:3])
		fragment := req[dissect.RecordHeaderLen : dissect.RecordHeaderLen+fragLen]
		sig, err = dissect.ParseV3(fragment, recordVersion, uint32(f.LastSeen.Unix()))

	default:
		e.logger.Debug().Stringer("flow", f.Key).Msg("does not look like SSLv2 nor SSLv3")
		f.Decide(flow.ConfirmedNotSSL)
		return VerdictNotSSL, nil
	}

	if err != nil {
		e.logger.Debug().Err(err).Stringer("flow", f.Key).Str("proto", proto).Msg("dissection failed")
		f.Decide(flow.ConfirmedNotSSL)
		return VerdictNotSSL, nil
	}

	f.Decide(flow.ConfirmedSSL)
	e.logger.Debug().
		Str("client", f.Key.Client.Addr().String()).
		Time("last_seen", f.LastSeen.UTC()).
		Str("proto", proto).
		Msg("client hello fingerprinted")

	res := e.classify(f, sig)
	res.Proto = proto
	return VerdictSSL, res
}

func (e *Engine) waitFor(f *flow.Flow) Verdict {
	if f.CanGetMore() {
		return VerdictNeedMore
	}
	return VerdictExhausted
}

// looksLikeV2 matches an SSLv2 record header: top bit set, a length that
// covers the CLIENT-HELLO header, message type 1 and a 3.x or 0.2 version.
func looksLikeV2(b []byte) bool {
	msgLen := binary.BigEndian.Uint16(b)
	// the length field does not count itself
	if msgLen&0x8000 == 0 || int(msgLen&0x7fff) < dissect.V2HeaderLen-2 {
		return false
	}
	if b[2] != dissect.V2MsgClientHello {
		return false
	}
	major, minor := b[3], b[4]
	return (major == 3 && minor < 4) || (major == 0 && minor == 2)
}

// looksLikeV3 matches an SSLv3/TLS handshake record holding a ClientHello.
func looksLikeV3(b []byte) bool {
	if b[0] != dissect.ContentTypeHandshake || b[1] != 3 || b[2] >= 4 {
		return false
	}
	fragLen := binary.BigEndian.Uint16(b[3:5])
	return fragLen > 3 && fragLen < dissect.MaxFragmentLen && b[5] == dissect.MsgClientHello
}

func (e *Engine) classify(f *flow.Flow, sig *signature.Signature) *Result {
	obs := e.db.Match(sig)

	o := output.Observation{
		Module: output.ModuleSSLRequest,
		Time:   f.LastSeen,
		RunID:  e.runID,
		Client: f.Key.Client.String(),
		Server: f.Key.Server.String(),
		RawSig: sig.String(),
	}
	if o.Time.IsZero() {
		o.Time = time.Now()
	}

	if obs.Matched != nil {
		d := e.db.Describe(obs.Matched)
		o.Kind = d.Kind
		o.Label = d.Label()
		o.Generic = d.Generic
		o.MatchSig = obs.Matched.Signature.String()
	}

	if !sig.Flags.Has(signature.FlagTime) && !sig.Flags.Has(signature.FlagSTime) {
		drift := sig.Drift
		if drift < 0 {
			drift = -drift
		}
		o.Drift = &drift
	}

	e.record(obs, o)
	e.sink.Emit(o)

	return &Result{Signature: sig, Match: obs.Matched, Observation: o}
}

func (e *Engine) record(obs fingerprint.Observed, o output.Observation) {
	if e.telemetry == nil {
		return
	}
	var err error
	if obs.Matched != nil {
		err = e.telemetry.WriteSuccess(e.db, obs, o.RunID, o.Client, o.Server)
	} else {
		err = e.telemetry.WriteNoMatch(obs, o.RunID, o.Client, o.Server)
	}
	if err != nil {
		e.logger.Warn().Err(err).Msg("telemetry write failed")
	}
}
