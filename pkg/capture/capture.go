// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

// Package capture replays recorded traffic through the flow tracker and the
// fingerprint engine.
package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/netip"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/vulntor/sslprint/pkg/engine"
	"github.com/vulntor/sslprint/pkg/flow"
)

// ctxCheckEvery is how many packets are read between context checks.
const ctxCheckEvery = 256

// Processor decides flows. *engine.Engine implements it.
type Processor interface {
	Process(f *flow.Flow, dir flow.Direction) (engine.Verdict, *engine.Result)
}

// Config controls a Replayer.
type Config struct {
	// Ports lists server ports. Traffic to them is client data and traffic
	// from them is server data; other traffic is skipped. When empty every
	// port is looked at and the client is whoever sent the SYN.
	Ports []uint16

	Tracker flow.TrackerConfig

	// ExpireEvery is how often, in capture time, idle flows are dropped.
	ExpireEvery time.Duration
}

// Stats summarizes one replay.
type Stats struct {
	Packets  int // frames read
	Segments int // TCP segments decoded
	Hellos   int // flows fingerprinted
	NotSSL   int // flows rejected
	Dropped  int // client segments refused by a full flow table
	Expired  int // idle flows forgotten
}

// Replayer feeds recorded packets to a Processor.
type Replayer struct {
	cfg    Config
	ports  map[uint16]struct{}
	proc   Processor
	logger zerolog.Logger
}

// NewReplayer creates a replayer handing flows to proc.
func NewReplayer(cfg Config, proc Processor, logger zerolog.Logger) *Replayer {
	if cfg.ExpireEvery <= 0 {
		cfg.ExpireEvery = 10 * time.Second
	}
	ports := make(map[uint16]struct{}, len(cfg.Ports))
	for _, p := range cfg.Ports {
		ports[p] = struct{}{}
	}
	return &Replayer{
		cfg:    cfg,
		ports:  ports,
		proc:   proc,
		logger: logger.With().Str("component", "capture").Logger(),
	}
}

// Replay reads a pcap or pcapng stream until EOF or until ctx is done.
func Replay(ctx context.Context, r io.Reader, cfg Config, proc Processor) (Stats, error) {
	return NewReplayer(cfg, proc, log.Logger).Replay(ctx, r)
}

// Replay reads a pcap or pcapng stream until EOF or until ctx is done. A
// truncated final packet ends the replay without an error.
func (rp *Replayer) Replay(ctx context.Context, r io.Reader) (Stats, error) {
	var stats Stats

	src, err := openSource(r)
	if err != nil {
		return stats, err
	}
	dec, err := newDecoder(src.LinkType())
	if err != nil {
		return stats, err
	}

	tracker := flow.NewTracker(rp.cfg.Tracker, rp.logger)
	var lastExpire time.Time

	for {
		if stats.Packets%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return stats, err
			}
		}

		data, ci, err := src.ReadPacketData()
		if errors.Is(err, io.EOF) {
			break
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			rp.logger.Warn().Int("packets", stats.Packets).Msg("capture ends with a truncated packet")
			break
		}
		if err != nil {
			return stats, fmt.Errorf("capture: read packet %d: %w", stats.Packets+1, err)
		}
		stats.Packets++

		rp.handle(dec, tracker, data, ci.Timestamp, &stats)

		if lastExpire.IsZero() {
			lastExpire = ci.Timestamp
		} else if ci.Timestamp.Sub(lastExpire) >= rp.cfg.ExpireEvery {
			stats.Expired += tracker.Expire(ci.Timestamp)
			lastExpire = ci.Timestamp
		}
	}

	rp.logger.Info().
		Int("packets", stats.Packets).
		Int("segments", stats.Segments).
		Int("hellos", stats.Hellos).
		Int("not_ssl", stats.NotSSL).
		Int("dropped", stats.Dropped).
		Msg("replay finished")
	return stats, nil
}

func (rp *Replayer) handle(dec *decoder, tracker *flow.Tracker, data []byte, ts time.Time, stats *Stats) {
	src, dst, ok := dec.decode(data)
	if !ok {
		return
	}
	stats.Segments++
	tcp := &dec.tcp

	dir, ok := rp.direction(tracker, src, dst, tcp.SYN, tcp.ACK)
	if !ok {
		return
	}

	if dir == flow.ToClient {
		key := flow.Key{Client: dst, Server: src}
		if f := tracker.Lookup(key); f != nil {
			rp.proc.Process(f, flow.ToClient)
			if tcp.FIN || tcp.RST {
				tracker.Remove(key)
			}
		}
		return
	}

	key := flow.Key{Client: src, Server: dst}
	f, grew := tracker.Add(flow.Segment{
		Key:     key,
		Seq:     tcp.Seq,
		SYN:     tcp.SYN,
		FIN:     tcp.FIN,
		RST:     tcp.RST,
		Payload: tcp.Payload,
		Time:    ts,
	})
	if f == nil {
		stats.Dropped++
		return
	}

	if grew {
		switch v, _ := rp.proc.Process(f, flow.ToServer); v {
		case engine.VerdictSSL:
			stats.Hellos++
			f.Request = nil
		case engine.VerdictNotSSL:
			stats.NotSSL++
			f.Request = nil
		}
	}

	if tcp.FIN || tcp.RST {
		tracker.Remove(key)
	}
}

// direction tells whether src is the client of the connection.
func (rp *Replayer) direction(tracker *flow.Tracker, src, dst netip.AddrPort, syn, ack bool) (flow.Direction, bool) {
	if len(rp.ports) > 0 {
		if _, ok := rp.ports[dst.Port()]; ok {
			return flow.ToServer, true
		}
		if _, ok := rp.ports[src.Port()]; ok {
			return flow.ToClient, true
		}
		return flow.ToServer, false
	}

	switch {
	case syn && !ack:
		return flow.ToServer, true
	case syn && ack:
		return flow.ToClient, true
	case tracker.Lookup(flow.Key{Client: src, Server: dst}) != nil:
		return flow.ToServer, true
	case tracker.Lookup(flow.Key{Client: dst, Server: src}) != nil:
		return flow.ToClient, true
	}

	// mid-stream without a handshake: ephemeral client ports sit above
	// service ports
	if src.Port() > dst.Port() {
		return flow.ToServer, true
	}
	return flow.ToClient, true
}
