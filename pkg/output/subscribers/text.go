// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package subscribers

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/vulntor/sslprint/pkg/output"
)

var (
	// Frame and field names - gray
	frameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244"))

	// Matched label - bright green
	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10")).
			Bold(true)

	// No match - yellow
	unknownStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11"))

	// Signatures - cyan
	sigStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))
)

// Text renders observations as framed blocks, one field per line:
//
//	.-[ 192.0.2.10/51514 -> 198.51.100.7/443 (ssl request) ]-
//	|
//	| client   = 192.0.2.10/51514
//	| app      = Chrome 30 or newer
//	| match_sig = 3.3:c02b,...:ver
//	| drift    = 2
//	| raw_sig  = 3.3:c02b,...:ver
//	|
//	`----
type Text struct {
	writer       io.Writer
	colorEnabled bool
	onlyMatched  bool
	mu           sync.Mutex
}

// TextOption configures a Text subscriber.
type TextOption func(*Text)

// WithColor toggles lipgloss styling.
func WithColor(enabled bool) TextOption {
	return func(t *Text) { t.colorEnabled = enabled }
}

// OnlyMatched skips observations without a classification.
func OnlyMatched() TextOption {
	return func(t *Text) { t.onlyMatched = true }
}

// NewText creates a text renderer writing to w.
func NewText(w io.Writer, opts ...TextOption) *Text {
	t := &Text{writer: w, colorEnabled: true}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Name returns the subscriber identifier.
func (t *Text) Name() string { return "text-subscriber" }

// ShouldHandle filters unmatched observations when OnlyMatched is set.
func (t *Text) ShouldHandle(obs output.Observation) bool {
	return !t.onlyMatched || obs.Matched()
}

// Handle writes one block.
func (t *Text) Handle(obs output.Observation) {
	var b strings.Builder

	client, server := endpoint(obs.Client), endpoint(obs.Server)
	b.WriteString(t.style(frameStyle, fmt.Sprintf(".-[ %s -> %s (%s) ]-", client, server, obs.Module)))
	b.WriteString("\n")
	b.WriteString(t.style(frameStyle, "|"))
	b.WriteString("\n")

	t.field(&b, "client", client, nil)
	if obs.Matched() {
		label := obs.Label
		if obs.Generic {
			label += " (generic)"
		}
		t.field(&b, obs.Kind, label, &labelStyle)
		t.field(&b, "match_sig", obs.MatchSig, &sigStyle)
	} else {
		t.field(&b, "app", "???", &unknownStyle)
		t.field(&b, "match_sig", "none", &unknownStyle)
	}
	if obs.Drift != nil {
		t.field(&b, "drift", strconv.FormatInt(*obs.Drift, 10), nil)
	}
	t.field(&b, "raw_sig", obs.RawSig, &sigStyle)

	b.WriteString(t.style(frameStyle, "|"))
	b.WriteString("\n")
	b.WriteString(t.style(frameStyle, "`----"))
	b.WriteString("\n\n")

	t.mu.Lock()
	defer t.mu.Unlock()
	_, _ = io.WriteString(t.writer, b.String())
}

func (t *Text) field(b *strings.Builder, name, value string, style *lipgloss.Style) {
	b.WriteString(t.style(frameStyle, fmt.Sprintf("| %-8s = ", name)))
	if style != nil {
		value = t.style(*style, value)
	}
	b.WriteString(value)
	b.WriteString("\n")
}

func (t *Text) style(s lipgloss.Style, v string) string {
	if !t.colorEnabled {
		return v
	}
	return s.Render(v)
}

// endpoint renders "addr:port" the p0f way, "addr/port".
func endpoint(addrPort string) string {
	i := strings.LastIndexByte(addrPort, ':')
	if i < 0 {
		return addrPort
	}
	host := strings.TrimSuffix(strings.TrimPrefix(addrPort[:i], "["), "]")
	return host + "/" + addrPort[i+1:]
}
