// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

// Package format renders command results as aligned tables or JSON.
package format

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
)

// OutputMode selects how results are rendered.
type OutputMode string

const (
	ModeJSON  OutputMode = "json"
	ModeTable OutputMode = "table"
)

var (
	headerStyle  = color.New(color.Bold)
	summaryStyle = color.New(color.FgGreen)
	errorStyle   = color.New(color.FgRed)
	hintStyle    = color.New(color.FgYellow)
)

// Printer writes results to stdout and diagnostics to stderr. In JSON mode
// stdout only ever carries JSON documents.
type Printer struct {
	stdout, stderr io.Writer
	mode           OutputMode
	quiet          bool
	color          bool
}

// New returns a Printer. quiet drops summaries and hints; color enables
// ANSI styling of table headers, summaries and errors.
func New(stdout, stderr io.Writer, mode OutputMode, quiet, color bool) *Printer {
	return &Printer{stdout: stdout, stderr: stderr, mode: mode, quiet: quiet, color: color}
}

func (p *Printer) Mode() OutputMode { return p.mode }

func (p *Printer) paint(style *color.Color, s string) string {
	if !p.color {
		return s
	}
	return style.Sprint(s)
}

// PrintJSON writes data as indented JSON.
func (p *Printer) PrintJSON(data any) error {
	enc := json.NewEncoder(p.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// PrintTable writes rows under upper-cased headers. In JSON mode each row
// becomes an object keyed by the lower-cased header; missing cells are
// omitted and an empty table is [].
func (p *Printer) PrintTable(headers []string, rows [][]string) error {
	if p.mode == ModeJSON {
		return p.PrintJSON(tableObjects(headers, rows))
	}

	var buf bytes.Buffer
	tw := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	upper := make([]string, len(headers))
	for i, h := range headers {
		upper[i] = strings.ToUpper(h)
	}
	fmt.Fprintln(tw, strings.Join(upper, "\t"))
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	// color after alignment so escape codes do not count as width
	head, body, _ := strings.Cut(buf.String(), "\n")
	_, err := fmt.Fprintf(p.stdout, "%s\n%s", p.paint(headerStyle, head), body)
	return err
}

func tableObjects(headers []string, rows [][]string) []map[string]string {
	items := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		item := make(map[string]string, len(headers))
		for i, h := range headers {
			if i < len(row) {
				item[strings.ToLower(h)] = row[i]
			}
		}
		items = append(items, item)
	}
	return items
}

// PrintSummary writes a closing line. It goes to stderr in JSON mode and
// nowhere when quiet.
func (p *Printer) PrintSummary(message string) error {
	if p.quiet {
		return nil
	}
	if p.mode == ModeJSON {
		_, err := fmt.Fprintln(p.stderr, message)
		return err
	}
	_, err := fmt.Fprintln(p.stdout, p.paint(summaryStyle, message))
	return err
}

// PrintError reports err as {"success":false,"error":...} on stdout in JSON
// mode and as an "Error:" line on stderr otherwise.
func (p *Printer) PrintError(err error) error {
	if err == nil {
		return nil
	}
	if p.mode == ModeJSON {
		return p.PrintJSON(map[string]any{"success": false, "error": err.Error()})
	}
	_, werr := fmt.Fprintln(p.stderr, p.paint(errorStyle, "Error: "+err.Error()))
	return werr
}

// PrintSuggestions writes hints under an error, in table mode only.
func (p *Printer) PrintSuggestions(hints []string) error {
	if p.quiet || p.mode == ModeJSON {
		return nil
	}
	for _, h := range hints {
		if _, err := fmt.Fprintln(p.stderr, p.paint(hintStyle, "  → "+h)); err != nil {
			return err
		}
	}
	return nil
}

// ValidateMode rejects anything but json and table.
func ValidateMode(mode string) error {
	switch OutputMode(strings.ToLower(mode)) {
	case ModeJSON, ModeTable:
		return nil
	}
	return fmt.Errorf("invalid output mode: %s (must be 'json' or 'table')", mode)
}

// ParseMode maps "json" (any case) to ModeJSON and everything else to
// ModeTable.
func ParseMode(mode string) OutputMode {
	if strings.EqualFold(mode, string(ModeJSON)) {
		return ModeJSON
	}
	return ModeTable
}
