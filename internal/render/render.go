// Package render formats command results as text, JSON or tables.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

const (
	tabWriterMinWidth = 0
	tabWriterTabWidth = 2
	tabWriterPadding  = 2
	tabWriterFlags    = 0
)

// Format selects how a result is written.
type Format string

// Supported formats.
const (
	FormatText  Format = "text"
	FormatJSON  Format = "json"
	FormatTable Format = "table"
)

// ParseFormat validates a --format value. Empty means text.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON, FormatTable:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported format %q (want text, json or table)", s)
	}
}

// Field is one labelled line of a text summary.
type Field struct {
	Label string
	Value string
}

// JSON writes the supplied value as indented JSON.
func JSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

// Summary writes aligned "Label : value" lines.
func Summary(w io.Writer, fields []Field) error {
	width := 0
	for _, f := range fields {
		width = max(width, len(f.Label))
	}
	for _, f := range fields {
		if _, err := fmt.Fprintf(w, "%-*s : %s\n", width, f.Label, f.Value); err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
	}
	return nil
}

// List writes a heading followed by " - item" lines, showing at most limit
// items and a trailing "... and N more". A limit of zero shows everything.
func List(w io.Writer, heading string, items []string, limit int) error {
	if _, err := fmt.Fprintln(w, heading); err != nil {
		return fmt.Errorf("write list: %w", err)
	}
	shown := items
	if limit > 0 && len(items) > limit {
		shown = items[:limit]
	}
	for _, item := range shown {
		if _, err := fmt.Fprintf(w, " - %s\n", item); err != nil {
			return fmt.Errorf("write list: %w", err)
		}
	}
	if rest := len(items) - len(shown); rest > 0 {
		if _, err := fmt.Fprintf(w, " ... and %d more\n", rest); err != nil {
			return fmt.Errorf("write list: %w", err)
		}
	}
	return nil
}

// Table renders the provided headers and rows via a tabwriter.
func Table(w io.Writer, headers []string, rows [][]string) error {
	tw := tabwriter.NewWriter(w, tabWriterMinWidth, tabWriterTabWidth, tabWriterPadding, ' ', tabWriterFlags)
	if len(headers) > 0 {
		if err := writeRow(tw, headers); err != nil {
			return err
		}
	}
	for _, row := range rows {
		if err := writeRow(tw, row); err != nil {
			return err
		}
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("flush table: %w", err)
	}
	return nil
}

func writeRow(w io.Writer, columns []string) error {
	if len(columns) == 0 {
		if _, err := fmt.Fprintln(w); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
		return nil
	}

	line := strings.Join(columns, "\t")
	if _, err := fmt.Fprintln(w, line); err != nil {
		return fmt.Errorf("write row: %w", err)
	}
	return nil
}
