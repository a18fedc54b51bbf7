// Package render formats a digest report for the terminal, the clipboard or
// another program.
package render

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/naka-gawa/github-digest/internal/domain"
)

// Renderer writes a report to w.
type Renderer interface {
	Render(w io.Writer, r *domain.Report) error
}

// Options tune the human-readable renderers.
type Options struct {
	Color bool
}

// Formats lists the accepted format names.
var Formats = []string{"text", "table", "json", "yaml"}

// New returns the renderer for format.
func New(format string, opts Options) (Renderer, error) {
	switch format {
	case "text":
		return NewText(opts), nil
	case "table":
		return Table{}, nil
	case "json":
		return JSON{}, nil
	case "yaml":
		return YAML{}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q: use one of %v", format, Formats)
	}
}

// JSON renders the report as indented JSON.
type JSON struct{}

func (JSON) Render(w io.Writer, r *domain.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("failed to marshal report to JSON: %w", err)
	}
	return nil
}

// YAML renders the report as YAML.
type YAML struct{}

func (YAML) Render(w io.Writer, r *domain.Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("failed to marshal report to YAML: %w", err)
	}
	return enc.Close()
}

// ticketLabel renders "CHE-42 Title", or the bare id without a title.
func ticketLabel(t *domain.Ticket) string {
	if t == nil {
		return ""
	}
	if t.Title == nil {
		return t.ID
	}
	return t.ID + " " + *t.Title
}
