// Package surface defines output rendering for audit summaries.
// Implementations handle different output targets: terminal, JSON, Markdown.
package surface

import (
	"fmt"
	"io"

	"github.com/crawlscope/crawlscope/pkg/audit"
)

// Renderer produces formatted output from an AuditSummary.
type Renderer interface {
	// Render writes the formatted summary to the writer.
	Render(w io.Writer, summary *audit.AuditSummary) error
}

// ForFormat returns the renderer for an output format name.
func ForFormat(format string) (Renderer, error) {
	switch format {
	case "", "text":
		return &TerminalRenderer{}, nil
	case "json":
		return &JSONRenderer{}, nil
	case "markdown", "md":
		return &MarkdownRenderer{}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q (want text, json or markdown)", format)
	}
}
