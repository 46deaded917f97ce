package surface

import (
	"fmt"
	"io"
	"strings"

	"github.com/crawlscope/crawlscope/pkg/audit"
	"github.com/crawlscope/crawlscope/pkg/scoring"
)

// MarkdownRenderer produces a shareable Markdown report.
type MarkdownRenderer struct {
	// MaxIssueTypes caps the issue table. Zero means 10.
	MaxIssueTypes int
}

func (r *MarkdownRenderer) Render(w io.Writer, summary *audit.AuditSummary) error {
	_, err := io.WriteString(w, r.Build(summary))
	return err
}

// Build returns the Markdown report for a summary.
func (r *MarkdownRenderer) Build(summary *audit.AuditSummary) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("## Crawlscope: Grade %s (Score %d)\n\n", summary.Grade(), summary.Score))
	sb.WriteString(fmt.Sprintf("Site: %s  \nAudited: %s\n\n", summary.SiteURL, summary.AuditDate))

	t := summary.Summary
	sb.WriteString("### Checks\n\n")
	sb.WriteString("| Outcome | Count |\n|---------|-------|\n")
	sb.WriteString(fmt.Sprintf("| URLs checked | %d |\n", summary.TotalURLsChecked))
	sb.WriteString(fmt.Sprintf("| Critical | %d |\n", t.CriticalIssues))
	sb.WriteString(fmt.Sprintf("| Warnings | %d |\n", t.Warnings))
	sb.WriteString(fmt.Sprintf("| Passed | %d |\n", t.Passed))
	sb.WriteString("\n")

	rows := summary.Prioritized()
	if len(rows) == 0 {
		sb.WriteString("No open issues.\n")
		return sb.String()
	}

	limit := r.MaxIssueTypes
	if limit <= 0 {
		limit = 10
	}

	sb.WriteString("### Top issues\n\n")
	sb.WriteString("| | Issue | URLs | Weight | Impact |\n|---|-------|------|--------|--------|\n")
	for i, row := range rows {
		if i >= limit {
			sb.WriteString(fmt.Sprintf("\n_... and %d more issue types_\n", len(rows)-limit))
			break
		}
		sb.WriteString(fmt.Sprintf("| %s | `%s` | %d | %d | %.0f (%.0f%%) |\n",
			severityIcon(row.Severity), row.IssueType, row.Count, row.Weight, row.Impact, row.Share*100))
	}

	return sb.String()
}

func severityIcon(sev string) string {
	switch sev {
	case scoring.SeverityHigh:
		return ":red_circle:"
	case scoring.SeverityMedium:
		return ":orange_circle:"
	case scoring.SeverityLow:
		return ":yellow_circle:"
	default:
		return ":blue_circle:"
	}
}
