package surface

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/crawlscope/crawlscope/pkg/audit"
	"github.com/crawlscope/crawlscope/pkg/scoring"
)

// TerminalRenderer renders an AuditSummary as terminal text. Color is used
// only when writing to a terminal and NO_COLOR is unset.
type TerminalRenderer struct {
	// Tab, when set, lists the open URLs of that issue type.
	Tab string
	// ShowFallback adds the pass-rate score next to the weighted one.
	ShowFallback bool
	// ForceColor enables color regardless of the output target.
	ForceColor bool
}

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBold   = "\033[1m"
	colorDim    = "\033[2m"
)

type palette struct {
	on bool
}

func (r *TerminalRenderer) palette(w io.Writer) palette {
	if noColor() {
		return palette{}
	}
	if r.ForceColor {
		return palette{on: true}
	}
	f, ok := w.(*os.File)
	return palette{on: ok && term.IsTerminal(int(f.Fd()))}
}

func noColor() bool {
	_, ok := os.LookupEnv("NO_COLOR")
	return ok
}

func (p palette) bold(s string) string {
	return p.colored(s, colorBold)
}

func (p palette) dim(s string) string {
	return p.colored(s, colorDim)
}

func (p palette) colored(s, color string) string {
	if !p.on || color == "" {
		return s
	}
	return color + s + colorReset
}

func gradeColor(grade string) string {
	switch grade {
	case "A", "B":
		return colorGreen
	case "C":
		return colorYellow
	case "D", "F":
		return colorRed
	default:
		return ""
	}
}

func severityColor(sev string) string {
	switch sev {
	case scoring.SeverityHigh:
		return colorRed
	case scoring.SeverityMedium:
		return colorYellow
	default:
		return colorDim
	}
}

func (r *TerminalRenderer) Render(w io.Writer, summary *audit.AuditSummary) error {
	p := r.palette(w)
	grade := summary.Grade()

	// Header
	fmt.Fprintf(w, "%s\n",
		p.bold(fmt.Sprintf("Crawlscope: %s  Grade %s  Score %d",
			summary.SiteURL, p.colored(grade, gradeColor(grade)), summary.Score)))
	if r.ShowFallback {
		fmt.Fprintf(w, "%s\n", p.dim(fmt.Sprintf("Fallback score (pass rate): %d", scoring.FallbackScore(summary.Summary))))
	}
	fmt.Fprintln(w)

	// Stats
	t := summary.Summary
	fmt.Fprintf(w, "Audited %s: %d URLs checked\n", summary.AuditDate, summary.TotalURLsChecked)
	fmt.Fprintf(w, "Checks: %s critical / %s warnings / %d passed\n",
		p.colored(fmt.Sprint(t.CriticalIssues), colorRed),
		p.colored(fmt.Sprint(t.Warnings), colorYellow),
		t.Passed)
	if summary.Unrecognized > 0 {
		fmt.Fprintf(w, "%s\n", p.dim(fmt.Sprintf("%d result(s) with an unrecognized status were ignored", summary.Unrecognized)))
	}
	fmt.Fprintln(w)

	rows := summary.Prioritized()
	if len(rows) == 0 {
		fmt.Fprintln(w, "No open issues.")
		fmt.Fprintln(w)
	} else {
		width := 0
		for _, row := range rows {
			width = max(width, len(row.IssueType))
		}
		fmt.Fprintln(w, "Issues by impact:")
		for _, row := range rows {
			fmt.Fprintf(w, "  %s %-*s %3d x %-2d = %4.0f  %s\n",
				p.colored(fmt.Sprintf("%-6s", row.Severity), severityColor(row.Severity)),
				width, row.IssueType, row.Count, row.Weight, row.Impact,
				p.dim(fmt.Sprintf("(%.0f%%)", row.Share*100)))
		}
		fmt.Fprintln(w)
	}

	if r.Tab != "" {
		r.renderTab(w, p, summary)
	}

	return nil
}

func (r *TerminalRenderer) renderTab(w io.Writer, p palette, summary *audit.AuditSummary) {
	issues := summary.IssuesByType[r.Tab]
	if len(issues) == 0 {
		fmt.Fprintf(w, "No open %s issues.\n\n", r.Tab)
		return
	}

	fmt.Fprintf(w, "%s\n", p.bold(fmt.Sprintf("%s (%d):", r.Tab, len(issues))))
	for _, inst := range issues {
		fmt.Fprintf(w, "  %s\n", inst.URL)
		if inst.Message != "" {
			for _, line := range wrapText(inst.Message, 70) {
				fmt.Fprintf(w, "    %s\n", p.dim(line))
			}
		}
	}
	fmt.Fprintln(w)
}

// wrapText wraps a string at the given width, returning lines.
func wrapText(s string, width int) []string {
	words := strings.Fields(s)
	if len(words) == 0 {
		return nil
	}

	var lines []string
	current := words[0]

	for _, word := range words[1:] {
		if len(current)+1+len(word) > width {
			lines = append(lines, current)
			current = word
		} else {
			current += " " + word
		}
	}
	lines = append(lines, current)
	return lines
}
