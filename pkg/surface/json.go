package surface

import (
	"encoding/json"
	"io"

	"github.com/crawlscope/crawlscope/pkg/audit"
	"github.com/crawlscope/crawlscope/pkg/scoring"
)

// JSONRenderer writes the summary as indented JSON with the derived grade and
// issue ranking alongside it.
type JSONRenderer struct{}

type jsonReport struct {
	*audit.AuditSummary
	Grade       string                    `json:"grade"`
	Prioritized []scoring.IssueTypeImpact `json:"prioritized"`
}

func (r *JSONRenderer) Render(w io.Writer, summary *audit.AuditSummary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	prioritized := summary.Prioritized()
	if prioritized == nil {
		prioritized = []scoring.IssueTypeImpact{}
	}
	return enc.Encode(jsonReport{
		AuditSummary: summary,
		Grade:        summary.Grade(),
		Prioritized:  prioritized,
	})
}
