// Package scoring implements the crawlscope site health scoring: the issue
// weight table, the weighted and fallback score formulas, and the issue-type
// prioritization shown on the dashboard.
package scoring

// Tally is the aggregate counter block of an audit summary. It is the only
// input the score formulas need.
type Tally struct {
	CriticalIssues  int     `json:"critical_issues"`
	Warnings        int     `json:"warnings"`
	Passed          int     `json:"passed"`
	WeightedPenalty float64 `json:"weighted_penalty"`
	MaxWeight       int     `json:"max_weight"`
}

// TotalChecks returns the number of checks with a recognized outcome.
func (t Tally) TotalChecks() int {
	return t.CriticalIssues + t.Warnings + t.Passed
}

// HasWeights reports whether the tally carries weighted bookkeeping.
func (t Tally) HasWeights() bool {
	return t.MaxWeight > 0
}

// IssueTypeImpact is one row of the prioritized issue view.
type IssueTypeImpact struct {
	IssueType string  `json:"issue_type"`
	Count     int     `json:"count"`
	Weight    int     `json:"weight"`
	Impact    float64 `json:"impact"`          // weight * count
	Share     float64 `json:"share,omitempty"` // fraction of total impact, 0.0-1.0
	Severity  string  `json:"severity"`        // HIGH, MEDIUM, LOW
}

// Severity bands derived from a check's weight.
const (
	SeverityHigh   = "HIGH"
	SeverityMedium = "MEDIUM"
	SeverityLow    = "LOW"
)

// SeverityFromWeight maps a weight to a display band.
func SeverityFromWeight(w int) string {
	switch {
	case w >= 8:
		return SeverityHigh
	case w >= 4:
		return SeverityMedium
	default:
		return SeverityLow
	}
}
