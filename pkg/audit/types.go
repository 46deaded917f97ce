// Package audit defines the raw crawler report, the normalized audit summary,
// and the aggregation that turns one into the other.
package audit

import (
	"encoding/json"

	"github.com/crawlscope/crawlscope/pkg/scoring"
)

// Status is the outcome of a single check against a single URL.
type Status string

const (
	StatusCritical Status = "critical"
	StatusWarning  Status = "warning"
	StatusOptimal  Status = "optimal"
)

// Known reports whether s is one of the three recognized outcomes.
func (s Status) Known() bool {
	switch s {
	case StatusCritical, StatusWarning, StatusOptimal:
		return true
	}
	return false
}

// RawAuditReport is the crawler's output. It is treated as immutable.
type RawAuditReport struct {
	SiteURL          string      `json:"site_url"`
	AuditDate        string      `json:"audit_date"`
	TotalURLsChecked *int        `json:"total_urls_checked,omitempty"`
	URLs             []URLResult `json:"urls"`
}

// URLResult holds every check result for one URL, grouped by category.
type URLResult struct {
	URL    string                      `json:"url"`
	Issues map[string][]RawCheckResult `json:"issues"`
}

// RawCheckResult is one check evaluated against one URL.
type RawCheckResult struct {
	CheckName string          `json:"check_name"`
	Status    Status          `json:"status"`
	Message   string          `json:"message"`
	Severity  string          `json:"severity"`
	Value     json.RawMessage `json:"value,omitempty"`
}

// IssueInstance is one failing check for one URL, enriched with its weight.
type IssueInstance struct {
	URL      string          `json:"url"`
	Message  string          `json:"message"`
	Severity string          `json:"severity"`
	Value    json.RawMessage `json:"value,omitempty"`
	Weight   int             `json:"weight"`
}

// AuditSummary is the normalized result of one audit run.
//
// Counts in Summary only move through aggregation and fix transitions; they
// are never recomputed from the length of IssuesByType.
type AuditSummary struct {
	SiteURL          string                     `json:"site_url"`
	AuditDate        string                     `json:"audit_date"`
	TotalURLsChecked int                        `json:"total_urls_checked"`
	Summary          scoring.Tally              `json:"summary"`
	IssuesByType     map[string][]IssueInstance `json:"issues_by_type"`
	Score            int                        `json:"score"`

	// Unrecognized counts check results whose status was not one of the
	// known outcomes. They are excluded from every count in Summary.
	Unrecognized int `json:"unrecognized,omitempty"`
}

// Clone returns a deep copy of s. Issue instance values share their raw JSON
// bytes, which are never modified in place.
func (s *AuditSummary) Clone() *AuditSummary {
	if s == nil {
		return nil
	}
	out := *s
	out.IssuesByType = make(map[string][]IssueInstance, len(s.IssuesByType))
	for k, v := range s.IssuesByType {
		out.IssuesByType[k] = append([]IssueInstance(nil), v...)
	}
	return &out
}

// IssueTypes returns the issue types that currently have open instances.
func (s *AuditSummary) IssueTypes() []string {
	var types []string
	for _, row := range s.Prioritized() {
		types = append(types, row.IssueType)
	}
	return types
}

// URLs returns the URLs of the open instances of one issue type, in display
// order.
func (s *AuditSummary) URLs(issueType string) []string {
	issues := s.IssuesByType[issueType]
	urls := make([]string, 0, len(issues))
	for _, inst := range issues {
		urls = append(urls, inst.URL)
	}
	return urls
}

// Prioritized ranks the open issue types by impact.
func (s *AuditSummary) Prioritized() []scoring.IssueTypeImpact {
	buckets := make(map[string]scoring.Bucket, len(s.IssuesByType))
	for name, issues := range s.IssuesByType {
		if len(issues) == 0 {
			continue
		}
		buckets[name] = scoring.Bucket{Count: len(issues), Weight: issues[0].Weight}
	}
	return scoring.Prioritize(buckets)
}

// Grade returns the letter grade for the summary's score.
func (s *AuditSummary) Grade() string {
	return scoring.GradeFromScore(s.Score)
}
