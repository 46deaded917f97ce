package remediation

import (
	"github.com/crawlscope/crawlscope/pkg/audit"
	"github.com/crawlscope/crawlscope/pkg/scoring"
)

// ApplyFix returns a copy of summary with the given URLs fixed under
// issueType. The input summary is not modified.
//
// Every fixed URL is credited as a resolved critical issue: critical_issues
// drops by the number of distinct URLs (never below zero) and passed rises by
// the same amount, even when the fixed instance was only a warning. The
// weighted penalty is left as aggregated.
func ApplyFix(summary *audit.AuditSummary, issueType string, urls []string) *audit.AuditSummary {
	next := summary.Clone()
	fixed := dedupe(urls)
	if len(fixed) == 0 {
		return next
	}

	set := make(map[string]bool, len(fixed))
	for _, u := range fixed {
		set[u] = true
	}

	var kept []audit.IssueInstance
	for _, inst := range next.IssuesByType[issueType] {
		if !set[inst.URL] {
			kept = append(kept, inst)
		}
	}
	if len(kept) == 0 {
		delete(next.IssuesByType, issueType)
	} else {
		next.IssuesByType[issueType] = kept
	}

	next.Summary.CriticalIssues = max(0, next.Summary.CriticalIssues-len(fixed))
	next.Summary.Passed += len(fixed)
	next.Score = scoring.Score(next.Summary)

	return next
}

// resolve keeps the distinct URLs that currently have an open instance under
// issueType, in request order.
func resolve(summary *audit.AuditSummary, issueType string, urls []string) []string {
	present := make(map[string]bool)
	for _, inst := range summary.IssuesByType[issueType] {
		present[inst.URL] = true
	}
	var out []string
	for _, u := range dedupe(urls) {
		if present[u] {
			out = append(out, u)
		}
	}
	return out
}

func dedupe(urls []string) []string {
	seen := make(map[string]bool, len(urls))
	var out []string
	for _, u := range urls {
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}
