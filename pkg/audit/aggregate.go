package audit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/crawlscope/crawlscope/pkg/scoring"
)

// Aggregate normalizes a raw report into an AuditSummary.
//
// Every check adds its weight to the maximum possible penalty regardless of
// outcome. Critical results charge their full weight, warnings a fraction of
// it, and optimal results nothing. Results with an unrecognized status are
// excluded from all counts. Categories are visited in sorted order; issue
// instances keep the order in which their URLs appear in the report.
func Aggregate(raw *RawAuditReport, table scoring.WeightTable) (*AuditSummary, error) {
	return AggregateWith(raw, table, scoring.DefaultPenalties())
}

// AggregateWith is Aggregate with explicit penalty constants.
func AggregateWith(raw *RawAuditReport, table scoring.WeightTable, p scoring.Penalties) (*AuditSummary, error) {
	if err := Validate(raw); err != nil {
		return nil, err
	}

	summary := &AuditSummary{
		SiteURL:          raw.SiteURL,
		AuditDate:        raw.AuditDate,
		TotalURLsChecked: len(raw.URLs),
		IssuesByType:     make(map[string][]IssueInstance),
	}
	if raw.TotalURLsChecked != nil {
		summary.TotalURLsChecked = *raw.TotalURLsChecked
	}

	tally := &summary.Summary
	for _, u := range raw.URLs {
		for _, category := range sortedCategories(u.Issues) {
			for _, check := range u.Issues[category] {
				weight := table.Weight(check.CheckName)
				tally.MaxWeight += weight

				switch check.Status {
				case StatusCritical:
					tally.CriticalIssues++
					tally.WeightedPenalty += float64(weight) * p.CriticalFraction
				case StatusWarning:
					tally.Warnings++
					tally.WeightedPenalty += float64(weight) * p.WarningFraction
				case StatusOptimal:
					tally.Passed++
					continue
				default:
					summary.Unrecognized++
					continue
				}

				summary.IssuesByType[check.CheckName] = append(summary.IssuesByType[check.CheckName], IssueInstance{
					URL:      u.URL,
					Message:  check.Message,
					Severity: check.Severity,
					Value:    normalizeValue(check.Value),
					Weight:   weight,
				})
			}
		}
	}

	summary.Score = p.Score(*tally)
	return summary, nil
}

// Validate checks that a raw report has every field aggregation relies on.
func Validate(raw *RawAuditReport) error {
	if raw == nil {
		return malformed("", "report is empty")
	}
	if raw.SiteURL == "" {
		return malformed("site_url", "missing site url")
	}
	if raw.TotalURLsChecked != nil && *raw.TotalURLsChecked < 0 {
		return malformed("total_urls_checked", "negative count %d", *raw.TotalURLsChecked)
	}
	for i, u := range raw.URLs {
		if u.URL == "" {
			return malformed(fmt.Sprintf("urls[%d]", i), "missing url")
		}
		for category, checks := range u.Issues {
			for j, check := range checks {
				path := fmt.Sprintf("urls[%d].issues.%s[%d]", i, category, j)
				if check.CheckName == "" {
					return malformed(path, "missing check_name")
				}
				if check.Status == "" {
					return malformed(path, "missing status for %s", check.CheckName)
				}
			}
		}
	}
	return nil
}

func sortedCategories(issues map[string][]RawCheckResult) []string {
	keys := make([]string, 0, len(issues))
	for k := range issues {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// normalizeValue compacts a raw JSON value so a summary survives an encode
// and decode cycle byte for byte.
func normalizeValue(v json.RawMessage) json.RawMessage {
	trimmed := bytes.TrimSpace(v)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return append(json.RawMessage(nil), trimmed...)
	}
	return buf.Bytes()
}
