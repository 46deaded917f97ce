package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ParseReport decodes a raw report from JSON. Decode failures are reported as
// malformed reports.
func ParseReport(data []byte) (*RawAuditReport, error) {
	var raw RawAuditReport
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &MalformedReportError{Reason: "invalid JSON", Cause: err}
	}
	return &raw, nil
}

// LoadReport reads a raw report from disk.
func LoadReport(path string) (*RawAuditReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading report: %w", err)
	}
	return ParseReport(data)
}

// MarshalSummary encodes a summary in its persisted form.
func MarshalSummary(s *AuditSummary) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshaling summary: %w", err)
	}
	return data, nil
}

// UnmarshalSummary decodes a persisted summary.
func UnmarshalSummary(data []byte) (*AuditSummary, error) {
	var s AuditSummary
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("unmarshaling summary: %w", err)
	}
	if s.IssuesByType == nil {
		s.IssuesByType = make(map[string][]IssueInstance)
	}
	for _, issues := range s.IssuesByType {
		for i := range issues {
			issues[i].Value = normalizeValue(issues[i].Value)
		}
	}
	return &s, nil
}

// SaveSummary writes a summary to disk as indented JSON.
func SaveSummary(path string, s *AuditSummary) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating directory for summary: %w", err)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling summary: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing summary: %w", err)
	}

	return nil
}

// LoadSummary reads a summary from disk.
func LoadSummary(path string) (*AuditSummary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading summary: %w", err)
	}
	return UnmarshalSummary(data)
}
