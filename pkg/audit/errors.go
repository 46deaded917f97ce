package audit

import (
	"errors"
	"fmt"
)

// ErrMalformedReport is matched by every MalformedReportError.
var ErrMalformedReport = errors.New("malformed audit report")

// MalformedReportError describes where a raw report violates the expected
// shape. Aggregation stops at the first violation.
type MalformedReportError struct {
	Path   string // location in the report, e.g. "urls[3].issues.meta[0]"
	Reason string
	Cause  error
}

func (e *MalformedReportError) Error() string {
	msg := ErrMalformedReport.Error()
	if e.Path != "" {
		msg += " at " + e.Path
	}
	msg += ": " + e.Reason
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Is makes errors.Is(err, ErrMalformedReport) true.
func (e *MalformedReportError) Is(target error) bool {
	return target == ErrMalformedReport
}

func (e *MalformedReportError) Unwrap() error {
	return e.Cause
}

func malformed(path, format string, args ...any) *MalformedReportError {
	return &MalformedReportError{Path: path, Reason: fmt.Sprintf(format, args...)}
}
