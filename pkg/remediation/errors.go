package remediation

import (
	"errors"
	"fmt"
)

var (
	// ErrFixFailed is matched by every FixFailedError.
	ErrFixFailed = errors.New("fix failed")

	// ErrConcurrentFix is returned when a fix is requested while another one
	// is still in flight. The request is rejected, not queued.
	ErrConcurrentFix = errors.New("another fix is already in progress")

	// ErrPersist wraps a store failure that happened after the remediation
	// service confirmed the fix. The returned summary reflects the fix.
	ErrPersist = errors.New("persisting fixed summary")

	// ErrNoActiveTab is returned when a fix names no issue type.
	ErrNoActiveTab = errors.New("no active issue type")

	// ErrNoSummary is returned when there is no audit summary to fix.
	ErrNoSummary = errors.New("no audit summary loaded")
)

// FixFailedError reports a remediation call that failed or was rejected. No
// state was changed; the caller may retry.
type FixFailedError struct {
	IssueType string
	URLs      int
	Reason    string
	Err       error
}

func (e *FixFailedError) Error() string {
	return fmt.Sprintf("fix failed for %s (%d urls): %s", e.IssueType, e.URLs, e.Reason)
}

// Is makes errors.Is(err, ErrFixFailed) true.
func (e *FixFailedError) Is(target error) bool {
	return target == ErrFixFailed
}

func (e *FixFailedError) Unwrap() error {
	return e.Err
}
