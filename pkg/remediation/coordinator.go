// Package remediation drives fix operations against the external remediation
// service and applies their outcome to an audit summary.
package remediation

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/crawlscope/crawlscope/pkg/audit"
	"github.com/crawlscope/crawlscope/pkg/selection"
)

// Request is the payload sent to the remediation service.
type Request struct {
	IssueType string   `json:"issue_type"`
	URLs      []string `json:"urls"`
}

// Service remediates every listed URL for one issue type. A nil error means
// the whole batch was fixed; there is no partial success.
type Service interface {
	Remediate(ctx context.Context, req Request) error
}

// ServiceFunc adapts a function to the Service interface.
type ServiceFunc func(ctx context.Context, req Request) error

func (f ServiceFunc) Remediate(ctx context.Context, req Request) error { return f(ctx, req) }

// Persister stores a summary after it has been mutated.
type Persister interface {
	SaveSummary(ctx context.Context, s *audit.AuditSummary) error
}

// Result describes a completed fix.
type Result struct {
	IssueType   string   `json:"issue_type"`
	Fixed       []string `json:"fixed"`
	ScoreBefore int      `json:"score_before"`
	ScoreAfter  int      `json:"score_after"`
}

// Coordinator serializes fixes through a single in-flight flag and applies
// each confirmed fix as one new summary value.
type Coordinator struct {
	svc       Service
	persister Persister
	tracker   *selection.Tracker
	delay     time.Duration

	inFlight atomic.Bool
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithDelay sets the pause taken before each remediation call so an
// interactive user sees progress. Zero disables it.
func WithDelay(d time.Duration) Option {
	return func(c *Coordinator) {
		c.delay = d
	}
}

// WithPersister stores every fixed summary.
func WithPersister(p Persister) Option {
	return func(c *Coordinator) {
		c.persister = p
	}
}

// WithTracker clears fixed URLs from the given selection.
func WithTracker(t *selection.Tracker) Option {
	return func(c *Coordinator) {
		c.tracker = t
	}
}

// NewCoordinator creates a coordinator that fixes issues through svc.
func NewCoordinator(svc Service, opts ...Option) *Coordinator {
	c := &Coordinator{svc: svc}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// InFlight reports whether a fix is currently outstanding.
func (c *Coordinator) InFlight() bool {
	return c.inFlight.Load()
}

// FixOne fixes a single URL under issueType.
func (c *Coordinator) FixOne(ctx context.Context, summary *audit.AuditSummary, issueType, url string) (*audit.AuditSummary, *Result, error) {
	return c.fix(ctx, summary, issueType, []string{url})
}

// FixSelected fixes the selected URLs under issueType.
func (c *Coordinator) FixSelected(ctx context.Context, summary *audit.AuditSummary, issueType string, urls []string) (*audit.AuditSummary, *Result, error) {
	return c.fix(ctx, summary, issueType, urls)
}

// FixAll fixes every open instance under issueType.
func (c *Coordinator) FixAll(ctx context.Context, summary *audit.AuditSummary, issueType string) (*audit.AuditSummary, *Result, error) {
	if summary == nil {
		return nil, nil, ErrNoSummary
	}
	return c.fix(ctx, summary, issueType, summary.URLs(issueType))
}

// fix runs one remediation round. On any failure before the service confirms
// the fix, the returned summary is nil and no state has changed. When only
// persistence fails, the fixed summary is returned together with an error
// matching ErrPersist.
func (c *Coordinator) fix(ctx context.Context, summary *audit.AuditSummary, issueType string, urls []string) (*audit.AuditSummary, *Result, error) {
	if summary == nil {
		return nil, nil, ErrNoSummary
	}
	if issueType == "" {
		return nil, nil, ErrNoActiveTab
	}

	if !c.inFlight.CompareAndSwap(false, true) {
		return nil, nil, ErrConcurrentFix
	}
	defer c.inFlight.Store(false)

	targets := resolve(summary, issueType, urls)
	result := &Result{IssueType: issueType, ScoreBefore: summary.Score, ScoreAfter: summary.Score}
	if len(targets) == 0 {
		return summary, result, nil
	}

	if err := c.pause(ctx); err != nil {
		return nil, nil, &FixFailedError{IssueType: issueType, URLs: len(targets), Reason: err.Error(), Err: err}
	}

	if err := c.svc.Remediate(ctx, Request{IssueType: issueType, URLs: targets}); err != nil {
		return nil, nil, &FixFailedError{IssueType: issueType, URLs: len(targets), Reason: err.Error(), Err: err}
	}

	next := ApplyFix(summary, issueType, targets)
	result.Fixed = targets
	result.ScoreAfter = next.Score

	var persistErr error
	if c.persister != nil {
		persistErr = c.persister.SaveSummary(ctx, next)
	}

	// The fixed instances are gone either way, so they cannot stay selected.
	if c.tracker != nil {
		c.tracker.Deselect(targets...)
	}

	if persistErr != nil {
		return next, result, fmt.Errorf("%w: %w", ErrPersist, persistErr)
	}
	return next, result, nil
}

func (c *Coordinator) pause(ctx context.Context) error {
	if c.delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(c.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
