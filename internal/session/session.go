// Package session holds the dashboard state for one operator: the current
// audit summary, the active issue-type tab and its selection, and the fix
// coordinator that mutates the summary.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/crawlscope/crawlscope/internal/store"
	"github.com/crawlscope/crawlscope/pkg/audit"
	"github.com/crawlscope/crawlscope/pkg/remediation"
	"github.com/crawlscope/crawlscope/pkg/scoring"
	"github.com/crawlscope/crawlscope/pkg/selection"
)

var (
	// ErrUnknownIssueType is returned when a tab names an issue type with no
	// open instances.
	ErrUnknownIssueType = errors.New("unknown issue type")

	// ErrSuperseded is returned when a new audit replaced the summary while a
	// fix was in flight. The fix result is discarded.
	ErrSuperseded = errors.New("audit replaced while fix was in flight")
)

// Session is one operator's view of an audit. Methods are safe for
// concurrent use; the lock is never held across a remediation call.
type Session struct {
	id        string
	summaries *store.SummaryStore
	coord     *remediation.Coordinator
	tracker   *selection.Tracker
	table     scoring.WeightTable

	mu         sync.RWMutex
	summary    *audit.AuditSummary
	generation uint64
}

// New creates a session. The coordinator should not carry its own persister;
// the session persists accepted fixes itself.
func New(id string, summaries *store.SummaryStore, coord *remediation.Coordinator, tracker *selection.Tracker, table scoring.WeightTable) *Session {
	if tracker == nil {
		tracker = selection.NewTracker()
	}
	return &Session{
		id:        id,
		summaries: summaries,
		coord:     coord,
		tracker:   tracker,
		table:     table,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Resume loads the persisted summary without re-analysing anything. It
// reports whether a summary was found.
func (s *Session) Resume(ctx context.Context) (bool, error) {
	summary, err := s.summaries.LoadSummary(ctx)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.summary = summary
	s.generation++
	return summary != nil, nil
}

// Start aggregates a new raw report and replaces the current summary. The old
// summary is discarded and the tab and selection are cleared. A malformed
// report leaves the session untouched.
func (s *Session) Start(ctx context.Context, raw *audit.RawAuditReport) (*audit.AuditSummary, error) {
	summary, err := audit.Aggregate(raw, s.table)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.summaries.Discard(ctx); err != nil {
		return nil, err
	}
	s.tracker.Reset()
	s.summary = summary
	s.generation++

	if err := s.summaries.SaveSummary(ctx, summary); err != nil {
		return summary, fmt.Errorf("%w: %w", remediation.ErrPersist, err)
	}

	log.Printf("session %s: audit of %s scored %d (%d critical, %d warnings)",
		s.id, summary.SiteURL, summary.Score, summary.Summary.CriticalIssues, summary.Summary.Warnings)
	return summary, nil
}

// Summary returns the current summary, or nil before any audit. The value is
// never mutated after it is published.
func (s *Session) Summary() *audit.AuditSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.summary
}

// Score returns the current health score and whether a summary is loaded.
func (s *Session) Score() (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.summary == nil {
		return 0, false
	}
	return s.summary.Score, true
}

// Issues returns the open issue types ranked by impact.
func (s *Session) Issues() []scoring.IssueTypeImpact {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.summary == nil {
		return nil
	}
	return s.summary.Prioritized()
}

// Tab returns the active issue-type tab.
func (s *Session) Tab() string {
	return s.tracker.Tab()
}

// SetTab makes issueType the active tab. Changing tabs clears the selection.
func (s *Session) SetTab(issueType string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.summary == nil {
		return remediation.ErrNoSummary
	}
	if _, ok := s.summary.IssuesByType[issueType]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownIssueType, issueType)
	}
	s.tracker.Switch(issueType)
	return nil
}

// Toggle flips the selection of url in the active tab and reports whether it
// is now selected.
func (s *Session) Toggle(url string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tab, issues, err := s.active()
	if err != nil {
		return false, err
	}
	return s.tracker.Toggle(tab, issues, url), nil
}

// SelectAll selects or clears every URL in the active tab.
func (s *Session) SelectAll(on bool) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tab, issues, err := s.active()
	if err != nil {
		return err
	}
	s.tracker.SelectAll(tab, issues, on)
	return nil
}

// ClearSelection empties the selection and keeps the tab.
func (s *Session) ClearSelection() {
	s.tracker.Clear()
}

// Selected returns the active tab and its selected URLs in list order.
func (s *Session) Selected() (string, []string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tab := s.tracker.Tab()
	if s.summary == nil || tab == "" {
		return tab, nil
	}
	return tab, s.tracker.Selected(tab, s.summary.IssuesByType[tab])
}

// FixOne fixes a single URL in the active tab.
func (s *Session) FixOne(ctx context.Context, url string) (*remediation.Result, error) {
	return s.fix(ctx, func(ctx context.Context, summary *audit.AuditSummary, tab string) (*audit.AuditSummary, *remediation.Result, error) {
		return s.coord.FixOne(ctx, summary, tab, url)
	})
}

// FixSelected fixes the selected URLs in the active tab.
func (s *Session) FixSelected(ctx context.Context) (*remediation.Result, error) {
	return s.fix(ctx, func(ctx context.Context, summary *audit.AuditSummary, tab string) (*audit.AuditSummary, *remediation.Result, error) {
		urls := s.tracker.Selected(tab, summary.IssuesByType[tab])
		return s.coord.FixSelected(ctx, summary, tab, urls)
	})
}

// FixAll fixes every open instance in the active tab.
func (s *Session) FixAll(ctx context.Context) (*remediation.Result, error) {
	return s.fix(ctx, func(ctx context.Context, summary *audit.AuditSummary, tab string) (*audit.AuditSummary, *remediation.Result, error) {
		return s.coord.FixAll(ctx, summary, tab)
	})
}

// Reset discards the persisted summary and forgets all dashboard state.
func (s *Session) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.summaries.Discard(ctx); err != nil {
		return err
	}
	s.tracker.Reset()
	s.summary = nil
	s.generation++
	return nil
}

type fixFunc func(ctx context.Context, summary *audit.AuditSummary, tab string) (*audit.AuditSummary, *remediation.Result, error)

func (s *Session) fix(ctx context.Context, run fixFunc) (*remediation.Result, error) {
	s.mu.RLock()
	summary, gen := s.summary, s.generation
	s.mu.RUnlock()

	tab := s.tracker.Tab()
	if summary == nil {
		return nil, remediation.ErrNoSummary
	}
	if tab == "" {
		return nil, remediation.ErrNoActiveTab
	}

	next, res, err := run(ctx, summary, tab)
	if next == nil || next == summary {
		return res, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.generation != gen {
		log.Printf("session %s: discarding fix for %s, audit was replaced", s.id, tab)
		return nil, ErrSuperseded
	}
	s.summary = next
	s.tracker.Retain(tab, next.IssuesByType[tab])

	if perr := s.summaries.SaveSummary(ctx, next); perr != nil {
		return res, fmt.Errorf("%w: %w", remediation.ErrPersist, perr)
	}

	log.Printf("session %s: fixed %d %s issue(s), score %d -> %d",
		s.id, len(res.Fixed), tab, res.ScoreBefore, res.ScoreAfter)
	return res, err
}

// active returns the active tab and its issues. Callers hold s.mu.
func (s *Session) active() (string, []audit.IssueInstance, error) {
	if s.summary == nil {
		return "", nil, remediation.ErrNoSummary
	}
	tab := s.tracker.Tab()
	if tab == "" {
		return "", nil, remediation.ErrNoActiveTab
	}
	return tab, s.summary.IssuesByType[tab], nil
}
