package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/crawlscope/crawlscope/pkg/audit"
)

// SummaryKeyPrefix namespaces persisted audit summaries.
const SummaryKeyPrefix = "audit_results/"

// SummaryKey returns the key a session's summary is stored under.
func SummaryKey(sessionID string) string {
	return SummaryKeyPrefix + sessionID
}

// SummaryStore persists one AuditSummary per session.
type SummaryStore struct {
	store     Store
	sessionID string
}

// NewSummaryStore binds a store to one session.
func NewSummaryStore(s Store, sessionID string) *SummaryStore {
	return &SummaryStore{store: s, sessionID: sessionID}
}

// SessionID returns the session this store is bound to.
func (s *SummaryStore) SessionID() string {
	return s.sessionID
}

// SaveSummary writes the summary under the session key.
func (s *SummaryStore) SaveSummary(ctx context.Context, summary *audit.AuditSummary) error {
	data, err := audit.MarshalSummary(summary)
	if err != nil {
		return err
	}
	if err := s.store.Set(ctx, SummaryKey(s.sessionID), data); err != nil {
		return fmt.Errorf("save summary: %w", err)
	}
	return nil
}

// LoadSummary reads the persisted summary. It returns (nil, nil) when the
// session has none.
func (s *SummaryStore) LoadSummary(ctx context.Context) (*audit.AuditSummary, error) {
	data, err := s.store.Get(ctx, SummaryKey(s.sessionID))
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load summary: %w", err)
	}
	summary, err := audit.UnmarshalSummary(data)
	if err != nil {
		return nil, fmt.Errorf("load summary: %w", err)
	}
	return summary, nil
}

// Discard removes the persisted summary.
func (s *SummaryStore) Discard(ctx context.Context) error {
	if err := s.store.Remove(ctx, SummaryKey(s.sessionID)); err != nil {
		return fmt.Errorf("discard summary: %w", err)
	}
	return nil
}
