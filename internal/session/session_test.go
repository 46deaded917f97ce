package session_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/crawlscope/crawlscope/internal/session"
	"github.com/crawlscope/crawlscope/internal/store"
	"github.com/crawlscope/crawlscope/pkg/audit"
	"github.com/crawlscope/crawlscope/pkg/remediation"
	"github.com/crawlscope/crawlscope/pkg/scoring"
	"github.com/crawlscope/crawlscope/pkg/selection"
)

func rawReport(site string, h1Missing ...string) *audit.RawAuditReport {
	raw := &audit.RawAuditReport{SiteURL: site, AuditDate: "2026-10-01"}
	for _, u := range h1Missing {
		raw.URLs = append(raw.URLs, audit.URLResult{
			URL: u,
			Issues: map[string][]audit.RawCheckResult{
				"content": {
					{CheckName: "h1_presence", Status: audit.StatusCritical, Message: "No H1", Severity: "high"},
					{CheckName: "title_presence", Status: audit.StatusOptimal, Message: "ok", Severity: "high"},
				},
			},
		})
	}
	return raw
}

type fixture struct {
	sess    *session.Session
	backend *store.Memory
	calls   *[]remediation.Request
}

func newFixture(t *testing.T, svc remediation.Service) fixture {
	t.Helper()
	backend := store.NewMemory()
	tracker := selection.NewTracker()
	var calls []remediation.Request
	if svc == nil {
		svc = remediation.ServiceFunc(func(_ context.Context, req remediation.Request) error {
			calls = append(calls, req)
			return nil
		})
	}
	coord := remediation.NewCoordinator(svc, remediation.WithTracker(tracker))
	sess := session.New("s1", store.NewSummaryStore(backend, "s1"), coord, tracker, scoring.DefaultWeightTable())
	return fixture{sess: sess, backend: backend, calls: &calls}
}

func TestStartPersistsAndResets(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	if _, err := f.sess.Start(ctx, rawReport("https://a.example", "/1", "/2")); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := f.sess.SetTab("h1_presence"); err != nil {
		t.Fatalf("SetTab: %v", err)
	}
	f.sess.SelectAll(true)

	summary, err := f.sess.Start(ctx, rawReport("https://b.example", "/3"))
	if err != nil {
		t.Fatalf("second Start: %v", err)
	}
	if summary.SiteURL != "https://b.example" {
		t.Errorf("site = %s", summary.SiteURL)
	}
	if f.sess.Tab() != "" {
		t.Errorf("tab survived a new audit: %s", f.sess.Tab())
	}
	if _, urls := f.sess.Selected(); len(urls) != 0 {
		t.Errorf("selection survived a new audit: %v", urls)
	}

	data, err := f.backend.Get(ctx, store.SummaryKey("s1"))
	if err != nil {
		t.Fatalf("persisted summary missing: %v", err)
	}
	persisted, _ := audit.UnmarshalSummary(data)
	if persisted.SiteURL != "https://b.example" {
		t.Errorf("persisted site = %s", persisted.SiteURL)
	}
}

func TestStartMalformedLeavesState(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.sess.Start(ctx, rawReport("https://a.example", "/1"))

	_, err := f.sess.Start(ctx, &audit.RawAuditReport{})
	if !errors.Is(err, audit.ErrMalformedReport) {
		t.Fatalf("err = %v, want ErrMalformedReport", err)
	}
	if f.sess.Summary().SiteURL != "https://a.example" {
		t.Error("malformed report replaced the summary")
	}
}

func TestResume(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.sess.Start(ctx, rawReport("https://a.example", "/1"))

	other := session.New("s1", store.NewSummaryStore(f.backend, "s1"), remediation.NewCoordinator(nil), nil, scoring.DefaultWeightTable())
	found, err := other.Resume(ctx)
	if err != nil || !found {
		t.Fatalf("Resume = %v, %v", found, err)
	}
	if !reflect.DeepEqual(other.Summary(), f.sess.Summary()) {
		t.Error("resumed summary differs from the persisted one")
	}

	empty := session.New("s2", store.NewSummaryStore(f.backend, "s2"), remediation.NewCoordinator(nil), nil, scoring.DefaultWeightTable())
	if found, err := empty.Resume(ctx); err != nil || found {
		t.Errorf("Resume of unknown session = %v, %v", found, err)
	}
	if _, ok := empty.Score(); ok {
		t.Error("Score reported a value without a summary")
	}
}

func TestSelectionRequiresTab(t *testing.T) {
	f := newFixture(t, nil)
	if _, err := f.sess.Toggle("/1"); !errors.Is(err, remediation.ErrNoSummary) {
		t.Errorf("Toggle before audit err = %v", err)
	}

	f.sess.Start(context.Background(), rawReport("https://a.example", "/1"))
	if _, err := f.sess.Toggle("/1"); !errors.Is(err, remediation.ErrNoActiveTab) {
		t.Errorf("Toggle without tab err = %v", err)
	}
	if err := f.sess.SetTab("nope"); !errors.Is(err, session.ErrUnknownIssueType) {
		t.Errorf("SetTab unknown err = %v", err)
	}
}

func TestFixSelected(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.sess.Start(ctx, rawReport("https://a.example", "/1", "/2", "/3"))
	f.sess.SetTab("h1_presence")
	f.sess.Toggle("/1")
	f.sess.Toggle("/3")

	before, _ := f.sess.Score()
	res, err := f.sess.FixSelected(ctx)
	if err != nil {
		t.Fatalf("FixSelected: %v", err)
	}
	if !reflect.DeepEqual(res.Fixed, []string{"/1", "/3"}) {
		t.Errorf("fixed = %v", res.Fixed)
	}
	if res.ScoreBefore != before {
		t.Errorf("score before = %d, want %d", res.ScoreBefore, before)
	}

	summary := f.sess.Summary()
	if summary.Summary.CriticalIssues != 1 {
		t.Errorf("critical = %d, want 1", summary.Summary.CriticalIssues)
	}
	if got := summary.URLs("h1_presence"); !reflect.DeepEqual(got, []string{"/2"}) {
		t.Errorf("remaining = %v", got)
	}
	if _, urls := f.sess.Selected(); len(urls) != 0 {
		t.Errorf("selection after fix = %v", urls)
	}

	data, _ := f.backend.Get(ctx, store.SummaryKey("s1"))
	persisted, _ := audit.UnmarshalSummary(data)
	if persisted.Summary.CriticalIssues != 1 {
		t.Error("fixed summary was not persisted")
	}
}

func TestFixAllThenEmptySelection(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.sess.Start(ctx, rawReport("https://a.example", "/1", "/2"))
	f.sess.SetTab("h1_presence")

	if _, err := f.sess.FixAll(ctx); err != nil {
		t.Fatalf("FixAll: %v", err)
	}
	if len(f.sess.Issues()) != 0 {
		t.Errorf("issues after FixAll = %v", f.sess.Issues())
	}

	res, err := f.sess.FixSelected(ctx)
	if err != nil {
		t.Fatalf("FixSelected on empty tab: %v", err)
	}
	if len(res.Fixed) != 0 || len(*f.calls) != 1 {
		t.Errorf("empty fix should not call the service: fixed=%v calls=%d", res.Fixed, len(*f.calls))
	}
}

func TestFixFailureKeepsSummary(t *testing.T) {
	f := newFixture(t, remediation.ServiceFunc(func(context.Context, remediation.Request) error {
		return errors.New("cms offline")
	}))
	ctx := context.Background()
	f.sess.Start(ctx, rawReport("https://a.example", "/1"))
	f.sess.SetTab("h1_presence")
	before := f.sess.Summary()

	if _, err := f.sess.FixOne(ctx, "/1"); !errors.Is(err, remediation.ErrFixFailed) {
		t.Fatalf("err = %v, want ErrFixFailed", err)
	}
	if f.sess.Summary() != before {
		t.Error("failed fix replaced the summary")
	}
}

func TestFixDiscardedWhenAuditReplaced(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	f := newFixture(t, remediation.ServiceFunc(func(ctx context.Context, _ remediation.Request) error {
		close(started)
		<-release
		return nil
	}))
	ctx := context.Background()
	f.sess.Start(ctx, rawReport("https://a.example", "/1"))
	f.sess.SetTab("h1_presence")

	done := make(chan error, 1)
	go func() {
		_, err := f.sess.FixOne(ctx, "/1")
		done <- err
	}()
	<-started

	if _, err := f.sess.Start(ctx, rawReport("https://b.example", "/9")); err != nil {
		t.Fatalf("Start during fix: %v", err)
	}
	close(release)

	if err := <-done; !errors.Is(err, session.ErrSuperseded) {
		t.Errorf("err = %v, want ErrSuperseded", err)
	}
	if f.sess.Summary().SiteURL != "https://b.example" {
		t.Error("stale fix overwrote the new audit")
	}
}

func TestReset(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.sess.Start(ctx, rawReport("https://a.example", "/1"))

	if err := f.sess.Reset(ctx); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if f.sess.Summary() != nil {
		t.Error("summary survived Reset")
	}
	if _, err := f.backend.Get(ctx, store.SummaryKey("s1")); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("persisted summary survived Reset: %v", err)
	}
}
