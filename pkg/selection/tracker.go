// Package selection tracks which issue instances an operator has selected for
// a bulk fix. A selection is scoped to one issue-type tab at a time and is
// always a subset of the URLs listed under that tab.
package selection

import (
	"sync"

	"github.com/crawlscope/crawlscope/pkg/audit"
)

// Tracker holds the selected URLs for the active tab. It is safe for
// concurrent use.
type Tracker struct {
	mu   sync.Mutex
	tab  string
	urls map[string]struct{}
}

// NewTracker returns an empty tracker with no active tab.
func NewTracker() *Tracker {
	return &Tracker{urls: make(map[string]struct{})}
}

// Tab returns the tab the current selection belongs to.
func (t *Tracker) Tab() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tab
}

// Switch makes tab the active scope. Switching to a different tab clears the
// selection.
func (t *Tracker) Switch(tab string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.scope(tab)
}

// Toggle flips the selection of url under tab and reports whether it is now
// selected. URLs that are not in issues are ignored.
func (t *Tracker) Toggle(tab string, issues []audit.IssueInstance, url string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.scope(tab)

	if !contains(issues, url) {
		return false
	}
	if _, ok := t.urls[url]; ok {
		delete(t.urls, url)
		return false
	}
	t.urls[url] = struct{}{}
	return true
}

// SelectAll selects exactly the URLs in issues, or clears the selection when
// on is false. The selection is a snapshot; it does not follow later changes
// to the issue list.
func (t *Tracker) SelectAll(tab string, issues []audit.IssueInstance, on bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.scope(tab)

	t.urls = make(map[string]struct{}, len(issues))
	if !on {
		return
	}
	for _, inst := range issues {
		t.urls[inst.URL] = struct{}{}
	}
}

// Clear empties the selection but keeps the active tab.
func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.urls = make(map[string]struct{})
}

// Reset empties the selection and forgets the active tab.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tab = ""
	t.urls = make(map[string]struct{})
}

// Deselect removes the given URLs from the selection.
func (t *Tracker) Deselect(urls ...string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, u := range urls {
		delete(t.urls, u)
	}
}

// Retain shrinks the selection under tab to the URLs still present in issues.
func (t *Tracker) Retain(tab string, issues []audit.IssueInstance) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.scope(tab)

	for u := range t.urls {
		if !contains(issues, u) {
			delete(t.urls, u)
		}
	}
}

// Selected returns the selected URLs for tab in the order they appear in
// issues. A tab other than the active one has no selection.
func (t *Tracker) Selected(tab string, issues []audit.IssueInstance) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	if tab != t.tab {
		return nil
	}
	var out []string
	seen := make(map[string]bool, len(t.urls))
	for _, inst := range issues {
		if _, ok := t.urls[inst.URL]; ok && !seen[inst.URL] {
			seen[inst.URL] = true
			out = append(out, inst.URL)
		}
	}
	return out
}

// Len returns the number of selected URLs.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.urls)
}

// IsSelected reports whether url is selected under the active tab.
func (t *Tracker) IsSelected(url string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.urls[url]
	return ok
}

// scope must be called with mu held.
func (t *Tracker) scope(tab string) {
	if t.urls == nil {
		t.urls = make(map[string]struct{})
	}
	if tab == t.tab {
		return
	}
	t.tab = tab
	t.urls = make(map[string]struct{})
}

func contains(issues []audit.IssueInstance, url string) bool {
	for _, inst := range issues {
		if inst.URL == url {
			return true
		}
	}
	return false
}
