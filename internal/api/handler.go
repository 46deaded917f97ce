// Package api implements the Crawlscope dashboard REST API.
// Each session owns one audit summary, its tab and selection, and a fix
// coordinator; summaries are persisted through the configured store.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/crawlscope/crawlscope/internal/session"
	"github.com/crawlscope/crawlscope/internal/store"
	"github.com/crawlscope/crawlscope/pkg/audit"
	"github.com/crawlscope/crawlscope/pkg/crawler"
	"github.com/crawlscope/crawlscope/pkg/remediation"
	"github.com/crawlscope/crawlscope/pkg/scoring"
	"github.com/crawlscope/crawlscope/pkg/selection"
)

var errSessionNotFound = errors.New("session not found")

// Handler is the top-level API handler for the dashboard service.
type Handler struct {
	backend    store.Store
	remediator remediation.Service
	crawler    *crawler.Client
	table      scoring.WeightTable
	fixDelay   time.Duration
	cache      *SessionCache

	loadMu sync.Mutex
}

// Option configures a Handler.
type Option func(*Handler)

// WithCrawler lets POST .../audits run a crawl from a bare site_url.
func WithCrawler(c *crawler.Client) Option {
	return func(h *Handler) {
		h.crawler = c
	}
}

// WithFixDelay sets the pause taken before each remediation call.
func WithFixDelay(d time.Duration) Option {
	return func(h *Handler) {
		h.fixDelay = d
	}
}

// WithSessionCache replaces the default session cache.
func WithSessionCache(c *SessionCache) Option {
	return func(h *Handler) {
		h.cache = c
	}
}

// NewHandler creates a new API handler.
func NewHandler(backend store.Store, remediator remediation.Service, table scoring.WeightTable, opts ...Option) *Handler {
	h := &Handler{
		backend:    backend,
		remediator: remediator,
		table:      table,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.cache == nil {
		h.cache = NewSessionCacheFromEnv()
	}
	return h
}

// RegisterRoutes registers all API routes on the given ServeMux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/sessions", h.handleCreateSession)
	mux.HandleFunc("DELETE /api/sessions/{id}", h.handleDeleteSession)
	mux.HandleFunc("POST /api/sessions/{id}/audits", h.handleStartAudit)

	mux.HandleFunc("GET /api/sessions/{id}/summary", h.handleSummary)
	mux.HandleFunc("GET /api/sessions/{id}/issues", h.handleIssues)
	mux.HandleFunc("GET /api/sessions/{id}/issues/{type}", h.handleIssueInstances)

	mux.HandleFunc("PUT /api/sessions/{id}/tab", h.handleSetTab)
	mux.HandleFunc("GET /api/sessions/{id}/selection", h.handleGetSelection)
	mux.HandleFunc("POST /api/sessions/{id}/selection/toggle", h.handleToggle)
	mux.HandleFunc("POST /api/sessions/{id}/selection/all", h.handleSelectAll)
	mux.HandleFunc("DELETE /api/sessions/{id}/selection", h.handleClearSelection)

	mux.HandleFunc("POST /api/sessions/{id}/fix", h.handleFixOne)
	mux.HandleFunc("POST /api/sessions/{id}/fix/selected", h.handleFixSelected)
	mux.HandleFunc("POST /api/sessions/{id}/fix/all", h.handleFixAll)
}

// newSession wires a session with its own tracker and coordinator.
func (h *Handler) newSession(id string) *session.Session {
	tracker := selection.NewTracker()
	coord := remediation.NewCoordinator(h.remediator,
		remediation.WithTracker(tracker),
		remediation.WithDelay(h.fixDelay),
	)
	return session.New(id, store.NewSummaryStore(h.backend, id), coord, tracker, h.table)
}

// session returns the cached session for id, resuming it from the store on a
// miss. Sessions with nothing persisted are unknown.
func (h *Handler) session(ctx context.Context, id string) (*session.Session, error) {
	if s := h.cache.Get(id); s != nil {
		return s, nil
	}

	h.loadMu.Lock()
	defer h.loadMu.Unlock()
	if s := h.cache.Get(id); s != nil {
		return s, nil
	}

	s := h.newSession(id)
	found, err := s.Resume(ctx)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, errSessionNotFound
	}
	h.cache.Put(id, s)
	return s, nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeSessionError maps domain errors onto HTTP statuses.
func writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, audit.ErrMalformedReport),
		errors.Is(err, session.ErrUnknownIssueType):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, errSessionNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, remediation.ErrConcurrentFix),
		errors.Is(err, session.ErrSuperseded),
		errors.Is(err, remediation.ErrNoSummary),
		errors.Is(err, remediation.ErrNoActiveTab):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, remediation.ErrFixFailed):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
