package api

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/crawlscope/crawlscope/internal/store"
	"github.com/crawlscope/crawlscope/pkg/audit"
	"github.com/crawlscope/crawlscope/pkg/scoring"
)

type summaryResponse struct {
	Audit *audit.AuditSummary `json:"audit"`
	Grade string              `json:"grade"`
	Tab   string              `json:"tab,omitempty"`
}

type issuesResponse struct {
	Issues []scoring.IssueTypeImpact `json:"issues"`
	Tab    string                    `json:"tab,omitempty"`
}

type instancesResponse struct {
	IssueType string                `json:"issue_type"`
	Weight    int                   `json:"weight"`
	Instances []audit.IssueInstance `json:"instances"`
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	id := uuid.New().String()
	h.cache.Put(id, h.newSession(id))
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (h *Handler) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if s := h.cache.Get(id); s != nil {
		if err := s.Reset(r.Context()); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to discard session: "+err.Error())
			return
		}
	} else if err := store.NewSummaryStore(h.backend, id).Discard(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to discard session: "+err.Error())
		return
	}
	h.cache.Remove(id)

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r.Context(), r.PathValue("id"))
	if err != nil {
		writeSessionError(w, err)
		return
	}

	summary := s.Summary()
	if summary == nil {
		writeError(w, http.StatusNotFound, "no audit has been run for this session")
		return
	}
	writeJSON(w, http.StatusOK, summaryResponse{Audit: summary, Grade: summary.Grade(), Tab: s.Tab()})
}

func (h *Handler) handleIssues(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r.Context(), r.PathValue("id"))
	if err != nil {
		writeSessionError(w, err)
		return
	}

	issues := s.Issues()
	if issues == nil {
		issues = []scoring.IssueTypeImpact{}
	}
	writeJSON(w, http.StatusOK, issuesResponse{Issues: issues, Tab: s.Tab()})
}

func (h *Handler) handleIssueInstances(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r.Context(), r.PathValue("id"))
	if err != nil {
		writeSessionError(w, err)
		return
	}

	issueType := r.PathValue("type")
	summary := s.Summary()
	if summary == nil {
		writeError(w, http.StatusNotFound, "no audit has been run for this session")
		return
	}
	instances, ok := summary.IssuesByType[issueType]
	if !ok {
		writeError(w, http.StatusNotFound, "no open issues of type "+issueType)
		return
	}
	writeJSON(w, http.StatusOK, instancesResponse{
		IssueType: issueType,
		Weight:    instances[0].Weight,
		Instances: instances,
	})
}

// ignoreNotFound treats a missing session as an empty one for handlers that
// create state.
func ignoreNotFound(err error) error {
	if errors.Is(err, errSessionNotFound) {
		return nil
	}
	return err
}
