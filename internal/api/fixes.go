package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/crawlscope/crawlscope/internal/session"
	"github.com/crawlscope/crawlscope/pkg/remediation"
)

type fixOneRequest struct {
	URL string `json:"url"`
}

type fixResponse struct {
	Result *remediation.Result `json:"result"`
	Score  int                 `json:"score"`
	Grade  string              `json:"grade"`
}

func (h *Handler) handleFixOne(w http.ResponseWriter, r *http.Request) {
	var req fixOneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}
	h.runFix(w, r, func(ctx context.Context, s *session.Session) (*remediation.Result, error) {
		return s.FixOne(ctx, req.URL)
	})
}

func (h *Handler) handleFixSelected(w http.ResponseWriter, r *http.Request) {
	h.runFix(w, r, func(ctx context.Context, s *session.Session) (*remediation.Result, error) {
		return s.FixSelected(ctx)
	})
}

func (h *Handler) handleFixAll(w http.ResponseWriter, r *http.Request) {
	h.runFix(w, r, func(ctx context.Context, s *session.Session) (*remediation.Result, error) {
		return s.FixAll(ctx)
	})
}

func (h *Handler) runFix(w http.ResponseWriter, r *http.Request, fix func(context.Context, *session.Session) (*remediation.Result, error)) {
	id := r.PathValue("id")
	s, err := h.session(r.Context(), id)
	if err != nil {
		writeSessionError(w, err)
		return
	}

	res, err := fix(r.Context(), s)
	if err != nil {
		if !errors.Is(err, remediation.ErrConcurrentFix) {
			log.Printf("session %s: fix failed: %v", id, err)
		}
		writeSessionError(w, err)
		return
	}

	resp := fixResponse{Result: res}
	if summary := s.Summary(); summary != nil {
		resp.Score = summary.Score
		resp.Grade = summary.Grade()
	}
	writeJSON(w, http.StatusOK, resp)
}
