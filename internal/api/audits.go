package api

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/crawlscope/crawlscope/pkg/audit"
	"github.com/crawlscope/crawlscope/pkg/crawler"
	"github.com/crawlscope/crawlscope/pkg/remediation"
)

const maxReportBytes = 64 << 20

// crawlRequest is the short form of POST .../audits: a site to crawl instead
// of a finished report.
type crawlRequest struct {
	SiteURL string          `json:"site_url"`
	URLs    json.RawMessage `json:"urls"`
}

// handleStartAudit handles POST /api/sessions/{id}/audits. The body is either
// a raw audit report or {"site_url": ...} when a crawler is configured.
func (h *Handler) handleStartAudit(w http.ResponseWriter, r *http.Request) {
	// Support gzip-compressed request bodies
	var body io.Reader = http.MaxBytesReader(w, r.Body, maxReportBytes)
	if r.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(body)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid gzip body: "+err.Error())
			return
		}
		defer gz.Close()
		body = gz
	}

	data, err := io.ReadAll(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body: "+err.Error())
		return
	}

	ctx := r.Context()
	id := r.PathValue("id")

	var probe crawlRequest
	if err := json.Unmarshal(data, &probe); err != nil {
		writeSessionError(w, &audit.MalformedReportError{Reason: "invalid JSON", Cause: err})
		return
	}

	var raw *audit.RawAuditReport
	if probe.URLs == nil && probe.SiteURL != "" {
		if h.crawler == nil {
			writeError(w, http.StatusBadRequest, "no crawler configured; submit a full report")
			return
		}
		raw, err = h.crawler.Run(ctx, probe.SiteURL, func(p crawler.Progress) {
			log.Printf("session %s: crawl %s %s %.0f%%", id, p.JobID, p.Status, p.Percent)
		})
		if err != nil {
			if errors.Is(err, audit.ErrMalformedReport) {
				writeSessionError(w, err)
				return
			}
			writeError(w, http.StatusBadGateway, "crawl failed: "+err.Error())
			return
		}
	} else {
		raw, err = audit.ParseReport(data)
		if err != nil {
			writeSessionError(w, err)
			return
		}
	}

	summary, err := h.startAudit(ctx, id, raw)
	if err != nil {
		writeSessionError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, summaryResponse{Audit: summary, Grade: summary.Grade()})
}

// IngestAudit replaces the audit of session id with raw, creating the
// session if needed. It serves audits pushed by the crawler webhook.
func (h *Handler) IngestAudit(ctx context.Context, id string, raw *audit.RawAuditReport) error {
	summary, err := h.startAudit(ctx, id, raw)
	if err != nil {
		return err
	}
	log.Printf("session %s: ingested audit of %s (score %d)", id, summary.SiteURL, summary.Score)
	return nil
}

// startAudit runs a new audit on the session. A persist failure still leaves
// the new audit live in the cached session.
func (h *Handler) startAudit(ctx context.Context, id string, raw *audit.RawAuditReport) (*audit.AuditSummary, error) {
	s, err := h.session(ctx, id)
	if ignoreNotFound(err) != nil {
		return nil, err
	}
	if s == nil {
		s = h.newSession(id)
	}

	summary, err := s.Start(ctx, raw)
	if err != nil && !errors.Is(err, remediation.ErrPersist) {
		return nil, err
	}
	h.cache.Put(id, s)
	return summary, err
}
