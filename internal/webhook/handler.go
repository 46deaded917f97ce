package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/crawlscope/crawlscope/pkg/audit"
)

const maxPayloadBytes = 64 << 20

// Ingestor starts a session's audit from a pushed report.
type Ingestor interface {
	IngestAudit(ctx context.Context, sessionID string, raw *audit.RawAuditReport) error
}

// Handler processes incoming crawler webhook events.
type Handler struct {
	secret   []byte
	ingestor Ingestor
}

// NewHandler creates a new webhook Handler.
func NewHandler(secret []byte, ingestor Ingestor) *Handler {
	return &Handler{
		secret:   secret,
		ingestor: ingestor,
	}
}

// ServeHTTP handles incoming webhook requests.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadBytes))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	signature := r.Header.Get("X-Crawlscope-Signature-256")
	if err := VerifySignature(body, signature, h.secret); err != nil {
		log.Printf("webhook signature verification failed: %v", err)
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	eventType := r.Header.Get("X-Crawlscope-Event")
	if eventType == "" {
		http.Error(w, "missing X-Crawlscope-Event header", http.StatusBadRequest)
		return
	}

	event, err := ParseEvent(eventType, body)
	if err != nil {
		log.Printf("webhook parse error for %s: %v", eventType, err)
		http.Error(w, "unsupported event", http.StatusBadRequest)
		return
	}

	ctx := r.Context()

	switch e := event.(type) {
	case *AuditCompletedEvent:
		if err := h.handleCompleted(ctx, e); err != nil {
			log.Printf("handle %s event for job %s: %v", eventType, e.JobID, err)
			if errors.Is(err, audit.ErrMalformedReport) {
				http.Error(w, "malformed report", http.StatusBadRequest)
				return
			}
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

	case *AuditFailedEvent:
		log.Printf("crawl job %s for session %s (%s) failed: %s", e.JobID, e.SessionID, e.SiteURL, e.Error)
	}

	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "accepted"})
}

func (h *Handler) handleCompleted(ctx context.Context, e *AuditCompletedEvent) error {
	raw, err := audit.ParseReport(e.Report)
	if err != nil {
		return err
	}
	if err := h.ingestor.IngestAudit(ctx, e.SessionID, raw); err != nil {
		return err
	}
	log.Printf("ingested crawl job %s into session %s", e.JobID, e.SessionID)
	return nil
}
