// Package webhook receives signed job notifications from the crawler.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// Event names sent in the X-Crawlscope-Event header.
const (
	EventAuditCompleted = "audit.completed"
	EventAuditFailed    = "audit.failed"
)

// VerifySignature validates the X-Crawlscope-Signature-256 header against the
// payload.
func VerifySignature(payload []byte, signature string, secret []byte) error {
	if !strings.HasPrefix(signature, "sha256=") {
		return fmt.Errorf("invalid signature format")
	}
	sig, err := hex.DecodeString(signature[7:])
	if err != nil {
		return fmt.Errorf("decode signature: %w", err)
	}

	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)
	expected := mac.Sum(nil)

	if !hmac.Equal(sig, expected) {
		return fmt.Errorf("signature mismatch")
	}
	return nil
}

// Sign returns the signature header value for payload.
func Sign(payload, secret []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// AuditCompletedEvent carries a finished crawl. Report is the raw audit
// report, decoded by the handler.
type AuditCompletedEvent struct {
	JobID     string          `json:"job_id"`
	SessionID string          `json:"session_id"`
	Report    json.RawMessage `json:"report"`
}

// AuditFailedEvent reports a crawl that ended without a report.
type AuditFailedEvent struct {
	JobID     string `json:"job_id"`
	SessionID string `json:"session_id"`
	SiteURL   string `json:"site_url"`
	Error     string `json:"error"`
}

// ParseEvent parses a webhook payload based on the event type.
func ParseEvent(eventType string, payload []byte) (interface{}, error) {
	switch eventType {
	case EventAuditCompleted:
		var e AuditCompletedEvent
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, fmt.Errorf("parse %s event: %w", eventType, err)
		}
		if e.SessionID == "" {
			return nil, fmt.Errorf("parse %s event: session_id is required", eventType)
		}
		return &e, nil
	case EventAuditFailed:
		var e AuditFailedEvent
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, fmt.Errorf("parse %s event: %w", eventType, err)
		}
		return &e, nil
	default:
		return nil, fmt.Errorf("unsupported event type: %s", eventType)
	}
}
