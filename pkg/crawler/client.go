// Package crawler talks to the external crawler service that produces raw
// audit reports.
package crawler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/crawlscope/crawlscope/pkg/audit"
)

// Job states reported by the crawler.
const (
	StatusQueued    = "queued"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Progress is the crawler's view of a running job. Percent is passed through
// as reported.
type Progress struct {
	JobID   string  `json:"job_id"`
	Status  string  `json:"status"`
	Percent float64 `json:"progress"`
	Error   string  `json:"error,omitempty"`
}

// Done reports whether the job reached a terminal state.
func (p Progress) Done() bool {
	return p.Status == StatusCompleted || p.Status == StatusFailed
}

// Client is an HTTP client for the crawler API.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	pollInterval time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithPollInterval sets how often Run checks job status.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// NewClient creates a crawler client rooted at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		pollInterval: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start submits siteURL for auditing and returns the job id.
func (c *Client) Start(ctx context.Context, siteURL string) (string, error) {
	body, err := json.Marshal(map[string]string{"site_url": siteURL})
	if err != nil {
		return "", fmt.Errorf("marshal audit request: %w", err)
	}

	var resp struct {
		JobID string `json:"job_id"`
	}
	if err := c.do(ctx, http.MethodPost, "/audits", bytes.NewReader(body), &resp); err != nil {
		return "", fmt.Errorf("starting audit: %w", err)
	}
	if resp.JobID == "" {
		return "", fmt.Errorf("starting audit: response carried no job_id")
	}
	return resp.JobID, nil
}

// Status fetches the progress of a job.
func (c *Client) Status(ctx context.Context, jobID string) (Progress, error) {
	var p Progress
	if err := c.do(ctx, http.MethodGet, "/audits/"+url.PathEscape(jobID), nil, &p); err != nil {
		return Progress{}, fmt.Errorf("fetching audit status: %w", err)
	}
	if p.JobID == "" {
		p.JobID = jobID
	}
	return p, nil
}

// Results fetches and parses the finished report for a job.
func (c *Client) Results(ctx context.Context, jobID string) (*audit.RawAuditReport, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/audits/"+url.PathEscape(jobID)+"/results", nil, &raw); err != nil {
		return nil, fmt.Errorf("fetching audit results: %w", err)
	}
	return audit.ParseReport(raw)
}

// Run starts an audit and polls until it finishes. onProgress, if non-nil,
// receives every status observed.
func (c *Client) Run(ctx context.Context, siteURL string, onProgress func(Progress)) (*audit.RawAuditReport, error) {
	jobID, err := c.Start(ctx, siteURL)
	if err != nil {
		return nil, err
	}

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		p, err := c.Status(ctx, jobID)
		if err != nil {
			return nil, err
		}
		if onProgress != nil {
			onProgress(p)
		}

		switch p.Status {
		case StatusCompleted:
			return c.Results(ctx, jobID)
		case StatusFailed:
			msg := p.Error
			if msg == "" {
				msg = "no reason given"
			}
			return nil, fmt.Errorf("audit %s failed: %s", jobID, msg)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("crawler error %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
