package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/crawlscope/crawlscope/pkg/audit"
	"github.com/crawlscope/crawlscope/pkg/config"
	"github.com/crawlscope/crawlscope/pkg/remediation"
)

func newFixCmd() *cobra.Command {
	var (
		pf        projectFlags
		issueType string
		urls      []string
		all       bool
	)

	cmd := &cobra.Command{
		Use:   "fix",
		Short: "Send fixes for one issue type to the remediation service",
		Long: `Requests remediation for the given URLs (--url, repeatable) or every open
instance (--all) of one issue type. The stored audit is updated only after
the remediation service confirms the whole batch.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFix(cmd.Context(), fixOpts{
				project:   pf,
				issueType: issueType,
				urls:      urls,
				all:       all,
			})
		},
	}

	pf.register(cmd)
	cmd.Flags().StringVar(&issueType, "type", "", "Issue type to fix, e.g. h1_presence (required)")
	cmd.Flags().StringArrayVar(&urls, "url", nil, "URL to fix (repeatable)")
	cmd.Flags().BoolVar(&all, "all", false, "Fix every open instance of the issue type")
	_ = cmd.MarkFlagRequired("type")
	cmd.MarkFlagsMutuallyExclusive("url", "all")
	cmd.MarkFlagsOneRequired("url", "all")

	return cmd
}

type fixOpts struct {
	project   projectFlags
	issueType string
	urls      []string
	all       bool
}

func runFix(ctx context.Context, opts fixOpts) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, summaries, closeStore, err := setup(ctx, opts.project)
	if err != nil {
		return err
	}
	defer closeStore()

	summary, err := summaries.LoadSummary(ctx)
	if err != nil {
		return err
	}
	if summary == nil {
		return fmt.Errorf("no audit stored for session %q; run 'crawlscope audit' first", summaries.SessionID())
	}
	if _, ok := summary.IssuesByType[opts.issueType]; !ok {
		return fmt.Errorf("no open %s issues in session %q", opts.issueType, summaries.SessionID())
	}

	coord := newCoordinator(cfg, remediation.WithPersister(summaries))

	count := len(opts.urls)
	if opts.all {
		count = len(summary.IssuesByType[opts.issueType])
	}
	fmt.Fprintf(os.Stderr, "Requesting remediation of %d %s issue(s)...\n", count, opts.issueType)

	var (
		next *audit.AuditSummary
		res  *remediation.Result
	)
	if opts.all {
		next, res, err = coord.FixAll(ctx, summary, opts.issueType)
	} else {
		next, res, err = coord.FixSelected(ctx, summary, opts.issueType, opts.urls)
	}

	switch {
	case errors.Is(err, remediation.ErrPersist):
		fmt.Fprintf(os.Stderr, "Warning: fix applied but not saved: %v\n", err)
	case err != nil:
		return err
	}

	if len(res.Fixed) == 0 {
		fmt.Fprintf(os.Stderr, "Nothing to fix: none of the given URLs has an open %s issue\n", opts.issueType)
		return nil
	}
	fmt.Printf("Fixed %d %s issue(s); score %d -> %d (grade %s)\n",
		len(res.Fixed), opts.issueType, res.ScoreBefore, res.ScoreAfter, next.Grade())
	return nil
}

func newCoordinator(cfg *config.Config, opts ...remediation.Option) *remediation.Coordinator {
	client := remediation.NewClient(cfg.Remediation.Endpoint,
		remediation.WithAPIKey(cfg.Remediation.APIKey),
		remediation.WithHTTPClient(&http.Client{Timeout: cfg.RemediationTimeout()}),
	)
	opts = append([]remediation.Option{remediation.WithDelay(cfg.RemediationDelay())}, opts...)
	return remediation.NewCoordinator(client, opts...)
}
