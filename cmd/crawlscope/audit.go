package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/crawlscope/crawlscope/pkg/audit"
	"github.com/crawlscope/crawlscope/pkg/config"
	"github.com/crawlscope/crawlscope/pkg/crawler"
	"github.com/crawlscope/crawlscope/pkg/surface"
)

func newAuditCmd() *cobra.Command {
	var (
		pf         projectFlags
		reportPath string
		siteURL    string
		outputFmt  string
	)

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Score a crawler report and store it as the session's audit",
		Long: `Aggregates a raw audit report into a summary, computes the health score,
and replaces the session's stored audit. The report comes from a file
(--report) or from a crawl run through the configured crawler (--site).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAudit(cmd.Context(), auditOpts{
				project:    pf,
				reportPath: reportPath,
				siteURL:    siteURL,
				outputFmt:  outputFmt,
			})
		},
	}

	pf.register(cmd)
	cmd.Flags().StringVar(&reportPath, "report", "", "Path to a raw audit report JSON file")
	cmd.Flags().StringVar(&siteURL, "site", "", "Site URL to crawl through the configured crawler")
	cmd.Flags().StringVar(&outputFmt, "output", "text", "Output format: text, json or markdown")
	cmd.MarkFlagsMutuallyExclusive("report", "site")
	cmd.MarkFlagsOneRequired("report", "site")

	return cmd
}

type auditOpts struct {
	project    projectFlags
	reportPath string
	siteURL    string
	outputFmt  string
}

func runAudit(ctx context.Context, opts auditOpts) error {
	if ctx == nil {
		ctx = context.Background()
	}

	renderer, err := surface.ForFormat(opts.outputFmt)
	if err != nil {
		return err
	}

	cfg, summaries, closeStore, err := setup(ctx, opts.project)
	if err != nil {
		return err
	}
	defer closeStore()

	table, err := cfg.WeightTable()
	if err != nil {
		return err
	}

	var raw *audit.RawAuditReport
	if opts.reportPath != "" {
		fmt.Fprintf(os.Stderr, "Loading report %s...\n", opts.reportPath)
		raw, err = audit.LoadReport(opts.reportPath)
	} else {
		raw, err = crawl(ctx, cfg, opts.siteURL)
	}
	if err != nil {
		return err
	}

	summary, err := audit.Aggregate(raw, table)
	if err != nil {
		return fmt.Errorf("aggregating report: %w", err)
	}

	if err := summaries.Discard(ctx); err != nil {
		return err
	}
	if err := summaries.SaveSummary(ctx, summary); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Saved audit to session %q\n\n", summaries.SessionID())

	return renderer.Render(os.Stdout, summary)
}

func crawl(ctx context.Context, cfg *config.Config, siteURL string) (*audit.RawAuditReport, error) {
	if cfg.Crawler.Endpoint == "" {
		return nil, fmt.Errorf("no crawler endpoint configured (set crawler.endpoint in .crawlscope/config.yaml)")
	}

	if timeout := cfg.CrawlerTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	fmt.Fprintf(os.Stderr, "Crawling %s via %s...\n", siteURL, cfg.Crawler.Endpoint)
	client := crawler.NewClient(cfg.Crawler.Endpoint, crawler.WithPollInterval(cfg.CrawlerPollInterval()))

	start := time.Now()
	raw, err := client.Run(ctx, siteURL, func(p crawler.Progress) {
		fmt.Fprintf(os.Stderr, "  %s: %.0f%%\n", p.Status, p.Percent)
	})
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(os.Stderr, "  Crawled %d URLs in %s\n", len(raw.URLs), time.Since(start).Round(time.Second))
	return raw, nil
}
