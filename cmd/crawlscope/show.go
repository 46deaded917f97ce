package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/crawlscope/crawlscope/pkg/surface"
)

func newShowCmd() *cobra.Command {
	var (
		pf           projectFlags
		outputFmt    string
		tab          string
		showFallback bool
	)

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Render the session's stored audit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(cmd.Context(), showOpts{
				project:      pf,
				outputFmt:    outputFmt,
				tab:          tab,
				showFallback: showFallback,
			})
		},
	}

	pf.register(cmd)
	cmd.Flags().StringVar(&outputFmt, "output", "text", "Output format: text, json or markdown")
	cmd.Flags().StringVar(&tab, "tab", "", "List the open URLs of one issue type")
	cmd.Flags().BoolVar(&showFallback, "fallback", false, "Also show the pass-rate fallback score")

	return cmd
}

type showOpts struct {
	project      projectFlags
	outputFmt    string
	tab          string
	showFallback bool
}

func runShow(ctx context.Context, opts showOpts) error {
	if ctx == nil {
		ctx = context.Background()
	}

	renderer, err := surface.ForFormat(opts.outputFmt)
	if err != nil {
		return err
	}
	if tr, ok := renderer.(*surface.TerminalRenderer); ok {
		tr.Tab = opts.tab
		tr.ShowFallback = opts.showFallback
	}

	_, summaries, closeStore, err := setup(ctx, opts.project)
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

	return renderer.Render(os.Stdout, summary)
}
