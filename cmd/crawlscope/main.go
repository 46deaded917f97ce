// Package main provides the crawlscope CLI entry point.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "crawlscope",
		Short: "Site health audits with one-click remediation",
		Long: `Crawlscope turns crawler audit reports into a weighted site health score,
ranks the open issues by impact, and sends fixes to a remediation service.`,
		Version: version,
	}

	rootCmd.AddCommand(
		newAuditCmd(),
		newShowCmd(),
		newFixCmd(),
		newServeCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
