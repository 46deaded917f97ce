package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/crawlscope/crawlscope/internal/api"
	"github.com/crawlscope/crawlscope/pkg/crawler"
	"github.com/crawlscope/crawlscope/pkg/remediation"
)

func newServeCmd() *cobra.Command {
	var (
		projectPath string
		port        string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start a local dashboard API server",
		Long: `Starts an HTTP server on localhost that serves the dashboard API over the
project's configured store. Sessions started by 'crawlscope audit' are
reachable under their session name.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), projectPath, port)
		},
	}

	cmd.Flags().StringVar(&projectPath, "project", "", "Project directory holding .crawlscope/config.yaml (default: current directory)")
	cmd.Flags().StringVar(&port, "port", "7700", "Port to serve on")

	return cmd
}

func runServe(ctx context.Context, projectPath, port string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	root, err := resolveProject(projectPath)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	table, err := cfg.WeightTable()
	if err != nil {
		return err
	}
	backend, closeStore, err := openStore(ctx, root, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	client := remediation.NewClient(cfg.Remediation.Endpoint,
		remediation.WithAPIKey(cfg.Remediation.APIKey),
		remediation.WithHTTPClient(&http.Client{Timeout: cfg.RemediationTimeout()}),
	)
	opts := []api.Option{api.WithFixDelay(cfg.RemediationDelay())}
	if cfg.Crawler.Endpoint != "" {
		opts = append(opts, api.WithCrawler(crawler.NewClient(cfg.Crawler.Endpoint,
			crawler.WithPollInterval(cfg.CrawlerPollInterval()))))
	}

	h := api.NewHandler(backend, client, table, opts...)
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	srv := &http.Server{
		Addr:    "localhost:" + port,
		Handler: api.RequestLog(api.CORS(mux)),
	}

	fmt.Fprintf(os.Stderr, "Crawlscope API server\n")
	fmt.Fprintf(os.Stderr, "  Project:      %s\n", root)
	fmt.Fprintf(os.Stderr, "  Storage:      %s\n", firstNonEmpty(cfg.Storage.Backend, "local"))
	fmt.Fprintf(os.Stderr, "  Remediation:  %s\n", cfg.Remediation.Endpoint)
	fmt.Fprintf(os.Stderr, "  Listening:    http://localhost:%s\n", port)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	return srv.Shutdown(context.Background())
}
