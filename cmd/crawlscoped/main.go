// Command crawlscoped is the Crawlscope dashboard service.
// It serves the session API, backed by a shared store, the crawler webhook
// endpoint, and a health check.
package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/crawlscope/crawlscope/internal/api"
	"github.com/crawlscope/crawlscope/internal/store"
	"github.com/crawlscope/crawlscope/internal/webhook"
	"github.com/crawlscope/crawlscope/pkg/config"
	"github.com/crawlscope/crawlscope/pkg/crawler"
	"github.com/crawlscope/crawlscope/pkg/remediation"
	"github.com/crawlscope/crawlscope/pkg/scoring"
)

type serviceConfig struct {
	Port           string
	APIKey         string
	RemediationURL string
	RemediationKey string
	CrawlerURL     string
	WebhookSecret  string
	FixDelay       time.Duration
	Storage        config.StorageConfig
}

func loadConfig() serviceConfig {
	backend := envOrDefault("STORAGE_BACKEND", "local")
	bucket := os.Getenv("GCS_BUCKET")
	if backend == "s3" {
		bucket = os.Getenv("S3_BUCKET")
	}

	delay := time.Second
	if v := os.Getenv("FIX_DELAY_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms >= 0 {
			delay = time.Duration(ms) * time.Millisecond
		}
	}

	return serviceConfig{
		Port:           envOrDefault("PORT", "8080"),
		APIKey:         os.Getenv("API_KEY"),
		RemediationURL: envOrDefault("REMEDIATION_URL", "http://localhost:8081/fix"),
		RemediationKey: os.Getenv("REMEDIATION_API_KEY"),
		CrawlerURL:     os.Getenv("CRAWLER_URL"),
		WebhookSecret:  os.Getenv("CRAWLER_WEBHOOK_SECRET"),
		FixDelay:       delay,
		Storage: config.StorageConfig{
			Backend:     backend,
			Path:        envOrDefault("LOCAL_STORAGE_PATH", "/tmp/crawlscope-data"),
			Bucket:      bucket,
			Prefix:      os.Getenv("STORAGE_PREFIX"),
			Region:      os.Getenv("AWS_REGION"),
			Endpoint:    os.Getenv("S3_ENDPOINT"),
			DatabaseURL: envOrDefault("DATABASE_URL", "postgres://localhost:5432/crawlscope?sslmode=disable"),
		},
	}
}

func main() {
	cfg := loadConfig()
	ctx := context.Background()

	backend, closeStore, err := store.Open(ctx, cfg.Storage)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer closeStore()

	remediator := remediation.NewClient(cfg.RemediationURL, remediation.WithAPIKey(cfg.RemediationKey))

	opts := []api.Option{
		api.WithFixDelay(cfg.FixDelay),
		api.WithSessionCache(api.NewSessionCacheFromEnv()),
	}
	if cfg.CrawlerURL != "" {
		opts = append(opts, api.WithCrawler(crawler.NewClient(cfg.CrawlerURL)))
	}
	h := api.NewHandler(backend, remediator, scoring.DefaultWeightTable(), opts...)

	apiMux := http.NewServeMux()
	h.RegisterRoutes(apiMux)

	mux := http.NewServeMux()
	mux.Handle("/api/", api.APIKeyAuth(cfg.APIKey)(apiMux))
	mux.HandleFunc("GET /healthz", healthHandler(backend))
	if cfg.WebhookSecret != "" {
		mux.Handle("POST /v1/webhooks/crawler", webhook.NewHandler([]byte(cfg.WebhookSecret), h))
	} else {
		log.Printf("CRAWLER_WEBHOOK_SECRET not set; crawler webhook disabled")
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: api.RequestLog(api.CORS(mux)),
	}

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("starting crawlscoped on :%s (storage=%s)", cfg.Port, cfg.Storage.Backend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}

type pinger interface {
	Ping(ctx context.Context) error
}

func healthHandler(backend store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if p, ok := backend.(pinger); ok {
			if err := p.Ping(r.Context()); err != nil {
				http.Error(w, "store unreachable", http.StatusServiceUnavailable)
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
