// Package config handles loading and managing Crawlscope configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/crawlscope/crawlscope/pkg/scoring"
)

// Config is the top-level configuration for Crawlscope.
type Config struct {
	Scoring     ScoringConfig     `yaml:"scoring"`
	Remediation RemediationConfig `yaml:"remediation"`
	Crawler     CrawlerConfig     `yaml:"crawler"`
	Storage     StorageConfig     `yaml:"storage"`
}

// ScoringConfig extends the built-in issue weight table.
type ScoringConfig struct {
	Weights       map[string]int `yaml:"weights"`
	DefaultWeight int            `yaml:"default_weight"`
}

// RemediationConfig points at the remediation service.
type RemediationConfig struct {
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"api_key"`
	Timeout  int    `yaml:"timeout"` // seconds
	Delay    int    `yaml:"delay"`   // milliseconds before each call
}

// CrawlerConfig points at the crawler service.
type CrawlerConfig struct {
	Endpoint     string `yaml:"endpoint"`
	PollInterval int    `yaml:"poll_interval"` // milliseconds
	Timeout      int    `yaml:"timeout"`       // seconds
}

// StorageConfig selects and configures the persistence backend.
type StorageConfig struct {
	Backend     string `yaml:"backend"` // local, memory, s3, gcs, postgres
	Path        string `yaml:"path"`
	Bucket      string `yaml:"bucket"`
	Prefix      string `yaml:"prefix"`
	Region      string `yaml:"region"`
	Endpoint    string `yaml:"endpoint"`
	DatabaseURL string `yaml:"database_url"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Scoring: ScoringConfig{
			Weights:       map[string]int{},
			DefaultWeight: scoring.DefaultWeight,
		},
		Remediation: RemediationConfig{
			Endpoint: "http://localhost:8081/fix",
			Timeout:  60,
			Delay:    1000,
		},
		Crawler: CrawlerConfig{
			Endpoint:     "http://localhost:8082",
			PollInterval: 2000,
			Timeout:      600,
		},
		Storage: StorageConfig{
			Backend: "local",
		},
	}
}

// Load reads a config file from the given path.
// If the file does not exist, it returns the default config.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects weight overrides outside the allowed range and unknown
// storage backends.
func (c *Config) Validate() error {
	if _, err := c.WeightTable(); err != nil {
		return fmt.Errorf("invalid scoring config: %w", err)
	}
	switch strings.ToLower(c.Storage.Backend) {
	case "", "local", "memory", "s3", "gcs", "postgres":
	default:
		return fmt.Errorf("invalid storage config: unknown backend %q", c.Storage.Backend)
	}
	if c.Remediation.Delay < 0 || c.Crawler.PollInterval < 0 {
		return fmt.Errorf("invalid config: delays must not be negative")
	}
	return nil
}

// WeightTable returns the default weight table with configured overrides
// applied.
func (c *Config) WeightTable() (scoring.WeightTable, error) {
	return scoring.DefaultWeightTable().WithOverrides(c.Scoring.Weights, c.Scoring.DefaultWeight)
}

// RemediationTimeout returns the HTTP timeout for remediation calls.
func (c *Config) RemediationTimeout() time.Duration {
	return time.Duration(c.Remediation.Timeout) * time.Second
}

// RemediationDelay returns the pause taken before each remediation call.
func (c *Config) RemediationDelay() time.Duration {
	return time.Duration(c.Remediation.Delay) * time.Millisecond
}

// CrawlerPollInterval returns how often a running crawl is polled.
func (c *Config) CrawlerPollInterval() time.Duration {
	return time.Duration(c.Crawler.PollInterval) * time.Millisecond
}

// CrawlerTimeout bounds a whole crawl.
func (c *Config) CrawlerTimeout() time.Duration {
	return time.Duration(c.Crawler.Timeout) * time.Second
}

// FindConfigFile looks for .crawlscope/config.yaml in the given directory
// and its parents, returning the path if found, or "" if not.
func FindConfigFile(dir string) string {
	for {
		candidate := filepath.Join(dir, ".crawlscope", "config.yaml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// StateDir returns the local state directory for a project.
// Uses ~/.cache/crawlscope/<project-slug>/ to avoid polluting the project.
func StateDir(projectPath string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to temp dir if HOME isn't available
		home = os.TempDir()
	}
	return filepath.Join(home, ".cache", "crawlscope", projectSlug(projectPath))
}

// StorageDir returns the local store directory for a project.
func StorageDir(projectPath string) string {
	return filepath.Join(StateDir(projectPath), "store")
}

// projectSlug creates a filesystem-safe identifier from a project path.
// Uses the last two path components (e.g., "user_site" from "/home/user/site").
func projectSlug(projectPath string) string {
	abs, err := filepath.Abs(projectPath)
	if err != nil {
		abs = projectPath
	}
	dir := filepath.Base(filepath.Dir(abs))
	base := filepath.Base(abs)
	return dir + "_" + base
}
