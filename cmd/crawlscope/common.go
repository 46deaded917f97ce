package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/crawlscope/crawlscope/internal/store"
	"github.com/crawlscope/crawlscope/pkg/config"
)

const defaultSession = "default"

// projectFlags are shared by every command that reads local state.
type projectFlags struct {
	projectPath string
	sessionID   string
}

func (f *projectFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.projectPath, "project", "", "Project directory holding .crawlscope/config.yaml (default: current directory)")
	cmd.Flags().StringVar(&f.sessionID, "session", defaultSession, "Session name to read and write")
}

func resolveProject(projectPath string) (string, error) {
	if projectPath == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getting working directory: %w", err)
		}
		projectPath = cwd
	}
	abs, err := filepath.Abs(projectPath)
	if err != nil {
		return "", fmt.Errorf("resolving project path: %w", err)
	}
	return abs, nil
}

func loadConfig(projectRoot string) (*config.Config, error) {
	cfgFile := config.FindConfigFile(projectRoot)
	if cfgFile == "" {
		return config.DefaultConfig(), nil
	}
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", cfgFile, err)
	}
	return cfg, nil
}

// openStore opens the configured backend. A local backend without a path
// stores under the project's state directory.
func openStore(ctx context.Context, projectRoot string, cfg *config.Config) (store.Store, func() error, error) {
	sc := cfg.Storage
	if (sc.Backend == "" || strings.EqualFold(sc.Backend, "local")) && sc.Path == "" {
		sc.Path = config.StorageDir(projectRoot)
	}
	return store.Open(ctx, sc)
}

// setup resolves the project, loads its config, and opens the session's
// summary store.
func setup(ctx context.Context, f projectFlags) (*config.Config, *store.SummaryStore, func() error, error) {
	root, err := resolveProject(f.projectPath)
	if err != nil {
		return nil, nil, nil, err
	}
	cfg, err := loadConfig(root)
	if err != nil {
		return nil, nil, nil, err
	}
	backend, closeFn, err := openStore(ctx, root, cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	sessionID := firstNonEmpty(f.sessionID, defaultSession)
	return cfg, store.NewSummaryStore(backend, sessionID), closeFn, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
