package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/umbra-dev/umbra/internal/ai"
	"github.com/umbra-dev/umbra/internal/config"
	"github.com/umbra-dev/umbra/internal/tracker"
)

// resolveRoot turns an optional positional path argument into an
// absolute project root.
func resolveRoot(args []string) (string, error) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving path %q: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("project path: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s is not a directory", abs)
	}
	return abs, nil
}

func projectName(root string) string {
	return filepath.Base(root)
}

// mustGenerator builds a Gemini client or exits with a friendly message.
// Commands that can degrade without a key should not use this.
func mustGenerator(ctx context.Context, cfg *config.Config) *ai.Client {
	if err := cfg.RequireAPIKey(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	client, err := ai.NewClient(ctx, ai.Config{APIKey: cfg.APIKey, Model: cfg.Model})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to create Gemini client: %v\n", err)
		os.Exit(1)
	}
	return client
}

// loadConfig reads .env and the environment for the given project root.
func loadConfig(root string) *config.Config {
	cfg, err := config.Load(root)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

// outputPath resolves the architecture file relative to the project root
// unless the configured path is already absolute.
func outputPath(root string, cfg *config.Config) string {
	if filepath.IsAbs(cfg.OutputFile) {
		return cfg.OutputFile
	}
	return filepath.Join(root, cfg.OutputFile)
}

// historyPath is where the watch loop persists change history.
func historyPath(cfg *config.Config) string {
	return filepath.Join(filepath.Dir(cfg.OutputFile), "umbra.db")
}

// loadSessionChanges reads the most recent watch session's history from
// the database next to the output file. Best effort: a missing database
// or empty history yields nil.
func loadSessionChanges(ctx context.Context, cfg *config.Config, limit int) []tracker.Change {
	dbPath := historyPath(cfg)
	if _, err := os.Stat(dbPath); err != nil {
		return nil
	}
	store, err := tracker.OpenStore(dbPath)
	if err != nil {
		return nil
	}
	defer store.Close()

	session, err := store.LatestSessionID(ctx)
	if err != nil || session == "" {
		return nil
	}
	changes, err := store.ListChanges(ctx, session, limit)
	if err != nil {
		return nil
	}
	return changes
}
