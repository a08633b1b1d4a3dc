package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/KaramelBytes/datachat-cli/internal/ai"
	"github.com/KaramelBytes/datachat-cli/internal/dataset"
	"github.com/spf13/cobra"
)

// loadTable opens a CSV file and builds the table, its schema summary, and a
// fresh resolver bound to it.
func loadTable(path string) (*dataset.Table, *dataset.Summary, *dataset.Resolver, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	maxBytes := int64(dataset.DefaultMaxBytes)
	if cfg != nil && cfg.MaxUploadMB > 0 {
		maxBytes = int64(cfg.MaxUploadMB) << 20
	}
	t, err := dataset.LoadLimit(f, path, maxBytes)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load %s: %w", path, err)
	}
	sum := dataset.Summarize(t)
	debugf("loaded table %s: %d rows, %d columns\n", t.ID, sum.Rows, sum.Cols)
	return t, sum, dataset.NewResolver(t), nil
}

// buildRuntime selects an AI runtime from config plus per-command overrides.
func buildRuntime(provider string) (ai.Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}
	if provider == "" {
		provider = cfg.DefaultProvider
	}
	switch provider {
	case ai.ProviderOllama, ai.ProviderLocal:
		return ai.NewOllamaClient(
			cfg.OllamaHost,
			time.Duration(cfg.OllamaTimeoutSec)*time.Second,
			cfg.RetryMaxAttempts,
			time.Duration(cfg.RetryBaseDelayMs)*time.Millisecond,
		), nil
	case ai.ProviderOpenRouter, "":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("no API key configured; set DATACHAT_API_KEY or use --offline")
		}
		return ai.NewClient(
			cfg.APIKey,
			time.Duration(cfg.HTTPTimeoutSec)*time.Second,
			cfg.RetryMaxAttempts,
			time.Duration(cfg.RetryBaseDelayMs)*time.Millisecond,
			time.Duration(cfg.RetryMaxDelayMs)*time.Millisecond,
		), nil
	}
	return nil, fmt.Errorf("unknown provider %q", provider)
}

// writeFigure writes chart JSON to a file, or prints it when out is empty.
func writeFigure(cmd *cobra.Command, fig []byte, out string) error {
	if out == "" {
		cmd.Println(string(fig))
		return nil
	}
	if err := os.WriteFile(out, fig, 0o644); err != nil {
		return fmt.Errorf("write chart: %w", err)
	}
	cmd.Printf("Chart written to %s\n", out)
	return nil
}
