package cmd

import (
	"fmt"
	"strconv"

	cfgpkg "github.com/KaramelBytes/datachat-cli/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			return fmt.Errorf("configuration not loaded")
		}
		shown := *cfg
		if shown.APIKey != "" {
			shown.APIKey = "***"
		}
		b, err := yaml.Marshal(&shown)
		if err != nil {
			return fmt.Errorf("marshal config: %w", err)
		}
		cmd.Print(string(b))
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value and save it",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			return fmt.Errorf("configuration not loaded")
		}
		key, val := args[0], args[1]
		if err := applyConfigValue(cfg, key, val); err != nil {
			return err
		}
		if err := cfgpkg.Save(cfg, cfgFile); err != nil {
			return err
		}
		cmd.Printf("✓ Saved %s\n", key)
		return nil
	},
}

func applyConfigValue(c *cfgpkg.Global, key, val string) error {
	switch key {
	case "api_key":
		c.APIKey = val
	case "default_model":
		c.DefaultModel = val
	case "default_provider":
		c.DefaultProvider = val
	case "ollama_host":
		c.OllamaHost = val
	case "max_tokens", "http_timeout_sec", "retry_max_attempts", "retry_base_delay_ms",
		"retry_max_delay_ms", "ask_max_attempts", "ask_retry_delay_sec", "max_upload_mb",
		"ollama_timeout_sec":
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("%s expects an integer: %w", key, err)
		}
		switch key {
		case "max_tokens":
			c.MaxTokens = n
		case "http_timeout_sec":
			c.HTTPTimeoutSec = n
		case "retry_max_attempts":
			c.RetryMaxAttempts = n
		case "retry_base_delay_ms":
			c.RetryBaseDelayMs = n
		case "retry_max_delay_ms":
			c.RetryMaxDelayMs = n
		case "ask_max_attempts":
			c.AskMaxAttempts = n
		case "ask_retry_delay_sec":
			c.AskRetryDelaySec = n
		case "max_upload_mb":
			c.MaxUploadMB = n
		case "ollama_timeout_sec":
			c.OllamaTimeoutSec = n
		}
	case "temperature":
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("temperature expects a number: %w", err)
		}
		c.Temperature = f
	default:
		return fmt.Errorf("unknown config key %q", key)
	}
	return nil
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}
