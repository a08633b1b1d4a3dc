package cmd

import (
	"fmt"
	"time"

	"github.com/KaramelBytes/datachat-cli/internal/ai"
	"github.com/KaramelBytes/datachat-cli/internal/query"
	"github.com/KaramelBytes/datachat-cli/internal/viz"
	"github.com/spf13/cobra"
)

var (
	askProvider string
	askModel    string
	askOffline  bool
	askOut      string
	askNoChart  bool
)

var askCmd = &cobra.Command{
	Use:   "ask <file.csv> <question>",
	Short: "Ask a natural-language question about a CSV file",
	Long: `Ask loads the CSV, sends the question plus the table schema to the configured
language model, and prints the answer. On model failure the rule-based query
engine answers instead. When the answer suggests a chart, its ECharts option
JSON is printed or written to --out.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, question := args[0], args[1]
		t, sum, res, err := loadTable(path)
		if err != nil {
			return err
		}
		handler := query.NewHandler(res)

		var answer string
		var vreq *viz.Request
		if askOffline {
			answer, vreq = handler.Handle(question, t, sum)
		} else {
			rt, err := buildRuntime(askProvider)
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "⚠ Warning: %v; answering with the rule engine\n", err)
				answer, vreq = handler.Handle(question, t, sum)
			} else {
				model := askModel
				if model == "" {
					model = cfg.DefaultModel
				}
				orch := ai.NewOrchestrator(rt, handler, ai.OrchestratorConfig{
					Model:          model,
					MaxTokens:      cfg.MaxTokens,
					Temperature:    cfg.Temperature,
					Attempts:       cfg.AskMaxAttempts,
					Backoff:        time.Duration(cfg.AskRetryDelaySec) * time.Second,
					AttemptTimeout: time.Duration(cfg.HTTPTimeoutSec) * time.Second,
				})
				answer, vreq = orch.Answer(cmd.Context(), question, t, sum)
			}
		}

		cmd.Println(answer)
		if vreq == nil || askNoChart {
			return nil
		}
		result := viz.Render(t, res, *vreq)
		if result.Err != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "⚠ Chart error: %s\n", result.Err)
			debugf("chart details: %s\n", result.Details)
		}
		if result.Warning != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "⚠ %s\n", result.Warning)
		}
		return writeFigure(cmd, result.Figure, askOut)
	},
}

func init() {
	askCmd.Flags().StringVar(&askProvider, "provider", "", "AI provider (openrouter|ollama), default from config")
	askCmd.Flags().StringVar(&askModel, "model", "", "model name, default from config")
	askCmd.Flags().BoolVar(&askOffline, "offline", false, "skip the language model and use the rule engine only")
	askCmd.Flags().StringVar(&askOut, "out", "", "write chart JSON to this file instead of stdout")
	askCmd.Flags().BoolVar(&askNoChart, "no-chart", false, "suppress chart output")
	rootCmd.AddCommand(askCmd)
}
