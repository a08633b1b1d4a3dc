package cmd

import (
	"fmt"

	"github.com/KaramelBytes/datachat-cli/internal/viz"
	"github.com/spf13/cobra"
)

var (
	chartType  string
	chartX     string
	chartY     string
	chartColor string
	chartTitle string
	chartOut   string
)

var chartCmd = &cobra.Command{
	Use:   "chart <file.csv>",
	Short: "Render a chart from a CSV without asking a question",
	Long: `Chart builds an explicit visualization request from flags and renders it.
Columns may be logical names (e.g. "region", "price"); they are resolved
against the table's actual columns, and unset axes are discovered
heuristically.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, _, res, err := loadTable(args[0])
		if err != nil {
			return err
		}
		req := viz.Request{
			Kind:  viz.Kind(chartType),
			X:     chartX,
			Y:     chartY,
			Color: chartColor,
			Title: chartTitle,
		}
		result := viz.Render(t, res, req)
		if result.Err != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "⚠ Chart error: %s\n", result.Err)
			debugf("chart details: %s\n", result.Details)
		}
		if result.Warning != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "⚠ %s\n", result.Warning)
		}
		return writeFigure(cmd, result.Figure, chartOut)
	},
}

func init() {
	chartCmd.Flags().StringVar(&chartType, "type", "bar", "chart kind (bar|line|scatter|pie|histogram|box|violin|heatmap|area|count)")
	chartCmd.Flags().StringVar(&chartX, "x", "", "x-axis column (logical or actual name)")
	chartCmd.Flags().StringVar(&chartY, "y", "", "y-axis column (logical or actual name)")
	chartCmd.Flags().StringVar(&chartColor, "color", "", "color/grouping column")
	chartCmd.Flags().StringVar(&chartTitle, "title", "", "chart title")
	chartCmd.Flags().StringVar(&chartOut, "out", "", "write chart JSON to this file instead of stdout")
	rootCmd.AddCommand(chartCmd)
}
