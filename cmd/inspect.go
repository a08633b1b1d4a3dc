package cmd

import (
	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <file.csv>",
	Short: "Load a CSV and print its schema summary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, sum, _, err := loadTable(args[0])
		if err != nil {
			return err
		}
		cmd.Print(sum.Describe())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}
