package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"litindex/internal/report"
)

var reportCmd = &cobra.Command{
	Use:   "report [path]",
	Short: "Show a saved run report (default: the latest in the workspace)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var path string
		if len(args) == 1 {
			path = args[0]
		} else {
			ws, err := workspacePaths()
			if err != nil {
				return err
			}
			reports, err := ws.ListReports()
			if err != nil {
				return err
			}
			if len(reports) == 0 {
				return fmt.Errorf("no reports in %s", ws.Reports)
			}
			path = reports[0]
		}

		summary, err := report.Read(path)
		if err != nil {
			return err
		}
		fmt.Printf("Report: %s\n", path)
		printSummary(summary)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
}
