package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"litindex/internal/workspace"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the workspace and a default config",
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			paths workspace.Paths
			err   error
		)
		if workspaceRoot != "" {
			paths, err = workspace.EnsureAt(workspaceRoot)
		} else {
			paths, err = workspace.EnsureDefault()
		}
		if err != nil {
			return fmt.Errorf("workspace initialization failed: %w", err)
		}

		green := color.New(color.FgGreen, color.Bold).SprintFunc()
		fmt.Printf("%s %s\n", green("Workspace ready at:"), paths.Root)
		fmt.Printf("  Config:   %s\n", paths.ConfigFile)
		fmt.Printf("  Database: %s\n", paths.Database)
		fmt.Printf("  Reports:  %s\n", paths.Reports)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
