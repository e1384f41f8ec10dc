package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var partitionsLimit int

var partitionsCmd = &cobra.Command{
	Use:   "partitions",
	Short: "List partitions eligible for duplicate detection",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		filter := cfg.CorpusFilter()
		if partitionsLimit > 0 {
			filter.Limit = partitionsLimit
		}
		parts, err := store.ListPartitions(context.Background(), filter)
		if err != nil {
			return err
		}

		cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()
		fmt.Printf("%s\n", cyan(fmt.Sprintf("=== %d partitions ===", len(parts))))
		if len(parts) == 0 {
			fmt.Printf("  %s\n", gray("No partitions with more than one record"))
			return nil
		}
		total := 0
		for _, p := range parts {
			fmt.Printf("  %6d  %s\n", p.Count, p.Key)
			total += p.Count
		}
		fmt.Printf("%s\n", gray(fmt.Sprintf("%d records in total", total)))
		return nil
	},
}

func init() {
	partitionsCmd.Flags().IntVar(&partitionsLimit, "limit", 0, "show at most this many partitions")
	rootCmd.AddCommand(partitionsCmd)
}
