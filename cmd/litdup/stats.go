package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	statsMinScore int
	statsTop      int
	statsID       int64
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarise stored duplicate pairs",
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
		ctx := context.Background()

		cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()

		if statsID != 0 {
			dups, err := store.DuplicatesOf(ctx, statsID, statsMinScore)
			if err != nil {
				return err
			}
			fmt.Printf("%s\n", cyan(fmt.Sprintf("=== Duplicates of %d (score >= %d) ===", statsID, statsMinScore)))
			if len(dups) == 0 {
				fmt.Printf("  %s\n", gray("none"))
			}
			for _, d := range dups {
				other := d.ID2
				if other == statsID {
					other = d.ID1
				}
				fmt.Printf("  %3d  %d  %s\n", d.Score, other, gray(d.Key.String()))
			}
			return nil
		}

		st, err := store.DuplicateStats(ctx, statsMinScore)
		if err != nil {
			return err
		}
		fmt.Printf("%s\n", cyan(fmt.Sprintf("=== Duplicate pairs (score >= %d) ===", statsMinScore)))
		fmt.Printf("  Pairs:          %d\n", st.Pairs)
		fmt.Printf("  Perfect (100):  %d\n", st.PerfectPairs)
		fmt.Printf("  Distinct ids:   %d\n", st.DistinctIDs)
		fmt.Printf("  Partitions:     %d\n", st.Partitions)

		top, err := store.TopDuplicated(ctx, statsMinScore, statsTop)
		if err != nil {
			return err
		}
		if len(top) > 0 {
			fmt.Printf("\n%s\n", cyan("Most duplicated records"))
			for _, c := range top {
				fmt.Printf("  %8d  %d pairs\n", c.ID, c.Count)
			}
		}
		return nil
	},
}

func init() {
	statsCmd.Flags().IntVar(&statsMinScore, "min-score", 97, "only count pairs at or above this score")
	statsCmd.Flags().IntVar(&statsTop, "top", 10, "number of most duplicated records to list")
	statsCmd.Flags().Int64Var(&statsID, "id", 0, "list the duplicates of one record")
	rootCmd.AddCommand(statsCmd)
}
