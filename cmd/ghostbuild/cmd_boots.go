package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ghostbuild/internal/boots"
	"ghostbuild/internal/build"
	"ghostbuild/internal/loader"
	"ghostbuild/internal/pipeline"
)

func newBootsCommand(c *cli) *cobra.Command {
	var recordPath, setsPath, winningPath string
	cmd := &cobra.Command{
		Use:   "boots",
		Short: "Replace build.boots in an existing record",
		Long: `Replace build.boots in an existing record with the upgraded boots weighted
highest by loadout pick rate, falling back to the winning table and then to basic boots.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rec, err := pipeline.ReadRecord(recordPath)
			if err != nil {
				return err
			}

			l := loader.New(loader.WithLogger(logger("loader")))
			sets, _, err := l.ReadSetsFile(setsPath)
			if err != nil {
				return err
			}
			var winning []build.WinningItem
			if winningPath != "" {
				if winning, _, err = l.ReadWinningFile(winningPath); err != nil {
					return err
				}
			}

			prev := rec.Build.Boots
			rec.Build.Boots = boots.Choose(sets, winning)
			if _, err := pipeline.SaveRecord(recordPath, rec); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "[ok] boots: %s -> %s\n", prev, rec.Build.Boots)
			return nil
		},
	}
	cmd.Flags().StringVar(&recordPath, "json", "", "Build record to patch")
	cmd.Flags().StringVar(&setsPath, "sets", "", "Built sets CSV")
	cmd.Flags().StringVar(&winningPath, "winning", "", "Winning items CSV used as a fallback")
	_ = cmd.MarkFlagRequired("json")
	_ = cmd.MarkFlagRequired("sets")
	return cmd
}
