package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ghostbuild/internal/loader"
	"ghostbuild/internal/pipeline"
)

func newValidateCommand(c *cli) *cobra.Command {
	var winningPath, setsPath string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check table headers and rows without running the engine",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			l := loader.New(loader.WithLogger(logger("loader")))
			winning, wrep, err := l.ReadWinningFile(winningPath)
			if err != nil {
				return err
			}
			sets, srep, err := l.ReadSetsFile(setsPath)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			for _, rep := range []loader.Report{wrep, srep} {
				fmt.Fprintln(w, rep.String())
				for _, r := range rep.Rejected {
					fmt.Fprintf(w, "  line %d: %s\n", r.Line, r.Reason)
				}
			}

			if len(winning) == 0 {
				return pipeline.ErrEmptyWinning
			}
			if len(sets) == 0 {
				return pipeline.ErrEmptySets
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&winningPath, "winning", "", "Winning items CSV")
	cmd.Flags().StringVar(&setsPath, "sets", "", "Built sets CSV")
	_ = cmd.MarkFlagRequired("winning")
	_ = cmd.MarkFlagRequired("sets")
	return cmd
}
