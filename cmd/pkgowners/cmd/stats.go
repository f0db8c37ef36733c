package cmd

import (
	"fmt"

	"github.com/ZanzyTHEbar/pkgowners/pkgowners/indexing"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Build the ownership index and describe it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.open()
			if err != nil {
				return err
			}
			defer svc.Close()

			st := svc.Stats()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Build:       %s\n", st.BuildID)
			fmt.Fprintf(out, "Strategy:    %s (reconcile=%t)\n", st.Strategy, st.Reconcile)
			fmt.Fprintf(out, "Packages:    %s\n", humanize.Comma(int64(st.Packages)))
			fmt.Fprintf(out, "Files:       %s\n", humanize.Comma(int64(st.Files)))
			fmt.Fprintf(out, "Keys:        %s\n", humanize.Comma(int64(st.Buckets)))
			fmt.Fprintf(out, "Directories: %s\n", humanize.Comma(int64(st.Directories)))
			if st.Strategy == indexing.StrategyHashed {
				fmt.Fprintf(out, "Remap rules: %d\n", st.RemapRules)
				fmt.Fprintf(out, "Collisions:  %d\n", st.HashCollisions)
			}
			fmt.Fprintf(out, "Took:        %s\n", st.BuildDuration)
			return nil
		},
	}
}
