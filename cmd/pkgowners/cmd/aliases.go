package cmd

import (
	"fmt"

	"github.com/ZanzyTHEbar/pkgowners/pkgowners/indexing"
	"github.com/spf13/cobra"
)

func newAliasesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "aliases <dir>",
		Short: "List recorded directories that are the same directory as <dir>",
		Long: `List the directories recorded in package manifests that resolve to the same
physical directory as <dir>. Requires the basename strategy with reconciliation.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.open()
			if err != nil {
				return err
			}
			defer svc.Close()

			idx, ok := svc.Index().(*indexing.BasenameIndex)
			if !ok || !svc.Stats().Reconcile {
				return fmt.Errorf("aliases needs --strategy %s with reconciliation enabled", indexing.StrategyBasename)
			}
			aliases := idx.AliasesOf(args[0])
			if len(aliases) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No aliases recorded for", args[0])
				return nil
			}
			for _, d := range aliases {
				fmt.Fprintln(cmd.OutOrStdout(), d)
			}
			return nil
		},
	}
}
