package cmd

import (
	"fmt"
	"time"

	"github.com/ZanzyTHEbar/pkgowners/pkgowners/query"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newMetaCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "meta <name>",
		Short: "Show metadata of an installed package",
		Long: `Read one package's metadata from the database. No ownership index is built.

Several records of the same package are merged; records of different versions
under one name are reported as an inconsistent database.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := a.openHandle()
			if err != nil {
				return err
			}
			defer h.Release()

			meta, err := query.PackageMeta(h, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			built := time.Unix(int64(meta.BuildTime), 0).UTC()
			fmt.Fprintf(out, "Package:    %s\n", meta.NEVRA)
			fmt.Fprintf(out, "Size:       %s\n", humanize.IBytes(meta.Size))
			fmt.Fprintf(out, "Built:      %s (%s)\n", built.Format(time.RFC3339), humanize.Time(built))
			fmt.Fprintf(out, "Source:     %s\n", meta.SourcePackage)
			fmt.Fprintf(out, "Changelogs: %s\n", humanize.Comma(int64(len(meta.ChangelogTimes))))
			for _, ts := range meta.ChangelogTimes {
				fmt.Fprintf(out, "  %s\n", time.Unix(int64(ts), 0).UTC().Format("2006-01-02"))
			}
			return nil
		},
	}
}
