package cmd

import (
	"fmt"
	"os"

	"github.com/ZanzyTHEbar/pkgowners/pkgowners/rpmdb"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <manifest.yaml>",
		Short: "Create a package database from a YAML manifest",
		Long: `Load packages and their file manifests from a YAML document into the
configured package database, creating its schema if needed.

Examples:
  pkgowners import --database ./packages.db fixtures/base.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			entries, err := rpmdb.LoadManifest(f)
			if err != nil {
				return err
			}

			db, err := rpmdb.CreateSQLite(a.cfg.Database.Path)
			if err != nil {
				return err
			}
			defer db.Close()

			n, err := rpmdb.Import(cmd.Context(), db, entries)
			if err != nil {
				return err
			}
			a.logger.Info().Str("database", a.cfg.Database.Path).Int("packages", n).Msg("manifest imported")
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %s packages into %s\n", humanize.Comma(int64(n)), a.cfg.Database.Path)
			return nil
		},
	}
}
