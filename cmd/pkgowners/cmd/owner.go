package cmd

import (
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/pkgowners/pkgowners/query"
	"github.com/spf13/cobra"
)

func newOwnerCmd(a *app) *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "owner <path>...",
		Short: "Show the installed packages owning each path",
		Long: `Look up each path in the ownership index.

Examples:
  pkgowners owner /usr/bin/bash
  pkgowners owner --sysroot /mnt/image /bin/sh /etc/passwd`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.open()
			if err != nil {
				return err
			}
			defer svc.Close()

			results, err := svc.OwnersOf(cmd.Context(), args)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, r := range results {
				switch {
				case len(r.Packages) > 0 && quiet:
					fmt.Fprintln(out, strings.Join(r.Packages, "\n"))
				case len(r.Packages) > 0:
					fmt.Fprintf(out, "%s: %s\n", r.Path, strings.Join(r.Packages, " "))
				case !quiet:
					fmt.Fprintf(out, "%s: not owned by any package\n", r.Path)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "print package identifiers only")
	return cmd
}

func newProvidesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "provides <path>",
		Short: "Ask the database which packages install or provide a path",
		Long: `Query the package database directly, without building the index.

Packages that install the path are listed first; when there are none, packages
providing the path as a capability are listed instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := a.openHandle()
			if err != nil {
				return err
			}
			defer h.Release()

			pkgs, err := query.PackagesProvidingFile(h, args[0])
			if err != nil {
				return err
			}
			if len(pkgs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No package provides", args[0])
				return nil
			}
			for _, p := range pkgs {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		},
	}
}
