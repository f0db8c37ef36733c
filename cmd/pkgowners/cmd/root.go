package cmd

import (
	"fmt"
	"os"

	internal "github.com/ZanzyTHEbar/pkgowners/pkgowners"
	"github.com/ZanzyTHEbar/pkgowners/pkgowners/config"
	"github.com/ZanzyTHEbar/pkgowners/pkgowners/metrics"
	"github.com/ZanzyTHEbar/pkgowners/pkgowners/rpmdb"
	"github.com/ZanzyTHEbar/pkgowners/pkgowners/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// app carries what every subcommand needs once flags are parsed.
type app struct {
	configPath  string
	database    string
	strategy    string
	sysroot     string
	noReconcile bool
	noSnapshot  bool
	logLevel    string
	metrics     bool

	cfg      *config.Config
	logger   zerolog.Logger
	registry *prometheus.Registry
}

// NewRootCmd builds the pkgowners command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   internal.DefaultAppName,
		Short: "Find which installed packages own a file",
		Long: `pkgowners answers "which installed package owns this path?" and
"what do we know about package P?" from a read-only copy of the package database.

Directories that reach the same place through symlinks or bind mounts are
reconciled against the live filesystem, so /bin/bash finds the package that
installed /usr/bin/bash.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" {
				return nil
			}
			return a.load(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if !a.metrics || a.registry == nil {
				return nil
			}
			return metrics.WriteText(cmd.OutOrStdout(), a.registry)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "config file (default searches ./, /etc/pkgowners and "+internal.DefaultConfigPath+")")
	flags.StringVarP(&a.database, "database", "d", "", "package database path (default "+internal.DefaultDatabaseDSN+")")
	flags.StringVarP(&a.strategy, "strategy", "s", "", "index strategy: basename or hashed")
	flags.StringVar(&a.sysroot, "sysroot", "", "filesystem root to reconcile against")
	flags.BoolVar(&a.noReconcile, "no-reconcile", false, "match recorded directory strings only")
	flags.BoolVar(&a.noSnapshot, "no-snapshot", false, "read the database in place instead of a scratch copy")
	flags.StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.BoolVar(&a.metrics, "metrics", false, "print collected metrics in Prometheus text format after the command")

	root.AddCommand(
		newOwnerCmd(a),
		newMetaCmd(a),
		newProvidesCmd(a),
		newAliasesCmd(a),
		newImportCmd(a),
		newStatsCmd(a),
	)
	return root
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// load reads the config and lets explicitly set flags override it.
func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.LoadConfig(a.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("database") {
		cfg.Database.Path = a.database
	}
	if flags.Changed("strategy") {
		cfg.Index.Strategy = a.strategy
	}
	if flags.Changed("sysroot") {
		cfg.Index.Sysroot = a.sysroot
	}
	if a.noReconcile {
		cfg.Index.Reconcile = false
	}
	if a.noSnapshot {
		cfg.Database.Snapshot = false
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = internal.GetLoggerWithLevel(cfg.Log.Level)
	a.registry = metrics.NewRegistry()
	return nil
}

// open builds the ownership index over the configured database.
func (a *app) open() (*service.Service, error) {
	return service.New(a.cfg, service.WithLogger(a.logger))
}

// openHandle opens the database alone, for commands that query it directly.
func (a *app) openHandle() (*rpmdb.TxnHandle, error) {
	h, err := service.OpenHandle(a.cfg.Database)
	if err != nil {
		return nil, err
	}
	a.logger.Debug().Str("database", a.cfg.Database.Path).Bool("snapshot", a.cfg.Database.Snapshot).Msg("opened package database")
	return h, nil
}
