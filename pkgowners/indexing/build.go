package indexing

import (
	"fmt"
	"time"

	"github.com/ZanzyTHEbar/pkgowners/pkgowners/metrics"
	"github.com/ZanzyTHEbar/pkgowners/pkgowners/rpmdb"
	"github.com/google/uuid"
)

// Build builds the index selected by opts.Strategy. An empty strategy means basename.
func Build(h *rpmdb.TxnHandle, opts Options) (Index, error) {
	switch opts.Strategy {
	case "", StrategyBasename:
		return BuildBasename(h, opts)
	case StrategyHashed:
		return BuildHashed(h, opts)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, opts.Strategy)
	}
}

// scanManifests makes the single pass over every installed package and its file
// manifest. Any iterator failure aborts the scan: there is no partial index.
func scanManifests(db rpmdb.Database, visit func(nevra string, f rpmdb.FileEntry)) (packages, files int, err error) {
	pkgs, err := db.Packages()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read package database: %w", err)
	}
	defer pkgs.Close()

	for pkgs.Next() {
		pkg := pkgs.Package()
		nevra := pkg.NEVRA()
		packages++

		fi, err := db.Files(pkg)
		if err != nil {
			return packages, files, fmt.Errorf("couldn't create file iterator for %s: %w", nevra, err)
		}
		for fi.Next() {
			visit(nevra, fi.File())
			files++
		}
		ferr := fi.Err()
		fi.Close()
		if ferr != nil {
			return packages, files, fmt.Errorf("reading file manifest of %s: %w", nevra, ferr)
		}
	}
	if err := pkgs.Err(); err != nil {
		return packages, files, fmt.Errorf("reading package database: %w", err)
	}
	return packages, files, nil
}

// newStats stamps a build with its id.
func newStats(strategy string, opts Options, started time.Time) Stats {
	return Stats{
		BuildID:       uuid.New(),
		Strategy:      strategy,
		Reconcile:     opts.Reconcile,
		BuildDuration: time.Since(started),
	}
}

func recordBuild(s Stats, err error) {
	if err != nil {
		metrics.IndexBuildsTotal.WithLabelValues(s.Strategy, metrics.Fail).Inc()
		return
	}
	metrics.IndexBuildsTotal.WithLabelValues(s.Strategy, metrics.Ok).Inc()
	metrics.IndexBuildSecondsTotal.Add(s.BuildDuration.Seconds())
	metrics.IndexFilesTotal.Add(float64(s.Files))
	metrics.IndexHashCollisionsTotal.Add(float64(s.HashCollisions))
}

func recordLookup(strategy string, owners int) {
	metrics.LookupsTotal.WithLabelValues(strategy).Inc()
	if owners == 0 {
		metrics.LookupMissesTotal.WithLabelValues(strategy).Inc()
	}
}
