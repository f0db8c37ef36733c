package metrics

import (
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// Keys for pkgowners metrics.
const (
	Fail = "fail"
	Ok   = "ok"
)

// Collectors for index builds and lookups.
var (
	IndexBuildsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pkgowners_index_builds_total",
		Help: "Cumulative number of ownership index builds, by strategy and status.",
	}, []string{"strategy", "status"})
	IndexBuildSecondsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pkgowners_index_build_seconds_total",
		Help: "Cumulative number of seconds spent building ownership indexes.",
	})
	IndexFilesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pkgowners_index_files_total",
		Help: "Cumulative number of file records inserted into ownership indexes.",
	})
	IndexHashCollisionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pkgowners_index_hash_collisions_total",
		Help: "Cumulative number of distinct paths found sharing a full-path hash.",
	})
	LookupsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pkgowners_lookups_total",
		Help: "Cumulative number of ownership lookups, by strategy.",
	}, []string{"strategy"})
	LookupMissesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pkgowners_lookup_misses_total",
		Help: "Cumulative number of ownership lookups which returned no package.",
	}, []string{"strategy"})
	MetadataQueriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pkgowners_metadata_queries_total",
		Help: "Cumulative number of package metadata queries, by status.",
	}, []string{"status"})
)

// Collectors returns every pkgowners collector, for registration with a prometheus.Registerer.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		IndexBuildsTotal,
		IndexBuildSecondsTotal,
		IndexFilesTotal,
		IndexHashCollisionsTotal,
		LookupsTotal,
		LookupMissesTotal,
		MetadataQueriesTotal,
	}
}

// NewRegistry returns a registry holding every pkgowners collector.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(Collectors()...)
	return reg
}

// WriteText gathers g and writes it to w in the Prometheus text exposition format.
func WriteText(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("failed to write metric family %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
