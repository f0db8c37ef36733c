package query

import (
	"errors"
	"fmt"

	"github.com/ZanzyTHEbar/pkgowners/pkgowners/metrics"
	"github.com/ZanzyTHEbar/pkgowners/pkgowners/rpmdb"
)

// Metadata is the scalar and list metadata of one installed package.
type Metadata struct {
	NEVRA          string
	Size           uint64
	BuildTime      uint64
	ChangelogTimes []uint64
	SourcePackage  string
}

// recordClass classifies a record against what a name query has seen so far.
type recordClass int

const (
	firstSeen recordClass = iota
	confirmedDuplicate
	conflictingDuplicate
)

func classify(seen *Metadata, nevra string) recordClass {
	switch {
	case seen == nil:
		return firstSeen
	case seen.NEVRA == nevra:
		return confirmedDuplicate
	default:
		return conflictingDuplicate
	}
}

// PackageMeta returns the metadata of the installed package called name.
//
// Several records for the same NEVRA are tolerated and merged; records with the same
// name but different NEVRAs fail with an *InconsistentStateError.
func PackageMeta(h *rpmdb.TxnHandle, name string) (*Metadata, error) {
	meta, err := packageMeta(h, name)
	if err != nil {
		metrics.MetadataQueriesTotal.WithLabelValues(metrics.Fail).Inc()
		return nil, err
	}
	metrics.MetadataQueriesTotal.WithLabelValues(metrics.Ok).Inc()
	return meta, nil
}

func packageMeta(h *rpmdb.TxnHandle, name string) (*Metadata, error) {
	h.Acquire()
	defer h.Release()

	it, err := h.DB().MatchName(name)
	if errors.Is(err, rpmdb.ErrNoMatch) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("querying package %s: %w", name, err)
	}
	defer it.Close()

	var meta *Metadata
	for it.Next() {
		pkg := it.Package()
		nevra := pkg.NEVRA()
		switch classify(meta, nevra) {
		case firstSeen:
			meta = &Metadata{
				NEVRA:          nevra,
				Size:           pkg.Size,
				BuildTime:      pkg.BuildTime,
				ChangelogTimes: append([]uint64{}, pkg.ChangelogTimes...),
				SourcePackage:  pkg.SourceRPM,
			}
		case confirmedDuplicate:
		case conflictingDuplicate:
			return nil, &InconsistentStateError{Name: name, First: meta.NEVRA, Second: nevra}
		}
	}
	if err := it.Err(); err != nil {
		return nil, fmt.Errorf("reading package %s: %w", name, err)
	}
	if meta == nil {
		panic(fmt.Sprintf("query: name iterator for %q matched but yielded no records", name))
	}
	return meta, nil
}

// PackagesProvidingFile returns the packages whose manifest installs path, falling
// back to packages that provide path as a capability. No match yields an empty slice.
func PackagesProvidingFile(h *rpmdb.TxnHandle, path string) ([]string, error) {
	h.Acquire()
	defer h.Release()

	it, err := h.DB().MatchFile(path)
	if errors.Is(err, rpmdb.ErrNoMatch) {
		it, err = h.DB().MatchProvide(path)
	}
	if errors.Is(err, rpmdb.ErrNoMatch) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying providers of %s: %w", path, err)
	}

	nevras, err := rpmdb.CollectNEVRAs(it)
	if err != nil {
		return nil, fmt.Errorf("reading providers of %s: %w", path, err)
	}
	if nevras == nil {
		nevras = []string{}
	}
	return nevras, nil
}
