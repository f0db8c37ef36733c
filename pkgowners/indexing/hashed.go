package indexing

import (
	"time"

	"github.com/ZanzyTHEbar/pkgowners/pkgowners/rpmdb"
	"github.com/cespare/xxhash/v2"
	"github.com/rs/zerolog"
)

// HashedIndex maps the xxhash of each installed full path to its owning packages.
// Path strings are not retained, so two paths sharing a hash share owners; builds
// count such collisions in Stats.
type HashedIndex struct {
	owners ownerSets
	nevras *nevraTable
	rules  *remapRules
	walker *linkWalker
	stats  Stats
	logger zerolog.Logger
}

var _ Index = (*HashedIndex)(nil)

// BuildHashed builds a HashedIndex from every installed, non-directory file. With
// opts.Reconcile each recorded directory is explored once under opts.FS and every
// symlinked component becomes a prefix rule consulted at lookup.
func BuildHashed(h *rpmdb.TxnHandle, opts Options) (*HashedIndex, error) {
	h.Acquire()
	defer h.Release()

	started := time.Now()
	idx := &HashedIndex{
		owners: make(ownerSets),
		nevras: newNevraTable(),
		rules:  newRemapRules(),
		logger: opts.Logger,
	}
	if opts.Reconcile {
		idx.walker = newLinkWalker(opts.fs())
	}

	// Only needed to count collisions; dropped with the builder.
	firstPath := make(map[uint64]string)
	collisions := 0
	explored := make(map[string]struct{})

	packages, files, err := scanManifests(h.DB(), func(nevra string, f rpmdb.FileEntry) {
		if f.IsDir() || !f.State.Installed() {
			return
		}
		dir := rpmdb.CleanDirname(f.Dirname)
		if _, done := explored[dir]; !done {
			explored[dir] = struct{}{}
			if idx.walker != nil {
				idx.walker.explore(dir, func(recorded, live string) {
					idx.rules.add(live, recorded)
				}, 0)
			}
		}

		full := rpmdb.JoinPath(dir, f.Basename)
		sum := xxhash.Sum64String(full)
		if prev, ok := firstPath[sum]; !ok {
			firstPath[sum] = full
		} else if prev != full {
			collisions++
			idx.logger.Warn().Str("path", full).Str("other", prev).Uint64("hash", sum).Msg("path hash collision")
		}
		idx.owners.add(sum, idx.nevras.intern(nevra))
	})
	idx.owners.optimize()

	idx.stats = newStats(StrategyHashed, opts, started)
	idx.stats.Packages = packages
	idx.stats.Files = files
	idx.stats.Buckets = len(idx.owners)
	idx.stats.Directories = len(explored)
	idx.stats.RemapRules = idx.rules.Len()
	idx.stats.HashCollisions = collisions
	recordBuild(idx.stats, err)
	if err != nil {
		return nil, err
	}

	idx.logger.Info().
		Str("build_id", idx.stats.BuildID.String()).
		Int("packages", packages).
		Int("files", files).
		Int("paths", idx.stats.Buckets).
		Int("remap_rules", idx.stats.RemapRules).
		Int("collisions", collisions).
		Dur("took", idx.stats.BuildDuration).
		Msg("hashed index built")
	return idx, nil
}

// PackagesForFile returns the owners of path in database order. The query directory
// is resolved within the root, and the result covers every recorded path that reaches
// the same file through a remap rule.
func (idx *HashedIndex) PackagesForFile(path string) []string {
	out := []string{}
	dir, base := rpmdb.SplitPath(path)
	if base == "" {
		recordLookup(StrategyHashed, 0)
		return out
	}

	candidates := []string{rpmdb.JoinPath(dir, base)}
	if idx.walker != nil {
		live := rpmdb.JoinPath(idx.walker.Canonical(dir), base)
		candidates = append(candidates, live)
		candidates = append(candidates, idx.rules.rewrite(live)...)
	}

	hashes := make([]uint64, len(candidates))
	for i, c := range candidates {
		hashes[i] = xxhash.Sum64String(c)
	}
	owners := idx.owners.union(hashes...)

	it := owners.Iterator()
	for it.HasNext() {
		out = append(out, idx.nevras.name(it.Next()))
	}
	recordLookup(StrategyHashed, len(out))
	return out
}

func (idx *HashedIndex) Stats() Stats { return idx.stats }
