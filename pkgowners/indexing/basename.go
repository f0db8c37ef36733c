package indexing

import (
	"sort"
	"time"

	"github.com/ZanzyTHEbar/pkgowners/pkgowners/identity"
	"github.com/ZanzyTHEbar/pkgowners/pkgowners/rpmdb"
	"github.com/rs/zerolog"
)

// BasenameIndex buckets file records by basename. A lookup accepts a record when its
// directory resolves to the same identity as the query's directory, or when the
// directory strings are equal.
type BasenameIndex struct {
	buckets    map[string][]FileRecord
	identities map[identity.Identity]map[string]struct{}
	reconcile  bool
	resolver   identity.Resolver
	stats      Stats
	logger     zerolog.Logger
}

var _ Index = (*BasenameIndex)(nil)

// BuildBasename builds a BasenameIndex in one pass over the handle's database. The
// handle is held for the duration of the build.
func BuildBasename(h *rpmdb.TxnHandle, opts Options) (*BasenameIndex, error) {
	h.Acquire()
	defer h.Release()

	started := time.Now()
	idx := &BasenameIndex{
		buckets:    make(map[string][]FileRecord),
		identities: make(map[identity.Identity]map[string]struct{}),
		reconcile:  opts.Reconcile,
		logger:     opts.Logger,
	}
	if opts.Reconcile {
		idx.resolver = opts.resolver()
	}

	dirs := make(map[string]struct{})
	packages, files, err := scanManifests(h.DB(), func(nevra string, f rpmdb.FileEntry) {
		rec := FileRecord{Package: nevra, Dirname: rpmdb.CleanDirname(f.Dirname)}
		dirs[rec.Dirname] = struct{}{}
		if idx.reconcile && rec.Dirname != "" {
			rec.Dir, rec.DirSuffix, rec.HasDir = idx.resolve(rec.Dirname)
			if rec.HasDir && rec.DirSuffix == "" {
				idx.addAlias(rec.Dir, rec.Dirname)
			}
		}
		idx.buckets[f.Basename] = append(idx.buckets[f.Basename], rec)
	})

	idx.stats = newStats(StrategyBasename, opts, started)
	idx.stats.Packages = packages
	idx.stats.Files = files
	idx.stats.Buckets = len(idx.buckets)
	idx.stats.Directories = len(dirs)
	recordBuild(idx.stats, err)
	if err != nil {
		return nil, err
	}

	idx.logger.Info().
		Str("build_id", idx.stats.BuildID.String()).
		Int("packages", packages).
		Int("files", files).
		Int("buckets", idx.stats.Buckets).
		Bool("reconcile", idx.reconcile).
		Dur("took", idx.stats.BuildDuration).
		Msg("basename index built")
	return idx, nil
}

// resolve returns the identity of dir together with the part of dir that lies below
// the directory which actually resolved.
func (idx *BasenameIndex) resolve(dir string) (identity.Identity, string, bool) {
	id, canonical, ok := idx.resolver.Resolve(dir)
	if !ok {
		return identity.Identity{}, "", false
	}
	return id, dir[len(canonical):], true
}

func (idx *BasenameIndex) addAlias(id identity.Identity, dir string) {
	paths, ok := idx.identities[id]
	if !ok {
		paths = make(map[string]struct{})
		idx.identities[id] = paths
	}
	paths[dir] = struct{}{}
}

// PackagesForFile returns the owners of path in bucket order, each reported once.
func (idx *BasenameIndex) PackagesForFile(path string) []string {
	out := []string{}
	dir, base := rpmdb.SplitPath(path)
	bucket, ok := idx.buckets[base]
	if !ok {
		recordLookup(StrategyBasename, 0)
		return out
	}

	var (
		qid     identity.Identity
		qsuffix string
		qok     bool
	)
	if idx.reconcile && dir != "" {
		qid, qsuffix, qok = idx.resolve(dir)
	}

	seen := make(map[string]struct{})
	for _, rec := range bucket {
		match := rec.Dirname == dir
		if !match && qok && rec.HasDir {
			match = rec.Dir == qid && rec.DirSuffix == qsuffix
		}
		if !match {
			continue
		}
		if _, dup := seen[rec.Package]; dup {
			continue
		}
		seen[rec.Package] = struct{}{}
		out = append(out, rec.Package)
	}
	recordLookup(StrategyBasename, len(out))
	return out
}

// PathsForIdentity returns every recorded directory that resolved exactly to id, sorted.
func (idx *BasenameIndex) PathsForIdentity(id identity.Identity) []string {
	paths := idx.identities[id]
	out := make([]string, 0, len(paths))
	for p := range paths {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// AliasesOf returns the recorded directories other than dir that share its identity.
// It returns nil when the index was built without reconciliation or dir does not resolve.
func (idx *BasenameIndex) AliasesOf(dir string) []string {
	if !idx.reconcile {
		return nil
	}
	dir = rpmdb.CleanDirname(dir)
	if dir == "" {
		return nil
	}
	id, suffix, ok := idx.resolve(dir)
	if !ok || suffix != "" {
		return nil
	}
	var out []string
	for _, p := range idx.PathsForIdentity(id) {
		if p != dir {
			out = append(out, p)
		}
	}
	return out
}

// Bucket returns a copy of the records sharing basename.
func (idx *BasenameIndex) Bucket(basename string) []FileRecord {
	return append([]FileRecord(nil), idx.buckets[basename]...)
}

func (idx *BasenameIndex) Stats() Stats { return idx.stats }
