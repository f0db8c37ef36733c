package query

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ZanzyTHEbar/pkgowners/pkgowners/metrics"
	"github.com/ZanzyTHEbar/pkgowners/pkgowners/rpmdb"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bash() rpmdb.Package {
	return rpmdb.Package{
		Name: "bash", Version: "5.1", Release: "1", Arch: "x86_64",
		Size: 7_500_000, BuildTime: 1_650_000_000,
		SourceRPM:      "bash-5.1-1.src.rpm",
		ChangelogTimes: []uint64{1_640_000_000, 1_600_000_000, 1_620_000_000},
		Provides:       []string{"/bin/sh", "bash"},
	}
}

func newHandle(pkgs ...rpmdb.Package) (*rpmdb.TxnHandle, *rpmdb.MemoryDB) {
	db := rpmdb.NewMemoryDB()
	for _, p := range pkgs {
		db.Add(p, rpmdb.FileEntry{Dirname: "/usr/bin", Basename: p.Name, Mode: rpmdb.ModeRegular | 0o755})
	}
	return rpmdb.NewTxnHandle(db, ""), db
}

func TestPackageMetaSingleRecord(t *testing.T) {
	h, _ := newHandle(bash())
	defer h.Release()

	meta, err := PackageMeta(h, "bash")
	require.NoError(t, err)
	assert.Equal(t, "bash-5.1-1.x86_64", meta.NEVRA)
	assert.Equal(t, uint64(7_500_000), meta.Size)
	assert.Equal(t, uint64(1_650_000_000), meta.BuildTime)
	assert.Equal(t, []uint64{1_640_000_000, 1_600_000_000, 1_620_000_000}, meta.ChangelogTimes, "record order is kept")
	assert.Equal(t, "bash-5.1-1.src.rpm", meta.SourcePackage)
	assert.Equal(t, int32(1), h.Refs())
}

func TestPackageMetaEmptyChangelog(t *testing.T) {
	p := bash()
	p.ChangelogTimes = nil
	h, _ := newHandle(p)
	defer h.Release()

	meta, err := PackageMeta(h, "bash")
	require.NoError(t, err)
	assert.NotNil(t, meta.ChangelogTimes)
	assert.Empty(t, meta.ChangelogTimes)
}

func TestPackageMetaConfirmedDuplicate(t *testing.T) {
	dup := bash()
	dup.Size = 1
	h, _ := newHandle(bash(), dup)
	defer h.Release()

	meta, err := PackageMeta(h, "bash")
	require.NoError(t, err)
	assert.Equal(t, uint64(7_500_000), meta.Size, "the first record wins")
}

func TestPackageMetaConflict(t *testing.T) {
	other := bash()
	other.Release = "2"
	h, _ := newHandle(bash(), other)
	defer h.Release()

	meta, err := PackageMeta(h, "bash")
	assert.Nil(t, meta)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInconsistentState)

	var conflict *InconsistentStateError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, "bash", conflict.Name)
	assert.Equal(t, "bash-5.1-1.x86_64", conflict.First)
	assert.Equal(t, "bash-5.1-2.x86_64", conflict.Second)
	assert.Equal(t, `multiple installed "bash" (bash-5.1-1.x86_64, bash-5.1-2.x86_64)`, err.Error())
}

func TestPackageMetaNotFound(t *testing.T) {
	h, _ := newHandle(bash())
	defer h.Release()

	_, err := PackageMeta(h, "zsh")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrInconsistentState)
}

func TestPackageMetaCountsQueries(t *testing.T) {
	h, _ := newHandle(bash())
	defer h.Release()

	ok := testutil.ToFloat64(metrics.MetadataQueriesTotal.WithLabelValues(metrics.Ok))
	fail := testutil.ToFloat64(metrics.MetadataQueriesTotal.WithLabelValues(metrics.Fail))

	_, err := PackageMeta(h, "bash")
	require.NoError(t, err)
	_, err = PackageMeta(h, "zsh")
	require.Error(t, err)

	assert.Equal(t, ok+1, testutil.ToFloat64(metrics.MetadataQueriesTotal.WithLabelValues(metrics.Ok)))
	assert.Equal(t, fail+1, testutil.ToFloat64(metrics.MetadataQueriesTotal.WithLabelValues(metrics.Fail)))
}

func TestPackageMetaIteratorFailure(t *testing.T) {
	h, db := newHandle(bash())
	defer h.Release()
	db.FailPackages = errors.New("rpmdb locked")

	_, err := PackageMeta(h, "bash")
	assert.ErrorIs(t, err, rpmdb.ErrIteratorCreation)
	assert.NotErrorIs(t, err, ErrNotFound)
}

type emptyIterator struct{}

func (emptyIterator) Next() bool              { return false }
func (emptyIterator) Package() *rpmdb.Package { return nil }
func (emptyIterator) Err() error              { return nil }
func (emptyIterator) Close() error            { return nil }

// matchesNothingDB claims a name match but yields no records.
type matchesNothingDB struct {
	*rpmdb.MemoryDB
}

func (matchesNothingDB) MatchName(string) (rpmdb.PackageIterator, error) {
	return emptyIterator{}, nil
}

func TestPackageMetaEmptyMatchPanics(t *testing.T) {
	h := rpmdb.NewTxnHandle(matchesNothingDB{rpmdb.NewMemoryDB()}, "")
	defer h.Release()

	assert.Panics(t, func() {
		_, _ = PackageMeta(h, "ghost")
	})
	assert.Equal(t, int32(1), h.Refs(), "the handle is released while panicking")
}

func TestPackagesProvidingFile(t *testing.T) {
	dash := rpmdb.Package{Name: "dash", Version: "0.5", Release: "1", Arch: "x86_64", Provides: []string{"/bin/sh"}}
	h, db := newHandle(bash(), dash)
	defer h.Release()
	db.Add(rpmdb.Package{Name: "doc", Version: "1", Release: "1", Arch: "noarch"},
		rpmdb.FileEntry{Dirname: "/usr/share/doc", Basename: "gone", State: rpmdb.StateNotInstalled})

	tests := []struct {
		name string
		path string
		want []string
	}{
		{"installed file", "/usr/bin/bash", []string{"bash-5.1-1.x86_64"}},
		{"provide fallback", "/bin/sh", []string{"bash-5.1-1.x86_64", "dash-0.5-1.x86_64"}},
		{"not installed", "/usr/share/doc/gone", []string{}},
		{"nothing", "/opt/none", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PackagesProvidingFile(h, tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPackagesProvidingFileError(t *testing.T) {
	h, db := newHandle(bash())
	defer h.Release()
	db.FailPackages = errors.New("rpmdb locked")

	got, err := PackagesProvidingFile(h, "/usr/bin/bash")
	assert.Nil(t, got)
	assert.ErrorIs(t, err, rpmdb.ErrIteratorCreation)
}

const sqliteManifest = `
packages:
  - name: glibc
    version: "2.35"
    release: "3"
    arch: x86_64
    size: 6000000
    buildtime: 1660000000
    sourcerpm: glibc-2.35-3.src.rpm
    changelogs: [300, 100, 200]
    files:
      - path: /usr/lib64/libc.so.6
`

func TestPackageMetaSQLite(t *testing.T) {
	entries, err := rpmdb.LoadManifest(strings.NewReader(sqliteManifest))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "packages.db")
	db, err := rpmdb.CreateSQLite(path)
	require.NoError(t, err)
	_, err = rpmdb.Import(context.Background(), db, entries)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	h, err := rpmdb.OpenSnapshot(path)
	require.NoError(t, err)
	defer h.Release()

	meta, err := PackageMeta(h, "glibc")
	require.NoError(t, err)
	assert.Equal(t, "glibc-2.35-3.x86_64", meta.NEVRA)
	assert.Equal(t, []uint64{300, 100, 200}, meta.ChangelogTimes)
	assert.Equal(t, "glibc-2.35-3.src.rpm", meta.SourcePackage)

	owners, err := PackagesProvidingFile(h, "/usr/lib64/libc.so.6")
	require.NoError(t, err)
	assert.Equal(t, []string{"glibc-2.35-3.x86_64"}, owners)
}
