package rpmdb

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSQLiteDBIntegration exercises the libsql-backed database end to end
func TestSQLiteDBIntegration(t *testing.T) {
	db, err := CreateSQLite(filepath.Join(t.TempDir(), "packages.db"))
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	bash := &Package{
		Name: "bash", Version: "5.1", Release: "1", Arch: "x86_64",
		Size: 7654321, BuildTime: 1650000000, SourceRPM: "bash-5.1-1.src.rpm",
		ChangelogTimes: []uint64{1640000000, 1630000000, 1645000000},
		Provides:       []string{"/bin/sh", "bash(x86-64)"},
	}
	_, err = db.InsertPackage(ctx, bash, []FileEntry{
		{Dirname: "/usr/bin/", Basename: "bash", Mode: ModeRegular | 0o755},
		{Dirname: "/usr/share/doc/bash", Basename: "NEWS", Mode: ModeRegular | 0o644, State: StateNotInstalled},
		{Dirname: "/usr/share/doc", Basename: "bash", Mode: ModeDir | 0o755},
	})
	require.NoError(t, err)
	assert.NotZero(t, bash.Key)

	_, err = db.InsertPackage(ctx, &Package{Name: "filesystem", Version: "3.16", Release: "2", Arch: "x86_64"}, []FileEntry{
		{Dirname: "/", Basename: "bin", Mode: ModeSymlink | 0o777},
	})
	require.NoError(t, err)

	t.Run("Packages", func(t *testing.T) {
		it, err := db.Packages()
		require.NoError(t, err)
		nevras, err := CollectNEVRAs(it)
		require.NoError(t, err)
		assert.Equal(t, []string{"bash-5.1-1.x86_64", "filesystem-3.16-2.x86_64"}, nevras)
	})

	t.Run("MatchNameKeepsChangelogOrder", func(t *testing.T) {
		it, err := db.MatchName("bash")
		require.NoError(t, err)
		require.True(t, it.Next())
		p := it.Package()
		assert.Equal(t, uint64(7654321), p.Size)
		assert.Equal(t, uint64(1650000000), p.BuildTime)
		assert.Equal(t, "bash-5.1-1.src.rpm", p.SourceRPM)
		assert.Equal(t, []uint64{1640000000, 1630000000, 1645000000}, p.ChangelogTimes)
		assert.Equal(t, []string{"/bin/sh", "bash(x86-64)"}, p.Provides)
		assert.False(t, it.Next())
	})

	t.Run("MatchNameMissing", func(t *testing.T) {
		_, err := db.MatchName("zsh")
		assert.ErrorIs(t, err, ErrNoMatch)
	})

	t.Run("MatchFile", func(t *testing.T) {
		it, err := db.MatchFile("/usr/bin/bash")
		require.NoError(t, err)
		nevras, err := CollectNEVRAs(it)
		require.NoError(t, err)
		assert.Equal(t, []string{"bash-5.1-1.x86_64"}, nevras)

		it, err = db.MatchFile("/bin")
		require.NoError(t, err)
		nevras, err = CollectNEVRAs(it)
		require.NoError(t, err)
		assert.Equal(t, []string{"filesystem-3.16-2.x86_64"}, nevras)

		_, err = db.MatchFile("/usr/share/doc/bash/NEWS")
		assert.ErrorIs(t, err, ErrNoMatch)
	})

	t.Run("MatchProvide", func(t *testing.T) {
		it, err := db.MatchProvide("/bin/sh")
		require.NoError(t, err)
		nevras, err := CollectNEVRAs(it)
		require.NoError(t, err)
		assert.Equal(t, []string{"bash-5.1-1.x86_64"}, nevras)
	})

	t.Run("Files", func(t *testing.T) {
		files, err := db.Files(bash)
		require.NoError(t, err)

		var got []FileEntry
		for files.Next() {
			got = append(got, files.File())
		}
		require.Len(t, got, 3)
		assert.Equal(t, "/usr/bin", got[0].Dirname, "dirnames are stored without trailing slash")
		assert.Equal(t, StateNotInstalled, got[1].State)
		assert.True(t, got[2].IsDir())
	})
}

func TestSQLiteDBQueryFailures(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	db := NewSQLiteDB(conn)

	mock.ExpectQuery("SELECT (.+) FROM packages").WillReturnError(errors.New("database disk image is malformed"))
	_, err = db.Packages()
	assert.ErrorIs(t, err, ErrIteratorCreation)

	mock.ExpectQuery("SELECT dirname, basename, mode, state FROM files").
		WithArgs(int64(7)).
		WillReturnError(errors.New("disk I/O error"))
	_, err = db.Files(&Package{Key: 7, Name: "bash", Version: "5.1", Release: "1"})
	assert.ErrorIs(t, err, ErrIteratorCreation)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteDBChildQueryFailure(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	rows := sqlmock.NewRows([]string{"id", "name", "epoch", "version", "release", "arch", "size", "buildtime", "sourcerpm"}).
		AddRow(int64(1), "bash", int64(0), "5.1", "1", "x86_64", int64(10), int64(20), "bash.src.rpm")
	mock.ExpectQuery("SELECT (.+) FROM packages WHERE name = ").WithArgs("bash").WillReturnRows(rows)
	mock.ExpectQuery("SELECT pkg_id, time FROM changelogs").WithArgs("bash").WillReturnError(errors.New("no such table: changelogs"))

	_, err = NewSQLiteDB(conn).MatchName("bash")
	assert.ErrorIs(t, err, ErrIteratorCreation)
	assert.NoError(t, mock.ExpectationsWereMet())
}
