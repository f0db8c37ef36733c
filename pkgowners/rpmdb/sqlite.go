package rpmdb

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/tursodatabase/go-libsql"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS packages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		epoch INTEGER NOT NULL DEFAULT 0,
		version TEXT NOT NULL,
		release TEXT NOT NULL,
		arch TEXT NOT NULL DEFAULT '',
		size INTEGER NOT NULL DEFAULT 0,
		buildtime INTEGER NOT NULL DEFAULT 0,
		sourcerpm TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_packages_name ON packages(name)`,
	`CREATE TABLE IF NOT EXISTS changelogs (
		pkg_id INTEGER NOT NULL REFERENCES packages(id),
		seq INTEGER NOT NULL,
		time INTEGER NOT NULL,
		PRIMARY KEY (pkg_id, seq)
	)`,
	`CREATE TABLE IF NOT EXISTS files (
		pkg_id INTEGER NOT NULL REFERENCES packages(id),
		seq INTEGER NOT NULL,
		dirname TEXT NOT NULL,
		basename TEXT NOT NULL,
		mode INTEGER NOT NULL DEFAULT 0,
		state INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (pkg_id, seq)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_files_path ON files(dirname, basename)`,
	`CREATE TABLE IF NOT EXISTS provides (
		pkg_id INTEGER NOT NULL REFERENCES packages(id),
		seq INTEGER NOT NULL,
		capability TEXT NOT NULL,
		PRIMARY KEY (pkg_id, seq)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_provides_capability ON provides(capability)`,
}

const packageColumns = "id, name, epoch, version, release, arch, size, buildtime, sourcerpm"

// SQLiteDB reads an installed-package database stored in SQLite.
type SQLiteDB struct {
	db *sql.DB
}

var _ Database = (*SQLiteDB)(nil)

// NewSQLiteDB wraps an existing connection.
func NewSQLiteDB(db *sql.DB) *SQLiteDB {
	return &SQLiteDB{db: db}
}

// OpenSQLite opens an existing database file with the libsql driver.
func OpenSQLite(dbPath string) (*SQLiteDB, error) {
	db, err := sql.Open("libsql", "file:"+dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open package database %s: %w", dbPath, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to package database %s: %w", dbPath, err)
	}
	return &SQLiteDB{db: db}, nil
}

// OpenSQLiteReadOnly opens an existing database file and refuses every write through it.
// query_only is a per-connection pragma, so the pool is pinned to one connection.
func OpenSQLiteReadOnly(dbPath string) (*SQLiteDB, error) {
	s, err := OpenSQLite(dbPath)
	if err != nil {
		return nil, err
	}
	s.db.SetMaxOpenConns(1)
	s.db.SetMaxIdleConns(1)
	s.db.SetConnMaxLifetime(0)
	if _, err := s.db.Exec("PRAGMA query_only = ON"); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to open package database %s read-only: %w", dbPath, err)
	}
	return s, nil
}

// CreateSQLite opens or creates dbPath and ensures the schema exists.
func CreateSQLite(dbPath string) (*SQLiteDB, error) {
	s, err := OpenSQLite(dbPath)
	if err != nil {
		return nil, err
	}
	if err := s.InitSchema(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// InitSchema creates the tables if they do not exist.
func (s *SQLiteDB) InitSchema() error {
	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for initialization: %w", err)
	}
	defer tx.Rollback()

	for _, statement := range schema {
		if _, err := tx.Exec(statement); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}
	return tx.Commit()
}

// InsertPackage stores a package with its manifest in one transaction and returns its key.
func (s *SQLiteDB) InsertPackage(ctx context.Context, pkg *Package, files []FileEntry) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // no-op once committed

	result, err := tx.ExecContext(ctx,
		"INSERT INTO packages (name, epoch, version, release, arch, size, buildtime, sourcerpm) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		pkg.Name, pkg.Epoch, pkg.Version, pkg.Release, pkg.Arch, int64(pkg.Size), int64(pkg.BuildTime), pkg.SourceRPM)
	if err != nil {
		return 0, fmt.Errorf("failed to insert package %s: %w", pkg.NEVRA(), err)
	}
	key, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get package id: %w", err)
	}

	for i, t := range pkg.ChangelogTimes {
		if _, err := tx.ExecContext(ctx, "INSERT INTO changelogs (pkg_id, seq, time) VALUES (?, ?, ?)", key, i, int64(t)); err != nil {
			return 0, fmt.Errorf("failed to insert changelog entry: %w", err)
		}
	}
	for i, capability := range pkg.Provides {
		if _, err := tx.ExecContext(ctx, "INSERT INTO provides (pkg_id, seq, capability) VALUES (?, ?, ?)", key, i, capability); err != nil {
			return 0, fmt.Errorf("failed to insert provide: %w", err)
		}
	}
	for i, f := range files {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO files (pkg_id, seq, dirname, basename, mode, state) VALUES (?, ?, ?, ?, ?, ?)",
			key, i, CleanDirname(f.Dirname), f.Basename, f.Mode, int(f.State)); err != nil {
			return 0, fmt.Errorf("failed to insert file %s: %w", f.Path(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	pkg.Key = key
	return key, nil
}

func (s *SQLiteDB) Packages() (PackageIterator, error) {
	pkgs, err := s.loadPackages("", nil)
	if err != nil {
		return nil, err
	}
	return newSliceIterator(pkgs), nil
}

func (s *SQLiteDB) MatchName(name string) (PackageIterator, error) {
	return s.matchWhere("WHERE name = ?", name)
}

func (s *SQLiteDB) MatchFile(filePath string) (PackageIterator, error) {
	dir, base := SplitPath(filePath)
	return s.matchWhere(
		"WHERE id IN (SELECT pkg_id FROM files WHERE dirname = ? AND basename = ? AND state IN (?, ?))",
		dir, base, int(StateNormal), int(StateNetShared))
}

func (s *SQLiteDB) MatchProvide(capability string) (PackageIterator, error) {
	return s.matchWhere("WHERE id IN (SELECT pkg_id FROM provides WHERE capability = ?)", capability)
}

func (s *SQLiteDB) matchWhere(where string, args ...any) (PackageIterator, error) {
	pkgs, err := s.loadPackages(where, args)
	if err != nil {
		return nil, err
	}
	if len(pkgs) == 0 {
		return nil, ErrNoMatch
	}
	return newSliceIterator(pkgs), nil
}

// loadPackages materializes matching packages with their changelogs and provides, so no
// result set stays open while the caller issues further queries.
func (s *SQLiteDB) loadPackages(where string, args []any) ([]*Package, error) {
	rows, err := s.db.Query("SELECT "+packageColumns+" FROM packages "+where+" ORDER BY id", args...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query packages: %w", ErrIteratorCreation, err)
	}
	defer rows.Close()

	var pkgs []*Package
	byKey := make(map[int64]*Package)
	for rows.Next() {
		var p Package
		var size, buildtime int64
		if err := rows.Scan(&p.Key, &p.Name, &p.Epoch, &p.Version, &p.Release, &p.Arch, &size, &buildtime, &p.SourceRPM); err != nil {
			return nil, fmt.Errorf("%w: failed to scan package: %w", ErrIteratorCreation, err)
		}
		p.Size = uint64(size)
		p.BuildTime = uint64(buildtime)
		pkgs = append(pkgs, &p)
		byKey[p.Key] = &p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: row iteration error: %w", ErrIteratorCreation, err)
	}
	if len(pkgs) == 0 {
		return nil, nil
	}

	sub := "SELECT id FROM packages " + where
	if err := s.scanChildren("SELECT pkg_id, time FROM changelogs WHERE pkg_id IN ("+sub+") ORDER BY pkg_id, seq", args,
		func(rows *sql.Rows) error {
			var key, t int64
			if err := rows.Scan(&key, &t); err != nil {
				return err
			}
			if p, ok := byKey[key]; ok {
				p.ChangelogTimes = append(p.ChangelogTimes, uint64(t))
			}
			return nil
		}); err != nil {
		return nil, err
	}
	if err := s.scanChildren("SELECT pkg_id, capability FROM provides WHERE pkg_id IN ("+sub+") ORDER BY pkg_id, seq", args,
		func(rows *sql.Rows) error {
			var key int64
			var capability string
			if err := rows.Scan(&key, &capability); err != nil {
				return err
			}
			if p, ok := byKey[key]; ok {
				p.Provides = append(p.Provides, capability)
			}
			return nil
		}); err != nil {
		return nil, err
	}
	return pkgs, nil
}

func (s *SQLiteDB) scanChildren(query string, args []any, scan func(*sql.Rows) error) error {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIteratorCreation, err)
	}
	defer rows.Close()
	for rows.Next() {
		if err := scan(rows); err != nil {
			return fmt.Errorf("%w: %w", ErrIteratorCreation, err)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrIteratorCreation, err)
	}
	return nil
}

func (s *SQLiteDB) Files(pkg *Package) (FileIterator, error) {
	rows, err := s.db.Query("SELECT dirname, basename, mode, state FROM files WHERE pkg_id = ? ORDER BY seq", pkg.Key)
	if err != nil {
		return nil, fmt.Errorf("%w for %s: %w", ErrIteratorCreation, pkg.NEVRA(), err)
	}
	defer rows.Close()

	var files []FileEntry
	for rows.Next() {
		var f FileEntry
		var state int
		if err := rows.Scan(&f.Dirname, &f.Basename, &f.Mode, &state); err != nil {
			return nil, fmt.Errorf("%w for %s: %w", ErrIteratorCreation, pkg.NEVRA(), err)
		}
		f.State = FileState(state)
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w for %s: %w", ErrIteratorCreation, pkg.NEVRA(), err)
	}
	return newSliceFileIterator(files), nil
}

// Close closes the database connection.
func (s *SQLiteDB) Close() error {
	return s.db.Close()
}
