package rpmdb

import "errors"

var (
	// ErrNoMatch is returned by the Match* methods when the database index has no entry for the key.
	ErrNoMatch = errors.New("no matching records")
	// ErrIteratorCreation means the database could not produce a package or file iterator.
	ErrIteratorCreation = errors.New("failed to create iterator")
	// ErrClosed is returned by operations on a database that has been closed.
	ErrClosed = errors.New("package database is closed")
)

// PackageIterator walks package records. Next must be called before the first Package.
type PackageIterator interface {
	Next() bool
	Package() *Package
	Err() error
	Close() error
}

// FileIterator walks the file manifest of one package.
type FileIterator interface {
	Next() bool
	File() FileEntry
	Err() error
	Close() error
}

// Database is the read side of an installed-package database. Implementations are not
// required to support concurrent iteration.
type Database interface {
	// Packages iterates every installed package in database order.
	Packages() (PackageIterator, error)
	// MatchName iterates packages with the given name, or returns ErrNoMatch.
	MatchName(name string) (PackageIterator, error)
	// MatchFile iterates packages whose manifest lists the installed path, or returns ErrNoMatch.
	MatchFile(path string) (PackageIterator, error)
	// MatchProvide iterates packages providing the capability, or returns ErrNoMatch.
	MatchProvide(capability string) (PackageIterator, error)
	// Files iterates the manifest of a package obtained from this database.
	Files(pkg *Package) (FileIterator, error)
	Close() error
}
