package rpmdb

import (
	"fmt"
	"path"
	"sync"
)

// MemoryDB is an in-memory Database that serves records in insertion order.
type MemoryDB struct {
	mu       sync.Mutex
	packages []*Package
	files    map[int64][]FileEntry
	nextKey  int64
	closed   bool

	// FailPackages, when set, is returned (wrapped) by every package iterator constructor.
	FailPackages error
	// FailFiles maps a NEVRA to an error returned when creating that package's file iterator.
	FailFiles map[string]error
}

var _ Database = (*MemoryDB)(nil)

func NewMemoryDB() *MemoryDB {
	return &MemoryDB{
		files:     make(map[int64][]FileEntry),
		FailFiles: make(map[string]error),
		nextKey:   1,
	}
}

// Add stores a copy of pkg with its manifest and returns the stored record.
func (m *MemoryDB) Add(pkg Package, files ...FileEntry) *Package {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := pkg
	stored.Key = m.nextKey
	stored.ChangelogTimes = append([]uint64(nil), pkg.ChangelogTimes...)
	stored.Provides = append([]string(nil), pkg.Provides...)
	m.nextKey++

	m.packages = append(m.packages, &stored)
	m.files[stored.Key] = append([]FileEntry(nil), files...)
	return &stored
}

// Len returns the number of stored packages.
func (m *MemoryDB) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.packages)
}

func (m *MemoryDB) Packages() (PackageIterator, error) {
	return m.match(func(*Package) bool { return true }, false)
}

func (m *MemoryDB) MatchName(name string) (PackageIterator, error) {
	return m.match(func(p *Package) bool { return p.Name == name }, true)
}

func (m *MemoryDB) MatchFile(filePath string) (PackageIterator, error) {
	want := path.Clean(filePath)
	return m.match(func(p *Package) bool {
		for _, f := range m.files[p.Key] {
			if f.State.Installed() && path.Clean(f.Path()) == want {
				return true
			}
		}
		return false
	}, true)
}

func (m *MemoryDB) MatchProvide(capability string) (PackageIterator, error) {
	return m.match(func(p *Package) bool {
		for _, prov := range p.Provides {
			if prov == capability {
				return true
			}
		}
		return false
	}, true)
}

func (m *MemoryDB) match(keep func(*Package) bool, noMatchIsError bool) (PackageIterator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, fmt.Errorf("%w: %w", ErrIteratorCreation, ErrClosed)
	}
	if m.FailPackages != nil {
		return nil, fmt.Errorf("%w: %w", ErrIteratorCreation, m.FailPackages)
	}

	var out []*Package
	for _, p := range m.packages {
		if keep(p) {
			out = append(out, p)
		}
	}
	if noMatchIsError && len(out) == 0 {
		return nil, ErrNoMatch
	}
	return newSliceIterator(out), nil
}

func (m *MemoryDB) Files(pkg *Package) (FileIterator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, fmt.Errorf("%w: %w", ErrIteratorCreation, ErrClosed)
	}
	if err, ok := m.FailFiles[pkg.NEVRA()]; ok && err != nil {
		return nil, fmt.Errorf("%w for %s: %w", ErrIteratorCreation, pkg.NEVRA(), err)
	}
	files, ok := m.files[pkg.Key]
	if !ok {
		return nil, fmt.Errorf("%w: unknown package key %d", ErrIteratorCreation, pkg.Key)
	}
	return newSliceFileIterator(files), nil
}

// Close marks the database closed. Closing twice is not an error.
func (m *MemoryDB) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (m *MemoryDB) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
