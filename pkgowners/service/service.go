package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ZanzyTHEbar/pkgowners/pkgowners/config"
	"github.com/ZanzyTHEbar/pkgowners/pkgowners/identity"
	"github.com/ZanzyTHEbar/pkgowners/pkgowners/indexing"
	"github.com/ZanzyTHEbar/pkgowners/pkgowners/query"
	"github.com/ZanzyTHEbar/pkgowners/pkgowners/rpmdb"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/afero"
)

// ErrClosed is returned by queries on a closed Service.
var ErrClosed = errors.New("service is closed")

// Owners pairs a queried path with the packages owning it.
type Owners struct {
	Path     string
	Packages []string
}

// Service is a library-first API over one package database snapshot and the
// ownership index built from it.
type Service struct {
	cfg      config.Config
	handle   *rpmdb.TxnHandle
	index    indexing.Index
	fs       afero.Fs
	resolver identity.Resolver
	logger   zerolog.Logger

	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

// Option customizes a Service.
type Option func(*Service)

// WithLogger sets the service logger. The default discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithHandle serves from an already open handle instead of cfg.Database.
// The service takes over the caller's reference.
func WithHandle(h *rpmdb.TxnHandle) Option {
	return func(s *Service) { s.handle = h }
}

// WithFS replaces the filesystem rooted at cfg.Index.Sysroot.
func WithFS(fs afero.Fs) Option {
	return func(s *Service) { s.fs = fs }
}

// WithResolver replaces the directory identity resolver.
func WithResolver(r identity.Resolver) Option {
	return func(s *Service) { s.resolver = r }
}

// New opens the configured package database and builds the ownership index.
func New(cfg *config.Config, opts ...Option) (*Service, error) {
	if cfg == nil {
		return nil, fmt.Errorf("service: nil config")
	}
	c := *cfg
	if err := c.Validate(); err != nil {
		return nil, err
	}

	s := &Service{cfg: c, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}

	if s.handle == nil {
		h, err := OpenHandle(c.Database)
		if err != nil {
			return nil, err
		}
		s.handle = h
	}
	s.handle.WithLogger(s.logger)

	if s.fs == nil {
		s.fs = identity.RootFs(c.Index.Sysroot)
	}
	if s.resolver == nil {
		s.resolver = identity.NewFSResolver(s.fs)
	}

	idx, err := indexing.Build(s.handle, indexing.Options{
		Strategy:  c.Index.Strategy,
		Reconcile: c.Index.Reconcile,
		Resolver:  s.resolver,
		FS:        s.fs,
		Logger:    s.logger,
	})
	if err != nil {
		s.handle.Release()
		return nil, fmt.Errorf("building %s index: %w", c.Index.Strategy, err)
	}
	s.index = idx
	return s, nil
}

// OpenHandle opens the configured database read-only, through a scratch copy when
// db.Snapshot is set. Queries that need no index can run on it directly.
func OpenHandle(db config.DatabaseConfig) (*rpmdb.TxnHandle, error) {
	if db.Snapshot {
		return rpmdb.OpenSnapshot(db.Path)
	}
	return rpmdb.Open(db.Path)
}

// acquire pins the handle for one query. The returned release must be called.
func (s *Service) acquire() (*rpmdb.TxnHandle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	return s.handle.Acquire(), nil
}

// PackagesForFile returns the packages owning path. It never fails.
func (s *Service) PackagesForFile(path string) []string {
	return s.index.PackagesForFile(path)
}

// OwnersOf looks up many paths concurrently, bounded by the configured worker count.
// Results are in input order.
func (s *Service) OwnersOf(ctx context.Context, paths []string) ([]Owners, error) {
	type result struct {
		pos    int
		owners Owners
	}

	p := pool.NewWithResults[result]().WithContext(ctx).WithMaxGoroutines(s.cfg.Index.Workers)
	for i, path := range paths {
		i, path := i, path
		p.Go(func(ctx context.Context) (result, error) {
			if err := ctx.Err(); err != nil {
				return result{}, err
			}
			return result{pos: i, owners: Owners{Path: path, Packages: s.index.PackagesForFile(path)}}, nil
		})
	}
	results, err := p.Wait()
	if err != nil {
		return nil, err
	}

	out := make([]Owners, len(paths))
	for _, r := range results {
		out[r.pos] = r.owners
	}
	return out, nil
}

// PackageMeta returns the metadata of the installed package called name.
func (s *Service) PackageMeta(name string) (*query.Metadata, error) {
	h, err := s.acquire()
	if err != nil {
		return nil, err
	}
	defer h.Release()
	return query.PackageMeta(h, name)
}

// PackagesProvidingFile asks the database directly, without the index.
func (s *Service) PackagesProvidingFile(path string) ([]string, error) {
	h, err := s.acquire()
	if err != nil {
		return nil, err
	}
	defer h.Release()
	return query.PackagesProvidingFile(h, path)
}

// Stats describes the index build.
func (s *Service) Stats() indexing.Stats {
	return s.index.Stats()
}

// Index exposes the underlying index for strategy-specific queries.
func (s *Service) Index() indexing.Index {
	return s.index
}

// Close drops the service's reference on the handle. The index stays usable.
func (s *Service) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		s.handle.Release()
	})
	return nil
}
