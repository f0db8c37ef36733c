package indexing

import (
	"errors"
	"time"

	"github.com/ZanzyTHEbar/pkgowners/pkgowners/identity"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

// Index strategies.
const (
	StrategyBasename = "basename"
	StrategyHashed   = "hashed"
)

// ErrUnknownStrategy is returned by Build for a strategy it does not implement.
var ErrUnknownStrategy = errors.New("unknown index strategy")

// Index answers path ownership queries. It is immutable once built and safe for
// concurrent lookups.
type Index interface {
	// PackagesForFile returns the NEVRA of every installed package owning path.
	// The result is never nil; an empty result is a normal answer.
	PackagesForFile(path string) []string
	Stats() Stats
}

// FileRecord is one manifest entry contributed by one package to a basename bucket.
type FileRecord struct {
	Package string
	Dirname string

	// Set only when the dirname was resolved during a reconciling build.
	// DirSuffix is the part of Dirname below the directory that actually resolved.
	Dir       identity.Identity
	DirSuffix string
	HasDir    bool
}

// Stats summarizes one index build.
type Stats struct {
	BuildID        uuid.UUID
	Strategy       string
	Reconcile      bool
	Packages       int
	Files          int
	Buckets        int
	Directories    int
	RemapRules     int
	HashCollisions int
	BuildDuration  time.Duration
}

// Options controls an index build.
type Options struct {
	Strategy  string
	Reconcile bool

	// Resolver resolves directory identities for the basename strategy. When nil and
	// Reconcile is set, an FSResolver over FS is used.
	Resolver identity.Resolver
	// FS is the filesystem root explored by the hashed strategy and the default resolver.
	// Defaults to the OS filesystem.
	FS afero.Fs

	Logger zerolog.Logger
}

func (o Options) resolver() identity.Resolver {
	if o.Resolver != nil {
		return o.Resolver
	}
	return identity.NewFSResolver(o.fs())
}

func (o Options) fs() afero.Fs {
	if o.FS != nil {
		return o.FS
	}
	return afero.NewOsFs()
}
