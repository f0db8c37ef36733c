package identity

import (
	"fmt"
	"path"
	"sync"
	"sync/atomic"

	"github.com/spf13/afero"
)

// Identity is the physical identity of a directory: device and inode.
type Identity struct {
	Dev uint64
	Ino uint64
}

func (i Identity) String() string {
	return fmt.Sprintf("%d:%d", i.Dev, i.Ino)
}

// Resolver maps a logical directory path to a physical identity.
//
// Resolve never fails. When dir does not exist it walks up to the nearest ancestor that
// does and returns that ancestor's identity together with the ancestor path. When no
// ancestor resolves, or dir is empty, ok is false and the returned path is "".
type Resolver interface {
	Resolve(dir string) (id Identity, canonical string, ok bool)
}

type resolution struct {
	id   Identity
	path string
	ok   bool
}

// Clean normalizes a directory path: trailing slashes go away and the empty string stays empty.
func Clean(dir string) string {
	if dir == "" {
		return ""
	}
	return path.Clean(dir)
}

func parent(p string) string {
	if p == "/" || p == "." {
		return ""
	}
	d := path.Dir(p)
	if d == "." {
		return ""
	}
	return d
}

// FSResolver stats directories through an afero filesystem and memoizes every answer.
// Cached entries are never invalidated: directory identities are assumed stable for the
// lifetime of the resolver. Safe for concurrent use.
type FSResolver struct {
	fs    afero.Fs
	mu    sync.RWMutex
	cache map[string]resolution
	stats atomic.Int64
}

var _ Resolver = (*FSResolver)(nil)

// NewFSResolver resolves against fs. Paths are interpreted relative to the root of fs.
func NewFSResolver(fs afero.Fs) *FSResolver {
	return &FSResolver{
		fs:    fs,
		cache: make(map[string]resolution),
	}
}

// NewOSResolver resolves against the live filesystem, optionally under sysroot.
func NewOSResolver(sysroot string) *FSResolver {
	return NewFSResolver(RootFs(sysroot))
}

// RootFs returns the OS filesystem, chrooted to sysroot when it is not "/".
func RootFs(sysroot string) afero.Fs {
	if sysroot == "" || path.Clean(sysroot) == "/" {
		return afero.NewOsFs()
	}
	return afero.NewBasePathFs(afero.NewOsFs(), sysroot)
}

func (r *FSResolver) Resolve(dir string) (Identity, string, bool) {
	dir = Clean(dir)
	if dir == "" {
		return Identity{}, "", false
	}

	r.mu.RLock()
	res, hit := r.cache[dir]
	r.mu.RUnlock()
	if hit {
		return res.id, res.path, res.ok
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var walked []string
	res = resolution{}
	for p := dir; p != ""; p = parent(p) {
		if cached, ok := r.cache[p]; ok {
			res = cached
			break
		}
		walked = append(walked, p)
		r.stats.Add(1)
		if id, ok := statIdentity(r.fs, p); ok {
			res = resolution{id: id, path: p, ok: true}
			break
		}
	}

	// Every path on the way up resolves to the same ancestor.
	for _, p := range walked {
		r.cache[p] = res
	}
	return res.id, res.path, res.ok
}

// Prewarm resolves dirs so later lookups are read-only on the cache.
func (r *FSResolver) Prewarm(dirs ...string) {
	for _, d := range dirs {
		r.Resolve(d)
	}
}

// CacheSize returns the number of memoized paths.
func (r *FSResolver) CacheSize() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.cache)
}

// StatCalls returns how many stat calls the resolver has issued.
func (r *FSResolver) StatCalls() int64 {
	return r.stats.Load()
}

// StaticResolver resolves from a fixed path table, walking up like FSResolver.
// It stands in for the filesystem in tests.
type StaticResolver map[string]Identity

var _ Resolver = StaticResolver(nil)

func (s StaticResolver) Resolve(dir string) (Identity, string, bool) {
	for p := Clean(dir); p != ""; p = parent(p) {
		if id, ok := s[p]; ok {
			return id, p, true
		}
	}
	return Identity{}, "", false
}
