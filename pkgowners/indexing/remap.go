package indexing

import (
	"os"
	"path"
	"strings"
	"sync"

	"github.com/armon/go-radix"
	"github.com/spf13/afero"
)

// maxLinkHops bounds symlink chains, like the kernel's ELOOP limit.
const maxLinkHops = 40

// remapRules maps a live canonical directory prefix to the recorded prefixes that
// reach it through a symlink. A recorded /bin that is a link to usr/bin yields the
// rule /usr/bin -> [/bin].
type remapRules struct {
	tree  *radix.Tree
	count int
}

func newRemapRules() *remapRules {
	return &remapRules{tree: radix.New()}
}

func (r *remapRules) add(live, recorded string) {
	if live == recorded {
		return
	}
	var targets []string
	if v, ok := r.tree.Get(live); ok {
		targets = v.([]string)
	}
	for _, t := range targets {
		if t == recorded {
			return
		}
	}
	r.tree.Insert(live, append(targets, recorded))
	r.count++
}

// rewrite returns p with every matching rule prefix substituted. Prefixes only match
// on path component boundaries.
func (r *remapRules) rewrite(p string) []string {
	var out []string
	r.tree.WalkPath(p, func(prefix string, v interface{}) bool {
		if !underPrefix(p, prefix) {
			return false
		}
		rest := p[len(prefix):]
		if prefix == "/" {
			rest = p
		}
		for _, recorded := range v.([]string) {
			out = append(out, recorded+rest)
		}
		return false
	})
	return out
}

func (r *remapRules) Len() int { return r.count }

// linkWalker resolves directories against a filesystem root without following
// symlinks out of it: absolute link targets are taken relative to the root.
type linkWalker struct {
	fs afero.Fs

	mu    sync.Mutex
	cache map[string]string
}

func newLinkWalker(fs afero.Fs) *linkWalker {
	return &linkWalker{fs: fs, cache: make(map[string]string)}
}

// explore walks dir one component at a time and calls onLink for every component that
// is a symlink, with the recorded prefix and the live path it resolves to. It returns
// the canonical path of dir. When some component does not exist the rest of dir is
// kept literally and ok is false.
func (w *linkWalker) explore(dir string, onLink func(recorded, live string), depth int) (string, bool) {
	if dir == "" || dir == "/" {
		return dir, true
	}
	live := ""
	recorded := ""
	parts := strings.Split(strings.TrimPrefix(dir, "/"), "/")
	for i, c := range parts {
		recorded = recorded + "/" + c
		next, isLink, ok := w.step(live+"/"+c, depth)
		if !ok {
			return path.Join(append([]string{live + "/"}, parts[i:]...)...), false
		}
		if isLink && onLink != nil {
			onLink(recorded, next)
		}
		live = next
	}
	if live == "" {
		return "/", true
	}
	return live, true
}

// step resolves the final component of p, whose parent is already canonical.
func (w *linkWalker) step(p string, depth int) (resolved string, isLink bool, ok bool) {
	if depth >= maxLinkHops {
		return p, false, false
	}
	fi, err := w.lstat(p)
	if err != nil {
		return p, false, false
	}
	if fi.Mode()&os.ModeSymlink == 0 {
		return p, false, true
	}
	target, err := w.readlink(p)
	if err != nil {
		return p, false, false
	}
	if path.IsAbs(target) {
		target = path.Clean(target)
	} else {
		target = path.Join(path.Dir(p), target)
	}
	// The target may itself traverse links.
	resolved, ok = w.explore(target, nil, depth+1)
	return resolved, true, ok
}

// Canonical resolves dir within the root, memoized.
func (w *linkWalker) Canonical(dir string) string {
	w.mu.Lock()
	c, ok := w.cache[dir]
	w.mu.Unlock()
	if ok {
		return c
	}
	c, _ = w.explore(dir, nil, 0)
	w.mu.Lock()
	w.cache[dir] = c
	w.mu.Unlock()
	return c
}

func (w *linkWalker) lstat(p string) (os.FileInfo, error) {
	if l, ok := w.fs.(afero.Lstater); ok {
		fi, _, err := l.LstatIfPossible(p)
		return fi, err
	}
	return w.fs.Stat(p)
}

func (w *linkWalker) readlink(p string) (string, error) {
	if r, ok := w.fs.(afero.LinkReader); ok {
		return r.ReadlinkIfPossible(p)
	}
	return "", &os.PathError{Op: "readlink", Path: p, Err: afero.ErrNoReadlink}
}
