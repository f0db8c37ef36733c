//go:build unix

package identity

import (
	"syscall"

	"github.com/spf13/afero"
)

// statIdentity follows symlinks, so aliases of one directory share an identity.
func statIdentity(fs afero.Fs, p string) (Identity, bool) {
	fi, err := fs.Stat(p)
	if err != nil {
		return Identity{}, false
	}
	st, ok := fi.Sys().(*syscall.Stat_t)
	if !ok {
		return Identity{}, false
	}
	return Identity{Dev: uint64(st.Dev), Ino: uint64(st.Ino)}, true
}
