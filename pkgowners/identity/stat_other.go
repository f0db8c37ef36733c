//go:build !unix

package identity

import "github.com/spf13/afero"

// Device and inode numbers are not exposed here; reconciliation degrades to string matching.
func statIdentity(afero.Fs, string) (Identity, bool) {
	return Identity{}, false
}
