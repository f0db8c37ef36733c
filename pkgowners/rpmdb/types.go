package rpmdb

import (
	"fmt"
	"path"
	"strings"
)

// FileState mirrors the per-file install state recorded in the package database.
type FileState int

const (
	StateNormal FileState = iota
	StateReplaced
	StateNotInstalled
	StateNetShared
	StateWrongColor
	StateMissing
)

var fileStateNames = map[FileState]string{
	StateNormal:       "normal",
	StateReplaced:     "replaced",
	StateNotInstalled: "notinstalled",
	StateNetShared:    "netshared",
	StateWrongColor:   "wrongcolor",
	StateMissing:      "missing",
}

func (s FileState) String() string {
	if name, ok := fileStateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("FileState(%d)", int(s))
}

// Installed reports whether the file is actually present on disk for this package.
func (s FileState) Installed() bool {
	return s == StateNormal || s == StateNetShared
}

// ParseFileState maps a state name back to its value. The empty string means normal.
func ParseFileState(name string) (FileState, error) {
	if name == "" {
		return StateNormal, nil
	}
	for state, n := range fileStateNames {
		if strings.EqualFold(n, name) {
			return state, nil
		}
	}
	return 0, fmt.Errorf("unknown file state %q", name)
}

// Unix st_mode type bits. Defined here so the database layer does not depend on syscall.
const (
	ModeTypeMask uint32 = 0o170000
	ModeDir      uint32 = 0o040000
	ModeRegular  uint32 = 0o100000
	ModeSymlink  uint32 = 0o120000
)

// Package is one installed package record.
type Package struct {
	// Key is the database-internal record number.
	Key       int64
	Name      string
	Epoch     uint32
	Version   string
	Release   string
	Arch      string
	Size      uint64
	BuildTime uint64
	SourceRPM string
	// ChangelogTimes are epoch seconds in database order, which is not necessarily chronological.
	ChangelogTimes []uint64
	Provides       []string
}

// NEVRA returns name-[epoch:]version-release.arch; a zero epoch is omitted.
func (p *Package) NEVRA() string {
	var b strings.Builder
	b.WriteString(p.Name)
	b.WriteByte('-')
	if p.Epoch > 0 {
		fmt.Fprintf(&b, "%d:", p.Epoch)
	}
	b.WriteString(p.Version)
	b.WriteByte('-')
	b.WriteString(p.Release)
	if p.Arch != "" {
		b.WriteByte('.')
		b.WriteString(p.Arch)
	}
	return b.String()
}

// FileEntry is one entry of a package's file manifest.
type FileEntry struct {
	Dirname  string
	Basename string
	Mode     uint32
	State    FileState
}

// IsDir reports whether the manifest entry is a directory.
func (f FileEntry) IsDir() bool {
	return f.Mode&ModeTypeMask == ModeDir
}

// Path returns the absolute path of the entry.
func (f FileEntry) Path() string {
	return JoinPath(f.Dirname, f.Basename)
}

// CleanDirname normalizes a recorded directory: no trailing slash, and the root is "".
// Every layer that stores or compares dirnames goes through it.
func CleanDirname(dir string) string {
	if dir == "" {
		return ""
	}
	clean := path.Clean(dir)
	if clean == "/" || clean == "." {
		return ""
	}
	return clean
}

// JoinPath builds the absolute path of basename inside dir.
func JoinPath(dir, basename string) string {
	return CleanDirname(dir) + "/" + basename
}

// SplitPath is the inverse of JoinPath. The root and the empty path split into two
// empty strings.
func SplitPath(p string) (dir, basename string) {
	if p == "" {
		return "", ""
	}
	clean := path.Clean(p)
	if clean == "/" || clean == "." {
		return "", ""
	}
	dir, basename = path.Split(clean)
	return CleanDirname(dir), basename
}
