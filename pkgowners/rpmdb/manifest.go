package rpmdb

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

// Manifest is the YAML form of a set of installed packages, used to seed databases.
type Manifest struct {
	Packages []ManifestPackage `yaml:"packages"`
}

type ManifestPackage struct {
	Name       string         `yaml:"name"`
	Epoch      uint32         `yaml:"epoch"`
	Version    string         `yaml:"version"`
	Release    string         `yaml:"release"`
	Arch       string         `yaml:"arch"`
	Size       uint64         `yaml:"size"`
	BuildTime  uint64         `yaml:"buildtime"`
	SourceRPM  string         `yaml:"sourcerpm"`
	Changelogs []uint64       `yaml:"changelogs"`
	Provides   []string       `yaml:"provides"`
	Files      []ManifestFile `yaml:"files"`
}

type ManifestFile struct {
	Path  string `yaml:"path"`
	Type  string `yaml:"type"` // file (default), dir, symlink
	State string `yaml:"state"`
}

// ManifestEntry is a decoded package ready for insertion.
type ManifestEntry struct {
	Package Package
	Files   []FileEntry
}

// LoadManifest decodes a YAML manifest.
func LoadManifest(r io.Reader) ([]ManifestEntry, error) {
	var m Manifest
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to decode manifest: %w", err)
	}

	entries := make([]ManifestEntry, 0, len(m.Packages))
	for i, mp := range m.Packages {
		if mp.Name == "" || mp.Version == "" || mp.Release == "" {
			return nil, fmt.Errorf("manifest package %d: name, version and release are required", i)
		}
		entry := ManifestEntry{
			Package: Package{
				Name:           mp.Name,
				Epoch:          mp.Epoch,
				Version:        mp.Version,
				Release:        mp.Release,
				Arch:           mp.Arch,
				Size:           mp.Size,
				BuildTime:      mp.BuildTime,
				SourceRPM:      mp.SourceRPM,
				ChangelogTimes: mp.Changelogs,
				Provides:       mp.Provides,
			},
		}
		for _, mf := range mp.Files {
			f, err := mf.entry()
			if err != nil {
				return nil, fmt.Errorf("manifest package %s: %w", mp.Name, err)
			}
			entry.Files = append(entry.Files, f)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (mf ManifestFile) entry() (FileEntry, error) {
	if !strings.HasPrefix(mf.Path, "/") {
		return FileEntry{}, fmt.Errorf("file path %q must be absolute", mf.Path)
	}
	dir, base := path.Split(path.Clean(mf.Path))
	if base == "" {
		return FileEntry{}, fmt.Errorf("file path %q has no basename", mf.Path)
	}

	var mode uint32
	switch strings.ToLower(mf.Type) {
	case "", "file":
		mode = ModeRegular | 0o644
	case "dir":
		mode = ModeDir | 0o755
	case "symlink":
		mode = ModeSymlink | 0o777
	default:
		return FileEntry{}, fmt.Errorf("file %s: unknown type %q", mf.Path, mf.Type)
	}

	state, err := ParseFileState(mf.State)
	if err != nil {
		return FileEntry{}, fmt.Errorf("file %s: %w", mf.Path, err)
	}
	return FileEntry{Dirname: CleanDirname(dir), Basename: base, Mode: mode, State: state}, nil
}

// Import writes manifest entries into a SQLite package database.
func Import(ctx context.Context, db *SQLiteDB, entries []ManifestEntry) (int, error) {
	for i := range entries {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		if _, err := db.InsertPackage(ctx, &entries[i].Package, entries[i].Files); err != nil {
			return i, err
		}
	}
	return len(entries), nil
}

// Populate adds manifest entries to an in-memory database.
func (m *MemoryDB) Populate(entries []ManifestEntry) {
	for _, e := range entries {
		m.Add(e.Package, e.Files...)
	}
}
