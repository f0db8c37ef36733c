package rpmdb

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// TxnHandle is a reference-counted handle on a package database.
// It may own a scratch directory, which is removed when the last reference is released.
type TxnHandle struct {
	refs       atomic.Int32
	db         Database
	scratchDir string
	logger     zerolog.Logger
}

// NewTxnHandle wraps db with a reference count of one. Ownership of scratchDir, if any,
// moves to the handle.
func NewTxnHandle(db Database, scratchDir string) *TxnHandle {
	h := &TxnHandle{
		db:         db,
		scratchDir: scratchDir,
		logger:     zerolog.Nop(),
	}
	h.refs.Store(1)
	return h
}

// WithLogger sets the logger used when finalizing the handle.
func (h *TxnHandle) WithLogger(logger zerolog.Logger) *TxnHandle {
	h.logger = logger
	return h
}

// DB returns the underlying database.
func (h *TxnHandle) DB() Database {
	return h.db
}

// ScratchDir returns the directory owned by the handle, or "".
func (h *TxnHandle) ScratchDir() string {
	return h.scratchDir
}

// Refs returns the current reference count.
func (h *TxnHandle) Refs() int32 {
	return h.refs.Load()
}

// Acquire adds a reference and returns the handle for chaining.
func (h *TxnHandle) Acquire() *TxnHandle {
	if h.refs.Add(1) <= 1 {
		panic("rpmdb: Acquire on a released TxnHandle")
	}
	return h
}

// Release drops a reference. The last release closes the database and deletes the
// scratch directory; deletion failures are ignored.
func (h *TxnHandle) Release() {
	n := h.refs.Add(-1)
	if n > 0 {
		return
	}
	if n < 0 {
		panic("rpmdb: TxnHandle released more times than acquired")
	}

	if err := h.db.Close(); err != nil {
		h.logger.Warn().Err(err).Msg("closing package database")
	}
	if h.scratchDir != "" {
		_ = os.RemoveAll(h.scratchDir)
	}
	h.logger.Debug().Str("scratch_dir", h.scratchDir).Msg("transaction handle finalized")
}

// OpenSnapshot copies the database file at dbPath into a fresh scratch directory and opens
// the copy read-only, so the live database is never read while a package manager may be writing it.
func OpenSnapshot(dbPath string) (*TxnHandle, error) {
	scratch, err := os.MkdirTemp("", "pkgowners-txn-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}

	dst := filepath.Join(scratch, filepath.Base(dbPath))
	if err := copyFile(dbPath, dst); err != nil {
		_ = os.RemoveAll(scratch)
		return nil, fmt.Errorf("failed to snapshot %s: %w", dbPath, err)
	}

	db, err := OpenSQLiteReadOnly(dst)
	if err != nil {
		_ = os.RemoveAll(scratch)
		return nil, err
	}
	return NewTxnHandle(db, scratch), nil
}

// Open opens dbPath read-only in place without a scratch copy.
func Open(dbPath string) (*TxnHandle, error) {
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("package database %s: %w", dbPath, err)
	}
	db, err := OpenSQLiteReadOnly(dbPath)
	if err != nil {
		return nil, err
	}
	return NewTxnHandle(db, ""), nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
