// Package fsstore keeps each paste as a flat file named after its ID.
package fsstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"nanopaste/internal/storage"
)

// Store implements storage.Store on a directory of flat files.
type Store struct {
	fs  afero.Fs
	dir string
}

// Open initializes a flat-file store rooted at dir on the real filesystem.
func Open(dir string) (*Store, error) {
	return OpenOn(afero.NewOsFs(), dir)
}

// OpenOn is Open on an arbitrary afero filesystem (memfs in tests).
func OpenOn(fsys afero.Fs, dir string) (*Store, error) {
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create paste dir: %w", err)
	}
	return &Store{fs: fsys, dir: dir}, nil
}

// Exists reports whether a paste file is present.
func (s *Store) Exists(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	ok, err := afero.Exists(s.fs, s.path(id))
	if err != nil {
		return false, fmt.Errorf("stat paste: %w", err)
	}
	return ok, nil
}

// Get returns a paste's content.
func (s *Store) Get(ctx context.Context, id string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(s.fs, s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("read paste: %w", err)
	}
	return data, nil
}

// Put creates a paste file, refusing to overwrite an existing one.
func (s *Store) Put(ctx context.Context, id string, content []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f, err := s.fs.OpenFile(s.path(id), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return storage.ErrExists
		}
		return fmt.Errorf("create paste: %w", err)
	}
	if _, err := f.Write(content); err != nil {
		_ = f.Close()
		return fmt.Errorf("write paste: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close paste: %w", err)
	}
	return nil
}

// Close is a no-op for the flat-file backend.
func (s *Store) Close() error { return nil }

func (s *Store) path(id string) string {
	// IDs are alphanumeric by construction and lookups are validated against
	// [A-Za-z0-9]+ before they reach the store, so the join cannot escape dir.
	return filepath.Join(s.dir, id)
}
