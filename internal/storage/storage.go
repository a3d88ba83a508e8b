// Package storage defines the paste store boundary.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a paste does not exist.
var ErrNotFound = errors.New("paste not found")

// ErrExists is returned by Put when the ID is already taken. Pastes are
// immutable: there is no update path.
var ErrExists = errors.New("paste already exists")

// Store maps paste IDs to their content. The server serializes
// Exists-then-Put for a freshly generated ID, but backends still refuse to
// overwrite so the create-once guarantee does not rest on callers alone.
type Store interface {
	Exists(ctx context.Context, id string) (bool, error)
	Get(ctx context.Context, id string) ([]byte, error)
	Put(ctx context.Context, id string, content []byte) error
	Close() error
}
