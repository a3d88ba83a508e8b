package boltstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"nanopaste/internal/storage"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestPutGetExists(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	ok, err := store.Exists(ctx, "abc123")
	if err != nil || ok {
		t.Fatalf("exists before put: %v %v", ok, err)
	}

	if err := store.Put(ctx, "abc123", []byte("hello")); err != nil {
		t.Fatalf("put: %v", err)
	}

	ok, err = store.Exists(ctx, "abc123")
	if err != nil || !ok {
		t.Fatalf("exists after put: %v %v", ok, err)
	}

	got, err := store.Get(ctx, "abc123")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != "hello" {
		t.Fatalf("content %q", got)
	}
}

func TestPutRefusesOverwrite(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.Put(ctx, "ab", []byte("one")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.Put(ctx, "ab", []byte("two")); !errors.Is(err, storage.ErrExists) {
		t.Fatalf("err %v, want ErrExists", err)
	}
}

func TestGetMissing(t *testing.T) {
	store := openTestStore(t)
	if _, err := store.Get(context.Background(), "nope"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("err %v, want ErrNotFound", err)
	}
}
