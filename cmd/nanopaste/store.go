package main

import (
	"fmt"

	"nanopaste/internal/storage"
	"nanopaste/internal/storage/boltstore"
	"nanopaste/internal/storage/fsstore"
	"nanopaste/internal/storage/sqlitestore"
)

func openStore(kind, path string) (storage.Store, error) {
	switch kind {
	case "fs":
		return fsstore.Open(path)
	case "bolt":
		return boltstore.Open(path)
	case "sqlite":
		return sqlitestore.Open(path)
	}
	return nil, fmt.Errorf("unknown store backend %q", kind)
}
