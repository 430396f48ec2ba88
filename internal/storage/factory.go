package storage

import (
	"errors"
	"fmt"
)

const DefaultStoreKind = "memory"

// ErrSQLiteUnavailable is returned for the sqlite kind in builds without the
// sqlite tag.
var ErrSQLiteUnavailable = errors.New("sqlite backend unavailable in this build")

func NewStore(kind, sqlitePath string) (Store, error) {
	switch kind {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		return newSQLiteStore(sqlitePath)
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", kind)
	}
}

func CloseIfSupported(store Store) error {
	closer, ok := store.(interface{ Close() error })
	if !ok {
		return nil
	}
	return closer.Close()
}
