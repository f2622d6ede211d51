// Package store provides key-scoped durable storage of JSON documents.
// Each persisted collection occupies one key and is rewritten whole on
// every mutation; concurrent external writers of the same key are
// unsupported.
package store

import (
	"context"
	"fmt"

	"cassette/config"
)

// Storage keys, one per persisted collection.
const (
	KeyHistory   = "cassette:history"
	KeyFavorites = "cassette:favorites"
	KeyPlaylists = "cassette:playlists"
	KeyAutoPay   = "cassette:autopay"
)

// Store is the durable storage boundary. Get reports absence through the
// second return value rather than an error.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	Close() error
}

// Open selects and connects a backend based on configuration.
func Open(cfg *config.Config) (Store, error) {
	switch cfg.StoreBackend {
	case "file":
		return NewFileStore(cfg.StateDir)
	case "redis":
		return NewRedisStore(cfg)
	case "mysql":
		return NewMySQLStore(cfg)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}
