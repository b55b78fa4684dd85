package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fieldwatch/fieldwatch/pkg/types"
	"github.com/fieldwatch/fieldwatch/server/internal/config"
)

var (
	// ErrNotFound means the key has no record, or its data is null/empty.
	ErrNotFound = errors.New("store: document not found")

	// ErrUnavailable means the backend is refusing reads (breaker open).
	ErrUnavailable = errors.New("store: unavailable")
)

// Store is a read-only lookup of DashboardDocument sections.
type Store interface {
	// Get returns the raw JSON data stored under k.
	Get(ctx context.Context, k types.Key) (json.RawMessage, error)

	// Close releases the backend's resources.
	Close(ctx context.Context) error
}

// Seeder is a Store that can also be written to. Only the out-of-band seed
// tool uses it; the HTTP API never writes.
type Seeder interface {
	Store
	Put(ctx context.Context, k types.Key, data json.RawMessage) error
}

// Open connects the backend selected by cfg.Driver. fixture backs the memory
// driver and is ignored otherwise. A single call makes a single attempt;
// Connector adds sharing, caching and retries on top.
func Open(ctx context.Context, cfg config.StoreConfig, fixture types.Document) (Store, error) {
	switch cfg.Driver {
	case config.DriverMemory, "":
		return NewMemory(fixture), nil
	case config.DriverMongo:
		return OpenMongo(ctx, cfg.URI(), cfg.Database, cfg.Collection)
	case config.DriverBolt:
		return OpenBolt(ctx, cfg.URI(), cfg.Collection)
	default:
		return nil, fmt.Errorf("store: unsupported driver %q", cfg.Driver)
	}
}

// Seed writes every non-empty section of doc into s and returns the keys written.
func Seed(ctx context.Context, s Seeder, doc types.Document, only ...types.Key) ([]types.Key, error) {
	keys := types.Keys
	if len(only) > 0 {
		keys = only
	}
	written := make([]types.Key, 0, len(keys))
	for _, k := range keys {
		raw, ok := doc.Get(k)
		if !ok {
			continue
		}
		if err := s.Put(ctx, k, raw); err != nil {
			return written, fmt.Errorf("store: seed %s: %w", k, err)
		}
		written = append(written, k)
	}
	return written, nil
}
