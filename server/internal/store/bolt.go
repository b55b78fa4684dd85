package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/fieldwatch/fieldwatch/pkg/types"
)

// boltLockTimeout bounds how long Open waits for another process's file lock.
const boltLockTimeout = 2 * time.Second

// Bolt stores one record per key in a single bbolt bucket.
type Bolt struct {
	db     *bolt.DB
	bucket []byte
}

// OpenBolt opens (or creates) the database file at path and ensures bucket exists.
// Parent directories are created automatically.
func OpenBolt(ctx context.Context, path, bucket string) (*Bolt, error) {
	if path == "" {
		return nil, fmt.Errorf("store: bolt: empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("store: bolt: creating db directory: %w", err)
	}

	timeout := boltLockTimeout
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl); left > 0 && left < timeout {
			timeout = left
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("store: bolt: opening %s: %w", path, err)
	}

	b := &Bolt{db: db, bucket: []byte(bucket)}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(b.bucket)
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: bolt: creating bucket %s: %w", bucket, err)
	}
	return b, nil
}

func (b *Bolt) Get(_ context.Context, k types.Key) (json.RawMessage, error) {
	var out json.RawMessage
	err := b.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(b.bucket).Get([]byte(k))
		if v == nil {
			return nil
		}
		// v is only valid for the life of the transaction.
		out = append(json.RawMessage(nil), v...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("store: bolt: get %s: %w", k, err)
	}
	if types.IsEmpty(out) {
		return nil, ErrNotFound
	}
	return out, nil
}

func (b *Bolt) Put(_ context.Context, k types.Key, data json.RawMessage) error {
	if !json.Valid(data) {
		return fmt.Errorf("store: bolt: put %s: invalid JSON", k)
	}
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(b.bucket).Put([]byte(k), data)
	})
}

func (b *Bolt) Close(context.Context) error {
	return b.db.Close()
}

// Path returns the filesystem path of the open database.
func (b *Bolt) Path() string {
	return b.db.Path()
}
