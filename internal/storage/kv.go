package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

var kvBucketName = []byte("fieldbuddy")

// Bucket is the view of the key-value store inside one transaction.
type Bucket interface {
	Get(key string) []byte
	Put(key string, value []byte) error
}

// KV is a persistent key-value store with read and read-write transactions.
type KV interface {
	View(ctx context.Context, fn func(Bucket) error) error
	Update(ctx context.Context, fn func(Bucket) error) error
	Close() error
}

type boltKV struct {
	db *bolt.DB
}

// OpenBolt opens (creating if needed) a bbolt file holding a single bucket.
func OpenBolt(path string) (KV, error) {
	if path == "" {
		return nil, fmt.Errorf("open kv: empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("open kv: create parent dir: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open kv: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(kvBucketName)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open kv: create bucket: %w", err)
	}
	return &boltKV{db: db}, nil
}

func (k *boltKV) View(ctx context.Context, fn func(Bucket) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return k.db.View(func(tx *bolt.Tx) error {
		return fn(boltBucket{b: tx.Bucket(kvBucketName)})
	})
}

func (k *boltKV) Update(ctx context.Context, fn func(Bucket) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return k.db.Update(func(tx *bolt.Tx) error {
		return fn(boltBucket{b: tx.Bucket(kvBucketName)})
	})
}

func (k *boltKV) Close() error {
	return k.db.Close()
}

type boltBucket struct {
	b *bolt.Bucket
}

// Get returns a copy; bbolt values are only valid inside the transaction.
func (b boltBucket) Get(key string) []byte {
	v := b.b.Get([]byte(key))
	if v == nil {
		return nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out
}

func (b boltBucket) Put(key string, value []byte) error {
	return b.b.Put([]byte(key), value)
}
