package ports

import (
	"context"
	"errors"
)

// ErrKeyNotFound is returned by BlobStore.Get when nothing is stored under the key.
var ErrKeyNotFound = errors.New("key not found")

// BlobStore is a durable key-value store holding one opaque payload per key.
// Put overwrites the whole value.
type BlobStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Pinger is implemented by backends that can report their own reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}
