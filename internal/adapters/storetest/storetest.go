// Package storetest checks that a ports.BlobStore implementation behaves the
// way the record service expects.
package storetest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/samirrijal/phonemap/internal/core/ports"
)

// Run exercises store under a unique key prefix and deletes what it wrote.
func Run(t *testing.T, store ports.BlobStore) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	key := fmt.Sprintf("storetest-%d", time.Now().UnixNano())
	t.Cleanup(func() { _ = store.Delete(context.Background(), key) })

	t.Run("missing key", func(t *testing.T) {
		if _, err := store.Get(ctx, key); !errors.Is(err, ports.ErrKeyNotFound) {
			t.Fatalf("Get on missing key: expected ErrKeyNotFound, got %v", err)
		}
	})

	t.Run("put overwrites", func(t *testing.T) {
		first := []byte(`[{"id":"a"}]`)
		second := []byte(`[{"id":"a"},{"id":"b"}]`)
		for _, v := range [][]byte{first, second} {
			if err := store.Put(ctx, key, v); err != nil {
				t.Fatalf("Put: %v", err)
			}
		}
		got, err := store.Get(ctx, key)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if !bytes.Equal(got, second) {
			t.Fatalf("Get = %q, want %q", got, second)
		}
	})

	t.Run("keys are independent", func(t *testing.T) {
		other := key + "-other"
		t.Cleanup(func() { _ = store.Delete(context.Background(), other) })

		if err := store.Put(ctx, other, []byte(`[]`)); err != nil {
			t.Fatalf("Put: %v", err)
		}
		got, err := store.Get(ctx, key)
		if err != nil || bytes.Equal(got, []byte(`[]`)) {
			t.Fatalf("writing %s changed %s: %q %v", other, key, got, err)
		}
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			if err := store.Delete(ctx, key); err != nil {
				t.Fatalf("Delete #%d: %v", i+1, err)
			}
		}
		if _, err := store.Get(ctx, key); !errors.Is(err, ports.ErrKeyNotFound) {
			t.Fatalf("Get after Delete: expected ErrKeyNotFound, got %v", err)
		}
	})
}
