package filestore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/samirrijal/phonemap/internal/adapters/storetest"
	"github.com/samirrijal/phonemap/internal/core/ports"
)

func TestStore_RoundTrip(t *testing.T) {
	s, err := New(filepath.Join(t.TempDir(), "data"))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()

	if _, err := s.Get(ctx, "phoneLocations"); !errors.Is(err, ports.ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}

	if err := s.Put(ctx, "phoneLocations", []byte(`[]`)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.Put(ctx, "phoneLocations", []byte(`[{"id":"1"}]`)); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, err := s.Get(ctx, "phoneLocations")
	if err != nil || string(got) != `[{"id":"1"}]` {
		t.Fatalf("unexpected payload %q %v", got, err)
	}

	entries, _ := os.ReadDir(s.dir)
	if len(entries) != 1 {
		t.Errorf("expected only the data file, found %d entries", len(entries))
	}

	if err := s.Delete(ctx, "phoneLocations"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Delete(ctx, "phoneLocations"); err != nil {
		t.Errorf("second delete should be a no-op, got %v", err)
	}
}

func TestStore_RejectsTraversal(t *testing.T) {
	s, _ := New(t.TempDir())
	for _, key := range []string{"../etc", "a/b", "", ".."} {
		if err := s.Put(context.Background(), key, []byte("x")); err == nil {
			t.Errorf("expected key %q to be rejected", key)
		}
	}
}

func TestStore_Conformance(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	storetest.Run(t, s)
}
