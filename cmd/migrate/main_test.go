package main

import (
	"reflect"
	"testing"
	"testing/fstest"
)

func TestListVersions(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/002_index.up.sql":      {Data: []byte("-- up")},
		"migrations/002_index.down.sql":    {Data: []byte("-- down")},
		"migrations/001_kv_store.up.sql":   {Data: []byte("-- up")},
		"migrations/001_kv_store.down.sql": {Data: []byte("-- down")},
		"migrations/README":                {Data: []byte("notes")},
	}
	got, err := listVersions(fsys)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"001_kv_store", "002_index"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("listVersions = %v, want %v", got, want)
	}
}

func TestEmbeddedMigrations(t *testing.T) {
	versions, err := listVersions(migrationsFS)
	if err != nil {
		t.Fatal(err)
	}
	if len(versions) == 0 || versions[0] != "001_kv_store" {
		t.Fatalf("unexpected versions %v", versions)
	}
	for _, v := range versions {
		if _, err := migrationsFS.ReadFile("migrations/" + v + ".down.sql"); err != nil {
			t.Errorf("%s has no down migration", v)
		}
	}
}

func TestPendingAndLatest(t *testing.T) {
	versions := []string{"001", "002", "003"}
	applied := map[string]bool{"001": true, "002": true}

	if got := pending(versions, applied); !reflect.DeepEqual(got, []string{"003"}) {
		t.Errorf("pending = %v", got)
	}
	if v, ok := latest(versions, applied); !ok || v != "002" {
		t.Errorf("latest = %q, %v", v, ok)
	}
	if _, ok := latest(versions, nil); ok {
		t.Error("latest with nothing applied should report false")
	}
}
