package usecases_test

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"reflect"
	"testing"
	"time"

	"github.com/samirrijal/phonemap/internal/core/domain"
	"github.com/samirrijal/phonemap/internal/core/usecases"
	"github.com/samirrijal/phonemap/internal/pkg/geospatial"
)

var fixedNow = time.Date(2024, 5, 17, 8, 30, 0, 123456789, time.UTC)

func newService(t *testing.T, store *mockBlobStore) *usecases.RecordService {
	t.Helper()
	svc := usecases.NewRecordService(store,
		geospatial.NewResolver(rand.New(rand.NewSource(3))),
		usecases.WithClock(func() time.Time { return fixedNow }),
		usecases.WithIDGenerator(sequentialIDs()),
	)
	if err := svc.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	return svc
}

func TestRecordService_AddThenList(t *testing.T) {
	store := newMockBlobStore()
	svc := newService(t, store)

	rec, err := svc.Add(context.Background(), " 0812345678 ", " Bandung ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	list := svc.List(context.Background())
	if len(list) != 1 {
		t.Fatalf("expected 1 record, got %d", len(list))
	}
	got := list[0]
	if got.ID != rec.ID || got.ID != "rec-1" {
		t.Errorf("unexpected id %q", got.ID)
	}
	if got.PhoneNumber != "0812345678" || got.Location != "Bandung" {
		t.Errorf("fields not trimmed: %+v", got)
	}
	if !got.Timestamp.Equal(fixedNow.Truncate(time.Millisecond)) {
		t.Errorf("unexpected timestamp %v", got.Timestamp)
	}
	base, _ := geospatial.Lookup("bandung")
	if math.Abs(got.Lat-base.Lat) > 0.05 || math.Abs(got.Lng-base.Lng) > 0.05 {
		t.Errorf("coordinate %v,%v not near Bandung", got.Lat, got.Lng)
	}
	if store.puts != 1 {
		t.Errorf("expected 1 persistence write, got %d", store.puts)
	}
}

func TestRecordService_AddWithID_RepeatIsIdempotent(t *testing.T) {
	store := newMockBlobStore()
	svc := newService(t, store)
	var events int
	svc.Subscribe(func(ctx context.Context, change usecases.Change) { events++ })

	first, err := svc.AddWithID(context.Background(), "sub-1", "0812345678", "Medan")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	again, err := svc.AddWithID(context.Background(), "sub-1", " 0812345678", "Medan ")
	if err != nil {
		t.Fatalf("repeat failed: %v", err)
	}

	if again.ID != "sub-1" || again.Lat != first.Lat || again.Lng != first.Lng {
		t.Errorf("repeat returned %+v, want %+v", again, first)
	}
	if svc.Count() != 1 {
		t.Errorf("expected 1 record, got %d", svc.Count())
	}
	if store.puts != 1 || events != 1 {
		t.Errorf("repeat must not write or notify: %d writes, %d events", store.puts, events)
	}
}

func TestRecordService_AddWithID_Conflict(t *testing.T) {
	store := newMockBlobStore()
	svc := newService(t, store)

	if _, err := svc.AddWithID(context.Background(), "sub-1", "0812345678", "Medan"); err != nil {
		t.Fatal(err)
	}
	_, err := svc.AddWithID(context.Background(), "sub-1", "0812345679", "Medan")
	if !errors.Is(err, domain.ErrIDConflict) {
		t.Fatalf("expected ErrIDConflict, got %v", err)
	}
	if svc.Count() != 1 {
		t.Errorf("conflict must not change the collection, got %d records", svc.Count())
	}
}

func TestRecordService_AddWithID_EmptyID(t *testing.T) {
	svc := newService(t, newMockBlobStore())

	_, err := svc.AddWithID(context.Background(), " ", "0812345678", "Medan")
	var ve *domain.ValidationError
	if !errors.As(err, &ve) || ve.Field != "id" {
		t.Fatalf("expected id validation error, got %v", err)
	}
}

func TestRecordService_Add_Validation(t *testing.T) {
	cases := []struct {
		name     string
		phone    string
		location string
		field    string
	}{
		{"empty phone", "  ", "Jakarta", "phoneNumber"},
		{"empty location", "0812345678", "", "location"},
		{"malformed phone", "12345", "Jakarta", "phoneNumber"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newMockBlobStore()
			svc := newService(t, store)

			_, err := svc.Add(context.Background(), tc.phone, tc.location)
			var ve *domain.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if ve.Field != tc.field {
				t.Errorf("expected field %s, got %s", tc.field, ve.Field)
			}
			if svc.Count() != 0 || store.puts != 0 {
				t.Errorf("rejected input must not be committed")
			}
		})
	}
}

func TestRecordService_PersistReloadRoundTrip(t *testing.T) {
	store := newMockBlobStore()
	svc := newService(t, store)

	for _, in := range [][2]string{
		{"+62812345678", "Jakarta"},
		{"62812345678", "Medan"},
		{"0812345678", "Atlantis"},
	} {
		if _, err := svc.Add(context.Background(), in[0], in[1]); err != nil {
			t.Fatalf("add %v: %v", in, err)
		}
	}

	reloaded := usecases.NewRecordService(store, nil)
	if err := reloaded.Init(context.Background()); err != nil {
		t.Fatalf("reload: %v", err)
	}

	want := svc.List(context.Background())
	got := reloaded.List(context.Background())
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("reloaded collection differs:\n got  %+v\n want %+v", got, want)
	}
	if got[0].Location != "Jakarta" || got[2].Location != "Atlantis" {
		t.Errorf("insertion order not preserved: %+v", got)
	}
}

func TestRecordService_Remove(t *testing.T) {
	store := newMockBlobStore()
	svc := newService(t, store)

	a, _ := svc.Add(context.Background(), "0812345678", "Jakarta")
	b, _ := svc.Add(context.Background(), "0812345679", "Depok")

	removed, err := svc.Remove(context.Background(), a.ID)
	if err != nil || !removed {
		t.Fatalf("expected removal, got %v %v", removed, err)
	}

	list := svc.List(context.Background())
	if len(list) != 1 || list[0].ID != b.ID {
		t.Fatalf("unexpected collection after remove: %+v", list)
	}
	if store.puts != 3 {
		t.Errorf("expected 3 persistence writes, got %d", store.puts)
	}
}

func TestRecordService_Remove_UnknownIsNoop(t *testing.T) {
	store := newMockBlobStore()
	svc := newService(t, store)
	_, _ = svc.Add(context.Background(), "0812345678", "Jakarta")
	before := svc.List(context.Background())

	removed, err := svc.Remove(context.Background(), "does-not-exist")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if removed {
		t.Error("expected removed=false")
	}
	if !reflect.DeepEqual(svc.List(context.Background()), before) {
		t.Error("collection changed")
	}
	if store.puts != 1 {
		t.Errorf("no-op remove must not write, got %d writes", store.puts)
	}
}

func TestRecordService_Init_RecoversFromBadPayload(t *testing.T) {
	cases := []struct {
		name    string
		payload string
		want    int
	}{
		{"malformed json", `{"not":"an array"`, 0},
		{"wrong shape", `{"id":"x"}`, 0},
		{"drops invalid entries", `[{"id":"1","phoneNumber":"0812345678","location":"Jakarta","lat":-6.2,"lng":106.8,"timestamp":"2024-01-01T00:00:00.000Z"},{"id":"2","phoneNumber":"","location":"x","lat":0,"lng":0,"timestamp":"2024-01-01T00:00:00.000Z"},{"id":"3","phoneNumber":"0812345678","location":"y","lat":120,"lng":0,"timestamp":"2024-01-01T00:00:00.000Z"}]`, 1},
		{"drops entry with bad timestamp", `[{"id":"1","phoneNumber":"0812345678","location":"Jakarta","lat":-6.2,"lng":106.8,"timestamp":"yesterday"},{"id":"2","phoneNumber":"0812345679","location":"Medan","lat":3.6,"lng":98.67,"timestamp":"2024-01-01T00:00:00Z"}]`, 1},
		{"drops entry without timestamp", `[{"id":"1","phoneNumber":"0812345678","location":"Jakarta","lat":-6.2,"lng":106.8}]`, 0},
		{"drops non-object entries", `[42,"x",null,{"id":"2","phoneNumber":"0812345679","location":"Medan","lat":3.6,"lng":98.67,"timestamp":"2024-01-01T00:00:00Z"}]`, 1},
		{"drops entry with mistyped coordinate", `[{"id":"1","phoneNumber":"0812345678","location":"Jakarta","lat":"-6.2","lng":106.8,"timestamp":"2024-01-01T00:00:00Z"}]`, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newMockBlobStore()
			store.data[usecases.DefaultStorageKey] = []byte(tc.payload)

			svc := usecases.NewRecordService(store, nil)
			if err := svc.Init(context.Background()); err != nil {
				t.Fatalf("expected recovery, got %v", err)
			}
			if svc.Count() != tc.want {
				t.Errorf("expected %d records, got %d", tc.want, svc.Count())
			}
		})
	}
}

func TestRecordService_Init_KeepsGoodEntriesAroundBadOnes(t *testing.T) {
	store := newMockBlobStore()
	store.data[usecases.DefaultStorageKey] = []byte(`[
		{"id":"a","phoneNumber":"0812345678","location":"Jakarta","lat":-6.2,"lng":106.8,"timestamp":"2024-01-01T00:00:00Z"},
		{"id":"b","phoneNumber":"0812345679","location":"Bandung","lat":-6.9,"lng":107.6,"timestamp":"01/02/2024"},
		{"id":"c","phoneNumber":"0812345670","location":"Medan","lat":3.6,"lng":98.67,"timestamp":"2024-01-02T00:00:00Z"}
	]`)

	svc := usecases.NewRecordService(store, nil)
	if err := svc.Init(context.Background()); err != nil {
		t.Fatal(err)
	}
	got := svc.List(context.Background())
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "c" {
		t.Fatalf("expected records a and c in order, got %+v", got)
	}
}

func TestRecordService_Init_BackendError(t *testing.T) {
	store := newMockBlobStore()
	store.getFn = func(ctx context.Context, key string) ([]byte, error) {
		return nil, errors.New("connection refused")
	}
	svc := usecases.NewRecordService(store, nil)
	if err := svc.Init(context.Background()); err == nil {
		t.Fatal("expected backend error")
	}
}

func TestRecordService_Add_PersistFailureDoesNotCommit(t *testing.T) {
	store := newMockBlobStore()
	svc := newService(t, store)
	store.putFn = func(ctx context.Context, key string, value []byte) error {
		return errors.New("disk full")
	}

	if _, err := svc.Add(context.Background(), "0812345678", "Jakarta"); err == nil {
		t.Fatal("expected error")
	}
	if svc.Count() != 0 {
		t.Errorf("expected empty collection, got %d", svc.Count())
	}
}

func TestRecordService_IndependentKeys(t *testing.T) {
	store := newMockBlobStore()
	a := usecases.NewRecordService(store, nil, usecases.WithStorageKey("a"))
	b := usecases.NewRecordService(store, nil, usecases.WithStorageKey("b"))
	_ = a.Init(context.Background())
	_ = b.Init(context.Background())

	_, _ = a.Add(context.Background(), "0812345678", "Jakarta")
	if b.Count() != 0 {
		t.Errorf("instances must not share state")
	}
	if _, ok := store.data["b"]; ok {
		t.Errorf("instance b must not have written")
	}
}

func TestRecordService_Listeners(t *testing.T) {
	store := newMockBlobStore()
	svc := newService(t, store)

	var events []string
	var counts []int
	svc.Subscribe(func(ctx context.Context, c usecases.Change) {
		events = append(events, c.Event.Type)
		counts = append(counts, len(c.Records))
	})

	rec, _ := svc.Add(context.Background(), "0812345678", "Nowhere")
	_, _ = svc.Remove(context.Background(), "missing")
	_, _ = svc.Remove(context.Background(), rec.ID)

	if !reflect.DeepEqual(events, []string{domain.EventRecordAdded, domain.EventRecordRemoved}) {
		t.Errorf("unexpected events %v", events)
	}
	if !reflect.DeepEqual(counts, []int{1, 0}) {
		t.Errorf("unexpected counts %v", counts)
	}
}

func TestRecordService_Get(t *testing.T) {
	svc := newService(t, newMockBlobStore())
	rec, _ := svc.Add(context.Background(), "0812345678", "Jakarta")

	got, err := svc.Get(context.Background(), rec.ID)
	if err != nil || got.ID != rec.ID {
		t.Fatalf("unexpected result %+v %v", got, err)
	}
	if _, err := svc.Get(context.Background(), "nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRecordService_Nearby(t *testing.T) {
	store := newMockBlobStore()
	store.data[usecases.DefaultStorageKey] = []byte(`[
		{"id":"far","phoneNumber":"0812345678","location":"Medan","lat":3.5952,"lng":98.6722,"timestamp":"2024-01-01T00:00:00Z"},
		{"id":"near","phoneNumber":"0812345679","location":"Jakarta","lat":-6.21,"lng":106.85,"timestamp":"2024-01-01T00:00:00Z"},
		{"id":"mid","phoneNumber":"0812345670","location":"Depok","lat":-6.4025,"lng":106.7942,"timestamp":"2024-01-01T00:00:00Z"}
	]`)
	svc := usecases.NewRecordService(store, nil)
	_ = svc.Init(context.Background())

	got := svc.Nearby(context.Background(), geospatial.Fallback, 50000, 10)
	if len(got) != 2 {
		t.Fatalf("expected 2 nearby records, got %d", len(got))
	}
	if got[0].ID != "near" || got[1].ID != "mid" {
		t.Errorf("unexpected order: %s, %s", got[0].ID, got[1].ID)
	}
}
