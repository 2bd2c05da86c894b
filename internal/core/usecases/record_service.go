package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/samirrijal/phonemap/internal/core/domain"
	"github.com/samirrijal/phonemap/internal/core/ports"
	"github.com/samirrijal/phonemap/internal/pkg/geospatial"
	"github.com/samirrijal/phonemap/internal/pkg/phone"
)

// DefaultStorageKey is the key the collection is persisted under.
const DefaultStorageKey = "phoneLocations"

// Change describes a committed mutation and the collection after it.
type Change struct {
	Event      domain.RecordEvent
	Records    []domain.PhoneRecord
	LookupMiss bool
}

// ChangeListener is called after every committed mutation, in commit order.
// Listeners may read from the service but must not mutate it.
type ChangeListener func(ctx context.Context, change Change)

// RecordService is the ordered, persisted collection of phone records.
type RecordService struct {
	store    ports.BlobStore
	key      string
	resolver *geospatial.Resolver
	now      func() time.Time
	newID    func() string

	// writeMu serialises mutations together with their persistence write and
	// listener fan-out; mu guards the in-memory slice for readers.
	writeMu sync.Mutex
	mu      sync.RWMutex
	records []domain.PhoneRecord

	listeners []ChangeListener
}

// RecordOption configures a RecordService.
type RecordOption func(*RecordService)

// WithStorageKey overrides DefaultStorageKey.
func WithStorageKey(key string) RecordOption {
	return func(s *RecordService) { s.key = key }
}

// WithClock overrides time.Now for record timestamps.
func WithClock(now func() time.Time) RecordOption {
	return func(s *RecordService) { s.now = now }
}

// WithIDGenerator overrides the record id generator.
func WithIDGenerator(fn func() string) RecordOption {
	return func(s *RecordService) { s.newID = fn }
}

// NewRecordService creates a new RecordService. Call Init before use.
func NewRecordService(store ports.BlobStore, resolver *geospatial.Resolver, opts ...RecordOption) *RecordService {
	if resolver == nil {
		resolver = geospatial.NewResolver(nil)
	}
	s := &RecordService{
		store:    store,
		key:      DefaultStorageKey,
		resolver: resolver,
		now:      time.Now,
		newID:    NewRecordID,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Init loads the persisted collection. A missing or unreadable payload leaves
// the collection empty and entries that fail to decode or validate are
// dropped one by one; only a failing backend is reported.
func (s *RecordService) Init(ctx context.Context) error {
	data, err := s.store.Get(ctx, s.key)
	switch {
	case errors.Is(err, ports.ErrKeyNotFound):
		s.replace(nil)
		return nil
	case err != nil:
		return fmt.Errorf("load %s: %w", s.key, err)
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		slog.Warn("persisted records unreadable, starting empty", "key", s.key, "error", err)
		s.replace(nil)
		return nil
	}

	kept := make([]domain.PhoneRecord, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for i, entry := range raw {
		var r domain.PhoneRecord
		if err := json.Unmarshal(entry, &r); err != nil {
			slog.Warn("dropping unreadable persisted record", "key", s.key, "index", i, "error", err)
			continue
		}
		if r.ID == "" || seen[r.ID] || r.PhoneNumber == "" || r.Location == "" ||
			r.Timestamp.IsZero() || !r.Point().Valid() {
			slog.Warn("dropping invalid persisted record", "key", s.key, "id", r.ID)
			continue
		}
		seen[r.ID] = true
		kept = append(kept, r)
	}

	s.replace(kept)
	slog.Info("records loaded", "key", s.key, "count", len(kept))
	return nil
}

// Close releases the storage backend.
func (s *RecordService) Close() error {
	return s.store.Close()
}

// Subscribe registers a listener for committed mutations.
func (s *RecordService) Subscribe(l ChangeListener) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.listeners = append(s.listeners, l)
}

// List returns the collection in insertion order.
func (s *RecordService) List(ctx context.Context) []domain.PhoneRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.PhoneRecord, len(s.records))
	copy(out, s.records)
	return out
}

// Count returns the number of records.
func (s *RecordService) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Get returns a record by id.
func (s *RecordService) Get(ctx context.Context, id string) (*domain.PhoneRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.records {
		if r.ID == id {
			rec := r
			return &rec, nil
		}
	}
	return nil, domain.ErrNotFound
}

// Validate checks the submitted fields without committing anything.
func (s *RecordService) Validate(phoneNumber, location string) error {
	if strings.TrimSpace(phoneNumber) == "" {
		return &domain.ValidationError{Field: "phoneNumber", Reason: "must not be empty"}
	}
	if strings.TrimSpace(location) == "" {
		return &domain.ValidationError{Field: "location", Reason: "must not be empty"}
	}
	if !phone.IsValid(phoneNumber) {
		return &domain.ValidationError{Field: "phoneNumber", Reason: "expected +62, 62 or 0 followed by 8-13 digits"}
	}
	return nil
}

// Add validates the input, derives coordinates, appends the record and
// persists the whole collection.
func (s *RecordService) Add(ctx context.Context, phoneNumber, location string) (*domain.PhoneRecord, error) {
	return s.add(ctx, "", phoneNumber, location)
}

// AddWithID is Add with a caller-chosen id, for callers that may repeat a
// submission. If id already names a record with the same number and location,
// that record is returned and nothing is written or announced; if it names a
// different record the call fails with domain.ErrIDConflict.
func (s *RecordService) AddWithID(ctx context.Context, id, phoneNumber, location string) (*domain.PhoneRecord, error) {
	if strings.TrimSpace(id) == "" {
		return nil, &domain.ValidationError{Field: "id", Reason: "must not be empty"}
	}
	return s.add(ctx, strings.TrimSpace(id), phoneNumber, location)
}

func (s *RecordService) add(ctx context.Context, id, phoneNumber, location string) (*domain.PhoneRecord, error) {
	if err := s.Validate(phoneNumber, location); err != nil {
		return nil, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	phoneNumber = strings.TrimSpace(phoneNumber)
	location = strings.TrimSpace(location)

	if id == "" {
		id = s.uniqueID()
	} else if existing, err := s.Get(ctx, id); err == nil {
		if existing.PhoneNumber != phoneNumber || existing.Location != location {
			return nil, fmt.Errorf("add %s: %w", id, domain.ErrIDConflict)
		}
		return existing, nil
	}

	point, hit := s.resolver.Resolve(location)
	if !hit {
		slog.Debug("location not in city table, using fallback", "location", location)
	}

	rec := domain.PhoneRecord{
		ID:          id,
		PhoneNumber: phoneNumber,
		Location:    location,
		Lat:         point.Lat,
		Lng:         point.Lng,
		Timestamp:   s.now().UTC().Truncate(time.Millisecond),
	}

	s.mu.RLock()
	next := make([]domain.PhoneRecord, len(s.records), len(s.records)+1)
	copy(next, s.records)
	s.mu.RUnlock()
	next = append(next, rec)

	if err := s.persist(ctx, next); err != nil {
		return nil, err
	}
	s.replace(next)

	s.notify(ctx, Change{
		Event:      domain.RecordEvent{Type: domain.EventRecordAdded, Record: rec, Count: len(next), Time: rec.Timestamp},
		Records:    next,
		LookupMiss: !hit,
	})
	return &rec, nil
}

// Remove deletes the record with id. A missing id is a no-op.
func (s *RecordService) Remove(ctx context.Context, id string) (bool, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.RLock()
	idx := -1
	for i, r := range s.records {
		if r.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.RUnlock()
		return false, nil
	}
	removed := s.records[idx]
	next := make([]domain.PhoneRecord, 0, len(s.records)-1)
	next = append(next, s.records[:idx]...)
	next = append(next, s.records[idx+1:]...)
	s.mu.RUnlock()

	if err := s.persist(ctx, next); err != nil {
		return false, err
	}
	s.replace(next)

	s.notify(ctx, Change{
		Event:   domain.RecordEvent{Type: domain.EventRecordRemoved, Record: removed, Count: len(next), Time: s.now().UTC()},
		Records: next,
	})
	return true, nil
}

// Nearby returns records within radiusMeters of p, nearest first.
func (s *RecordService) Nearby(ctx context.Context, p domain.GeoPoint, radiusMeters float64, limit int) []domain.NearbyRecord {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	box := geospatial.Around(p, radiusMeters)

	var out []domain.NearbyRecord
	for _, r := range s.List(ctx) {
		if !box.Contains(r.Point()) {
			continue
		}
		d := geospatial.Distance(p, r.Point())
		if d <= radiusMeters {
			out = append(out, domain.NearbyRecord{PhoneRecord: r, Distance: d})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Distance < out[j].Distance })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (s *RecordService) persist(ctx context.Context, records []domain.PhoneRecord) error {
	if records == nil {
		records = []domain.PhoneRecord{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode records: %w", err)
	}
	if err := s.store.Put(ctx, s.key, data); err != nil {
		return fmt.Errorf("persist %s: %w", s.key, err)
	}
	return nil
}

func (s *RecordService) replace(records []domain.PhoneRecord) {
	s.mu.Lock()
	s.records = records
	s.mu.Unlock()
}

func (s *RecordService) notify(ctx context.Context, change Change) {
	for _, l := range s.listeners {
		l(ctx, change)
	}
}

// uniqueID must be called with writeMu held.
func (s *RecordService) uniqueID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for {
		id := s.newID()
		taken := false
		for _, r := range s.records {
			if r.ID == id {
				taken = true
				break
			}
		}
		if !taken {
			return id
		}
	}
}

// NewRecordID returns a UUIDv7, whose high bits encode the creation time.
func NewRecordID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
