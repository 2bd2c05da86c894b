package usecases_test

import (
	"context"
	"fmt"
	"sync"

	"github.com/samirrijal/phonemap/internal/core/domain"
	"github.com/samirrijal/phonemap/internal/core/ports"
)

// --- Mock BlobStore ---

type mockBlobStore struct {
	mu    sync.Mutex
	data  map[string][]byte
	puts  int
	getFn func(ctx context.Context, key string) ([]byte, error)
	putFn func(ctx context.Context, key string, value []byte) error
}

func newMockBlobStore() *mockBlobStore {
	return &mockBlobStore{data: map[string][]byte{}}
}

func (m *mockBlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, ports.ErrKeyNotFound
	}
	return v, nil
}

func (m *mockBlobStore) Put(ctx context.Context, key string, value []byte) error {
	if m.putFn != nil {
		return m.putFn(ctx, key, value)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.puts++
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *mockBlobStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *mockBlobStore) Close() error { return nil }

// --- Mock MapWidget ---

type mockMarker struct {
	at      domain.GeoPoint
	popup   string
	onClick func()
}

type mockWidget struct {
	seq     int
	markers map[ports.MarkerHandle]*mockMarker
	removed int
	fits    [][]ports.MarkerHandle
	padding float64
}

func newMockWidget() *mockWidget {
	return &mockWidget{markers: map[ports.MarkerHandle]*mockMarker{}}
}

func (w *mockWidget) AddMarker(at domain.GeoPoint) ports.MarkerHandle {
	w.seq++
	h := ports.MarkerHandle(fmt.Sprintf("m-%d", w.seq))
	w.markers[h] = &mockMarker{at: at}
	return h
}

func (w *mockWidget) BindPopup(h ports.MarkerHandle, html string) { w.markers[h].popup = html }
func (w *mockWidget) OnClick(h ports.MarkerHandle, fn func())      { w.markers[h].onClick = fn }

func (w *mockWidget) RemoveLayer(h ports.MarkerHandle) {
	delete(w.markers, h)
	w.removed++
}

func (w *mockWidget) FitBounds(hs []ports.MarkerHandle, padding float64) {
	w.fits = append(w.fits, append([]ports.MarkerHandle(nil), hs...))
	w.padding = padding
}

func (w *mockWidget) popups() map[string]bool {
	out := map[string]bool{}
	for _, m := range w.markers {
		out[m.popup] = true
	}
	return out
}

// sequentialIDs returns an id generator producing rec-1, rec-2, ...
func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("rec-%d", n)
	}
}
