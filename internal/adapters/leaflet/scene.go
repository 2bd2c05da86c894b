// Package leaflet keeps the server-side model of the Leaflet map the browser
// renders: markers, popups, click callbacks and the viewport.
package leaflet

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/samirrijal/phonemap/internal/core/domain"
	"github.com/samirrijal/phonemap/internal/core/ports"
	"github.com/samirrijal/phonemap/internal/pkg/geospatial"
)

const (
	TileURL         = "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png"
	TileAttribution = "© OpenStreetMap contributors"
	MaxZoom         = 19
	DefaultZoom     = 10
)

// ErrUnknownMarker is returned by Click for a marker that is not on the map.
var ErrUnknownMarker = errors.New("unknown marker")

// TileLayer describes the base layer.
type TileLayer struct {
	URL         string `json:"url"`
	Attribution string `json:"attribution"`
	MaxZoom     int    `json:"max_zoom"`
}

// Marker is a marker as the browser draws it.
type Marker struct {
	ID    string  `json:"id"`
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
	Popup string  `json:"popup,omitempty"`
}

// Viewport is either a center/zoom pair or, after a fit, padded bounds.
type Viewport struct {
	Center domain.GeoPoint `json:"center"`
	Zoom   int             `json:"zoom"`
	Bounds *domain.Bounds  `json:"bounds,omitempty"`
}

// Snapshot is the full scene state sent to the browser.
type Snapshot struct {
	Version  uint64    `json:"version"`
	Tiles    TileLayer `json:"tiles"`
	Markers  []Marker  `json:"markers"`
	Viewport Viewport  `json:"viewport"`
}

type marker struct {
	at      domain.GeoPoint
	popup   string
	onClick func()
}

// Scene implements ports.MapWidget.
type Scene struct {
	mu      sync.Mutex
	seq     int
	order   []ports.MarkerHandle
	markers map[ports.MarkerHandle]*marker
	view    Viewport
	version uint64

	subSeq int
	subs   map[int]func(Snapshot)
}

// NewScene returns an empty scene centered on Jakarta.
func NewScene() *Scene {
	return &Scene{
		markers: make(map[ports.MarkerHandle]*marker),
		view:    Viewport{Center: geospatial.Fallback, Zoom: DefaultZoom},
		subs:    make(map[int]func(Snapshot)),
	}
}

func (s *Scene) AddMarker(at domain.GeoPoint) ports.MarkerHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	h := ports.MarkerHandle(fmt.Sprintf("m-%d", s.seq))
	s.markers[h] = &marker{at: at}
	s.order = append(s.order, h)
	s.version++
	return h
}

func (s *Scene) BindPopup(h ports.MarkerHandle, html string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.markers[h]; ok {
		m.popup = html
		s.version++
	}
}

func (s *Scene) OnClick(h ports.MarkerHandle, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.markers[h]; ok {
		m.onClick = fn
	}
}

func (s *Scene) RemoveLayer(h ports.MarkerHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.markers[h]; !ok {
		return
	}
	delete(s.markers, h)
	for i, o := range s.order {
		if o == h {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.version++
}

// FitBounds frames the given markers, growing the box by padding on each side.
func (s *Scene) FitBounds(hs []ports.MarkerHandle, padding float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	points := make([]domain.GeoPoint, 0, len(hs))
	for _, h := range hs {
		if m, ok := s.markers[h]; ok {
			points = append(points, m.at)
		}
	}
	b, ok := geospatial.BoundsOf(points)
	if !ok {
		return
	}
	b = geospatial.Pad(b, padding)
	s.view = Viewport{Center: b.Center(), Zoom: fitZoom(b), Bounds: &b}
	s.version++
}

// Click runs the callback bound to a marker.
func (s *Scene) Click(markerID string) error {
	s.mu.Lock()
	m, ok := s.markers[ports.MarkerHandle(markerID)]
	var fn func()
	if ok {
		fn = m.onClick
	}
	s.mu.Unlock()

	if !ok {
		return ErrUnknownMarker
	}
	if fn != nil {
		fn()
	}
	return nil
}

// Snapshot returns the current scene.
func (s *Scene) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Scene) snapshotLocked() Snapshot {
	snap := Snapshot{
		Version:  s.version,
		Tiles:    TileLayer{URL: TileURL, Attribution: TileAttribution, MaxZoom: MaxZoom},
		Markers:  make([]Marker, 0, len(s.order)),
		Viewport: s.view,
	}
	if s.view.Bounds != nil {
		b := *s.view.Bounds
		snap.Viewport.Bounds = &b
	}
	for _, h := range s.order {
		m := s.markers[h]
		snap.Markers = append(snap.Markers, Marker{ID: string(h), Lat: m.at.Lat, Lng: m.at.Lng, Popup: m.popup})
	}
	return snap
}

// Subscribe registers fn to receive snapshots from Publish. The returned
// function removes the subscription.
func (s *Scene) Subscribe(fn func(Snapshot)) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subSeq++
	id := s.subSeq
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Publish sends the current snapshot to every subscriber.
func (s *Scene) Publish() {
	s.mu.Lock()
	snap := s.snapshotLocked()
	subs := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}

// fitZoom approximates the zoom Leaflet picks to show b in a ~1000px map.
func fitZoom(b domain.Bounds) int {
	span := math.Max(b.MaxLng-b.MinLng, (b.MaxLat-b.MinLat)*1.5)
	if span <= 0 {
		return MaxZoom
	}
	z := int(math.Floor(math.Log2(360 * 4 / span)))
	return max(0, min(MaxZoom, z))
}
