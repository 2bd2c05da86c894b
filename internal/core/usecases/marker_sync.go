package usecases

import (
	"context"
	"fmt"
	"html"
	"sync"
	"time"

	"github.com/samirrijal/phonemap/internal/core/domain"
	"github.com/samirrijal/phonemap/internal/core/ports"
)

// FitPadding is the relative margin added around all markers when fitting the viewport.
const FitPadding = 0.1

// PopupTimeLayout renders record timestamps inside marker popups.
const PopupTimeLayout = "02 Jan 2006, 15:04:05"

// MarkerSync reconciles map markers with a record collection.
type MarkerSync struct {
	widget  ports.MapWidget
	onClick func(recordID string)
	loc     *time.Location

	mu      sync.Mutex
	markers map[string]ports.MarkerHandle // record id -> marker
}

// NewMarkerSync creates a MarkerSync drawing on widget. onClick receives the
// id of the record whose marker was clicked.
func NewMarkerSync(widget ports.MapWidget, onClick func(recordID string), loc *time.Location) *MarkerSync {
	if loc == nil {
		loc = time.UTC
	}
	return &MarkerSync{
		widget:  widget,
		onClick: onClick,
		loc:     loc,
		markers: make(map[string]ports.MarkerHandle),
	}
}

// Sync removes every previous marker and places one marker per record,
// then fits the viewport to them. An empty collection leaves the viewport alone.
func (s *MarkerSync) Sync(records []domain.PhoneRecord) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, h := range s.markers {
		s.widget.RemoveLayer(h)
		delete(s.markers, id)
	}

	handles := make([]ports.MarkerHandle, 0, len(records))
	for _, rec := range records {
		if _, dup := s.markers[rec.ID]; dup {
			continue
		}
		h := s.widget.AddMarker(rec.Point())
		s.widget.BindPopup(h, PopupHTML(rec, s.loc))

		id := rec.ID
		s.widget.OnClick(h, func() {
			if s.onClick != nil {
				s.onClick(id)
			}
		})

		s.markers[id] = h
		handles = append(handles, h)
	}

	if len(handles) > 0 {
		s.widget.FitBounds(handles, FitPadding)
	}
	return len(handles)
}

// OnChange is a ChangeListener that re-syncs after every mutation.
func (s *MarkerSync) OnChange(ctx context.Context, change Change) {
	s.Sync(change.Records)
}

// Marker returns the marker currently bound to a record.
func (s *MarkerSync) Marker(recordID string) (ports.MarkerHandle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.markers[recordID]
	return h, ok
}

// PopupHTML renders the popup body for a record.
func PopupHTML(rec domain.PhoneRecord, loc *time.Location) string {
	return fmt.Sprintf(
		`<div class="p-2"><h3 class="font-bold text-sm">%s</h3><p class="text-xs text-gray-600">%s</p><p class="text-xs text-gray-500">%s</p></div>`,
		html.EscapeString(rec.PhoneNumber),
		html.EscapeString(rec.Location),
		rec.Timestamp.In(loc).Format(PopupTimeLayout),
	)
}
