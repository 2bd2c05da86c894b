package ports

import (
	"context"

	"github.com/samirrijal/phonemap/internal/core/domain"
)

// EventPublisher publishes record events to a message broker.
type EventPublisher interface {
	PublishRecordEvent(ctx context.Context, event *domain.RecordEvent) error
	Close()
}

// MarkerHandle identifies a marker placed on a MapWidget.
type MarkerHandle string

// MapWidget is the host rendering surface markers are placed on.
// Implementations own tiling, rendering and projection.
type MapWidget interface {
	AddMarker(at domain.GeoPoint) MarkerHandle
	BindPopup(h MarkerHandle, html string)
	OnClick(h MarkerHandle, fn func())
	RemoveLayer(h MarkerHandle)
	FitBounds(markers []MarkerHandle, padding float64)
}

// Submitter commits a new record after the simulated network latency.
type Submitter interface {
	Submit(ctx context.Context, phoneNumber, location string) (*domain.PhoneRecord, error)
}
