package http

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/samirrijal/phonemap/internal/adapters/leaflet"
	"github.com/samirrijal/phonemap/internal/core/domain"
	"github.com/samirrijal/phonemap/internal/core/ports"
	"github.com/samirrijal/phonemap/internal/core/usecases"
	"github.com/samirrijal/phonemap/internal/pkg/metrics"
	"github.com/samirrijal/phonemap/internal/pkg/telemetry"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Records *usecases.RecordService
	Shell   *usecases.ShellService
	Notices *usecases.NoticeBoard
	Scene   *leaflet.Scene
	Markers *usecases.MarkerSync
	Hub     *Hub

	// Checks are probed by /v1/ready, keyed by component name.
	Checks map[string]ports.Pinger
}

// NewDependencies builds the presentation state around an initialised record
// service: the map scene and its marker sync, the shell, and the websocket hub.
// Every committed change re-syncs the scene and is broadcast to live clients.
func NewDependencies(records *usecases.RecordService, submitter ports.Submitter, notices *usecases.NoticeBoard) *Dependencies {
	d := &Dependencies{
		Records: records,
		Notices: notices,
		Scene:   leaflet.NewScene(),
		Hub:     NewHub(),
		Checks:  make(map[string]ports.Pinger),
	}
	d.Shell = usecases.NewShellService(records, submitter, notices)
	d.Markers = usecases.NewMarkerSync(d.Scene, d.Shell.MarkerClicked, nil)

	records.Subscribe(d.onChange)
	d.Scene.Subscribe(func(snap leaflet.Snapshot) {
		d.Hub.Broadcast(wsEnvelope{Type: "scene", Scene: &snap})
	})
	notices.OnChange(func(ns []domain.Notice) {
		d.Hub.Broadcast(wsEnvelope{Type: "notices", Notices: ns})
	})

	n := d.Markers.Sync(records.List(context.Background()))
	metrics.MarkersSynced.Set(float64(n))
	metrics.RecordsStored.Set(float64(records.Count()))
	return d
}

func (d *Dependencies) onChange(ctx context.Context, change usecases.Change) {
	switch change.Event.Type {
	case domain.EventRecordAdded:
		metrics.RecordsAdded.Inc()
	case domain.EventRecordRemoved:
		metrics.RecordsRemoved.Inc()
	}
	if change.LookupMiss {
		metrics.LookupMisses.Inc()
	}
	metrics.RecordsStored.Set(float64(len(change.Records)))

	_, span := telemetry.Tracer().Start(ctx, telemetry.SpanMarkerSync)
	n := d.Markers.Sync(change.Records)
	span.SetAttributes(attribute.Int("markers", n))
	span.End()
	metrics.MarkersSynced.Set(float64(n))
	d.Scene.Publish()

	ev := change.Event
	d.Hub.Broadcast(wsEnvelope{Type: "event", Event: &ev})
}
