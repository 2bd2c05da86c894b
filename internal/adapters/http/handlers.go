package http

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel/attribute"

	"github.com/samirrijal/phonemap/internal/adapters/leaflet"
	"github.com/samirrijal/phonemap/internal/core/domain"
	"github.com/samirrijal/phonemap/internal/core/usecases"
	"github.com/samirrijal/phonemap/internal/pkg/export"
	"github.com/samirrijal/phonemap/internal/pkg/geospatial"
	"github.com/samirrijal/phonemap/internal/pkg/metrics"
	"github.com/samirrijal/phonemap/internal/pkg/phone"
	"github.com/samirrijal/phonemap/internal/pkg/telemetry"
)

// recordView is a record with its display-formatted number and age label.
type recordView struct {
	domain.PhoneRecord
	Display string `json:"display"`
	Ago     string `json:"ago"`
}

func viewOf(r domain.PhoneRecord) recordView {
	return recordView{
		PhoneRecord: r,
		Display:     phone.Format(r.PhoneNumber),
		Ago:         usecases.TimeAgo(r.Timestamp, time.Now()),
	}
}

// ListRecordsHandler returns the collection in insertion order.
func ListRecordsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		records := deps.Records.List(c.UserContext())

		pg := pageParams(c, len(records))
		start, end := pg.Window()
		views := make([]recordView, 0, end-start)
		for _, r := range records[start:end] {
			views = append(views, viewOf(r))
		}

		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: views, Pagination: pg})
	}
}

type createRecordRequest struct {
	PhoneNumber string `json:"phoneNumber"`
	Location    string `json:"location"`
}

// CreateRecordHandler submits a new record. The response arrives after the
// configured submit delay.
func CreateRecordHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req createRecordRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		ctx, span := telemetry.Tracer().Start(c.UserContext(), telemetry.SpanSubmit)
		defer span.End()

		rec, err := deps.Shell.Submit(ctx, req.PhoneNumber, req.Location)
		if err != nil {
			var ve *domain.ValidationError
			if errors.As(err, &ve) {
				metrics.ValidationFailures.WithLabelValues(ve.Field).Inc()
				return errValidation(c, ve)
			}
			span.RecordError(err)
			LoggerFromCtx(ctx).Error("submit record", "error", err)
			return errInternal(c, "could not save record")
		}

		span.SetAttributes(attribute.String("record.id", rec.ID))
		c.Location("/v1/records/" + rec.ID)
		return c.Status(fiber.StatusCreated).JSON(viewOf(*rec))
	}
}

// GetRecordHandler returns a single record by ID.
func GetRecordHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "record id is required")
		}
		rec, err := deps.Records.Get(c.UserContext(), id)
		if err != nil {
			return errNotFound(c, "record not found")
		}
		return c.JSON(viewOf(*rec))
	}
}

// DeleteRecordHandler removes a record. Unknown ids also return 204.
func DeleteRecordHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "record id is required")
		}

		ctx, span := telemetry.Tracer().Start(c.UserContext(), telemetry.SpanRecordRemove)
		defer span.End()
		span.SetAttributes(attribute.String("record.id", id))

		if _, err := deps.Shell.Delete(ctx, id); err != nil {
			span.RecordError(err)
			LoggerFromCtx(ctx).Error("delete record", "id", id, "error", err)
			return errInternal(c, "could not delete record")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// LocateRecordHandler focuses a record, as the list view's locate button does.
func LocateRecordHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rec, err := deps.Shell.Locate(c.UserContext(), c.Params("id"))
		if errors.Is(err, domain.ErrNotFound) {
			return errNotFound(c, "record not found")
		}
		if err != nil {
			return errInternal(c, err.Error())
		}
		deps.Hub.Broadcast(wsEnvelope{Type: "selection", Selected: rec})
		return c.JSON(viewOf(*rec))
	}
}

// NearbyRecordsHandler returns records within a radius of a point.
func NearbyRecordsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Query("lat") == "" || c.Query("lng") == "" {
			return errBadRequest(c, "lat and lng are required")
		}
		p := domain.GeoPoint{Lat: c.QueryFloat("lat", 0), Lng: c.QueryFloat("lng", 0)}
		if !p.Valid() {
			return errBadRequest(c, "lat must be within [-90, 90] and lng within [-180, 180]")
		}
		radius := c.QueryFloat("radius", 5000)
		if radius <= 0 || radius > 500000 {
			return errBadRequest(c, "radius must be between 1 and 500000 meters")
		}
		limit := c.QueryInt("limit", 50)

		return c.JSON(deps.Records.Nearby(c.UserContext(), p, radius, limit))
	}
}

// ExportRecordsHandler downloads the whole collection as JSON or as a
// protobuf-encoded google.protobuf.ListValue.
func ExportRecordsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		f, err := export.Lookup(c.Query("format", export.JSON.Name))
		if err != nil {
			return errBadRequest(c, "format must be json or protobuf")
		}

		var buf bytes.Buffer
		if err := export.Encode(&buf, deps.Records.List(c.UserContext()), f.Name); err != nil {
			return errInternal(c, err.Error())
		}
		stamp := time.Now().UTC().Format("20060102-150405")
		c.Set(fiber.HeaderContentType, f.ContentType)
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="phonemap-%s.%s"`, stamp, f.Ext))
		return c.Send(buf.Bytes())
	}
}

// MapHandler returns the current map scene.
func MapHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set("Cache-Control", "no-store")
		return c.JSON(deps.Scene.Snapshot())
	}
}

// MarkerClickHandler forwards a marker click from the browser and returns the
// resulting selection.
func MarkerClickHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.Scene.Click(c.Params("marker")); err != nil {
			if errors.Is(err, leaflet.ErrUnknownMarker) {
				return errNotFound(c, "marker not found")
			}
			return errInternal(c, err.Error())
		}
		sel := deps.Shell.Selected()
		deps.Hub.Broadcast(wsEnvelope{Type: "selection", Selected: sel})
		return c.JSON(fiber.Map{"selected": sel})
	}
}

// SelectionHandler returns the focused record, or null.
func SelectionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set("Cache-Control", "no-store")
		return c.JSON(fiber.Map{"selected": deps.Shell.Selected()})
	}
}

// NoticesHandler returns the active notices.
func NoticesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set("Cache-Control", "no-store")
		return c.JSON(deps.Notices.Active())
	}
}

type cityView struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}

// CitiesHandler lists the locations that resolve to a known city.
func CitiesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		names := geospatial.KnownCities()
		out := make([]cityView, 0, len(names))
		for _, name := range names {
			p, _ := geospatial.Lookup(name)
			out = append(out, cityView{Name: name, Lat: p.Lat, Lng: p.Lng})
		}
		c.Set("Cache-Control", "public, max-age=3600")
		return c.JSON(out)
	}
}
