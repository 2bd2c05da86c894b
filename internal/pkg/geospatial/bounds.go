package geospatial

import (
	"math"

	"github.com/samirrijal/phonemap/internal/core/domain"
)

// BoundsOf returns the smallest box containing all points.
func BoundsOf(points []domain.GeoPoint) (domain.Bounds, bool) {
	if len(points) == 0 {
		return domain.Bounds{}, false
	}
	b := domain.Bounds{
		MinLat: math.Inf(1), MinLng: math.Inf(1),
		MaxLat: math.Inf(-1), MaxLng: math.Inf(-1),
	}
	for _, p := range points {
		b.MinLat = math.Min(b.MinLat, p.Lat)
		b.MaxLat = math.Max(b.MaxLat, p.Lat)
		b.MinLng = math.Min(b.MinLng, p.Lng)
		b.MaxLng = math.Max(b.MaxLng, p.Lng)
	}
	return b, true
}

// Pad grows the box by ratio of its height and width on every side,
// matching Leaflet's LatLngBounds.pad.
func Pad(b domain.Bounds, ratio float64) domain.Bounds {
	h := (b.MaxLat - b.MinLat) * ratio
	w := (b.MaxLng - b.MinLng) * ratio
	return domain.Bounds{
		MinLat: b.MinLat - h,
		MinLng: b.MinLng - w,
		MaxLat: b.MaxLat + h,
		MaxLng: b.MaxLng + w,
	}
}
