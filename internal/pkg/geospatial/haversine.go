package geospatial

import (
	"math"

	"github.com/samirrijal/phonemap/internal/core/domain"
)

const (
	earthRadiusM  = 6371000.0
	metersPerDeg  = 111320.0
	degreesPerRad = 180 / math.Pi
)

// Distance returns the great-circle distance between a and b in meters.
func Distance(a, b domain.GeoPoint) float64 {
	lat1, lat2 := a.Lat/degreesPerRad, b.Lat/degreesPerRad
	dLat := lat2 - lat1
	dLng := (b.Lng - a.Lng) / degreesPerRad

	h := math.Pow(math.Sin(dLat/2), 2) + math.Cos(lat1)*math.Cos(lat2)*math.Pow(math.Sin(dLng/2), 2)
	return 2 * earthRadiusM * math.Asin(math.Min(1, math.Sqrt(h)))
}

// Around returns a box enclosing every point within radius meters of p. It is
// a cheap prefilter for Distance and is looser than the circle.
func Around(p domain.GeoPoint, radius float64) domain.Bounds {
	dLat := radius / metersPerDeg
	dLng := 180.0
	if c := math.Cos(p.Lat / degreesPerRad); c > 1e-9 {
		dLng = math.Min(180, radius/(metersPerDeg*c))
	}
	return domain.Bounds{
		MinLat: p.Lat - dLat, MinLng: p.Lng - dLng,
		MaxLat: p.Lat + dLat, MaxLng: p.Lng + dLng,
	}
}
