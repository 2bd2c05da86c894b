package geospatial

import (
	"math"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/samirrijal/phonemap/internal/core/domain"
)

const (
	// CityJitter is the full width (degrees) of the offset applied around a known city.
	CityJitter = 0.1
	// FallbackJitter is the full width (degrees) of the offset applied around the fallback point.
	FallbackJitter = 0.5
)

// Fallback is the point used for unknown labels (Jakarta).
var Fallback = domain.GeoPoint{Lat: -6.2088, Lng: 106.8456}

var cities = map[string]domain.GeoPoint{
	"jakarta":   {Lat: -6.2088, Lng: 106.8456},
	"surabaya":  {Lat: -7.2575, Lng: 112.7521},
	"bandung":   {Lat: -6.9175, Lng: 107.6191},
	"medan":     {Lat: 3.5952, Lng: 98.6722},
	"semarang":  {Lat: -6.9667, Lng: 110.4167},
	"makassar":  {Lat: -5.1477, Lng: 119.4327},
	"palembang": {Lat: -2.9761, Lng: 104.7754},
	"tangerang": {Lat: -6.1783, Lng: 106.6319},
	"depok":     {Lat: -6.4025, Lng: 106.7942},
	"bekasi":    {Lat: -6.2383, Lng: 106.9756},
}

// Resolver maps free-text location labels to mock coordinates.
type Resolver struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewResolver creates a Resolver. A nil rnd seeds one from the clock.
func NewResolver(rnd *rand.Rand) *Resolver {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Resolver{rnd: rnd}
}

// Lookup returns the base coordinate of a known city.
func Lookup(label string) (domain.GeoPoint, bool) {
	p, ok := cities[strings.ToLower(strings.TrimSpace(label))]
	return p, ok
}

// Resolve returns a jittered coordinate for label. The second result is false
// when the label missed the city table and the fallback region was used.
func (r *Resolver) Resolve(label string) (domain.GeoPoint, bool) {
	base, ok := Lookup(label)
	width := CityJitter
	if !ok {
		base, width = Fallback, FallbackJitter
	}

	r.mu.Lock()
	dLat := (r.rnd.Float64() - 0.5) * width
	dLng := (r.rnd.Float64() - 0.5) * width
	r.mu.Unlock()

	return domain.GeoPoint{
		Lat: clamp(base.Lat+dLat, -90, 90),
		Lng: clamp(base.Lng+dLng, -180, 180),
	}, ok
}

// KnownCities returns the city table keys in alphabetical order.
func KnownCities() []string {
	names := make([]string, 0, len(cities))
	for name := range cities {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
