package service

import (
	"context"
	"math"
	"sort"

	"github.com/kashyap0729/good-will-hunting/internal/model"
)

// EarthRadiusKm is the Earth's radius in kilometers
const EarthRadiusKm = 6371.0

// Nearby search limits
const (
	DefaultSearchRadiusKm = 10.0
	MaxSearchRadiusKm     = 100.0
	DefaultNearbyLimit    = 50
)

// HaversineDistance calculates the distance between two points in kilometers
func HaversineDistance(lat1, lng1, lat2, lng2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	deltaLat := (lat2 - lat1) * math.Pi / 180
	deltaLng := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLng/2)*math.Sin(deltaLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusKm * c
}

// BoundingBox is a rough lat/lng rectangle used to skip the exact distance
// for points that are clearly out of range
type BoundingBox struct {
	MinLat float64
	MaxLat float64
	MinLng float64
	MaxLng float64
}

// GetBoundingBox returns a box around a center point with the given radius.
// Near the poles the longitude span is unbounded.
func GetBoundingBox(lat, lng, radiusKm float64) BoundingBox {
	// 1 degree of latitude is about 111 km
	latDelta := radiusKm / 111.0
	cos := math.Cos(lat * math.Pi / 180)
	lngDelta := 180.0
	if cos > 0.01 {
		lngDelta = radiusKm / (111.0 * cos)
	}
	return BoundingBox{
		MinLat: lat - latDelta,
		MaxLat: lat + latDelta,
		MinLng: lng - lngDelta,
		MaxLng: lng + lngDelta,
	}
}

// Contains reports whether the point falls inside the box
func (b BoundingBox) Contains(lat, lng float64) bool {
	if lat < b.MinLat || lat > b.MaxLat {
		return false
	}
	if b.MaxLng-b.MinLng >= 360 {
		return true
	}
	// Normalize across the antimeridian
	for _, l := range []float64{lng, lng - 360, lng + 360} {
		if l >= b.MinLng && l <= b.MaxLng {
			return true
		}
	}
	return false
}

// Nearby returns locations within q.RadiusKm of the query point, nearest
// first. Equal distances are ordered by name.
func (s *LocationService) Nearby(ctx context.Context, q model.NearbyQuery) ([]*model.NearbyLocation, error) {
	if q.RadiusKm == 0 {
		q.RadiusKm = DefaultSearchRadiusKm
	}
	if q.Limit == 0 {
		q.Limit = DefaultNearbyLimit
	}
	if errs := q.Validate(MaxSearchRadiusKm); len(errs) > 0 {
		return nil, model.NewValidationError(errs)
	}

	locations, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	box := GetBoundingBox(q.Latitude, q.Longitude, q.RadiusKm)
	var out []*model.NearbyLocation
	for _, loc := range locations {
		if !box.Contains(loc.Latitude, loc.Longitude) {
			continue
		}
		d := HaversineDistance(q.Latitude, q.Longitude, loc.Latitude, loc.Longitude)
		if d <= q.RadiusKm {
			out = append(out, &model.NearbyLocation{StorageLocation: loc, DistanceKm: d})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DistanceKm != out[j].DistanceKm {
			return out[i].DistanceKm < out[j].DistanceKm
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}
