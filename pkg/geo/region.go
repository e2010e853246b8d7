// Package geo holds the map-camera math shared by the screen, the index and
// the PostGIS store.
package geo

import (
	"math"

	"github.com/1F47E/ecoleta-points/pkg/models"
)

const (
	// DefaultDelta is the angular span, in degrees, shown on both axes
	DefaultDelta = 0.014

	earthRadius = 6371.0 // km
)

// Region is a map viewport: a center and an angular span on each axis
type Region struct {
	Center         models.Coordinate
	LatitudeDelta  float64
	LongitudeDelta float64
}

// RegionAround returns the camera region centered on c with the same span on
// both axes. A non-positive delta falls back to DefaultDelta.
func RegionAround(c models.Coordinate, delta float64) Region {
	if delta <= 0 {
		delta = DefaultDelta
	}
	return Region{
		Center:         c,
		LatitudeDelta:  delta,
		LongitudeDelta: delta,
	}
}

// Bounds returns the envelope covered by the region. Its longitudes may run
// past ±180, see Envelopes.
func (r Region) Bounds() models.BoundingBox {
	halfLat := r.LatitudeDelta / 2
	halfLon := r.LongitudeDelta / 2
	return models.BoundingBox{
		BottomLeft: models.Coordinate{
			Latitude:  r.Center.Latitude - halfLat,
			Longitude: r.Center.Longitude - halfLon,
		},
		TopRight: models.Coordinate{
			Latitude:  r.Center.Latitude + halfLat,
			Longitude: r.Center.Longitude + halfLon,
		},
	}
}

// Envelopes returns the boxes covering the region, with latitudes clamped to
// the poles. A region crossing the antimeridian is split into two boxes, one
// on each side of it.
func (r Region) Envelopes() []models.BoundingBox {
	b := r.Bounds()
	b.BottomLeft.Latitude = math.Max(b.BottomLeft.Latitude, -90)
	b.TopRight.Latitude = math.Min(b.TopRight.Latitude, 90)

	minLon, maxLon := b.BottomLeft.Longitude, b.TopRight.Longitude
	switch {
	case r.LongitudeDelta >= 360:
		b.BottomLeft.Longitude, b.TopRight.Longitude = -180, 180
		return []models.BoundingBox{b}

	case minLon < -180:
		west, east := b, b
		west.BottomLeft.Longitude = -180
		east.BottomLeft.Longitude = minLon + 360
		east.TopRight.Longitude = 180
		return []models.BoundingBox{west, east}

	case maxLon > 180:
		west, east := b, b
		east.TopRight.Longitude = 180
		west.BottomLeft.Longitude = -180
		west.TopRight.Longitude = maxLon - 360
		return []models.BoundingBox{west, east}
	}

	return []models.BoundingBox{b}
}

// Contains reports whether c is visible in the region
func (r Region) Contains(c models.Coordinate) bool {
	for _, box := range r.Envelopes() {
		if box.Contains(c) {
			return true
		}
	}
	return false
}

// Project maps c onto a width x height grid covering the region. Row 0 is the
// northern edge. ok is false when c falls outside the region.
func (r Region) Project(c models.Coordinate, width, height int) (col, row int, ok bool) {
	if width <= 0 || height <= 0 || !r.Contains(c) {
		return 0, 0, false
	}
	b := r.Bounds()
	// offset east of the western edge, across the antimeridian if needed
	dLon := math.Mod(c.Longitude-b.BottomLeft.Longitude, 360)
	if dLon < 0 {
		dLon += 360
	}
	x := dLon / r.LongitudeDelta
	y := (b.TopRight.Latitude - c.Latitude) / r.LatitudeDelta

	col = int(x * float64(width))
	row = int(y * float64(height))
	if col >= width {
		col = width - 1
	}
	if row >= height {
		row = height - 1
	}
	return col, row, true
}

// Distance calculates the Haversine distance between two points in kilometers
func Distance(a, b models.Coordinate) float64 {
	lat1Rad := a.Latitude * math.Pi / 180.0
	lon1Rad := a.Longitude * math.Pi / 180.0
	lat2Rad := b.Latitude * math.Pi / 180.0
	lon2Rad := b.Longitude * math.Pi / 180.0

	dLat := lat2Rad - lat1Rad
	dLon := lon2Rad - lon1Rad

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	return earthRadius * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}
