package activity

import (
	"math"

	"github.com/planbiir/gpxtrim/internal/gpx"
)

// earthRadius is the mean Earth radius in meters.
const earthRadius = 6371000

// Haversine returns the great-circle distance in meters between two points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	deltaLat := (lat2 - lat1) * math.Pi / 180
	deltaLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadius * c
}

// Speed returns the ground speed in m/s from a to b.
// It is 0 when b is not later than a.
func Speed(a, b gpx.TrackPoint) float64 {
	dt := b.Time.Sub(a.Time).Seconds()
	if dt <= 0 {
		return 0
	}
	return Haversine(a.Lat, a.Lon, b.Lat, b.Lon) / dt
}
