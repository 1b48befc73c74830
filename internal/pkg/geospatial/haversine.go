package geospatial

import "math"

const (
	earthRadiusKm = 6371.0

	// MetersPerDegreeLat is the length of one degree of latitude, independent of longitude.
	MetersPerDegreeLat = 111320.0
)

// Haversine calculates the great-circle distance in meters between two points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c * 1000 // meters
}

// BoundingBox returns a bounding box around a point with the given radius in meters.
// Latitudes are clamped to [-90, 90]. Longitudes are wrapped into [-180, 180],
// so a box crossing the antimeridian has minLon > maxLon. A box reaching a pole
// spans every longitude.
func BoundingBox(lat, lon, radiusMeters float64) (minLat, minLon, maxLat, maxLon float64) {
	latDelta := MetersToLatDegrees(radiusMeters)
	minLat = math.Max(lat-latDelta, -90)
	maxLat = math.Min(lat+latDelta, 90)
	if minLat == -90 || maxLat == 90 {
		return minLat, -180, maxLat, 180
	}

	lonDelta := radiusMeters / (MetersPerDegreeLat * math.Cos(toRad(lat)))
	if math.IsNaN(lonDelta) || lonDelta >= 180 {
		return minLat, -180, maxLat, 180
	}
	return minLat, WrapLon(lon - lonDelta), maxLat, WrapLon(lon + lonDelta)
}

// WrapLon maps a longitude into [-180, 180].
func WrapLon(lon float64) float64 {
	for lon < -180 {
		lon += 360
	}
	for lon > 180 {
		lon -= 360
	}
	return lon
}

// MetersToLatDegrees converts a north-south distance to degrees of latitude.
func MetersToLatDegrees(meters float64) float64 {
	return meters / MetersPerDegreeLat
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
