package geo

import "math"

// EarthRadiusKm is the mean radius of Earth used for Haversine distance.
const EarthRadiusKm = 6371.0

// Coordinate is a WGS84 point in degrees.
type Coordinate struct {
	Lat float64
	Lon float64
}

// ValidateCoordinates checks that latitude is in [-90,90] and longitude in [-180,180].
func ValidateCoordinates(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// HaversineKm returns the great-circle distance in kilometers between two
// points specified by latitude and longitude in degrees.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	lat1r := lat1 * math.Pi / 180
	lat2r := lat2 * math.Pi / 180
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1r)*math.Cos(lat2r)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusKm * c
}

// DistanceKm returns the great-circle distance in kilometers to other.
func (c Coordinate) DistanceKm(other Coordinate) float64 {
	return HaversineKm(c.Lat, c.Lon, other.Lat, other.Lon)
}

// WithinRadiusKm reports whether p lies within radiusKm of center.
// The boundary is inclusive: a point exactly radiusKm away counts as inside.
func WithinRadiusKm(center Coordinate, radiusKm float64, p Coordinate) bool {
	return center.DistanceKm(p) <= radiusKm
}
