// Package geo resolves a coordinate to the closest known district.
package geo

import (
	"math"

	"github.com/mr1hm/go-flood-alerts/internal/models"
)

const earthRadiusKm = 6371.0

// Haversine returns the great-circle distance in kilometres.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// Nearest returns the district closest to (lat, lon) and its distance. ok is
// false when districts is empty. Ties go to the earlier district.
func Nearest(lat, lon float64, districts []models.District) (d models.District, km float64, ok bool) {
	km = math.Inf(1)
	for _, candidate := range districts {
		dist := Haversine(lat, lon, candidate.Latitude, candidate.Longitude)
		if dist < km {
			d, km, ok = candidate, dist, true
		}
	}
	if !ok {
		return models.District{}, 0, false
	}
	return d, km, true
}

// ValidCoordinate reports whether lat and lon are finite and in range.
func ValidCoordinate(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
