// Package geo holds the small pure-function toolkit for coordinate work:
// great-circle distance and GPS fix validity.
package geo

import "math"

const earthRadiusKm = 6371

// HaversineKm returns the great-circle distance in kilometers between two
// points given as (lat, lng) degree pairs. Identical points yield 0.
func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLng := radians(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// IsValidFix reports whether (lng, lat) looks like a real GPS fix.
// (0,0) is the "no fix" sentinel, and anything within 0.1 degrees of the
// origin is rejected as near-origin noise.
func IsValidFix(lng, lat float64) bool {
	if math.IsNaN(lng) || math.IsNaN(lat) || math.IsInf(lng, 0) || math.IsInf(lat, 0) {
		return false
	}
	if lng == 0 && lat == 0 {
		return false
	}
	if math.Abs(lng) <= 0.1 || math.Abs(lat) <= 0.1 {
		return false
	}
	return math.Abs(lng) <= 180 && math.Abs(lat) <= 90
}
