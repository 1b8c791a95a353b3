// Package geo holds great-circle helpers for coordinates in degrees.
package geo

import (
	"math"

	"tourguide/internal/models"
)

// StatuteMilesPerNauticalMile converts nautical miles to statute miles.
const StatuteMilesPerNauticalMile = 1.15077945

// Distance returns the great-circle distance between a and b in statute miles,
// using the spherical law of cosines.
func Distance(a, b models.Coordinates) float64 {
	if a == b {
		return 0
	}
	lat1 := radians(a.Lat)
	lon1 := radians(a.Lon)
	lat2 := radians(b.Lat)
	lon2 := radians(b.Lon)

	cosAngle := math.Sin(lat1)*math.Sin(lat2) + math.Cos(lat1)*math.Cos(lat2)*math.Cos(lon1-lon2)
	// rounding can push coincident or antipodal points just outside acos's domain
	angle := math.Acos(clamp(cosAngle, -1, 1))

	nauticalMiles := 60 * degrees(angle)
	return StatuteMilesPerNauticalMile * nauticalMiles
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

func degrees(rad float64) float64 {
	return rad * 180 / math.Pi
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
