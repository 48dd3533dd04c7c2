package utils

import (
	"math"
)

// Clamp limits a value between min and max
func Clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// RoundTo rounds a float to specified decimal places
func RoundTo(value float64, places int) float64 {
	factor := math.Pow(10, float64(places))
	return math.Round(value*factor) / factor
}

// IsFinite reports whether value is neither NaN nor infinite
func IsFinite(value float64) bool {
	return !math.IsNaN(value) && !math.IsInf(value, 0)
}

// ValidLatLon reports whether lat/lon are finite WGS84 degrees
func ValidLatLon(lat, lon float64) bool {
	return IsFinite(lat) && IsFinite(lon) &&
		lat >= -90 && lat <= 90 &&
		lon >= -180 && lon <= 180
}
