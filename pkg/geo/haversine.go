// Package geo provides great-circle distance and coordinate validation
// for dispatch/technician locations.
package geo

import (
	"math"
)

// EarthRadiusKm is the WGS84 mean sphere radius used for haversine.
const EarthRadiusKm = 6371.0

// ValidCoordinate reports whether a latitude/longitude pair is inside
// the valid WGS84 range.
func ValidCoordinate(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180 &&
		!math.IsNaN(lat) && !math.IsNaN(lon)
}

// Haversine returns the great-circle distance in kilometers between
// two points. No rounding is applied; callers may round for display.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	rlat1 := lat1 * math.Pi / 180
	rlon1 := lon1 * math.Pi / 180
	rlat2 := lat2 * math.Pi / 180
	rlon2 := lon2 * math.Pi / 180

	dlat := rlat2 - rlat1
	dlon := rlon2 - rlon1

	a := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(rlat1)*math.Cos(rlat2)*math.Sin(dlon/2)*math.Sin(dlon/2)
	c := 2 * math.Asin(math.Sqrt(a))

	return EarthRadiusKm * c
}

// Distance returns the great-circle distance between two optional
// coordinate pairs. The boolean is false when any coordinate is
// missing or invalid; the distance is then meaningless and must not be
// treated as zero.
func Distance(lat1, lon1, lat2, lon2 *float64) (float64, bool) {
	if lat1 == nil || lon1 == nil || lat2 == nil || lon2 == nil {
		return 0, false
	}
	if !ValidCoordinate(*lat1, *lon1) || !ValidCoordinate(*lat2, *lon2) {
		return 0, false
	}
	return Haversine(*lat1, *lon1, *lat2, *lon2), true
}
