package geo

import (
	"math"
	"testing"
)

func TestHaversine_KnownDistance(t *testing.T) {
	// New York City to Philadelphia, roughly 130 km
	dist := Haversine(40.7128, -74.0060, 39.9526, -75.1652)
	if dist < 120 || dist > 140 {
		t.Errorf("NYC-Philadelphia distance out of range: %f km", dist)
	}
}

func TestHaversine_ZeroDistance(t *testing.T) {
	dist := Haversine(40.0, -74.0, 40.0, -74.0)
	if dist != 0 {
		t.Errorf("Identical points should be 0 km apart, got %f", dist)
	}
}

func TestHaversine_ShortDistance(t *testing.T) {
	// Roughly 1.4 km at this latitude
	dist := Haversine(40.00, -74.00, 40.01, -74.01)
	if dist < 1.0 || dist > 2.0 {
		t.Errorf("Expected ~1.4 km, got %f", dist)
	}
}

func TestHaversine_Symmetry(t *testing.T) {
	d1 := Haversine(40.0, -74.0, 41.5, -72.3)
	d2 := Haversine(41.5, -72.3, 40.0, -74.0)
	if math.Abs(d1-d2) > 1e-9 {
		t.Errorf("Haversine should be symmetric: %f vs %f", d1, d2)
	}
}

func TestValidCoordinate(t *testing.T) {
	cases := []struct {
		lat, lon float64
		want     bool
	}{
		{40.0, -74.0, true},
		{90.0, 180.0, true},
		{-90.0, -180.0, true},
		{91.0, 0.0, false},
		{0.0, 181.0, false},
		{math.NaN(), 0.0, false},
	}
	for _, c := range cases {
		if got := ValidCoordinate(c.lat, c.lon); got != c.want {
			t.Errorf("ValidCoordinate(%f, %f) = %v, want %v", c.lat, c.lon, got, c.want)
		}
	}
}

func TestDistance_MissingCoordinates(t *testing.T) {
	lat := 40.0
	lon := -74.0

	if _, ok := Distance(nil, &lon, &lat, &lon); ok {
		t.Error("Distance with missing latitude should report not-ok")
	}
	if _, ok := Distance(&lat, &lon, &lat, nil); ok {
		t.Error("Distance with missing longitude should report not-ok")
	}

	dist, ok := Distance(&lat, &lon, &lat, &lon)
	if !ok {
		t.Fatal("Distance with full coordinates should report ok")
	}
	if dist != 0 {
		t.Errorf("Expected 0 km for identical points, got %f", dist)
	}
}
