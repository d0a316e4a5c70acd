package tile

import (
	"errors"
	"testing"
)

func TestPointToTileDeterministic(t *testing.T) {
	first, err := PointToTile(40.7128, -74.0060, 9)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := 0; i < 10; i++ {
		again, err := PointToTile(40.7128, -74.0060, 9)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if again != first {
			t.Fatalf("non-deterministic result: got %v, want %v", again, first)
		}
	}
}

func TestPointToTileKnownValues(t *testing.T) {
	cases := []struct {
		lat, lon float64
		zoom     int
		want     Coordinate
	}{
		// The whole world is one tile at zoom 0.
		{0, 0, 0, Coordinate{Zoom: 0, X: 0, Y: 0}},
		{40.7128, -74.0060, 0, Coordinate{Zoom: 0, X: 0, Y: 0}},
		// At zoom 1 the origin sits on the SE quadrant boundary.
		{0, 0, 1, Coordinate{Zoom: 1, X: 1, Y: 1}},
		// New York: western hemisphere, northern hemisphere.
		{40.7128, -74.0060, 1, Coordinate{Zoom: 1, X: 0, Y: 0}},
	}

	for _, tc := range cases {
		got, err := PointToTile(tc.lat, tc.lon, tc.zoom)
		if err != nil {
			t.Fatalf("PointToTile(%v, %v, %d): unexpected error: %v", tc.lat, tc.lon, tc.zoom, err)
		}
		if got != tc.want {
			t.Fatalf("PointToTile(%v, %v, %d) = %v, want %v", tc.lat, tc.lon, tc.zoom, got, tc.want)
		}
	}
}

func TestPointToTileBoundsContainPoint(t *testing.T) {
	points := []struct {
		lat, lon float64
	}{
		{40.7128, -74.0060},
		{-33.8688, 151.2093},
		{51.5074, -0.1278},
		{0.5, 0.5},
	}

	for _, p := range points {
		for zoom := 0; zoom <= MaxZoom; zoom++ {
			c, err := PointToTile(p.lat, p.lon, zoom)
			if err != nil {
				t.Fatalf("unexpected error at zoom %d: %v", zoom, err)
			}
			south, west, north, east := c.Bounds()
			if p.lat < south || p.lat > north || p.lon < west || p.lon > east {
				t.Fatalf("tile %v bounds (%v,%v,%v,%v) do not contain (%v,%v)",
					c, south, west, north, east, p.lat, p.lon)
			}
		}
	}
}

func TestPointToTileRejectsInvalidCoordinates(t *testing.T) {
	cases := []struct {
		lat, lon float64
		zoom     int
	}{
		{91, 0, 3},
		{-91, 0, 3},
		{0, 181, 3},
		{0, -181, 3},
		{90, 0, 3},  // pole: projection degenerates
		{-90, 0, 3}, // pole
		{0, 0, -1},
		{0, 0, MaxZoom + 1},
	}

	for _, tc := range cases {
		_, err := PointToTile(tc.lat, tc.lon, tc.zoom)
		if !errors.Is(err, ErrInvalidCoordinate) {
			t.Fatalf("PointToTile(%v, %v, %d): expected ErrInvalidCoordinate, got %v",
				tc.lat, tc.lon, tc.zoom, err)
		}
	}
}

func TestZoomForFOV(t *testing.T) {
	cases := []struct {
		fov  float64
		want int
	}{
		{360, 0},
		{90, 2},
		{0.703125, 9}, // 360 / 2^9
		{0.01, MaxZoom},
		{0, MaxZoom},
	}

	for _, tc := range cases {
		if got := ZoomForFOV(tc.fov); got != tc.want {
			t.Fatalf("ZoomForFOV(%v) = %d, want %d", tc.fov, got, tc.want)
		}
	}
}
