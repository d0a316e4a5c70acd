package tile

import (
	"errors"
	"fmt"
	"math"
)

const (
	// Size is the native tile edge in pixels for all tiled providers we speak to.
	Size = 256

	// MaxZoom matches the deepest matrix published by the GIBS
	// GoogleMapsCompatible tile set.
	MaxZoom = 9
)

// ErrInvalidCoordinate is returned for latitudes/longitudes outside the
// WGS84 domain, or for polar latitudes where the Web-Mercator projection
// degenerates.
var ErrInvalidCoordinate = errors.New("invalid coordinate")

// Coordinate addresses a single tile under the spherical Web-Mercator
// (XYZ) tiling scheme. Values are never mutated once computed.
type Coordinate struct {
	Zoom int
	X    int
	Y    int
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%d/%d/%d", c.Zoom, c.X, c.Y)
}

// PointToTile converts a WGS84 point to the tile containing it at the given
// zoom level. The conversion is the standard slippy-map formula:
//
//	n = 2^zoom
//	x = floor((lon + 180) / 360 * n)
//	y = floor((1 - ln(tan(lat) + sec(lat)) / pi) / 2 * n)
//
// It is deterministic and side-effect free; the same inputs always yield the
// same tile, which callers rely on when echoing the exact tile URL used.
func PointToTile(lat, lon float64, zoom int) (Coordinate, error) {
	if lat < -90 || lat > 90 {
		return Coordinate{}, fmt.Errorf("%w: latitude %v out of range [-90, 90]", ErrInvalidCoordinate, lat)
	}
	if lon < -180 || lon > 180 {
		return Coordinate{}, fmt.Errorf("%w: longitude %v out of range [-180, 180]", ErrInvalidCoordinate, lon)
	}
	if zoom < 0 || zoom > MaxZoom {
		return Coordinate{}, fmt.Errorf("%w: zoom %d out of range [0, %d]", ErrInvalidCoordinate, zoom, MaxZoom)
	}

	latRad := lat * math.Pi / 180
	cosLat := math.Cos(latRad)
	if cosLat < 1e-12 {
		// cos(lat) is numerically zero at the poles and the projection is
		// undefined there; callers must clamp or reject first.
		return Coordinate{}, fmt.Errorf("%w: latitude %v too close to a pole", ErrInvalidCoordinate, lat)
	}

	n := float64(int(1) << zoom)
	x := int(math.Floor((lon + 180) / 360 * n))
	y := int(math.Floor((1 - math.Log(math.Tan(latRad)+1/cosLat)/math.Pi) / 2 * n))

	size := 1 << zoom
	// The antimeridian (lon == 180) and extreme latitudes land exactly on the
	// grid edge; fold them back onto the last valid tile.
	x = clamp(x, 0, size-1)
	y = clamp(y, 0, size-1)

	return Coordinate{Zoom: zoom, X: x, Y: y}, nil
}

// Bounds returns the WGS84 bounding box of the tile as (south, west, north,
// east). It is the inverse of PointToTile in the sense that the box always
// contains every point that maps to this tile.
func (c Coordinate) Bounds() (south, west, north, east float64) {
	n := float64(int(1) << c.Zoom)
	west = float64(c.X)/n*360 - 180
	east = float64(c.X+1)/n*360 - 180
	north = tileLat(float64(c.Y), n)
	south = tileLat(float64(c.Y+1), n)
	return south, west, north, east
}

func tileLat(y, n float64) float64 {
	return math.Atan(math.Sinh(math.Pi*(1-2*y/n))) * 180 / math.Pi
}

// ZoomForFOV picks the zoom level whose tiles most closely match a requested
// field of view in degrees of longitude, clamped to the provider's matrix.
func ZoomForFOV(fovDegrees float64) int {
	if fovDegrees <= 0 {
		return MaxZoom
	}
	zoom := int(math.Round(math.Log2(360 / fovDegrees)))
	return clamp(zoom, 0, MaxZoom)
}

func clamp(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
