// Package geocode resolves free-form place names to coordinates so the API
// can accept a place string instead of an explicit lat/lon pair.
package geocode

import (
	"errors"
	"fmt"

	"github.com/kelvins/geocoder"
)

// ErrDisabled is returned when no geocoding API key was configured.
var ErrDisabled = errors.New("geocoding is not configured")

// Client wraps the geocoder with an explicit enabled/disabled state, so a
// missing key fails requests clearly instead of at dial time.
type Client struct {
	enabled bool
}

// New configures the geocoder with the given API key. An empty key yields a
// disabled client.
func New(apiKey string) *Client {
	if apiKey == "" {
		return &Client{}
	}
	geocoder.ApiKey = apiKey
	return &Client{enabled: true}
}

func (c *Client) Enabled() bool {
	return c.enabled
}

// Lookup resolves a place name to WGS84 coordinates.
func (c *Client) Lookup(place string) (lat, lon float64, err error) {
	if !c.enabled {
		return 0, 0, ErrDisabled
	}
	if place == "" {
		return 0, 0, errors.New("place must not be empty")
	}

	location, err := geocoder.Geocoding(geocoder.Address{City: place})
	if err != nil {
		return 0, 0, fmt.Errorf("geocoding %q: %w", place, err)
	}
	return location.Latitude, location.Longitude, nil
}
