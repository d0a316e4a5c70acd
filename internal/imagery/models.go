package imagery

import (
	"fmt"
	"time"

	"github.com/i474232898/earth-imagery-service/internal/tile"
)

// ProviderID identifies one of the configured imagery providers.
type ProviderID string

const (
	ProviderNASA     ProviderID = "nasa"
	ProviderSentinel ProviderID = "sentinel"
	ProviderGIBS     ProviderID = "gibs"
)

// ImageRequest describes a single true-color image request. Every request is
// independent; entities derived from it live only for the duration of the
// request.
type ImageRequest struct {
	Latitude   float64    `json:"latitude"`
	Longitude  float64    `json:"longitude"`
	Date       time.Time  `json:"date"`           // acquisition date (UTC, midnight)
	Time       *time.Time `json:"time,omitempty"` // optional precise time of interest
	FOVDegrees float64    `json:"fovDegrees"`     // field of view, degrees of longitude
	Resolution int        `json:"resolution"`     // output edge length in pixels
	Provider   ProviderID `json:"provider"`

	// CloudCoverMax is the maximum acceptable cloud cover percentage for
	// scene-based providers. 100 admits everything.
	CloudCoverMax float64 `json:"cloudCoverMax"`
}

// Validate checks the request invariants shared by all providers.
func (r ImageRequest) Validate() error {
	if r.Latitude < -90 || r.Latitude > 90 {
		return fmt.Errorf("%w: latitude %v out of range [-90, 90]", ErrInvalidCoordinate, r.Latitude)
	}
	if r.Longitude < -180 || r.Longitude > 180 {
		return fmt.Errorf("%w: longitude %v out of range [-180, 180]", ErrInvalidCoordinate, r.Longitude)
	}
	if r.Resolution <= 0 {
		return fmt.Errorf("resolution must be positive, got %d", r.Resolution)
	}
	if r.FOVDegrees <= 0 {
		return fmt.Errorf("field of view must be positive, got %v", r.FOVDegrees)
	}
	if r.Date.IsZero() {
		return fmt.Errorf("date is required")
	}
	return nil
}

// Target returns the instant availability searches minimize distance to:
// the optional precise time when given, otherwise the date at midnight UTC.
func (r ImageRequest) Target() time.Time {
	if r.Time != nil {
		return r.Time.UTC()
	}
	return r.Date.UTC()
}

// Zoom derives the tile zoom level from the requested field of view.
func (r ImageRequest) Zoom() int {
	return tile.ZoomForFOV(r.FOVDegrees)
}

// AvailabilityResult is the shared answer of all three resolver strategies:
// whether imagery exists for the requested date, and if not, which nearby
// acquisitions exist within the ±7-day window.
type AvailabilityResult struct {
	Provider  ProviderID `json:"provider"`
	Available bool       `json:"available"`

	// ResolvedDate is set when Available is true and always equals the
	// requested date.
	ResolvedDate *time.Time `json:"resolvedDate,omitempty"`

	// CandidateDates lists every known acquisition inside the availability
	// window, in chronological order.
	CandidateDates []time.Time `json:"candidateDates"`

	// ClosestDate is the single best alternative when the requested date has
	// no imagery (or, for the tiled provider, the nearest actual acquisition
	// reported as advisory metadata).
	ClosestDate *time.Time `json:"closestDate,omitempty"`

	// Reason explains an unavailable result in human-readable form. The
	// distinct values for "no scenes" versus "all scenes filtered out" are
	// part of the contract consumed by date-navigation UIs.
	Reason string `json:"reason,omitempty"`

	// Scenes carries the raw catalog records for scene-based providers,
	// before cloud-cover filtering.
	Scenes []Scene `json:"scenes,omitempty"`
}

// Scene is one immutable satellite acquisition record returned by a catalog
// query. Scenes are unique by ID.
type Scene struct {
	ID              string    `json:"id"`
	AcquisitionTime time.Time `json:"acquisitionTime"`
	CloudCover      *float64  `json:"cloudCover,omitempty"` // percent
	Platform        string    `json:"platform,omitempty"`
}

// ImageResult is the successful outcome of a request: encoded image bytes
// plus the metadata a client needs for date navigation. It is built once per
// request and never cached.
type ImageResult struct {
	RequestID      string      `json:"requestId"`
	Provider       ProviderID  `json:"provider"`
	Data           []byte      `json:"-"`
	ContentType    string      `json:"contentType"`
	ResolvedDate   time.Time   `json:"resolvedDate"`
	CandidateDates []time.Time `json:"candidateDates,omitempty"`
	ClosestDate    *time.Time  `json:"closestDate,omitempty"`

	// Fallback marks images obtained by the direct-fetch fallback after the
	// availability resolver itself failed.
	Fallback bool `json:"fallback,omitempty"`
}
