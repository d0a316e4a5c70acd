package imagery

import (
	"errors"
	"fmt"

	"github.com/i474232898/earth-imagery-service/internal/tile"
)

var (
	// ErrInvalidCoordinate covers latitudes/longitudes outside the WGS84
	// domain; the tile package owns the canonical value so both layers
	// report the same error.
	ErrInvalidCoordinate = tile.ErrInvalidCoordinate

	// ErrAuthentication signals a failed credential exchange with an
	// upstream provider.
	ErrAuthentication = errors.New("authentication failed")

	// ErrUpstreamUnavailable signals a non-2xx or transport-level failure
	// from an upstream provider.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrParse signals a well-delivered but malformed upstream payload.
	ErrParse = errors.New("malformed upstream response")

	// ErrNoImageryFound signals a valid upstream response with an empty
	// result set.
	ErrNoImageryFound = errors.New("no imagery found")
)

// AvailabilityError wraps a resolver failure with the provider it came from.
// Resolvers fail independently: one provider's AvailabilityError never
// affects another provider's code path.
type AvailabilityError struct {
	Provider ProviderID
	Reason   string
	Err      error
}

func (e *AvailabilityError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s availability: %s: %v", e.Provider, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s availability: %s", e.Provider, e.Reason)
}

func (e *AvailabilityError) Unwrap() error {
	return e.Err
}
