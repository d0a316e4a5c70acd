package imagery

import (
	"context"
	"time"
)

// Provider abstracts one imagery source (NASA point-asset index, Sentinel
// Hub scene catalog, GIBS tiled mosaics). Each implementation owns its
// upstream contract independently; there is no shared retry state between
// providers.
type Provider interface {
	Name() string

	// ResolveAvailability answers whether imagery exists for the requested
	// location/date and, if not, which nearby acquisitions do.
	ResolveAvailability(ctx context.Context, req ImageRequest) (AvailabilityResult, error)

	// FetchImage retrieves the encoded image for the resolved date. Tiled
	// providers composite internally; the others fetch a single rendered
	// image.
	FetchImage(ctx context.Context, req ImageRequest, date time.Time) ([]byte, string, error)

	// Probe performs the provider's cheapest upstream call so the health
	// scheduler can record reachability.
	Probe(ctx context.Context) error
}

// DirectFetcher is an optional capability: providers that can attempt a
// blind image fetch for the requested date after their availability
// resolver itself failed. The orchestrator discovers it by type assertion.
type DirectFetcher interface {
	FetchDirect(ctx context.Context, req ImageRequest) ([]byte, string, error)
}
