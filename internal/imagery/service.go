package imagery

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/i474232898/earth-imagery-service/internal/audit"
)

// Service orchestrates one image request: resolve availability with the
// chosen provider, then either fetch/composite the image, report candidate
// dates, or fall back to a direct fetch when the resolver itself failed.
type Service struct {
	providers map[ProviderID]Provider
	recorder  audit.Recorder
}

// NewService creates a new Service. A nil recorder disables auditing.
func NewService(providers []Provider, recorder audit.Recorder) *Service {
	if recorder == nil {
		recorder = audit.NopRecorder{}
	}

	byID := make(map[ProviderID]Provider, len(providers))
	for _, p := range providers {
		byID[ProviderID(p.Name())] = p
	}
	return &Service{providers: byID, recorder: recorder}
}

// Providers lists the configured providers, for health probing and
// introspection.
func (s *Service) Providers() []Provider {
	out := make([]Provider, 0, len(s.providers))
	for _, p := range s.providers {
		out = append(out, p)
	}
	return out
}

// CheckAvailability runs only the resolver half of the request, for the
// date-navigation endpoint.
func (s *Service) CheckAvailability(ctx context.Context, req ImageRequest) (AvailabilityResult, error) {
	if err := req.Validate(); err != nil {
		return AvailabilityResult{}, err
	}
	p, err := s.provider(req.Provider)
	if err != nil {
		return AvailabilityResult{}, err
	}

	requestID := uuid.NewString()
	return s.resolve(ctx, requestID, p, req)
}

// GetImage runs the full request. When imagery is available the returned
// ImageResult carries the encoded bytes; when it is not, the result is nil
// and the AvailabilityResult holds the candidate dates and closest match.
// err is non-nil only for terminal failures.
func (s *Service) GetImage(ctx context.Context, req ImageRequest) (*ImageResult, AvailabilityResult, error) {
	if err := req.Validate(); err != nil {
		return nil, AvailabilityResult{}, err
	}
	p, err := s.provider(req.Provider)
	if err != nil {
		return nil, AvailabilityResult{}, err
	}

	requestID := uuid.NewString()

	avail, err := s.resolve(ctx, requestID, p, req)
	if err != nil {
		// Resolver failure: providers that support it get one blind fetch
		// for the requested date before the error surfaces.
		df, ok := p.(DirectFetcher)
		if !ok {
			return nil, AvailabilityResult{}, err
		}

		log.Printf("imagery: %s resolver failed, attempting direct fallback: %v", p.Name(), err)
		data, contentType, fbErr := s.fetchDirect(ctx, requestID, df, p.Name(), req)
		if fbErr != nil {
			return nil, AvailabilityResult{}, fmt.Errorf("fallback fetch after resolver failure: %w", errors.Join(err, fbErr))
		}

		return &ImageResult{
			RequestID:    requestID,
			Provider:     req.Provider,
			Data:         data,
			ContentType:  contentType,
			ResolvedDate: DayOf(req.Date),
			Fallback:     true,
		}, AvailabilityResult{Provider: req.Provider}, nil
	}

	if !avail.Available {
		return nil, avail, nil
	}

	data, contentType, err := s.fetch(ctx, requestID, p, req, *avail.ResolvedDate)
	if err != nil {
		return nil, avail, err
	}

	return &ImageResult{
		RequestID:      requestID,
		Provider:       req.Provider,
		Data:           data,
		ContentType:    contentType,
		ResolvedDate:   *avail.ResolvedDate,
		CandidateDates: avail.CandidateDates,
		ClosestDate:    avail.ClosestDate,
	}, avail, nil
}

func (s *Service) provider(id ProviderID) (Provider, error) {
	p, ok := s.providers[id]
	if !ok {
		return nil, fmt.Errorf("unknown provider %q", id)
	}
	return p, nil
}

func (s *Service) resolve(ctx context.Context, requestID string, p Provider, req ImageRequest) (AvailabilityResult, error) {
	s.recorder.Record(audit.Event{RequestID: requestID, Provider: p.Name(), Stage: "resolve.start"})
	start := time.Now()

	avail, err := p.ResolveAvailability(ctx, req)

	elapsed := time.Since(start)
	event := audit.Event{RequestID: requestID, Provider: p.Name(), Stage: "resolve.done", Elapsed: elapsed}
	if err != nil {
		event.Error = err.Error()
	} else {
		event.Detail = fmt.Sprintf("available=%t candidates=%d", avail.Available, len(avail.CandidateDates))
	}
	s.recorder.Record(event)
	log.Printf("imagery: %s resolve took %s (available=%t err=%v)", p.Name(), elapsed, avail.Available, err)

	return avail, err
}

func (s *Service) fetch(ctx context.Context, requestID string, p Provider, req ImageRequest, date time.Time) ([]byte, string, error) {
	s.recorder.Record(audit.Event{RequestID: requestID, Provider: p.Name(), Stage: "fetch.start"})
	start := time.Now()

	data, contentType, err := p.FetchImage(ctx, req, date)

	elapsed := time.Since(start)
	event := audit.Event{RequestID: requestID, Provider: p.Name(), Stage: "fetch.done", Elapsed: elapsed}
	if err != nil {
		event.Error = err.Error()
	} else {
		event.Detail = fmt.Sprintf("bytes=%d", len(data))
	}
	s.recorder.Record(event)
	log.Printf("imagery: %s fetch took %s (bytes=%d err=%v)", p.Name(), elapsed, len(data), err)

	return data, contentType, err
}

func (s *Service) fetchDirect(ctx context.Context, requestID string, df DirectFetcher, name string, req ImageRequest) ([]byte, string, error) {
	s.recorder.Record(audit.Event{RequestID: requestID, Provider: name, Stage: "fallback.start"})
	start := time.Now()

	data, contentType, err := df.FetchDirect(ctx, req)

	elapsed := time.Since(start)
	event := audit.Event{RequestID: requestID, Provider: name, Stage: "fallback.done", Elapsed: elapsed}
	if err != nil {
		event.Error = err.Error()
	}
	s.recorder.Record(event)
	log.Printf("imagery: %s fallback fetch took %s (err=%v)", name, elapsed, err)

	return data, contentType, err
}
