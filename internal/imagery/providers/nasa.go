package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/earth-imagery-service/internal/imagery"
)

const dateLayout = "2006-01-02"

// NASAProvider implements the imagery.Provider interface against the NASA
// Earth point-asset index: a per-day asset listing plus a direct imagery
// endpoint for the same coordinates.
type NASAProvider struct {
	name    string
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewNASAProvider(client *http.Client, apiKey string) (*NASAProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("nasa: %w: api key is not configured", imagery.ErrAuthentication)
	}

	return &NASAProvider{
		name:    string(imagery.ProviderNASA),
		apiKey:  apiKey,
		baseURL: "https://api.nasa.gov/planetary/earth",
		httpCfg: defaultHTTPConfig(client),
		circuit: newCircuitBreaker("nasa"),
	}, nil
}

func (p *NASAProvider) Name() string {
	return p.name
}

// ResolveAvailability queries the asset index for the exact requested date
// and, regardless of the outcome, for the ±7-day window so the caller can
// offer date navigation. When the exact date has an asset the closest-date
// computation is skipped; when it does not, the chronologically first window
// entry is reported as the naive closest candidate.
func (p *NASAProvider) ResolveAvailability(ctx context.Context, req imagery.ImageRequest) (imagery.AvailabilityResult, error) {
	day := imagery.DayOf(req.Date)

	exact, err := p.queryAssets(ctx, req, day, day)
	if err != nil {
		return imagery.AvailabilityResult{}, &imagery.AvailabilityError{
			Provider: imagery.ProviderNASA,
			Reason:   "asset index query failed",
			Err:      err,
		}
	}

	from, to := imagery.Window(day)
	window, err := p.queryAssets(ctx, req, from, to)
	if err != nil {
		// The exact-date answer is still usable; degrade to an empty window.
		log.Printf("nasa: window query failed for %s: %v", day.Format(dateLayout), err)
		window = nil
	}
	candidates := imagery.SortedUniqueDates(window)

	result := imagery.AvailabilityResult{
		Provider:       imagery.ProviderNASA,
		CandidateDates: candidates,
	}

	if len(exact) > 0 {
		result.Available = true
		result.ResolvedDate = &day
		return result, nil
	}

	if len(candidates) == 0 {
		result.Reason = "no imagery within the availability window"
		return result, nil
	}

	closest := candidates[0]
	result.ClosestDate = &closest
	result.Reason = "no imagery for requested date"
	return result, nil
}

// FetchImage retrieves the rendered image for one date from the imagery
// endpoint.
func (p *NASAProvider) FetchImage(ctx context.Context, req imagery.ImageRequest, date time.Time) ([]byte, string, error) {
	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("lon", fmt.Sprintf("%f", req.Longitude))
		values.Set("lat", fmt.Sprintf("%f", req.Latitude))
		values.Set("date", date.UTC().Format(dateLayout))
		values.Set("dim", fmt.Sprintf("%f", req.FOVDegrees))
		values.Set("api_key", p.apiKey)

		u := fmt.Sprintf("%s/imagery?%s", p.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	data, contentType, err := fetchBytes(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return nil, "", fmt.Errorf("nasa imagery: %w: %v", imagery.ErrUpstreamUnavailable, err)
	}
	return data, contentType, nil
}

// FetchDirect is the fallback used when the availability resolver itself
// errored: one blind imagery fetch for the requested date before giving up.
func (p *NASAProvider) FetchDirect(ctx context.Context, req imagery.ImageRequest) ([]byte, string, error) {
	return p.FetchImage(ctx, req, req.Date)
}

// Probe checks reachability of the asset index.
func (p *NASAProvider) Probe(ctx context.Context) error {
	today := imagery.DayOf(time.Now())
	_, err := p.queryAssets(ctx, imagery.ImageRequest{FOVDegrees: 0.025}, today.AddDate(0, 0, -1), today)
	return err
}

func (p *NASAProvider) queryAssets(ctx context.Context, req imagery.ImageRequest, from, to time.Time) ([]time.Time, error) {
	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("lon", fmt.Sprintf("%f", req.Longitude))
		values.Set("lat", fmt.Sprintf("%f", req.Latitude))
		values.Set("begin", from.UTC().Format(dateLayout))
		values.Set("end", to.UTC().Format(dateLayout))
		values.Set("dim", fmt.Sprintf("%f", req.FOVDegrees))
		values.Set("api_key", p.apiKey)

		u := fmt.Sprintf("%s/assets?%s", p.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", imagery.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	var payload struct {
		Results []struct {
			Date string `json:"date"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: %v", imagery.ErrParse, err)
	}

	var dates []time.Time
	for _, r := range payload.Results {
		d, err := parseAssetDate(r.Date)
		if err != nil {
			return nil, fmt.Errorf("%w: asset date %q: %v", imagery.ErrParse, r.Date, err)
		}
		dates = append(dates, d)
	}
	return dates, nil
}

// parseAssetDate accepts the timestamp variants the asset index emits.
func parseAssetDate(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", dateLayout} {
		if d, err := time.Parse(layout, s); err == nil {
			return d, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format")
}
