package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/earth-imagery-service/internal/imagery"
)

// catalogSceneLimit caps how many scenes a single catalog search returns.
const catalogSceneLimit = 20

// trueColorEvalscript renders the visible bands of a Sentinel-2 scene.
const trueColorEvalscript = `//VERSION=3
function setup() {
  return { input: ["B02", "B03", "B04"], output: { bands: 3 } };
}
function evaluatePixel(sample) {
  return [2.5 * sample.B04, 2.5 * sample.B03, 2.5 * sample.B02];
}`

// SentinelProvider implements the imagery.Provider interface against the
// Sentinel Hub scene catalog and process API. Tokens are exchanged fresh on
// every call; there is no refresh or caching.
type SentinelProvider struct {
	name         string
	clientID     string
	clientSecret string
	tokenURL     string
	catalogURL   string
	processURL   string
	collection   string
	httpCfg      HTTPClientConfig
	circuit      *gobreaker.CircuitBreaker
}

func NewSentinelProvider(client *http.Client, clientID, clientSecret string) (*SentinelProvider, error) {
	if clientID == "" || clientSecret == "" {
		return nil, fmt.Errorf("sentinel: %w: client credentials are not configured", imagery.ErrAuthentication)
	}

	return &SentinelProvider{
		name:         string(imagery.ProviderSentinel),
		clientID:     clientID,
		clientSecret: clientSecret,
		tokenURL:     "https://services.sentinel-hub.com/oauth/token",
		catalogURL:   "https://services.sentinel-hub.com/api/v1/catalog/1.0.0/search",
		processURL:   "https://services.sentinel-hub.com/api/v1/process",
		collection:   "sentinel-2-l2a",
		httpCfg:      defaultHTTPConfig(client),
		circuit:      newCircuitBreaker("sentinel"),
	}, nil
}

func (p *SentinelProvider) Name() string {
	return p.name
}

// ResolveAvailability searches the scene catalog inside a small bounding box
// around the point over the ±7-day window, filters by the request's cloud
// cover ceiling, and selects the scene minimizing absolute time distance to
// the requested instant. "No scenes at all" and "scenes exist but the filter
// excluded all of them" are reported as distinct reasons.
func (p *SentinelProvider) ResolveAvailability(ctx context.Context, req imagery.ImageRequest) (imagery.AvailabilityResult, error) {
	token, err := p.exchangeToken(ctx)
	if err != nil {
		return imagery.AvailabilityResult{}, &imagery.AvailabilityError{
			Provider: imagery.ProviderSentinel,
			Reason:   "token exchange failed",
			Err:      err,
		}
	}

	scenes, err := p.searchScenes(ctx, token, req)
	if err != nil {
		return imagery.AvailabilityResult{}, &imagery.AvailabilityError{
			Provider: imagery.ProviderSentinel,
			Reason:   "catalog search failed",
			Err:      err,
		}
	}

	result := imagery.AvailabilityResult{
		Provider: imagery.ProviderSentinel,
		Scenes:   scenes,
	}

	if len(scenes) == 0 {
		result.Reason = "no scenes found"
		return result, nil
	}

	usable := imagery.FilterScenesByCloudCover(scenes, req.CloudCoverMax)
	if len(usable) == 0 {
		result.Reason = "all scenes exceed cloud cover threshold"
		return result, nil
	}

	times := make([]time.Time, len(usable))
	for i, s := range usable {
		times[i] = s.AcquisitionTime
	}
	result.CandidateDates = imagery.SortedUniqueDates(times)

	best, _ := imagery.ClosestScene(usable, req.Target())
	bestDay := imagery.DayOf(best.AcquisitionTime)

	if imagery.SameDay(best.AcquisitionTime, req.Date) {
		day := imagery.DayOf(req.Date)
		result.Available = true
		result.ResolvedDate = &day
		return result, nil
	}

	result.ClosestDate = &bestDay
	result.Reason = "no usable scene for requested date"
	return result, nil
}

// FetchImage renders a true-color image for one date through the process
// API at exactly the requested output resolution.
func (p *SentinelProvider) FetchImage(ctx context.Context, req imagery.ImageRequest, date time.Time) ([]byte, string, error) {
	token, err := p.exchangeToken(ctx)
	if err != nil {
		return nil, "", err
	}

	day := imagery.DayOf(date)
	body := map[string]any{
		"input": map[string]any{
			"bounds": map[string]any{
				"bbox": p.bbox(req),
			},
			"data": []map[string]any{{
				"type": p.collection,
				"dataFilter": map[string]any{
					"timeRange": map[string]string{
						"from": day.Format(time.RFC3339),
						"to":   day.Add(24*time.Hour - time.Second).Format(time.RFC3339),
					},
					"maxCloudCoverage": req.CloudCoverMax,
				},
			}},
		},
		"output": map[string]any{
			"width":  req.Resolution,
			"height": req.Resolution,
			"responses": []map[string]any{{
				"identifier": "default",
				"format":     map[string]string{"type": "image/jpeg"},
			}},
		},
		"evalscript": trueColorEvalscript,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, "", err
	}

	buildRequest := func() (*http.Request, error) {
		httpReq, err := http.NewRequest(http.MethodPost, p.processURL, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Authorization", "Bearer "+token)
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Accept", "image/jpeg")
		return httpReq, nil
	}

	data, contentType, err := fetchBytes(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return nil, "", fmt.Errorf("sentinel process: %w: %v", imagery.ErrUpstreamUnavailable, err)
	}
	return data, contentType, nil
}

// Probe exercises the token endpoint, the cheapest authenticated call.
func (p *SentinelProvider) Probe(ctx context.Context) error {
	_, err := p.exchangeToken(ctx)
	return err
}

func (p *SentinelProvider) exchangeToken(ctx context.Context) (string, error) {
	buildRequest := func() (*http.Request, error) {
		form := url.Values{}
		form.Set("grant_type", "client_credentials")
		form.Set("client_id", p.clientID)
		form.Set("client_secret", p.clientSecret)

		httpReq, err := http.NewRequest(http.MethodPost, p.tokenURL, strings.NewReader(form.Encode()))
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return httpReq, nil
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return "", fmt.Errorf("%w: %v", imagery.ErrAuthentication, err)
	}
	defer resp.Body.Close()

	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("%w: token response: %v", imagery.ErrParse, err)
	}
	if payload.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", imagery.ErrAuthentication)
	}
	return payload.AccessToken, nil
}

func (p *SentinelProvider) searchScenes(ctx context.Context, token string, req imagery.ImageRequest) ([]imagery.Scene, error) {
	from, to := imagery.Window(imagery.DayOf(req.Date))
	body := map[string]any{
		"bbox":        p.bbox(req),
		"datetime":    fmt.Sprintf("%s/%s", from.Format(time.RFC3339), to.Add(24*time.Hour-time.Second).Format(time.RFC3339)),
		"collections": []string{p.collection},
		"limit":       catalogSceneLimit,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	buildRequest := func() (*http.Request, error) {
		httpReq, err := http.NewRequest(http.MethodPost, p.catalogURL, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Authorization", "Bearer "+token)
		httpReq.Header.Set("Content-Type", "application/json")
		return httpReq, nil
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", imagery.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	var result struct {
		Features []struct {
			ID         string `json:"id"`
			Properties struct {
				Datetime   string   `json:"datetime"`
				CloudCover *float64 `json:"eo:cloud_cover"`
				Platform   string   `json:"platform"`
			} `json:"properties"`
		} `json:"features"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: catalog response: %v", imagery.ErrParse, err)
	}

	scenes := make([]imagery.Scene, 0, len(result.Features))
	for _, f := range result.Features {
		ts, err := time.Parse(time.RFC3339, f.Properties.Datetime)
		if err != nil {
			return nil, fmt.Errorf("%w: scene %s datetime %q: %v", imagery.ErrParse, f.ID, f.Properties.Datetime, err)
		}
		scenes = append(scenes, imagery.Scene{
			ID:              f.ID,
			AcquisitionTime: ts,
			CloudCover:      f.Properties.CloudCover,
			Platform:        f.Properties.Platform,
		})
	}
	return scenes, nil
}

// bbox builds the small search box around the requested point, half the
// field of view in each direction.
func (p *SentinelProvider) bbox(req imagery.ImageRequest) [4]float64 {
	half := req.FOVDegrees / 2
	if half <= 0 {
		half = 0.05
	}
	return [4]float64{
		req.Longitude - half,
		req.Latitude - half,
		req.Longitude + half,
		req.Latitude + half,
	}
}
