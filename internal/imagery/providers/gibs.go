package providers

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/earth-imagery-service/internal/compositor"
	"github.com/i474232898/earth-imagery-service/internal/imagery"
	"github.com/i474232898/earth-imagery-service/internal/tile"
)

// GIBS WMTS XML structures for parsing capabilities.
type gibsCapabilities struct {
	XMLName  xml.Name     `xml:"Capabilities"`
	Contents gibsContents `xml:"Contents"`
}

type gibsContents struct {
	Layers []gibsLayer `xml:"Layer"`
}

type gibsLayer struct {
	Identifier string          `xml:"http://www.opengis.net/ows/1.1 Identifier"`
	Dimensions []gibsDimension `xml:"Dimension"`
}

type gibsDimension struct {
	Identifier string   `xml:"http://www.opengis.net/ows/1.1 Identifier"`
	Values     []string `xml:"Value"`
}

// GIBSProvider implements the imagery.Provider interface against the GIBS
// tiled mosaics. GIBS mosaics recent passes server-side, so every date/tile
// address resolves to some image: the nearest-date answer from the
// capabilities document is advisory metadata only, and tile fetches always
// carry the requested date.
type GIBSProvider struct {
	name            string
	layer           string
	capabilitiesURL string
	tileURL         string // sprintf: layer, date, zoom, y, x
	httpCfg         HTTPClientConfig
	circuit         *gobreaker.CircuitBreaker
}

// NewGIBSProvider constructs the provider for one GIBS layer. GIBS needs no
// credentials.
func NewGIBSProvider(client *http.Client, layer string) *GIBSProvider {
	return &GIBSProvider{
		name:            string(imagery.ProviderGIBS),
		layer:           layer,
		capabilitiesURL: "https://gibs.earthdata.nasa.gov/wmts/epsg3857/best/wmts.cgi?SERVICE=WMTS&REQUEST=GetCapabilities",
		tileURL:         "https://gibs.earthdata.nasa.gov/wmts/epsg3857/best/%s/default/%s/GoogleMapsCompatible_Level9/%d/%d/%d.jpg",
		httpCfg:         defaultHTTPConfig(client),
		circuit:         newCircuitBreaker("gibs"),
	}
}

func (p *GIBSProvider) Name() string {
	return p.name
}

// ResolveAvailability parses the layer's Time dimension out of the
// capabilities document and reports the entry nearest the requested date.
// The result is always available with the requested date resolved; the
// nearest actual acquisition travels as ClosestDate metadata and is never
// used to redirect the tile fetch.
func (p *GIBSProvider) ResolveAvailability(ctx context.Context, req imagery.ImageRequest) (imagery.AvailabilityResult, error) {
	dates, err := p.layerDates(ctx)
	if err != nil {
		return imagery.AvailabilityResult{}, &imagery.AvailabilityError{
			Provider: imagery.ProviderGIBS,
			Reason:   "capabilities query failed",
			Err:      err,
		}
	}

	day := imagery.DayOf(req.Date)
	result := imagery.AvailabilityResult{
		Provider:       imagery.ProviderGIBS,
		Available:      true,
		ResolvedDate:   &day,
		CandidateDates: imagery.WithinWindow(imagery.SortedUniqueDates(dates), day),
	}

	if nearest, ok := imagery.ClosestDate(dates, day); ok {
		nearestDay := imagery.DayOf(nearest)
		result.ClosestDate = &nearestDay
	}
	return result, nil
}

// FetchImage composites the tile grid covering the requested resolution.
// The date in every tile address is the requested date, not the resolver's
// nearest match.
func (p *GIBSProvider) FetchImage(ctx context.Context, req imagery.ImageRequest, date time.Time) ([]byte, string, error) {
	center, err := tile.PointToTile(req.Latitude, req.Longitude, req.Zoom())
	if err != nil {
		return nil, "", err
	}

	dateStr := imagery.DayOf(req.Date).Format(dateLayout)
	fetch := func(ctx context.Context, c tile.Coordinate) ([]byte, error) {
		return p.fetchTile(ctx, dateStr, c)
	}

	data, err := compositor.Compose(ctx, center, req.Resolution, fetch)
	if err != nil {
		return nil, "", err
	}
	return data, "image/jpeg", nil
}

// Probe checks that the capabilities document is reachable and lists our
// layer.
func (p *GIBSProvider) Probe(ctx context.Context) error {
	_, err := p.layerDates(ctx)
	return err
}

func (p *GIBSProvider) fetchTile(ctx context.Context, date string, c tile.Coordinate) ([]byte, error) {
	buildRequest := func() (*http.Request, error) {
		u := fmt.Sprintf(p.tileURL, p.layer, date, c.Zoom, c.Y, c.X)
		return http.NewRequest(http.MethodGet, u, nil)
	}

	data, _, err := fetchBytes(ctx, p.httpCfg, p.circuit, buildRequest)
	return data, err
}

func (p *GIBSProvider) layerDates(ctx context.Context) ([]time.Time, error) {
	buildRequest := func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, p.capabilitiesURL, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", imagery.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", imagery.ErrUpstreamUnavailable, err)
	}

	return parseTimeDimension(data, p.layer)
}

// parseTimeDimension extracts the comma-separated date list of the single
// "Time" dimension for one layer of a WMTS capabilities document.
func parseTimeDimension(doc []byte, layer string) ([]time.Time, error) {
	var caps gibsCapabilities
	if err := xml.Unmarshal(doc, &caps); err != nil {
		return nil, fmt.Errorf("%w: capabilities: %v", imagery.ErrParse, err)
	}

	for _, l := range caps.Contents.Layers {
		if l.Identifier != layer {
			continue
		}
		for _, dim := range l.Dimensions {
			if dim.Identifier != "Time" {
				continue
			}
			var dates []time.Time
			for _, value := range dim.Values {
				for _, entry := range strings.Split(value, ",") {
					entry = strings.TrimSpace(entry)
					if entry == "" {
						continue
					}
					d, err := time.Parse(dateLayout, entry)
					if err != nil {
						return nil, fmt.Errorf("%w: time dimension entry %q: %v", imagery.ErrParse, entry, err)
					}
					dates = append(dates, d)
				}
			}
			if len(dates) == 0 {
				return nil, fmt.Errorf("%w: layer %s has an empty time dimension", imagery.ErrNoImageryFound, layer)
			}
			return dates, nil
		}
		return nil, fmt.Errorf("%w: layer %s has no time dimension", imagery.ErrParse, layer)
	}
	return nil, fmt.Errorf("%w: layer %s not present in capabilities", imagery.ErrNoImageryFound, layer)
}
