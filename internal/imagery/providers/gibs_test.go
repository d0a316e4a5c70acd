package providers

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/i474232898/earth-imagery-service/internal/imagery"
)

const capabilitiesDoc = `<?xml version="1.0" encoding="UTF-8"?>
<Capabilities xmlns="http://www.opengis.net/wmts/1.0" xmlns:ows="http://www.opengis.net/ows/1.1">
  <Contents>
    <Layer>
      <ows:Identifier>OtherLayer</ows:Identifier>
      <Dimension>
        <ows:Identifier>Time</ows:Identifier>
        <Value>2020-01-01</Value>
      </Dimension>
    </Layer>
    <Layer>
      <ows:Identifier>TrueColor</ows:Identifier>
      <Dimension>
        <ows:Identifier>Time</ows:Identifier>
        <Value>2024-01-01,2024-01-05,2024-01-10</Value>
      </Dimension>
    </Layer>
  </Contents>
</Capabilities>`

func gibsRequest(resolution int) imagery.ImageRequest {
	d, _ := time.Parse("2006-01-02", "2024-01-04")
	return imagery.ImageRequest{
		Latitude:   40.7128,
		Longitude:  -74.0060,
		Date:       d,
		FOVDegrees: 2,
		Resolution: resolution,
		Provider:   imagery.ProviderGIBS,
	}
}

func TestParseTimeDimension(t *testing.T) {
	dates, err := parseTimeDimension([]byte(capabilitiesDoc), "TrueColor")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(dates) != 3 {
		t.Fatalf("got %d dates, want 3", len(dates))
	}
	if dates[1].Format("2006-01-02") != "2024-01-05" {
		t.Fatalf("second date = %s, want 2024-01-05", dates[1].Format("2006-01-02"))
	}
}

func TestParseTimeDimensionUnknownLayer(t *testing.T) {
	_, err := parseTimeDimension([]byte(capabilitiesDoc), "NoSuchLayer")
	if !errors.Is(err, imagery.ErrNoImageryFound) {
		t.Fatalf("expected ErrNoImageryFound, got %v", err)
	}
}

func TestParseTimeDimensionMalformed(t *testing.T) {
	_, err := parseTimeDimension([]byte("<not-xml"), "TrueColor")
	if !errors.Is(err, imagery.ErrParse) {
		t.Fatalf("expected ErrParse, got %v", err)
	}
}

func TestGIBSResolveIsAdvisoryOnly(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(capabilitiesDoc))
	}))
	t.Cleanup(srv.Close)

	p := NewGIBSProvider(srv.Client(), "TrueColor")
	p.capabilitiesURL = srv.URL

	result, err := p.ResolveAvailability(context.Background(), gibsRequest(512))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The requested date is not in the time dimension, yet the result is
	// available for the requested date: the nearest acquisition is metadata
	// only and never redirects the tile fetch.
	if !result.Available {
		t.Fatal("expected available=true regardless of the nearest date")
	}
	if result.ResolvedDate == nil || result.ResolvedDate.Format("2006-01-02") != "2024-01-04" {
		t.Fatalf("resolved date = %v, want requested date", result.ResolvedDate)
	}
	if result.ClosestDate == nil || result.ClosestDate.Format("2006-01-02") != "2024-01-05" {
		t.Fatalf("closest = %v, want nearest list entry 2024-01-05", result.ClosestDate)
	}
	if len(result.CandidateDates) != 3 {
		t.Fatalf("candidates = %d, want all window entries", len(result.CandidateDates))
	}
}

func TestGIBSFetchImageComposites(t *testing.T) {
	tileImg := image.NewRGBA(image.Rect(0, 0, 256, 256))
	var tileBuf bytes.Buffer
	if err := jpeg.Encode(&tileBuf, tileImg, nil); err != nil {
		t.Fatalf("encoding test tile: %v", err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Every tile URL must carry the requested date, not the resolver's
		// nearest match.
		if !strings.Contains(r.URL.Path, "/2024-01-04/") {
			t.Errorf("tile path %s does not carry the requested date", r.URL.Path)
		}
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write(tileBuf.Bytes())
	}))
	t.Cleanup(srv.Close)

	p := NewGIBSProvider(srv.Client(), "TrueColor")
	p.tileURL = srv.URL + "/%s/default/%s/GoogleMapsCompatible_Level9/%d/%d/%d.jpg"

	req := gibsRequest(1024)
	data, contentType, err := p.FetchImage(context.Background(), req, req.Date)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if contentType != "image/jpeg" {
		t.Fatalf("content type = %s, want image/jpeg", contentType)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decoding composite: %v", err)
	}
	if cfg.Width != 1024 || cfg.Height != 1024 {
		t.Fatalf("output is %dx%d, want 1024x1024", cfg.Width, cfg.Height)
	}
}
