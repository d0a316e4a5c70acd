package compositor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/i474232898/earth-imagery-service/internal/imagery"
	"github.com/i474232898/earth-imagery-service/internal/tile"
)

// encodedTile returns a 256x256 JPEG filled with the given color.
func encodedTile(t *testing.T, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, tile.Size, tile.Size))
	for y := 0; y < tile.Size; y++ {
		for x := 0; x < tile.Size; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encoding test tile: %v", err)
	}
	return buf.Bytes()
}

func decodeDims(t *testing.T, data []byte) (int, int) {
	t.Helper()
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decoding composite: %v", err)
	}
	return cfg.Width, cfg.Height
}

func TestGridSizeAndAsymmetry(t *testing.T) {
	center := tile.Coordinate{Zoom: 5, X: 10, Y: 10}

	cases := []struct {
		resolution           int
		perSide              int
		firstX, lastX        int
		firstY, lastY        int
	}{
		// Two tiles per side: no negative offset, extra tile on the
		// positive side.
		{512, 2, 10, 11, 10, 11},
		// Three per side: symmetric around the center.
		{768, 3, 9, 11, 9, 11},
		// Four per side: one back, two forward.
		{1024, 4, 9, 12, 9, 12},
	}

	for _, tc := range cases {
		grid := Grid(center, tc.resolution)
		if len(grid) != tc.perSide {
			t.Fatalf("resolution %d: %d rows, want %d", tc.resolution, len(grid), tc.perSide)
		}
		first := grid[0][0]
		last := grid[tc.perSide-1][tc.perSide-1]
		if first.X != tc.firstX || first.Y != tc.firstY {
			t.Fatalf("resolution %d: first tile (%d,%d), want (%d,%d)",
				tc.resolution, first.X, first.Y, tc.firstX, tc.firstY)
		}
		if last.X != tc.lastX || last.Y != tc.lastY {
			t.Fatalf("resolution %d: last tile (%d,%d), want (%d,%d)",
				tc.resolution, last.X, last.Y, tc.lastX, tc.lastY)
		}
	}
}

func TestGridWrapsAntimeridian(t *testing.T) {
	// Center on the last column at zoom 3 (size 8); the 3x3 grid's east
	// column must wrap to x=0.
	grid := Grid(tile.Coordinate{Zoom: 3, X: 7, Y: 3}, 768)
	if got := grid[1][2].X; got != 0 {
		t.Fatalf("east neighbor x = %d, want wrapped 0", got)
	}
	if got := grid[1][0].X; got != 6 {
		t.Fatalf("west neighbor x = %d, want 6", got)
	}
}

func TestComposeExactResolutions(t *testing.T) {
	tileBytes := encodedTile(t, color.RGBA{R: 40, G: 90, B: 60, A: 255})
	fetch := func(ctx context.Context, c tile.Coordinate) ([]byte, error) {
		return tileBytes, nil
	}
	center := tile.Coordinate{Zoom: 6, X: 20, Y: 20}

	for _, resolution := range []int{256, 512, 1024, 2048} {
		data, err := Compose(context.Background(), center, resolution, fetch)
		if err != nil {
			t.Fatalf("resolution %d: unexpected error: %v", resolution, err)
		}
		w, h := decodeDims(t, data)
		if w != resolution || h != resolution {
			t.Fatalf("resolution %d: output is %dx%d", resolution, w, h)
		}
	}
}

func TestComposeOddResolutionResizes(t *testing.T) {
	tileBytes := encodedTile(t, color.White)
	fetch := func(ctx context.Context, c tile.Coordinate) ([]byte, error) {
		return tileBytes, nil
	}

	// 600px needs a 3x3 grid (768px canvas) scaled down to exactly 600.
	data, err := Compose(context.Background(), tile.Coordinate{Zoom: 6, X: 20, Y: 20}, 600, fetch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w, h := decodeDims(t, data); w != 600 || h != 600 {
		t.Fatalf("output is %dx%d, want 600x600", w, h)
	}
}

func TestComposeSingleTilePassthrough(t *testing.T) {
	tileBytes := encodedTile(t, color.Black)
	fetch := func(ctx context.Context, c tile.Coordinate) ([]byte, error) {
		return tileBytes, nil
	}

	data, err := Compose(context.Background(), tile.Coordinate{Zoom: 2, X: 1, Y: 1}, 256, fetch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// At or below the native tile size the source bytes come back unresized
	// and untranscoded.
	if !bytes.Equal(data, tileBytes) {
		t.Fatal("single-tile output should be the source bytes unmodified")
	}
}

func TestComposeSubstitutesPlaceholderForFailedTile(t *testing.T) {
	tileBytes := encodedTile(t, color.RGBA{R: 10, G: 10, B: 120, A: 255})
	failing := tile.Coordinate{Zoom: 6, X: 20, Y: 20}
	fetch := func(ctx context.Context, c tile.Coordinate) ([]byte, error) {
		if c == failing {
			return nil, errors.New("boom")
		}
		return tileBytes, nil
	}

	data, err := Compose(context.Background(), failing, 1024, fetch)
	if err != nil {
		t.Fatalf("one failed tile must not abort the composite: %v", err)
	}
	if w, h := decodeDims(t, data); w != 1024 || h != 1024 {
		t.Fatalf("output is %dx%d, want 1024x1024", w, h)
	}
}

func TestComposePartialFailureChangesOutput(t *testing.T) {
	// Re-running with one upstream tile transiently failing yields a
	// different but still valid image: expected non-idempotence under
	// partial failure.
	tileBytes := encodedTile(t, color.RGBA{R: 200, G: 30, B: 30, A: 255})
	center := tile.Coordinate{Zoom: 6, X: 20, Y: 20}

	healthy := func(ctx context.Context, c tile.Coordinate) ([]byte, error) {
		return tileBytes, nil
	}
	degraded := func(ctx context.Context, c tile.Coordinate) ([]byte, error) {
		if c == center {
			return nil, errors.New("transient")
		}
		return tileBytes, nil
	}

	full, err := Compose(context.Background(), center, 512, healthy)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	partial, err := Compose(context.Background(), center, 512, degraded)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if bytes.Equal(full, partial) {
		t.Fatal("placeholder substitution should change the composite bytes")
	}

	// Determinism: identical inputs produce byte-identical composites.
	again, err := Compose(context.Background(), center, 512, healthy)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(full, again) {
		t.Fatal("composite must be byte-identical for identical tile bytes")
	}
}

func TestComposeAllTilesFailed(t *testing.T) {
	fetch := func(ctx context.Context, c tile.Coordinate) ([]byte, error) {
		return nil, fmt.Errorf("network down")
	}

	_, err := Compose(context.Background(), tile.Coordinate{Zoom: 6, X: 20, Y: 20}, 512, fetch)
	if !errors.Is(err, imagery.ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
}
