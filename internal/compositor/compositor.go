// Package compositor assembles a single image of arbitrary resolution out of
// a provider's fixed-size native tile grid.
package compositor

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"sync"

	xdraw "golang.org/x/image/draw"

	"github.com/i474232898/earth-imagery-service/internal/imagery"
	"github.com/i474232898/earth-imagery-service/internal/tile"
)

// FetchFunc retrieves the encoded bytes of one tile. Implementations are
// provider-specific; the compositor only cares about success or failure.
type FetchFunc func(ctx context.Context, c tile.Coordinate) ([]byte, error)

// Grid returns the tile coordinates covering the requested output
// resolution, as rows top-to-bottom with columns left-to-right. The grid is
// centered on the given tile; even-sized grids carry their extra tile on the
// positive (east/south) side. X wraps across the antimeridian.
func Grid(center tile.Coordinate, resolution int) [][]tile.Coordinate {
	perSide := tilesPerSide(resolution)
	start := -((perSide - 1) / 2)
	size := 1 << center.Zoom

	rows := make([][]tile.Coordinate, perSide)
	for dy := 0; dy < perSide; dy++ {
		row := make([]tile.Coordinate, perSide)
		for dx := 0; dx < perSide; dx++ {
			row[dx] = tile.Coordinate{
				Zoom: center.Zoom,
				X:    ((center.X+start+dx)%size + size) % size,
				Y:    center.Y + start + dy,
			}
		}
		rows[dy] = row
	}
	return rows
}

func tilesPerSide(resolution int) int {
	return (resolution + tile.Size - 1) / tile.Size
}

// Compose produces an image of exactly resolution×resolution pixels centered
// on the given tile.
//
// At or below the native tile size the single tile's bytes are returned
// unresized. Above it, every tile of the covering grid is fetched
// concurrently; the compositor waits for all of them (a slow tile delays the
// composite, a failed one does not), substitutes an opaque white placeholder
// for each failure, stitches row-major, and resizes to the exact requested
// edge. Only a total failure — every tile failing — surfaces as an error.
func Compose(ctx context.Context, center tile.Coordinate, resolution int, fetch FetchFunc) ([]byte, error) {
	if resolution <= 0 {
		return nil, fmt.Errorf("resolution must be positive, got %d", resolution)
	}

	if resolution <= tile.Size {
		data, err := fetch(ctx, center)
		if err != nil {
			return nil, fmt.Errorf("%w: tile %s: %v", imagery.ErrUpstreamUnavailable, center, err)
		}
		return data, nil
	}

	grid := Grid(center, resolution)
	perSide := len(grid)

	// Fan-out: one fetch per tile, each writing its own slot.
	results := make([][][]byte, perSide)
	for i := range results {
		results[i] = make([][]byte, perSide)
	}

	var wg sync.WaitGroup
	for ri, row := range grid {
		for ci, coord := range row {
			wg.Add(1)
			go func(ri, ci int, coord tile.Coordinate) {
				defer wg.Done()
				data, err := fetch(ctx, coord)
				if err != nil {
					return // slot stays nil, placeholder below
				}
				results[ri][ci] = data
			}(ri, ci, coord)
		}
	}
	wg.Wait()

	canvasEdge := perSide * tile.Size
	canvas := image.NewRGBA(image.Rect(0, 0, canvasEdge, canvasEdge))

	stitched := 0
	for ri := 0; ri < perSide; ri++ {
		for ci := 0; ci < perSide; ci++ {
			dest := image.Rect(ci*tile.Size, ri*tile.Size, (ci+1)*tile.Size, (ri+1)*tile.Size)

			data := results[ri][ci]
			if data == nil {
				draw.Draw(canvas, dest, image.White, image.Point{}, draw.Src)
				continue
			}

			img, _, err := image.Decode(bytes.NewReader(data))
			if err != nil {
				draw.Draw(canvas, dest, image.White, image.Point{}, draw.Src)
				continue
			}

			draw.Draw(canvas, dest, img, img.Bounds().Min, draw.Src)
			stitched++
		}
	}

	if stitched == 0 {
		return nil, fmt.Errorf("%w: all %d tiles failed", imagery.ErrUpstreamUnavailable, perSide*perSide)
	}

	output := canvas
	if canvasEdge != resolution {
		output = image.NewRGBA(image.Rect(0, 0, resolution, resolution))
		xdraw.CatmullRom.Scale(output, output.Bounds(), canvas, canvas.Bounds(), xdraw.Src, nil)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, output, nil); err != nil {
		return nil, fmt.Errorf("encoding composite: %w", err)
	}
	return buf.Bytes(), nil
}
