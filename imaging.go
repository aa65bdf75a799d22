package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"math"
	"runtime"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/errgroup"
)

// maxPixels bounds the decoded size of an upload (about 50 megapixels).
const maxPixels = 50_000_000

// ErrDecode is returned when an upload is not a readable image.
var ErrDecode = errors.New("decode image")

// DecodeImage decodes any registered raster format and returns the format name.
func DecodeImage(data []byte) (image.Image, string, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width*cfg.Height > maxPixels {
		return nil, "", fmt.Errorf("%w: unsupported size %dx%d", ErrDecode, cfg.Width, cfg.Height)
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return img, format, nil
}

// RenderTiles crops every tile out of src, scales it to its display size and
// encodes it as PNG. The result is indexed by tile ID.
func RenderTiles(ctx context.Context, src image.Image, tiles []Tile, layout Layout) ([][]byte, error) {
	w := max(1, int(math.Round(layout.TileWidth)))
	h := max(1, int(math.Round(layout.TileHeight)))

	out := make([][]byte, len(tiles))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for _, t := range tiles {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			dst := image.NewRGBA(image.Rect(0, 0, w, h))
			draw.CatmullRom.Scale(dst, dst.Bounds(), src, t.Source, draw.Src, nil)

			var buf bytes.Buffer
			if err := png.Encode(&buf, dst); err != nil {
				return fmt.Errorf("encode tile %d: %w", t.ID, err)
			}
			out[t.ID] = buf.Bytes()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
