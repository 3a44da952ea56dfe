package tiling

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"

	// Register decoders for the accepted source formats.
	_ "image/gif"
	_ "image/png"

	"github.com/rs/zerolog/log"
	"golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"
)

// JPEGQuality is the fixed quality for re-encoded tiles. It is a service
// constant rather than a request field so tile output size stays bounded.
const JPEGQuality = 80

// Source is a decoded request image. Immutable once decoded; safe to share
// across concurrent tile encodes.
type Source struct {
	Img    image.Image
	Format string
	Width  int
	Height int
}

// DecodeSource decodes the uploaded image bytes. The format is whatever
// the registered stdlib decoders recognise (JPEG, PNG, GIF).
func DecodeSource(data []byte) (*Source, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	b := img.Bounds()
	return &Source{
		Img:    img,
		Format: format,
		Width:  b.Dx(),
		Height: b.Dy(),
	}, nil
}

// Tile is one encoded crop ready for archiving.
type Tile struct {
	Rect Rect
	Name string
	Data []byte
}

// subImager is implemented by every image type the stdlib decoders produce.
type subImager interface {
	SubImage(r image.Rectangle) image.Image
}

// EncodeRegion extracts the given region from the source and re-encodes it
// as a JPEG at the fixed quality.
func EncodeRegion(src *Source, r Rect) ([]byte, error) {
	b := src.Img.Bounds()
	region := image.Rect(b.Min.X+r.X, b.Min.Y+r.Y, b.Min.X+r.X+r.W, b.Min.Y+r.Y+r.H)

	var crop image.Image
	if si, ok := src.Img.(subImager); ok {
		crop = si.SubImage(region)
	} else {
		// Rare decoders without SubImage: copy the region out.
		dst := image.NewNRGBA(image.Rect(0, 0, r.W, r.H))
		draw.Copy(dst, image.Point{}, src.Img, region, draw.Src, nil)
		crop = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, crop, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("encode tile at (%d,%d): %w", r.X, r.Y, err)
	}
	return buf.Bytes(), nil
}

// EncodeGrid encodes every rect from the plan and sends the results on out,
// running at most concurrency encodes at once. Completion order is not the
// plan order; consumers must not rely on it. The out channel is not closed
// here — the caller closes it after EncodeGrid returns.
//
// The first failing encode cancels the remaining work and is returned.
func EncodeGrid(ctx context.Context, src *Source, rects []Rect, concurrency int, out chan<- Tile) error {
	if concurrency <= 0 {
		concurrency = 1
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, r := range rects {
		g.Go(func() error {
			data, err := EncodeRegion(src, r)
			if err != nil {
				return err
			}
			select {
			case out <- Tile{Rect: r, Name: r.MemberName(), Data: data}:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	log.Debug().
		Int("tiles", len(rects)).
		Int("concurrency", concurrency).
		Msg("Tile encoding complete")
	return nil
}
