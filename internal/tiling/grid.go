// Package tiling partitions an image into a grid of crops and re-encodes
// each crop as an independent JPEG.
package tiling

import (
	"fmt"
	"strconv"
)

// Rect is one tile of the grid partition. X/Y are the top-left pixel
// coordinates of the region in the original image.
type Rect struct {
	X, Y int
	W, H int
}

// MemberName returns the archive member name for this tile. The name is a
// pure function of the tile origin so it is stable across encode ordering
// and across re-runs of the same job.
func (r Rect) MemberName() string {
	return fmt.Sprintf("crop_%d_%d.jpg", r.X, r.Y)
}

// CropSpec is the validated tile size requested by the caller.
type CropSpec struct {
	TileWidth  int
	TileHeight int
}

// ParseCropSpec parses and validates the raw tile dimension fields in one
// step. Non-numeric or non-positive values are rejected before any image
// processing happens.
func ParseCropSpec(widthField, heightField string) (CropSpec, error) {
	w, err := strconv.Atoi(widthField)
	if err != nil {
		return CropSpec{}, fmt.Errorf("tile width %q is not a whole number", widthField)
	}
	h, err := strconv.Atoi(heightField)
	if err != nil {
		return CropSpec{}, fmt.Errorf("tile height %q is not a whole number", heightField)
	}
	if w <= 0 || h <= 0 {
		return CropSpec{}, fmt.Errorf("tile dimensions must be positive, got %dx%d", w, h)
	}
	return CropSpec{TileWidth: w, TileHeight: h}, nil
}

// Plan partitions an imageW x imageH rectangle into tiles of at most
// tileW x tileH pixels, in row-major order (ascending y, then ascending x).
// Tiles in the rightmost column and bottom row are clamped to the remaining
// extent, so the result always covers the image exactly with no overlap.
// A tile size larger than the image yields a single full-image tile.
//
// All inputs must be positive; that is the caller's precondition.
func Plan(imageW, imageH, tileW, tileH int) []Rect {
	rects := make([]Rect, 0, ((imageW+tileW-1)/tileW)*((imageH+tileH-1)/tileH))
	for y := 0; y < imageH; y += tileH {
		h := tileH
		if y+h > imageH {
			h = imageH - y
		}
		for x := 0; x < imageW; x += tileW {
			w := tileW
			if x+w > imageW {
				w = imageW - x
			}
			rects = append(rects, Rect{X: x, Y: y, W: w, H: h})
		}
	}
	return rects
}
