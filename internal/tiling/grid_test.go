package tiling

import (
	"testing"
)

func TestPlanEvenGrid(t *testing.T) {
	rects := Plan(100, 100, 50, 50)

	want := []Rect{
		{X: 0, Y: 0, W: 50, H: 50},
		{X: 50, Y: 0, W: 50, H: 50},
		{X: 0, Y: 50, W: 50, H: 50},
		{X: 50, Y: 50, W: 50, H: 50},
	}
	if len(rects) != len(want) {
		t.Fatalf("Plan(100,100,50,50) returned %d rects, want %d", len(rects), len(want))
	}
	for i, r := range rects {
		if r != want[i] {
			t.Errorf("rect[%d] = %+v, want %+v", i, r, want[i])
		}
	}
}

func TestPlanRemainderTiles(t *testing.T) {
	rects := Plan(100, 100, 60, 60)

	want := []Rect{
		{X: 0, Y: 0, W: 60, H: 60},
		{X: 60, Y: 0, W: 40, H: 60},
		{X: 0, Y: 60, W: 60, H: 40},
		{X: 60, Y: 60, W: 40, H: 40},
	}
	if len(rects) != len(want) {
		t.Fatalf("Plan(100,100,60,60) returned %d rects, want %d", len(rects), len(want))
	}
	for i, r := range rects {
		if r != want[i] {
			t.Errorf("rect[%d] = %+v, want %+v", i, r, want[i])
		}
	}
}

func TestPlanOversizedTileClampsToFullImage(t *testing.T) {
	rects := Plan(80, 60, 200, 300)

	if len(rects) != 1 {
		t.Fatalf("oversized tile should yield a single clamped rect, got %d", len(rects))
	}
	if got, want := rects[0], (Rect{X: 0, Y: 0, W: 80, H: 60}); got != want {
		t.Errorf("clamped rect = %+v, want %+v", got, want)
	}
}

// TestPlanPartition verifies the partition invariant across a spread of
// image and tile sizes: exact tile count, full coverage, no overlap, and
// every tile within its nominal size.
func TestPlanPartition(t *testing.T) {
	tests := []struct {
		name           string
		imageW, imageH int
		tileW, tileH   int
	}{
		{"square even", 100, 100, 50, 50},
		{"square remainder", 100, 100, 60, 60},
		{"single pixel tiles", 7, 5, 1, 1},
		{"single row", 100, 10, 30, 40},
		{"single column", 10, 100, 40, 30},
		{"prime dimensions", 97, 53, 16, 9},
		{"tile equals image", 64, 48, 64, 48},
		{"tile wider than image", 30, 90, 50, 20},
		{"tile taller than image", 90, 30, 20, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rects := Plan(tt.imageW, tt.imageH, tt.tileW, tt.tileH)

			cols := (tt.imageW + tt.tileW - 1) / tt.tileW
			rows := (tt.imageH + tt.tileH - 1) / tt.tileH
			if len(rects) != cols*rows {
				t.Fatalf("got %d rects, want ceil(%d/%d)*ceil(%d/%d) = %d",
					len(rects), tt.imageW, tt.tileW, tt.imageH, tt.tileH, cols*rows)
			}

			// Coverage and overlap: mark every covered pixel exactly once.
			covered := make([]bool, tt.imageW*tt.imageH)
			for _, r := range rects {
				if r.W < 1 || r.W > tt.tileW || r.H < 1 || r.H > tt.tileH {
					t.Fatalf("rect %+v outside 1..%dx1..%d", r, tt.tileW, tt.tileH)
				}
				if r.X < 0 || r.Y < 0 || r.X+r.W > tt.imageW || r.Y+r.H > tt.imageH {
					t.Fatalf("rect %+v exceeds image %dx%d", r, tt.imageW, tt.imageH)
				}
				for y := r.Y; y < r.Y+r.H; y++ {
					for x := r.X; x < r.X+r.W; x++ {
						idx := y*tt.imageW + x
						if covered[idx] {
							t.Fatalf("pixel (%d,%d) covered twice", x, y)
						}
						covered[idx] = true
					}
				}
			}
			for i, c := range covered {
				if !c {
					t.Fatalf("pixel (%d,%d) not covered", i%tt.imageW, i/tt.imageW)
				}
			}
		})
	}
}

func TestPlanRowMajorOrder(t *testing.T) {
	rects := Plan(97, 53, 16, 9)
	for i := 1; i < len(rects); i++ {
		prev, cur := rects[i-1], rects[i]
		if cur.Y < prev.Y || (cur.Y == prev.Y && cur.X <= prev.X) {
			t.Fatalf("rects not in row-major order: %+v before %+v", prev, cur)
		}
	}
}

func TestPlanBoundaryTilesShrinkOnlyOnRemainder(t *testing.T) {
	// 100 divides by 50: every tile full size.
	for _, r := range Plan(100, 100, 50, 50) {
		if r.W != 50 || r.H != 50 {
			t.Errorf("exact multiple should have no shrunk tiles, got %+v", r)
		}
	}
	// 100 does not divide by 60: right column and bottom row shrink.
	for _, r := range Plan(100, 100, 60, 60) {
		if r.X+60 > 100 && r.W != 100-r.X {
			t.Errorf("right-edge tile %+v not clamped", r)
		}
		if r.X+60 <= 100 && r.W != 60 {
			t.Errorf("interior tile %+v should be full width", r)
		}
	}
}

func TestMemberNameUniqueness(t *testing.T) {
	rects := Plan(97, 53, 16, 9)
	seen := make(map[string]Rect, len(rects))
	for _, r := range rects {
		name := r.MemberName()
		if prev, dup := seen[name]; dup {
			t.Fatalf("duplicate member name %q for %+v and %+v", name, prev, r)
		}
		seen[name] = r
	}

	if got, want := (Rect{X: 60, Y: 40, W: 10, H: 10}).MemberName(), "crop_60_40.jpg"; got != want {
		t.Errorf("MemberName() = %q, want %q", got, want)
	}
}

func TestPlanDeterministic(t *testing.T) {
	a := Plan(97, 53, 16, 9)
	b := Plan(97, 53, 16, 9)
	if len(a) != len(b) {
		t.Fatalf("plans differ in length: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("plans differ at %d: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestParseCropSpec(t *testing.T) {
	tests := []struct {
		name    string
		width   string
		height  string
		want    CropSpec
		wantErr bool
	}{
		{"valid", "50", "40", CropSpec{TileWidth: 50, TileHeight: 40}, false},
		{"zero width", "0", "40", CropSpec{}, true},
		{"negative height", "50", "-5", CropSpec{}, true},
		{"non-numeric width", "fifty", "40", CropSpec{}, true},
		{"empty height", "50", "", CropSpec{}, true},
		{"float width", "50.5", "40", CropSpec{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCropSpec(tt.width, tt.height)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseCropSpec(%q, %q) expected error, got %+v", tt.width, tt.height, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseCropSpec(%q, %q) unexpected error: %v", tt.width, tt.height, err)
			}
			if got != tt.want {
				t.Errorf("ParseCropSpec(%q, %q) = %+v, want %+v", tt.width, tt.height, got, tt.want)
			}
		})
	}
}
