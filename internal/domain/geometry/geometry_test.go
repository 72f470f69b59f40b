package geometry

import (
	"image"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCover(t *testing.T) {
	tests := []struct {
		name           string
		sw, sh, tw, th int
		want           image.Rectangle
	}{
		{"square to square", 2000, 2000, 512, 512, image.Rect(0, 0, 2000, 2000)},
		{"wide source", 1920, 1080, 512, 512, image.Rect(420, 0, 1500, 1080)},
		{"tall source", 1080, 1920, 512, 512, image.Rect(0, 420, 1080, 1500)},
		{"square to banner", 1000, 1000, 1200, 630, image.Rect(0, 238, 1000, 763)},
		{"same aspect", 2400, 1260, 1200, 630, image.Rect(0, 0, 2400, 1260)},
		{"half offset rounds away from zero", 4, 1, 1, 1, image.Rect(2, 0, 3, 1)},
		{"thin source clamps to one pixel", 1, 1000, 1000, 1, image.Rect(0, 500, 1, 501)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Cover(tt.sw, tt.sh, tt.tw, tt.th)
			assert.Equal(t, tt.want, p.Source)
			assert.Equal(t, image.Rect(0, 0, tt.tw, tt.th), p.Canvas)
			assert.Equal(t, p.Canvas, p.Inner)
			assert.False(t, p.Padded())
		})
	}
}

func TestCover_BoundsAndAspect(t *testing.T) {
	sources := [][2]int{{1, 1}, {7, 3}, {3, 7}, {640, 480}, {1024, 1024}, {4000, 100}, {100, 4000}, {1365, 2048}}
	targets := [][2]int{{16, 16}, {180, 180}, {1200, 630}, {630, 1200}, {1, 4096}, {4096, 1}, {1024, 500}}

	for _, s := range sources {
		for _, tg := range targets {
			sw, sh, tw, th := s[0], s[1], tg[0], tg[1]
			crop := Cover(sw, sh, tw, th).Source

			assert.True(t, crop.In(image.Rect(0, 0, sw, sh)), "crop %v outside %dx%d", crop, sw, sh)
			assert.GreaterOrEqual(t, crop.Dx(), 1)
			assert.GreaterOrEqual(t, crop.Dy(), 1)

			// one side is kept whole
			assert.True(t, crop.Dx() == sw || crop.Dy() == sh)

			// the other side is within rounding of the target aspect, unless clamped
			if crop.Dx() > 1 && crop.Dy() > 1 {
				got := float64(crop.Dx()) / float64(crop.Dy())
				want := float64(tw) / float64(th)
				tol := want/float64(crop.Dy()) + 1/float64(crop.Dy()) + want/float64(crop.Dx())
				assert.InDelta(t, want, got, math.Max(tol, 1e-9), "src %dx%d target %dx%d crop %v", sw, sh, tw, th, crop)
			}
		}
	}
}

func TestMaskable(t *testing.T) {
	p := Maskable(1000, 1000, 512, 512)

	assert.Equal(t, image.Rect(0, 0, 512, 512), p.Canvas)
	// 512*0.8 = 409.6 -> 410, offset (512-410)/2 = 51
	assert.Equal(t, image.Rect(51, 51, 461, 461), p.Inner)
	assert.Equal(t, image.Rect(0, 0, 1000, 1000), p.Source)
	assert.True(t, p.Padded())
}

func TestMaskable_Centered(t *testing.T) {
	targets := [][2]int{{192, 192}, {512, 512}, {48, 48}, {1200, 630}, {1, 1}, {3, 5}}

	for _, tg := range targets {
		tw, th := tg[0], tg[1]
		p := Maskable(640, 480, tw, th)

		assert.True(t, p.Inner.In(p.Canvas), "inner %v outside canvas %v", p.Inner, p.Canvas)
		assert.GreaterOrEqual(t, p.Inner.Dx(), 1)
		assert.GreaterOrEqual(t, p.Inner.Dy(), 1)

		left, right := p.Inner.Min.X, tw-p.Inner.Max.X
		top, bottom := p.Inner.Min.Y, th-p.Inner.Max.Y
		assert.LessOrEqual(t, abs(left-right), 1, "horizontal margins %d/%d", left, right)
		assert.LessOrEqual(t, abs(top-bottom), 1, "vertical margins %d/%d", top, bottom)

		// the inner box is covered exactly like a standalone cover render
		assert.Equal(t, Cover(640, 480, p.Inner.Dx(), p.Inner.Dy()).Source, p.Source)
	}
}

func TestResolve(t *testing.T) {
	assert.Equal(t, Cover(800, 600, 100, 100), Resolve(800, 600, 100, 100, false))
	assert.Equal(t, Maskable(800, 600, 100, 100), Resolve(800, 600, 100, 100, true))
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
