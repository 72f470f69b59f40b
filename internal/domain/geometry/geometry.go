// Package geometry computes where a source image lands on a target canvas.
//
// Every function is pure: no pixel access, no allocation beyond the returned plan.
package geometry

import (
	"image"
	"math"
)

// MaskableSafeZone is the fraction of each target dimension the content of a
// maskable icon occupies.
const MaskableSafeZone = 0.8

// Plan maps a crop of the source onto the target canvas.
//
// Source is the crop rectangle in source coordinates. Inner is the
// destination rectangle the crop is scaled into. Canvas is the full target.
// For a cover plan Inner equals Canvas.
type Plan struct {
	Source image.Rectangle
	Inner  image.Rectangle
	Canvas image.Rectangle
}

// Padded reports whether the plan leaves background visible around Inner.
func (p Plan) Padded() bool {
	return p.Inner != p.Canvas
}

// Resolve returns the maskable plan when maskable is set and the cover plan otherwise.
func Resolve(sw, sh, tw, th int, maskable bool) Plan {
	if maskable {
		return Maskable(sw, sh, tw, th)
	}
	return Cover(sw, sh, tw, th)
}

// Cover crops the source to the target aspect ratio, centered, so that
// scaling the crop fills tw×th without stretching.
func Cover(sw, sh, tw, th int) Plan {
	canvas := image.Rect(0, 0, max(tw, 1), max(th, 1))
	return Plan{
		Source: coverCrop(sw, sh, canvas.Dx(), canvas.Dy()),
		Inner:  canvas,
		Canvas: canvas,
	}
}

// Maskable centers an inner box of MaskableSafeZone×target and fills it with a cover crop.
func Maskable(sw, sh, tw, th int) Plan {
	tw, th = max(tw, 1), max(th, 1)
	iw := clamp(round(float64(tw)*MaskableSafeZone), 1, tw)
	ih := clamp(round(float64(th)*MaskableSafeZone), 1, th)
	ox := round(float64(tw-iw) / 2)
	oy := round(float64(th-ih) / 2)

	return Plan{
		Source: coverCrop(sw, sh, iw, ih),
		Inner:  image.Rect(ox, oy, ox+iw, oy+ih),
		Canvas: image.Rect(0, 0, tw, th),
	}
}

func coverCrop(sw, sh, tw, th int) image.Rectangle {
	sw, sh = max(sw, 1), max(sh, 1)

	// compare sw/sh against tw/th without division
	if sw*th > tw*sh {
		cw := clamp(round(float64(sh)*float64(tw)/float64(th)), 1, sw)
		x := clamp(round(float64(sw-cw)/2), 0, sw-cw)
		return image.Rect(x, 0, x+cw, sh)
	}

	ch := clamp(round(float64(sw)*float64(th)/float64(tw)), 1, sh)
	y := clamp(round(float64(sh-ch)/2), 0, sh-ch)
	return image.Rect(0, y, sw, y+ch)
}

// round is nearest-integer with halves away from zero.
func round(v float64) int {
	return int(math.Round(v))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
