package render

import (
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
	"golang.org/x/image/draw"
)

// Resampler scales a rectangle of src into a new w×h buffer with a Lanczos-class filter.
// crop is expressed in src coordinates.
type Resampler interface {
	Name() string
	Resample(src image.Image, crop image.Rectangle, w, h int) (*image.NRGBA, error)
}

const (
	ResamplerImaging = "imaging"
	ResamplerNfnt    = "nfnt"
	ResamplerXDraw   = "xdraw"
)

// NewResampler returns the adapter registered under name.
func NewResampler(name string) (Resampler, error) {
	switch name {
	case ResamplerImaging, "":
		return ImagingResampler{}, nil
	case ResamplerNfnt:
		return NfntResampler{}, nil
	case ResamplerXDraw:
		return XDrawResampler{}, nil
	default:
		return nil, fmt.Errorf("unknown resampler %q", name)
	}
}

func checkArgs(src image.Image, crop image.Rectangle, w, h int) error {
	if w <= 0 || h <= 0 {
		return fmt.Errorf("invalid target size %dx%d", w, h)
	}
	if crop.Empty() || !crop.In(src.Bounds()) {
		return fmt.Errorf("crop %v outside source bounds %v", crop, src.Bounds())
	}
	return nil
}

// ImagingResampler uses disintegration/imaging with its Lanczos (a=3) filter.
type ImagingResampler struct{}

func (ImagingResampler) Name() string { return ResamplerImaging }

func (ImagingResampler) Resample(src image.Image, crop image.Rectangle, w, h int) (*image.NRGBA, error) {
	if err := checkArgs(src, crop, w, h); err != nil {
		return nil, err
	}
	return imaging.Resize(imaging.Crop(src, crop), w, h, imaging.Lanczos), nil
}

// NfntResampler uses nfnt/resize with Lanczos3.
type NfntResampler struct{}

func (NfntResampler) Name() string { return ResamplerNfnt }

func (NfntResampler) Resample(src image.Image, crop image.Rectangle, w, h int) (*image.NRGBA, error) {
	if err := checkArgs(src, crop, w, h); err != nil {
		return nil, err
	}
	scaled := resize.Resize(uint(w), uint(h), imaging.Crop(src, crop), resize.Lanczos3)
	return imaging.Clone(scaled), nil
}

// lanczos3 is the a=3 Lanczos window for x/image/draw.
var lanczos3 = &draw.Kernel{
	Support: 3,
	At: func(t float64) float64 {
		if t == 0 {
			return 1
		}
		if t >= 3 {
			return 0
		}
		pt := math.Pi * t
		return 3 * math.Sin(pt) * math.Sin(pt/3) / (pt * pt)
	},
}

// XDrawResampler uses golang.org/x/image/draw with a Lanczos-3 kernel.
type XDrawResampler struct{}

func (XDrawResampler) Name() string { return ResamplerXDraw }

func (XDrawResampler) Resample(src image.Image, crop image.Rectangle, w, h int) (*image.NRGBA, error) {
	if err := checkArgs(src, crop, w, h); err != nil {
		return nil, err
	}
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	lanczos3.Scale(dst, dst.Bounds(), src, crop, draw.Src, nil)
	return dst, nil
}
