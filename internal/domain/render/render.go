// Package render produces one encoded PNG per size spec.
package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/disintegration/imaging"

	"image-sizer-go/internal/domain/geometry"
	"image-sizer-go/internal/domain/sizes"
)

const ContentTypeZip = "application/zip"

// Output is one rendered file.
type Output struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Content     []byte `json:"-"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	SpecID      string `json:"specId,omitempty"`
	Label       string `json:"label,omitempty"`
}

// Background fills the area around a maskable icon's safe zone.
var Background = color.NRGBA{R: 255, G: 255, B: 255, A: 255}

// Encoder writes img as PNG.
type Encoder interface {
	Encode(w io.Writer, img image.Image) error
}

// PNGEncoder encodes through imaging with a fixed compression level.
type PNGEncoder struct {
	Level string
}

func (e PNGEncoder) Encode(w io.Writer, img image.Image) error {
	return imaging.Encode(w, img, imaging.PNG, imaging.PNGCompressionLevel(pngLevel(e.Level)))
}

// EncoderFunc adapts a function to Encoder.
type EncoderFunc func(w io.Writer, img image.Image) error

func (f EncoderFunc) Encode(w io.Writer, img image.Image) error {
	return f(w, img)
}

// Renderer renders a source image at a size spec. It holds no per-render state
// and may be shared between goroutines.
type Renderer struct {
	resampler Resampler
	encoder   Encoder
}

func NewRenderer(resampler Resampler, encoder Encoder) *Renderer {
	if resampler == nil {
		resampler = ImagingResampler{}
	}
	if encoder == nil {
		encoder = PNGEncoder{}
	}
	return &Renderer{resampler: resampler, encoder: encoder}
}

func (r *Renderer) Resampler() Resampler {
	return r.resampler
}

// Render produces the PNG output for a png spec.
func (r *Renderer) Render(src image.Image, spec sizes.SizeSpec) (Output, error) {
	if spec.Format != sizes.FormatPNG {
		return Output{}, fmt.Errorf("render %s: format %q is not a raster format", spec.ID, spec.Format)
	}

	img, err := r.Rasterize(src, spec.Width, spec.Height, spec.Maskable)
	if err != nil {
		return Output{}, fmt.Errorf("render %s: %w", spec.ID, err)
	}

	data, err := r.encode(img)
	if err != nil {
		return Output{}, fmt.Errorf("render %s: %w", spec.ID, err)
	}

	return Output{
		Filename:    spec.Filename,
		ContentType: spec.ContentType(),
		Content:     data,
		Width:       spec.Width,
		Height:      spec.Height,
		SpecID:      spec.ID,
		Label:       spec.Label,
	}, nil
}

// RenderSquare renders the cover plan at n×n and returns PNG bytes.
func (r *Renderer) RenderSquare(src image.Image, n int) ([]byte, error) {
	img, err := r.Rasterize(src, n, n, false)
	if err != nil {
		return nil, err
	}
	return r.encode(img)
}

// Rasterize resolves geometry and resamples without encoding.
func (r *Renderer) Rasterize(src image.Image, tw, th int, maskable bool) (*image.NRGBA, error) {
	if src == nil {
		return nil, fmt.Errorf("nil source image")
	}
	b := src.Bounds()
	plan := geometry.Resolve(b.Dx(), b.Dy(), tw, th, maskable)
	crop := plan.Source.Add(b.Min)

	inner, err := r.resampler.Resample(src, crop, plan.Inner.Dx(), plan.Inner.Dy())
	if err != nil {
		return nil, fmt.Errorf("resample: %w", err)
	}
	if !plan.Padded() {
		return inner, nil
	}

	canvas := imaging.New(plan.Canvas.Dx(), plan.Canvas.Dy(), Background)
	return imaging.Overlay(canvas, inner, plan.Inner.Min, 1.0), nil
}

func (r *Renderer) encode(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.encoder.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
