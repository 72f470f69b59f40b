// Package sizes defines output size specifications and the preset catalog.
package sizes

import (
	"fmt"
)

type Format string

const (
	FormatPNG Format = "png"
	FormatICO Format = "ico"
)

// MaxCustomDimension bounds user supplied custom sizes.
const MaxCustomDimension = 4096

const CategoryCustom = "custom"

// SizeSpec is one requested output.
type SizeSpec struct {
	ID       string `json:"id" yaml:"id"`
	Label    string `json:"label" yaml:"label"`
	Width    int    `json:"width" yaml:"width"`
	Height   int    `json:"height" yaml:"height"`
	Format   Format `json:"format" yaml:"format"`
	Maskable bool   `json:"maskable,omitempty" yaml:"maskable,omitempty"`
	Filename string `json:"filename" yaml:"filename"`
	Category string `json:"category" yaml:"category"`
	// IconResolutions lists the square members of an ICO output, in order.
	IconResolutions []int `json:"iconResolutions,omitempty" yaml:"icon_resolutions,omitempty"`
}

// ContentType is the MIME type of the rendered output.
func (s SizeSpec) ContentType() string {
	if s.Format == FormatICO {
		return "image/x-icon"
	}
	return "image/png"
}

// Validate checks the structural invariants of a spec.
func (s SizeSpec) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("size spec without id")
	}
	if s.Filename == "" {
		return fmt.Errorf("size %q: empty filename", s.ID)
	}
	if s.Width <= 0 || s.Height <= 0 {
		return fmt.Errorf("size %q: non-positive dimensions %dx%d", s.ID, s.Width, s.Height)
	}

	switch s.Format {
	case FormatPNG:
	case FormatICO:
		if len(s.IconResolutions) == 0 {
			return fmt.Errorf("size %q: ico format requires icon resolutions", s.ID)
		}
		for _, n := range s.IconResolutions {
			if n <= 0 || n > MaxCustomDimension {
				return fmt.Errorf("size %q: icon resolution %d out of range", s.ID, n)
			}
		}
		if s.Maskable {
			return fmt.Errorf("size %q: maskable applies to png only", s.ID)
		}
	default:
		return fmt.Errorf("size %q: unknown format %q", s.ID, s.Format)
	}
	return nil
}
