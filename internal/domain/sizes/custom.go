package sizes

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

const CustomPrefix = "custom-"

var (
	ErrNotCustom       = errors.New("not a custom size id")
	ErrMalformedCustom = errors.New("malformed custom size id")
	ErrOutOfRange      = errors.New("custom size out of range")
)

var customIDPattern = regexp.MustCompile(`^custom-([1-9][0-9]*)x([1-9][0-9]*)$`)

// CustomID formats the reserved id for a custom size.
func CustomID(w, h int) string {
	return fmt.Sprintf("%s%dx%d", CustomPrefix, w, h)
}

// ParseCustomID parses custom-<W>x<H>. Both values must lie in [1, MaxCustomDimension].
func ParseCustomID(id string) (w, h int, err error) {
	if len(id) < len(CustomPrefix) || id[:len(CustomPrefix)] != CustomPrefix {
		return 0, 0, ErrNotCustom
	}

	m := customIDPattern.FindStringSubmatch(id)
	if m == nil {
		if isZeroDimension(id) {
			return 0, 0, fmt.Errorf("%w: %s", ErrOutOfRange, id)
		}
		return 0, 0, fmt.Errorf("%w: %s", ErrMalformedCustom, id)
	}

	// digit runs longer than an int are out of range too
	w, errW := strconv.Atoi(m[1])
	h, errH := strconv.Atoi(m[2])
	if errW != nil || errH != nil || w > MaxCustomDimension || h > MaxCustomDimension {
		return 0, 0, fmt.Errorf("%w: %s", ErrOutOfRange, id)
	}
	return w, h, nil
}

var zeroDimensionPattern = regexp.MustCompile(`^custom-(0+x[0-9]+|[0-9]+x0+)$`)

func isZeroDimension(id string) bool {
	return zeroDimensionPattern.MatchString(id)
}

// NewCustomSpec synthesizes the png spec for a custom size.
func NewCustomSpec(w, h int) (SizeSpec, error) {
	if w < 1 || h < 1 || w > MaxCustomDimension || h > MaxCustomDimension {
		return SizeSpec{}, fmt.Errorf("%w: %dx%d", ErrOutOfRange, w, h)
	}
	return SizeSpec{
		ID:       CustomID(w, h),
		Label:    fmt.Sprintf("Custom %dx%d", w, h),
		Width:    w,
		Height:   h,
		Format:   FormatPNG,
		Filename: fmt.Sprintf("custom-%dx%d.png", w, h),
		Category: CategoryCustom,
	}, nil
}
