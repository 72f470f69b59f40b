// Package archive bundles rendered outputs into a single download.
package archive

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"time"

	"image-sizer-go/internal/domain/render"
)

// Filename is the name offered for a bundled download.
const Filename = "resized-images.zip"

var (
	ErrEmpty             = errors.New("archive: no outputs")
	ErrDuplicateFilename = errors.New("archive: duplicate filename")
	ErrNotFound          = errors.New("archive: no output with that filename")
)

// entryTime is stamped on every entry so identical outputs give identical archives.
var entryTime = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

// Zip writes outputs as deflate entries in order. Filenames must be unique.
func Zip(outputs []render.Output) ([]byte, error) {
	if len(outputs) == 0 {
		return nil, ErrEmpty
	}

	seen := make(map[string]struct{}, len(outputs))
	for _, o := range outputs {
		if o.Filename == "" {
			return nil, fmt.Errorf("archive: output without filename")
		}
		if _, dup := seen[o.Filename]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateFilename, o.Filename)
		}
		seen[o.Filename] = struct{}{}
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, o := range outputs {
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     o.Filename,
			Method:   zip.Deflate,
			Modified: entryTime,
		})
		if err != nil {
			return nil, fmt.Errorf("archive: add %s: %w", o.Filename, err)
		}
		if _, err := w.Write(o.Content); err != nil {
			return nil, fmt.Errorf("archive: write %s: %w", o.Filename, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("archive: finalize: %w", err)
	}
	return buf.Bytes(), nil
}

// Bundle returns the single download for outputs. A lone output that is already
// a zip is passed through untouched.
func Bundle(outputs []render.Output) (render.Output, error) {
	if len(outputs) == 1 && outputs[0].ContentType == render.ContentTypeZip {
		return outputs[0], nil
	}

	data, err := Zip(outputs)
	if err != nil {
		return render.Output{}, err
	}
	return render.Output{
		Filename:    Filename,
		ContentType: render.ContentTypeZip,
		Content:     data,
	}, nil
}

// Single finds one output for direct download.
func Single(outputs []render.Output, filename string) (render.Output, error) {
	for _, o := range outputs {
		if o.Filename == filename {
			return o, nil
		}
	}
	return render.Output{}, fmt.Errorf("%w: %s", ErrNotFound, filename)
}
