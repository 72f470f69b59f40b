package image

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	stdimage "image"
	"io"
	"sync/atomic"

	"image-sizer-go/internal/platform/config"
	"image-sizer-go/internal/utils"
)

var (
	// ErrUndecodable means the payload is not an image in a supported format.
	ErrUndecodable = errors.New("could not decode image")
	// ErrNoDimensions means the image decoded without usable dimensions.
	ErrNoDimensions = errors.New("could not read image dimensions")
	// ErrTooLarge means the payload exceeds a byte, dimension or pixel limit.
	ErrTooLarge = errors.New("image exceeds limits")
)

const defaultMaxFileSize = 20 << 20

// Pipeline reads, validates and decodes uploaded images.
type Pipeline struct {
	validator *SecurityValidator
	logger    *utils.Logger
	security  *config.SecurityConfig

	processed atomic.Int64
	failed    atomic.Int64
	incidents atomic.Int64
}

type Options struct {
	Security *config.SecurityConfig
	Logger   *utils.Logger
}

// Input describes an image payload.
type Input struct {
	Reader         io.Reader
	DeclaredFormat string
	Source         string
}

func NewPipeline(opts Options) (*Pipeline, error) {
	if opts.Security == nil {
		return nil, fmt.Errorf("security config is required")
	}
	if opts.Logger == nil {
		opts.Logger = utils.DefaultLogger
	}

	return &Pipeline{
		validator: NewSecurityValidator(opts.Security, opts.Logger),
		logger:    opts.Logger,
		security:  opts.Security,
	}, nil
}

// Ingest reads at most MaxFileSize bytes from the input and checks the header,
// format and dimension limits without decoding pixels.
func (p *Pipeline) Ingest(ctx context.Context, input Input) ([]byte, error) {
	if input.Reader == nil {
		return nil, fmt.Errorf("image reader is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	maxSize := p.security.MaxFileSize
	if maxSize <= 0 {
		maxSize = defaultMaxFileSize
	}

	limited := &io.LimitedReader{
		R: input.Reader,
		N: maxSize + 1,
	}

	raw, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("read image bytes: %w", err)
	}
	if limited.N <= 0 {
		p.failed.Add(1)
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, maxSize)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if validation := p.validator.ValidateBytes(raw, input.DeclaredFormat); !validation.IsValid {
		if input.Source != "" {
			p.logger.DebugTag("BATCH", "rejected %s: %v", input.Source, validation.Error)
		}
		return nil, p.reject(validation)
	}
	return raw, nil
}

// Decode validates raw and decodes it into a Source.
func (p *Pipeline) Decode(raw []byte, declaredFormat string) (*Source, error) {
	p.processed.Add(1)

	validation := p.validator.ValidateBytes(raw, declaredFormat)
	if !validation.IsValid {
		return nil, p.reject(validation)
	}

	img, format, err := stdimage.Decode(bytes.NewReader(raw))
	if err != nil {
		p.failed.Add(1)
		return nil, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}

	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		p.failed.Add(1)
		return nil, ErrNoDimensions
	}

	return &Source{
		Image:  img,
		Width:  b.Dx(),
		Height: b.Dy(),
		Format: format,
		Size:   int64(len(raw)),
	}, nil
}

func (p *Pipeline) reject(validation ValidationResult) error {
	p.failed.Add(1)
	if validation.SecurityRisk != "" {
		p.incidents.Add(1)
	}
	if validation.Error != nil {
		return validation.Error
	}
	return ErrUndecodable
}

// Metrics reports how many payloads were decoded and how many were turned away.
func (p *Pipeline) Metrics() Metrics {
	return Metrics{
		TotalProcessed:    p.processed.Load(),
		FailedValidations: p.failed.Load(),
		SecurityIncidents: p.incidents.Load(),
	}
}
