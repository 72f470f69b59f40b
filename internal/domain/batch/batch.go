// Package batch renders one source image at every requested size.
package batch

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	domainimage "image-sizer-go/internal/domain/image"
	"image-sizer-go/internal/domain/ico"
	"image-sizer-go/internal/domain/render"
	"image-sizer-go/internal/domain/sizes"
	perrors "image-sizer-go/internal/platform/errors"
	"image-sizer-go/internal/platform/observability"
	"image-sizer-go/internal/utils"
)

// DoneLabel is the CurrentLabel of the final progress report.
const DoneLabel = "Done"

var (
	ErrNoSpecs      = errors.New("no sizes selected")
	ErrNoOutputs    = errors.New("no outputs produced")
	ErrUndecodable  = domainimage.ErrUndecodable
	ErrNoDimensions = domainimage.ErrNoDimensions
	ErrTooLarge     = domainimage.ErrTooLarge
	ErrAlreadyRun   = errors.New("batch already run")
)

type State int32

const (
	StateIdle State = iota
	StateDecoding
	StateRendering
	StateComplete
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDecoding:
		return "decoding"
	case StateRendering:
		return "rendering"
	case StateComplete:
		return "complete"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Progress is reported before each item and once after the last.
type Progress struct {
	Completed    int    `json:"completed"`
	Total        int    `json:"total"`
	CurrentLabel string `json:"currentLabel"`
}

// ItemFailure records a spec that could not be rendered.
type ItemFailure struct {
	SpecID string `json:"specId"`
	Label  string `json:"label"`
	Reason string `json:"reason"`
	Err    error  `json:"-"`
}

type Result struct {
	// Outputs follow the requested order, successes only.
	Outputs  []render.Output `json:"outputs"`
	Failed   int             `json:"failed"`
	Failures []ItemFailure   `json:"failures,omitempty"`
	Warnings []string        `json:"warnings,omitempty"`

	SourceWidth  int    `json:"sourceWidth"`
	SourceHeight int    `json:"sourceHeight"`
	SourceFormat string `json:"sourceFormat"`
}

// Engine builds batches that share a decoder and a renderer.
type Engine struct {
	pipeline *domainimage.Pipeline
	renderer *render.Renderer
	logger   *utils.Logger
}

type EngineOptions struct {
	Pipeline *domainimage.Pipeline
	Renderer *render.Renderer
	Logger   *utils.Logger
}

func NewEngine(opts EngineOptions) (*Engine, error) {
	if opts.Pipeline == nil {
		return nil, fmt.Errorf("image pipeline is required")
	}
	if opts.Renderer == nil {
		opts.Renderer = render.NewRenderer(nil, nil)
	}
	if opts.Logger == nil {
		opts.Logger = utils.DefaultLogger
	}
	return &Engine{pipeline: opts.Pipeline, renderer: opts.Renderer, logger: opts.Logger}, nil
}

// Renderer is the renderer batches use unless overridden.
func (e *Engine) Renderer() *render.Renderer {
	return e.renderer
}

type Option func(*Batch)

// WithProgress registers a progress callback. It runs on the batch goroutine.
func WithProgress(fn func(Progress)) Option {
	return func(b *Batch) { b.onProgress = fn }
}

// WithOutput is called with each output as soon as it is produced.
func WithOutput(fn func(render.Output)) Option {
	return func(b *Batch) { b.onOutput = fn }
}

// WithYield is called between items so cooperative callers can reschedule.
func WithYield(fn func()) Option {
	return func(b *Batch) { b.yield = fn }
}

// WithRenderer overrides the engine renderer for one batch.
func WithRenderer(r *render.Renderer) Option {
	return func(b *Batch) {
		if r != nil {
			b.renderer = r
		}
	}
}

// Batch is a one-shot run: Idle → Decoding → Rendering → Complete or Failed.
type Batch struct {
	state    atomic.Int32
	pipeline *domainimage.Pipeline
	renderer *render.Renderer
	logger   *utils.Logger

	onProgress func(Progress)
	onOutput   func(render.Output)
	yield      func()
}

func (e *Engine) NewBatch(opts ...Option) *Batch {
	b := &Batch{
		pipeline: e.pipeline,
		renderer: e.renderer,
		logger:   e.logger,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Batch) State() State {
	return State(b.state.Load())
}

func (b *Batch) advance(to State) {
	b.state.Store(int32(to))
}

// Run decodes source once and renders every spec in order.
//
// Decode failures, an empty spec list, cancellation and a run that produced no
// outputs are fatal. Individual spec failures are counted in the result.
// ctx is checked between items; an in-flight render is never interrupted.
func (b *Batch) Run(ctx context.Context, source []byte, specs []sizes.SizeSpec) (*Result, error) {
	if !b.state.CompareAndSwap(int32(StateIdle), int32(StateDecoding)) {
		return nil, ErrAlreadyRun
	}

	if len(specs) == 0 {
		b.advance(StateFailed)
		return nil, perrors.Wrap(perrors.KindDomain, "batch.run", "no sizes selected", ErrNoSpecs)
	}

	src, err := b.pipeline.Decode(source, "")
	if err != nil {
		b.advance(StateFailed)
		return nil, perrors.Wrap(perrors.KindDecode, "batch.decode", "could not decode source image", err)
	}

	return b.render(ctx, src, specs)
}

func (b *Batch) render(ctx context.Context, src *domainimage.Source, specs []sizes.SizeSpec) (*Result, error) {
	b.advance(StateRendering)

	result := &Result{
		Outputs:      make([]render.Output, 0, len(specs)),
		SourceWidth:  src.Width,
		SourceHeight: src.Height,
		SourceFormat: src.Format,
	}
	if advisory := src.Advisory(); advisory != "" {
		result.Warnings = append(result.Warnings, advisory)
	}

	total := len(specs)
	for i, spec := range specs {
		if err := ctx.Err(); err != nil {
			b.advance(StateFailed)
			return nil, cancelled(err)
		}
		if i > 0 && b.yield != nil {
			b.yield()
		}

		b.report(Progress{Completed: i, Total: total, CurrentLabel: spec.Label})

		out, err := b.renderOne(ctx, src, spec)
		if err != nil {
			result.Failed++
			result.Failures = append(result.Failures, ItemFailure{
				SpecID: spec.ID,
				Label:  spec.Label,
				Reason: err.Error(),
				Err:    err,
			})
			b.logger.WarnTag("BATCH", "size %s failed: %v", spec.ID, err)
			continue
		}

		result.Outputs = append(result.Outputs, out)
		if b.onOutput != nil {
			b.onOutput(out)
		}
	}

	b.report(Progress{Completed: total, Total: total, CurrentLabel: DoneLabel})

	if len(result.Outputs) == 0 {
		b.advance(StateFailed)
		return result, perrors.Wrap(perrors.KindRender, "batch.run", "every size failed", ErrNoOutputs)
	}

	b.advance(StateComplete)
	b.logger.InfoTag("BATCH", "rendered %d of %d sizes from %dx%d %s",
		len(result.Outputs), total, src.Width, src.Height, src.Format)
	return result, nil
}

func (b *Batch) renderOne(ctx context.Context, src *domainimage.Source, spec sizes.SizeSpec) (out render.Output, err error) {
	start := time.Now()
	_, end := observability.StartSpan(ctx, "batch", "render."+spec.ID)
	defer func() {
		end(err)
		observability.RecordMetric(ctx, "batch.item_duration_ms",
			float64(time.Since(start).Microseconds())/1000,
			map[string]string{"spec": spec.ID, "format": string(spec.Format)})
	}()

	switch spec.Format {
	case sizes.FormatICO:
		data, err := ico.Pack(spec.IconResolutions, func(n int) ([]byte, error) {
			return b.renderer.RenderSquare(src.Image, n)
		})
		if err != nil {
			return render.Output{}, err
		}
		return render.Output{
			Filename:    spec.Filename,
			ContentType: ico.ContentType,
			Content:     data,
			Width:       spec.Width,
			Height:      spec.Height,
			SpecID:      spec.ID,
			Label:       spec.Label,
		}, nil
	case sizes.FormatPNG:
		return b.renderer.Render(src.Image, spec)
	default:
		return render.Output{}, fmt.Errorf("unsupported format %q", spec.Format)
	}
}

func (b *Batch) report(p Progress) {
	if b.onProgress != nil {
		b.onProgress(p)
	}
}

func cancelled(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return perrors.Wrap(perrors.KindTimeout, "batch.run", "deadline exceeded", err)
	}
	return perrors.Wrap(perrors.KindDomain, "batch.run", "cancelled", err)
}
