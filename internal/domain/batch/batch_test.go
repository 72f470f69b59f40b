package batch

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"image-sizer-go/internal/domain/archive"
	domainimage "image-sizer-go/internal/domain/image"
	"image-sizer-go/internal/domain/ico"
	"image-sizer-go/internal/domain/render"
	"image-sizer-go/internal/domain/sizes"
	perrors "image-sizer-go/internal/platform/errors"
	ptesting "image-sizer-go/internal/platform/testing"
)

func newEngine(t *testing.T) *Engine {
	t.Helper()
	cfg := ptesting.SetupTestConfig(t)
	logger := ptesting.SetupTestLogger(t).Legacy()
	pipeline, err := domainimage.NewPipeline(domainimage.Options{Security: &cfg.Security, Logger: logger})
	require.NoError(t, err)
	engine, err := NewEngine(EngineOptions{Pipeline: pipeline, Logger: logger})
	require.NoError(t, err)
	return engine
}

func pngSpec(id string, w, h int) sizes.SizeSpec {
	return sizes.SizeSpec{ID: id, Label: "Label " + id, Width: w, Height: h, Format: sizes.FormatPNG, Filename: id + ".png"}
}

func source(t *testing.T, w, h int) []byte {
	return ptesting.PNGBytes(t, ptesting.Gradient(w, h))
}

func TestRun_EndToEnd(t *testing.T) {
	engine := newEngine(t)
	specs := []sizes.SizeSpec{
		pngSpec("icon-512", 512, 512),
		{ID: "favicon", Label: "Favicon", Width: 48, Height: 48, Format: sizes.FormatICO, Filename: "favicon.ico", IconResolutions: []int{16, 32, 48}},
	}

	result, err := engine.NewBatch().Run(context.Background(), source(t, 2000, 2000), specs)
	require.NoError(t, err)
	require.Len(t, result.Outputs, 2)
	assert.Equal(t, 0, result.Failed)
	assert.Empty(t, result.Warnings)

	img, err := png.Decode(bytes.NewReader(result.Outputs[0].Content))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 512, 512), img.Bounds())

	assert.Equal(t, ico.ContentType, result.Outputs[1].ContentType)
	entries, err := ico.Parse(result.Outputs[1].Content)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	for i, n := range []int{16, 32, 48} {
		assert.Equal(t, n, entries[i].Width)
	}

	bundle, err := archive.Bundle(result.Outputs)
	require.NoError(t, err)
	zr, err := zip.NewReader(bytes.NewReader(bundle.Content), int64(len(bundle.Content)))
	require.NoError(t, err)
	require.Len(t, zr.File, 2)
	assert.Equal(t, "icon-512.png", zr.File[0].Name)
	assert.Equal(t, "favicon.ico", zr.File[1].Name)
}

func TestRun_PartialFailureKeepsOrder(t *testing.T) {
	engine := newEngine(t)
	failing := render.NewRenderer(render.ImagingResampler{}, render.EncoderFunc(func(w io.Writer, img image.Image) error {
		if img.Bounds().Dx() == 33 {
			return errors.New("encode refused")
		}
		return png.Encode(w, img)
	}))

	specs := []sizes.SizeSpec{
		pngSpec("1", 10, 10),
		pngSpec("2", 20, 20),
		pngSpec("3", 33, 33),
		pngSpec("4", 40, 40),
		pngSpec("5", 50, 50),
	}

	var outputs []string
	result, err := engine.NewBatch(
		WithRenderer(failing),
		WithOutput(func(o render.Output) { outputs = append(outputs, o.SpecID) }),
	).Run(context.Background(), source(t, 100, 100), specs)
	require.NoError(t, err)

	var ids []string
	for _, o := range result.Outputs {
		ids = append(ids, o.SpecID)
	}
	assert.Equal(t, []string{"1", "2", "4", "5"}, ids)
	assert.Equal(t, ids, outputs)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "3", result.Failures[0].SpecID)
	assert.Contains(t, result.Failures[0].Reason, "encode refused")
}

func TestRun_ICOMemberFailureFailsOnlyThatSpec(t *testing.T) {
	engine := newEngine(t)
	failing := render.NewRenderer(nil, render.EncoderFunc(func(w io.Writer, img image.Image) error {
		if img.Bounds().Dx() == 32 {
			return errors.New("no 32")
		}
		return png.Encode(w, img)
	}))

	specs := []sizes.SizeSpec{
		{ID: "ico", Label: "ico", Width: 48, Height: 48, Format: sizes.FormatICO, Filename: "f.ico", IconResolutions: []int{16, 32, 48}},
		pngSpec("after", 20, 20),
	}
	result, err := engine.NewBatch(WithRenderer(failing)).Run(context.Background(), source(t, 64, 64), specs)
	require.NoError(t, err)
	require.Len(t, result.Outputs, 1)
	assert.Equal(t, "after", result.Outputs[0].SpecID)
	assert.Equal(t, 1, result.Failed)
}

func TestRun_Progress(t *testing.T) {
	engine := newEngine(t)
	specs := []sizes.SizeSpec{pngSpec("a", 8, 8), pngSpec("b", 9, 9), pngSpec("c", 10, 10)}

	var reports []Progress
	yields := 0
	_, err := engine.NewBatch(
		WithProgress(func(p Progress) { reports = append(reports, p) }),
		WithYield(func() { yields++ }),
	).Run(context.Background(), source(t, 32, 32), specs)
	require.NoError(t, err)

	assert.Equal(t, []Progress{
		{Completed: 0, Total: 3, CurrentLabel: "Label a"},
		{Completed: 1, Total: 3, CurrentLabel: "Label b"},
		{Completed: 2, Total: 3, CurrentLabel: "Label c"},
		{Completed: 3, Total: 3, CurrentLabel: DoneLabel},
	}, reports)
	assert.Equal(t, 2, yields)
}

func TestRun_StateMachine(t *testing.T) {
	engine := newEngine(t)
	b := engine.NewBatch()
	assert.Equal(t, StateIdle, b.State())

	var seen []State
	b.onProgress = func(Progress) { seen = append(seen, b.State()) }

	_, err := b.Run(context.Background(), source(t, 16, 16), []sizes.SizeSpec{pngSpec("a", 4, 4)})
	require.NoError(t, err)
	assert.Equal(t, StateComplete, b.State())
	assert.Equal(t, []State{StateRendering, StateRendering}, seen)

	_, err = b.Run(context.Background(), source(t, 16, 16), []sizes.SizeSpec{pngSpec("a", 4, 4)})
	assert.ErrorIs(t, err, ErrAlreadyRun)
	assert.Equal(t, StateComplete, b.State())
}

func TestRun_FatalErrors(t *testing.T) {
	engine := newEngine(t)

	b := engine.NewBatch()
	_, err := b.Run(context.Background(), source(t, 16, 16), nil)
	assert.ErrorIs(t, err, ErrNoSpecs)
	assert.True(t, perrors.IsKind(err, perrors.KindDomain))
	assert.Equal(t, StateFailed, b.State())

	b = engine.NewBatch()
	_, err = b.Run(context.Background(), []byte("not an image"), []sizes.SizeSpec{pngSpec("a", 4, 4)})
	assert.ErrorIs(t, err, ErrUndecodable)
	assert.True(t, perrors.IsKind(err, perrors.KindDecode))
	assert.Equal(t, StateFailed, b.State())
}

func TestRun_NoOutputs(t *testing.T) {
	engine := newEngine(t)
	broken := render.NewRenderer(nil, render.EncoderFunc(func(io.Writer, image.Image) error {
		return errors.New("nope")
	}))

	b := engine.NewBatch(WithRenderer(broken))
	result, err := b.Run(context.Background(), source(t, 16, 16), []sizes.SizeSpec{pngSpec("a", 4, 4), pngSpec("b", 5, 5)})
	require.ErrorIs(t, err, ErrNoOutputs)
	assert.False(t, errors.Is(err, ErrNoSpecs))
	require.NotNil(t, result)
	assert.Equal(t, 2, result.Failed)
	assert.Equal(t, StateFailed, b.State())
}

func TestRun_CancelledBetweenItems(t *testing.T) {
	engine := newEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rendered := 0
	b := engine.NewBatch(WithOutput(func(render.Output) {
		rendered++
		if rendered == 2 {
			cancel()
		}
	}))

	specs := []sizes.SizeSpec{pngSpec("a", 4, 4), pngSpec("b", 5, 5), pngSpec("c", 6, 6), pngSpec("d", 7, 7)}
	_, err := b.Run(ctx, source(t, 16, 16), specs)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, rendered)
	assert.Equal(t, StateFailed, b.State())
}

func TestRun_DeadlineIsTimeoutKind(t *testing.T) {
	engine := newEngine(t)
	ctx, cancel := context.WithTimeout(context.Background(), 0)
	defer cancel()

	_, err := engine.NewBatch().Run(ctx, source(t, 16, 16), []sizes.SizeSpec{pngSpec("a", 4, 4)})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, perrors.IsKind(err, perrors.KindTimeout))
}

func TestRun_SmallSourceWarns(t *testing.T) {
	engine := newEngine(t)
	result, err := engine.NewBatch().Run(context.Background(), source(t, 100, 50), []sizes.SizeSpec{pngSpec("a", 4, 4)})
	require.NoError(t, err)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "100x50")
	assert.Equal(t, 100, result.SourceWidth)
	assert.Equal(t, "png", result.SourceFormat)
}

func TestRun_Idempotent(t *testing.T) {
	engine := newEngine(t)
	src := source(t, 300, 200)
	specs := []sizes.SizeSpec{pngSpec("a", 64, 64)}

	first, err := engine.NewBatch().Run(context.Background(), src, specs)
	require.NoError(t, err)
	second, err := engine.NewBatch().Run(context.Background(), src, specs)
	require.NoError(t, err)
	assert.Equal(t, first.Outputs[0].Content, second.Outputs[0].Content)
}
