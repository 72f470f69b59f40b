package archive

import (
	"archive/zip"
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"image-sizer-go/internal/domain/render"
)

func outputs() []render.Output {
	return []render.Output{
		{Filename: "b.png", ContentType: "image/png", Content: bytes.Repeat([]byte{1, 2, 3}, 1000)},
		{Filename: "a.ico", ContentType: "image/x-icon", Content: []byte("icon")},
		{Filename: "empty.png", ContentType: "image/png", Content: []byte{}},
	}
}

func TestZip_RoundTrip(t *testing.T) {
	in := outputs()
	data, err := Zip(in)
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	require.Len(t, zr.File, len(in))

	for i, f := range zr.File {
		assert.Equal(t, in[i].Filename, f.Name, "entry order follows outputs")
		assert.Equal(t, zip.Deflate, f.Method)

		rc, err := f.Open()
		require.NoError(t, err)
		got, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		assert.Equal(t, in[i].Content, got)
	}
}

func TestZip_Deterministic(t *testing.T) {
	a, err := Zip(outputs())
	require.NoError(t, err)
	b, err := Zip(outputs())
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestZip_Rejects(t *testing.T) {
	_, err := Zip(nil)
	assert.ErrorIs(t, err, ErrEmpty)

	dup := append(outputs(), render.Output{Filename: "b.png"})
	_, err = Zip(dup)
	assert.ErrorIs(t, err, ErrDuplicateFilename)

	_, err = Zip([]render.Output{{Content: []byte("x")}})
	assert.Error(t, err)
}

func TestBundle(t *testing.T) {
	out, err := Bundle(outputs())
	require.NoError(t, err)
	assert.Equal(t, Filename, out.Filename)
	assert.Equal(t, render.ContentTypeZip, out.ContentType)

	// a lone archive is delivered as is
	passed, err := Bundle([]render.Output{out})
	require.NoError(t, err)
	assert.Equal(t, out.Content, passed.Content)

	// a lone non-archive output is still zipped
	single, err := Bundle(outputs()[:1])
	require.NoError(t, err)
	assert.Equal(t, render.ContentTypeZip, single.ContentType)
	assert.NotEqual(t, outputs()[0].Content, single.Content)
}

func TestSingle(t *testing.T) {
	o, err := Single(outputs(), "a.ico")
	require.NoError(t, err)
	assert.Equal(t, []byte("icon"), o.Content)

	_, err = Single(outputs(), "missing.png")
	assert.ErrorIs(t, err, ErrNotFound)
}
