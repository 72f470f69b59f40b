package sizes

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCustomID(t *testing.T) {
	tests := []struct {
		id      string
		w, h    int
		wantErr error
	}{
		{id: "custom-256x128", w: 256, h: 128},
		{id: "custom-1x1", w: 1, h: 1},
		{id: "custom-4096x4096", w: 4096, h: 4096},
		{id: "custom-0x10", wantErr: ErrOutOfRange},
		{id: "custom-10x0", wantErr: ErrOutOfRange},
		{id: "custom-4097x10", wantErr: ErrOutOfRange},
		{id: "custom-99999999999999999999x1", wantErr: ErrOutOfRange},
		{id: "custom-abcxdef", wantErr: ErrMalformedCustom},
		{id: "custom-016x16", wantErr: ErrMalformedCustom},
		{id: "custom-16X16", wantErr: ErrMalformedCustom},
		{id: "custom-16x16.png", wantErr: ErrMalformedCustom},
		{id: "custom-", wantErr: ErrMalformedCustom},
		{id: "favicon-32", wantErr: ErrNotCustom},
		{id: "", wantErr: ErrNotCustom},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			w, h, err := ParseCustomID(tt.id)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.w, w)
			assert.Equal(t, tt.h, h)
		})
	}
}

func TestCustomID_RoundTrip(t *testing.T) {
	for _, dims := range [][2]int{{1, 1}, {256, 128}, {4096, 7}} {
		w, h, err := ParseCustomID(CustomID(dims[0], dims[1]))
		require.NoError(t, err)
		assert.Equal(t, dims[0], w)
		assert.Equal(t, dims[1], h)
	}
}

func TestNewCustomSpec(t *testing.T) {
	s, err := NewCustomSpec(256, 128)
	require.NoError(t, err)

	assert.Equal(t, "custom-256x128", s.ID)
	assert.Equal(t, "Custom 256x128", s.Label)
	assert.Equal(t, "custom-256x128.png", s.Filename)
	assert.Equal(t, CategoryCustom, s.Category)
	assert.Equal(t, FormatPNG, s.Format)
	assert.False(t, s.Maskable)
	assert.NoError(t, s.Validate())

	_, err = NewCustomSpec(0, 5)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestBuiltinCatalog(t *testing.T) {
	c := Builtin()
	require.Greater(t, c.Len(), 0)

	ico, ok := c.Lookup("favicon-ico")
	require.True(t, ok)
	assert.Equal(t, FormatICO, ico.Format)
	assert.Equal(t, []int{16, 32, 48}, ico.IconResolutions)
	assert.Equal(t, "image/x-icon", ico.ContentType())

	// callers cannot mutate the catalog through returned specs
	ico.IconResolutions[0] = 999
	again, _ := c.Lookup("favicon-ico")
	assert.Equal(t, 16, again.IconResolutions[0])

	_, ok = c.Lookup("nope")
	assert.False(t, ok)

	for _, cat := range c.Categories() {
		specs, ok := c.ByCategory(cat.ID)
		assert.True(t, ok)
		assert.NotEmpty(t, specs, "category %s has no presets", cat.ID)
	}

	_, ok = c.ByCategory("unknown")
	assert.False(t, ok)
}

func TestNewCatalog_Rejects(t *testing.T) {
	cats := []Category{{ID: "a", Label: "A"}}
	base := SizeSpec{ID: "x", Label: "X", Width: 10, Height: 10, Format: FormatPNG, Filename: "x.png", Category: "a"}

	tests := []struct {
		name  string
		specs func() []SizeSpec
	}{
		{"duplicate id", func() []SizeSpec {
			b := base
			b.Filename = "y.png"
			return []SizeSpec{base, b}
		}},
		{"duplicate filename", func() []SizeSpec {
			b := base
			b.ID = "y"
			return []SizeSpec{base, b}
		}},
		{"reserved custom id", func() []SizeSpec {
			b := base
			b.ID = "custom-10x10"
			return []SizeSpec{b}
		}},
		{"unknown category", func() []SizeSpec {
			b := base
			b.Category = "zzz"
			return []SizeSpec{b}
		}},
		{"ico without resolutions", func() []SizeSpec {
			b := base
			b.Format = FormatICO
			return []SizeSpec{b}
		}},
		{"unknown format", func() []SizeSpec {
			b := base
			b.Format = "jpeg"
			return []SizeSpec{b}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCatalog(cats, tt.specs())
			assert.Error(t, err)
		})
	}
}

func TestLoad_ExtendsBuiltin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	content := `
categories:
  - id: print
    label: Print
sizes:
  - id: sticker
    label: Sticker
    width: 600
    height: 600
    format: png
    filename: sticker-600.png
    category: print
  - id: app-ico
    label: App icon
    width: 256
    height: 256
    format: ico
    filename: app.ico
    category: print
    icon_resolutions: [16, 32, 48, 256]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Builtin().Len()+2, c.Len())

	s, ok := c.Lookup("app-ico")
	require.True(t, ok)
	assert.Equal(t, []int{16, 32, 48, 256}, s.IconResolutions)

	specs, ok := c.ByCategory("print")
	require.True(t, ok)
	assert.Len(t, specs, 2)
}

func TestLoad_ConflictWithBuiltin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	content := `
sizes:
  - id: favicon-32
    label: dup
    width: 32
    height: 32
    format: png
    filename: dup.png
    category: favicon
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_EmptyPath(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Builtin().Len(), c.Len())
}
