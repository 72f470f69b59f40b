package ico

import (
	"bytes"
	"encoding/binary"
	"errors"
	"image"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func squarePNG(t *testing.T) RenderFunc {
	return func(n int) ([]byte, error) {
		var buf bytes.Buffer
		if err := png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, n, n))); err != nil {
			t.Fatalf("encode: %v", err)
		}
		return buf.Bytes(), nil
	}
}

func TestPack_RoundTrip(t *testing.T) {
	render := squarePNG(t)
	data, err := Pack([]int{16, 32, 48}, render)
	require.NoError(t, err)

	// header
	assert.Equal(t, uint16(0), binary.LittleEndian.Uint16(data[0:]))
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(data[2:]))
	assert.Equal(t, uint16(3), binary.LittleEndian.Uint16(data[4:]))

	entries, err := Parse(data)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	offset := headerSize + 3*entrySize
	for i, n := range []int{16, 32, 48} {
		want, _ := render(n)
		assert.Equal(t, n, entries[i].Width)
		assert.Equal(t, n, entries[i].Height)
		assert.Equal(t, 32, entries[i].BitsPerPixel)
		assert.Equal(t, offset, entries[i].Offset)
		assert.Equal(t, want, entries[i].Data)
		offset += len(want)

		// raw directory bytes
		raw := data[headerSize+i*entrySize:]
		assert.Equal(t, byte(n), raw[0])
		assert.Equal(t, byte(n), raw[1])
		assert.Equal(t, byte(0), raw[2])
		assert.Equal(t, byte(0), raw[3])
		assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(raw[4:]))
		assert.Equal(t, uint16(32), binary.LittleEndian.Uint16(raw[6:]))
	}
	assert.Equal(t, len(data), offset)
}

func TestPack_LargeMembersWriteZero(t *testing.T) {
	data, err := Pack([]int{256, 512}, squarePNG(t))
	require.NoError(t, err)

	assert.Equal(t, byte(0), data[headerSize])
	assert.Equal(t, byte(0), data[headerSize+entrySize])

	entries, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, 256, entries[0].Width)
	assert.Equal(t, 512, entries[1].Width, "payload dimensions win over the directory byte")
}

func TestPack_DuplicatesPassThrough(t *testing.T) {
	calls := 0
	render := func(n int) ([]byte, error) {
		calls++
		return squarePNG(t)(n)
	}
	data, err := Pack([]int{32, 32}, render)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	entries, err := Parse(data)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestPack_MemberFailureAborts(t *testing.T) {
	boom := errors.New("boom")
	var rendered []int
	render := func(n int) ([]byte, error) {
		rendered = append(rendered, n)
		if n == 32 {
			return nil, boom
		}
		return squarePNG(t)(n)
	}

	data, err := Pack([]int{16, 32, 48}, render)
	assert.Nil(t, data)
	require.ErrorIs(t, err, boom)

	var me *MemberError
	require.True(t, errors.As(err, &me))
	assert.Equal(t, 32, me.Resolution)
	assert.Equal(t, []int{16, 32}, rendered)
}

func TestPack_InvalidResolutions(t *testing.T) {
	_, err := Pack(nil, squarePNG(t))
	assert.ErrorIs(t, err, ErrNoResolutions)

	_, err = Pack([]int{16, 0}, squarePNG(t))
	assert.Error(t, err)

	_, err = Pack([]int{MaxResolution + 1}, squarePNG(t))
	assert.Error(t, err)
}

func TestParse_Malformed(t *testing.T) {
	_, err := Parse([]byte{0, 0})
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = Parse([]byte{0, 0, 2, 0, 0, 0})
	assert.ErrorIs(t, err, ErrMalformed, "cursor type is rejected")

	data, err := Pack([]int{16}, squarePNG(t))
	require.NoError(t, err)
	_, err = Parse(data[:len(data)-1])
	assert.ErrorIs(t, err, ErrMalformed)
}
