// Package ico packs PNG payloads into a multi-image ICO container.
package ico

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	_ "image/png"
)

const (
	ContentType = "image/x-icon"

	headerSize = 6
	entrySize  = 16

	// MaxResolution bounds a member's edge.
	MaxResolution = 4096
)

var (
	ErrNoResolutions = errors.New("ico: no resolutions")
	ErrMalformed     = errors.New("ico: malformed container")
)

type iconDir struct {
	Reserved uint16 // must be 0
	Type     uint16 // 1 for ICO
	Count    uint16
}

type iconDirEntry struct {
	Width        uint8 // 0 means 256 or more
	Height       uint8
	ColorCount   uint8
	Reserved     uint8
	ColorPlanes  uint16
	BitsPerPixel uint16
	SizeInBytes  uint32
	Offset       uint32
}

// RenderFunc returns the PNG encoding of a square n×n render.
type RenderFunc func(n int) ([]byte, error)

// MemberError reports which resolution aborted a pack.
type MemberError struct {
	Resolution int
	Err        error
}

func (e *MemberError) Error() string {
	return fmt.Sprintf("ico: render %dx%d: %v", e.Resolution, e.Resolution, e.Err)
}

func (e *MemberError) Unwrap() error { return e.Err }

// Pack renders every resolution in order and serializes them into one container.
// Duplicates are kept. Any member failure aborts the whole container.
func Pack(resolutions []int, render RenderFunc) ([]byte, error) {
	if len(resolutions) == 0 {
		return nil, ErrNoResolutions
	}
	if len(resolutions) > 0xFFFF {
		return nil, fmt.Errorf("ico: %d members exceed container limit", len(resolutions))
	}
	for _, n := range resolutions {
		if n <= 0 || n > MaxResolution {
			return nil, fmt.Errorf("ico: resolution %d out of range (0, %d]", n, MaxResolution)
		}
	}

	payloads := make([][]byte, len(resolutions))
	for i, n := range resolutions {
		data, err := render(n)
		if err != nil {
			return nil, &MemberError{Resolution: n, Err: err}
		}
		if len(data) == 0 {
			return nil, &MemberError{Resolution: n, Err: errors.New("empty payload")}
		}
		payloads[i] = data
	}

	return encode(resolutions, payloads)
}

func encode(resolutions []int, payloads [][]byte) ([]byte, error) {
	total := headerSize + entrySize*len(payloads)
	for _, p := range payloads {
		total += len(p)
	}

	buf := bytes.NewBuffer(make([]byte, 0, total))
	if err := binary.Write(buf, binary.LittleEndian, iconDir{Type: 1, Count: uint16(len(payloads))}); err != nil {
		return nil, err
	}

	offset := uint32(headerSize + entrySize*len(payloads))
	for i, p := range payloads {
		entry := iconDirEntry{
			Width:        dimensionByte(resolutions[i]),
			Height:       dimensionByte(resolutions[i]),
			ColorPlanes:  1,
			BitsPerPixel: 32,
			SizeInBytes:  uint32(len(p)),
			Offset:       offset,
		}
		if err := binary.Write(buf, binary.LittleEndian, entry); err != nil {
			return nil, err
		}
		offset += uint32(len(p))
	}

	for _, p := range payloads {
		buf.Write(p)
	}
	return buf.Bytes(), nil
}

func dimensionByte(n int) uint8 {
	if n >= 256 {
		return 0
	}
	return uint8(n)
}

// Entry is one parsed member.
type Entry struct {
	// Width and Height come from the payload when it is a decodable PNG,
	// otherwise from the directory entry.
	Width        int
	Height       int
	BitsPerPixel int
	Offset       int
	Data         []byte
}

// Parse reads a container produced by Pack (or any PNG/BMP-payload ICO).
func Parse(data []byte) ([]Entry, error) {
	r := bytes.NewReader(data)

	var dir iconDir
	if err := binary.Read(r, binary.LittleEndian, &dir); err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrMalformed, err)
	}
	if dir.Reserved != 0 || dir.Type != 1 {
		return nil, fmt.Errorf("%w: reserved=%d type=%d", ErrMalformed, dir.Reserved, dir.Type)
	}

	raw := make([]iconDirEntry, dir.Count)
	if err := binary.Read(r, binary.LittleEndian, raw); err != nil {
		return nil, fmt.Errorf("%w: directory: %v", ErrMalformed, err)
	}

	entries := make([]Entry, 0, len(raw))
	for i, e := range raw {
		end := uint64(e.Offset) + uint64(e.SizeInBytes)
		if end > uint64(len(data)) {
			return nil, fmt.Errorf("%w: entry %d overruns container", ErrMalformed, i)
		}
		payload := data[e.Offset:end]

		entry := Entry{
			Width:        directoryDimension(e.Width),
			Height:       directoryDimension(e.Height),
			BitsPerPixel: int(e.BitsPerPixel),
			Offset:       int(e.Offset),
			Data:         payload,
		}
		if cfg, format, err := image.DecodeConfig(bytes.NewReader(payload)); err == nil && format == "png" {
			entry.Width, entry.Height = cfg.Width, cfg.Height
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func directoryDimension(b uint8) int {
	if b == 0 {
		return 256
	}
	return int(b)
}
