package render

import (
	"image/png"
	"strings"
)

func pngLevel(name string) png.CompressionLevel {
	switch strings.ToLower(name) {
	case "speed":
		return png.BestSpeed
	case "best":
		return png.BestCompression
	case "none":
		return png.NoCompression
	default:
		return png.DefaultCompression
	}
}
