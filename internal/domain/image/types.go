package image

import (
	"fmt"
	stdimage "image"
)

// RecommendedMinDimension is the smallest source edge that renders every preset without upscaling artefacts.
const RecommendedMinDimension = 1024

// Source is a decoded upload. It is never mutated after ingestion.
type Source struct {
	Image  stdimage.Image
	Width  int
	Height int
	Format string
	Size   int64
}

// Advisory returns a non-fatal warning when the source is smaller than recommended.
func (s *Source) Advisory() string {
	if s.Width < RecommendedMinDimension || s.Height < RecommendedMinDimension {
		return fmt.Sprintf("image is %dx%d, %dx%d or larger is recommended",
			s.Width, s.Height, RecommendedMinDimension, RecommendedMinDimension)
	}
	return ""
}

// ValidationResult captures the outcome of security validation.
type ValidationResult struct {
	IsValid      bool
	Format       string
	Width        int
	Height       int
	FileSize     int64
	Error        error
	SecurityRisk string
}

// Metrics aggregates pipeline statistics.
type Metrics struct {
	TotalProcessed    int64 `json:"totalProcessed"`
	FailedValidations int64 `json:"failedValidations"`
	SecurityIncidents int64 `json:"securityIncidents"`
}
