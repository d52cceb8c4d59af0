package pipeline

import (
	"math"

	"github.com/tphakala/birdsound-go/internal/imageprovider"
	"github.com/tphakala/birdsound-go/internal/species"
)

// Clip is one classification request. Data takes precedence over Path.
type Clip struct {
	Name string // original file name, used as a container hint
	Data []byte
	Path string // read through the pipeline filesystem when Data is nil
}

// Result is a successful classification.
type Result struct {
	RequestID    string                      `json:"request_id"`
	SpeciesName  string                      `json:"species"` // model label, verbatim
	SpeciesID    species.ID                  `json:"species_id"`
	DisplayName  string                      `json:"display_name"`
	ClassIndex   int                         `json:"class_index"`
	Confidence   float64                     `json:"confidence"` // percent, two decimals
	Illustration *imageprovider.Illustration `json:"illustration,omitempty"`
}

// HasIllustration reports whether an illustration was resolved.
func (r *Result) HasIllustration() bool {
	return r.Illustration != nil
}

// Argmax returns the index and value of the largest probability. On ties the
// lowest index wins. It returns -1 for an empty distribution.
func Argmax(probs []float32) (int, float32) {
	if len(probs) == 0 {
		return -1, 0
	}
	best, bestVal := 0, probs[0]
	for i := 1; i < len(probs); i++ {
		if probs[i] > bestVal {
			best, bestVal = i, probs[i]
		}
	}
	return best, bestVal
}

// ConfidencePercent converts a probability to a percentage rounded to two
// decimals, half away from zero.
func ConfidencePercent(p float32) float64 {
	return math.Round(float64(p)*10000) / 100
}
