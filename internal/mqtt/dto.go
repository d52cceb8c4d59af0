package mqtt

import (
	"time"

	"github.com/tphakala/birdsound-go/internal/pipeline"
)

// ResultDTO is the payload published for each classification.
//
// Field names are the wire contract consumed by home automation rules.
type ResultDTO struct {
	RequestID    string  `json:"requestId"`
	Source       string  `json:"source,omitempty"` // instance name
	Timestamp    string  `json:"timestamp"`        // RFC3339, UTC
	Species      string  `json:"species"`          // model label, verbatim
	SpeciesID    string  `json:"speciesId"`
	DisplayName  string  `json:"displayName"`
	ClassIndex   int     `json:"classIndex"`
	Confidence   float64 `json:"confidence"` // percent, two decimals
	Illustration string  `json:"illustration,omitempty"`
}

// NewResultDTO builds the payload for r.
func NewResultDTO(r *pipeline.Result, source string, at time.Time) *ResultDTO {
	dto := &ResultDTO{
		RequestID:   r.RequestID,
		Source:      source,
		Timestamp:   at.UTC().Format(time.RFC3339),
		Species:     r.SpeciesName,
		SpeciesID:   r.SpeciesID.String(),
		DisplayName: r.DisplayName,
		ClassIndex:  r.ClassIndex,
		Confidence:  r.Confidence,
	}
	if r.Illustration != nil {
		dto.Illustration = r.Illustration.FileName
	}
	return dto
}
