package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/tphakala/birdsound-go/internal/pipeline"
)

// Output formats
const (
	FormatText = "text"
	FormatJSON = "json"
)

// FileAnalysis classifies the clip at path and writes the prediction to w.
func (c *Components) FileAnalysis(ctx context.Context, path string, w io.Writer, format string) error {
	result, err := c.Pipeline.ClassifyFile(ctx, path)
	if err != nil {
		return err
	}
	return WriteResult(w, result, format)
}

// WriteResult renders a prediction as aligned text or indented JSON.
func WriteResult(w io.Writer, r *pipeline.Result, format string) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case FormatText, "":
	default:
		return fmt.Errorf("unknown output format %q", format)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Predicted species:\t%s\n", r.SpeciesName)
	fmt.Fprintf(tw, "Name:\t%s\n", r.DisplayName)
	fmt.Fprintf(tw, "Confidence:\t%.2f%%\n", r.Confidence)
	if r.HasIllustration() {
		fmt.Fprintf(tw, "Illustration:\t%s\n", r.Illustration.FileName)
	} else {
		fmt.Fprintf(tw, "Illustration:\tnone available for %s\n", r.SpeciesName)
	}
	return tw.Flush()
}
