package analysis

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/tphakala/birdsound-go/internal/errors"
	"github.com/tphakala/birdsound-go/internal/imageprovider"
	"github.com/tphakala/birdsound-go/internal/species"
)

// SpeciesEntry is one class of the label map as listed by ListSpecies.
type SpeciesEntry struct {
	ClassIndex   int        `json:"class_index"`
	Label        string     `json:"label"`
	ID           species.ID `json:"id"`
	DisplayName  string     `json:"display_name"`
	Illustration string     `json:"illustration,omitempty"`
}

// Species returns every class of the label map in index order.
func (c *Components) Species() ([]SpeciesEntry, error) {
	registry, err := c.Pipeline.Registry()
	if err != nil {
		return nil, err
	}

	classes := registry.Classes()
	out := make([]SpeciesEntry, 0, len(classes))
	for _, class := range classes {
		entry := SpeciesEntry{
			ClassIndex:  class.Index,
			Label:       class.Label,
			ID:          class.ID,
			DisplayName: class.DisplayName,
		}
		if c.Images != nil {
			ill, err := c.Images.Fetch(class.Species)
			switch {
			case err == nil:
				entry.Illustration = ill.FileName
			case !errors.Is(err, imageprovider.ErrImageNotFound):
				return nil, err
			}
		}
		out = append(out, entry)
	}
	return out, nil
}

// ListSpecies writes the species table to w.
func (c *Components) ListSpecies(w io.Writer, format string) error {
	entries, err := c.Species()
	if err != nil {
		return err
	}

	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	case FormatText, "":
	default:
		return fmt.Errorf("unknown output format %q", format)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "INDEX\tID\tNAME\tLABEL\tILLUSTRATION")
	for _, e := range entries {
		ill := "-"
		if e.Illustration != "" {
			ill = e.Illustration
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", e.ClassIndex, e.ID, e.DisplayName, e.Label, ill)
	}
	return tw.Flush()
}
