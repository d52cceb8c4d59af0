package species

import (
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/tphakala/birdsound-go/internal/errors"
)

// CatalogEntry is one row of the catalog file:
//
//	species:
//	  - label: "Andean Guan_sound"
//	    name: "Andean Guan"
//	    image: "andean-guan.jpg"
type CatalogEntry struct {
	Label string `yaml:"label"`
	ID    string `yaml:"id,omitempty"` // defaults to IDFromLabel(label)
	Name  string `yaml:"name,omitempty"`
	Image string `yaml:"image,omitempty"` // relative to the illustrations directory
}

type catalogFile struct {
	Species []CatalogEntry `yaml:"species"`
}

// Catalog is the explicit mapping from model labels to species ids, display
// names and illustrations. Labels absent from the catalog fall back to
// derived values. The zero value is an empty catalog.
type Catalog struct {
	byLabel map[string]Species
	byID    map[ID]Species
}

// NewCatalog builds a catalog from entries, rejecting duplicate labels or ids.
func NewCatalog(entries []CatalogEntry) (*Catalog, error) {
	c := &Catalog{
		byLabel: make(map[string]Species, len(entries)),
		byID:    make(map[ID]Species, len(entries)),
	}

	for i, e := range entries {
		if e.Label == "" {
			return nil, fmt.Errorf("catalog entry %d has no label", i)
		}

		id := ID(e.ID)
		if id == "" {
			id = IDFromLabel(e.Label)
		}
		if id == "" {
			return nil, fmt.Errorf("catalog entry %q yields an empty id", e.Label)
		}

		if e.Image != "" {
			clean := path.Clean(strings.ReplaceAll(e.Image, "\\", "/"))
			if path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
				return nil, fmt.Errorf("catalog image %q for %q escapes the illustrations directory", e.Image, e.Label)
			}
			e.Image = clean
		}

		name := e.Name
		if name == "" {
			name = DisplayNameFromLabel(e.Label)
		}

		sp := Species{ID: id, Label: e.Label, DisplayName: name, Image: e.Image}
		if _, dup := c.byLabel[e.Label]; dup {
			return nil, fmt.Errorf("catalog label %q listed twice", e.Label)
		}
		if _, dup := c.byID[id]; dup {
			return nil, fmt.Errorf("catalog id %q listed twice", id)
		}
		c.byLabel[e.Label] = sp
		c.byID[id] = sp
	}

	return c, nil
}

// LoadCatalog reads a YAML catalog. An empty path yields an empty catalog.
func LoadCatalog(fsys afero.Fs, catalogPath string) (*Catalog, error) {
	if catalogPath == "" {
		return &Catalog{}, nil
	}

	data, err := afero.ReadFile(fsys, catalogPath)
	if err != nil {
		kind := errors.KindMalformedData
		if errors.Is(err, fs.ErrNotExist) {
			kind = errors.KindResourceNotFound
		}
		return nil, errors.WithKind(fmt.Errorf("read species catalog: %w", err), kind).
			Component("species").
			FileContext(catalogPath, 0).
			Build()
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, errors.WithKind(fmt.Errorf("parse species catalog: %w", err), errors.KindMalformedData).
			Component("species").
			FileContext(catalogPath, int64(len(data))).
			Build()
	}

	c, err := NewCatalog(file.Species)
	if err != nil {
		return nil, errors.WithKind(err, errors.KindMalformedData).
			Component("species").
			FileContext(catalogPath, int64(len(data))).
			Build()
	}
	return c, nil
}

// Resolve returns the species for a model label, using the catalog row when present.
func (c *Catalog) Resolve(label string) Species {
	if sp, ok := c.lookup(label); ok {
		return sp
	}
	return Species{
		ID:          IDFromLabel(label),
		Label:       label,
		DisplayName: DisplayNameFromLabel(label),
	}
}

func (c *Catalog) lookup(label string) (Species, bool) {
	if c == nil {
		return Species{}, false
	}
	sp, ok := c.byLabel[label]
	return sp, ok
}

// Len returns the number of catalog rows.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.byLabel)
}
