package species

import (
	"slices"
	"strconv"

	"github.com/tphakala/birdsound-go/internal/labels"
)

// Class is one model output class resolved to a species.
type Class struct {
	Index int
	Species
}

// Registry resolves every class of a label map to a species whose ID is
// unique and non-empty. Catalog rows keep their ids. A derived id that is
// empty becomes "class-<index>"; one already taken gets "-<index>" appended,
// so "Andean Guan_sound" at 0 and "Andean-Guan_call" at 4 become
// "andean-guan" and "andean-guan-4". Assignment follows class index order.
type Registry struct {
	classes []Class
	byLabel map[string]Species
	byID    map[ID]int // position in classes
	catalog *Catalog
}

// NewRegistry builds a registry for entries, which must be in index order
// as returned by labels.LabelMap.Entries.
func NewRegistry(entries []labels.Entry, c *Catalog) *Registry {
	r := &Registry{
		classes: make([]Class, 0, len(entries)),
		byLabel: make(map[string]Species, len(entries)),
		byID:    make(map[ID]int, len(entries)),
		catalog: c,
	}

	taken := make(map[ID]bool, len(entries)+c.Len())
	if c != nil {
		for id := range c.byID {
			taken[id] = true
		}
	}

	for _, e := range entries {
		idx, label := e.Index, e.Label
		sp, seen := r.byLabel[label]
		if !seen {
			var listed bool
			if sp, listed = c.lookup(label); !listed {
				sp = c.Resolve(label)
				sp.ID = uniqueID(sp.ID, idx, taken)
			}
			taken[sp.ID] = true
			r.byLabel[label] = sp
		}
		if _, ok := r.byID[sp.ID]; !ok {
			r.byID[sp.ID] = len(r.classes)
		}
		r.classes = append(r.classes, Class{Index: idx, Species: sp})
	}

	return r
}

func uniqueID(id ID, index int, taken map[ID]bool) ID {
	suffix := strconv.Itoa(index)
	if id == "" {
		id = ID("class-" + suffix)
	}
	for taken[id] {
		id = ID(string(id) + "-" + suffix)
	}
	return id
}

// Classes returns every class in index order.
func (r *Registry) Classes() []Class {
	if r == nil {
		return nil
	}
	return slices.Clone(r.classes)
}

// Resolve returns the species for label. Labels outside the registry fall
// back to the catalog.
func (r *Registry) Resolve(label string) Species {
	if r == nil {
		return (*Catalog)(nil).Resolve(label)
	}
	if sp, ok := r.byLabel[label]; ok {
		return sp
	}
	return r.catalog.Resolve(label)
}

// ByID returns the lowest-index class with species id.
func (r *Registry) ByID(id ID) (Class, bool) {
	if r == nil {
		return Class{}, false
	}
	pos, ok := r.byID[id]
	if !ok {
		return Class{}, false
	}
	return r.classes[pos], true
}

// Len returns the number of classes.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.classes)
}
