// Package species separates species identity from model label strings and
// from illustration file names.
//
// Model labels such as "Andean Guan_sound" are kept verbatim for reporting,
// while an ID ("andean-guan") keys URLs and the optional catalog table that
// maps each species to a display name and an illustration file.
package species

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// ID is a normalized, URL-safe species identifier.
type ID string

// labelSuffixes are training artifacts appended to model labels.
var labelSuffixes = []string{"_sound", "_call", "_song"}

// String implements fmt.Stringer.
func (id ID) String() string {
	return string(id)
}

// IDFromLabel derives a stable ID from a model label: compatibility
// decomposition, diacritics dropped, lower case, training suffix removed and
// every run of non-alphanumerics collapsed to a single '-'.
func IDFromLabel(label string) ID {
	base := strings.ToLower(trimSuffix(norm.NFKD.String(label)))

	var b strings.Builder
	b.Grow(len(base))
	dash := false
	for _, r := range base {
		switch {
		case unicode.Is(unicode.Mn, r):
			continue
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			dash = false
		default:
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}

	return ID(strings.TrimSuffix(b.String(), "-"))
}

// DisplayNameFromLabel strips the training suffix and turns underscores into spaces.
func DisplayNameFromLabel(label string) string {
	name := strings.ReplaceAll(trimSuffix(label), "_", " ")
	return strings.Join(strings.Fields(name), " ")
}

func trimSuffix(label string) string {
	lower := strings.ToLower(label)
	for _, suffix := range labelSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return label[:len(label)-len(suffix)]
		}
	}
	return label
}

// Species is one resolved class.
type Species struct {
	ID          ID     `json:"id"`
	Label       string `json:"label"`        // model label, verbatim
	DisplayName string `json:"display_name"` // human readable name
	Image       string `json:"-"`            // catalog illustration file, empty = derive from label
}
