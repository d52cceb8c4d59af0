// Package labels loads the model's class index to species label map.
//
// The persisted form is a flat JSON object whose keys are decimal class
// indices and whose values are species labels:
//
//	{"0": "Andean Guan_sound", "1": "Baudo Guan_sound"}
package labels

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"slices"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/antonholmquist/jason"
	"github.com/spf13/afero"

	"github.com/tphakala/birdsound-go/internal/errors"
	"github.com/tphakala/birdsound-go/internal/logger"
)

// Entry is one index/label pair
type Entry struct {
	Index int
	Label string
}

// LabelMap maps class indices to species labels. It is immutable after Load.
type LabelMap struct {
	labels  map[int]string
	indices []int
	source  string
}

// GetLogger returns the labels package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("labels")
}

// New builds a LabelMap from entries. Used by tools and tests that already
// hold the labels in memory.
func New(entries map[int]string) *LabelMap {
	m := &LabelMap{
		labels:  make(map[int]string, len(entries)),
		indices: make([]int, 0, len(entries)),
		source:  "memory",
	}
	for idx, label := range entries {
		m.labels[idx] = label
		m.indices = append(m.indices, idx)
	}
	slices.Sort(m.indices)
	return m
}

// Load reads and parses the label map at path.
// A missing file fails with KindResourceNotFound; unparsable content with KindMalformedData.
func Load(fsys afero.Fs, path string) (*LabelMap, error) {
	start := time.Now()

	f, err := fsys.Open(path)
	if err != nil {
		kind := errors.KindMalformedData
		if errors.Is(err, fs.ErrNotExist) {
			kind = errors.KindResourceNotFound
		}
		return nil, errors.WithKind(fmt.Errorf("open label map: %w", err), kind).
			Component("labels").
			FileContext(path, 0).
			Build()
	}
	defer func() { _ = f.Close() }()

	m, err := Parse(f, path)
	if err != nil {
		return nil, err
	}

	GetLogger().Debug("label map loaded",
		logger.String("path", path),
		logger.Int("classes", m.Len()),
		logger.Bool("contiguous", m.Contiguous()),
		logger.Duration("elapsed", time.Since(start)))

	return m, nil
}

// Parse decodes a label map from r. source names the input in errors.
func Parse(r io.Reader, source string) (*LabelMap, error) {
	malformed := func(err error) error {
		return errors.WithKind(err, errors.KindMalformedData).
			Component("labels").
			Context("source", source).
			Build()
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, malformed(fmt.Errorf("read label map: %w", err))
	}

	// jason keeps the last of repeated keys
	if key, dup := duplicateKey(data); dup {
		return nil, malformed(fmt.Errorf("label map key %q listed twice", key))
	}

	obj, err := jason.NewObjectFromBytes(data)
	if err != nil {
		return nil, malformed(fmt.Errorf("label map is not a JSON object: %w", err))
	}

	values := obj.Map()
	if len(values) == 0 {
		return nil, malformed(fmt.Errorf("label map is empty"))
	}

	m := &LabelMap{
		labels:  make(map[int]string, len(values)),
		indices: make([]int, 0, len(values)),
		source:  source,
	}

	for key, value := range values {
		idx, err := parseIndex(key)
		if err != nil {
			return nil, malformed(err)
		}

		label, err := value.String()
		if err != nil {
			return nil, malformed(fmt.Errorf("label for index %q is not a string", key))
		}
		if label == "" || !utf8.ValidString(label) {
			return nil, malformed(fmt.Errorf("label for index %q is empty or not UTF-8", key))
		}

		m.labels[idx] = label
		m.indices = append(m.indices, idx)
	}

	slices.Sort(m.indices)
	return m, nil
}

// duplicateKey reports the first top-level key that appears twice. Input that
// is not a JSON object yields false and is left to the object parser.
func duplicateKey(data []byte) (string, bool) {
	dec := json.NewDecoder(bytes.NewReader(data))
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return "", false
	}

	seen := make(map[string]bool)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return "", false
		}
		key, ok := tok.(string)
		if !ok {
			return "", false
		}
		if seen[key] {
			return key, true
		}
		seen[key] = true

		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return "", false
		}
	}
	return "", false
}

// parseIndex accepts only canonical non-negative decimal keys, so "1" is
// valid while "01", "-1" and "+1" are not.
func parseIndex(key string) (int, error) {
	idx, err := strconv.Atoi(key)
	if err != nil || idx < 0 || strconv.Itoa(idx) != key {
		return 0, fmt.Errorf("label map key %q is not a non-negative class index", key)
	}
	return idx, nil
}

// Lookup returns the label for index or fails with KindUnknownClassIndex.
func (m *LabelMap) Lookup(index int) (string, error) {
	if label, ok := m.labels[index]; ok {
		return label, nil
	}
	return "", errors.WithKind(fmt.Errorf("class index %d not present in label map (%d classes)", index, len(m.labels)),
		errors.KindUnknownClassIndex).
		Component("labels").
		Context("class_index", index).
		Context("source", m.source).
		Build()
}

// Len returns the number of classes.
func (m *LabelMap) Len() int {
	return len(m.labels)
}

// Entries returns all pairs ordered by index.
func (m *LabelMap) Entries() []Entry {
	entries := make([]Entry, 0, len(m.indices))
	for _, idx := range m.indices {
		entries = append(entries, Entry{Index: idx, Label: m.labels[idx]})
	}
	return entries
}

// Contiguous reports whether the indices are exactly 0..Len()-1.
func (m *LabelMap) Contiguous() bool {
	for i, idx := range m.indices {
		if idx != i {
			return false
		}
	}
	return true
}
