package imageprovider

import (
	"io"
	"sync/atomic"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/birdsound-go/internal/errors"
	"github.com/tphakala/birdsound-go/internal/species"
)

func newAssetFS(t *testing.T, files ...string) afero.Fs {
	t.Helper()
	fsys := afero.NewMemMapFs()
	for _, name := range files {
		require.NoError(t, afero.WriteFile(fsys, name, []byte("image:"+name), 0o644))
	}
	return fsys
}

func TestDirectoryProviderLabelStem(t *testing.T) {
	t.Parallel()

	fsys := newAssetFS(t, "assets/Andean Guan_sound.jpg", "assets/baudo-guan.png")
	p := NewDirectoryProvider(fsys, "assets", nil)

	ill, err := p.Fetch(species.Species{ID: "andean-guan", Label: "Andean Guan_sound"})
	require.NoError(t, err)
	assert.Equal(t, "Andean Guan_sound.jpg", ill.FileName)
	assert.Equal(t, "image/jpeg", ill.ContentType)
	assert.Positive(t, ill.Size)

	// id is the fallback stem
	ill, err = p.Fetch(species.Species{ID: "baudo-guan", Label: "Baudo Guan_sound"})
	require.NoError(t, err)
	assert.Equal(t, "baudo-guan.png", ill.FileName)
	assert.Equal(t, "image/png", ill.ContentType)
}

func TestDirectoryProviderCatalogImage(t *testing.T) {
	t.Parallel()

	fsys := newAssetFS(t, "assets/guans/andean.jpg", "assets/Andean Guan_sound.jpg")
	p := NewDirectoryProvider(fsys, "assets", nil)

	ill, err := p.Fetch(species.Species{ID: "andean-guan", Label: "Andean Guan_sound", Image: "guans/andean.jpg"})
	require.NoError(t, err)
	assert.Equal(t, "andean.jpg", ill.FileName)

	// a catalog image that is missing does not fall back to the label
	_, err = p.Fetch(species.Species{ID: "andean-guan", Label: "Andean Guan_sound", Image: "guans/missing.jpg"})
	assert.ErrorIs(t, err, ErrImageNotFound)
}

func TestDirectoryProviderMiss(t *testing.T) {
	t.Parallel()

	fsys := newAssetFS(t, "assets/Andean Guan.jpg", "assets/Cauca Guan_sound.gif")
	p := NewDirectoryProvider(fsys, "assets", []string{"jpg", ".PNG"})

	tests := []struct {
		name string
		sp   species.Species
	}{
		{"stem must match exactly", species.Species{ID: "andean-guan", Label: "Andean Guan_sound"}},
		{"extension not configured", species.Species{ID: "cauca-guan", Label: "Cauca Guan_sound"}},
		{"path separators rejected", species.Species{Label: "../Andean Guan"}},
		{"empty species", species.Species{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ill, err := p.Fetch(tt.sp)
			assert.ErrorIs(t, err, ErrImageNotFound)
			assert.Empty(t, ill.FileName)
		})
	}
}

func TestDirectoryProviderOpen(t *testing.T) {
	t.Parallel()

	fsys := newAssetFS(t, "assets/Andean Guan_sound.jpg")
	p := NewDirectoryProvider(fsys, "assets", nil)

	ill, err := p.Fetch(species.Species{Label: "Andean Guan_sound"})
	require.NoError(t, err)

	f, err := p.Open(ill)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "image:assets/Andean Guan_sound.jpg", string(data))

	_, err = p.Open(Illustration{Path: "assets/gone.jpg"})
	assert.True(t, errors.IsCategory(err, errors.CategoryFileIO))
}

type countingProvider struct {
	calls atomic.Int64
	found map[string]Illustration
	err   error
}

func (p *countingProvider) Fetch(sp species.Species) (Illustration, error) {
	p.calls.Add(1)
	if p.err != nil {
		return Illustration{}, p.err
	}
	if ill, ok := p.found[sp.Label]; ok {
		return ill, nil
	}
	return Illustration{}, ErrImageNotFound
}

type countingMetrics struct {
	hits, misses atomic.Int64
}

func (m *countingMetrics) IncrementCacheHits()   { m.hits.Add(1) }
func (m *countingMetrics) IncrementCacheMisses() { m.misses.Add(1) }

func TestImageCacheNegativeEntries(t *testing.T) {
	t.Parallel()

	provider := &countingProvider{found: map[string]Illustration{
		"Andean Guan_sound": {FileName: "Andean Guan_sound.jpg"},
	}}
	metrics := &countingMetrics{}
	c := NewImageCache(provider, 0)
	c.SetMetrics(metrics)

	for range 3 {
		ill, err := c.Fetch(species.Species{Label: "Andean Guan_sound"})
		require.NoError(t, err)
		assert.Equal(t, "Andean Guan_sound.jpg", ill.FileName)
	}
	for range 3 {
		_, err := c.Fetch(species.Species{Label: "Cauca Guan_sound"})
		assert.ErrorIs(t, err, ErrImageNotFound)
	}

	assert.Equal(t, int64(2), provider.calls.Load(), "one provider call per species")
	assert.Equal(t, int64(4), metrics.hits.Load())
	assert.Equal(t, int64(2), metrics.misses.Load())
	assert.Equal(t, 2, c.Len())

	c.Flush()
	assert.Zero(t, c.Len())
}

func TestImageCacheDoesNotCacheFailures(t *testing.T) {
	t.Parallel()

	provider := &countingProvider{err: errors.NewStd("disk on fire")}
	c := NewImageCache(provider, 0)

	for range 2 {
		_, err := c.Fetch(species.Species{Label: "Andean Guan_sound"})
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrImageNotFound)
	}
	assert.Equal(t, int64(2), provider.calls.Load())
	assert.Zero(t, c.Len())
}

func TestImageCacheKeyIncludesCatalogImage(t *testing.T) {
	t.Parallel()

	provider := &countingProvider{}
	c := NewImageCache(provider, 0)

	_, _ = c.Fetch(species.Species{Label: "Andean Guan_sound"})
	_, _ = c.Fetch(species.Species{Label: "Andean Guan_sound", Image: "andean.jpg"})
	assert.Equal(t, int64(2), provider.calls.Load())
}

func TestImageCacheOpen(t *testing.T) {
	t.Parallel()

	fsys := newAssetFS(t, "assets/Andean Guan_sound.jpg")
	c := NewImageCache(NewDirectoryProvider(fsys, "assets", nil), 0)

	ill, err := c.Fetch(species.Species{Label: "Andean Guan_sound"})
	require.NoError(t, err)
	f, err := c.Open(ill)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	// a provider without Open
	_, err = NewImageCache(&countingProvider{}, 0).Open(ill)
	assert.True(t, errors.IsCategory(err, errors.CategoryImageProvider))
}
