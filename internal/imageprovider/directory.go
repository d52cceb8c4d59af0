package imageprovider

import (
	"fmt"
	"io/fs"
	"mime"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/tphakala/birdsound-go/internal/errors"
	"github.com/tphakala/birdsound-go/internal/logger"
	"github.com/tphakala/birdsound-go/internal/species"
)

// DefaultExtensions are tried in order when a species has no catalog image.
var DefaultExtensions = []string{".jpg", ".jpeg", ".png", ".webp"}

// DirectoryProvider finds illustrations in a directory. A catalog image is
// used when the species has one; otherwise the file stem must equal the
// model label exactly, with the species id as a fallback stem.
type DirectoryProvider struct {
	fs         afero.Fs
	root       string
	extensions []string
}

// NewDirectoryProvider serves images from root on fsys.
func NewDirectoryProvider(fsys afero.Fs, root string, extensions []string) *DirectoryProvider {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	normalized := make([]string, 0, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		normalized = append(normalized, ext)
	}

	return &DirectoryProvider{fs: fsys, root: root, extensions: normalized}
}

// Fetch implements ImageProvider.
func (p *DirectoryProvider) Fetch(sp species.Species) (Illustration, error) {
	for _, name := range p.candidates(sp) {
		ill, err := p.stat(name)
		if err == nil {
			return ill, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return Illustration{}, errors.New(err).
				Component("imageprovider").
				Category(errors.CategoryImageProvider).
				FileContext(name, 0).
				Context("species_id", sp.ID.String()).
				Build()
		}
	}

	GetLogger().Debug("no illustration for species",
		logger.String("label", sp.Label),
		logger.String("species_id", sp.ID.String()))
	return Illustration{}, ErrImageNotFound
}

// candidates lists file names to try, relative to the root.
func (p *DirectoryProvider) candidates(sp species.Species) []string {
	if sp.Image != "" {
		return []string{sp.Image}
	}

	stems := make([]string, 0, 2)
	if safeStem(sp.Label) {
		stems = append(stems, sp.Label)
	}
	if id := sp.ID.String(); id != "" && id != sp.Label {
		stems = append(stems, id)
	}

	names := make([]string, 0, len(stems)*len(p.extensions))
	for _, stem := range stems {
		for _, ext := range p.extensions {
			names = append(names, stem+ext)
		}
	}
	return names
}

// safeStem rejects labels that would leave the directory.
func safeStem(stem string) bool {
	return stem != "" && stem != "." && stem != ".." && !strings.ContainsAny(stem, `/\`)
}

func (p *DirectoryProvider) stat(name string) (Illustration, error) {
	full := filepath.Join(p.root, filepath.FromSlash(path.Clean(name)))
	info, err := p.fs.Stat(full)
	if err != nil {
		return Illustration{}, err
	}
	if info.IsDir() {
		return Illustration{}, fmt.Errorf("%s is a directory: %w", full, fs.ErrNotExist)
	}

	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(full)))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	return Illustration{
		Path:        full,
		FileName:    filepath.Base(full),
		ContentType: contentType,
		Size:        info.Size(),
		ModTime:     info.ModTime(),
	}, nil
}

// Open returns a reader for an illustration found by this provider.
func (p *DirectoryProvider) Open(ill Illustration) (afero.File, error) {
	f, err := p.fs.Open(ill.Path)
	if err != nil {
		return nil, errors.New(err).
			Component("imageprovider").
			Category(errors.CategoryFileIO).
			FileContext(ill.Path, ill.Size).
			Build()
	}
	return f, nil
}
