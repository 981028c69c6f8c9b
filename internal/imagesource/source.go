// Package imagesource turns user input into image sources and resolves
// those sources into decoded images.
package imagesource

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Rorical/RoriLens/internal/classifier"
)

// MaxImageBytes caps both downloaded and local images
const MaxImageBytes = 20 << 20

type Kind int

const (
	KindURL Kind = iota
	KindBlob
)

// Source is a selected image reference
type Source struct {
	Ref   string // URL verbatim, or a blob reference
	Label string // what the user picked
	Kind  Kind
	Path  string // local file behind a blob, empty for URLs
}

// Selector resolves raw input into sources, storing local files as blobs
type Selector struct {
	blobs *BlobStore
}

func NewSelector(blobs *BlobStore) *Selector {
	return &Selector{blobs: blobs}
}

// FromURL takes the text verbatim. Empty text means no source.
func (s *Selector) FromURL(text string) (Source, bool) {
	if text == "" {
		return Source{}, false
	}
	return Source{Ref: text, Label: text, Kind: KindURL}, true
}

// FromFile expands pattern and takes the first regular file it matches.
// An empty pattern or no match means no source.
func (s *Selector) FromFile(pattern string) (Source, bool, error) {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return Source{}, false, nil
	}

	matches, err := filepath.Glob(expandHome(pattern))
	if err != nil {
		return Source{}, false, classifier.NewInvalidImageSourceError(pattern, err)
	}

	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		return s.Load(path)
	}
	return Source{}, false, nil
}

// Load reads path into a new blob. The source keeps the absolute path so it
// matches what the file watcher reports.
func (s *Selector) Load(path string) (Source, bool, error) {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	data, err := readLimited(path)
	if err != nil {
		return Source{}, false, classifier.NewInvalidImageSourceError(path, err)
	}

	name := filepath.Base(path)
	return Source{
		Ref:   s.blobs.Create(name, data),
		Label: name,
		Kind:  KindBlob,
		Path:  path,
	}, true, nil
}

// Release revokes the blob behind src, if any
func (s *Selector) Release(src Source) {
	if src.Kind == KindBlob {
		s.blobs.Revoke(src.Ref)
	}
}

func readLimited(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxImageBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > MaxImageBytes {
		return nil, fmt.Errorf("file exceeds %d bytes", MaxImageBytes)
	}
	return data, nil
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
