// Package artwork stores per-track artwork images extracted at import
// time, with a generated placeholder for tracks that have none.
package artwork

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// Placeholder is the image name referenced by tracks without artwork.
const Placeholder = "placeholder.png"

// Store writes and reads artwork files under a single images directory.
type Store struct {
	dir string
}

// NewStore creates the images directory and the placeholder image if it
// does not exist yet.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create images dir: %w", err)
	}
	s := &Store{dir: dir}
	if err := s.ensurePlaceholder(); err != nil {
		return nil, err
	}
	return s, nil
}

// Save writes embedded picture bytes keyed by track id and returns the
// stored image name.
func (s *Store) Save(id, ext string, data []byte) (string, error) {
	if ext == "" {
		ext = "jpg"
	}
	name := id + "." + strings.TrimPrefix(strings.ToLower(ext), ".")
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("write artwork: %w", err)
	}
	return name, nil
}

// Read returns the bytes of a stored image. An empty or missing name
// falls back to the placeholder.
func (s *Store) Read(name string) ([]byte, error) {
	if name == "" {
		name = Placeholder
	}
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if os.IsNotExist(err) && name != Placeholder {
		log.Debug().Str("name", name).Msg("Artwork missing, using placeholder")
		return os.ReadFile(filepath.Join(s.dir, Placeholder))
	}
	return data, err
}

// Path returns the on-disk location of a stored image.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, name)
}

// ensurePlaceholder writes a small neutral PNG used when a track carries
// no embedded picture.
func (s *Store) ensurePlaceholder() error {
	path := filepath.Join(s.dir, Placeholder)
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	const size = 64
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	grey := color.RGBA{R: 0x33, G: 0x33, B: 0x33, A: 0xff}
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.Set(x, y, grey)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("encode placeholder: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
