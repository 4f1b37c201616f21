package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Store persists the catalog as flat JSON collections under a data
// directory:
//
//	tracks/tracks.json   imported track records
//	tracks/<id><ext>     the audio files themselves
//	albums/albums.json   album aggregates, appended on import
//	artists/artists.json artist aggregates, appended on import
type Store struct {
	dir string
}

// NewStore creates the catalog directories if needed.
func NewStore(dir string) (*Store, error) {
	for _, sub := range []string{"tracks", "albums", "artists"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("create catalog dir: %w", err)
		}
	}
	return &Store{dir: dir}, nil
}

// TrackFilePath returns the on-disk location for an imported audio file.
func (s *Store) TrackFilePath(name string) string {
	return filepath.Join(s.dir, "tracks", name)
}

// Tracks loads all track records. A missing file is an empty catalog.
func (s *Store) Tracks() ([]Track, error) {
	var tracks []Track
	if err := s.read(filepath.Join(s.dir, "tracks", "tracks.json"), &tracks); err != nil {
		return nil, err
	}
	return tracks, nil
}

// Albums loads all album aggregates.
func (s *Store) Albums() ([]Album, error) {
	var albums []Album
	if err := s.read(filepath.Join(s.dir, "albums", "albums.json"), &albums); err != nil {
		return nil, err
	}
	return albums, nil
}

// Artists loads all artist aggregates.
func (s *Store) Artists() ([]Artist, error) {
	var artists []Artist
	if err := s.read(filepath.Join(s.dir, "artists", "artists.json"), &artists); err != nil {
		return nil, err
	}
	return artists, nil
}

// AppendTrack adds a track record and updates the album and artist
// aggregates by scan-and-append.
func (s *Store) AppendTrack(t Track) error {
	tracks, err := s.Tracks()
	if err != nil {
		return err
	}
	tracks = append(tracks, t)
	if err := s.write(filepath.Join(s.dir, "tracks", "tracks.json"), tracks); err != nil {
		return err
	}

	albums, err := s.Albums()
	if err != nil {
		return err
	}
	if err := s.write(filepath.Join(s.dir, "albums", "albums.json"), AddToAlbums(albums, t)); err != nil {
		return err
	}

	artists, err := s.Artists()
	if err != nil {
		return err
	}
	return s.write(filepath.Join(s.dir, "artists", "artists.json"), AddToArtists(artists, t))
}

// Clear removes all persisted collections. Audio files are kept.
func (s *Store) Clear() error {
	for _, p := range []string{
		filepath.Join(s.dir, "tracks", "tracks.json"),
		filepath.Join(s.dir, "albums", "albums.json"),
		filepath.Join(s.dir, "artists", "artists.json"),
	} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

func (s *Store) read(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return nil
}

func (s *Store) write(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}
