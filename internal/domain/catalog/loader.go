package catalog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dhowden/tag"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ArtworkSaver persists embedded picture bytes keyed by track id and
// returns the stored image name.
type ArtworkSaver interface {
	Save(id, ext string, data []byte) (string, error)
}

// DurationProber reads a file's playable length. Implemented by the audio
// backend; optional.
type DurationProber interface {
	Probe(path string) (time.Duration, error)
}

// Loader imports local audio files into the catalog.
type Loader struct {
	store  *Store
	art    ArtworkSaver
	prober DurationProber
}

// NewLoader creates a loader. prober may be nil, in which case durations
// default to 0.
func NewLoader(store *Store, art ArtworkSaver, prober DurationProber) *Loader {
	return &Loader{store: store, art: art, prober: prober}
}

// ImportFiles imports a batch of files. A failure on one file never
// aborts the batch: tag errors degrade to defaults, and only copy or
// persistence errors skip a file. Returns the tracks that were cataloged.
func (l *Loader) ImportFiles(paths []string) []Track {
	var imported []Track
	for _, p := range paths {
		t, err := l.ImportFile(p)
		if err != nil {
			log.Error().Err(err).Str("path", p).Msg("Import failed")
			continue
		}
		imported = append(imported, t)
	}
	return imported
}

// ImportFile copies one file into the catalog, extracts its metadata with
// best-effort defaults and appends the resulting record.
func (l *Loader) ImportFile(path string) (Track, error) {
	id := uuid.NewString()
	ext := strings.ToLower(filepath.Ext(path))

	dest := l.store.TrackFilePath(id + ext)
	if err := copyFile(path, dest); err != nil {
		return Track{}, fmt.Errorf("copy into catalog: %w", err)
	}

	t := l.extract(dest, path, id, ext)
	if err := l.store.AppendTrack(t); err != nil {
		return Track{}, err
	}

	log.Info().
		Str("id", t.ID).
		Str("title", t.Title).
		Str("artist", t.Artist).
		Msg("Track imported")
	return t, nil
}

// extract reads embedded tags and fills defaults for anything missing.
// Extraction failure yields a record built entirely from defaults.
func (l *Loader) extract(dest, original, id, ext string) Track {
	base := filepath.Base(original)
	t := Track{
		ID:       id,
		Title:    strings.TrimSuffix(base, filepath.Ext(base)),
		Artist:   UnknownArtist,
		Album:    UnknownAlbum,
		Year:     UnknownYear,
		Genre:    UnknownGenre,
		Ext:      strings.TrimPrefix(ext, "."),
		Artwork:  PlaceholderArtwork,
		Location: dest,
	}

	f, err := os.Open(dest)
	if err != nil {
		log.Warn().Err(err).Str("path", dest).Msg("Cannot reopen imported file")
		return t
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		log.Debug().Err(err).Str("path", original).Msg("No readable tags")
	} else {
		if v := m.Title(); v != "" {
			t.Title = v
		}
		if v := m.Artist(); v != "" {
			t.Artist = v
		}
		if v := m.Album(); v != "" {
			t.Album = v
		}
		if y := m.Year(); y != 0 {
			t.Year = strconv.Itoa(y)
		}
		if v := m.Genre(); v != "" {
			t.Genre = v
		}
		t.TrackNumber, _ = m.Track()
		t.DiscNumber, _ = m.Disc()

		if pic := m.Picture(); pic != nil && l.art != nil {
			name, err := l.art.Save(id, pic.Ext, pic.Data)
			if err != nil {
				log.Warn().Err(err).Str("id", id).Msg("Artwork save failed")
			} else {
				t.Artwork = name
			}
		}
	}

	if l.prober != nil {
		if d, err := l.prober.Probe(dest); err != nil {
			log.Debug().Err(err).Str("path", original).Msg("Duration probe failed")
		} else {
			t.Duration = d.Seconds()
		}
	}
	return t
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
