package catalog_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/maple-music/maple/internal/domain/artwork"
	"github.com/maple-music/maple/internal/domain/catalog"
)

// id3TextFrame builds one ID3v2.3 text frame with ISO-8859-1 encoding.
func id3TextFrame(id, text string) []byte {
	payload := append([]byte{0}, []byte(text)...)
	frame := append([]byte(id),
		byte(len(payload)>>24), byte(len(payload)>>16), byte(len(payload)>>8), byte(len(payload)),
		0, 0)
	return append(frame, payload...)
}

// buildID3 wraps frames in an ID3v2.3 header with a syncsafe size.
func buildID3(frames ...[]byte) []byte {
	var body []byte
	for _, f := range frames {
		body = append(body, f...)
	}
	size := len(body)
	header := []byte{
		'I', 'D', '3', 3, 0, 0,
		byte(size>>21) & 0x7f, byte(size>>14) & 0x7f, byte(size>>7) & 0x7f, byte(size) & 0x7f,
	}
	return append(header, body...)
}

func newTestLoader(t *testing.T) (*catalog.Loader, *catalog.Store, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := catalog.NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	art, err := artwork.NewStore(filepath.Join(dir, "images"))
	if err != nil {
		t.Fatalf("artwork.NewStore: %v", err)
	}
	return catalog.NewLoader(store, art, fixedProber{42 * time.Second}), store, dir
}

type fixedProber struct{ d time.Duration }

func (p fixedProber) Probe(path string) (time.Duration, error) { return p.d, nil }

func TestImportTaggedFile(t *testing.T) {
	loader, store, dir := newTestLoader(t)

	src := filepath.Join(dir, "song.mp3")
	data := buildID3(
		id3TextFrame("TIT2", "Night Drive"),
		id3TextFrame("TPE1", "The Lanterns"),
		id3TextFrame("TALB", "Low Beams"),
		id3TextFrame("TYER", "1994"),
		id3TextFrame("TCON", "Shoegaze"),
		id3TextFrame("TRCK", "3/10"),
	)
	if err := os.WriteFile(src, data, 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	got, err := loader.ImportFile(src)
	if err != nil {
		t.Fatalf("ImportFile: %v", err)
	}

	if got.ID == "" {
		t.Error("imported track has no id")
	}
	if got.Title != "Night Drive" {
		t.Errorf("title = %q, want Night Drive", got.Title)
	}
	if got.Artist != "The Lanterns" {
		t.Errorf("artist = %q, want The Lanterns", got.Artist)
	}
	if got.Album != "Low Beams" {
		t.Errorf("album = %q, want Low Beams", got.Album)
	}
	if got.Year != "1994" {
		t.Errorf("year = %q, want 1994", got.Year)
	}
	if got.Genre != "Shoegaze" {
		t.Errorf("genre = %q, want Shoegaze", got.Genre)
	}
	if got.TrackNumber != 3 {
		t.Errorf("track number = %d, want 3", got.TrackNumber)
	}
	if got.Duration != 42 {
		t.Errorf("duration = %v, want 42", got.Duration)
	}
	if got.Artwork != catalog.PlaceholderArtwork {
		t.Errorf("artwork = %q, want placeholder (no embedded picture)", got.Artwork)
	}

	// File copied under tracks/<id>.mp3
	if _, err := os.Stat(got.Location); err != nil {
		t.Errorf("copied file missing: %v", err)
	}

	// Record persisted with aggregates
	tracks, err := store.Tracks()
	if err != nil {
		t.Fatalf("Tracks: %v", err)
	}
	if len(tracks) != 1 || tracks[0].ID != got.ID {
		t.Errorf("persisted tracks = %+v", tracks)
	}
	albums, _ := store.Albums()
	if len(albums) != 1 || albums[0].Name != "Low Beams" {
		t.Errorf("persisted albums = %+v", albums)
	}
}

func TestImportUntaggedFileUsesDefaults(t *testing.T) {
	loader, _, dir := newTestLoader(t)

	src := filepath.Join(dir, "Some Song.mp3")
	if err := os.WriteFile(src, []byte("not really audio"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	got, err := loader.ImportFile(src)
	if err != nil {
		t.Fatalf("ImportFile: %v", err)
	}

	if got.Title != "Some Song" {
		t.Errorf("title = %q, want basename without extension", got.Title)
	}
	if got.Artist != catalog.UnknownArtist {
		t.Errorf("artist = %q, want %q", got.Artist, catalog.UnknownArtist)
	}
	if got.Album != catalog.UnknownAlbum {
		t.Errorf("album = %q, want %q", got.Album, catalog.UnknownAlbum)
	}
	if got.Year != catalog.UnknownYear {
		t.Errorf("year = %q, want %q", got.Year, catalog.UnknownYear)
	}
	if got.Genre != catalog.UnknownGenre {
		t.Errorf("genre = %q, want %q", got.Genre, catalog.UnknownGenre)
	}
	if got.Ext != "mp3" {
		t.Errorf("ext = %q, want mp3", got.Ext)
	}
	if got.Artwork != catalog.PlaceholderArtwork {
		t.Errorf("artwork = %q, want placeholder", got.Artwork)
	}
}

func TestImportFilesSkipsFailures(t *testing.T) {
	loader, store, dir := newTestLoader(t)

	good := filepath.Join(dir, "good.mp3")
	if err := os.WriteFile(good, []byte("audio"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	imported := loader.ImportFiles([]string{
		filepath.Join(dir, "does-not-exist.mp3"),
		good,
	})

	if len(imported) != 1 {
		t.Fatalf("imported %d tracks, want 1", len(imported))
	}
	tracks, _ := store.Tracks()
	if len(tracks) != 1 {
		t.Errorf("persisted %d tracks, want 1", len(tracks))
	}
}
