// Package catalog manages the imported track library: metadata extraction,
// flat JSON persistence and album/artist grouping.
package catalog

// Defaults used when tag extraction yields nothing usable.
const (
	UnknownArtist = "Unknown Artist"
	UnknownAlbum  = "Unknown Album"
	UnknownGenre  = "Unknown Genre"
	UnknownYear   = "Unknown"
)

// PlaceholderArtwork is the bundled fallback image referenced by tracks
// that carry no embedded picture.
const PlaceholderArtwork = "placeholder.png"

// Track is one playable audio item. The ID is assigned once at import
// time and never reused.
type Track struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Artist      string  `json:"artist"`
	Album       string  `json:"album"`
	Year        string  `json:"year"`
	Genre       string  `json:"genre"`
	Duration    float64 `json:"duration"` // seconds
	Ext         string  `json:"ext"`
	TrackNumber int     `json:"trackNumber"`
	DiscNumber  int     `json:"discNumber"`
	Artwork     string  `json:"artwork"`
	Location    string  `json:"url"`
}

// Same reports whether two tracks are the same logical track: equal ids,
// or equal resource locations for records that predate generated ids.
func (t Track) Same(other Track) bool {
	if t.ID != "" && other.ID != "" {
		return t.ID == other.ID
	}
	return t.Location == other.Location
}

// Album aggregates tracks sharing (name, artist).
type Album struct {
	Name     string   `json:"name"`
	Artist   string   `json:"artist"`
	Year     string   `json:"year"`
	Genre    string   `json:"genre"`
	Artwork  string   `json:"artwork"`
	TrackIDs []string `json:"tracks"`
}

// Artist aggregates tracks sharing an artist name.
type Artist struct {
	Name     string   `json:"name"`
	TrackIDs []string `json:"tracks"`
}
