package catalog

import (
	"sort"
	"strings"
)

// AddToAlbums appends a track to its (album, artist) group, creating the
// group on first sight. An album's artwork is taken from the first member
// track that has one and is never overwritten by later members.
func AddToAlbums(albums []Album, t Track) []Album {
	for i := range albums {
		if albums[i].Name == t.Album && albums[i].Artist == t.Artist {
			albums[i].TrackIDs = append(albums[i].TrackIDs, t.ID)
			if albums[i].Artwork == "" || albums[i].Artwork == PlaceholderArtwork {
				if t.Artwork != "" && t.Artwork != PlaceholderArtwork {
					albums[i].Artwork = t.Artwork
				}
			}
			return albums
		}
	}
	return append(albums, Album{
		Name:     t.Album,
		Artist:   t.Artist,
		Year:     t.Year,
		Genre:    t.Genre,
		Artwork:  t.Artwork,
		TrackIDs: []string{t.ID},
	})
}

// AddToArtists appends a track to its artist group, creating the group on
// first sight.
func AddToArtists(artists []Artist, t Track) []Artist {
	for i := range artists {
		if artists[i].Name == t.Artist {
			artists[i].TrackIDs = append(artists[i].TrackIDs, t.ID)
			return artists
		}
	}
	return append(artists, Artist{Name: t.Artist, TrackIDs: []string{t.ID}})
}

// GroupByAlbum folds tracks into album groups, sorted lexicographically by
// album name. Tracks keep their insertion order within a group.
func GroupByAlbum(tracks []Track) []Album {
	var albums []Album
	for _, t := range tracks {
		albums = AddToAlbums(albums, t)
	}
	sort.SliceStable(albums, func(i, j int) bool {
		return strings.ToLower(albums[i].Name) < strings.ToLower(albums[j].Name)
	})
	return albums
}

// GroupByArtist folds tracks into artist groups, sorted lexicographically
// by artist name.
func GroupByArtist(tracks []Track) []Artist {
	var artists []Artist
	for _, t := range tracks {
		artists = AddToArtists(artists, t)
	}
	sort.SliceStable(artists, func(i, j int) bool {
		return strings.ToLower(artists[i].Name) < strings.ToLower(artists[j].Name)
	})
	return artists
}
