// Package player provides the playback queue and engine driving the
// local audio backend.
package player

import "github.com/maple-music/maple/internal/domain/catalog"

// Queue is an ordered sequence of tracks with a current-index cursor.
// The cursor is always in [0, len) while the queue is non-empty; advance
// and retreat wrap modulo the queue length. An empty queue makes every
// cursor operation a no-op.
type Queue struct {
	tracks []catalog.Track
	cursor int
}

// Set replaces the queue and cursor wholesale. If start is out of bounds
// the cursor resets to 0 and Set reports false; callers treat that as
// "nothing to load".
func (q *Queue) Set(tracks []catalog.Track, start int) bool {
	q.tracks = tracks
	if start < 0 || start >= len(tracks) {
		q.cursor = 0
		return false
	}
	q.cursor = start
	return true
}

// Len returns the number of queued tracks.
func (q *Queue) Len() int {
	return len(q.tracks)
}

// Cursor returns the current index. Meaningless when the queue is empty.
func (q *Queue) Cursor() int {
	return q.cursor
}

// Current returns the track under the cursor.
func (q *Queue) Current() (catalog.Track, bool) {
	if len(q.tracks) == 0 {
		return catalog.Track{}, false
	}
	return q.tracks[q.cursor], true
}

// Tracks returns the queued tracks in order.
func (q *Queue) Tracks() []catalog.Track {
	return q.tracks
}

// Advance moves the cursor forward, wrapping at the end.
func (q *Queue) Advance() {
	if len(q.tracks) == 0 {
		return
	}
	q.cursor = (q.cursor + 1) % len(q.tracks)
}

// Retreat moves the cursor backward, wrapping at the start.
func (q *Queue) Retreat() {
	if len(q.tracks) == 0 {
		return
	}
	q.cursor = (q.cursor - 1 + len(q.tracks)) % len(q.tracks)
}
