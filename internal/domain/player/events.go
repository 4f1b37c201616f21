package player

import "github.com/maple-music/maple/internal/domain/catalog"

// EventType identifies an engine event.
type EventType string

// Engine event types. Consumers subscribe instead of reaching into
// engine state from callback contexts.
const (
	EventTrackChanged    EventType = "trackChanged"
	EventStateChanged    EventType = "stateChanged"
	EventPositionChanged EventType = "positionChanged"
)

// Event carries a snapshot of the engine state at the time it fired.
type Event struct {
	Type     EventType
	Track    *catalog.Track
	Status   string
	Elapsed  float64 // seconds
	Duration float64 // seconds
}
