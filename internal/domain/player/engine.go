package player

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/maple-music/maple/internal/domain/catalog"
)

// Status constants for the engine state machine.
const (
	StatusIdle    = "idle"
	StatusLoaded  = "loaded"
	StatusPlaying = "playing"
	StatusPaused  = "paused"
	StatusStopped = "stopped" // loaded, position reset to 0
)

const (
	// DefaultPollInterval is how often the engine republishes the
	// backend position while playing. The poll is the only source of
	// progress updates; the backend pushes nothing.
	DefaultPollInterval = 100 * time.Millisecond

	// DefaultRestartThreshold is the elapsed time past which Previous
	// restarts the current track instead of moving the cursor.
	DefaultRestartThreshold = 3 * time.Second
)

// Backend is the single-file audio output the engine drives. Load binds
// a new file and reports its duration; playback stays paused until Play.
type Backend interface {
	Load(path string) (time.Duration, error)
	Play()
	Pause()
	Stop()
	Seek(pos time.Duration) error
	Position() time.Duration
	Close() error
}

// Publisher receives exactly one callback per track-start. Implementations
// are expected to fan out their own side effects without blocking.
type Publisher interface {
	Publish(t catalog.Track)
}

// Engine owns the queue and the playback session: current track,
// transport status, elapsed position and the one-shot publish gate.
type Engine struct {
	mu               sync.Mutex
	backend          Backend
	publisher        Publisher
	pollInterval     time.Duration
	restartThreshold time.Duration

	queue     Queue
	status    string
	current   *catalog.Track
	elapsed   time.Duration
	duration  time.Duration
	published bool
	pollStop  chan struct{}

	handlersMu sync.Mutex
	handlers   []func(Event)
}

// Option configures the engine.
type Option func(*Engine)

// WithPublisher attaches the now-playing publisher fired once per
// track-start.
func WithPublisher(p Publisher) Option {
	return func(e *Engine) { e.publisher = p }
}

// WithPollInterval overrides the position poll interval.
func WithPollInterval(d time.Duration) Option {
	return func(e *Engine) { e.pollInterval = d }
}

// WithRestartThreshold overrides the previous-restarts-track threshold.
func WithRestartThreshold(d time.Duration) Option {
	return func(e *Engine) { e.restartThreshold = d }
}

// NewEngine creates an idle engine bound to an audio backend.
func NewEngine(backend Backend, opts ...Option) *Engine {
	e := &Engine{
		backend:          backend,
		pollInterval:     DefaultPollInterval,
		restartThreshold: DefaultRestartThreshold,
		status:           StatusIdle,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Notify registers a handler for engine events. Handlers run on the
// calling goroutine and must return quickly.
func (e *Engine) Notify(fn func(Event)) {
	e.handlersMu.Lock()
	defer e.handlersMu.Unlock()
	e.handlers = append(e.handlers, fn)
}

// SetQueue replaces the queue and cursor wholesale and loads the track
// under the cursor. An out-of-bounds start index leaves nothing loaded.
func (e *Engine) SetQueue(tracks []catalog.Track, start int) error {
	e.mu.Lock()
	e.stopPollLocked()
	e.backend.Stop()

	if ok := e.queue.Set(tracks, start); !ok {
		e.current = nil
		e.status = StatusIdle
		e.elapsed = 0
		e.duration = 0
		ev := e.snapshotLocked(EventTrackChanged)
		e.mu.Unlock()
		e.emit(ev)
		return nil
	}

	t, _ := e.queue.Current()
	err := e.loadLocked(t)
	ev := e.snapshotLocked(EventTrackChanged)
	e.mu.Unlock()
	e.emit(ev)
	return err
}

// Play starts or resumes playback. The first Play after a load fires the
// publisher; pausing and resuming the same track does not refire it.
func (e *Engine) Play() {
	e.mu.Lock()
	if e.current == nil || e.status == StatusPlaying {
		e.mu.Unlock()
		return
	}
	e.backend.Play()
	e.status = StatusPlaying
	first := !e.published
	e.published = true
	e.startPollLocked()
	t := *e.current
	ev := e.snapshotLocked(EventStateChanged)
	e.mu.Unlock()

	e.emit(ev)
	if first && e.publisher != nil {
		e.publisher.Publish(t)
	}
}

// Pause suspends playback without resetting the position.
func (e *Engine) Pause() {
	e.mu.Lock()
	if e.current == nil || e.status != StatusPlaying {
		e.mu.Unlock()
		return
	}
	e.backend.Pause()
	e.elapsed = e.backend.Position()
	e.status = StatusPaused
	e.stopPollLocked()
	ev := e.snapshotLocked(EventStateChanged)
	e.mu.Unlock()
	e.emit(ev)
}

// Stop halts playback and resets the position to 0. The loaded track is
// kept, so a later Play restarts it without republishing.
func (e *Engine) Stop() {
	e.mu.Lock()
	if e.current == nil {
		e.mu.Unlock()
		return
	}
	e.backend.Stop()
	if err := e.backend.Seek(0); err != nil {
		log.Debug().Err(err).Msg("Seek to 0 on stop failed")
	}
	e.elapsed = 0
	e.status = StatusStopped
	e.stopPollLocked()
	ev := e.snapshotLocked(EventStateChanged)
	e.mu.Unlock()
	e.emit(ev)
}

// Seek sets the position, clamped to [0, duration].
func (e *Engine) Seek(seconds float64) {
	e.mu.Lock()
	if e.current == nil {
		e.mu.Unlock()
		return
	}
	pos := time.Duration(seconds * float64(time.Second))
	if pos < 0 {
		pos = 0
	}
	if e.duration > 0 && pos > e.duration {
		pos = e.duration
	}
	if err := e.backend.Seek(pos); err != nil {
		log.Warn().Err(err).Float64("seconds", seconds).Msg("Seek failed")
		e.mu.Unlock()
		return
	}
	e.elapsed = pos
	ev := e.snapshotLocked(EventPositionChanged)
	e.mu.Unlock()
	e.emit(ev)
}

// Next advances the cursor with wraparound, loads the track there and
// starts playing it. A no-op on an empty queue or while nothing is
// loaded.
func (e *Engine) Next() {
	e.step(func(q *Queue) { q.Advance() })
}

// Previous retreats the cursor with wraparound, unless playback has
// progressed past the restart threshold, in which case the current track
// restarts from 0 and the cursor stays put.
func (e *Engine) Previous() {
	e.mu.Lock()
	if e.queue.Len() == 0 {
		e.mu.Unlock()
		return
	}
	if e.current != nil && e.elapsed > e.restartThreshold {
		if err := e.backend.Seek(0); err != nil {
			log.Warn().Err(err).Msg("Restart seek failed")
		}
		e.elapsed = 0
		ev := e.snapshotLocked(EventPositionChanged)
		e.mu.Unlock()
		e.emit(ev)
		e.Play()
		return
	}
	e.mu.Unlock()
	e.step(func(q *Queue) { q.Retreat() })
}

// step moves the cursor, loads the track under it and auto-plays. While
// nothing is loaded (empty queue, or a queue set with an out-of-bounds
// start) the cursor stays put and no track is loaded.
func (e *Engine) step(move func(*Queue)) {
	e.mu.Lock()
	if e.queue.Len() == 0 || e.current == nil {
		e.mu.Unlock()
		return
	}
	e.stopPollLocked()
	e.backend.Stop()
	move(&e.queue)
	t, _ := e.queue.Current()
	err := e.loadLocked(t)
	ev := e.snapshotLocked(EventTrackChanged)
	e.mu.Unlock()

	e.emit(ev)
	if err == nil {
		e.Play()
	}
}

// loadLocked binds the backend to a track. On failure the engine keeps
// its previous session untouched.
func (e *Engine) loadLocked(t catalog.Track) error {
	dur, err := e.backend.Load(t.Location)
	if err != nil {
		log.Error().Err(err).Str("id", t.ID).Str("title", t.Title).Msg("Load failed")
		return fmt.Errorf("load track %s: %w", t.ID, err)
	}
	tt := t
	e.current = &tt
	e.duration = dur
	e.elapsed = 0
	e.published = false
	e.status = StatusLoaded
	return nil
}

// Current returns the loaded track, if any.
func (e *Engine) Current() (catalog.Track, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current == nil {
		return catalog.Track{}, false
	}
	return *e.current, true
}

// Status returns the transport status.
func (e *Engine) Status() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// Position returns elapsed and total duration in seconds.
func (e *Engine) Position() (elapsed, duration float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.elapsed.Seconds(), e.duration.Seconds()
}

// QueueSnapshot returns the queued tracks and cursor.
func (e *Engine) QueueSnapshot() ([]catalog.Track, int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	tracks := make([]catalog.Track, len(e.queue.Tracks()))
	copy(tracks, e.queue.Tracks())
	return tracks, e.queue.Cursor()
}

// Close stops the poll timer and releases the backend.
func (e *Engine) Close() error {
	e.mu.Lock()
	e.stopPollLocked()
	e.mu.Unlock()
	return e.backend.Close()
}

func (e *Engine) startPollLocked() {
	if e.pollStop != nil {
		return
	}
	stop := make(chan struct{})
	e.pollStop = stop
	go e.pollLoop(stop)
}

func (e *Engine) stopPollLocked() {
	if e.pollStop != nil {
		close(e.pollStop)
		e.pollStop = nil
	}
}

// pollLoop republishes the backend position on every tick and detects
// natural end-of-track, which behaves like Next with auto-play.
func (e *Engine) pollLoop(stop chan struct{}) {
	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if e.tick() {
				e.Next()
			}
		}
	}
}

// tick reads the backend position and reports whether the track has
// played to completion.
func (e *Engine) tick() bool {
	e.mu.Lock()
	if e.status != StatusPlaying {
		e.mu.Unlock()
		return false
	}
	e.elapsed = e.backend.Position()
	done := e.duration > 0 && e.elapsed >= e.duration
	ev := e.snapshotLocked(EventPositionChanged)
	e.mu.Unlock()
	e.emit(ev)
	return done
}

func (e *Engine) snapshotLocked(t EventType) Event {
	ev := Event{
		Type:     t,
		Status:   e.status,
		Elapsed:  e.elapsed.Seconds(),
		Duration: e.duration.Seconds(),
	}
	if e.current != nil {
		c := *e.current
		ev.Track = &c
	}
	return ev
}

func (e *Engine) emit(ev Event) {
	e.handlersMu.Lock()
	handlers := make([]func(Event), len(e.handlers))
	copy(handlers, e.handlers)
	e.handlersMu.Unlock()
	for _, fn := range handlers {
		fn(ev)
	}
}
