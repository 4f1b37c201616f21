package socketio

import (
	"sync"
	"time"

	"github.com/maple-music/maple/internal/domain/player"
)

// BroadcastDebouncer collapses rapid engine events into batched state
// broadcasts. Track and status changes flush immediately; position ticks
// arrive every poll interval and are held until the window elapses
// without another one.
type BroadcastDebouncer struct {
	window   time.Duration
	callback func()

	mu      sync.Mutex
	pending bool
	timer   *time.Timer
	stopped bool
}

// NewBroadcastDebouncer creates a debouncer firing callback at most once
// per window for position ticks.
func NewBroadcastDebouncer(window time.Duration, callback func()) *BroadcastDebouncer {
	return &BroadcastDebouncer{
		window:   window,
		callback: callback,
	}
}

// Trigger records an engine event of the given type.
func (d *BroadcastDebouncer) Trigger(t player.EventType) {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}

	if t == player.EventTrackChanged || t == player.EventStateChanged {
		d.pending = false
		if d.timer != nil {
			d.timer.Stop()
		}
		d.mu.Unlock()
		d.callback()
		return
	}

	d.pending = true
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.flush)
	d.mu.Unlock()
}

// flush fires the callback if a position tick is still pending.
func (d *BroadcastDebouncer) flush() {
	d.mu.Lock()
	fire := d.pending && !d.stopped
	d.pending = false
	d.mu.Unlock()

	if fire && d.callback != nil {
		d.callback()
	}
}

// Stop prevents any further callbacks from firing.
func (d *BroadcastDebouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
	d.pending = false
}
