// Package audio implements the engine's playback backend on top of the
// beep decoder/speaker stack.
package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
	"github.com/rs/zerolog/log"
)

// speakerRate is the fixed output sample rate; sources are resampled to
// match.
const speakerRate = beep.SampleRate(44100)

// Player decodes one local file at a time and drives the speaker. Load
// binds a file paused; Play and Pause toggle the stream.
type Player struct {
	mu          sync.Mutex
	initialized bool
	streamer    beep.StreamSeekCloser
	format      beep.Format
	ctrl        *beep.Ctrl
}

// NewPlayer creates an audio player. The speaker device is initialized
// lazily on the first load.
func NewPlayer() *Player {
	return &Player{}
}

// Load decodes the file at path and queues it on the speaker, paused.
// Returns the track duration.
func (p *Player) Load(path string) (time.Duration, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLocked()

	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open audio file: %w", err)
	}

	streamer, format, err := decode(path, f)
	if err != nil {
		f.Close()
		return 0, err
	}

	if !p.initialized {
		if err := speaker.Init(speakerRate, speakerRate.N(time.Second/10)); err != nil {
			streamer.Close()
			return 0, fmt.Errorf("init speaker: %w", err)
		}
		p.initialized = true
	}

	p.streamer = streamer
	p.format = format

	resampled := beep.Resample(4, format.SampleRate, speakerRate, streamer)
	p.ctrl = &beep.Ctrl{Streamer: resampled, Paused: true}
	speaker.Play(p.ctrl)

	dur := format.SampleRate.D(streamer.Len())
	log.Debug().Str("path", path).Dur("duration", dur).Msg("Track loaded")
	return dur, nil
}

// Play unpauses the stream.
func (p *Player) Play() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ctrl == nil {
		return
	}
	speaker.Lock()
	p.ctrl.Paused = false
	speaker.Unlock()
}

// Pause pauses the stream without moving the position.
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ctrl == nil {
		return
	}
	speaker.Lock()
	p.ctrl.Paused = true
	speaker.Unlock()
}

// Stop pauses the stream. The engine follows up with Seek(0), so the
// streamer stays bound and replayable.
func (p *Player) Stop() {
	p.Pause()
}

// Seek moves the stream position.
func (p *Player) Seek(pos time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.streamer == nil {
		return nil
	}
	speaker.Lock()
	defer speaker.Unlock()
	return p.streamer.Seek(p.format.SampleRate.N(pos))
}

// Position returns the current stream position.
func (p *Player) Position() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.streamer == nil {
		return 0
	}
	speaker.Lock()
	pos := p.streamer.Position()
	speaker.Unlock()
	return p.format.SampleRate.D(pos)
}

// Close releases the current stream.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
	return nil
}

// Probe decodes only far enough to report a file's duration. Used by the
// catalog loader.
func (p *Player) Probe(path string) (time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open audio file: %w", err)
	}
	streamer, format, err := decode(path, f)
	if err != nil {
		f.Close()
		return 0, err
	}
	defer streamer.Close()
	return format.SampleRate.D(streamer.Len()), nil
}

// stopLocked detaches and closes the current stream (lock held).
func (p *Player) stopLocked() {
	if p.ctrl != nil {
		speaker.Lock()
		p.ctrl.Paused = true
		speaker.Unlock()
		speaker.Clear()
	}
	if p.streamer != nil {
		p.streamer.Close()
		p.streamer = nil
	}
	p.ctrl = nil
}

// decode picks a decoder by file extension.
func decode(path string, f *os.File) (beep.StreamSeekCloser, beep.Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		return mp3.Decode(f)
	case ".flac":
		return flac.Decode(f)
	case ".wav":
		return wav.Decode(f)
	case ".ogg", ".oga":
		return vorbis.Decode(f)
	default:
		return nil, beep.Format{}, fmt.Errorf("unsupported audio format: %s", filepath.Ext(path))
	}
}
