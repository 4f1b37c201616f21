package mpd

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/maple-music/maple/internal/poll"
)

// Polling bounds for queue convergence. Iteration caps, not wall-clock
// deadlines: roughly 5s for the head and 2s per hop.
const (
	DefaultPollInterval = 10 * time.Millisecond
	DefaultHeadAttempts = 500
	DefaultHopAttempts  = 200
)

// queueClient is the coarse surface the adapter needs from MPD.
type queueClient interface {
	Stop() error
	Play(pos int) error
	Next() error
	CurrentURI() (string, error)
	InsertAfterCurrent(uris []string) error
}

// Adapter honors "play this specific track from this set" against the
// externally mutable MPD queue. Best effort: if convergence polling runs
// out of attempts, playback is left wherever the external queue landed.
type Adapter struct {
	client       queueClient
	interval     time.Duration
	headAttempts int
	hopAttempts  int
}

// NewAdapter creates an adapter over an MPD client.
func NewAdapter(client *Client) *Adapter {
	return newAdapter(client)
}

func newAdapter(client queueClient) *Adapter {
	return &Adapter{
		client:       client,
		interval:     DefaultPollInterval,
		headAttempts: DefaultHeadAttempts,
		hopAttempts:  DefaultHopAttempts,
	}
}

// PlayTrackAt splices uris into the external queue and converges on the
// entry at index:
//
//  1. stop, insert the full list after the current entry, resume and
//     skip into it;
//  2. poll until the current entry is the head of the list;
//  3. skip-and-poll one hop at a time until the desired entry is
//     current.
//
// There is no completion callback from MPD, hence the bounded polling.
func (a *Adapter) PlayTrackAt(ctx context.Context, uris []string, index int) error {
	if len(uris) == 0 {
		return nil
	}
	if index < 0 || index >= len(uris) {
		return fmt.Errorf("index %d out of range for %d tracks", index, len(uris))
	}

	if err := a.client.Stop(); err != nil {
		return fmt.Errorf("stop external playback: %w", err)
	}
	if err := a.client.InsertAfterCurrent(uris); err != nil {
		return fmt.Errorf("insert tracks: %w", err)
	}
	// Play precedes the skip: MPD rejects next while the transport is
	// stopped.
	if err := a.client.Play(-1); err != nil {
		return fmt.Errorf("resume external playback: %w", err)
	}
	if err := a.client.Next(); err != nil {
		return fmt.Errorf("skip into inserted tracks: %w", err)
	}

	if err := a.converge(ctx, uris[0], a.headAttempts); err != nil {
		log.Error().Err(err).Str("uri", uris[0]).Msg("External queue never reached inserted tracks")
		return fmt.Errorf("converge on inserted tracks: %w", err)
	}

	for hop := 0; hop < index; hop++ {
		if err := a.client.Next(); err != nil {
			return fmt.Errorf("skip to track %d: %w", hop+1, err)
		}
		if err := a.converge(ctx, uris[hop+1], a.hopAttempts); err != nil {
			log.Error().Err(err).Str("uri", uris[hop+1]).Int("hop", hop+1).
				Msg("External queue stalled while skipping")
			return fmt.Errorf("converge on track %d: %w", hop+1, err)
		}
	}

	log.Info().Str("uri", uris[index]).Int("index", index).Msg("External queue converged")
	return nil
}

// converge polls until the external queue's current entry is uri.
func (a *Adapter) converge(ctx context.Context, uri string, attempts int) error {
	return poll.WaitUntil(ctx, a.interval, attempts, func() bool {
		current, err := a.client.CurrentURI()
		if err != nil {
			log.Debug().Err(err).Msg("Current entry read failed")
			return false
		}
		return current == uri
	})
}
