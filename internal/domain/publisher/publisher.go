// Package publisher mirrors a track-start to the outside world: profile
// artwork upload, webhook card and socket event. All three are
// best-effort, independent and must never interrupt local playback.
package publisher

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/maple-music/maple/internal/domain/catalog"
	"github.com/maple-music/maple/internal/infra/webhook"
	"github.com/maple-music/maple/internal/transport/backendsock"
)

// DefaultTimeout bounds each individual side effect.
const DefaultTimeout = 30 * time.Second

// ProfileAPI uploads the now-playing artwork as the account's profile
// image.
type ProfileAPI interface {
	SetProfileImage(ctx context.Context, accountID string, image []byte, filename string) error
}

// CardSender delivers the rendered now-playing card.
type CardSender interface {
	Send(ctx context.Context, url string, card webhook.Card) error
}

// NowPlayingEmitter sends the nowPlaying socket event.
type NowPlayingEmitter interface {
	EmitNowPlaying(payload backendsock.NowPlaying) error
}

// Settings are read at the point of use so changes apply to the next
// track-start without propagation.
type Settings interface {
	AccountID() string
	WebhookURL() string
	MirrorToDiscord() bool
}

// ArtworkReader resolves a track's artwork bytes, falling back to the
// placeholder.
type ArtworkReader interface {
	Read(name string) ([]byte, error)
}

// Publisher implements player.Publisher. The engine gates it to exactly
// one call per track-start.
type Publisher struct {
	profile  ProfileAPI
	cards    CardSender
	socket   NowPlayingEmitter
	artwork  ArtworkReader
	settings Settings
	timeout  time.Duration
}

// New creates a publisher. Any sink may be nil and is then skipped.
func New(profile ProfileAPI, cards CardSender, socket NowPlayingEmitter, art ArtworkReader, settings Settings) *Publisher {
	return &Publisher{
		profile:  profile,
		cards:    cards,
		socket:   socket,
		artwork:  art,
		settings: settings,
		timeout:  DefaultTimeout,
	}
}

// Publish fires the three side effects, each on its own goroutine.
// Failures are logged and ignored; one sink failing never blocks the
// others.
func (p *Publisher) Publish(t catalog.Track) {
	log.Debug().Str("id", t.ID).Str("title", t.Title).Msg("Publishing now-playing")

	var art []byte
	if p.artwork != nil {
		var err error
		art, err = p.artwork.Read(t.Artwork)
		if err != nil {
			log.Warn().Err(err).Str("artwork", t.Artwork).Msg("Artwork read failed")
		}
	}

	go p.uploadArtwork(t, art)
	go p.sendCard(t, art)
	go p.emitSocket(t)
}

func (p *Publisher) uploadArtwork(t catalog.Track, art []byte) {
	if p.profile == nil || len(art) == 0 {
		return
	}
	accountID := p.settings.AccountID()
	if accountID == "" {
		log.Debug().Msg("No account id, skipping artwork upload")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	if err := p.profile.SetProfileImage(ctx, accountID, art, t.Artwork); err != nil {
		log.Warn().Err(err).Str("id", t.ID).Msg("Artwork upload failed")
	}
}

func (p *Publisher) sendCard(t catalog.Track, art []byte) {
	if p.cards == nil {
		return
	}
	url := p.settings.WebhookURL()
	if url == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	card := webhook.Card{
		Title:    t.Title,
		Artist:   t.Artist,
		Album:    t.Album,
		Artwork:  art,
		Filename: t.Artwork,
	}
	if err := p.cards.Send(ctx, url, card); err != nil {
		log.Warn().Err(err).Str("id", t.ID).Msg("Webhook delivery failed")
	}
}

func (p *Publisher) emitSocket(t catalog.Track) {
	if p.socket == nil {
		return
	}
	payload := backendsock.NowPlaying{
		Title:   t.Title,
		Artist:  t.Artist,
		Album:   t.Album,
		ID:      p.settings.AccountID(),
		Discord: p.settings.MirrorToDiscord(),
	}
	if err := p.socket.EmitNowPlaying(payload); err != nil {
		log.Warn().Err(err).Str("id", t.ID).Msg("Socket emit failed")
	}
}
