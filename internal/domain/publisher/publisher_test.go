package publisher_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/maple-music/maple/internal/domain/catalog"
	"github.com/maple-music/maple/internal/domain/publisher"
	"github.com/maple-music/maple/internal/infra/webhook"
	"github.com/maple-music/maple/internal/transport/backendsock"
)

type fakeProfile struct {
	calls chan struct {
		accountID string
		filename  string
		size      int
	}
	err error
}

func newFakeProfile() *fakeProfile {
	return &fakeProfile{calls: make(chan struct {
		accountID string
		filename  string
		size      int
	}, 1)}
}

func (f *fakeProfile) SetProfileImage(ctx context.Context, accountID string, image []byte, filename string) error {
	f.calls <- struct {
		accountID string
		filename  string
		size      int
	}{accountID, filename, len(image)}
	return f.err
}

type fakeCards struct {
	calls chan webhook.Card
	urls  chan string
	err   error
}

func newFakeCards() *fakeCards {
	return &fakeCards{calls: make(chan webhook.Card, 1), urls: make(chan string, 1)}
}

func (f *fakeCards) Send(ctx context.Context, url string, card webhook.Card) error {
	f.urls <- url
	f.calls <- card
	return f.err
}

type fakeSocket struct {
	calls chan backendsock.NowPlaying
	err   error
}

func newFakeSocket() *fakeSocket {
	return &fakeSocket{calls: make(chan backendsock.NowPlaying, 1)}
}

func (f *fakeSocket) EmitNowPlaying(payload backendsock.NowPlaying) error {
	f.calls <- payload
	return f.err
}

type fakeArt struct{ data []byte }

func (f fakeArt) Read(name string) ([]byte, error) {
	if f.data == nil {
		return nil, errors.New("no artwork")
	}
	return f.data, nil
}

type fakeSettings struct {
	accountID  string
	webhookURL string
	discord    bool
}

func (s fakeSettings) AccountID() string     { return s.accountID }
func (s fakeSettings) WebhookURL() string    { return s.webhookURL }
func (s fakeSettings) MirrorToDiscord() bool { return s.discord }

var testTrack = catalog.Track{
	ID:      "t1",
	Title:   "Night Drive",
	Artist:  "The Lanterns",
	Album:   "Low Beams",
	Artwork: "t1.jpg",
}

func TestPublishFansOutToAllSinks(t *testing.T) {
	profile := newFakeProfile()
	cards := newFakeCards()
	socket := newFakeSocket()
	settings := fakeSettings{accountID: "acc-1", webhookURL: "https://hooks.test/np", discord: true}

	p := publisher.New(profile, cards, socket, fakeArt{data: []byte("jpeg")}, settings)
	p.Publish(testTrack)

	select {
	case call := <-profile.calls:
		if call.accountID != "acc-1" || call.filename != "t1.jpg" || call.size != 4 {
			t.Errorf("profile call = %+v", call)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("profile sink never called")
	}

	select {
	case card := <-cards.calls:
		if card.Title != "Night Drive" || card.Artist != "The Lanterns" || card.Album != "Low Beams" {
			t.Errorf("card = %+v", card)
		}
		if string(card.Artwork) != "jpeg" {
			t.Errorf("card artwork = %q", card.Artwork)
		}
		if url := <-cards.urls; url != "https://hooks.test/np" {
			t.Errorf("webhook url = %q", url)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("webhook sink never called")
	}

	select {
	case payload := <-socket.calls:
		want := backendsock.NowPlaying{
			Title: "Night Drive", Artist: "The Lanterns", Album: "Low Beams",
			ID: "acc-1", Discord: true,
		}
		if payload != want {
			t.Errorf("payload = %+v, want %+v", payload, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("socket sink never called")
	}
}

func TestPublishSkipsUploadWithoutAccountID(t *testing.T) {
	profile := newFakeProfile()
	socket := newFakeSocket()
	settings := fakeSettings{} // logged out

	p := publisher.New(profile, nil, socket, fakeArt{data: []byte("jpeg")}, settings)
	p.Publish(testTrack)

	// The socket sink still fires; it carries an empty id.
	select {
	case payload := <-socket.calls:
		if payload.ID != "" {
			t.Errorf("payload id = %q, want empty", payload.ID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("socket sink never called")
	}

	select {
	case <-profile.calls:
		t.Error("profile sink called without an account id")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestPublishSkipsWebhookWithoutURL(t *testing.T) {
	cards := newFakeCards()
	socket := newFakeSocket()
	settings := fakeSettings{accountID: "acc-1"}

	p := publisher.New(nil, cards, socket, fakeArt{data: []byte("jpeg")}, settings)
	p.Publish(testTrack)

	select {
	case <-socket.calls:
	case <-time.After(2 * time.Second):
		t.Fatal("socket sink never called")
	}

	select {
	case <-cards.calls:
		t.Error("webhook sink called without a configured URL")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestPublishSinksAreIndependent(t *testing.T) {
	profile := newFakeProfile()
	profile.err = errors.New("backend down")
	cards := newFakeCards()
	socket := newFakeSocket()
	socket.err = errors.New("socket closed")
	settings := fakeSettings{accountID: "acc-1", webhookURL: "https://hooks.test/np"}

	p := publisher.New(profile, cards, socket, fakeArt{data: []byte("jpeg")}, settings)
	p.Publish(testTrack)

	// The webhook sink must deliver even though both neighbors fail.
	select {
	case <-cards.calls:
	case <-time.After(2 * time.Second):
		t.Fatal("webhook sink never called")
	}
}

func TestPublishWithoutArtworkStillEmits(t *testing.T) {
	socket := newFakeSocket()
	settings := fakeSettings{accountID: "acc-1"}

	p := publisher.New(nil, nil, socket, fakeArt{}, settings)
	p.Publish(testTrack)

	select {
	case payload := <-socket.calls:
		if payload.Title != "Night Drive" {
			t.Errorf("payload = %+v", payload)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("socket sink never called")
	}
}
