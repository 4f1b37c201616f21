// Package webhook posts "now playing" cards to a user-configured URL.
package webhook

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultTimeout bounds a single card delivery.
const DefaultTimeout = 15 * time.Second

// Card is the rendered now-playing notification.
type Card struct {
	Title    string
	Artist   string
	Album    string
	Artwork  []byte
	Filename string // artwork filename, e.g. "<id>.jpg"
}

// Client delivers cards over HTTP multipart POST.
type Client struct {
	httpClient *http.Client
}

// Option is a functional option for configuring the client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(w *Client) { w.httpClient = c }
}

// NewClient creates a webhook client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Send posts the card to url as a multipart form with title, artist and
// album fields plus an artwork file part. Any non-2xx status is an error.
func (c *Client) Send(ctx context.Context, url string, card Card) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	for field, value := range map[string]string{
		"title":  card.Title,
		"artist": card.Artist,
		"album":  card.Album,
	} {
		if err := mw.WriteField(field, value); err != nil {
			return fmt.Errorf("write field %s: %w", field, err)
		}
	}

	if len(card.Artwork) > 0 {
		name := card.Filename
		if name == "" {
			name = "artwork.jpg"
		}
		part, err := mw.CreateFormFile("artwork", name)
		if err != nil {
			return fmt.Errorf("create artwork part: %w", err)
		}
		if _, err := part.Write(card.Artwork); err != nil {
			return fmt.Errorf("write artwork part: %w", err)
		}
	}

	if err := mw.Close(); err != nil {
		return fmt.Errorf("finalize form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	log.Debug().Str("title", card.Title).Str("artist", card.Artist).Msg("Webhook delivered")
	return nil
}
