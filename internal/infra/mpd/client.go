// Package mpd adapts the external MPD-owned playback queue. MPD exposes
// only coarse operations (insert, skip, stop, play) and advances its
// queue asynchronously, so targeting a specific track is done by
// splicing and bounded polling.
package mpd

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/fhs/gompd/v2/mpd"
	"github.com/rs/zerolog/log"
)

// Client wraps the gompd client with reconnection logic.
type Client struct {
	mu       sync.Mutex
	client   *mpd.Client
	host     string
	port     int
	password string
}

// NewClient creates an MPD client wrapper.
func NewClient(host string, port int, password string) *Client {
	return &Client{
		host:     host,
		port:     port,
		password: password,
	}
}

// Connect establishes the connection to MPD.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked()
}

func (c *Client) connectLocked() error {
	addr := fmt.Sprintf("%s:%d", c.host, c.port)
	log.Info().Str("addr", addr).Msg("Connecting to MPD")

	client, err := mpd.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("connect to MPD: %w", err)
	}

	if c.password != "" {
		if err := client.Command("password %s", c.password).OK(); err != nil {
			client.Close()
			return fmt.Errorf("MPD authentication: %w", err)
		}
	}

	c.client = client
	return nil
}

// ensureConnected pings the connection and reconnects if it has died.
func (c *Client) ensureConnected() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client == nil {
		return c.connectLocked()
	}
	if err := c.client.Ping(); err != nil {
		log.Warn().Err(err).Msg("MPD connection lost, reconnecting")
		c.client.Close()
		c.client = nil
		return c.connectLocked()
	}
	return nil
}

// Close closes the MPD connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil {
		err := c.client.Close()
		c.client = nil
		return err
	}
	return nil
}

// Ping checks that the connection is alive.
func (c *Client) Ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client == nil {
		return fmt.Errorf("not connected")
	}
	return c.client.Ping()
}

// Stop stops playback.
func (c *Client) Stop() error {
	if err := c.ensureConnected(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.client.Stop()
}

// Play starts playback. A negative pos resumes the current entry.
func (c *Client) Play(pos int) error {
	if err := c.ensureConnected(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.client.Play(pos)
}

// Next skips to the next queue entry.
func (c *Client) Next() error {
	if err := c.ensureConnected(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.client.Next()
}

// CurrentURI returns the URI of the queue's current entry, empty when
// nothing is loaded.
func (c *Client) CurrentURI() (string, error) {
	if err := c.ensureConnected(); err != nil {
		return "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	song, err := c.client.CurrentSong()
	if err != nil {
		return "", err
	}
	return song["file"], nil
}

// InsertAfterCurrent inserts uris directly after the queue's current
// entry, preserving their order. With an empty queue they are appended.
func (c *Client) InsertAfterCurrent(uris []string) error {
	if err := c.ensureConnected(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	status, err := c.client.Status()
	if err != nil {
		return fmt.Errorf("read MPD status: %w", err)
	}

	pos, err := strconv.Atoi(status["song"])
	if err != nil {
		// No current entry; append at the end.
		for _, uri := range uris {
			if _, err := c.client.AddID(uri, -1); err != nil {
				return fmt.Errorf("add %s: %w", uri, err)
			}
		}
		return nil
	}

	for i, uri := range uris {
		if _, err := c.client.AddID(uri, pos+1+i); err != nil {
			return fmt.Errorf("add %s: %w", uri, err)
		}
	}
	return nil
}
