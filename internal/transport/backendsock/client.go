// Package backendsock maintains the persistent socket channel to the
// Maple backend: outbound now-playing events and inbound friend
// notifications.
package backendsock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// ErrNotConnected is returned when an emit is attempted without an open
// connection. Callers treat it as a silent best-effort failure.
var ErrNotConnected = errors.New("backendsock: not connected")

// DefaultDialTimeout bounds the websocket handshake.
const DefaultDialTimeout = 10 * time.Second

// NowPlaying is the payload of the outbound nowPlaying event.
type NowPlaying struct {
	Title   string `json:"title"`
	Artist  string `json:"artist"`
	Album   string `json:"album"`
	ID      string `json:"id"`
	Discord bool   `json:"discord"`
}

// FriendEvent is the payload of inbound friendRequest and requestAccepted
// events.
type FriendEvent struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
}

// frame is the wire format: one JSON object per message.
type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Client is one persistent websocket connection per session.
type Client struct {
	url    string
	dialer *websocket.Dialer

	mu      sync.Mutex
	conn    *websocket.Conn
	header  http.Header
	writeMu sync.Mutex

	onFriendRequest   func(FriendEvent)
	onRequestAccepted func(FriendEvent)
}

// NewClient creates a socket client for the given ws:// or wss:// URL.
func NewClient(socketURL string) *Client {
	return &Client{
		url:    socketURL,
		dialer: &websocket.Dialer{HandshakeTimeout: DefaultDialTimeout},
		header: http.Header{},
	}
}

// SetCookies attaches session cookies to the next handshake.
func (c *Client) SetCookies(cookies []*http.Cookie) {
	c.mu.Lock()
	defer c.mu.Unlock()
	pairs := make([]string, 0, len(cookies))
	for _, ck := range cookies {
		pairs = append(pairs, ck.Name+"="+ck.Value)
	}
	c.header = http.Header{}
	if len(pairs) > 0 {
		c.header.Set("Cookie", strings.Join(pairs, "; "))
	}
}

// OnFriendRequest registers the handler for inbound friend requests.
func (c *Client) OnFriendRequest(fn func(FriendEvent)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onFriendRequest = fn
}

// OnRequestAccepted registers the handler for accepted-request
// notifications.
func (c *Client) OnRequestAccepted(fn func(FriendEvent)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onRequestAccepted = fn
}

// Connect dials the backend and starts the read loop. Reconnection is on
// demand: a lost connection makes emits silent no-ops until the next
// Connect.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.conn != nil {
		c.mu.Unlock()
		return nil
	}
	header := c.header
	c.mu.Unlock()

	conn, _, err := c.dialer.DialContext(ctx, c.url, header)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.url, err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	log.Info().Str("url", c.url).Msg("Socket connected")
	go c.readLoop(conn)
	return nil
}

// Connected reports whether the channel is open.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// EmitNowPlaying sends the nowPlaying event. Returns ErrNotConnected
// when the channel is down.
func (c *Client) EmitNowPlaying(payload NowPlaying) error {
	return c.emit("nowPlaying", payload)
}

func (c *Client) emit(event string, payload interface{}) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", event, err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := conn.WriteJSON(frame{Event: event, Data: data}); err != nil {
		return fmt.Errorf("emit %s: %w", event, err)
	}
	return nil
}

// readLoop dispatches inbound frames until the connection dies.
func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			log.Warn().Err(err).Msg("Socket read failed, channel closed")
			c.dropConn(conn)
			return
		}
		c.dispatch(f)
	}
}

func (c *Client) dispatch(f frame) {
	c.mu.Lock()
	onRequest := c.onFriendRequest
	onAccepted := c.onRequestAccepted
	c.mu.Unlock()

	switch f.Event {
	case "friendRequest":
		var ev FriendEvent
		if err := json.Unmarshal(f.Data, &ev); err != nil {
			log.Warn().Err(err).Msg("Bad friendRequest payload")
			return
		}
		log.Info().Str("username", ev.Username).Msg("Friend request received")
		if onRequest != nil {
			onRequest(ev)
		}
	case "requestAccepted":
		var ev FriendEvent
		if err := json.Unmarshal(f.Data, &ev); err != nil {
			log.Warn().Err(err).Msg("Bad requestAccepted payload")
			return
		}
		log.Info().Str("username", ev.Username).Msg("Friend request accepted")
		if onAccepted != nil {
			onAccepted(ev)
		}
	default:
		log.Debug().Str("event", f.Event).Msg("Ignoring socket event")
	}
}

func (c *Client) dropConn(conn *websocket.Conn) {
	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	c.mu.Unlock()
	conn.Close()
}

// Close shuts the channel down.
func (c *Client) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()
	if conn == nil {
		return nil
	}
	return conn.Close()
}
