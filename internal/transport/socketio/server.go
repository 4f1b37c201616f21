// Package socketio provides the Socket.io server remote controllers use
// to drive and observe the local playback engine.
package socketio

import (
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zishang520/socket.io/servers/socket/v3"
	"github.com/zishang520/socket.io/v3/pkg/types"

	"github.com/maple-music/maple/internal/domain/player"
)

// DefaultMaxRemotes caps concurrent non-localhost controllers.
const DefaultMaxRemotes = 8

// Server handles Socket.io connections and transport events.
type Server struct {
	io      *socket.Server
	engine  *player.Engine
	limiter *RemoteLimiter

	mu      sync.RWMutex
	clients map[string]*socket.Socket
}

// NewServer creates a Socket.io server bound to the playback engine and
// subscribes it to engine events.
func NewServer(engine *player.Engine) (*Server, error) {
	opts := socket.DefaultServerOptions()
	opts.SetPingTimeout(20 * time.Second)
	opts.SetPingInterval(25 * time.Second)
	opts.SetCors(&types.Cors{
		Origin:      "*",
		Credentials: true,
	})

	s := &Server{
		io:      socket.NewServer(nil, opts),
		engine:  engine,
		limiter: NewRemoteLimiter(DefaultMaxRemotes),
		clients: make(map[string]*socket.Socket),
	}

	s.setupHandlers()

	debouncer := NewBroadcastDebouncer(50*time.Millisecond, s.BroadcastState)
	engine.Notify(func(ev player.Event) {
		debouncer.Trigger(ev.Type)
	})

	return s, nil
}

// setupHandlers registers the Socket.io event handlers.
func (s *Server) setupHandlers() {
	s.io.On("connection", func(clients ...any) {
		client := clients[0].(*socket.Socket)
		clientID := string(client.Id())
		remoteIP := clientIP(client)

		evicted := s.limiter.Add(clientID, remoteIP)
		if evicted != "" {
			s.mu.RLock()
			old := s.clients[evicted]
			s.mu.RUnlock()
			if old != nil {
				log.Info().Str("id", evicted).Msg("Evicting oldest remote controller")
				old.Disconnect(true)
			}
		}

		log.Info().Str("id", clientID).Str("ip", remoteIP).Msg("Controller connected")

		s.mu.Lock()
		s.clients[clientID] = client
		s.mu.Unlock()

		// Send initial state after small delay
		go func() {
			time.Sleep(100 * time.Millisecond)
			client.Emit("pushState", s.state())
			client.Emit("pushQueue", s.queue())
		}()

		client.On("disconnect", func(args ...any) {
			reason := ""
			if len(args) > 0 {
				if r, ok := args[0].(string); ok {
					reason = r
				}
			}
			log.Info().Str("id", clientID).Str("reason", reason).Msg("Controller disconnected")

			s.limiter.Remove(clientID)
			s.mu.Lock()
			delete(s.clients, clientID)
			s.mu.Unlock()
		})

		client.On("getState", func(args ...any) {
			log.Debug().Str("id", clientID).Msg("getState")
			client.Emit("pushState", s.state())
		})

		client.On("getQueue", func(args ...any) {
			log.Debug().Str("id", clientID).Msg("getQueue")
			client.Emit("pushQueue", s.queue())
		})

		client.On("play", func(args ...any) {
			log.Debug().Str("id", clientID).Msg("play")
			s.engine.Play()
		})

		client.On("pause", func(args ...any) {
			log.Debug().Str("id", clientID).Msg("pause")
			s.engine.Pause()
		})

		client.On("stop", func(args ...any) {
			log.Debug().Str("id", clientID).Msg("stop")
			s.engine.Stop()
		})

		client.On("next", func(args ...any) {
			log.Debug().Str("id", clientID).Msg("next")
			s.engine.Next()
		})

		client.On("prev", func(args ...any) {
			log.Debug().Str("id", clientID).Msg("prev")
			s.engine.Previous()
		})

		client.On("seek", func(args ...any) {
			if len(args) == 0 {
				return
			}
			seconds, ok := seekSeconds(args[0])
			if !ok {
				return
			}
			log.Debug().Str("id", clientID).Float64("pos", seconds).Msg("seek")
			s.engine.Seek(seconds)
		})
	})
}

// seekSeconds extracts a seek target from a raw event payload, either a
// bare number or {"value": n}.
func seekSeconds(arg any) (float64, bool) {
	switch v := arg.(type) {
	case float64:
		return v, true
	case map[string]interface{}:
		n, ok := v["value"].(float64)
		return n, ok
	default:
		return 0, false
	}
}

// state builds the pushState payload from the engine.
func (s *Server) state() map[string]interface{} {
	elapsed, duration := s.engine.Position()
	_, cursor := s.engine.QueueSnapshot()

	state := map[string]interface{}{
		"status":   s.engine.Status(),
		"seek":     elapsed,
		"duration": duration,
		"position": cursor,
	}
	if t, ok := s.engine.Current(); ok {
		state["title"] = t.Title
		state["artist"] = t.Artist
		state["album"] = t.Album
		state["albumart"] = "/albumart?name=" + t.Artwork
	}
	return state
}

// queue builds the pushQueue payload from the engine.
func (s *Server) queue() []map[string]interface{} {
	tracks, _ := s.engine.QueueSnapshot()
	entries := make([]map[string]interface{}, 0, len(tracks))
	for _, t := range tracks {
		entries = append(entries, map[string]interface{}{
			"id":       t.ID,
			"title":    t.Title,
			"artist":   t.Artist,
			"album":    t.Album,
			"albumart": "/albumart?name=" + t.Artwork,
			"duration": t.Duration,
		})
	}
	return entries
}

// BroadcastState sends the current state to all connected controllers.
func (s *Server) BroadcastState() {
	s.io.Emit("pushState", s.state())
}

// BroadcastQueue sends the current queue to all connected controllers.
func (s *Server) BroadcastQueue() {
	s.io.Emit("pushQueue", s.queue())
}

// clientIP extracts the remote IP from the underlying handshake.
func clientIP(client *socket.Socket) string {
	if hs := client.Handshake(); hs != nil {
		return hs.Address
	}
	return ""
}

// ServeHTTP implements http.Handler for the Socket.io server.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.io.ServeHandler(nil).ServeHTTP(w, r)
}

// Close closes the Socket.io server.
func (s *Server) Close() error {
	s.io.Close(nil)
	return nil
}
