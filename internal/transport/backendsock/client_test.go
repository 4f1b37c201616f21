package backendsock_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/maple-music/maple/internal/transport/backendsock"
)

type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// socketServer upgrades connections and exposes them for the test.
func socketServer(t *testing.T, onConn func(*websocket.Conn, *http.Request)) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		onConn(conn, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestEmitNowPlaying(t *testing.T) {
	frames := make(chan frame, 1)
	srv := socketServer(t, func(conn *websocket.Conn, r *http.Request) {
		defer conn.Close()
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			t.Errorf("read frame: %v", err)
			return
		}
		frames <- f
	})

	client := backendsock.NewClient(wsURL(srv))
	defer client.Close()
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	payload := backendsock.NowPlaying{
		Title:   "Night Drive",
		Artist:  "The Lanterns",
		Album:   "Low Beams",
		ID:      "acc-1",
		Discord: true,
	}
	if err := client.EmitNowPlaying(payload); err != nil {
		t.Fatalf("EmitNowPlaying: %v", err)
	}

	select {
	case f := <-frames:
		if f.Event != "nowPlaying" {
			t.Errorf("event = %s, want nowPlaying", f.Event)
		}
		var got backendsock.NowPlaying
		if err := json.Unmarshal(f.Data, &got); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if got != payload {
			t.Errorf("payload = %+v, want %+v", got, payload)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no frame received")
	}
}

func TestEmitWithoutConnection(t *testing.T) {
	client := backendsock.NewClient("ws://127.0.0.1:1/socket")
	err := client.EmitNowPlaying(backendsock.NowPlaying{Title: "T"})
	if !errors.Is(err, backendsock.ErrNotConnected) {
		t.Errorf("err = %v, want ErrNotConnected", err)
	}
}

func TestInboundFriendEventsDispatch(t *testing.T) {
	srv := socketServer(t, func(conn *websocket.Conn, r *http.Request) {
		defer conn.Close()
		data, _ := json.Marshal(backendsock.FriendEvent{ID: "f1", Username: "ben"})
		conn.WriteJSON(frame{Event: "friendRequest", Data: data})
		data, _ = json.Marshal(backendsock.FriendEvent{ID: "f2", Username: "cia"})
		conn.WriteJSON(frame{Event: "requestAccepted", Data: data})
		// Unknown events must be ignored, not crash the loop
		conn.WriteJSON(frame{Event: "somethingElse", Data: []byte(`{}`)})
		time.Sleep(100 * time.Millisecond)
	})

	requests := make(chan backendsock.FriendEvent, 1)
	accepted := make(chan backendsock.FriendEvent, 1)

	client := backendsock.NewClient(wsURL(srv))
	defer client.Close()
	client.OnFriendRequest(func(ev backendsock.FriendEvent) { requests <- ev })
	client.OnRequestAccepted(func(ev backendsock.FriendEvent) { accepted <- ev })

	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	select {
	case ev := <-requests:
		if ev.Username != "ben" {
			t.Errorf("friend request from %s, want ben", ev.Username)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("friendRequest not dispatched")
	}

	select {
	case ev := <-accepted:
		if ev.Username != "cia" {
			t.Errorf("accepted event from %s, want cia", ev.Username)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("requestAccepted not dispatched")
	}
}

func TestSessionCookiesSentOnHandshake(t *testing.T) {
	cookies := make(chan string, 1)
	srv := socketServer(t, func(conn *websocket.Conn, r *http.Request) {
		defer conn.Close()
		cookies <- r.Header.Get("Cookie")
		time.Sleep(50 * time.Millisecond)
	})

	client := backendsock.NewClient(wsURL(srv))
	defer client.Close()
	client.SetCookies([]*http.Cookie{
		{Name: "session", Value: "tok123"},
		{Name: "theme", Value: "dark"},
	})

	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	select {
	case got := <-cookies:
		if got != "session=tok123; theme=dark" {
			t.Errorf("Cookie header = %q", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no handshake observed")
	}
}

func TestConnectionLossMakesEmitsFail(t *testing.T) {
	srv := socketServer(t, func(conn *websocket.Conn, r *http.Request) {
		conn.Close()
	})

	client := backendsock.NewClient(wsURL(srv))
	defer client.Close()
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	// The read loop notices the close and drops the connection.
	deadline := time.After(2 * time.Second)
	for client.Connected() {
		select {
		case <-deadline:
			t.Fatal("connection never dropped")
		case <-time.After(10 * time.Millisecond):
		}
	}

	err := client.EmitNowPlaying(backendsock.NowPlaying{Title: "T"})
	if !errors.Is(err, backendsock.ErrNotConnected) {
		t.Errorf("err = %v, want ErrNotConnected", err)
	}
}
